package view

import (
	"context"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/bly/internal/app"
)

// InjectFunc dispatches a parsed prompt.
type InjectFunc func(app.Descriptor) error

// Run draws the view and handles key events until ctx is done or the user
// quits with q, Escape or Ctrl-C. ':' opens the prompt; Enter parses the
// prompt with app.ParseDescriptor and passes it to inject.
func (v *View) Run(ctx context.Context, inject InjectFunc) error {
	v.Draw()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = v.screen.PostEvent(tcell.NewEventInterrupt(nil))
		case <-stop:
		}
	}()

	for {
		ev := v.screen.PollEvent()
		if ev == nil {
			return nil
		}
		switch e := ev.(type) {
		case *tcell.EventInterrupt:
			if ctx.Err() != nil {
				return nil
			}
		case *tcell.EventResize:
			v.screen.Sync()
			v.Draw()
		case *tcell.EventKey:
			if v.HandleKey(e, inject) {
				return nil
			}
		}
	}
}

// HandleKey applies one key event and reports whether the view should
// quit.
func (v *View) HandleKey(e *tcell.EventKey, inject InjectFunc) bool {
	if e.Key() == tcell.KeyCtrlC {
		return true
	}

	v.mu.Lock()
	editing := v.editing
	v.mu.Unlock()

	if !editing {
		switch {
		case e.Key() == tcell.KeyEscape:
			return true
		case e.Key() == tcell.KeyRune && e.Rune() == 'q':
			return true
		case e.Key() == tcell.KeyRune && e.Rune() == ':':
			v.mu.Lock()
			v.editing = true
			v.input = v.input[:0]
			v.mu.Unlock()
			v.Draw()
		}
		return false
	}

	switch e.Key() {
	case tcell.KeyEscape:
		v.mu.Lock()
		v.editing = false
		v.mu.Unlock()
		v.Draw()
	case tcell.KeyEnter:
		v.mu.Lock()
		line := string(v.input)
		v.editing = false
		v.input = v.input[:0]
		v.mu.Unlock()
		v.submit(line, inject)
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		v.mu.Lock()
		if n := len(v.input); n > 0 {
			v.input = v.input[:n-1]
		}
		v.mu.Unlock()
		v.Draw()
	case tcell.KeyRune:
		v.mu.Lock()
		v.input = append(v.input, e.Rune())
		v.mu.Unlock()
		v.Draw()
	}
	return false
}

func (v *View) submit(line string, inject InjectFunc) {
	d, err := app.ParseDescriptor(line)
	if err != nil {
		v.SetStatus(err.Error(), true)
		return
	}
	if err := inject(d); err != nil {
		v.SetStatus(err.Error(), true)
		return
	}
	v.Draw()
}
