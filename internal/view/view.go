// Package view draws results snapshots on a terminal.
//
// A View subscribes to an app's render stream and post-dispatch hooks. The
// snapshot is drawn as sorted "key = value" lines with a status line at the
// bottom. With a history hook the most recent dispatches are listed just
// above the status line. Run adds a prompt where "NAME[=JSON]" injects an
// action.
package view

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/tidwall/gjson"

	"github.com/dshills/bly/internal/app"
	"github.com/dshills/bly/internal/dispatcher/hook"
	"github.com/dshills/bly/internal/results"
)

// HookName is the name of the post-dispatch hook a View registers.
const HookName = "view"

// Styles configures the colors used by a View.
type Styles struct {
	Key    tcell.Style
	Value  tcell.Style
	Status  tcell.Style
	Error   tcell.Style
	History tcell.Style
}

// DefaultStyles returns the styles used when none are given.
func DefaultStyles() Styles {
	return Styles{
		Key:    tcell.StyleDefault.Foreground(tcell.ColorTeal).Bold(true),
		Value:  tcell.StyleDefault,
		Status:  tcell.StyleDefault.Reverse(true),
		Error:   tcell.StyleDefault.Foreground(tcell.ColorRed).Reverse(true),
		History: tcell.StyleDefault.Dim(true),
	}
}

// Option configures a View.
type Option func(*View)

// WithStyles sets the styles.
func WithStyles(s Styles) Option {
	return func(v *View) {
		v.styles = s
	}
}

// WithTitle sets the text shown at the start of the status line.
func WithTitle(title string) Option {
	return func(v *View) {
		v.title = title
	}
}

// WithHistory lists h's recent dispatches above the status line. The hook
// must be registered with the app separately. A nil h is ignored.
func WithHistory(h *hook.HistoryHook) Option {
	return func(v *View) {
		v.history = h
	}
}

// View renders snapshots on a tcell screen.
type View struct {
	mu      sync.Mutex
	screen  tcell.Screen
	styles  Styles
	title   string
	history *hook.HistoryHook

	snap    results.Snapshot
	status  string
	failed  bool
	input   []rune
	editing bool
}

// New creates a View on an initialized screen.
func New(screen tcell.Screen, opts ...Option) *View {
	v := &View{
		screen: screen,
		styles: DefaultStyles(),
		title:  "bly",
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Attach subscribes v to a's snapshots and dispatch results. The returned
// function detaches it.
func (v *View) Attach(a *app.App) (func(), error) {
	unsubscribe, err := a.Render(v.Render)
	if err != nil {
		return nil, err
	}
	a.Hooks().RegisterPost(v)
	return func() {
		unsubscribe()
		a.Hooks().Unregister(HookName)
	}, nil
}

// Name implements hook.Hook.
func (v *View) Name() string { return HookName }

// Priority implements hook.Hook. The view observes after every other hook.
func (v *View) Priority() int { return 0 }

// PostDispatch records the outcome of a dispatch on the status line. A
// failed dispatch produces no snapshot, so the view redraws here.
func (v *View) PostDispatch(ev hook.DispatchEvent) {
	v.mu.Lock()
	if ev.Err != nil {
		v.status = fmt.Sprintf("%s failed: %v", ev.Action, ev.Err)
		v.failed = true
	} else {
		v.status = fmt.Sprintf("%s ok in %s", ev.Action, ev.Duration.Round(time.Microsecond))
		v.failed = false
	}
	v.mu.Unlock()

	if ev.Err != nil {
		v.Draw()
	}
}

// Render stores snap and redraws.
func (v *View) Render(snap results.Snapshot) {
	v.mu.Lock()
	v.snap = snap
	v.mu.Unlock()
	v.Draw()
}

// SetStatus replaces the status message.
func (v *View) SetStatus(msg string, failed bool) {
	v.mu.Lock()
	v.status = msg
	v.failed = failed
	v.mu.Unlock()
	v.Draw()
}

// Draw paints the current state and shows the screen.
func (v *View) Draw() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.screen.Clear()
	width, height := v.screen.Size()
	if width <= 0 || height <= 0 {
		return
	}

	recent := v.recent(height)
	body := height - 1 - len(recent)
	for y, line := range Lines(v.snap) {
		if y >= body {
			break
		}
		x := v.put(0, y, line.Key, v.styles.Key, width)
		x = v.put(x, y, " = ", v.styles.Value, width)
		v.put(x, y, line.Value, v.styles.Value, width)
	}
	for i, rec := range recent {
		style := v.styles.History
		text := rec.Time.Format("15:04:05") + " " + rec.Action
		if rec.Failed {
			style = v.styles.Error
			text += " failed"
		}
		v.put(0, body+i, text, style, width)
	}

	style := v.styles.Status
	if v.failed {
		style = v.styles.Error
	}
	status := v.statusText()
	for x := 0; x < width; x++ {
		v.screen.SetContent(x, height-1, ' ', nil, style)
	}
	v.put(0, height-1, status, style, width)
	v.screen.Show()
}

// recent returns the history rows to draw, using at most half the rows
// above the status line.
func (v *View) recent(height int) []hook.Record {
	if v.history == nil {
		return nil
	}
	rows := (height - 1) / 2
	if rows <= 0 {
		return nil
	}
	return v.history.Recent(rows)
}

func (v *View) statusText() string {
	if v.editing {
		return ":" + string(v.input)
	}
	parts := []string{v.title, fmt.Sprintf("%d keys", v.snap.Len())}
	if v.status != "" {
		parts = append(parts, v.status)
	}
	return strings.Join(parts, " | ")
}

// put writes s from column x and returns the next column. Text past width
// is dropped.
func (v *View) put(x, y int, s string, style tcell.Style, width int) int {
	for _, r := range s {
		if x >= width {
			break
		}
		v.screen.SetContent(x, y, r, nil, style)
		x++
	}
	return x
}

// Line is one rendered snapshot entry.
type Line struct {
	Key   string
	Value string
}

// Lines returns the snapshot entries sorted by key. Strings are shown
// bare and other values as compact JSON.
func Lines(snap results.Snapshot) []Line {
	raw, err := snap.MarshalJSON()
	if err != nil {
		return nil
	}

	var lines []Line
	gjson.ParseBytes(raw).ForEach(func(k, val gjson.Result) bool {
		value := val.Raw
		if val.Type == gjson.String {
			value = val.String()
		}
		lines = append(lines, Line{Key: k.String(), Value: value})
		return true
	})
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].Key < lines[j].Key
	})
	return lines
}
