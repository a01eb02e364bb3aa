package hook

import (
	"sort"
	"sync"
)

// Manager holds the observer lists for every lifecycle point and manages
// named hooks on top of them.
type Manager struct {
	mu        sync.RWMutex
	preHooks  []named
	postHooks []named

	preStart     List[StartEvent]
	postStart    List[StartEvent]
	preDispatch  List[PreDispatchEvent]
	postDispatch List[DispatchEvent]
}

type named struct {
	hook  Hook
	unsub Unsubscribe
}

// NewManager creates a new hook manager.
func NewManager() *Manager {
	return &Manager{}
}

// OnPreStart subscribes fn to the first start, before the app is marked started.
func (m *Manager) OnPreStart(fn func(StartEvent)) Unsubscribe {
	return m.preStart.Subscribe(fn)
}

// OnPostStart subscribes fn to the first start, after the app is marked started.
func (m *Manager) OnPostStart(fn func(StartEvent)) Unsubscribe {
	return m.postStart.Subscribe(fn)
}

// OnPreDispatch subscribes fn to every dispatch before handlers run.
func (m *Manager) OnPreDispatch(fn func(PreDispatchEvent)) Unsubscribe {
	return m.preDispatch.Subscribe(fn)
}

// OnPostDispatch subscribes fn to every dispatch after the results pass.
func (m *Manager) OnPostDispatch(fn func(DispatchEvent)) Unsubscribe {
	return m.postDispatch.Subscribe(fn)
}

// RegisterPre adds a named pre-dispatch hook.
// A hook with the same name is replaced.
func (m *Manager) RegisterPre(h PreDispatchHook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.preHooks = removeNamed(m.preHooks, h.Name())
	unsub := m.preDispatch.SubscribeAt(h.Priority(), h.PreDispatch)
	m.preHooks = append(m.preHooks, named{hook: h, unsub: unsub})
	sortNamed(m.preHooks)
}

// RegisterPost adds a named post-dispatch hook.
// A hook with the same name is replaced.
func (m *Manager) RegisterPost(h PostDispatchHook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.postHooks = removeNamed(m.postHooks, h.Name())
	unsub := m.postDispatch.SubscribeAt(h.Priority(), h.PostDispatch)
	m.postHooks = append(m.postHooks, named{hook: h, unsub: unsub})
	sortNamed(m.postHooks)
}

// Register adds a hook that implements either or both interfaces.
func (m *Manager) Register(h Hook) {
	if pre, ok := h.(PreDispatchHook); ok {
		m.RegisterPre(pre)
	}
	if post, ok := h.(PostDispatchHook); ok {
		m.RegisterPost(post)
	}
}

// Unregister removes a named hook from both lists.
func (m *Manager) Unregister(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	pre, post := len(m.preHooks), len(m.postHooks)
	m.preHooks = removeNamed(m.preHooks, name)
	m.postHooks = removeNamed(m.postHooks, name)
	return len(m.preHooks) != pre || len(m.postHooks) != post
}

// RunPreStart notifies pre-start observers.
func (m *Manager) RunPreStart(ev StartEvent) { m.preStart.Notify(ev) }

// RunPostStart notifies post-start observers.
func (m *Manager) RunPostStart(ev StartEvent) { m.postStart.Notify(ev) }

// RunPreDispatch notifies pre-dispatch observers.
func (m *Manager) RunPreDispatch(ev PreDispatchEvent) { m.preDispatch.Notify(ev) }

// RunPostDispatch notifies post-dispatch observers.
func (m *Manager) RunPostDispatch(ev DispatchEvent) { m.postDispatch.Notify(ev) }

// PreHookNames returns the names of the named pre-dispatch hooks in order.
func (m *Manager) PreHookNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return namesOf(m.preHooks)
}

// PostHookNames returns the names of the named post-dispatch hooks in order.
func (m *Manager) PostHookNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return namesOf(m.postHooks)
}

// Counts returns the number of observers at each dispatch point.
func (m *Manager) Counts() (pre, post int) {
	return m.preDispatch.Len(), m.postDispatch.Len()
}

// Clear removes all hooks and observers.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preHooks = nil
	m.postHooks = nil
	m.preStart.Clear()
	m.postStart.Clear()
	m.preDispatch.Clear()
	m.postDispatch.Clear()
}

func removeNamed(list []named, name string) []named {
	for i, n := range list {
		if n.hook.Name() == name {
			n.unsub()
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func sortNamed(list []named) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].hook.Priority() > list[j].hook.Priority()
	})
}

func namesOf(list []named) []string {
	names := make([]string, len(list))
	for i, n := range list {
		names[i] = n.hook.Name()
	}
	return names
}
