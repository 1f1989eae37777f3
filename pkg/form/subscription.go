package form

import (
	"sync"
	"time"
)

// EventKind classifies a watch event.
type EventKind int

const (
	// EventChange is user input through a binding.
	EventChange EventKind = iota
	// EventSet is a programmatic SetValue.
	EventSet
	// EventArray is a field array operation.
	EventArray
	// EventReset is a Reset.
	EventReset
	// EventState is a meta-only change such as a finished validation.
	EventState
)

func (k EventKind) String() string {
	switch k {
	case EventSet:
		return "set"
	case EventArray:
		return "array"
	case EventReset:
		return "reset"
	case EventState:
		return "state"
	default:
		return "change"
	}
}

// WatchEvent describes one change. Values is a snapshot taken when the change
// was applied.
type WatchEvent struct {
	Kind   EventKind
	Path   string
	Values map[string]any
	At     time.Time
}

// WatchFunc receives watch events.
type WatchFunc func(WatchEvent)

// Subscription is a registered WatchFunc.
type Subscription struct {
	c     *Controller
	id    uint64
	fn    WatchFunc
	paths []string
	once  sync.Once
}

// Subscribe registers fn for change notifications. With paths, fn only sees
// value events touching those paths and resets; without paths it sees every
// event.
func (c *Controller) Subscribe(fn WatchFunc, paths ...string) *Subscription {
	normalized := make([]string, 0, len(paths))
	for _, p := range paths {
		if n := NormalizePath(p); n != "" {
			normalized = append(normalized, n)
		}
	}

	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.nextSub++
	sub := &Subscription{c: c, id: c.nextSub, fn: fn, paths: normalized}
	c.subs[sub.id] = sub
	return sub
}

// Unsubscribe stops delivery. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.c.subMu.Lock()
		delete(s.c.subs, s.id)
		s.c.subMu.Unlock()
	})
}

func (s *Subscription) wants(ev WatchEvent) bool {
	if len(s.paths) == 0 || ev.Kind == EventReset {
		return true
	}
	if ev.Kind == EventState {
		return false
	}
	for _, p := range s.paths {
		if overlaps(p, ev.Path) {
			return true
		}
	}
	return false
}

// events builds the event for a change. Callers hold c.mu.
func (c *Controller) events(kind EventKind, path string) []WatchEvent {
	c.subMu.Lock()
	empty := len(c.subs) == 0
	c.subMu.Unlock()
	if empty {
		return nil
	}
	return []WatchEvent{{Kind: kind, Path: path, Values: cloneValues(c.values), At: c.now()}}
}

func (c *Controller) emit(events []WatchEvent) {
	if len(events) == 0 {
		return
	}
	c.subMu.Lock()
	subs := make([]*Subscription, 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	c.subMu.Unlock()

	for _, ev := range events {
		for _, sub := range subs {
			if sub.fn != nil && sub.wants(ev) {
				sub.fn(ev)
			}
		}
	}
}
