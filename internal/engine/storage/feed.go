package storage

import (
	"sync"

	"github.com/arvelo/siteplot/internal/model"
)

// Feed fans project change events out to subscribers, scoped by org.
// Publish never blocks: events to a slow subscriber are dropped.
type Feed struct {
	mu   sync.RWMutex
	subs map[string]map[chan model.ChangeEvent]struct{}
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[string]map[chan model.ChangeEvent]struct{})}
}

// Subscribe returns a buffered channel receiving events for one org.
// Callers must Unsubscribe when the scope changes or the consumer goes away.
func (f *Feed) Subscribe(org string) chan model.ChangeEvent {
	ch := make(chan model.ChangeEvent, 16)
	f.mu.Lock()
	if f.subs[org] == nil {
		f.subs[org] = make(map[chan model.ChangeEvent]struct{})
	}
	f.subs[org][ch] = struct{}{}
	f.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (f *Feed) Unsubscribe(org string, ch chan model.ChangeEvent) {
	f.mu.Lock()
	if set, ok := f.subs[org]; ok {
		if _, ok := set[ch]; ok {
			delete(set, ch)
			close(ch)
		}
		if len(set) == 0 {
			delete(f.subs, org)
		}
	}
	f.mu.Unlock()
}

// Publish delivers an event to every subscriber of its org.
func (f *Feed) Publish(e model.ChangeEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for ch := range f.subs[e.Org] {
		select {
		case ch <- e:
		default:
			// subscriber too slow, skip
		}
	}
}
