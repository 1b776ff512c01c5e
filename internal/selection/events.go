package selection

import "sync"

type EventKind int

const (
	PointerMove EventKind = iota
	Click
)

func (k EventKind) String() string {
	if k == Click {
		return "click"
	}
	return "pointermove"
}

// Event is a pointer event in page coordinates.
type Event struct {
	Kind EventKind
	X, Y float64
}

// Listener handles one event and reports whether the page's default action
// should be suppressed.
type Listener func(Event) (suppress bool)

// EventSource is the document-level event subscription the tracker is given.
type EventSource interface {
	Subscribe(l Listener) (unsubscribe func())
}

// Bus is an in-process EventSource. Dispatch delivers synchronously to every
// listener in subscription order.
type Bus struct {
	mu        sync.Mutex
	next      int
	listeners map[int]Listener
	order     []int
}

func NewBus() *Bus {
	return &Bus{listeners: make(map[int]Listener)}
}

func (b *Bus) Subscribe(l Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	b.listeners[id] = l
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.listeners, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Dispatch returns true if any listener suppressed the default action.
func (b *Bus) Dispatch(ev Event) bool {
	b.mu.Lock()
	ls := make([]Listener, 0, len(b.order))
	for _, id := range b.order {
		ls = append(ls, b.listeners[id])
	}
	b.mu.Unlock()

	suppressed := false
	for _, l := range ls {
		if l(ev) {
			suppressed = true
		}
	}
	return suppressed
}

// Listeners returns the number of active subscriptions.
func (b *Bus) Listeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.order)
}
