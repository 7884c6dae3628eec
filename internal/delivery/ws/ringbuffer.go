package ws

// RingBuffer is a fixed-size circular buffer
// It provides O(1) append and efficient memory usage
type RingBuffer[T any] struct {
	data []T
	head int // next write position
	size int // current number of elements
	cap  int // maximum capacity
}

// NewRingBuffer creates a new ring buffer with the given capacity
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &RingBuffer[T]{
		data: make([]T, capacity),
		cap:  capacity,
	}
}

// Add appends v, overwriting the oldest element if full.
// The overwritten element is returned with evicted set.
func (rb *RingBuffer[T]) Add(v T) (old T, evicted bool) {
	if rb.size == rb.cap {
		old, evicted = rb.data[rb.head], true
	}

	rb.data[rb.head] = v
	rb.head = (rb.head + 1) % rb.cap

	if rb.size < rb.cap {
		rb.size++
	}
	return old, evicted
}

// dedupeWindow remembers the last N event ids
type dedupeWindow struct {
	order *RingBuffer[dedupeSlot]
	index map[string]uint64 // id -> seq of its live slot
	next  uint64
}

// dedupeSlot tags an id with the sighting that owns it, so evicting the slot
// of a forgotten id leaves a later sighting of the same id in place
type dedupeSlot struct {
	id  string
	seq uint64
}

func newDedupeWindow(size int) *dedupeWindow {
	return &dedupeWindow{
		order: NewRingBuffer[dedupeSlot](size),
		index: make(map[string]uint64, size),
	}
}

// seen records id and reports whether it was already in the window
func (w *dedupeWindow) seen(id string) bool {
	if _, ok := w.index[id]; ok {
		return true
	}
	w.next++
	if old, evicted := w.order.Add(dedupeSlot{id: id, seq: w.next}); evicted && w.index[old.id] == old.seq {
		delete(w.index, old.id)
	}
	w.index[id] = w.next
	return false
}

// forget drops id so its next sighting is accepted
func (w *dedupeWindow) forget(id string) {
	delete(w.index, id)
}
