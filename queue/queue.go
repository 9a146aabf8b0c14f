package queue

// Queue is a generic FIFO queue. It is not safe for concurrent use; callers
// serialize access themselves.
type Queue[T any] struct {
	items []T
}

// New creates and returns a new Queue instance.
func New[T any]() *Queue[T] {
	return &Queue[T]{items: []T{}}
}

// Enqueue adds an element to the end of the queue.
func (q *Queue[T]) Enqueue(item T) {
	q.items = append(q.items, item)
}

// Dequeue removes and returns the front element of the queue.
// The boolean indicates whether an element was dequeued (false if the queue was empty).
func (q *Queue[T]) Dequeue() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return item, true
}

// Len returns the number of elements in the queue.
func (q *Queue[T]) Len() int {
	return len(q.items)
}

// IsEmpty returns true if the queue is empty.
func (q *Queue[T]) IsEmpty() bool {
	return len(q.items) == 0
}

// AppendTo appends the queued elements, front first, to dst and returns the
// extended slice. The queue is not modified.
func (q *Queue[T]) AppendTo(dst []T) []T {
	return append(dst, q.items...)
}

// Clear drops every element.
func (q *Queue[T]) Clear() {
	clear(q.items)
	q.items = q.items[:0]
}
