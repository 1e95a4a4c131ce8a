package pool

// Resettable is a constraint for types that have a Reset() method.
type Resettable interface {
	Reset()
}

// Poolable is a constraint for types that can be pooled (must be resettable and comparable).
type Poolable interface {
	Resettable
	comparable
}

// Pool is a bounded free list of reusable objects such as render buffers.
type Pool[T Poolable] struct {
	items chan T
	newFn func() T
}

// New creates a Pool holding at most capacity idle objects. Get on an empty
// pool returns the zero value of T.
func New[T Poolable](capacity int) *Pool[T] {
	return &Pool[T]{
		items: make(chan T, capacity),
	}
}

// NewWith creates a Pool whose Get falls back to newFn when no idle object is
// available.
func NewWith[T Poolable](capacity int, newFn func() T) *Pool[T] {
	p := New[T](capacity)
	p.newFn = newFn
	return p
}

// Get retrieves an idle object, or a new one when the pool is empty.
func (p *Pool[T]) Get() T {
	select {
	case item := <-p.items:
		return item
	default:
		if p.newFn != nil {
			return p.newFn()
		}
		var zero T
		return zero
	}
}

// Put resets item and keeps it for reuse. If the pool is full the item is
// dropped.
func (p *Pool[T]) Put(item T) {
	var zero T
	if item == zero {
		return
	}
	item.Reset()

	select {
	case p.items <- item:
	default:
	}
}

// Idle returns the number of objects waiting in the pool.
func (p *Pool[T]) Idle() int {
	return len(p.items)
}
