package circular

/*
 * Fixed-capacity ring buffer. Once full, every Enqueue overwrites the oldest
 * element.
 *
 * Not safe for concurrent use. Each buffer is owned by exactly one goroutine
 * (the audio context); readers on other goroutines get copies via snapshots.
 */
type Buffer[T any] struct {
	values  []T
	pointer int
	count   int
}

/*
 * Creates a circular buffer of a certain size. Sizes below one are raised to
 * one.
 */
func CreateBuffer[T any](size int) *Buffer[T] {
	if size < 1 {
		size = 1
	}

	return &Buffer[T]{
		values: make([]T, size),
	}
}

/*
 * Add elements to the circular buffer, potentially overwriting the oldest
 * elements.
 *
 * Pointer points to the next slot to be written, which is also the oldest
 * element once the buffer is full.
 */
func (b *Buffer[T]) Enqueue(elems ...T) {
	n := len(b.values)

	/*
	 * If there are more elements than fit into the buffer, only the tail
	 * survives.
	 */
	if len(elems) >= n {
		copy(b.values, elems[len(elems)-n:])
		b.pointer = 0
		b.count = n
		return
	}

	for _, e := range elems {
		b.values[b.pointer] = e
		b.pointer = (b.pointer + 1) % n
	}
	b.count += len(elems)
	if b.count > n {
		b.count = n
	}
}

/*
 * Returns the capacity of the buffer.
 */
func (b *Buffer[T]) Length() int {
	return len(b.values)
}

/*
 * Returns the number of elements currently held.
 */
func (b *Buffer[T]) Count() int {
	return b.count
}

func (b *Buffer[T]) Full() bool {
	return b.count == len(b.values)
}

/*
 * Appends the held elements to buf, oldest first, and returns the result.
 * Passing a reused buf[:0] avoids allocating on the audio path.
 */
func (b *Buffer[T]) Retrieve(buf []T) []T {
	n := len(b.values)
	start := (b.pointer - b.count + n) % n
	for i := 0; i < b.count; i++ {
		buf = append(buf, b.values[(start+i)%n])
	}
	return buf
}

/*
 * Returns the i-th oldest element. Returns nil when i is out of range.
 */
func (b *Buffer[T]) At(i int) *T {
	if i < 0 || i >= b.count {
		return nil
	}
	n := len(b.values)
	start := (b.pointer - b.count + n) % n
	return &b.values[(start+i)%n]
}

/*
 * Returns the most recently written element, or nil when empty.
 */
func (b *Buffer[T]) Last() *T {
	return b.At(b.count - 1)
}

/*
 * Forgets all elements. Capacity is retained.
 */
func (b *Buffer[T]) Reset() {
	var zero T
	for i := range b.values {
		b.values[i] = zero
	}
	b.pointer = 0
	b.count = 0
}
