package eventloop

import (
	"sync"
)

// chunkSize is the number of tasks per node in the ChunkedIngress linked list.
const chunkSize = 128

// ChunkedIngress is a chunked linked-list FIFO of tasks.
//
// Thread Safety: This struct is NOT thread-safe. The Loop guards it with its
// own mutex.
type ChunkedIngress struct {
	head   *chunk
	tail   *chunk
	length int
}

var chunkPool = sync.Pool{
	New: func() any {
		return &chunk{}
	},
}

// chunk is a fixed-size node, read from readPos and written at pos.
type chunk struct {
	tasks   [chunkSize]func()
	next    *chunk
	readPos int
	pos     int
}

func newChunk() *chunk {
	c := chunkPool.Get().(*chunk)
	c.pos = 0
	c.readPos = 0
	c.next = nil
	return c
}

// returnChunk recycles an exhausted chunk, dropping any retained closures.
func returnChunk(c *chunk) {
	clear(c.tasks[:c.pos])
	c.pos = 0
	c.readPos = 0
	c.next = nil
	chunkPool.Put(c)
}

// NewChunkedIngress creates a new chunked ingress queue.
func NewChunkedIngress() *ChunkedIngress {
	return &ChunkedIngress{}
}

// Push adds a task to the tail of the queue.
func (q *ChunkedIngress) Push(task func()) {
	if q.tail == nil {
		q.tail = newChunk()
		q.head = q.tail
	}
	if q.tail.pos == len(q.tail.tasks) {
		next := newChunk()
		q.tail.next = next
		q.tail = next
	}
	q.tail.tasks[q.tail.pos] = task
	q.tail.pos++
	q.length++
}

// Pop removes and returns the task at the head of the queue, or false if
// the queue is empty.
func (q *ChunkedIngress) Pop() (func(), bool) {
	if q.length == 0 {
		return nil, false
	}

	// the head chunk always has an unread task while length > 0
	task := q.head.tasks[q.head.readPos]
	q.head.tasks[q.head.readPos] = nil
	q.head.readPos++
	q.length--

	if q.head.readPos >= q.head.pos {
		if q.head == q.tail {
			q.head.pos = 0
			q.head.readPos = 0
		} else {
			old := q.head
			q.head = old.next
			returnChunk(old)
		}
	}

	return task, true
}

// Length returns the number of queued tasks.
func (q *ChunkedIngress) Length() int {
	return q.length
}
