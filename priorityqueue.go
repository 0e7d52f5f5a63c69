package h2

import "container/heap"

// queuedFrame is one entry in the writer's outbound priority queue: a
// frame plus the destination FrameHeader fields already resolved by the
// caller (stream id, flags) so the writer only needs to Serialize+write.
type queuedFrame struct {
	frame    Frame
	header   *FrameHeader
	priority uint8
	seq      uint64
	index    int
	dead     bool
}

// priorityHeap backs PriorityFrameQueue. Lower priority value sorts
// first (weight is RFC7540's "more is more important", so the queue
// negates it on push); ties break on arrival order.
type priorityHeap []*queuedFrame

func (h priorityHeap) Len() int { return len(h) }

func (h priorityHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h priorityHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *priorityHeap) Push(x interface{}) {
	qf := x.(*queuedFrame)
	qf.index = len(*h)
	*h = append(*h, qf)
}

func (h *priorityHeap) Pop() interface{} {
	old := *h
	n := len(old)
	qf := old[n-1]
	old[n-1] = nil
	qf.index = -1
	*h = old[:n-1]
	return qf
}

// PriorityFrameQueue is the connection writer's outbound queue: a
// min-heap ordered by (priority, arrival-counter) per SPEC_FULL.md 4.5,
// generalizing the teacher's sorted-slice binary-search Streams
// collection (streams.go) to true heap complexity for the writer hot
// path. Frames may be cancelled after enqueue (e.g. a stream reset
// before its DATA is written); Cancel tombstones them instead of
// scanning the heap.
type PriorityFrameQueue struct {
	h       priorityHeap
	seq     uint64
	entries map[Frame]*queuedFrame
}

// NewPriorityFrameQueue returns an empty queue.
func NewPriorityFrameQueue() *PriorityFrameQueue {
	return &PriorityFrameQueue{
		entries: make(map[Frame]*queuedFrame),
	}
}

// Push enqueues frame for writing at the given weight (255 = highest
// RFC7540 weight, 1 = lowest; PRIORITY-less frames should pass 16, the
// RFC7540 default weight) paired with the FrameHeader the writer will
// serialize it into.
func (q *PriorityFrameQueue) Push(frame Frame, header *FrameHeader, weight uint8) {
	qf := &queuedFrame{
		frame:    frame,
		header:   header,
		priority: 255 - weight,
		seq:      q.seq,
	}
	q.seq++
	q.entries[frame] = qf
	heap.Push(&q.h, qf)
}

// PushPop enqueues frame and immediately returns the highest-priority
// entry in the queue (which may or may not be the one just pushed),
// letting newly arriving high-priority frames preempt frames already
// waiting without an unbounded scan.
func (q *PriorityFrameQueue) PushPop(frame Frame, header *FrameHeader, weight uint8) (Frame, *FrameHeader) {
	q.Push(frame, header, weight)
	return q.Pop()
}

// Pop removes and returns the highest-priority frame, skipping any
// tombstoned entries left behind by Cancel. Returns (nil, nil) if the
// queue is empty.
func (q *PriorityFrameQueue) Pop() (Frame, *FrameHeader) {
	for q.h.Len() > 0 {
		qf := heap.Pop(&q.h).(*queuedFrame)
		delete(q.entries, qf.frame)
		if qf.dead {
			continue
		}
		return qf.frame, qf.header
	}
	return nil, nil
}

// Cancel tombstones a previously pushed frame so Pop skips it without a
// linear scan; used when a stream is reset before its queued frames are
// written.
func (q *PriorityFrameQueue) Cancel(frame Frame) {
	if qf, ok := q.entries[frame]; ok {
		qf.dead = true
		delete(q.entries, frame)
	}
}

// Len reports the number of live (non-tombstoned) entries.
func (q *PriorityFrameQueue) Len() int { return len(q.entries) }
