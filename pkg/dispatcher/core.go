package dispatcher

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hybridsched/dispatch/pkg/queue"
	"github.com/hybridsched/dispatch/pkg/types"
)

// terminateWaitTimeout bounds how long Terminate waits for workers to
// drain out after their queues are stopped
const terminateWaitTimeout = 5 * time.Second

// DispatcherCore owns a fixed set of coroutine queues, a fixed set of
// IO queues and the single shared overflow queue. It routes incoming
// tasks to the right queue, aggregates per-queue load statistics and
// implements a one-shot, idempotent shutdown across all queues.
//
// DispatcherCore has no thread of its own: all methods run on the
// caller's goroutine and none of them block beyond queue enqueue cost.
type DispatcherCore struct {
	config *Config

	coroQueues    []*queue.CoroQueue
	ioQueues      []*queue.IoQueue
	sharedIoQueue *queue.SharedIoQueue

	started    atomic.Bool
	terminated atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	clock types.Clock
}

// NewDispatcherCore creates a dispatcher core from the given
// configuration. A NumCoroutineThreads of -1 resolves to the number of
// available hardware execution units. When pinning is requested and the
// coroutine queue count exceeds the available units, construction fails
// with a ConfigError and no queue is left partially pinned.
func NewDispatcherCore(config *Config) (*DispatcherCore, error) {
	if config == nil {
		config = DefaultConfig()
	}

	numCoro, err := config.validate()
	if err != nil {
		return nil, err
	}

	clock := config.Clock
	if clock == nil {
		clock = types.NewRealClock()
	}

	coroQueues := make([]*queue.CoroQueue, numCoro)
	for i := range coroQueues {
		coroQueues[i] = queue.NewCoroQueue(i, clock, config.ErrorHandler)
	}

	sharedIoQueue := queue.NewSharedIoQueue()
	ioQueues := make([]*queue.IoQueue, config.NumIoThreads)
	for i := range ioQueues {
		ioQueues[i] = queue.NewIoQueue(i, sharedIoQueue, clock, config.ErrorHandler)
	}

	d := &DispatcherCore{
		config:        config,
		coroQueues:    coroQueues,
		ioQueues:      ioQueues,
		sharedIoQueue: sharedIoQueue,
		clock:         clock,
	}

	if config.PinCoroutineThreadsToCores {
		for i, q := range coroQueues {
			if err := q.PinToCore(i); err != nil {
				return nil, types.NewConfigError("cannot pin queue %d: %v", i, err)
			}
		}
	}

	return d, nil
}

// Start launches one worker goroutine per coroutine queue and per IO
// queue. Workers run until Terminate is called or ctx is cancelled.
func (d *DispatcherCore) Start(ctx context.Context) error {
	if d.terminated.Load() {
		return types.ErrTerminated
	}
	if !d.started.CompareAndSwap(false, true) {
		return types.ErrAlreadyStarted
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	for _, q := range d.coroQueues {
		d.wg.Add(1)
		go func(q *queue.CoroQueue) {
			defer d.wg.Done()
			q.Run(d.ctx)
		}(q)
	}
	for _, q := range d.ioQueues {
		d.wg.Add(1)
		go func(q *queue.IoQueue) {
			defer d.wg.Done()
			q.Run(d.ctx)
		}(q)
	}

	return nil
}

// Terminate shuts down every queue exactly once: coroutine queues
// first, then IO queues, then the shared queue. Safe to call any number
// of times from any goroutine; only the first call runs the sequence.
func (d *DispatcherCore) Terminate() {
	if !d.terminated.CompareAndSwap(false, true) {
		return
	}

	for _, q := range d.coroQueues {
		q.Terminate()
	}
	for _, q := range d.ioQueues {
		q.Terminate()
	}
	d.sharedIoQueue.Terminate()

	if d.cancel != nil {
		d.cancel()
	}

	// bounded wait so Terminate stays safe on a shutdown path even if a
	// task refuses to finish
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-d.clock.After(terminateWaitTimeout):
	}
}

// IsTerminated reports whether Terminate has run
func (d *DispatcherCore) IsTerminated() bool {
	return d.terminated.Load()
}

// NumCoroutineQueues returns the number of coroutine queues
func (d *DispatcherCore) NumCoroutineQueues() int {
	return len(d.coroQueues)
}

// NumIoQueues returns the number of IO queues
func (d *DispatcherCore) NumIoQueues() int {
	return len(d.ioQueues)
}

// Post submits cooperative work. A nil task is a deliberate no-op. When
// the task requests AnyQueue the dispatcher scans the coroutine queues
// once for the shortest one — earliest index wins ties, and the scan
// stops at the first empty queue — then rewrites the task's queue id to
// the winning index before enqueueing. A concrete queue id outside
// [0, NumCoroutineQueues) fails with a QueueRangeError and nothing is
// enqueued.
func (d *DispatcherCore) Post(task types.Task) error {
	if task == nil {
		return nil
	}

	id := task.QueueID()
	if id.IsAny() {
		index := 0
		numTasks := math.MaxInt
		for i, q := range d.coroQueues {
			if size := q.Size(); size < numTasks {
				numTasks = size
				index = i
			}
			if numTasks == 0 {
				break // reached an empty queue
			}
		}
		task.SetQueueID(types.QueueAt(index))
		return d.coroQueues[index].Enqueue(task)
	}

	index, ok := id.Index()
	if !ok || index >= len(d.coroQueues) {
		return types.NewQueueRangeError(types.QueueTypeCoro, id, len(d.coroQueues))
	}
	return d.coroQueues[index].Enqueue(task)
}

// PostAsyncIo submits blocking-IO work. A nil task is a deliberate
// no-op. When the task requests AnyQueue it is pooled on the shared
// queue — the queue id is deliberately left as AnyQueue — and every IO
// queue's empty condition is cleared so idle workers wake and race to
// drain the pool. A concrete queue id goes straight to that queue;
// out-of-range fails with a QueueRangeError.
func (d *DispatcherCore) PostAsyncIo(task types.Task) error {
	if task == nil {
		return nil
	}

	id := task.QueueID()
	if id.IsAny() {
		if err := d.sharedIoQueue.Enqueue(task); err != nil {
			return err
		}
		for _, q := range d.ioQueues {
			q.SignalEmptyCondition(false)
		}
		return nil
	}

	index, ok := id.Index()
	if !ok || index >= len(d.ioQueues) {
		return types.NewQueueRangeError(types.QueueTypeIO, id, len(d.ioQueues))
	}
	return d.ioQueues[index].Enqueue(task)
}

// Size returns the number of pending tasks for the selected queues.
// QueueTypeAll requires AllQueues as the id and returns the sum over
// both families; any other id with QueueTypeAll fails with
// ErrQueueIDNotAllowed.
func (d *DispatcherCore) Size(qt types.QueueType, id types.QueueID) (int, error) {
	switch qt {
	case types.QueueTypeAll:
		if !id.IsAll() {
			return 0, types.ErrQueueIDNotAllowed
		}
		coro, err := d.CoroSize(types.AllQueues())
		if err != nil {
			return 0, err
		}
		io, err := d.IoSize(types.AllQueues())
		if err != nil {
			return 0, err
		}
		return coro + io, nil
	case types.QueueTypeCoro:
		return d.CoroSize(id)
	default:
		return d.IoSize(id)
	}
}

// Empty reports whether the selected queues hold no pending tasks.
// QueueTypeAll requires AllQueues as the id and is true only when both
// families are empty.
func (d *DispatcherCore) Empty(qt types.QueueType, id types.QueueID) (bool, error) {
	switch qt {
	case types.QueueTypeAll:
		if !id.IsAll() {
			return false, types.ErrQueueIDNotAllowed
		}
		coro, err := d.CoroEmpty(types.AllQueues())
		if err != nil {
			return false, err
		}
		io, err := d.IoEmpty(types.AllQueues())
		if err != nil {
			return false, err
		}
		return coro && io, nil
	case types.QueueTypeCoro:
		return d.CoroEmpty(id)
	default:
		return d.IoEmpty(id)
	}
}

// Stats returns a merged snapshot of the selected queues' counters,
// mirroring the Size contract with statistics-merge as the aggregation
// operator
func (d *DispatcherCore) Stats(qt types.QueueType, id types.QueueID) (queue.Statistics, error) {
	switch qt {
	case types.QueueTypeAll:
		if !id.IsAll() {
			return queue.Statistics{}, types.ErrQueueIDNotAllowed
		}
		coro, err := d.CoroStats(types.AllQueues())
		if err != nil {
			return queue.Statistics{}, err
		}
		io, err := d.IoStats(types.AllQueues())
		if err != nil {
			return queue.Statistics{}, err
		}
		return coro.Add(io), nil
	case types.QueueTypeCoro:
		return d.CoroStats(id)
	default:
		return d.IoStats(id)
	}
}

// CoroSize returns the pending-task count for one coroutine queue, or
// the sum over all of them when id is AllQueues
func (d *DispatcherCore) CoroSize(id types.QueueID) (int, error) {
	if id.IsAll() {
		size := 0
		for _, q := range d.coroQueues {
			size += q.Size()
		}
		return size, nil
	}

	index, ok := id.Index()
	if !ok || index >= len(d.coroQueues) {
		return 0, types.NewQueueRangeError(types.QueueTypeCoro, id, len(d.coroQueues))
	}
	return d.coroQueues[index].Size(), nil
}

// CoroEmpty reports emptiness for one coroutine queue, or for every
// coroutine queue when id is AllQueues
func (d *DispatcherCore) CoroEmpty(id types.QueueID) (bool, error) {
	if id.IsAll() {
		for _, q := range d.coroQueues {
			if !q.Empty() {
				return false, nil
			}
		}
		return true, nil
	}

	index, ok := id.Index()
	if !ok || index >= len(d.coroQueues) {
		return false, types.NewQueueRangeError(types.QueueTypeCoro, id, len(d.coroQueues))
	}
	return d.coroQueues[index].Empty(), nil
}

// CoroStats returns the counters of one coroutine queue, or the merge
// over all of them when id is AllQueues
func (d *DispatcherCore) CoroStats(id types.QueueID) (queue.Statistics, error) {
	if id.IsAll() {
		var stats queue.Statistics
		for _, q := range d.coroQueues {
			stats.Merge(q.Stats())
		}
		return stats, nil
	}

	index, ok := id.Index()
	if !ok || index >= len(d.coroQueues) {
		return queue.Statistics{}, types.NewQueueRangeError(types.QueueTypeCoro, id, len(d.coroQueues))
	}
	return d.coroQueues[index].Stats(), nil
}

// IoSize returns the pending-task count for one IO queue; AllQueues
// sums every IO queue plus the shared queue, AnyQueue reads the shared
// queue alone
func (d *DispatcherCore) IoSize(id types.QueueID) (int, error) {
	if id.IsAll() {
		size := 0
		for _, q := range d.ioQueues {
			size += q.Size()
		}
		return size + d.sharedIoQueue.Size(), nil
	}
	if id.IsAny() {
		return d.sharedIoQueue.Size(), nil
	}

	index, ok := id.Index()
	if !ok || index >= len(d.ioQueues) {
		return 0, types.NewQueueRangeError(types.QueueTypeIO, id, len(d.ioQueues))
	}
	return d.ioQueues[index].Size(), nil
}

// IoEmpty reports emptiness for one IO queue; AllQueues covers every IO
// queue plus the shared queue, AnyQueue reads the shared queue alone
func (d *DispatcherCore) IoEmpty(id types.QueueID) (bool, error) {
	if id.IsAll() {
		for _, q := range d.ioQueues {
			if !q.Empty() {
				return false, nil
			}
		}
		return d.sharedIoQueue.Empty(), nil
	}
	if id.IsAny() {
		return d.sharedIoQueue.Empty(), nil
	}

	index, ok := id.Index()
	if !ok || index >= len(d.ioQueues) {
		return false, types.NewQueueRangeError(types.QueueTypeIO, id, len(d.ioQueues))
	}
	return d.ioQueues[index].Empty(), nil
}

// IoStats returns the counters of one IO queue; AllQueues merges every
// IO queue plus the shared queue, AnyQueue reads the shared queue alone
func (d *DispatcherCore) IoStats(id types.QueueID) (queue.Statistics, error) {
	if id.IsAll() {
		var stats queue.Statistics
		for _, q := range d.ioQueues {
			stats.Merge(q.Stats())
		}
		stats.Merge(d.sharedIoQueue.Stats())
		return stats, nil
	}
	if id.IsAny() {
		return d.sharedIoQueue.Stats(), nil
	}

	index, ok := id.Index()
	if !ok || index >= len(d.ioQueues) {
		return queue.Statistics{}, types.NewQueueRangeError(types.QueueTypeIO, id, len(d.ioQueues))
	}
	return d.ioQueues[index].Stats(), nil
}

// ResetStats zeroes every queue's own counters independently: each
// coroutine queue, the shared IO queue and each IO queue
func (d *DispatcherCore) ResetStats() {
	for _, q := range d.coroQueues {
		q.ResetStats()
	}
	d.sharedIoQueue.ResetStats()
	for _, q := range d.ioQueues {
		q.ResetStats()
	}
}
