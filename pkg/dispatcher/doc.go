/*
Package dispatcher implements the dispatch core of a hybrid
cooperative/blocking task scheduler.

# Overview

The core owns a fixed set of coroutine queues for lightweight
cooperative tasks and a fixed set of IO queues for blocking work, plus a
single shared overflow queue for IO work not bound to a specific worker.
It makes the cross-cutting routing and load-balancing decisions:

  - Post routes cooperative work; a task submitted with AnyQueue is
    placed on the shortest coroutine queue (earliest index wins ties,
    scan short-circuits at the first empty queue) and its queue id is
    rewritten to the chosen index.
  - PostAsyncIo routes blocking work; AnyQueue IO work is pooled on the
    shared queue and every idle IO worker is woken to race for it. The
    task's queue id is left untouched on this path.
  - Size, Empty and Stats aggregate over a queue family or the whole
    set; ResetStats clears every queue's own counters.
  - Terminate is a one-shot, idempotent shutdown of all queues, guarded
    by an atomic flag so concurrent calls run the sequence exactly once.

# Usage

	core, err := dispatcher.NewDispatcherCore(&dispatcher.Config{
		NumCoroutineThreads: 4,
		NumIoThreads:        2,
	})
	if err != nil {
		// configuration error, e.g. pinning beyond available cores
	}
	if err := core.Start(context.Background()); err != nil {
		// already started or terminated
	}
	defer core.Terminate()

	err = core.Post(types.NewTask(func(ctx context.Context) error {
		return doWork(ctx)
	}))

Aggregate queries take a queue family and a queue id:

	pending, err := core.Size(types.QueueTypeAll, types.AllQueues())
	stats, err := core.Stats(types.QueueTypeCoro, types.QueueAt(0))

# Concurrency

All methods execute on the caller's goroutine and none of them block;
waiting happens only inside queue workers. Aggregate snapshots read each
queue independently, so a concurrent producer can make an aggregate
slightly stale. Only enqueue order within a single concrete queue is
preserved.
*/
package dispatcher
