// Package scheduler runs parse and publish work off the request dispatch
// path on a fixed set of workers.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("blase.scheduler")

type Task struct {
	Name    string
	Execute func(ctx context.Context) error
}

type Scheduler struct {
	taskQueue chan Task
	workers   int

	ctx    context.Context
	cancel context.CancelFunc

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a Scheduler with the given queue size and worker count.
func New(queueSize int, workers int) *Scheduler {
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		taskQueue: make(chan Task, queueSize),
		workers:   workers,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Run starts the workers.
func (s *Scheduler) Run() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)

		go func() {
			defer s.wg.Done()

			for {
				select {
				case task := <-s.taskQueue:
					s.execute(task)
				case <-s.ctx.Done():
					return
				}
			}
		}()
	}
}

func (s *Scheduler) execute(task Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("task %s panicked: %v", task.Name, r)
		}
	}()

	log.Debugf("executing %s", task.Name)

	if err := task.Execute(s.ctx); err != nil {
		log.Warningf("task %s: %s", task.Name, err)
	}
}

// Schedule queues task, waiting for room unless the scheduler stopped.
func (s *Scheduler) Schedule(task Task) bool {
	select {
	case <-s.ctx.Done():
		return false
	default:
	}

	select {
	case s.taskQueue <- task:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// TrySchedule queues task only if the queue has room.
func (s *Scheduler) TrySchedule(task Task) bool {
	select {
	case <-s.ctx.Done():
		return false
	default:
	}

	select {
	case s.taskQueue <- task:
		return true
	default:
		log.Debugf("skipped scheduling %s, queue is full", task.Name)
		return false
	}
}

// Every queues task at each tick of interval until the scheduler stops.
// Ticks that find the queue full are skipped.
func (s *Scheduler) Every(interval time.Duration, task Task) {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.TrySchedule(task)
			case <-s.ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels running tasks and waits for the workers to exit. Queued
// tasks are discarded.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		log.Info("stopping scheduler")
		s.cancel()
		s.wg.Wait()

		if n := len(s.taskQueue); n > 0 {
			log.Debugf("discarded %d queued tasks", n)
		}
	})
}
