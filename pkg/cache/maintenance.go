package cache

import (
	"sync"
	"time"
)

// scheduler drives the periodic maintenance pass. It runs independently of
// caller-facing operations; each pass takes the same per-tier locks normal
// operations do, so maintenance competes for but never starves foreground
// access.
type scheduler struct {
	interval time.Duration
	task     func()
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

func newScheduler(interval time.Duration, task func()) *scheduler {
	return &scheduler{
		interval: interval,
		task:     task,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (s *scheduler) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.task()
		}
	}
}

// stop halts further scheduling and waits for any in-flight pass to finish,
// so index writes are never cut off mid-flush.
func (s *scheduler) stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	<-s.doneCh
}
