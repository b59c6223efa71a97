package framework

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultInterval is the default polling interval of a Loop.
const DefaultInterval = 10 * time.Millisecond

// Loop is the cooperative host loop. Every iteration polls all
// registered Pollers in order from a single goroutine.
type Loop struct {
	Interval time.Duration
	// FailFast stops the loop on the first poll error instead of
	// logging it.
	FailFast bool

	pollers []Poller
	runners []Runnable
	lock    sync.Mutex

	wakeUpCh chan struct{}
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{Interval: DefaultInterval}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddPoller registers pollers.
func (l *Loop) AddPoller(pollers ...Poller) *Loop {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.pollers = append(l.pollers, pollers...)
	return l
}

// AddRunnable adds background Runnables started with the loop.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.runners = append(l.runners, runnables...)
	return l
}

// TriggerNext schedules the next iteration immediately.
func (l *Loop) TriggerNext() {
	l.lock.Lock()
	if l.wakeUpCh == nil {
		l.wakeUpCh = make(chan struct{}, 1)
	}
	ch := l.wakeUpCh
	l.lock.Unlock()
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Run implements Runnable. Background Runnables share the loop's
// lifetime: when one of them stops, the loop stops too.
func (l *Loop) Run(ctx context.Context) error {
	l.lock.Lock()
	if l.wakeUpCh == nil {
		l.wakeUpCh = make(chan struct{}, 1)
	}
	wakeUpCh := l.wakeUpCh
	runnables := append([]Runnable(nil), l.runners...)
	l.lock.Unlock()

	group := NewRunner(ctx).Go(runnables...)
	ctx = group.Context()

	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var errs AggregatedError
	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
			continue
		case <-ticker.C:
		case <-wakeUpCh:
		}
		if err := l.runIteration(ctx); err != nil {
			errs.Add(err)
			break
		}
	}
	group.Cancel()
	errs.Add(group.Wait())
	return errs.Aggregate()
}

// RunOrFail is intended to be used in main to simply run the loop.
func (l *Loop) RunOrFail(ctx context.Context) {
	if err := l.Run(ctx); err != nil {
		glog.Exit(err)
	}
}

func (l *Loop) runIteration(ctx context.Context) error {
	l.lock.Lock()
	pollers := l.pollers
	l.lock.Unlock()
	for _, p := range pollers {
		if err := p.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if l.FailFast {
				return err
			}
			glog.Errorf("poll error: %v", err)
		}
	}
	return nil
}
