package framework

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/golang/glog"
)

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

type namedRunnable struct {
	Runnable
	name string
}

func (r *namedRunnable) Name() string {
	return r.name
}

// NamedRun attaches a name to a Runnable for logs and errors.
func NamedRun(name string, runnable Runnable) Runnable {
	return &namedRunnable{Runnable: runnable, name: name}
}

// ErrForcedExit is returned by Wait after a second stop signal.
var ErrForcedExit = errors.New("forced exit")

// Runner runs a group of Runnables. When any of them returns, the
// others are canceled.
type Runner struct {
	ctx    context.Context
	cancel context.CancelFunc
	forced chan struct{}

	wg   sync.WaitGroup
	lock sync.Mutex
	errs AggregatedError
}

// NewRunner creates a Runner derived from ctx.
func NewRunner(ctx context.Context) *Runner {
	r := &Runner{forced: make(chan struct{})}
	r.ctx, r.cancel = context.WithCancel(ctx)
	return r
}

// Context is canceled when the group stops.
func (r *Runner) Context() context.Context {
	return r.ctx
}

// Cancel stops the group.
func (r *Runner) Cancel() {
	r.cancel()
}

// HandleSignals stops the group on CtrlC or SIGTERM. A second signal
// makes Wait return without waiting.
func (r *Runner) HandleSignals() *Runner {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		glog.Info("stop requested")
		r.cancel()
		<-sigCh
		glog.Error("stop requested again, exiting")
		close(r.forced)
	}()
	return r
}

// Go starts Runnables in background goroutines.
func (r *Runner) Go(runnables ...Runnable) *Runner {
	for _, runnable := range runnables {
		r.wg.Add(1)
		go r.run(runnable)
	}
	return r
}

func (r *Runner) run(runnable Runnable) {
	defer r.wg.Done()
	defer r.cancel()
	named, _ := runnable.(Named)
	if named != nil {
		glog.V(4).Infof("%s started", named.Name())
	}
	err := runnable.Run(r.ctx)
	if named != nil {
		glog.V(4).Infof("%s stopped: %v", named.Name(), err)
	}
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	if named != nil {
		err = fmt.Errorf("%s: %w", named.Name(), err)
	}
	r.lock.Lock()
	r.errs.Add(err)
	r.lock.Unlock()
}

// Wait waits for all Runnables and returns their errors. Cancellation
// is not an error.
func (r *Runner) Wait() error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-r.forced:
		return ErrForcedExit
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.errs.Aggregate()
}

// RunWithContextCloser runs a blocking fn which doesn't take a context.
// closer is closed once, when ctx is canceled or after fn returns.
// context.Canceled is returned if ctx is canceled first.
func RunWithContextCloser(ctx context.Context, closer io.Closer, fn func() error) error {
	var once sync.Once
	closeOnce := func() { once.Do(func() { closer.Close() }) }
	errCh := make(chan error, 1)
	go func() { errCh <- fn() }()
	select {
	case err := <-errCh:
		closeOnce()
		return err
	case <-ctx.Done():
		closeOnce()
		<-errCh
		return ctx.Err()
	}
}
