package framework

import (
	"context"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// Poller performs one non-blocking step of work. It must return
// promptly when there's nothing to do.
type Poller interface {
	Poll(context.Context) error
}

// PollFunc is the func form of Poller.
type PollFunc func(context.Context) error

// Poll implements Poller.
func (f PollFunc) Poll(ctx context.Context) error {
	return f(ctx)
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}
