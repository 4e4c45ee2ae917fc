package notify

import (
	"context"
	"errors"
	"fmt"
)

// Notifier delivers a message to a destination address.
type Notifier interface {
	Deliver(ctx context.Context, to, subject, body string) error
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, to, subject, body string) error

// Deliver implements Notifier.
func (f Func) Deliver(ctx context.Context, to, subject, body string) error {
	return f(ctx, to, subject, body)
}

// Discard drops every message.
var Discard Notifier = Func(func(context.Context, string, string, string) error { return nil })

// ErrNoNotifiers is returned by an empty Chain.
var ErrNoNotifiers = errors.New("notify: no notifiers configured")

// Chain tries each notifier in order and stops at the first success. When
// every notifier fails the joined errors are returned.
func Chain(notifiers ...Notifier) Notifier {
	return chain(notifiers)
}

type chain []Notifier

func (c chain) Deliver(ctx context.Context, to, subject, body string) error {
	if len(c) == 0 {
		return ErrNoNotifiers
	}

	errs := make([]error, 0, len(c))
	for i, n := range c {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		err := n.Deliver(ctx, to, subject, body)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("notifier %d: %w", i, err))
	}
	return errors.Join(errs...)
}
