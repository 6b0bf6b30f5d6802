package application

import "context"

// Notifier delivers reminder alerts outside the browser (push, chat, ...).
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type NoopNotifier struct{}

func (n *NoopNotifier) Notify(_ context.Context, _ string) error {
	return nil
}
