package application

import "context"

// AudioSource yields recorded utterances for the server-side voice loop.
type AudioSource interface {
	Start(ctx context.Context) error
	Stop() error
	NextCommand(ctx context.Context) ([]byte, error)
	Name() string
}
