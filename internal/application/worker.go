package application

import "context"

// Worker is a background poller. Start blocks until ctx is canceled.
type Worker interface {
	Start(ctx context.Context)
}
