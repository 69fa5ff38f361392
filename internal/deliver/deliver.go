package deliver

import (
	"context"
	"sync"
	"time"
)

// Artifact is the produced ebook handed to every destination.
type Artifact struct {
	Data     []byte
	Filename string
}

// Transport sends an artifact to one kind of destination. Any concrete
// transport honoring this capability is substitutable.
type Transport interface {
	Send(ctx context.Context, artifact Artifact) error
}

// Destination pairs a configured destination ID with its transport.
type Destination struct {
	ID        string
	Transport Transport
}

// Outcome is the result of one delivery attempt. Exactly one per
// destination; failures carry error detail and are not retried here.
type Outcome struct {
	DestinationID string
	OK            bool
	Err           error
}

// Dispatch attempts delivery to every destination concurrently. One
// destination's failure never blocks another; each attempt is bounded
// by the per-destination timeout.
func Dispatch(ctx context.Context, dests []Destination, artifact Artifact, timeout time.Duration) []Outcome {
	outcomes := make([]Outcome, len(dests))

	var wg sync.WaitGroup
	for i, dest := range dests {
		wg.Add(1)
		go func(i int, dest Destination) {
			defer wg.Done()
			outcomes[i] = deliverOne(ctx, dest, artifact, timeout)
		}(i, dest)
	}
	wg.Wait()

	return outcomes
}

func deliverOne(ctx context.Context, dest Destination, artifact Artifact, timeout time.Duration) Outcome {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// Run the send in its own goroutine so a transport that cannot
	// observe the context (net/smtp) still respects the timeout.
	errCh := make(chan error, 1)
	go func() {
		errCh <- dest.Transport.Send(ctx, artifact)
	}()

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case err = <-errCh:
	}

	return Outcome{
		DestinationID: dest.ID,
		OK:            err == nil,
		Err:           err,
	}
}
