package audio

import (
	"context"
	"time"
)

// Broadcaster is a minimal pub/sub for audio cues.
type Broadcaster struct {
	ch chan Cue
}

// NewBroadcaster creates a broadcaster with a buffered channel.
func NewBroadcaster(buffer int) *Broadcaster {
	return &Broadcaster{
		ch: make(chan Cue, buffer),
	}
}

// Send publishes a cue (non-blocking with drop on full buffer).
func (b *Broadcaster) Send(cue Cue) {
	select {
	case b.ch <- cue:
	default:
		// drop if listeners are slow; keep simple
	}
}

// Listen returns a channel plus a cancel function to stop listening.
func (b *Broadcaster) Listen(ctx context.Context) (<-chan Cue, context.CancelFunc) {
	listenerCtx, cancel := context.WithCancel(ctx)
	out := make(chan Cue, cap(b.ch))

	go func() {
		defer close(out)
		for {
			select {
			case <-listenerCtx.Done():
				return
			case cue, ok := <-b.ch:
				if !ok {
					return
				}
				select {
				case out <- cue:
				case <-listenerCtx.Done():
					return
				}
			}
		}
	}()

	return out, cancel
}

// SendWithTimeout publishes with timeout.
func (b *Broadcaster) SendWithTimeout(cue Cue, timeout time.Duration) bool {
	select {
	case b.ch <- cue:
		return true
	case <-time.After(timeout):
		return false
	}
}
