// Package notify turns external wake-up events into coalescing channels.
package notify

import (
	"context"
	"os"
	"os/signal"
)

// FromSignals returns a channel that receives once per burst of the given OS signals.
func FromSignals(ctx context.Context, sigs ...os.Signal) <-chan struct{} {
	raw := make(chan os.Signal, 1)
	signal.Notify(raw, sigs...)

	out := make(chan struct{}, 1)
	go func() {
		defer signal.Stop(raw)
		for {
			select {
			case <-ctx.Done():
				return
			case <-raw:
				Send(out)
			}
		}
	}()
	return out
}

// Merge fans several notification channels into one. Nil inputs are skipped and
// Merge returns nil when nothing is left to watch.
func Merge(ctx context.Context, chans ...<-chan struct{}) <-chan struct{} {
	var live []<-chan struct{}
	for _, ch := range chans {
		if ch != nil {
			live = append(live, ch)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	}

	out := make(chan struct{}, 1)
	for _, ch := range live {
		go func(ch <-chan struct{}) {
			for {
				select {
				case <-ctx.Done():
					return
				case _, ok := <-ch:
					if !ok {
						return
					}
					Send(out)
				}
			}
		}(ch)
	}
	return out
}

// Send delivers a notification without blocking; a pending one absorbs it.
func Send(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
