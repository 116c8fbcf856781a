// Package clock adapts clockwork to the context-aware sleeps the sign-in and
// sign-up orchestration needs.
package clock

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the time source used by the sign-in/sign-up orchestration.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
	// AfterFunc runs f in its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	Stop() bool
}

type source struct {
	clk clockwork.Clock
}

// New returns the wall clock.
func New() Clock { return Wrap(clockwork.NewRealClock()) }

// Wrap turns any clockwork clock into a Clock.
func Wrap(c clockwork.Clock) Clock { return source{clk: c} }

func (s source) Now() time.Time { return s.clk.Now() }

func (s source) Sleep(ctx context.Context, d time.Duration) error {
	t := s.clk.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Chan():
		return nil
	}
}

func (s source) AfterFunc(d time.Duration, f func()) Timer {
	return s.clk.AfterFunc(d, f)
}
