package usecase

import (
	"context"
	"sync"
	"time"

	"internify-backend/internal/domain"
	"internify-backend/pkg/clock"
)

// FormState is what a sign-in or sign-up form currently shows.
type FormState struct {
	Submitting        bool
	Message           string
	RetryAfterSeconds int
	Result            *domain.FlowResult
}

// Form mediates between one rendered form and the orchestrator. It keeps the
// submit path disabled while a request is in flight, clears rate-limit
// messages on its own once the countdown ends, and ignores every late write
// after Close.
type Form struct {
	flows Flows
	clock clock.Clock

	mu         sync.Mutex
	state      FormState
	closed     bool
	generation int
	clearTimer clock.Timer
}

func NewForm(flows Flows, clk clock.Clock) *Form {
	if clk == nil {
		clk = clock.New()
	}
	return &Form{flows: flows, clock: clk}
}

func (f *Form) SubmitSignIn(ctx context.Context, req domain.SignInRequest) (domain.FlowResult, error) {
	return f.submit(func() domain.FlowResult { return f.flows.SignIn(ctx, req) })
}

func (f *Form) SubmitSignUp(ctx context.Context, req domain.SignUpRequest) (domain.FlowResult, error) {
	return f.submit(func() domain.FlowResult { return f.flows.SignUp(ctx, req) })
}

func (f *Form) SubmitVerification(ctx context.Context, req domain.VerifySignUpRequest) (domain.FlowResult, error) {
	return f.submit(func() domain.FlowResult { return f.flows.VerifySignUp(ctx, req) })
}

// State returns a snapshot of the form.
func (f *Form) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Close tears the form down: pending timers stop and later results are
// dropped instead of written.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.stopTimerLocked()
}

func (f *Form) submit(run func() domain.FlowResult) (domain.FlowResult, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return domain.FlowResult{}, domain.ErrFormClosed
	}
	if f.state.Submitting {
		f.mu.Unlock()
		return domain.FlowResult{}, domain.ErrSubmissionInFlight
	}
	f.stopTimerLocked()
	f.generation++
	f.state = FormState{Submitting: true}
	f.mu.Unlock()

	res := run()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return res, nil
	}
	f.state = FormState{
		Message:           res.Message,
		RetryAfterSeconds: res.RetryAfterSeconds,
		Result:            &res,
	}
	if res.Kind == domain.FailureRateLimited {
		f.scheduleClearLocked(time.Duration(domain.CountdownSeconds(float64(res.RetryAfterSeconds))) * time.Second)
	}
	return res, nil
}

func (f *Form) scheduleClearLocked(after time.Duration) {
	gen := f.generation
	f.clearTimer = f.clock.AfterFunc(after, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		// A newer submission or a teardown owns the state now.
		if f.closed || f.generation != gen {
			return
		}
		f.state.Message = ""
		f.state.RetryAfterSeconds = 0
		f.clearTimer = nil
	})
}

func (f *Form) stopTimerLocked() {
	if f.clearTimer != nil {
		f.clearTimer.Stop()
		f.clearTimer = nil
	}
}
