// Package dispatch runs one logical exchange call: sign, send, check the
// server-reported weight budget, back off when it is short, and decode.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"nakula/internal/ratelimit"
	"nakula/internal/transport"
	"nakula/pkg/core"
)

// maxLoggedBody caps how much of a failing response body goes into the log.
const maxLoggedBody = 2048

// Dispatcher executes requests for one exchange. It keeps no mutable state
// between calls and is safe for concurrent use.
type Dispatcher struct {
	exchange   string
	protocol   core.Protocol
	transport  transport.Doer
	budget     ratelimit.WeightBudget
	pacer      *ratelimit.RateLimiter
	maxRetries int
	logger     zerolog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithBudget enables the server weight budget loop.
func WithBudget(budget ratelimit.WeightBudget) Option {
	return func(d *Dispatcher) {
		d.budget = budget
	}
}

// WithPacer charges every send against a local limiter before it leaves.
func WithPacer(pacer *ratelimit.RateLimiter) Option {
	return func(d *Dispatcher) {
		d.pacer = pacer
	}
}

// WithMaxRetries bounds the number of budget backoffs per call; 0 means unbounded.
func WithMaxRetries(n int) Option {
	return func(d *Dispatcher) {
		d.maxRetries = n
	}
}

// WithLogger sets the logger for the dispatcher.
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// New creates a Dispatcher sending protocol requests through t.
func New(protocol core.Protocol, t transport.Doer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		exchange:  protocol.Name(),
		protocol:  protocol,
		transport: t,
		logger:    zerolog.Nop(),
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Do builds the request for op and executes it.
func (d *Dispatcher) Do(ctx context.Context, op core.Operation, params core.Params) (any, error) {
	req, err := d.protocol.BuildRequest(op, params)
	if err != nil {
		return nil, core.AttachExchange(err, d.exchange)
	}
	return d.Execute(ctx, op, req)
}

// Execute sends req until the weight budget admits the response, then decodes it.
// Every attempt is paced, then signed afresh and sent at once, so time-based
// signatures are never stale.
// Only a short budget causes a repeat; every other failure is returned at once.
func (d *Dispatcher) Execute(ctx context.Context, op core.Operation, req *core.Request) (any, error) {
	requestID := uuid.NewString()
	logger := d.logger.With().
		Str("exchange", d.exchange).
		Str("op", op.String()).
		Str("request_id", requestID).
		Logger()

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Pace before signing: a signature must not sit in the limiter queue.
		if d.pacer != nil {
			if err := d.pacer.Wait(ctx, req.Weight); err != nil {
				return nil, err
			}
		}

		outgoing := req.Clone()
		if outgoing.RequireAuth {
			if err := d.protocol.SignRequest(outgoing); err != nil {
				return nil, core.AttachExchange(err, d.exchange)
			}
		}

		resp, err := d.transport.Do(ctx, outgoing)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Error().Err(err).Str("path", outgoing.Path).Msg("transport failure")
			return nil, core.NewTransportError(d.exchange, err)
		}

		decision := d.budget.AssessResponse(resp, outgoing.Weight)
		if decision.Throttled() {
			if d.maxRetries > 0 && attempt >= d.maxRetries {
				return nil, core.NewExchangeError(d.exchange, core.ErrorTypeRateLimit, resp.StatusCode, "weight budget still exhausted").
					WithCode(core.ErrCodeRateLimit).
					WithDetail(decisionDetail(decision)).
					WithCause(core.ErrRetriesExhausted)
			}

			logger.Warn().
				Int("used", decision.Used).
				Int("available", decision.Available).
				Int("deficit", decision.Deficit).
				Int64("sleep_ms", decision.Sleep.Milliseconds()).
				Int("attempt", attempt+1).
				Msg("rate limit budget exhausted, backing off")

			if err := d.sleep(ctx, decision.Sleep); err != nil {
				return nil, err
			}
			continue
		}

		result, err := d.protocol.ParseResponse(op, resp)
		if err != nil {
			logger.Error().Err(err).
				Int("status", resp.StatusCode).
				Str("body", truncate(resp.Body, maxLoggedBody)).
				Msg("request failed")
			return nil, core.AttachExchange(err, d.exchange)
		}
		return result, nil
	}
}

func decisionDetail(d ratelimit.Decision) string {
	return fmt.Sprintf("used %d, available %d, declared %d", d.Used, d.Available, d.Declared)
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
