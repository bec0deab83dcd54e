package dispatch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nakula/internal/ratelimit"
	"nakula/internal/transport"
	"nakula/pkg/core"
)

const weightHeader = "X-MBX-USED-WEIGHT-1M"

type fakeProtocol struct {
	mu       sync.Mutex
	signed   int
	signErr  error
	parseErr error
}

func (p *fakeProtocol) Name() string                { return "fake" }
func (p *fakeProtocol) BaseURL(sandbox bool) string { return "https://api.example.com" }

func (p *fakeProtocol) BuildRequest(op core.Operation, params core.Params) (*core.Request, error) {
	if op != core.OpAccount {
		return nil, core.NewExchangeError("", core.ErrorTypeUnknown, 0, "unsupported operation")
	}
	return core.NewRequest(http.MethodGet, "/api/v3/account").SetWeight(20).SetRequireAuth(true), nil
}

func (p *fakeProtocol) SignRequest(req *core.Request) error {
	if p.signErr != nil {
		return p.signErr
	}
	p.mu.Lock()
	p.signed++
	n := p.signed
	p.mu.Unlock()
	req.SetHeader("X-Signature", strconv.Itoa(n))
	return nil
}

func (p *fakeProtocol) ParseResponse(op core.Operation, resp *core.Response) (any, error) {
	if p.parseErr != nil {
		return nil, p.parseErr
	}
	if !resp.IsSuccess() {
		return nil, core.NewRemoteAPIError("", resp.StatusCode, "-1000", "remote failure", "")
	}
	return string(resp.Body), nil
}

type scriptedTransport struct {
	mu        sync.Mutex
	responses []*core.Response
	err       error
	sent      []*core.Request
}

func (s *scriptedTransport) Do(ctx context.Context, req *core.Request) (*core.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, req)
	if s.err != nil {
		return nil, s.err
	}
	resp := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return resp, nil
}

func weightResponse(used int, body string) *core.Response {
	h := http.Header{}
	h.Set(weightHeader, strconv.Itoa(used))
	return &core.Response{StatusCode: http.StatusOK, Headers: h, Body: []byte(body)}
}

func testBudget() ratelimit.WeightBudget {
	return ratelimit.WeightBudget{
		Header:     weightHeader,
		MaxWeight:  6000,
		Window:     time.Minute,
		MinBackoff: 200 * time.Millisecond,
	}
}

func newTestDispatcher(p *fakeProtocol, t transport.Doer, sleeps *[]time.Duration, opts ...Option) *Dispatcher {
	d := New(p, t, append([]Option{WithBudget(testBudget()), WithLogger(zerolog.Nop())}, opts...)...)
	d.sleep = func(ctx context.Context, dur time.Duration) error {
		*sleeps = append(*sleeps, dur)
		return ctx.Err()
	}
	return d
}

func TestDispatcher_AcceptsWithinBudget(t *testing.T) {
	p := &fakeProtocol{}
	tr := &scriptedTransport{responses: []*core.Response{weightResponse(100, "ok")}}
	var sleeps []time.Duration
	d := newTestDispatcher(p, tr, &sleeps)

	result, err := d.Do(context.Background(), core.OpAccount, nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Empty(t, sleeps)
	assert.Len(t, tr.sent, 1)
}

func TestDispatcher_BacksOffThenSucceeds(t *testing.T) {
	p := &fakeProtocol{}
	tr := &scriptedTransport{responses: []*core.Response{
		weightResponse(5990, "early"),
		weightResponse(5995, "early"),
		weightResponse(10, "ok"),
	}}
	var sleeps []time.Duration
	d := newTestDispatcher(p, tr, &sleeps)

	result, err := d.Do(context.Background(), core.OpAccount, nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 200 * time.Millisecond}, sleeps)
	require.Len(t, tr.sent, 3)

	// Each attempt carries its own signature.
	assert.Equal(t, "1", tr.sent[0].Headers["X-Signature"])
	assert.Equal(t, "2", tr.sent[1].Headers["X-Signature"])
	assert.Equal(t, "3", tr.sent[2].Headers["X-Signature"])
}

func TestDispatcher_ProportionalSleep(t *testing.T) {
	p := &fakeProtocol{}
	tr := &scriptedTransport{responses: []*core.Response{
		weightResponse(6600, ""),
		weightResponse(0, "ok"),
	}}
	var sleeps []time.Duration
	d := newTestDispatcher(p, tr, &sleeps)

	_, err := d.Do(context.Background(), core.OpAccount, nil)

	require.NoError(t, err)
	// available 0, deficit 20 -> 20/6000 of a minute = 200ms
	assert.Equal(t, []time.Duration{200 * time.Millisecond}, sleeps)
}

func TestDispatcher_BoundedRetries(t *testing.T) {
	p := &fakeProtocol{}
	tr := &scriptedTransport{responses: []*core.Response{weightResponse(6000, "")}}
	var sleeps []time.Duration
	d := newTestDispatcher(p, tr, &sleeps, WithMaxRetries(2))

	_, err := d.Do(context.Background(), core.OpAccount, nil)

	require.Error(t, err)
	assert.True(t, core.IsRateLimitError(err))
	assert.True(t, core.IsErrorCode(err, core.ErrCodeRateLimit))
	assert.ErrorIs(t, err, core.ErrRetriesExhausted)
	assert.Len(t, sleeps, 2)
	assert.Len(t, tr.sent, 3)
}

func TestDispatcher_CancelledDuringBackoff(t *testing.T) {
	p := &fakeProtocol{}
	tr := &scriptedTransport{responses: []*core.Response{weightResponse(6000, "")}}
	d := New(p, tr, WithBudget(testBudget()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := d.Do(ctx, core.OpAccount, nil)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 190*time.Millisecond)
}

func TestDispatcher_TransportError(t *testing.T) {
	p := &fakeProtocol{}
	tr := &scriptedTransport{err: errors.New("connection refused")}
	var sleeps []time.Duration
	d := newTestDispatcher(p, tr, &sleeps)

	_, err := d.Do(context.Background(), core.OpAccount, nil)

	require.Error(t, err)
	assert.True(t, core.IsTransportError(err))
	assert.Len(t, tr.sent, 1)

	var exErr *core.ExchangeError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, "fake", exErr.Exchange)
}

func TestDispatcher_SignErrorIsNotRetried(t *testing.T) {
	p := &fakeProtocol{signErr: core.NewAuthError(core.ErrCodeNoCredentials, "no credentials", core.ErrNoCredentials)}
	tr := &scriptedTransport{responses: []*core.Response{weightResponse(0, "ok")}}
	var sleeps []time.Duration
	d := newTestDispatcher(p, tr, &sleeps)

	_, err := d.Do(context.Background(), core.OpAccount, nil)

	require.Error(t, err)
	assert.True(t, core.IsAuthError(err))
	assert.ErrorIs(t, err, core.ErrNoCredentials)
	assert.Empty(t, tr.sent)

	var exErr *core.ExchangeError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, "fake", exErr.Exchange)
}

func TestDispatcher_RemoteErrorIsNotRetried(t *testing.T) {
	p := &fakeProtocol{}
	resp := weightResponse(0, `{"code":-1000}`)
	resp.StatusCode = http.StatusBadRequest
	tr := &scriptedTransport{responses: []*core.Response{resp}}
	var sleeps []time.Duration
	d := newTestDispatcher(p, tr, &sleeps)

	_, err := d.Do(context.Background(), core.OpAccount, nil)

	require.Error(t, err)
	assert.True(t, core.IsRemoteAPIError(err))
	assert.Len(t, tr.sent, 1)
	assert.Empty(t, sleeps)
}

func TestDispatcher_BuildErrorGetsExchange(t *testing.T) {
	d := New(&fakeProtocol{}, &scriptedTransport{})

	_, err := d.Do(context.Background(), core.OpWallets, nil)

	var exErr *core.ExchangeError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, "fake", exErr.Exchange)
}

func TestDispatcher_Pacer(t *testing.T) {
	p := &fakeProtocol{}
	tr := &scriptedTransport{responses: []*core.Response{weightResponse(0, "ok")}}
	pacer := ratelimit.New(40, time.Minute)
	d := New(p, tr, WithPacer(pacer))

	for i := 0; i < 2; i++ {
		_, err := d.Do(context.Background(), core.OpAccount, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(40), pacer.Metrics().ConsumedWeight)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := d.Do(ctx, core.OpAccount, nil)
	assert.Error(t, err)
	assert.Len(t, tr.sent, 2)
	assert.Equal(t, 2, p.signed, "a request refused by the pacer must not be signed")
}

type clockProtocol struct {
	fakeProtocol
	signedAt []time.Time
}

func (p *clockProtocol) SignRequest(req *core.Request) error {
	p.mu.Lock()
	p.signedAt = append(p.signedAt, time.Now())
	p.mu.Unlock()
	return nil
}

type clockTransport struct {
	mu     sync.Mutex
	sentAt []time.Time
}

func (c *clockTransport) Do(ctx context.Context, req *core.Request) (*core.Response, error) {
	c.mu.Lock()
	c.sentAt = append(c.sentAt, time.Now())
	c.mu.Unlock()
	return weightResponse(0, "ok"), nil
}

func TestDispatcher_SignsAfterPacing(t *testing.T) {
	p := &clockProtocol{}
	tr := &clockTransport{}
	d := New(p, tr, WithPacer(ratelimit.New(20, 300*time.Millisecond)))

	for i := 0; i < 2; i++ {
		_, err := d.Do(context.Background(), core.OpAccount, nil)
		require.NoError(t, err)
	}

	require.Len(t, p.signedAt, 2)
	require.Len(t, tr.sentAt, 2)
	assert.GreaterOrEqual(t, tr.sentAt[1].Sub(tr.sentAt[0]), 200*time.Millisecond)
	for i := range p.signedAt {
		assert.Less(t, tr.sentAt[i].Sub(p.signedAt[i]), 100*time.Millisecond)
	}
}

func TestDispatcher_OverHTTP(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		used := 10
		if n == 1 {
			used = 5990
		}
		w.Header().Set(weightHeader, strconv.Itoa(used))
		_, _ = w.Write([]byte("body-" + strconv.Itoa(int(n))))
	}))
	defer server.Close()

	client, err := transport.NewClient(&transport.Config{BaseURL: server.URL, Timeout: 5 * time.Second}, zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	var sleeps []time.Duration
	d := newTestDispatcher(&fakeProtocol{}, client, &sleeps)

	result, err := d.Do(context.Background(), core.OpAccount, nil)

	require.NoError(t, err)
	assert.Equal(t, "body-2", result)
	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, sleeps, 1)
}
