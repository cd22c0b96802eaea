package mocks

import (
	"context"
	"io"
	nethttp "net/http"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/WikipediaBrown/Kew-Developer/http"
	"github.com/WikipediaBrown/Kew-Developer/netstatus"
)

// MockRoundTripper provides a testify-based mock implementation of net/http.RoundTripper.
//
// Example usage:
//
//	rt := &mocks.MockRoundTripper{}
//	rt.ExpectStatus(503).Once()
//	rt.ExpectStatus(200, `{"result":"ok"}`).Once()
//	client := http.NewBuilder(resolver, log).WithTransport(rt).Build()
type MockRoundTripper struct {
	mock.Mock
}

var _ nethttp.RoundTripper = (*MockRoundTripper)(nil)

// RoundTrip implements net/http.RoundTripper
func (m *MockRoundTripper) RoundTrip(req *nethttp.Request) (*nethttp.Response, error) {
	arguments := m.Called(req)
	var resp *nethttp.Response
	switch v := arguments.Get(0).(type) {
	case nil:
		return nil, arguments.Error(1)
	case func(*nethttp.Request) *nethttp.Response:
		resp = v(req)
	default:
		resp = arguments.Get(0).(*nethttp.Response)
	}
	resp.Request = req
	return resp, arguments.Error(1)
}

// ExpectStatus answers any request with status and an optional body.
func (m *MockRoundTripper) ExpectStatus(status int, body ...string) *mock.Call {
	payload := strings.Join(body, "")
	return m.On("RoundTrip", mock.Anything).Return(func(*nethttp.Request) *nethttp.Response {
		return NewResponse(status, payload)
	}, nil)
}

// ExpectError fails any request with err.
func (m *MockRoundTripper) ExpectError(err error) *mock.Call {
	return m.On("RoundTrip", mock.Anything).Return(nil, err)
}

// NewResponse builds a minimal response with a JSON content type.
func NewResponse(status int, body string) *nethttp.Response {
	header := make(nethttp.Header)
	header.Set("Content-Type", "application/json")
	return &nethttp.Response{
		StatusCode: status,
		Status:     nethttp.StatusText(status),
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// RecordingSleeper implements http.Sleeper without sleeping. It records every
// requested wait and honours cancellation.
type RecordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

var _ http.Sleeper = (*RecordingSleeper)(nil)

func (s *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return nil
}

// Waits returns a copy of the recorded waits.
func (s *RecordingSleeper) Waits() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

// StubProber returns Statuses in order and then repeats the last one.
type StubProber struct {
	mu       sync.Mutex
	Statuses []netstatus.Status
	calls    int
}

var _ netstatus.Prober = (*StubProber)(nil)

// NewStubProber creates a prober answering statuses in order.
func NewStubProber(statuses ...netstatus.Status) *StubProber {
	return &StubProber{Statuses: statuses}
}

func (p *StubProber) Probe(context.Context) netstatus.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Statuses) == 0 {
		return netstatus.Unknown
	}
	idx := min(p.calls, len(p.Statuses)-1)
	p.calls++
	return p.Statuses[idx]
}

// Calls returns how many probes were made.
func (p *StubProber) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}
