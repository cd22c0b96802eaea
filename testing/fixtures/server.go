// Package fixtures provides helper functions and pre-configured test servers
// for exercising the request pipeline end to end.
package fixtures

import (
	"net"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/WikipediaBrown/Kew-Developer/config"
	"github.com/WikipediaBrown/Kew-Developer/endpoint"
	"github.com/WikipediaBrown/Kew-Developer/http"
	"github.com/WikipediaBrown/Kew-Developer/internal/devserver"
	"github.com/WikipediaBrown/Kew-Developer/logger"
)

// DevServer couples a running httptest server with the fake it serves.
type DevServer struct {
	*devserver.Server
	HTTP *httptest.Server
	API  config.APIConfig
}

// NewDevServer starts the fake inference server on a loopback port and
// stops it when the test ends. API points at it with the development profile.
//
// Example usage:
//
//	srv := fixtures.NewDevServer(t, devserver.Options{FailFirst: 2})
//	client := srv.Client(t).WithSleeper(&mocks.RecordingSleeper{}).Build()
func NewDevServer(t testing.TB, opts devserver.Options) *DevServer {
	t.Helper()

	fake := devserver.New(opts, logger.Nop())
	ts := httptest.NewServer(fake)
	t.Cleanup(ts.Close)

	host, portStr, err := net.SplitHostPort(ts.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	path := opts.BasePath
	if path == "" {
		path = "/"
	}
	return &DevServer{
		Server: fake,
		HTTP:   ts,
		API: config.APIConfig{
			Host:  host,
			Port:  port,
			Path:  path,
			Token: opts.Token,
		},
	}
}

// Resolver resolves endpoints against the server.
func (s *DevServer) Resolver(t testing.TB) *endpoint.Resolver {
	t.Helper()
	r, err := endpoint.NewResolver(s.API, config.EnvDevelopment)
	require.NoError(t, err)
	return r
}

// Client returns a builder aimed at the server with a silent logger and the
// server token, if any.
func (s *DevServer) Client(t testing.TB) *http.Builder {
	t.Helper()
	return http.NewBuilder(s.Resolver(t), logger.Nop()).
		WithAuthToken(s.API.Token).
		WithTimeout(TestAttemptTimeout)
}
