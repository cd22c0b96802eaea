package endpoint

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WikipediaBrown/Kew-Developer/config"
)

const testHost = "api.example.com"

func productionResolver(t *testing.T, path string) *Resolver {
	t.Helper()
	r, err := NewResolver(config.APIConfig{Host: testHost, Path: path}, config.EnvProduction)
	require.NoError(t, err)
	return r
}

func TestResolveProduction(t *testing.T) {
	r := productionResolver(t, "/v1")

	tests := []struct {
		ep     Endpoint
		url    string
		method Method
	}{
		{ep: Ollama, url: "https://api.example.com/v1/api/chat", method: POST},
		{ep: ChatGPT4o, url: "https://api.example.com/v1/api/ChatGPT/4o", method: POST},
		{ep: ChatGPT4oDev, url: "https://api.example.com/v1/api/ChatGPT/4o/dev", method: POST},
	}
	for _, tt := range tests {
		t.Run(tt.ep.String(), func(t *testing.T) {
			target, err := r.Resolve(tt.ep)
			require.NoError(t, err)
			assert.Equal(t, tt.url, target.URL.String())
			assert.Equal(t, tt.method, target.Method)
			assert.Equal(t, tt.ep, target.Endpoint)
		})
	}
}

func TestResolveRootPath(t *testing.T) {
	target, err := productionResolver(t, "/").Resolve(Ollama)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/api/chat", target.URL.String())
}

func TestResolveDevelopment(t *testing.T) {
	r, err := NewResolver(config.APIConfig{Host: "localhost", Path: "v1/", Port: 11434}, config.EnvDevelopment)
	require.NoError(t, err)

	target, err := r.Resolve(Ollama)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434/v1/api/chat", target.URL.String())
}

func TestResolveDoesNotShareBase(t *testing.T) {
	r := productionResolver(t, "/v1")

	first, err := r.Resolve(Ollama)
	require.NoError(t, err)
	first.URL.Path = "/mutated"

	second, err := r.Resolve(Ollama)
	require.NoError(t, err)
	assert.Equal(t, "/v1/api/chat", second.URL.Path)
	assert.Equal(t, "/v1", r.BaseURL().Path)
}

func TestResolveUnknownEndpoint(t *testing.T) {
	_, err := productionResolver(t, "/v1").Resolve(Endpoint("nope"))
	assert.ErrorIs(t, err, ErrUnknownEndpoint)

	_, err = Endpoint("nope").Method()
	assert.ErrorIs(t, err, ErrUnknownEndpoint)
	_, err = Endpoint("nope").Path()
	assert.ErrorIs(t, err, ErrUnknownEndpoint)
}

func TestNewResolverErrors(t *testing.T) {
	tests := []struct {
		name  string
		api   config.APIConfig
		env   string
		field string
	}{
		{name: "missing_host", api: config.APIConfig{Path: "/v1"}, env: config.EnvProduction, field: "api.host"},
		{name: "missing_path", api: config.APIConfig{Host: testHost}, env: config.EnvProduction, field: "api.path"},
		{name: "development_without_port", api: config.APIConfig{Host: testHost, Path: "/v1"}, env: config.EnvDevelopment, field: "api.port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewResolver(tt.api, tt.env)
			var ce *config.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
			assert.True(t, config.IsMissing(err))
		})
	}
}

func TestNewResolverRejectsOutOfRangePort(t *testing.T) {
	for _, port := range []int{-1, 65536} {
		t.Run(strconv.Itoa(port), func(t *testing.T) {
			_, err := NewResolver(config.APIConfig{Host: testHost, Path: "/v1", Port: port}, config.EnvDevelopment)
			var ce *config.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, "api.port", ce.Field)
			assert.Equal(t, config.CategoryInvalid, ce.Category)
			assert.False(t, config.IsMissing(err))
		})
	}
}

func TestMethodCarriesBody(t *testing.T) {
	withBody := map[Method]bool{
		GET: false, HEAD: false, POST: true, PUT: true, DELETE: false,
		CONNECT: false, OPTIONS: false, TRACE: false, PATCH: true,
	}
	for m, want := range withBody {
		assert.Equal(t, want, m.CarriesBody(), m.String())
	}
}

func TestParse(t *testing.T) {
	ep, err := Parse("ollama")
	require.NoError(t, err)
	assert.Equal(t, Ollama, ep)

	ep, err = Parse("/api/ChatGPT/4o")
	require.NoError(t, err)
	assert.Equal(t, ChatGPT4o, ep)

	_, err = Parse("api/unknown")
	assert.ErrorIs(t, err, ErrUnknownEndpoint)

	assert.Len(t, All(), 3)
}
