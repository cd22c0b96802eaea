// Package endpoint maps logical API operations to their path and method and
// resolves them against the configured base URL.
package endpoint

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/WikipediaBrown/Kew-Developer/config"
)

// Method is an HTTP verb.
type Method string

const (
	GET     Method = "GET"
	HEAD    Method = "HEAD"
	POST    Method = "POST"
	PUT     Method = "PUT"
	DELETE  Method = "DELETE"
	CONNECT Method = "CONNECT"
	OPTIONS Method = "OPTIONS"
	TRACE   Method = "TRACE"
	PATCH   Method = "PATCH"
)

// CarriesBody reports whether requests with this method send a payload.
// Only PUT, POST and PATCH do.
func (m Method) CarriesBody() bool {
	switch m {
	case PUT, POST, PATCH:
		return true
	default:
		return false
	}
}

func (m Method) String() string {
	return string(m)
}

// Endpoint identifies a remote operation.
type Endpoint string

const (
	// Ollama is the local Llama chat endpoint.
	Ollama Endpoint = "ollama"
	// ChatGPT4o is the hosted GPT-4o chat endpoint.
	ChatGPT4o Endpoint = "chatgpt-4o"
	// ChatGPT4oDev is ChatGPT4o on the server's development route.
	ChatGPT4oDev Endpoint = "chatgpt-4o-dev"
)

type route struct {
	path   string
	method Method
}

var routes = map[Endpoint]route{
	Ollama:       {path: "api/chat", method: POST},
	ChatGPT4o:    {path: "api/ChatGPT/4o", method: POST},
	ChatGPT4oDev: {path: "api/ChatGPT/4o/dev", method: POST},
}

// ErrUnknownEndpoint is returned for identifiers without a route.
var ErrUnknownEndpoint = errors.New("unknown endpoint")

// All returns the known endpoints in a stable order.
func All() []Endpoint {
	return []Endpoint{Ollama, ChatGPT4o, ChatGPT4oDev}
}

// Parse accepts an endpoint identifier or its path.
func Parse(s string) (Endpoint, error) {
	if _, ok := routes[Endpoint(s)]; ok {
		return Endpoint(s), nil
	}
	for ep, r := range routes {
		if r.path == strings.Trim(s, "/") {
			return ep, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEndpoint, s)
}

// Path is the endpoint path relative to the base URL, without a leading slash.
func (e Endpoint) Path() (string, error) {
	r, ok := routes[e]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEndpoint, string(e))
	}
	return r.path, nil
}

func (e Endpoint) Method() (Method, error) {
	r, ok := routes[e]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEndpoint, string(e))
	}
	return r.method, nil
}

func (e Endpoint) String() string {
	return string(e)
}

// Target is a resolved endpoint.
type Target struct {
	Endpoint Endpoint
	URL      *url.URL
	Method   Method
}

// Resolver turns endpoints into absolute URLs. It is immutable and safe for
// concurrent use.
type Resolver struct {
	base *url.URL
}

// NewResolver builds the base URL once. The development profile uses plain
// http and the configured port; every other profile uses https on the
// default port.
func NewResolver(api config.APIConfig, env string) (*Resolver, error) {
	host := strings.TrimSpace(api.Host)
	if host == "" {
		return nil, config.NewMissingFieldError("api.host", "API_HOST", "api.host")
	}
	if strings.TrimSpace(api.Path) == "" {
		return nil, config.NewMissingFieldError("api.path", "API_PATH", "api.path")
	}

	base := &url.URL{
		Scheme: "https",
		Host:   host,
		Path:   "/" + strings.Trim(api.Path, "/"),
	}
	if env == config.EnvDevelopment {
		if api.Port == 0 {
			return nil, config.NewMissingFieldError("api.port", "PORT", "api.port")
		}
		if api.Port < 0 || api.Port > 65535 {
			return nil, config.NewInvalidFieldError("api.port", fmt.Sprintf("port %d is out of range 1-65535", api.Port), nil)
		}
		base.Scheme = "http"
		base.Host = net.JoinHostPort(host, strconv.Itoa(api.Port))
	}

	if _, err := url.Parse(base.String()); err != nil {
		return nil, config.NewValidationError("api.host", fmt.Sprintf("cannot build base url: %v", err))
	}
	return &Resolver{base: base}, nil
}

// BaseURL returns a copy of the base URL.
func (r *Resolver) BaseURL() *url.URL {
	u := *r.base
	return &u
}

// Resolve returns the absolute URL and method for ep.
func (r *Resolver) Resolve(ep Endpoint) (Target, error) {
	rt, ok := routes[ep]
	if !ok {
		return Target{}, fmt.Errorf("%w: %q", ErrUnknownEndpoint, string(ep))
	}

	u := r.BaseURL()
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + rt.path
	return Target{Endpoint: ep, URL: u, Method: rt.method}, nil
}
