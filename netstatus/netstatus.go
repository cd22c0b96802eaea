// Package netstatus observes the reachability of the network link and
// broadcasts changes to subscribers. The status is informational: nothing in
// the request pipeline waits on it.
package netstatus

import (
	"context"
	"errors"
	"net"
	"time"
)

// Status is the last observed link condition.
type Status int

const (
	Unknown Status = iota
	Satisfied
	Unsatisfied
	RequiresConnection
)

func (s Status) String() string {
	switch s {
	case Satisfied:
		return "satisfied"
	case Unsatisfied:
		return "unsatisfied"
	case RequiresConnection:
		return "requires_connection"
	default:
		return "unknown"
	}
}

// Prober reports the current link condition.
type Prober interface {
	Probe(ctx context.Context) Status
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) Status

func (f ProberFunc) Probe(ctx context.Context) Status {
	return f(ctx)
}

// DefaultProbeTimeout bounds a single dial when DialProber.Timeout is unset.
const DefaultProbeTimeout = 2 * time.Second

// DialProber checks for an active non-loopback interface and then dials
// Address over TCP. No interface means Unsatisfied; an interface with a
// failing dial means RequiresConnection.
type DialProber struct {
	// Address is host:port. Empty skips the dial.
	Address string
	Timeout time.Duration

	// Interfaces and Dial default to the net package.
	Interfaces func() ([]net.Interface, error)
	Dial       func(ctx context.Context, network, address string) (net.Conn, error)
}

func (p DialProber) Probe(ctx context.Context) Status {
	up, err := p.hasActiveInterface()
	if err != nil {
		return Unknown
	}
	if !up {
		return Unsatisfied
	}
	if p.Address == "" {
		return Satisfied
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dial := p.Dial
	if dial == nil {
		var d net.Dialer
		dial = d.DialContext
	}
	conn, err := dial(dialCtx, "tcp", p.Address)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return Unknown
		}
		return RequiresConnection
	}
	_ = conn.Close()
	return Satisfied
}

func (p DialProber) hasActiveInterface() (bool, error) {
	list := p.Interfaces
	if list == nil {
		list = net.Interfaces
	}
	ifaces, err := list()
	if err != nil {
		return false, err
	}
	for i := range ifaces {
		flags := ifaces[i].Flags
		if flags&net.FlagUp != 0 && flags&net.FlagLoopback == 0 {
			return true, nil
		}
	}
	return false, nil
}
