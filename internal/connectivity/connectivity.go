// Package connectivity answers whether the upstream network is reachable
// before a fetch is attempted.
package connectivity

import (
	"context"
	"net"
	"time"

	"github.com/rs/zerolog/log"
)

// Checker reports network availability.
type Checker interface {
	Available(ctx context.Context) bool
}

// Func adapts a function to Checker.
type Func func(ctx context.Context) bool

func (f Func) Available(ctx context.Context) bool { return f(ctx) }

// Always is a Checker that always reports the network as available.
var Always = Func(func(context.Context) bool { return true })

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 3 * time.Second

// Dialer probes reachability by opening a TCP connection to any of Addrs.
type Dialer struct {
	Addrs   []string
	Timeout time.Duration
	// Dial defaults to net.Dialer.DialContext.
	Dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

// NewDialer probes addrs ("host:port"), trying each in order.
func NewDialer(addrs ...string) *Dialer {
	return &Dialer{Addrs: addrs, Timeout: DefaultTimeout}
}

// Available returns true as soon as one address accepts a connection.
func (d *Dialer) Available(ctx context.Context) bool {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dial := d.Dial
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}

	for _, addr := range d.Addrs {
		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		conn, err := dial(probeCtx, "tcp", addr)
		cancel()
		if err == nil {
			_ = conn.Close()
			return true
		}
		log.Debug().Err(err).Str("addr", addr).Msg("connectivity: probe failed")
		if ctx.Err() != nil {
			return false
		}
	}
	return false
}
