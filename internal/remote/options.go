package remote

import (
	"time"

	gossh "golang.org/x/crypto/ssh"
)

// DefaultMaxPacket matches the packet size used for interactive SFTP browsing.
const DefaultMaxPacket = 1 << 15

type options struct {
	hostKeyCallback gossh.HostKeyCallback
	maxPacket       int
	dialTimeout     time.Duration
	resolver        Resolver
	flags           int
}

// Option customises how Open establishes a handle.
type Option func(*options)

// WithHostKeyCallback verifies the server host key. Host keys are not checked
// when no callback is supplied.
func WithHostKeyCallback(cb gossh.HostKeyCallback) Option {
	return func(o *options) {
		o.hostKeyCallback = cb
	}
}

// WithMaxPacket sets the SFTP max packet size. Non-positive values keep the default.
func WithMaxPacket(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.maxPacket = size
		}
	}
}

// WithDialTimeout bounds each TCP connection attempt.
func WithDialTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.dialTimeout = timeout
	}
}

// WithResolver replaces the DNS resolver used to find IPv4 candidates.
func WithResolver(resolver Resolver) Option {
	return func(o *options) {
		o.resolver = resolver
	}
}

// WithFlags records the caller's open flags on the handle. Remote files are
// always opened read-only.
func WithFlags(flags int) Option {
	return func(o *options) {
		o.flags = flags
	}
}

func newOptions(opts []Option) options {
	o := options{maxPacket: DefaultMaxPacket}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
