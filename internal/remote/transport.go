package remote

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"go.uber.org/multierr"

	apperrors "github.com/charlesng35/sftpfs/pkg/errors"
)

// Resolver looks up the addresses of a host. *net.Resolver satisfies it.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
}

// Transport resolves a host to IPv4 candidates and opens a TCP connection to
// the first one that accepts.
type Transport struct {
	Resolver    Resolver
	DialTimeout time.Duration
}

// Connect dials host:port with a zero-value Transport.
func Connect(ctx context.Context, host string, port int) (net.Conn, error) {
	return (&Transport{}).Connect(ctx, host, port)
}

// Connect returns a connected socket or a connection error carrying the
// resolver or OS diagnostic. Failed attempts leave no socket open.
func (t *Transport) Connect(ctx context.Context, host string, port int) (net.Conn, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	candidates, err := t.resolve(ctx, host)
	if err != nil {
		return nil, connectError(host, port, err)
	}

	dialer := net.Dialer{Timeout: t.DialTimeout}
	var dialErr error
	for _, ip := range candidates {
		conn, err := dialer.DialContext(ctx, "tcp4", net.JoinHostPort(ip.String(), strconv.Itoa(port)))
		if err == nil {
			return conn, nil
		}
		dialErr = multierr.Append(dialErr, err)
		if ctx.Err() != nil {
			break
		}
	}
	if dialErr == nil {
		dialErr = errors.New("no addresses to dial")
	}
	return nil, connectError(host, port, dialErr)
}

func (t *Transport) resolve(ctx context.Context, host string) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		if ip.To4() == nil {
			return nil, errors.New("not an IPv4 address")
		}
		return []net.IP{ip}, nil
	}

	resolver := t.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}

	ips, err := resolver.LookupIP(ctx, "ip4", host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, errors.New("no IPv4 address found")
	}
	return ips, nil
}

func connectError(host string, port int, err error) error {
	return apperrors.ErrConnection.Newf("Unable to connect to %s on port %d", host, port).WithInternal(err)
}
