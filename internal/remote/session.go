package remote

import (
	"fmt"
	"net"
	"os"
	"strings"

	gossh "golang.org/x/crypto/ssh"

	"github.com/charlesng35/sftpfs/internal/endpoint"
	apperrors "github.com/charlesng35/sftpfs/pkg/errors"
	"github.com/charlesng35/sftpfs/pkg/metrics"
)

// AuthMethod identifies which credential a session authenticates with.
type AuthMethod int

const (
	AuthPassword AuthMethod = iota
	AuthPrivateKey
	AuthIdentityFile
)

func (m AuthMethod) String() string {
	switch m {
	case AuthPrivateKey:
		return "private_key"
	case AuthIdentityFile:
		return "identity_file"
	default:
		return "password"
	}
}

// SelectAuthMethod picks exactly one method: an in-memory private key wins,
// then an identity file, then username and password.
func SelectAuthMethod(params endpoint.Params) AuthMethod {
	switch {
	case params.PrivateKey != "":
		return AuthPrivateKey
	case params.IdentityFile != "":
		return AuthIdentityFile
	default:
		return AuthPassword
	}
}

func buildClientConfig(params endpoint.Params, method AuthMethod, hostKeyCallback gossh.HostKeyCallback) (*gossh.ClientConfig, error) {
	var auth gossh.AuthMethod
	switch method {
	case AuthPrivateKey:
		signer, err := parseSigner([]byte(params.PrivateKey), params.PrivateKeyPassword)
		if err != nil {
			return nil, authError(fmt.Errorf("parse private key: %w", err))
		}
		auth = gossh.PublicKeys(signer)
	case AuthIdentityFile:
		pemBytes, err := os.ReadFile(params.IdentityFile)
		if err != nil {
			return nil, authError(fmt.Errorf("read identity file: %w", err))
		}
		signer, err := parseSigner(pemBytes, params.PrivateKeyPassword)
		if err != nil {
			return nil, authError(fmt.Errorf("parse identity file %s: %w", params.IdentityFile, err))
		}
		auth = gossh.PublicKeys(signer)
	default:
		auth = gossh.Password(params.Password)
	}

	if hostKeyCallback == nil {
		hostKeyCallback = gossh.InsecureIgnoreHostKey()
	}

	return &gossh.ClientConfig{
		User:            params.Username,
		Auth:            []gossh.AuthMethod{auth},
		HostKeyCallback: hostKeyCallback,
	}, nil
}

func parseSigner(pemBytes []byte, passphrase string) (gossh.Signer, error) {
	if passphrase != "" {
		return gossh.ParsePrivateKeyWithPassphrase(pemBytes, []byte(passphrase))
	}
	return gossh.ParsePrivateKey(pemBytes)
}

// handshake runs the SSH handshake and authentication over an already
// connected socket. The socket is left open on failure; the caller owns it.
func handshake(conn net.Conn, params endpoint.Params, hostKeyCallback gossh.HostKeyCallback) (*gossh.Client, error) {
	method := SelectAuthMethod(params)

	config, err := buildClientConfig(params, method, hostKeyCallback)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues(method.String(), "failure").Inc()
		return nil, err
	}

	clientConn, chans, reqs, err := gossh.NewClientConn(conn, params.Address(), config)
	if err != nil {
		if isAuthFailure(err) {
			metrics.AuthAttempts.WithLabelValues(method.String(), "failure").Inc()
			return nil, authError(err)
		}
		return nil, apperrors.ErrHandshake.Newf("Unable to establish a ssh session").WithInternal(err)
	}

	metrics.AuthAttempts.WithLabelValues(method.String(), "success").Inc()
	return gossh.NewClient(clientConn, chans, reqs), nil
}

// x/crypto/ssh reports rejected credentials only through the error text.
func isAuthFailure(err error) bool {
	return strings.Contains(err.Error(), "unable to authenticate")
}

func authError(err error) error {
	return apperrors.ErrAuthentication.Newf("Unable to authenticate").WithInternal(err)
}
