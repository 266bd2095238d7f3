// Package remotetest runs an in-process SSH server with an SFTP subsystem for
// exercising remote handles against real protocol traffic.
package remotetest

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"
)

const authMethodExtension = "auth-method"

// Server is a listening SSH server rooted at a temporary directory.
type Server struct {
	Host string
	Port int
	Root string

	passwords      map[string]string
	authorizedKeys map[string][]gossh.PublicKey
	disableSFTP    bool

	mu      sync.Mutex
	methods []string
	active  atomic.Int64
}

// Option configures a Server before it starts listening.
type Option func(*Server)

// WithPassword accepts password authentication for user.
func WithPassword(user, password string) Option {
	return func(s *Server) {
		s.passwords[user] = password
	}
}

// WithAuthorizedKey accepts public key authentication for user with key.
func WithAuthorizedKey(user string, key gossh.PublicKey) Option {
	return func(s *Server) {
		s.authorizedKeys[user] = append(s.authorizedKeys[user], key)
	}
}

// WithoutSFTP makes the server refuse the sftp subsystem request.
func WithoutSFTP() Option {
	return func(s *Server) {
		s.disableSFTP = true
	}
}

// NewServer starts a server on 127.0.0.1 and stops it when the test ends.
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()

	s := &Server{
		Host:           "127.0.0.1",
		Root:           t.TempDir(),
		passwords:      map[string]string{},
		authorizedKeys: map[string][]gossh.PublicKey{},
	}
	for _, opt := range opts {
		opt(s)
	}

	_, hostKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := gossh.NewSignerFromKey(hostKey)
	require.NoError(t, err)

	config := &gossh.ServerConfig{
		PasswordCallback: func(conn gossh.ConnMetadata, password []byte) (*gossh.Permissions, error) {
			expected, ok := s.passwords[conn.User()]
			if ok && expected == string(password) {
				return withMethod("password"), nil
			}
			return nil, fmt.Errorf("password rejected for %q", conn.User())
		},
		PublicKeyCallback: func(conn gossh.ConnMetadata, key gossh.PublicKey) (*gossh.Permissions, error) {
			for _, authorized := range s.authorizedKeys[conn.User()] {
				if bytes.Equal(authorized.Marshal(), key.Marshal()) {
					return withMethod("publickey"), nil
				}
			}
			return nil, fmt.Errorf("public key rejected for %q", conn.User())
		},
	}
	config.AddHostKey(signer)

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	_, portStr, err := net.SplitHostPort(listener.Addr().String())
	require.NoError(t, err)
	s.Port, err = strconv.Atoi(portStr)
	require.NoError(t, err)

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go s.handleConn(conn, config)
		}
	}()

	t.Cleanup(func() {
		_ = listener.Close()
	})
	return s
}

// URL builds an sftp endpoint for an absolute remote path.
func (s *Server) URL(user, password, path string) string {
	auth := ""
	switch {
	case user != "" && password != "":
		auth = user + ":" + password + "@"
	case user != "":
		auth = user + "@"
	}
	return fmt.Sprintf("sftp://%s%s:%d%s", auth, s.Host, s.Port, path)
}

// WriteFile stores data under the server root and returns its absolute path.
func (s *Server) WriteFile(t testing.TB, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(s.Root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return filepath.ToSlash(path)
}

// AuthMethods lists the methods of every successful authentication so far.
func (s *Server) AuthMethods() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.methods...)
}

// ActiveConnections reports SSH connections that have not been torn down.
func (s *Server) ActiveConnections() int64 {
	return s.active.Load()
}

func (s *Server) handleConn(conn net.Conn, config *gossh.ServerConfig) {
	defer conn.Close()

	s.active.Add(1)
	defer s.active.Add(-1)

	sshConn, chans, reqs, err := gossh.NewServerConn(conn, config)
	if err != nil {
		return
	}
	defer sshConn.Close()

	if sshConn.Permissions != nil {
		s.mu.Lock()
		s.methods = append(s.methods, sshConn.Permissions.Extensions[authMethodExtension])
		s.mu.Unlock()
	}

	go gossh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			_ = newChannel.Reject(gossh.UnknownChannelType, "unsupported channel type")
			continue
		}

		channel, requests, err := newChannel.Accept()
		if err != nil {
			continue
		}

		go s.handleSession(channel, requests)
	}
}

func (s *Server) handleSession(channel gossh.Channel, requests <-chan *gossh.Request) {
	for req := range requests {
		if req.Type == "subsystem" && subsystemName(req.Payload) == "sftp" && !s.disableSFTP {
			_ = req.Reply(true, nil)
			go serveSFTP(channel)
			continue
		}
		_ = req.Reply(false, nil)
	}
}

func serveSFTP(channel gossh.Channel) {
	defer channel.Close()

	server, err := sftp.NewServer(channel)
	if err != nil {
		return
	}
	_ = server.Serve()
	_ = server.Close()
}

func subsystemName(payload []byte) string {
	if len(payload) < 4 {
		return ""
	}
	return string(payload[4:])
}

func withMethod(method string) *gossh.Permissions {
	return &gossh.Permissions{Extensions: map[string]string{authMethodExtension: method}}
}

// GenerateKey returns a PEM encoded ed25519 private key, encrypted when
// passphrase is non-empty, and its public half.
func GenerateKey(t testing.TB, passphrase string) ([]byte, gossh.PublicKey) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var block *pem.Block
	if passphrase == "" {
		block, err = gossh.MarshalPrivateKey(priv, "sftpfs-test")
	} else {
		block, err = gossh.MarshalPrivateKeyWithPassphrase(priv, "sftpfs-test", []byte(passphrase))
	}
	require.NoError(t, err)

	sshPub, err := gossh.NewPublicKey(pub)
	require.NoError(t, err)
	return pem.EncodeToMemory(block), sshPub
}
