package endpoint

import (
	"net"
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/charlesng35/sftpfs/pkg/errors"
	"github.com/charlesng35/sftpfs/pkg/validator"
)

const (
	// Scheme is the literal prefix every remote endpoint starts with.
	Scheme = "sftp://"
	// DefaultPort is used when the endpoint omits a port or gives zero.
	DefaultPort = 22
)

var authorityPattern = regexp.MustCompile(`^(?:(\S+?)(?::(\S+))?@)?([A-Za-z0-9.-]+)(?::(\d+))?$`)

// Params holds everything needed to reach and open one remote file. Values are
// produced once per open and treated as read-only afterwards.
type Params struct {
	FilePath           string `json:"path" validate:"required,remotepath"`
	Username           string `json:"username"`
	Password           string `json:"-"`
	Host               string `json:"host" validate:"required,remotehost"`
	Port               int    `json:"port" validate:"min=1,max=65535"`
	IdentityFile       string `json:"identity_file"`
	PrivateKey         string `json:"-"`
	PrivateKeyPassword string `json:"-"`
}

// HasPrefix reports whether path uses the sftp scheme.
func HasPrefix(path string) bool {
	return strings.HasPrefix(path, Scheme)
}

// Parse splits an endpoint of the form sftp://[user[:password]@]host[:port]/path
// into Params. It never touches the network.
func Parse(raw string) (Params, error) {
	if !HasPrefix(raw) {
		return Params{}, apperrors.ErrParse.Newf("Unable to parse file path %q: invalid scheme", raw)
	}

	rest := raw[len(Scheme):]
	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return Params{}, apperrors.ErrParse.Newf("Unable to parse file path %q: invalid file path", raw)
	}
	authority, filePath := rest[:slash], rest[slash:]

	match := authorityPattern.FindStringSubmatch(authority)
	if match == nil {
		return Params{}, apperrors.ErrParse.Newf("Unable to parse file path %q: invalid host", raw)
	}

	params := Params{
		FilePath: filePath,
		Username: match[1],
		Password: match[2],
		Host:     match[3],
		Port:     DefaultPort,
	}

	if match[4] != "" {
		port, err := strconv.Atoi(match[4])
		if err != nil || port > 65535 {
			return Params{}, apperrors.ErrParse.Newf("Unable to parse file path %q: invalid port %s", raw, match[4])
		}
		if port > 0 {
			params.Port = port
		}
	}

	return params, nil
}

// Validate checks that the params describe a reachable target.
func (p Params) Validate() error {
	if err := validator.ValidateStruct(p); err != nil {
		return apperrors.ErrParse.Newf("Invalid endpoint %s", p.String()).WithInternal(err)
	}
	return nil
}

// Address returns host:port suitable for dialing.
func (p Params) Address() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.port()))
}

// String reconstructs the endpoint with the password redacted.
func (p Params) String() string {
	return p.format(true)
}

// Endpoint reconstructs the endpoint including the password.
func (p Params) Endpoint() string {
	return p.format(false)
}

// WithDefaults fills empty credential fields from defaults. Fields already set
// on p win.
func (p Params) WithDefaults(defaults Params) Params {
	if p.Username == "" {
		p.Username = defaults.Username
	}
	if p.Password == "" {
		p.Password = defaults.Password
	}
	if p.IdentityFile == "" {
		p.IdentityFile = defaults.IdentityFile
	}
	if p.PrivateKey == "" {
		p.PrivateKey = defaults.PrivateKey
	}
	if p.PrivateKeyPassword == "" {
		p.PrivateKeyPassword = defaults.PrivateKeyPassword
	}
	return p
}

func (p Params) port() int {
	if p.Port == 0 {
		return DefaultPort
	}
	return p.Port
}

func (p Params) format(redact bool) string {
	var b strings.Builder
	b.WriteString(Scheme)
	if p.Username != "" {
		b.WriteString(p.Username)
		if p.Password != "" {
			b.WriteByte(':')
			if redact {
				b.WriteString("***")
			} else {
				b.WriteString(p.Password)
			}
		}
		b.WriteByte('@')
	}
	b.WriteString(p.Host)
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(p.port()))
	b.WriteString(p.FilePath)
	return b.String()
}
