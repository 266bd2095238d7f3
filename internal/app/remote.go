package app

import (
	"fmt"

	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/charlesng35/sftpfs/internal/remote"
)

// RemoteOptions translates the sftp section into options for remote.Open.
func (c SFTPConfig) RemoteOptions() ([]remote.Option, error) {
	opts := []remote.Option{
		remote.WithMaxPacket(c.MaxPacket),
		remote.WithDialTimeout(c.DialTimeout),
	}

	if c.KnownHostsFile != "" {
		callback, err := knownhosts.New(c.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("config: known hosts %s: %w", c.KnownHostsFile, err)
		}
		opts = append(opts, remote.WithHostKeyCallback(callback))
	}

	return opts, nil
}
