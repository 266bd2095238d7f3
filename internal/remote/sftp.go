package remote

import (
	"errors"
	"io"
	"io/fs"
	"math"
	"os"

	pkgsftp "github.com/pkg/sftp"
	gossh "golang.org/x/crypto/ssh"

	apperrors "github.com/charlesng35/sftpfs/pkg/errors"
)

// StatusCode is an SFTP status code as carried in SSH_FXP_STATUS replies.
type StatusCode uint32

const (
	StatusOK StatusCode = iota
	StatusEOF
	StatusNoSuchFile
	StatusPermissionDenied
	StatusFailure
	StatusBadMessage
	StatusNoConnection
	StatusConnectionLost
	StatusOpUnsupported
	StatusInvalidHandle
	StatusNoSuchPath
	StatusFileAlreadyExists
	StatusWriteProtect
	StatusNoMedia
	StatusNoSpaceOnFilesystem
	StatusQuotaExceeded
	StatusUnknownPrincipal
	StatusLockConflict
	StatusDirNotEmpty
	StatusNotADirectory
	StatusInvalidFilename
	StatusLinkLoop

	// StatusUnknown is reported for errors that carry no SFTP status.
	StatusUnknown StatusCode = math.MaxUint32
)

var statusText = map[StatusCode]string{
	StatusOK:                  "No error",
	StatusEOF:                 "End of file",
	StatusNoSuchFile:          "No such file",
	StatusPermissionDenied:    "Permission denied",
	StatusFailure:             "Generic failure",
	StatusBadMessage:          "Bad message",
	StatusNoConnection:        "No connection",
	StatusConnectionLost:      "Connection lost",
	StatusOpUnsupported:       "Operation not supported",
	StatusInvalidHandle:       "Invalid handle",
	StatusNoSuchPath:          "No such path",
	StatusWriteProtect:        "Write protect",
	StatusNoMedia:             "No media",
	StatusNoSpaceOnFilesystem: "No space left",
	StatusQuotaExceeded:       "Quota exceeded",
	StatusUnknownPrincipal:    "Unknown principal",
	StatusLockConflict:        "Lock conflict",
	StatusDirNotEmpty:         "Directory not empty",
	StatusNotADirectory:       "Not a directory",
	StatusInvalidFilename:     "Invalid file name",
	StatusLinkLoop:            "Link loop",
}

// StatusText returns the human readable text for code, or "Unknown error".
func StatusText(code StatusCode) string {
	if text, ok := statusText[code]; ok {
		return text
	}
	return "Unknown error"
}

func (c StatusCode) String() string {
	return StatusText(c)
}

// StatusFromError extracts the SFTP status from err. pkg/sftp turns the most
// common statuses into os and io sentinels, which are mapped back here.
func StatusFromError(err error) StatusCode {
	if err == nil {
		return StatusOK
	}

	var statusErr *pkgsftp.StatusError
	if errors.As(err, &statusErr) {
		return StatusCode(statusErr.Code)
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return StatusNoSuchFile
	case errors.Is(err, fs.ErrPermission):
		return StatusPermissionDenied
	case errors.Is(err, io.EOF):
		return StatusEOF
	default:
		return StatusUnknown
	}
}

// openRemoteFile opens path read-only and captures its attributes once.
func openRemoteFile(client *pkgsftp.Client, path string) (*pkgsftp.File, os.FileInfo, error) {
	file, err := client.OpenFile(path, os.O_RDONLY)
	if err != nil {
		return nil, nil, apperrors.ErrFileOpen.
			Newf("Unable to open file: %s", StatusText(StatusFromError(err))).
			WithInternal(err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, nil, apperrors.ErrAttributes.
			Newf("Unable to get file attributes: %s", StatusText(StatusFromError(err))).
			WithInternal(err)
	}

	return file, info, nil
}

func newSFTPClient(client *gossh.Client, maxPacket int) (*pkgsftp.Client, error) {
	opts := []pkgsftp.ClientOption{}
	if maxPacket > 0 {
		opts = append(opts, pkgsftp.MaxPacket(maxPacket))
	}
	sftpClient, err := pkgsftp.NewClient(client, opts...)
	if err != nil {
		return nil, apperrors.ErrSessionInit.Newf("Unable to init a SFTP session").WithInternal(err)
	}
	return sftpClient, nil
}
