package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the structured error carried through every sftpfs layer. Code
// identifies the failure kind, Message is the human readable text and
// Internal keeps the underlying protocol or OS diagnostic.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// Is reports whether target is an AppError of the same kind, so callers can
// match copies produced by WithInternal or Newf against the exported sentinels.
func (e *AppError) Is(target error) bool {
	if e == nil {
		return false
	}
	var other *AppError
	if !errors.As(target, &other) || other == nil {
		return false
	}
	return other.Code != "" && other.Code == e.Code
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// Newf returns a copy of the AppError of the same kind with a formatted message.
func (e *AppError) Newf(format string, args ...any) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Message = fmt.Sprintf(format, args...)
	cpy.Internal = nil
	return &cpy
}

// Error kinds raised by the endpoint parser, the remote handle and the
// filesystem adapter.
var (
	ErrParse = &AppError{
		Code:       "sftp.parse",
		Message:    "Unable to parse file path",
		StatusCode: http.StatusBadRequest,
	}

	ErrConnection = &AppError{
		Code:       "sftp.connection",
		Message:    "Unable to connect",
		StatusCode: http.StatusBadGateway,
	}

	ErrHandshake = &AppError{
		Code:       "sftp.handshake",
		Message:    "Unable to establish ssh session",
		StatusCode: http.StatusBadGateway,
	}

	ErrAuthentication = &AppError{
		Code:       "sftp.authentication",
		Message:    "Unable to authenticate",
		StatusCode: http.StatusUnauthorized,
	}

	ErrSessionInit = &AppError{
		Code:       "sftp.session_init",
		Message:    "Unable to init a SFTP session",
		StatusCode: http.StatusBadGateway,
	}

	ErrFileOpen = &AppError{
		Code:       "sftp.file_open",
		Message:    "Unable to open file",
		StatusCode: http.StatusNotFound,
	}

	ErrAttributes = &AppError{
		Code:       "sftp.attributes",
		Message:    "Unable to get file attributes",
		StatusCode: http.StatusBadGateway,
	}

	ErrRead = &AppError{
		Code:       "sftp.read",
		Message:    "Error reading file",
		StatusCode: http.StatusBadGateway,
	}

	ErrNotImplemented = &AppError{
		Code:       "sftp.not_implemented",
		Message:    "Operation not implemented",
		StatusCode: http.StatusNotImplemented,
	}

	ErrConfig = &AppError{
		Code:       "sftp.config",
		Message:    "Unable to read configuration",
		StatusCode: http.StatusInternalServerError,
	}

	ErrClosed = &AppError{
		Code:       "sftp.closed",
		Message:    "File handle is closed",
		StatusCode: http.StatusConflict,
	}

	ErrInvalidSeek = &AppError{
		Code:       "sftp.invalid_seek",
		Message:    "Invalid seek",
		StatusCode: http.StatusRequestedRangeNotSatisfiable,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrInternalServer = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap turns any error into an AppError while keeping the original error for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       ErrInternalServer.Code,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// NewBadRequest wraps validation errors with a helpful message.
func NewBadRequest(message string) *AppError {
	return ErrBadRequest.Newf("%s", message)
}
