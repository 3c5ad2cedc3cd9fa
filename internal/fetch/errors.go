package fetch

import (
	"errors"
)

// NetworkError represents a failure reaching the remote server or reading
// its response, including non-success status codes.
type NetworkError struct {
	URL string
	Err error
}

// Error returns the error message
func (e *NetworkError) Error() string {
	if e.Err != nil {
		return "network error for " + e.URL + ": " + e.Err.Error()
	}
	return "network error for " + e.URL
}

// Unwrap returns the underlying error
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new network error
func NewNetworkError(url string, err error) *NetworkError {
	return &NetworkError{URL: url, Err: err}
}

// IsNetwork returns true if the error originated on the network side
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// FilesystemError represents a failure opening, reading, or writing the
// local destination file.
type FilesystemError struct {
	Path string
	Err  error
}

// Error returns the error message
func (e *FilesystemError) Error() string {
	if e.Err != nil {
		return "filesystem error for " + e.Path + ": " + e.Err.Error()
	}
	return "filesystem error for " + e.Path
}

// Unwrap returns the underlying error
func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// NewFilesystemError creates a new filesystem error
func NewFilesystemError(path string, err error) *FilesystemError {
	return &FilesystemError{Path: path, Err: err}
}

// IsFilesystem returns true if the error originated on the local disk side
func IsFilesystem(err error) bool {
	var fe *FilesystemError
	return errors.As(err, &fe)
}
