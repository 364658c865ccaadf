package ftpclient

import (
	"errors"
	"fmt"
	"net/textproto"

	"github.com/jlaffaye/ftp"
)

// RemoteError is a failed FTP operation on a path.
type RemoteError struct {
	Op   string
	Path string
	Err  error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("ftp %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Code returns the FTP reply code of the underlying protocol error, or 0.
func (e *RemoteError) Code() int {
	var protoErr *textproto.Error
	if errors.As(e.Err, &protoErr) {
		return protoErr.Code
	}
	return 0
}

// IsNotFound reports whether err is a 550 reply.
func IsNotFound(err error) bool {
	var remoteErr *RemoteError
	return errors.As(err, &remoteErr) && remoteErr.Code() == ftp.StatusFileUnavailable
}
