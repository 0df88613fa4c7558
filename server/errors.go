package server

import (
	"errors"
	"os"
)

// kind classifies a command-handling failure so it can be mapped to an
// FTP response code without the handler having to pick one itself.
type kind int

const (
	kindSyntax kind = iota
	kindNotLoggedIn
	kindInvalidPath
	kindAccessDenied
	kindNoDataChannel
	kindDataChannelFailed
	kindTransferAborted
	kindNotImplemented
)

// cmdError is a command-handling error carrying the response kind it
// should be reported as. Handlers that can fail in a specific,
// non-filesystem way (bad PORT syntax, jail rejection, ...) return one of
// these; replyError knows how to turn it into the right numeric code.
type cmdError struct {
	k   kind
	msg string
}

func (e *cmdError) Error() string { return e.msg }

func newErr(k kind, msg string) *cmdError { return &cmdError{k: k, msg: msg} }

// ErrInvalidPath is returned by the path jail when a client-supplied path
// cannot be safely resolved under the server root (NUL byte, path longer
// than maxPathLength, or CR/LF that would corrupt a response line).
var ErrInvalidPath = newErr(kindInvalidPath, "invalid path")

// ErrNoDataChannel is returned by the data-channel manager when a
// transfer command is issued without a prior PORT or PASV.
var ErrNoDataChannel = newErr(kindNoDataChannel, "no data channel established")

// replyError inspects err and sends the appropriate response code. It
// understands the cmdError kinds above plus the standard os.IsNotExist /
// os.IsPermission / os.IsExist filesystem sentinels.
func (s *session) replyError(err error) {
	var ce *cmdError
	if errors.As(err, &ce) {
		switch ce.k {
		case kindSyntax:
			s.reply(501, ce.msg)
		case kindNotLoggedIn:
			s.reply(530, ce.msg)
		case kindInvalidPath, kindAccessDenied:
			s.reply(550, "Permission denied or invalid path.")
		case kindNoDataChannel, kindDataChannelFailed:
			s.reply(425, ce.msg)
		case kindTransferAborted:
			s.reply(426, ce.msg)
		case kindNotImplemented:
			s.reply(502, ce.msg)
		default:
			s.reply(550, ce.msg)
		}
		return
	}

	if os.IsNotExist(err) {
		s.reply(550, "File or directory not found.")
		return
	}
	if os.IsPermission(err) {
		s.reply(550, "Permission denied.")
		return
	}
	if os.IsExist(err) {
		s.reply(550, "File or directory already exists.")
		return
	}
	s.reply(550, "Requested action not taken.")
}
