package server

import (
	"fmt"
	"strings"
	"time"
)

// handleHOST implements RFC 7151: it must precede USER and is rejected
// afterwards.
func (s *session) handleHOST(arg string) {
	if s.state != stateNeedUser {
		s.reply(503, "HOST must precede USER.")
		return
	}
	s.host = arg
	s.reply(220, "Host accepted.")
}

func (s *session) handleHASH(arg string) {
	jp, err := s.resolve(arg)
	if err != nil {
		s.replyError(err)
		return
	}
	hash, err := s.fs.GetHash(jp.Abs(), s.selectedHash)
	if err != nil {
		s.replyError(err)
		return
	}
	s.reply(213, fmt.Sprintf("%s %s %s", s.selectedHash, hash, jp.Virtual()))
}

// handleMFMT sets a file's modification time. Arg format: "YYYYMMDDHHMMSS path".
func (s *session) handleMFMT(arg string) {
	parts := strings.SplitN(arg, " ", 2)
	if len(parts) != 2 {
		s.reply(501, "Syntax error in parameters or arguments.")
		return
	}

	timeStr := parts[0]
	t, err := time.Parse("20060102150405", timeStr)
	if err != nil {
		s.reply(501, "Invalid time format.")
		return
	}

	jp, err := s.resolve(parts[1])
	if err != nil {
		s.replyError(err)
		return
	}
	if err := s.fs.SetTime(jp.Abs(), t); err != nil {
		s.replyError(err)
		return
	}

	s.reply(213, fmt.Sprintf("Modify=%s; %s", timeStr, jp.Virtual()))
}
