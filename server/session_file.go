package server

import (
	"fmt"
	"io"
	"os"
	"strings"
)

func (s *session) handlePWD() {
	s.reply(257, quotePath(s.cwd))
}

func (s *session) handleCWD(arg string) {
	jp, err := s.resolve(arg)
	if err != nil {
		s.replyError(err)
		return
	}
	if err := s.fs.ChangeDir(jp.Abs()); err != nil {
		s.replyError(err)
		return
	}
	s.cwd = jp.Virtual()

	if s.server.enableDirMessage {
		s.sendDirMessage()
	}
	s.reply(250, "Directory successfully changed.")
}

// sendDirMessage sends the contents of a .message file in the newly
// entered directory, if present, as 250- continuation lines ahead of the
// final 250 reply.
func (s *session) sendDirMessage() {
	f, err := s.fs.OpenFile(strings.TrimSuffix(s.cwd, "/")+"/.message", os.O_RDONLY)
	if err != nil {
		return
	}
	defer f.Close()

	b, _ := io.ReadAll(io.LimitReader(f, 2048))
	if len(b) == 0 {
		return
	}

	msg := strings.TrimRight(string(b), "\r\n")
	for _, line := range strings.Split(msg, "\n") {
		fmt.Fprintf(s.writer, "250-%s\r\n", strings.TrimRight(line, "\r"))
	}
}

func (s *session) handleLIST(arg string) {
	jp, err := s.resolve(arg)
	if err != nil {
		s.replyError(err)
		return
	}

	entries, err := s.fs.ListDir(jp.Abs())
	if err != nil {
		s.replyError(err)
		return
	}

	s.reply(150, "Here comes the directory listing.")

	conn, err := s.data.take()
	if err != nil {
		s.replyError(err)
		return
	}

	w := s.rateLimitWriter(conn)
	for _, entry := range entries {
		fmt.Fprintf(w, "%s\r\n", formatListEntry(entry))
	}
	conn.Close()

	s.reply(226, "Directory send OK.")
}

func (s *session) handleNLST(arg string) {
	jp, err := s.resolve(arg)
	if err != nil {
		s.replyError(err)
		return
	}

	entries, err := s.fs.ListDir(jp.Abs())
	if err != nil {
		s.replyError(err)
		return
	}

	s.reply(150, "Here comes the file list.")

	conn, err := s.data.take()
	if err != nil {
		s.replyError(err)
		return
	}

	w := s.rateLimitWriter(conn)
	for _, entry := range entries {
		fmt.Fprintf(w, "%s\r\n", entry.Name())
	}
	conn.Close()

	s.reply(226, "Transfer complete.")
}

func (s *session) handleMKD(arg string) {
	jp, err := s.resolve(arg)
	if err != nil {
		s.replyError(err)
		return
	}
	if err := s.fs.MakeDir(jp.Abs()); err != nil {
		s.replyError(err)
		return
	}
	s.server.logger.Info("directory_created",
		"session_id", s.sessionID,
		"remote_ip", s.redactIP(s.remoteIP),
		"user", s.user,
		"path", s.redactPath(jp.Virtual()),
	)
	s.reply(257, quotePath(jp.Virtual()))
}

func (s *session) handleRMD(arg string) {
	jp, err := s.resolve(arg)
	if err != nil {
		s.replyError(err)
		return
	}
	if err := s.fs.RemoveDir(jp.Abs()); err != nil {
		s.replyError(err)
		return
	}
	s.server.logger.Info("directory_removed",
		"session_id", s.sessionID,
		"remote_ip", s.redactIP(s.remoteIP),
		"user", s.user,
		"path", s.redactPath(jp.Virtual()),
	)
	s.reply(250, "Directory removed.")
}

func (s *session) handleDELE(arg string) {
	jp, err := s.resolve(arg)
	if err != nil {
		s.replyError(err)
		return
	}
	if err := s.fs.DeleteFile(jp.Abs()); err != nil {
		s.replyError(err)
		return
	}
	s.server.logger.Info("file_deleted",
		"session_id", s.sessionID,
		"remote_ip", s.redactIP(s.remoteIP),
		"user", s.user,
		"path", s.redactPath(jp.Virtual()),
	)
	s.reply(250, "File deleted.")
}

func (s *session) handleRNFR(arg string) {
	jp, err := s.resolve(arg)
	if err != nil {
		s.replyError(err)
		return
	}
	if _, err := s.fs.GetFileInfo(jp.Abs()); err != nil {
		s.replyError(err)
		return
	}
	s.renameFrom = jp.Abs()
	s.reply(350, "Requested file action pending further information.")
}

func (s *session) handleRNTO(arg string) {
	if s.renameFrom == "" {
		s.reply(503, "Bad sequence of commands. Send RNFR first.")
		return
	}
	jp, err := s.resolve(arg)
	if err != nil {
		s.renameFrom = ""
		s.replyError(err)
		return
	}

	err = s.fs.Rename(s.renameFrom, jp.Abs())
	s.renameFrom = ""
	if err != nil {
		s.replyError(err)
		return
	}
	s.reply(250, "Requested file action successful, file renamed.")
}

// quotePath renders a 257-style quoted pathname per RFC 959 §5.2: wrapped
// in double quotes, with any literal quote doubled.
func quotePath(path string) string {
	out := make([]byte, 0, len(path)+2)
	out = append(out, '"')
	for i := 0; i < len(path); i++ {
		if path[i] == '"' {
			out = append(out, '"', '"')
			continue
		}
		out = append(out, path[i])
	}
	out = append(out, '"')
	return string(out)
}
