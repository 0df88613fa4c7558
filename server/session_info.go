package server

import (
	"fmt"
	"os"
	"strings"
)

func (s *session) handleSIZE(arg string) {
	jp, err := s.resolve(arg)
	if err != nil {
		s.replyError(err)
		return
	}
	info, err := s.fs.GetFileInfo(jp.Abs())
	if err != nil {
		s.replyError(err)
		return
	}
	s.reply(213, fmt.Sprintf("%d", info.Size()))
}

// handleMDTM returns a file's modification time in UTC, YYYYMMDDHHMMSS
// (RFC 3659 §2.3).
func (s *session) handleMDTM(arg string) {
	jp, err := s.resolve(arg)
	if err != nil {
		s.replyError(err)
		return
	}
	info, err := s.fs.GetFileInfo(jp.Abs())
	if err != nil {
		s.replyError(err)
		return
	}
	s.reply(213, info.ModTime().UTC().Format("20060102150405"))
}

func (s *session) handleFEAT(_ string) {
	features := []string{
		"SIZE",
		"MDTM",
		"PASV",
		"UTF8",
		"TVFS",
		"MLST type*;size*;modify*;",
		"HOST",
		"HASH SHA-1;SHA-256;SHA-512;MD5;CRC32",
		"MFMT",
	}
	if !s.server.disableMLSD {
		features = append(features, "MLSD")
	}
	s.replyMulti(211, append([]string{"Features:"}, features...))
}

func (s *session) handleOPTS(arg string) {
	upper := strings.ToUpper(arg)
	if strings.HasPrefix(upper, "UTF8 ON") {
		s.reply(200, "Always in UTF8 mode.")
		return
	}
	if strings.HasPrefix(upper, "HASH") {
		parts := strings.Fields(arg)
		if len(parts) > 1 {
			algo := strings.ToUpper(parts[1])
			switch algo {
			case "SHA-1", "SHA-256", "SHA-512", "MD5", "CRC32":
				s.selectedHash = algo
				s.reply(200, algo+" selected.")
				return
			}
		}
	}
	s.reply(501, "Option not understood.")
}

func (s *session) handleMLSD(arg string) {
	if s.server.disableMLSD {
		s.reply(502, "Command not implemented.")
		return
	}

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

	s.reply(150, "MLSD listing started.")

	conn, err := s.data.take()
	if err != nil {
		s.replyError(err)
		return
	}

	w := s.rateLimitWriter(conn)
	for _, entry := range entries {
		fmt.Fprint(w, mlsEntry(entry))
	}
	conn.Close()
	s.reply(226, "MLSD listing complete.")
}

func (s *session) handleMLST(arg string) {
	jp, err := s.resolve(arg)
	if err != nil {
		s.replyError(err)
		return
	}
	info, err := s.fs.GetFileInfo(jp.Abs())
	if err != nil {
		s.replyError(err)
		return
	}
	s.replyMulti(250, []string{"Listing follows", " " + strings.TrimSuffix(mlsEntry(info), "\r\n"), "End"})
}

// mlsEntry renders one RFC 3659 machine-listing fact line: "type=...;
// size=...;modify=...; name\r\n".
func mlsEntry(info os.FileInfo) string {
	t := "file"
	if info.IsDir() {
		t = "dir"
	}
	return fmt.Sprintf("type=%s;size=%d;modify=%s; %s\r\n",
		t, info.Size(), info.ModTime().UTC().Format("20060102150405"), info.Name())
}
