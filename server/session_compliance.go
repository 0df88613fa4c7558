package server

import (
	"os"
	"strconv"
	"strings"
)

// handleACCT handles ACCT. RFC 1123 requires the verb exist; an anonymous
// server has no use for it.
func (s *session) handleACCT(_ string) {
	s.reply(202, "Command not implemented, superfluous at this site.")
}

// handleMODE handles MODE. Only Stream (S) is supported.
func (s *session) handleMODE(arg string) {
	switch strings.ToUpper(strings.TrimSpace(arg)) {
	case "S":
		s.reply(200, "Mode set to Stream.")
	case "B":
		s.reply(504, "Block mode not implemented.")
	case "C":
		s.reply(504, "Compressed mode not implemented.")
	default:
		s.reply(504, "Command not implemented for that parameter.")
	}
}

// handleSTRU handles STRU. Only File (F) is supported.
func (s *session) handleSTRU(arg string) {
	switch strings.ToUpper(strings.TrimSpace(arg)) {
	case "F":
		s.reply(200, "Structure set to File.")
	case "R":
		s.reply(504, "Record structure not implemented.")
	case "P":
		s.reply(504, "Page structure not implemented.")
	default:
		s.reply(504, "Command not implemented for that parameter.")
	}
}

// handleSYST handles SYST. It reports the configured server name
// (WithServerName), "UNIX Type: L8" by default regardless of the host OS.
func (s *session) handleSYST() {
	s.reply(215, s.server.serverName)
}

func (s *session) handleSTAT(arg string) {
	if arg != "" {
		s.reply(502, "STAT with path not implemented. Use LIST instead.")
		return
	}

	lines := []string{"Status:"}
	if s.state == stateLoggedIn {
		lines = append(lines, " Logged in as: "+s.user)
	} else {
		lines = append(lines, " Not logged in")
	}
	lines = append(lines, " TYPE: "+s.transferType+"; STRUcture: File; transfer MODE: Stream")
	switch s.data.state {
	case dataChannelPasv:
		lines = append(lines, " Passive mode armed")
	case dataChannelPort:
		lines = append(lines, " Active mode armed")
	}
	lines = append(lines, "End of status")
	s.replyMulti(211, lines)
}

func (s *session) handleHELP(arg string) {
	if arg != "" {
		s.reply(214, "No help available for "+arg+".")
		return
	}
	s.replyMulti(214, []string{
		"The following commands are supported:",
		" USER PASS QUIT ACCT NOOP",
		" CWD CDUP PWD MKD XMKD RMD XRMD DELE",
		" LIST NLST MLSD MLST",
		" RETR STOR RNFR RNTO",
		" TYPE MODE STRU PORT PASV",
		" SIZE MDTM FEAT OPTS",
		" SYST STAT HELP SITE",
		" HOST HASH MFMT",
		"End of help",
	})
}

// handleSITE implements SITE CHMOD; other SITE subcommands only return
// informational text.
func (s *session) handleSITE(arg string) {
	if arg == "" {
		s.reply(501, "SITE command requires parameters.")
		return
	}

	parts := strings.Fields(arg)
	switch strings.ToUpper(parts[0]) {
	case "HELP":
		s.reply(214, "Available SITE commands: HELP, CHMOD")
	case "CHMOD":
		if len(parts) < 3 {
			s.reply(501, "Syntax error in parameters or arguments.")
			return
		}
		mode, err := strconv.ParseUint(parts[1], 8, 32)
		if err != nil || mode > 0777 {
			s.reply(501, "Invalid mode.")
			return
		}

		jp, err := s.resolve(strings.Join(parts[2:], " "))
		if err != nil {
			s.replyError(err)
			return
		}
		if err := s.fs.Chmod(jp.Abs(), os.FileMode(mode)); err != nil {
			s.replyError(err)
			return
		}
		s.reply(200, "SITE CHMOD command successful.")
	default:
		s.reply(502, "SITE command not implemented.")
	}
}
