package server

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anonftpd/anonftpd/internal/ratelimit"
)

// loginState is the session's login state machine: NeedUser -> NeedPass ->
// LoggedIn. A USER sent in NeedPass restarts the attempt from NeedUser;
// LoggedIn is never left short of closing the connection.
type loginState int

const (
	stateNeedUser loginState = iota
	stateNeedPass
	stateLoggedIn
)

// session represents one FTP client control connection. Everything here
// is touched from exactly one goroutine (the one running serve) — there
// is no ABOR, no concurrent command processing, and no background
// transfer goroutine. A command handler runs to completion, including
// any data transfer it starts, before the next command is read.
type session struct {
	server *Server
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer

	sessionID string
	remoteIP  string

	state loginState
	user  string
	host  string // from HOST, RFC 7151

	root string // virtual filesystem root for this session; always "" (fs is already rooted by the driver)
	cwd  string // current working directory, virtual path, always starts with "/"
	fs   ClientContext

	transferType string // always "I"; TYPE A is rejected
	selectedHash string // default "SHA-256"
	renameFrom   string // pending source of RNFR, "" if none

	data dataChannel

	lastReplyCode int // set by reply/replyMulti, read back for metrics
}

// commandHandlers maps FTP verbs to handlers. USER/PASS/QUIT/NOOP are
// dispatched specially in handleCommand because they interact with
// session-lifecycle state the table-driven handlers don't need to see.
var commandHandlers = map[string]func(*session, string){
	"CWD":  (*session).handleCWD,
	"XCWD": (*session).handleCWD,
	"CDUP": func(s *session, _ string) { s.handleCWD("..") },
	"XCUP": func(s *session, _ string) { s.handleCWD("..") },
	"PWD":  func(s *session, _ string) { s.handlePWD() },
	"XPWD": func(s *session, _ string) { s.handlePWD() },
	"LIST": (*session).handleLIST,
	"NLST": (*session).handleNLST,
	"MKD":  (*session).handleMKD,
	"XMKD": (*session).handleMKD,
	"RMD":  (*session).handleRMD,
	"XRMD": (*session).handleRMD,
	"DELE": (*session).handleDELE,
	"RNFR": (*session).handleRNFR,
	"RNTO": (*session).handleRNTO,

	"RETR": (*session).handleRETR,
	"STOR": (*session).handleSTOR,

	"TYPE": (*session).handleTYPE,
	"PORT": (*session).handlePORT,
	"PASV": func(s *session, _ string) { s.handlePASV() },

	"SIZE": (*session).handleSIZE,
	"MDTM": (*session).handleMDTM,
	"FEAT": (*session).handleFEAT,
	"OPTS": (*session).handleOPTS,
	"MLSD": (*session).handleMLSD,
	"MLST": (*session).handleMLST,

	"ACCT": (*session).handleACCT,
	"MODE": (*session).handleMODE,
	"STRU": (*session).handleSTRU,
	"SYST": func(s *session, _ string) { s.handleSYST() },
	"STAT": (*session).handleSTAT,
	"HELP": (*session).handleHELP,
	"SITE": (*session).handleSITE,

	"HASH": (*session).handleHASH,
	"MFMT": (*session).handleMFMT,
}

// redactPath returns path with redaction applied if the server is
// configured for it.
func (s *session) redactPath(path string) string { return s.server.redactPath(path) }

// redactIP returns ip with redaction applied if the server is configured
// for it.
func (s *session) redactIP(ip string) string { return s.server.redactIP(ip) }

// rateLimitReader wraps r with the server's per-user bandwidth limit
// (innermost) and then the global one; both apply.
func (s *session) rateLimitReader(r io.Reader) io.Reader {
	if s.server.bandwidthLimitPerUser > 0 {
		r = ratelimit.NewReader(r, ratelimit.New(s.server.bandwidthLimitPerUser))
	}
	if s.server.globalLimiter != nil {
		r = ratelimit.NewReader(r, s.server.globalLimiter)
	}
	return r
}

// rateLimitWriter wraps w with the server's per-user bandwidth limit
// (innermost) and then the global one; both apply.
func (s *session) rateLimitWriter(w io.Writer) io.Writer {
	if s.server.bandwidthLimitPerUser > 0 {
		w = ratelimit.NewWriter(w, ratelimit.New(s.server.bandwidthLimitPerUser))
	}
	if s.server.globalLimiter != nil {
		w = ratelimit.NewWriter(w, s.server.globalLimiter)
	}
	return w
}

func newSession(server *Server, conn net.Conn) *session {
	remoteAddr := conn.RemoteAddr().String()
	remoteIP, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		remoteIP = remoteAddr
	}

	return &session{
		server:       server,
		conn:         conn,
		reader:       bufio.NewReader(conn),
		writer:       bufio.NewWriter(conn),
		sessionID:    uuid.NewString(),
		remoteIP:     remoteIP,
		cwd:          "/",
		selectedHash: "SHA-256",
		transferType: "I",
	}
}

// serve drives the session's command loop to completion. It always runs
// on the goroutine the server spawned for this connection: read one
// command, dispatch it (including any data transfer the handler
// performs), reply, repeat. There is no separate reader goroutine and no
// synchronization beyond what a single goroutine needs.
func (s *session) serve() {
	defer s.close()

	s.sendWelcome()
	s.server.logger.Info("session_started",
		"session_id", s.sessionID,
		"remote_ip", s.redactIP(s.remoteIP),
	)

	for {
		if s.server.readTimeout > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(s.server.readTimeout))
		} else if s.server.maxIdleTime > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(s.server.maxIdleTime))
		}

		line, err := readLine(s.reader)
		if err != nil {
			if err == ErrOversize {
				s.reply(500, "Command line too long.")
				continue
			}
			if err != ErrPeerClosed {
				s.server.logger.Warn("read error",
					"session_id", s.sessionID,
					"remote_ip", s.redactIP(s.remoteIP),
					"user", s.user,
					"error", err,
				)
			}
			return
		}

		_ = s.conn.SetReadDeadline(time.Time{})
		if s.server.writeTimeout > 0 {
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.server.writeTimeout))
		}

		quit := s.handleCommand(line)

		if s.server.writeTimeout > 0 {
			_ = s.conn.SetWriteDeadline(time.Time{})
		}

		if quit {
			return
		}
	}
}

func (s *session) sendWelcome() {
	msg := s.server.welcomeMessage
	switch {
	case strings.HasPrefix(msg, "220 "):
		s.reply(220, msg[4:])
	case strings.HasPrefix(msg, "220"):
		s.reply(220, msg[3:])
	default:
		s.reply(220, msg)
	}
}

func (s *session) close() {
	s.data.reset()
	if s.fs != nil {
		s.fs.Close()
	}
	s.conn.Close()

	s.server.logger.Debug("session closed",
		"session_id", s.sessionID,
		"remote_ip", s.redactIP(s.remoteIP),
		"user", s.user,
	)
}

// handleCommand parses and dispatches a single line. It returns true if
// the session should end, which happens only for QUIT.
func (s *session) handleCommand(line string) (quit bool) {
	verb, arg := parseCommand(line)
	if verb == "" {
		return false
	}

	logArg := s.redactPath(arg)
	if verb == "PASS" {
		logArg = "***"
	}
	s.server.logger.Debug("command received",
		"session_id", s.sessionID,
		"remote_ip", s.redactIP(s.remoteIP),
		"user", s.user,
		"cmd", verb,
		"arg", logArg,
	)

	if s.server.metricsCollector != nil {
		start := time.Now()
		s.lastReplyCode = 0
		defer func() {
			s.server.metricsCollector.RecordCommand(verb, s.lastReplyCode != 0 && s.lastReplyCode < 400, time.Since(start))
		}()
	}

	if s.server.disabledCommands[verb] {
		s.reply(502, "Command not implemented.")
		return false
	}

	switch verb {
	case "USER":
		s.handleUSER(arg)
		return false
	case "PASS":
		s.handlePASS(arg)
		return false
	case "QUIT":
		s.reply(221, "Service closing control connection.")
		return true
	case "NOOP":
		s.reply(200, "OK.")
		return false
	case "HOST":
		// RFC 7151: HOST precedes USER, so it bypasses the login gate;
		// handleHOST itself rejects it once USER has been sent.
		s.handleHOST(arg)
		return false
	}

	// Any command besides USER/PASS/QUIT/NOOP/HOST is rejected with 530
	// before login, whether or not it is otherwise a recognized verb.
	if s.state != stateLoggedIn {
		s.reply(530, "Please login with USER and PASS.")
		return false
	}

	handler, ok := commandHandlers[verb]
	if !ok {
		s.reply(500, "Syntax error, command unrecognized.")
		return false
	}

	handler(s, arg)
	return false
}

// reply sends a single-line response.
func (s *session) reply(code int, message string) {
	s.lastReplyCode = code
	if err := writeResponse(s.writer, code, message); err != nil {
		s.server.logger.Debug("write error", "session_id", s.sessionID, "error", err)
	}
}

// replyMulti sends a multi-line response (RFC 959 §4.2).
func (s *session) replyMulti(code int, lines []string) {
	s.lastReplyCode = code
	if err := writeMultiResponse(s.writer, code, lines); err != nil {
		s.server.logger.Debug("write error", "session_id", s.sessionID, "error", err)
	}
}

// logTransfer logs a completed file transfer in xferlog format:
// current-time transfer-time remote-host file-size filename transfer-type
// special-action-flag direction access-mode username service-name
// authentication-method authenticated-user-id completion-status.
func (s *session) logTransfer(cmd, filename string, bytes int64, duration time.Duration) {
	if s.server.transferLog == nil {
		return
	}

	transferTime := int64(duration.Seconds())
	if transferTime == 0 {
		transferTime = 1
	}

	direction := "o"
	if cmd == "STOR" {
		direction = "i"
	}

	accessMode := "r"
	if s.user == "anonymous" || s.user == "ftp" {
		accessMode = "a"
	}

	// Thu Dec 25 15:04:05 2025 1 127.0.0.1 1024 /file.txt b _ o a anonymous ftp 0 * c
	line := fmt.Sprintf("%s %d %s %d %s %s %s %s %s %s %s %s %s %s\n",
		time.Now().Format("Mon Jan 02 15:04:05 2006"),
		transferTime,
		s.redactIP(s.remoteIP),
		bytes,
		s.redactPath(filename),
		"b", // transfer type: binary (this server never negotiates ASCII)
		"_", // special action flag: none/compressed/uncompressed/tar
		direction,
		accessMode,
		s.user,
		"ftp",
		"0", // authentication method: none
		"*", // authenticated user id: not available
		"c", // completion status: complete (incomplete transfers aren't logged)
	)
	_, _ = s.server.transferLog.Write([]byte(line))
}
