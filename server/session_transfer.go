package server

import (
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

func (s *session) handleRETR(arg string) {
	jp, err := s.resolve(arg)
	if err != nil {
		s.replyError(err)
		return
	}

	file, err := s.fs.OpenFile(jp.Abs(), os.O_RDONLY)
	if err != nil {
		s.replyError(err)
		return
	}
	defer file.Close()

	s.reply(150, "Opening data connection for file transfer.")

	// The data socket is obtained after the mark and before the terminal
	// response — for PASV this is where accept actually blocks for the
	// client's connection.
	conn, err := s.data.take()
	if err != nil {
		s.replyError(err)
		return
	}

	start := time.Now()
	n, err := io.Copy(s.rateLimitWriter(conn), file)
	duration := time.Since(start)
	conn.Close() // the data socket closes before the terminal response, not after
	if err != nil {
		s.reply(426, "Connection closed; transfer aborted.")
		return
	}

	s.logTransfer("RETR", jp.Virtual(), n, duration)
	if s.server.metricsCollector != nil {
		s.server.metricsCollector.RecordTransfer("RETR", n, duration)
	}
	s.server.logger.Info("transfer_complete",
		"session_id", s.sessionID,
		"remote_ip", s.redactIP(s.remoteIP),
		"user", s.user,
		"operation", "RETR",
		"path", s.redactPath(jp.Virtual()),
		"bytes", n,
		"duration_ms", duration.Milliseconds(),
	)

	s.reply(226, "Transfer complete.")
}

// handleSTOR implements STOR. On any mid-transfer failure the partial
// file is deleted and 426 is returned, rather than left on disk for the
// client to mistake for a complete upload.
func (s *session) handleSTOR(arg string) {
	jp, err := s.resolve(arg)
	if err != nil {
		s.replyError(err)
		return
	}

	file, err := s.fs.OpenFile(jp.Abs(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		s.replyError(err)
		return
	}

	s.reply(150, "Ready to receive data.")

	conn, err := s.data.take()
	if err != nil {
		file.Close()
		s.replyError(err)
		return
	}

	start := time.Now()
	n, err := io.Copy(file, s.rateLimitReader(conn))
	duration := time.Since(start)
	conn.Close() // the data socket closes before the terminal response, not after
	file.Close()
	if err != nil {
		_ = s.fs.DeleteFile(jp.Abs())
		s.reply(426, "Connection closed; transfer aborted.")
		return
	}

	s.logTransfer("STOR", jp.Virtual(), n, duration)
	if s.server.metricsCollector != nil {
		s.server.metricsCollector.RecordTransfer("STOR", n, duration)
	}
	s.server.logger.Info("transfer_complete",
		"session_id", s.sessionID,
		"remote_ip", s.redactIP(s.remoteIP),
		"user", s.user,
		"operation", "STOR",
		"path", s.redactPath(jp.Virtual()),
		"bytes", n,
		"duration_ms", duration.Milliseconds(),
	)

	s.reply(226, "Transfer complete.")
}

// handleTYPE implements TYPE. This server only ever transfers in Image
// (binary) mode; ASCII (RFC 959 §3.1.1) is not supported, so any type
// other than I is rejected rather than silently accepted and ignored.
func (s *session) handleTYPE(arg string) {
	switch strings.ToUpper(strings.TrimSpace(arg)) {
	case "I":
		s.transferType = "I"
		s.reply(200, "Type set to I.")
	default:
		s.reply(504, "Command not implemented for that parameter.")
	}
}

func (s *session) handlePORT(arg string) {
	addr, err := parsePORT(arg)
	if err != nil {
		s.replyError(err)
		return
	}
	if !s.validateActiveIP(addr.IP) {
		s.reply(500, "Illegal PORT command.")
		return
	}
	s.data.setPort(addr)
	s.reply(200, "PORT command successful.")
}

func (s *session) handlePASV() {
	settings := s.fs.GetSettings()

	host, _, _ := net.SplitHostPort(s.conn.LocalAddr().String())
	if settings != nil && settings.PublicHost != "" {
		host = settings.PublicHost
	}

	pr := passivePortRange{}
	if settings != nil {
		pr = passivePortRange{Low: settings.PasvMinPort, High: settings.PasvMaxPort}
	}

	ln, err := pr.listen("", int(s.server.nextPassivePort()))
	if err != nil {
		s.reply(425, "Can't open passive connection.")
		return
	}

	ip := resolvePublicIP(host)
	s.data.setPasv(ln, ip)

	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)

	s.reply(227, formatPASV(ip, port))
}

// resolvePublicIP turns a configured/local host string into the IPv4
// address to advertise in a PASV response, resolving a hostname if
// needed (on every call). Falls back to 0.0.0.0 if it can't be determined.
func resolvePublicIP(host string) net.IP {
	if ip := net.ParseIP(host); ip != nil {
		return ip
	}
	addrs, err := net.LookupIP(host)
	if err == nil {
		for _, a := range addrs {
			if ip4 := a.To4(); ip4 != nil {
				return ip4
			}
		}
	}
	return net.IPv4zero
}

// validateActiveIP rejects a PORT target that doesn't match the control
// connection's peer — the standard anti-bounce-attack check.
func (s *session) validateActiveIP(ip net.IP) bool {
	host, _, err := net.SplitHostPort(s.conn.RemoteAddr().String())
	if err != nil {
		return false
	}
	remote := net.ParseIP(host)
	return remote != nil && ip.Equal(remote)
}
