package server

import "regexp"

// anonEmailPattern matches an RFC 1635 "complete email address" password,
// case-insensitively.
var anonEmailPattern = regexp.MustCompile(`(?i)^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

func (s *session) handleUSER(user string) {
	switch s.state {
	case stateNeedPass:
		// A second USER resets the login attempt.
		s.user = ""
		s.state = stateNeedUser
		fallthrough
	case stateNeedUser:
		if user != "anonymous" {
			s.reply(530, "This server only accepts anonymous logins.")
			return
		}
		s.user = user
		s.state = stateNeedPass
		s.reply(331, "Anonymous login ok, send your complete email as password.")
	case stateLoggedIn:
		s.reply(530, "Already logged in.")
	}
}

func (s *session) handlePASS(pass string) {
	switch s.state {
	case stateNeedUser:
		s.reply(503, "Login with USER first.")
	case stateNeedPass:
		if !anonEmailPattern.MatchString(pass) {
			s.reply(530, "Login incorrect.")
			s.server.logger.Warn("authentication_failed",
				"session_id", s.sessionID,
				"remote_ip", s.redactIP(s.remoteIP),
				"user", s.user,
			)
			if s.server.metricsCollector != nil {
				s.server.metricsCollector.RecordAuthentication(false, s.user)
			}
			return
		}

		ctx, err := s.server.driver.Authenticate(s.user, pass, s.host)
		if err != nil {
			s.reply(530, "Login incorrect.")
			s.server.logger.Warn("authentication_failed",
				"session_id", s.sessionID,
				"remote_ip", s.redactIP(s.remoteIP),
				"user", s.user,
				"reason", err.Error(),
			)
			if s.server.metricsCollector != nil {
				s.server.metricsCollector.RecordAuthentication(false, s.user)
			}
			return
		}

		s.fs = ctx
		s.state = stateLoggedIn

		s.server.logger.Info("authentication_success",
			"session_id", s.sessionID,
			"remote_ip", s.redactIP(s.remoteIP),
			"user", s.user,
		)
		if s.server.metricsCollector != nil {
			s.server.metricsCollector.RecordAuthentication(true, s.user)
		}

		s.replyMulti(230, []string{
			"Login successful.",
			"Welcome to the FTP server! You are logged in as anonymous.",
		})
	case stateLoggedIn:
		s.reply(503, "Already logged in.")
	}
}
