// Package server implements the core of an anonymous FTP server: a
// sequential, per-connection command loop speaking the RFC 959 control
// protocol plus the small set of extensions (RFC 3659, RFC 7151, HASH,
// MFMT) that modern clients expect.
//
// # Overview
//
// This package lets you:
//   - Embed an anonymous FTP server into a Go application, with a pluggable
//     Driver deciding what the anonymous login may access
//   - Serve a directory tree through a virtual root, enforced independently
//     of the backing filesystem
//   - Swap the storage backend by implementing Driver/ClientContext
//   - Drive both PORT (active) and PASV (passive) data connections
//
// Each accepted connection runs in its own goroutine, but within a single
// session commands are handled strictly sequentially: there is no
// concurrent command processing, and no ABOR. A session holds at most one
// data channel descriptor at a time.
//
// # Getting Started
//
//	package main
//
//	import (
//	    "log"
//	    "github.com/anonftpd/anonftpd/server"
//	)
//
//	func main() {
//	    driver, err := server.NewFSDriver("/srv/ftp")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    s, err := server.NewServer(":21", server.WithDriver(driver))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    log.Fatal(s.ListenAndServe())
//	}
//
// # Custom Drivers
//
// Implement Driver to authenticate and produce a ClientContext, and
// ClientContext to perform file operations against any backend (cloud
// storage, an in-memory tree, a CMS). Every path handed to a ClientContext
// method has already been resolved against the session's virtual root and
// jailed (see the ClientContext doc comment); implementations do not need
// to defend against "..", NUL bytes, or newlines themselves. The jail is
// lexical only and does not resolve symbolic links.
//
//	type Driver interface {
//	    Authenticate(user, pass, host string) (ClientContext, error)
//	}
//
// # Anonymous Access
//
// The session accepts only the user name "anonymous" (any other USER gets
// 530) with an email-shaped password, and then hands that login to the
// Driver. NewFSDriver's default grants it read-only access rooted at the
// given directory:
//
//	driver, _ := server.NewFSDriver("/srv/ftp")
//
// Write access for anonymous users, a custom Authenticator (called with
// user "anonymous" and the email password), or disabling anonymous login
// entirely are all available as FSDriverOptions:
//
//	driver, _ := server.NewFSDriver("/srv/ftp",
//	    server.WithAnonWrite(true),
//	    server.WithDisableAnonymous(false),
//	)
//
// # Passive Mode Configuration
//
// Behind NAT or in a container, set the advertised host and the port
// range PASV picks from:
//
//	driver, _ := server.NewFSDriver("/srv/ftp", server.WithSettings(&server.Settings{
//	    PublicHost:  "ftp.example.com",
//	    PasvMinPort: 30000,
//	    PasvMaxPort: 30100,
//	}))
//
// Firewalls and container port mappings need to cover the full passive
// range, not just the control port.
//
// # Server Configuration
//
//	s, _ := server.NewServer(":21",
//	    server.WithDriver(driver),
//	    server.WithMaxConnections(100, 0),
//	    server.WithMaxIdleTime(10*time.Minute),
//	    server.WithBandwidthLimit(1<<20, 0),
//	    server.WithLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil))),
//	)
//
// # RFC Compliance
//
// This package implements:
//   - RFC 959 (Base FTP, excluding ASCII type, Block and Compressed
//     transfer modes, and Record and Page structures)
//   - RFC 1123 (minimum command set, ACCT accepted and ignored)
//   - RFC 1635 (anonymous FTP login convention)
//   - RFC 2389 (FEAT/OPTS feature negotiation)
//   - RFC 3659 (SIZE, MDTM, MLST, MLSD)
//   - RFC 7151 (HOST command)
//   - draft-somers-ftp-mfxx (MFMT)
//   - draft-bryan-ftp-hash (HASH)
//
// TLS (RFC 4217), EPSV/EPRT (RFC 2428), REST, APPE, STOU and ABOR are out
// of scope for this anonymous, read-mostly server.
package server
