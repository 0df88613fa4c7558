package server

import (
	"path"
	"strings"
)

// maxPathLength is the hard cap on a composed virtual path.
const maxPathLength = 4096

// JailedPath is the only value file operations accept. It bundles the
// filesystem-absolute path (for I/O, "root+virtual") with its
// corresponding virtual path (for PWD/MKD/257 output, always rooted at
// "/" regardless of where root actually lives on disk). Constructing one
// via resolvePath is the single choke point every path argument must
// pass through.
type JailedPath struct {
	abs     string // root + virtual, e.g. "/srv/ftp/pub/file.txt"
	virtual string // client-visible path, e.g. "/pub/file.txt"
}

// Abs returns the canonical filesystem path.
func (p JailedPath) Abs() string { return p.abs }

// Virtual returns the canonical virtual (client-visible) path.
func (p JailedPath) Virtual() string { return p.virtual }

// resolvePath resolves arg against cwd and root.
//
// arg is treated as absolute (virtual-rooted) if it starts with "/", else
// relative to cwd. Segments are pushed/popped on a stack: "" and "."
// are ignored, ".." pops one segment (or is a no-op at the already-empty
// root — excess ".." never fails). The result is lexical only: no
// syscall, no symlink resolution, so a client can never win a TOCTOU race
// against the check by manipulating the filesystem between the check and
// the actual open.
func resolvePath(root, cwd, arg string) (JailedPath, error) {
	if len(arg) > maxPathLength {
		return JailedPath{}, ErrInvalidPath
	}
	if strings.IndexByte(arg, 0) >= 0 || strings.ContainsAny(arg, "\r\n") {
		return JailedPath{}, ErrInvalidPath
	}

	var base string
	if arg == "" {
		base = cwd
	} else if strings.HasPrefix(arg, "/") {
		base = arg
	} else {
		base = cwd + "/" + arg
	}

	segments := strings.Split(base, "/")
	stack := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			if strings.IndexByte(seg, 0) >= 0 {
				return JailedPath{}, ErrInvalidPath
			}
			stack = append(stack, seg)
		}
	}

	virtual := "/" + strings.Join(stack, "/")
	if len(virtual) > maxPathLength {
		return JailedPath{}, ErrInvalidPath
	}

	return JailedPath{
		abs:     path.Join(root, virtual),
		virtual: virtual,
	}, nil
}

// resolve is the session-scoped convenience wrapper: it resolves arg
// against the session's current root and cwd.
func (s *session) resolve(arg string) (JailedPath, error) {
	return resolvePath(s.root, s.cwd, arg)
}
