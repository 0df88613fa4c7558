package server

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"hash/crc32"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// FSDriver implements Driver using the local filesystem.
//
// Security model: every path a session hands to a ClientContext method has
// already been run through resolvePath (server/jail.go) and is therefore
// guaranteed to be a lexically-confined virtual path with no "..", no NUL
// byte, and no embedded newline. fsContext only has to map that virtual
// path onto its afero.Fs (itself rooted at rootPath via
// afero.NewBasePathFs, a second, also lexical, path-prefix check). Neither
// layer resolves symbolic links: the OS filesystem follows a symlink under
// rootPath wherever it points.
//
// Default behavior (no options):
//   - Allows anonymous login ("ftp" or "anonymous" users only)
//   - Anonymous users have read-only access
//   - All operations are confined to the root path
type FSDriver struct {
	rootPath string

	// authenticator is an optional hook to validate credentials and return
	// the root path for the user. If nil, defaults to strict
	// anonymous-only, read-only access, unless disableAnonymous is true.
	authenticator func(user, pass, host string) (string, bool, error)

	disableAnonymous bool
	enableAnonWrite  bool

	settings *Settings
}

// FSDriverOption is a functional option for configuring an FSDriver.
type FSDriverOption func(*FSDriver)

// NewFSDriver creates a new filesystem driver with the given root path and
// options. Returns an error if the root path does not exist or is not a
// directory.
func NewFSDriver(rootPath string, options ...FSDriverOption) (*FSDriver, error) {
	info, err := os.Stat(rootPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("root path is not a directory: " + rootPath)
	}

	d := &FSDriver{rootPath: rootPath}
	for _, opt := range options {
		opt(d)
	}
	return d, nil
}

// WithAuthenticator sets a custom authentication function receiving
// user/pass/host and returning the root directory and read-only flag for
// that user.
func WithAuthenticator(fn func(user, pass, host string) (string, bool, error)) FSDriverOption {
	return func(d *FSDriver) { d.authenticator = fn }
}

// WithDisableAnonymous disables anonymous login. Only effective when no
// custom authenticator is set.
func WithDisableAnonymous(disable bool) FSDriverOption {
	return func(d *FSDriver) { d.disableAnonymous = disable }
}

// WithAnonWrite enables write access for anonymous users. Default is
// read-only.
func WithAnonWrite(enable bool) FSDriverOption {
	return func(d *FSDriver) { d.enableAnonWrite = enable }
}

// WithSettings sets passive-mode and related server settings.
func WithSettings(settings *Settings) FSDriverOption {
	return func(d *FSDriver) { d.settings = settings }
}

// Authenticate returns a new fsContext for the user. Anonymous login
// requires username "ftp" or "anonymous"; the password is checked
// separately by the session (RFC 1635 email-shaped password convention).
func (d *FSDriver) Authenticate(user, pass, host string) (ClientContext, error) {
	rootPath := d.rootPath
	readOnly := false

	if d.authenticator != nil {
		var err error
		rootPath, readOnly, err = d.authenticator(user, pass, host)
		if err != nil {
			return nil, err
		}
	} else {
		if d.disableAnonymous {
			return nil, errors.New("anonymous login disabled")
		}
		if user != "ftp" && user != "anonymous" {
			return nil, errors.New("only anonymous login allowed")
		}
		readOnly = !d.enableAnonWrite
	}

	return &fsContext{
		fs:       afero.NewBasePathFs(afero.NewOsFs(), rootPath),
		readOnly: readOnly,
		settings: d.settings,
	}, nil
}

// fsContext implements ClientContext over an afero.Fs rooted at the
// user's home directory. It does not track a cwd itself — the session
// (server/session.go) owns cwd/root and always passes fsContext an
// already-jailed virtual path (server/jail.go), so fsContext is a thin,
// stateless adapter from that path onto its afero.Fs.
type fsContext struct {
	fs       afero.Fs
	readOnly bool
	settings *Settings
}

func (c *fsContext) Close() error { return nil }

func (c *fsContext) ChangeDir(path string) error {
	info, err := c.fs.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New("not a directory")
	}
	return nil
}

// GetWd is unused: session tracks cwd itself. Kept to satisfy the
// ClientContext interface for drivers that do own their own cwd.
func (c *fsContext) GetWd() (string, error) { return "/", nil }

func (c *fsContext) MakeDir(path string) error {
	if c.readOnly {
		return os.ErrPermission
	}
	return c.fs.Mkdir(path, 0755)
}

func (c *fsContext) RemoveDir(path string) error {
	if c.readOnly {
		return os.ErrPermission
	}
	return c.fs.RemoveAll(path)
}

func (c *fsContext) DeleteFile(path string) error {
	if c.readOnly {
		return os.ErrPermission
	}
	return c.fs.Remove(path)
}

func (c *fsContext) Rename(fromPath, toPath string) error {
	if c.readOnly {
		return os.ErrPermission
	}
	return c.fs.Rename(fromPath, toPath)
}

func (c *fsContext) ListDir(path string) ([]os.FileInfo, error) {
	f, err := c.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries, err := f.Readdir(-1)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *fsContext) OpenFile(path string, flag int) (io.ReadWriteCloser, error) {
	if c.readOnly {
		if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND) != 0 {
			return nil, os.ErrPermission
		}
	}
	return c.fs.OpenFile(path, flag, 0644)
}

func (c *fsContext) GetFileInfo(path string) (os.FileInfo, error) {
	return c.fs.Stat(path)
}

// GetHash calculates the hash of a file for the HASH command
// (draft-bryan-ftp-hash). Supported algorithms: SHA-256, SHA-512, SHA-1,
// MD5, CRC32.
func (c *fsContext) GetHash(path string, algo string) (string, error) {
	f, err := c.fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var h interface {
		io.Writer
		Sum(b []byte) []byte
	}
	switch strings.ToUpper(algo) {
	case "SHA-256", "SHA256":
		h = sha256.New()
	case "SHA-512", "SHA512":
		h = sha512.New()
	case "SHA-1", "SHA1":
		h = sha1.New()
	case "MD5":
		h = md5.New()
	case "CRC32":
		h = crc32.NewIEEE()
	default:
		return "", errors.New("unsupported algorithm")
	}

	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SetTime sets a file's modification time (MFMT).
func (c *fsContext) SetTime(path string, t time.Time) error {
	if c.readOnly {
		return os.ErrPermission
	}
	return c.fs.Chtimes(path, t, t)
}

// Chmod changes a file's mode (SITE CHMOD).
func (c *fsContext) Chmod(path string, mode os.FileMode) error {
	if c.readOnly {
		return os.ErrPermission
	}
	if mode > 0777 {
		return os.ErrInvalid
	}
	return c.fs.Chmod(path, mode)
}

func (c *fsContext) GetSettings() *Settings {
	if c.settings == nil {
		return &Settings{}
	}
	return c.settings
}
