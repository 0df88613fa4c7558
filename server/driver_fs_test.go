package server

import (
	"io"
	"os"
	"testing"
	"time"
)

func newTestDriver(t *testing.T, opts ...FSDriverOption) (*FSDriver, string) {
	t.Helper()
	dir := t.TempDir()
	d, err := NewFSDriver(dir, opts...)
	if err != nil {
		t.Fatalf("NewFSDriver: %v", err)
	}
	return d, dir
}

func TestNewFSDriverRejectsMissingRoot(t *testing.T) {
	if _, err := NewFSDriver("/no/such/directory/anywhere"); err == nil {
		t.Error("expected error for missing root")
	}
}

func TestNewFSDriverRejectsFileRoot(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/not-a-dir"
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFSDriver(path); err == nil {
		t.Error("expected error for non-directory root")
	}
}

func TestFSDriverAnonymousLogin(t *testing.T) {
	d, _ := newTestDriver(t)

	for _, user := range []string{"anonymous", "ftp"} {
		ctx, err := d.Authenticate(user, "me@example.com", "")
		if err != nil {
			t.Fatalf("Authenticate(%q): %v", user, err)
		}
		if ctx == nil {
			t.Fatalf("Authenticate(%q) returned nil context", user)
		}
	}
}

func TestFSDriverRejectsNonAnonymousByDefault(t *testing.T) {
	d, _ := newTestDriver(t)
	if _, err := d.Authenticate("bob", "secret", ""); err == nil {
		t.Error("expected error for non-anonymous login")
	}
}

func TestFSDriverDisableAnonymous(t *testing.T) {
	d, _ := newTestDriver(t, WithDisableAnonymous(true))
	if _, err := d.Authenticate("anonymous", "me@example.com", ""); err == nil {
		t.Error("expected error with anonymous disabled")
	}
}

func TestFSDriverAnonymousIsReadOnlyByDefault(t *testing.T) {
	d, dir := newTestDriver(t)
	ctx, err := d.Authenticate("anonymous", "me@example.com", "")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	if err := ctx.MakeDir("/newdir"); err != os.ErrPermission {
		t.Errorf("MakeDir err = %v, want os.ErrPermission", err)
	}
	if _, err := ctx.OpenFile("/file.txt", os.O_WRONLY|os.O_CREATE); err != os.ErrPermission {
		t.Errorf("OpenFile write err = %v, want os.ErrPermission", err)
	}

	if err := os.WriteFile(dir+"/readable.txt", []byte("hi"), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	rc, err := ctx.OpenFile("/readable.txt", os.O_RDONLY)
	if err != nil {
		t.Fatalf("OpenFile read: %v", err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil || string(b) != "hi" {
		t.Errorf("read = %q, %v, want \"hi\", nil", b, err)
	}
}

func TestFSDriverAnonWriteEnabled(t *testing.T) {
	d, _ := newTestDriver(t, WithAnonWrite(true))
	ctx, err := d.Authenticate("anonymous", "me@example.com", "")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if err := ctx.MakeDir("/uploads"); err != nil {
		t.Fatalf("MakeDir: %v", err)
	}
}

func TestFSDriverCustomAuthenticator(t *testing.T) {
	dir := t.TempDir()
	d, err := NewFSDriver(dir, WithAuthenticator(func(user, pass, host string) (string, bool, error) {
		if user != "bob" || pass != "hunter2" {
			return "", false, os.ErrPermission
		}
		return dir, false, nil
	}))
	if err != nil {
		t.Fatalf("NewFSDriver: %v", err)
	}

	if _, err := d.Authenticate("bob", "wrong", ""); err == nil {
		t.Error("expected error for wrong password")
	}
	ctx, err := d.Authenticate("bob", "hunter2", "")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if err := ctx.MakeDir("/work"); err != nil {
		t.Errorf("MakeDir: %v", err)
	}
}

func TestFSContextFileLifecycle(t *testing.T) {
	d, _ := newTestDriver(t, WithAnonWrite(true))
	ctx, err := d.Authenticate("anonymous", "me@example.com", "")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	if err := ctx.MakeDir("/sub"); err != nil {
		t.Fatalf("MakeDir: %v", err)
	}

	w, err := ctx.OpenFile("/sub/file.txt", os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		t.Fatalf("OpenFile write: %v", err)
	}
	if _, err := w.Write([]byte("hello world")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	info, err := ctx.GetFileInfo("/sub/file.txt")
	if err != nil {
		t.Fatalf("GetFileInfo: %v", err)
	}
	if info.Size() != int64(len("hello world")) {
		t.Errorf("size = %d, want %d", info.Size(), len("hello world"))
	}

	entries, err := ctx.ListDir("/sub")
	if err != nil {
		t.Fatalf("ListDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "file.txt" {
		t.Fatalf("entries = %+v", entries)
	}

	if err := ctx.Rename("/sub/file.txt", "/sub/renamed.txt"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if _, err := ctx.GetFileInfo("/sub/renamed.txt"); err != nil {
		t.Fatalf("GetFileInfo after rename: %v", err)
	}

	if err := ctx.DeleteFile("/sub/renamed.txt"); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if _, err := ctx.GetFileInfo("/sub/renamed.txt"); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error after delete, got %v", err)
	}

	if err := ctx.RemoveDir("/sub"); err != nil {
		t.Fatalf("RemoveDir: %v", err)
	}
}

func TestFSContextGetHash(t *testing.T) {
	d, dir := newTestDriver(t)
	if err := os.WriteFile(dir+"/hashme.txt", []byte("abc"), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	ctx, err := d.Authenticate("anonymous", "me@example.com", "")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	// SHA-256("abc")
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	got, err := ctx.GetHash("/hashme.txt", "SHA-256")
	if err != nil {
		t.Fatalf("GetHash: %v", err)
	}
	if got != want {
		t.Errorf("hash = %q, want %q", got, want)
	}

	if _, err := ctx.GetHash("/hashme.txt", "BOGUS"); err == nil {
		t.Error("expected error for unsupported algorithm")
	}
}

func TestFSContextSetTimeAndChmod(t *testing.T) {
	d, dir := newTestDriver(t, WithAnonWrite(true))
	if err := os.WriteFile(dir+"/f.txt", []byte("x"), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	ctx, err := d.Authenticate("anonymous", "me@example.com", "")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	mtime := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := ctx.SetTime("/f.txt", mtime); err != nil {
		t.Fatalf("SetTime: %v", err)
	}
	info, err := ctx.GetFileInfo("/f.txt")
	if err != nil {
		t.Fatalf("GetFileInfo: %v", err)
	}
	if !info.ModTime().Equal(mtime) {
		t.Errorf("ModTime = %v, want %v", info.ModTime(), mtime)
	}

	if err := ctx.Chmod("/f.txt", 0600); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
}

func TestFSContextChangeDirRejectsFile(t *testing.T) {
	d, dir := newTestDriver(t)
	if err := os.WriteFile(dir+"/file.txt", []byte("x"), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	ctx, err := d.Authenticate("anonymous", "me@example.com", "")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if err := ctx.ChangeDir("/file.txt"); err == nil {
		t.Error("expected error changing into a file")
	}
}
