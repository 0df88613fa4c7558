package server

import "testing"

func TestNewServerRequiresDriver(t *testing.T) {
	if _, err := NewServer(":0"); err == nil {
		t.Error("expected error when no driver is configured")
	}
}

func TestWithDriverRejectsDoubleSet(t *testing.T) {
	dir := t.TempDir()
	d1, err := NewFSDriver(dir)
	if err != nil {
		t.Fatalf("NewFSDriver: %v", err)
	}
	d2, err := NewFSDriver(dir)
	if err != nil {
		t.Fatalf("NewFSDriver: %v", err)
	}

	_, err = NewServer(":0", WithDriver(d1), WithDriver(d2))
	if err == nil {
		t.Error("expected error setting driver twice")
	}
}

func TestWithDisableCommandsUsesPredefinedGroups(t *testing.T) {
	dir := t.TempDir()
	d, err := NewFSDriver(dir)
	if err != nil {
		t.Fatalf("NewFSDriver: %v", err)
	}

	s, err := NewServer(":0", WithDriver(d), WithDisableCommands(WriteCommands...))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	for _, cmd := range []string{"STOR", "DELE", "RMD", "MKD"} {
		if !s.disabledCommands[cmd] {
			t.Errorf("expected %s to be disabled", cmd)
		}
	}
	if s.disabledCommands["RETR"] {
		t.Error("RETR should not be disabled")
	}
}

func TestWithWelcomeMessageDefault(t *testing.T) {
	dir := t.TempDir()
	d, err := NewFSDriver(dir)
	if err != nil {
		t.Fatalf("NewFSDriver: %v", err)
	}
	s, err := NewServer(":0", WithDriver(d))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if s.welcomeMessage == "" {
		t.Error("expected a non-empty default welcome message")
	}
}
