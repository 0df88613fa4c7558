package server

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestReadLine(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"crlf terminated", "USER anonymous\r\n", "USER anonymous", nil},
		{"bare lf terminated", "NOOP\n", "NOOP", nil},
		{"embedded cr dropped", "PWD\r\r\n", "PWD", nil},
		{"empty line", "\n", "", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := bufio.NewReader(strings.NewReader(tc.in))
			got, err := readLine(r)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("line = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestReadLinePeerClosedBeforeAnyByte(t *testing.T) {
	r := bufio.NewReader(strings.NewReader(""))
	_, err := readLine(r)
	if !errors.Is(err, ErrPeerClosed) {
		t.Fatalf("err = %v, want ErrPeerClosed", err)
	}
}

func TestReadLineOversize(t *testing.T) {
	in := strings.Repeat("a", MaxCommandLength+10) + "\n"
	r := bufio.NewReader(strings.NewReader(in))
	_, err := readLine(r)
	if !errors.Is(err, ErrOversize) {
		t.Fatalf("err = %v, want ErrOversize", err)
	}
}

func TestReadLineConsumesOnlyOneLine(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("FIRST\r\nSECOND\r\n"))
	first, err := readLine(r)
	if err != nil || first != "FIRST" {
		t.Fatalf("first = %q, err = %v", first, err)
	}
	second, err := readLine(r)
	if err != nil || second != "SECOND" {
		t.Fatalf("second = %q, err = %v", second, err)
	}
}

func TestWriteResponse(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := writeResponse(w, 220, "Anonymous FTP server ready."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "220 Anonymous FTP server ready.\r\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWriteMultiResponse(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := writeMultiResponse(w, 211, []string{"Features:", " SIZE", " MDTM"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "211-Features:\r\n211- SIZE\r\n211  MDTM\r\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWriteMultiResponseSingleLine(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := writeMultiResponse(w, 200, []string{"Command okay."}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "200 Command okay.\r\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

// FuzzReadLine asserts readLine never panics on arbitrary input and, on
// success, returns a line with no trailing CR or LF.
func FuzzReadLine(f *testing.F) {
	f.Add([]byte("USER anonymous\r\n"))
	f.Add([]byte("\n"))
	f.Add([]byte("\r\n"))
	f.Add([]byte(strings.Repeat("a", MaxCommandLength+1) + "\n"))
	f.Add([]byte("no terminator"))
	f.Add([]byte{0x00, 0x01, '\n'})

	f.Fuzz(func(t *testing.T, data []byte) {
		r := bufio.NewReader(bytes.NewReader(data))
		line, err := readLine(r)
		if err != nil {
			return
		}
		if strings.ContainsAny(line, "\r\n") {
			t.Fatalf("line %q retains a CR or LF", line)
		}
	})
}
