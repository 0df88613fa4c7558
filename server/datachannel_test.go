package server

import (
	"errors"
	"net"
	"testing"
)

func TestParsePORT(t *testing.T) {
	addr, err := parsePORT("127,0,0,1,200,15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !addr.IP.Equal(net.IPv4(127, 0, 0, 1)) {
		t.Errorf("IP = %v, want 127.0.0.1", addr.IP)
	}
	wantPort := 200<<8 | 15
	if addr.Port != wantPort {
		t.Errorf("port = %d, want %d", addr.Port, wantPort)
	}
}

func TestParsePORTRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"127,0,0,1,200",
		"127,0,0,1,200,15,99",
		"256,0,0,1,200,15",
		"127,0,0,1,0,0",
		"a,b,c,d,e,f",
	}
	for _, arg := range cases {
		if _, err := parsePORT(arg); err == nil {
			t.Errorf("parsePORT(%q) succeeded, want error", arg)
		}
	}
}

func TestFormatPASV(t *testing.T) {
	got := formatPASV(net.IPv4(127, 0, 0, 1), 200<<8|15)
	want := "Entering Passive Mode (127,0,0,1,200,15)."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDataChannelPortTake(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan struct{})
	go func() {
		c, err := ln.Accept()
		if err == nil {
			c.Close()
		}
		close(accepted)
	}()

	var d dataChannel
	d.setPort(ln.Addr().(*net.TCPAddr))

	conn, err := d.take()
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	conn.Close()
	<-accepted

	if d.state != dataChannelNone {
		t.Errorf("state after take = %v, want none", d.state)
	}
}

func TestDataChannelPasvTake(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	var d dataChannel
	d.setPasv(ln, net.IPv4(127, 0, 0, 1))

	dialed := make(chan struct{})
	go func() {
		c, err := net.Dial("tcp", ln.Addr().String())
		if err == nil {
			c.Close()
		}
		close(dialed)
	}()

	conn, err := d.take()
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	conn.Close()
	<-dialed

	if d.state != dataChannelNone {
		t.Errorf("state after take = %v, want none", d.state)
	}
	if d.listener != nil {
		t.Errorf("listener not nil after take")
	}
}

func TestDataChannelTakeWithoutSetReturnsErrNoDataChannel(t *testing.T) {
	var d dataChannel
	_, err := d.take()
	if !errors.Is(err, ErrNoDataChannel) {
		t.Fatalf("err = %v, want ErrNoDataChannel", err)
	}
}

func TestDataChannelSetPortReplacesPendingPasv(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	var d dataChannel
	d.setPasv(ln, net.IPv4(127, 0, 0, 1))
	d.setPort(&net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4242})

	if d.state != dataChannelPort {
		t.Errorf("state = %v, want port", d.state)
	}

	// The stale passive listener must have been closed by setPort; a
	// second accept attempt should fail.
	_, err = ln.Accept()
	if err == nil {
		t.Error("expected accept on closed listener to fail")
	}
}

func TestPassivePortRangeListenUnset(t *testing.T) {
	var r passivePortRange
	ln, err := r.listen("127.0.0.1", 0)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
}

func TestPassivePortRangeListenWithinBounds(t *testing.T) {
	// Find a free port to anchor a narrow range around.
	probe, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("probe listen: %v", err)
	}
	port := probe.Addr().(*net.TCPAddr).Port
	probe.Close()

	r := passivePortRange{Low: port, High: port + 4}
	ln, err := r.listen("127.0.0.1", 0)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	got := ln.Addr().(*net.TCPAddr).Port
	if got < r.Low || got > r.High {
		t.Errorf("port %d outside range [%d,%d]", got, r.Low, r.High)
	}
}
