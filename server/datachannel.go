package server

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// dataChannelState is the data channel's sum type: a session holds at
// most one of none/port/pasv at a time. A new PORT or PASV always tears
// down and replaces whatever was pending before it, and a successful
// take always collapses the state back to none.
type dataChannelState int

const (
	dataChannelNone dataChannelState = iota
	dataChannelPort
	dataChannelPasv
)

// dataChannel tracks the pending data connection for one session. It is
// not safe for concurrent use; sessions only ever touch it from their own
// single command-processing goroutine — there is no ABOR, no concurrent
// commands.
type dataChannel struct {
	state dataChannelState

	// set when state == dataChannelPort
	remoteAddr *net.TCPAddr

	// set when state == dataChannelPasv
	listener net.Listener
	localIP  net.IP
}

// reset tears down any pending passive listener and returns to none. Safe
// to call regardless of current state.
func (d *dataChannel) reset() {
	if d.listener != nil {
		d.listener.Close()
	}
	*d = dataChannel{}
}

// setPort switches the channel to active mode: the data connection will
// be dialed out to remoteAddr when take is called. This replaces (and,
// if passive, closes) whatever was previously pending.
func (d *dataChannel) setPort(remoteAddr *net.TCPAddr) {
	d.reset()
	d.state = dataChannelPort
	d.remoteAddr = remoteAddr
}

// setPasv switches the channel to passive mode: listener is now owned by
// d and will be closed either by a future take (single connection
// accepted then listener closed) or by reset.
func (d *dataChannel) setPasv(listener net.Listener, localIP net.IP) {
	d.reset()
	d.state = dataChannelPasv
	d.listener = listener
	d.localIP = localIP
}

// take consumes the pending data channel, establishing the actual data
// connection (dialing out for PORT, accepting for PASV), and resets the
// channel to none regardless of outcome — a data channel is good for
// exactly one transfer.
func (d *dataChannel) take() (net.Conn, error) {
	switch d.state {
	case dataChannelPort:
		addr := d.remoteAddr
		d.reset()
		conn, err := net.Dial("tcp", addr.String())
		if err != nil {
			return nil, newErr(kindDataChannelFailed, "cannot connect to "+addr.String())
		}
		return conn, nil

	case dataChannelPasv:
		l := d.listener
		d.listener = nil
		d.reset()
		conn, err := l.Accept()
		l.Close()
		if err != nil {
			return nil, newErr(kindDataChannelFailed, "passive accept failed")
		}
		return conn, nil

	default:
		return nil, ErrNoDataChannel
	}
}

// parsePORT parses an RFC 959 §4.1.2 "h1,h2,h3,h4,p1,p2" address.
func parsePORT(arg string) (*net.TCPAddr, error) {
	parts := strings.Split(arg, ",")
	if len(parts) != 6 {
		return nil, newErr(kindSyntax, "malformed PORT argument")
	}
	nums := make([]int, 6)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 255 {
			return nil, newErr(kindSyntax, "malformed PORT argument")
		}
		nums[i] = n
	}
	ip := net.IPv4(byte(nums[0]), byte(nums[1]), byte(nums[2]), byte(nums[3]))
	port := nums[4]<<8 | nums[5]
	if port == 0 {
		return nil, newErr(kindSyntax, "malformed PORT argument")
	}
	return &net.TCPAddr{IP: ip, Port: port}, nil
}

// formatPASV renders the 227 response body for ip:port per RFC 959
// §4.1.2, e.g. "Entering Passive Mode (127,0,0,1,200,15)."
func formatPASV(ip net.IP, port int) string {
	ip4 := ip.To4()
	if ip4 == nil {
		ip4 = net.IPv4zero.To4()
	}
	return fmt.Sprintf("Entering Passive Mode (%d,%d,%d,%d,%d,%d).",
		ip4[0], ip4[1], ip4[2], ip4[3], port>>8, port&0xff)
}

// passivePortRange is an inclusive [Low, High] range the server picks
// listening ports from in passive mode. A zero value (Low == High == 0)
// means "let the kernel choose an ephemeral port".
type passivePortRange struct {
	Low, High int
}

// listen opens a listener on the given host within the range, trying each
// port in turn starting from an offset supplied by the caller (the
// server's round-robin counter) so repeated PASVs don't pile onto the
// same port. If the range is
// unset, it opens on port 0 (kernel-assigned).
func (r passivePortRange) listen(host string, start int) (net.Listener, error) {
	if r.Low == 0 && r.High == 0 {
		return net.Listen("tcp", net.JoinHostPort(host, "0"))
	}
	span := r.High - r.Low + 1
	if span <= 0 {
		return nil, fmt.Errorf("invalid passive port range [%d,%d]", r.Low, r.High)
	}
	var lastErr error
	for i := 0; i < span; i++ {
		port := r.Low + (start+i)%span
		l, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err == nil {
			return l, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no free port in range [%d,%d]: %w", r.Low, r.High, lastErr)
}
