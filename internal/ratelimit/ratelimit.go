// Package ratelimit provides bandwidth throttling for FTP data transfers.
//
// It wraps golang.org/x/time/rate's token bucket limiter behind a small
// io.Reader/io.Writer adapter so callers can chain a limit onto any
// transfer stream without caring whether the limit is global, per-user,
// or absent.
package ratelimit

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// Limiter is a bytes-per-second token bucket. A nil *Limiter is a valid,
// unlimited limiter (NewReader/NewWriter pass the stream through).
type Limiter struct {
	rl *rate.Limiter
}

// New creates a limiter capped at bytesPerSecond, with a burst allowance
// of one second of traffic or 64KiB, whichever is larger. Returns nil (meaning unlimited) if bytesPerSecond <= 0.
func New(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}
	// Burst must cover the largest single chunk take() is ever called
	// with (the writer's 64KiB chunk), or WaitN rejects the request
	// outright instead of waiting for it.
	burst := bytesPerSecond
	if burst < 64*1024 {
		burst = 64 * 1024
	}
	return &Limiter{rl: rate.NewLimiter(rate.Limit(bytesPerSecond), int(burst))}
}

// take blocks until n bytes' worth of tokens are available.
func (l *Limiter) take(n int) {
	if l == nil || n <= 0 {
		return
	}
	_ = l.rl.WaitN(context.Background(), n)
}

type reader struct {
	r       io.Reader
	limiter *Limiter
}

// NewReader wraps r so reads are throttled by limiter. A nil limiter
// returns r unchanged.
func NewReader(r io.Reader, limiter *Limiter) io.Reader {
	if limiter == nil {
		return r
	}
	return &reader{r: r, limiter: limiter}
}

func (r *reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	// Cap the chunk so WaitN's burst ceiling (at least 64KiB, see New)
	// is never exceeded by a single call.
	const maxChunk = 8 * 1024
	readSize := len(p)
	if readSize > maxChunk {
		readSize = maxChunk
	}
	r.limiter.take(readSize)
	return r.r.Read(p[:readSize])
}

type writer struct {
	w       io.Writer
	limiter *Limiter
}

// NewWriter wraps w so writes are throttled by limiter. A nil limiter
// returns w unchanged.
func NewWriter(w io.Writer, limiter *Limiter) io.Writer {
	if limiter == nil {
		return w
	}
	return &writer{w: w, limiter: limiter}
}

func (w *writer) Write(p []byte) (int, error) {
	const maxChunk = 64 * 1024

	total := 0
	for total < len(p) {
		chunk := len(p) - total
		if chunk > maxChunk {
			chunk = maxChunk
		}
		w.limiter.take(chunk)
		n, err := w.w.Write(p[total : total+chunk])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
