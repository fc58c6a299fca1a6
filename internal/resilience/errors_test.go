package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
)

func TestIsTransient_ExplicitTransientError(t *testing.T) {
	err := NewTransientError(errors.New("server overloaded"), 503)
	if !IsTransient(err) {
		t.Error("expected TransientError to be transient")
	}
}

func TestIsTransient_WrappedTransientError(t *testing.T) {
	inner := NewTransientError(errors.New("rate limited"), 429)
	wrapped := fmt.Errorf("api call failed: %w", inner)
	if !IsTransient(wrapped) {
		t.Error("expected wrapped TransientError to be transient")
	}
}

func TestIsTransient_PermanentWinsOverHeuristics(t *testing.T) {
	inner := NewPermanentError(errors.New("connection reset by peer"), 400)
	wrapped := fmt.Errorf("api call failed: %w", inner)
	if IsTransient(wrapped) {
		t.Error("PermanentError in chain must not be transient")
	}
}

func TestIsTransient_NilError(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil error should not be transient")
	}
}

func TestIsTransient_RegularError(t *testing.T) {
	err := errors.New("invalid input: missing field")
	if IsTransient(err) {
		t.Error("regular error should not be transient")
	}
}

func TestIsTransient_ConnectionReset(t *testing.T) {
	err := fmt.Errorf("write tcp: %w", syscall.ECONNRESET)
	if !IsTransient(err) {
		t.Error("ECONNRESET should be transient")
	}
}

func TestIsTransient_ConnectionRefused(t *testing.T) {
	err := fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED)
	if !IsTransient(err) {
		t.Error("ECONNREFUSED should be transient")
	}
}

func TestIsTransient_NetworkTimeout(t *testing.T) {
	err := &net.DNSError{IsTimeout: true, Err: "timeout"}
	if !IsTransient(err) {
		t.Error("network timeout should be transient")
	}
}

func TestIsTransient_StringPatterns(t *testing.T) {
	cases := []string{
		"read: connection reset by peer",
		"write: broken pipe",
		"lookup api.example.com: temporary failure in name resolution",
		"dial tcp: lookup api.example.com: no such host",
		"net/http: TLS handshake timeout",
		"read tcp 10.0.0.1:443: i/o timeout",
	}
	for _, msg := range cases {
		if !IsTransient(errors.New(msg)) {
			t.Errorf("expected %q to be transient", msg)
		}
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{429, true},
		{500, true},
		{502, true},
		{503, true},
		{529, true},
		{400, false},
		{401, false},
		{404, false},
		{408, false},
		{200, false},
	}
	for _, c := range cases {
		if got := IsTransientHTTPStatus(c.code); got != c.want {
			t.Errorf("IsTransientHTTPStatus(%d) = %v, want %v", c.code, got, c.want)
		}
	}
}

func TestClassify(t *testing.T) {
	if got := Classify(NewTransientError(errors.New("busy"), 429)); got != "transient" {
		t.Errorf("expected transient, got %q", got)
	}
	if got := Classify(errors.New("bad request")); got != "permanent" {
		t.Errorf("expected permanent, got %q", got)
	}
}

func TestErrorMessagePreserved(t *testing.T) {
	base := errors.New("rate limit exceeded")
	te := NewTransientError(base, 429)
	if te.Error() != base.Error() {
		t.Errorf("expected wrapped message preserved, got %q", te.Error())
	}
	if !errors.Is(te, base) {
		t.Error("expected Unwrap to reach base error")
	}
}
