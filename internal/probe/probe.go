// Package probe performs TLS certificate introspection. A probe opens a
// TCP connection to a host, completes a TLS handshake, and extracts the
// leaf certificate's expiry timestamp and subject common name.
//
// The handshake deliberately skips chain and hostname verification: the
// bot reports on whatever certificate a host presents, including
// expired and self-signed ones. Turning this into a validating client
// would break the feature, not harden it.
package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"
)

// DefaultTimeout bounds the TCP connect and the handshake of a single
// probe.
const DefaultTimeout = 5 * time.Second

// Result is the certificate metadata extracted by a successful probe.
type Result struct {
	// NotAfter is the leaf certificate's expiry, converted to the
	// prober's configured location.
	NotAfter time.Time
	// CommonName is the subject common name of the leaf certificate.
	CommonName string
}

// Error describes a failed probe. The Reason is a short human-readable
// category suitable for an operator-facing chat message; the underlying
// transport error stays available through Unwrap.
type Error struct {
	Hostname string
	Reason   string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("probe %s: %s: %v", e.Hostname, e.Reason, e.Err)
	}
	return fmt.Sprintf("probe %s: %s", e.Hostname, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Prober dials hosts and extracts certificate metadata. The zero value
// is not usable; construct with New.
type Prober struct {
	timeout time.Duration
	loc     *time.Location
	port    string
}

// New returns a Prober with the given per-probe timeout and the
// location used for expiry timestamps. A non-positive timeout falls
// back to DefaultTimeout; a nil location falls back to UTC.
func New(timeout time.Duration, loc *time.Location) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Prober{timeout: timeout, loc: loc, port: "443"}
}

// WithPort overrides the target port. Used by tests probing local
// listeners.
func (p *Prober) WithPort(port string) *Prober {
	p.port = port
	return p
}

// Probe connects to hostname, handshakes, and returns the leaf
// certificate's metadata. All failure modes are wrapped into *Error;
// raw transport errors never reach the caller directly.
func (p *Prober) Probe(ctx context.Context, hostname string) (Result, error) {
	dialer := &net.Dialer{Timeout: p.timeout}
	raw, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(hostname, p.port))
	if err != nil {
		return Result{}, &Error{Hostname: hostname, Reason: reasonFor(err), Err: err}
	}
	defer raw.Close()

	// The deadline also covers the handshake, so a host that accepts
	// TCP but stalls mid-handshake cannot hold a probe open.
	_ = raw.SetDeadline(time.Now().Add(p.timeout))

	conn := tls.Client(raw, &tls.Config{
		ServerName:         hostname,
		InsecureSkipVerify: true, // introspection, not trust
	})
	if err := conn.HandshakeContext(ctx); err != nil {
		return Result{}, &Error{Hostname: hostname, Reason: "TLS handshake failed", Err: err}
	}

	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return Result{}, &Error{Hostname: hostname, Reason: "no certificate presented"}
	}
	leaf := certs[0]

	return Result{
		NotAfter:   leaf.NotAfter.In(p.loc),
		CommonName: leaf.Subject.CommonName,
	}, nil
}

// reasonFor maps a dial error to its operator-facing category.
func reasonFor(err error) string {
	if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
		return "connection timed out"
	}
	return "connection failed"
}
