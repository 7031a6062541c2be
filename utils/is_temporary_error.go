package utils

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
)

// IsTemporaryErr reports whether a transport failure is worth another attempt.
// Caller cancellation and certificate rejection are final. Timeouts and
// connection level failures are transient, as is anything unrecognised.
func IsTemporaryErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}
	return true
}
