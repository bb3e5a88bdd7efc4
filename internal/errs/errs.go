// Package errs defines the error taxonomy shared by every pipeline stage:
// MalformedHeader, ConfigurationError, ContractViolation, IntegrityFailure,
// and Truncation. Callers classify a returned error with errors.Is/errors.As
// rather than string matching.
package errs

import "errors"

var (
	// ErrMalformedHeader marks a header field whose value is impossible
	// given the bytes available (negative length, out-of-range ID, a
	// length field overflowing the remaining buffer).
	ErrMalformedHeader = errors.New("malformed header")

	// ErrConfigurationError marks an inconsistent profile or pipeline
	// configuration, detected at construction/validation time.
	ErrConfigurationError = errors.New("configuration error")

	// ErrContractViolation marks an incoming length tag that does not
	// match the bytes actually delivered before end-of-stream.
	ErrContractViolation = errors.New("contract violation")

	// ErrIntegrityFailure marks a CRC/MIC mismatch discovered on decode.
	ErrIntegrityFailure = errors.New("integrity failure")

	// ErrTruncation marks end-of-stream in the middle of a frame.
	ErrTruncation = errors.New("truncated stream")
)

// Malformed wraps err (or a default message) as an ErrMalformedHeader.
func Malformed(pkg, msg string) error {
	return wrap(pkg, msg, ErrMalformedHeader)
}

// Configuration wraps a configuration-time inconsistency.
func Configuration(pkg, msg string) error {
	return wrap(pkg, msg, ErrConfigurationError)
}

// ContractViolation wraps a length-tag/byte-count mismatch.
func ContractViolation(pkg, msg string) error {
	return wrap(pkg, msg, ErrContractViolation)
}

// Integrity wraps a CRC/MIC mismatch.
func Integrity(pkg, msg string) error {
	return wrap(pkg, msg, ErrIntegrityFailure)
}

// Truncated wraps an end-of-stream-mid-frame condition.
func Truncated(pkg, msg string) error {
	return wrap(pkg, msg, ErrTruncation)
}

func wrap(pkg, msg string, sentinel error) error {
	return &wrapped{pkg: pkg, msg: msg, sentinel: sentinel}
}

type wrapped struct {
	pkg      string
	msg      string
	sentinel error
}

func (w *wrapped) Error() string {
	if w.msg == "" {
		return w.pkg + ": " + w.sentinel.Error()
	}
	return w.pkg + ": " + w.msg + ": " + w.sentinel.Error()
}

func (w *wrapped) Unwrap() error {
	return w.sentinel
}
