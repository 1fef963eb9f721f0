// Package signature implements verification of payment-processor webhook
// signatures. The processor signs each delivery with a shared HMAC-SHA256
// secret; a delivery that fails verification must be rejected before any
// state changes.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingHeader    = errors.New("signature header is missing")
	ErrMalformedHeader  = errors.New("signature header is malformed")
	ErrSignatureExpired = errors.New("signature timestamp outside tolerance")
	ErrNoMatch          = errors.New("no matching signature found")
)

// Verifier checks webhook signatures of the form "t=<unix>,v1=<hex hmac>".
// The signed payload is "<timestamp>.<raw body>". Multiple v1 entries are
// accepted during secret rotation; any single match passes.
type Verifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time // Injectable for tests
}

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	return &Verifier{
		secret:    []byte(secret),
		tolerance: tolerance,
		now:       time.Now,
	}
}

// Verify checks the signature header against the raw request body.
// The timestamp must fall within the configured tolerance of the current
// time, in either direction, to bound replay of captured deliveries.
func (v *Verifier) Verify(payload []byte, header string) error {
	if header == "" {
		return ErrMissingHeader
	}

	timestamp, signatures, err := parseHeader(header)
	if err != nil {
		return err
	}

	skew := v.now().Sub(time.Unix(timestamp, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > v.tolerance {
		return ErrSignatureExpired
	}

	expected := computeSignature(v.secret, timestamp, payload)
	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}

	return ErrNoMatch
}

// Sign produces a signature header for the payload at the given time.
// Used by tests and local tooling that replays webhook deliveries.
func Sign(secret string, payload []byte, at time.Time) string {
	timestamp := at.Unix()
	return fmt.Sprintf("t=%d,v1=%s", timestamp, computeSignature([]byte(secret), timestamp, payload))
}

func parseHeader(header string) (timestamp int64, signatures []string, err error) {
	timestamp = -1
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return 0, nil, ErrMalformedHeader
		}
		switch key {
		case "t":
			timestamp, err = strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, ErrMalformedHeader
			}
		case "v1":
			signatures = append(signatures, value)
		}
	}

	if timestamp < 0 || len(signatures) == 0 {
		return 0, nil, ErrMalformedHeader
	}
	return timestamp, signatures, nil
}

func computeSignature(secret []byte, timestamp int64, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
