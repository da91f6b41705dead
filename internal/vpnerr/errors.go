// Package vpnerr defines the sentinel errors the datapath wraps with
// fmt.Errorf("%w", ...) and callers unwrap with errors.Is/errors.As, the
// same convention the teacher's transport handlers use throughout.
package vpnerr

import "errors"

var (
	// ErrKeyDerivationFailure covers HKDF and random-source failures during
	// cipher construction or per-frame nonce/pad generation.
	ErrKeyDerivationFailure = errors.New("vpnerr: key derivation failure")

	// ErrAeadInvalid means Poly1305 verification failed: wrong key, replayed
	// garbage, or a corrupted frame.
	ErrAeadInvalid = errors.New("vpnerr: aead authentication failed")

	// ErrInvalidLength means a frame's declared or observed length violates
	// an MTU or encoding invariant.
	ErrInvalidLength = errors.New("vpnerr: invalid length")

	// ErrCodec means the DNS wire encoding was malformed on decode.
	ErrCodec = errors.New("vpnerr: malformed dns codec frame")

	// ErrNoPeerYet means a server transport tried to send before any
	// received frame had been marked valid, so there is no confirmed
	// destination address to use.
	ErrNoPeerYet = errors.New("vpnerr: no peer observed yet")

	// ErrTransientIO wraps short-lived socket errors (e.g. ECONNREFUSED from
	// a stale client going away) that a caller should log and continue past
	// rather than treat as fatal.
	ErrTransientIO = errors.New("vpnerr: transient i/o error")
)
