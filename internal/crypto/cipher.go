// Package crypto wires the chacha8 AEAD and HKDF-SHA256 key derivation into
// the Cipher type the engine calls on every frame crossing the datapath.
package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"covertun/internal/buffer"
	"covertun/internal/crypto/chacha8"
	"covertun/internal/settings"
	"covertun/internal/vpnerr"
)

// Cipher encrypts and decrypts frames in place using a key derived once
// from the shared passphrase at startup.
type Cipher struct {
	aead cipher.AEAD
}

// New derives a ChaCha8-Poly1305 key from passphrase via HKDF-SHA256 with an
// empty salt and empty info, matching the original implementation's
// single-passphrase key schedule: both peers derive the same key because
// they hold the same passphrase, not because the HKDF parameters carry any
// per-session identity.
func New(passphrase []byte) (*Cipher, error) {
	kdf := hkdf.New(sha256.New, passphrase, nil, nil)
	key := make([]byte, chacha8.KeySize)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("%w: %w", vpnerr.ErrKeyDerivationFailure, err)
	}
	a, err := chacha8.New(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vpnerr.ErrKeyDerivationFailure, err)
	}
	return &Cipher{aead: a}, nil
}

// Encrypt seals frame's current contents in place: plaintext becomes
// ciphertext || tag || nonce || pad || padLen, where pad is random filler
// sized to make traffic-analysis harder and padLen is a single trailing
// byte recording how much of it to strip on decrypt.
func (c *Cipher) Encrypt(frame *buffer.Frame) error {
	plaintext := frame.Len()
	if plaintext > settings.VPNMTU {
		return fmt.Errorf("%w: plaintext length %d exceeds VPN MTU", vpnerr.ErrInvalidLength, plaintext)
	}

	nonce := make([]byte, settings.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("%w: %w", vpnerr.ErrKeyDerivationFailure, err)
	}

	sealed := c.aead.Seal(nil, nonce, frame.Bytes(), nil)

	frame.Reset()
	frame.Append(sealed)
	frame.Append(nonce)

	padLen := settings.TransportMTU - frame.Len() - 1
	if padLen > settings.MaxPadLen {
		padLen = settings.MaxPadLen
	}
	if padLen < 0 {
		padLen = 0
	}
	if padLen > 0 {
		pad := make([]byte, padLen)
		if _, err := rand.Read(pad); err != nil {
			return fmt.Errorf("%w: %w", vpnerr.ErrKeyDerivationFailure, err)
		}
		frame.Append(pad)
	}
	frame.AppendByte(byte(padLen))
	return nil
}

// Decrypt reverses Encrypt in place: it strips the pad, splits off the
// nonce, and opens the AEAD ciphertext, leaving frame holding the original
// plaintext.
func (c *Cipher) Decrypt(frame *buffer.Frame) error {
	if frame.Len() < 1 {
		return fmt.Errorf("%w: frame too short for pad length byte", vpnerr.ErrInvalidLength)
	}
	body := frame.Bytes()
	padLen := int(body[len(body)-1])
	frame.Truncate(1)

	if frame.Len() < padLen {
		return fmt.Errorf("%w: pad length %d exceeds frame", vpnerr.ErrInvalidLength, padLen)
	}
	frame.Truncate(padLen)

	if frame.Len() < settings.NonceSize+chacha8.Overhead {
		return fmt.Errorf("%w: frame too short for nonce and tag", vpnerr.ErrInvalidLength)
	}

	body = frame.Bytes()
	nonce := make([]byte, settings.NonceSize)
	copy(nonce, body[len(body)-settings.NonceSize:])
	ciphertext := append([]byte(nil), body[:len(body)-settings.NonceSize]...)

	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", vpnerr.ErrAeadInvalid, err)
	}

	frame.Reset()
	frame.Append(plaintext)
	return nil
}
