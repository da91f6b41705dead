package crypto

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"covertun/internal/buffer"
	"covertun/internal/settings"
	"covertun/internal/vpnerr"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := New([]byte("correct horse battery staple"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, n := range []int{0, 1, 2, 64, 500, 1000, settings.VPNMTU} {
		plaintext := make([]byte, n)
		if _, err := rand.Read(plaintext); err != nil {
			t.Fatalf("rand.Read: %v", err)
		}
		frame := buffer.FromBytes(plaintext)

		if err := c.Encrypt(frame); err != nil {
			t.Fatalf("Encrypt(n=%d): %v", n, err)
		}
		if frame.Len() > settings.TransportMTU {
			t.Fatalf("Encrypt(n=%d): ciphertext length %d exceeds TransportMTU", n, frame.Len())
		}

		if err := c.Decrypt(frame); err != nil {
			t.Fatalf("Decrypt(n=%d): %v", n, err)
		}
		if !bytes.Equal(frame.Bytes(), plaintext) {
			t.Fatalf("round-trip mismatch at n=%d", n)
		}
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	c1, _ := New([]byte("passphrase-one"))
	c2, _ := New([]byte("passphrase-two"))

	frame := buffer.FromBytes([]byte("tunnel payload"))
	if err := c1.Encrypt(frame); err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	err := c2.Decrypt(frame)
	if !errors.Is(err, vpnerr.ErrAeadInvalid) {
		t.Fatalf("Decrypt with wrong key: got %v, want ErrAeadInvalid", err)
	}
}

func TestDecryptRejectsTruncatedFrame(t *testing.T) {
	c, _ := New([]byte("passphrase"))
	frame := buffer.FromBytes([]byte{})

	err := c.Decrypt(frame)
	if !errors.Is(err, vpnerr.ErrInvalidLength) {
		t.Fatalf("Decrypt empty frame: got %v, want ErrInvalidLength", err)
	}
}

func TestDecryptRejectsCorruptedCiphertext(t *testing.T) {
	c, _ := New([]byte("passphrase"))
	frame := buffer.FromBytes([]byte("hello over the tunnel"))
	if err := c.Encrypt(frame); err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	b := frame.Bytes()
	b[0] ^= 0xFF

	if err := c.Decrypt(frame); !errors.Is(err, vpnerr.ErrAeadInvalid) {
		t.Fatalf("Decrypt corrupted frame: got %v, want ErrAeadInvalid", err)
	}
}
