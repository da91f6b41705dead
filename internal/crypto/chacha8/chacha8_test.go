package chacha8

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func mustKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return key
}

func TestSealOpenRoundTrip(t *testing.T) {
	key := mustKey(t)
	a, err := New(key)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		t.Fatalf("rand.Read nonce: %v", err)
	}

	for _, n := range []int{0, 1, 15, 16, 17, 64, 65, 1362, 1400} {
		plaintext := make([]byte, n)
		if _, err := rand.Read(plaintext); err != nil {
			t.Fatalf("rand.Read plaintext: %v", err)
		}
		ciphertext := a.Seal(nil, nonce, plaintext, nil)
		if len(ciphertext) != n+Overhead {
			t.Fatalf("len(n=%d): got %d, want %d", n, len(ciphertext), n+Overhead)
		}
		got, err := a.Open(nil, nonce, ciphertext, nil)
		if err != nil {
			t.Fatalf("Open(n=%d): %v", n, err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Fatalf("round-trip mismatch at n=%d", n)
		}
	}
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	key := mustKey(t)
	a, _ := New(key)
	nonce := make([]byte, NonceSize)

	ciphertext := a.Seal(nil, nonce, []byte("hello, world"), nil)
	ciphertext[0] ^= 0xFF

	if _, err := a.Open(nil, nonce, ciphertext, nil); err == nil {
		t.Fatal("Open accepted tampered ciphertext")
	}
}

func TestOpenRejectsWrongKey(t *testing.T) {
	key1 := mustKey(t)
	key2 := mustKey(t)
	a1, _ := New(key1)
	a2, _ := New(key2)
	nonce := make([]byte, NonceSize)

	ciphertext := a1.Seal(nil, nonce, []byte("payload"), nil)
	if _, err := a2.Open(nil, nonce, ciphertext, nil); err == nil {
		t.Fatal("Open accepted ciphertext under the wrong key")
	}
}

func TestOpenRejectsShortCiphertext(t *testing.T) {
	key := mustKey(t)
	a, _ := New(key)
	nonce := make([]byte, NonceSize)

	if _, err := a.Open(nil, nonce, make([]byte, Overhead-1), nil); err == nil {
		t.Fatal("Open accepted a ciphertext shorter than the tag")
	}
}

func TestNewRejectsBadKeyLength(t *testing.T) {
	if _, err := New(make([]byte, KeySize-1)); err == nil {
		t.Fatal("New accepted a short key")
	}
}
