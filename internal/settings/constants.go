// Package settings holds the compile-time frame-size budget the whole
// datapath is built around. Every frame buffer on the hot path is sized
// from these constants.
package settings

const (
	// VPNMTU is the largest IP packet accepted from, or written to, the tun
	// device.
	VPNMTU = 1362

	// TransportMTU is the largest ciphertext (post-AEAD, post-pad) handed to
	// the DNS codec. It must leave room for the 12-byte nonce and 16-byte
	// Poly1305 tag appended by the cipher.
	TransportMTU = 1392

	// UDPMTU is the largest datagram placed on the wire after DNS wrapping.
	UDPMTU = 1464

	// BufCapacity is the size of the reusable working buffer backing a
	// single frame as it moves through the pipeline.
	BufCapacity = 1500

	// NonceSize and TagSize are the AEAD's fixed per-frame overhead.
	NonceSize = 12
	TagSize   = 16

	// MaxPadLen is the largest obfuscation pad the cipher may append,
	// encoded in the single trailing length byte.
	MaxPadLen = 255

	// QueueDepth is the capacity of each of the two pipeline queues.
	QueueDepth = 64
)

func init() {
	if VPNMTU+NonceSize+TagSize > TransportMTU {
		panic("settings: VPNMTU + NonceSize + TagSize exceeds TransportMTU")
	}
	if TransportMTU > UDPMTU {
		panic("settings: TransportMTU exceeds UDPMTU")
	}
	if BufCapacity < UDPMTU {
		panic("settings: BufCapacity smaller than UDPMTU")
	}
}
