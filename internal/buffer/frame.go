// Package buffer provides the fixed-capacity, in-place-editable byte buffer
// used throughout the datapath. Frame operations work within the frame's own
// backing array and do not allocate; the cipher and the DNS codec still
// allocate scratch slices for each packet.
package buffer

import "covertun/internal/settings"

// Frame is a byte buffer backed by a fixed array of settings.BufCapacity
// bytes. Operations truncate, append, and overwrite in place; callers that
// need the current contents use Bytes.
type Frame struct {
	backing [settings.BufCapacity]byte
	length  int
}

// New returns an empty frame ready for reuse.
func New() *Frame {
	return &Frame{}
}

// FromBytes copies p into a fresh frame. Used by tests and by the DNS
// transport wrappers for each encoded datagram; tun and UDP reads fill a
// frame's backing array directly via Slice.
func FromBytes(p []byte) *Frame {
	f := &Frame{}
	f.length = copy(f.backing[:], p)
	return f
}

// Slice returns the backing array sliced to cap, for callers (tun reads,
// UDP reads) that fill the frame directly via an I/O call.
func (f *Frame) Slice() []byte {
	return f.backing[:]
}

// SetLength records how many bytes of the backing array are in use, e.g.
// after a Read call returns n.
func (f *Frame) SetLength(n int) {
	if n < 0 || n > len(f.backing) {
		panic("buffer: invalid length")
	}
	f.length = n
}

// Bytes returns the current logical contents.
func (f *Frame) Bytes() []byte {
	return f.backing[:f.length]
}

// Len returns the current logical length.
func (f *Frame) Len() int {
	return f.length
}

// Truncate drops the last n bytes.
func (f *Frame) Truncate(n int) {
	if n < 0 || n > f.length {
		panic("buffer: truncate out of range")
	}
	f.length -= n
}

// Append appends p, growing the logical length. Panics if the backing array
// would overflow — every caller on the datapath is expected to have checked
// the MTU budget first.
func (f *Frame) Append(p []byte) {
	if f.length+len(p) > len(f.backing) {
		panic("buffer: append exceeds capacity")
	}
	copy(f.backing[f.length:], p)
	f.length += len(p)
}

// AppendByte appends a single byte.
func (f *Frame) AppendByte(b byte) {
	f.Append([]byte{b})
}

// Reset empties the frame for reuse.
func (f *Frame) Reset() {
	f.length = 0
}
