package dnscodec

import (
	"encoding/binary"
	"fmt"

	"covertun/internal/vpnerr"
)

const responseNameLabel = "cn"

// EncodeResponse packs payload into a single-answer DNS response echoing
// id, using "cn" as the answer's arbitrary cover-text name.
func EncodeResponse(payload []byte, id uint16) ([]byte, error) {
	if len(payload) > ResponseMaxPayload {
		return nil, fmt.Errorf("%w: response payload length %d exceeds %d", vpnerr.ErrInvalidLength, len(payload), ResponseMaxPayload)
	}

	out := make([]byte, 0, headerSize+4+10+len(payload))
	var header [headerSize]byte
	binary.BigEndian.PutUint16(header[0:2], id)
	header[2] = 0x80 // QR=1 (response)
	header[3] = 0x80 // RA=1
	binary.BigEndian.PutUint16(header[4:6], 0)  // qdcount
	binary.BigEndian.PutUint16(header[6:8], 1)  // ancount
	binary.BigEndian.PutUint16(header[8:10], 0) // nscount
	binary.BigEndian.PutUint16(header[10:12], 0) // arcount
	out = append(out, header[:]...)

	out = append(out, byte(len(responseNameLabel)))
	out = append(out, responseNameLabel...)
	out = append(out, 0x00)

	var rr [10]byte
	binary.BigEndian.PutUint16(rr[0:2], qtypeNULL)
	binary.BigEndian.PutUint16(rr[2:4], qclassIN)
	binary.BigEndian.PutUint32(rr[4:8], 300) // ttl
	binary.BigEndian.PutUint16(rr[8:10], uint16(len(payload)))
	out = append(out, rr[:]...)
	out = append(out, payload...)
	return out, nil
}

// DecodeResponse reverses EncodeResponse, returning the payload and the
// echoed id.
func DecodeResponse(data []byte) ([]byte, uint16, error) {
	const skip = headerSize + 4 + 2 + 2 + 4 // header + name + type + class + ttl
	if len(data) < skip+2 {
		return nil, 0, fmt.Errorf("%w: response shorter than fixed header", vpnerr.ErrCodec)
	}
	id := binary.BigEndian.Uint16(data[0:2])
	rdlength := int(binary.BigEndian.Uint16(data[skip : skip+2]))

	body := data[skip+2:]
	if len(body) != rdlength {
		return nil, 0, fmt.Errorf("%w: rdlength %d does not match remaining %d bytes", vpnerr.ErrCodec, rdlength, len(body))
	}
	payload := make([]byte, rdlength)
	copy(payload, body)
	return payload, id, nil
}
