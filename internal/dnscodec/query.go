package dnscodec

import (
	"encoding/binary"
	"fmt"

	"covertun/internal/vpnerr"
)

// EncodeQuery packs payload into a DNS query datagram carrying id, spreading
// the bytes byte-for-byte across as many question QNAMEs as needed.
func EncodeQuery(payload []byte, id uint16) ([]byte, error) {
	if len(payload) > QueryMaxPayload {
		return nil, fmt.Errorf("%w: query payload length %d exceeds %d", vpnerr.ErrInvalidLength, len(payload), QueryMaxPayload)
	}

	qdcount := ceilDiv(len(payload), bytesPerQuestion)

	out := make([]byte, 0, headerSize+len(payload)+qdcount*9)
	var header [headerSize]byte
	binary.BigEndian.PutUint16(header[0:2], id)
	header[2] = 0x01 // RD=1
	header[3] = 0x00
	binary.BigEndian.PutUint16(header[4:6], uint16(qdcount))
	// ancount, nscount, arcount already zero
	out = append(out, header[:]...)

	remaining := payload
	for q := 0; q < qdcount; q++ {
		roomLeft := qnameLabelBytes
		for roomLeft >= 1 && len(remaining) > 0 {
			n := len(remaining)
			if n > maxLabelLen {
				n = maxLabelLen
			}
			if n > roomLeft-1 {
				n = roomLeft - 1
			}
			out = append(out, byte(n))
			out = append(out, remaining[:n]...)
			remaining = remaining[n:]
			roomLeft -= 1 + n
		}
		out = append(out, 0x00) // QNAME terminator
		var tail [4]byte
		binary.BigEndian.PutUint16(tail[0:2], qtypeNULL)
		binary.BigEndian.PutUint16(tail[2:4], qclassIN)
		out = append(out, tail[:]...)
	}
	return out, nil
}

// DecodeQuery reverses EncodeQuery, returning the reassembled payload and
// the echoed query id.
func DecodeQuery(data []byte) ([]byte, uint16, error) {
	if len(data) < headerSize {
		return nil, 0, fmt.Errorf("%w: query shorter than header", vpnerr.ErrCodec)
	}
	id := binary.BigEndian.Uint16(data[0:2])
	qdcount := int(binary.BigEndian.Uint16(data[4:6]))

	payload := make([]byte, 0, QueryMaxPayload)
	pos := headerSize
	for q := 0; q < qdcount; q++ {
		for {
			if pos >= len(data) {
				return nil, 0, fmt.Errorf("%w: question truncated before label length", vpnerr.ErrCodec)
			}
			labelLen := int(data[pos])
			pos++
			if labelLen == 0 {
				break
			}
			if labelLen > maxLabelLen {
				return nil, 0, fmt.Errorf("%w: label length %d exceeds 63", vpnerr.ErrCodec, labelLen)
			}
			if pos+labelLen > len(data) {
				return nil, 0, fmt.Errorf("%w: label overruns datagram", vpnerr.ErrCodec)
			}
			payload = append(payload, data[pos:pos+labelLen]...)
			pos += labelLen
		}
		if pos+4 > len(data) {
			return nil, 0, fmt.Errorf("%w: question tail truncated", vpnerr.ErrCodec)
		}
		pos += 4 // qtype + qclass
	}
	return payload, id, nil
}

func ceilDiv(a, b int) int {
	if a == 0 {
		return 0
	}
	return (a + b - 1) / b
}
