// Package dnscodec implements the reversible DNS-query and DNS-response
// byte encodings the tunnel mimics. No DNS library is used: the spec's
// continuation-label packing is a non-standard abuse of the QNAME region
// that a structured DNS message library (e.g. github.com/miekg/dns, as
// used elsewhere in the example pack) cannot produce without fighting its
// own validation — so the wire layout is built and parsed by hand here,
// the way the original implementation's fakedns module does.
package dnscodec

const (
	// QueryMaxPayload is the largest payload a single DNS query can carry.
	QueryMaxPayload = 1414

	// ResponseMaxPayload is the largest payload a single DNS response can
	// carry.
	ResponseMaxPayload = 1454

	qtypeNULL = 10
	qclassIN  = 1

	headerSize = 12

	// qnameLabelBytes is the number of label (length+data) bytes packed
	// into a single question's QNAME region before the zero terminator,
	// the DNS-legal maximum of 255 total bytes minus the terminator.
	qnameLabelBytes = 254

	maxLabelLen = 63

	// bytesPerQuestion is how many payload bytes one question's QNAME
	// carries: three 63-byte labels and one 61-byte label fill the 254
	// label bytes, so a payload needs ceil(len/250) questions.
	bytesPerQuestion = 250
)
