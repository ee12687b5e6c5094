package mac

import (
	"errors"
	"fmt"
)

var ErrMalformedPdu = errors.New("malformed MAC PDU")

// SubPdu is one element of a UL-SCH or DL-SCH MAC PDU: a control element, an SDU or padding.
type SubPdu struct {
	Lcid    uint8
	Payload []byte
}

func (s SubPdu) IsPadding() bool {
	return s.Lcid == LCID_PADDING
}

func (s SubPdu) IsSdu() bool {
	return s.Lcid <= MAX_LCID
}

// sduSubheaderLen is the length of a non-last SDU subheader, 36.321 6.1.2.
func sduSubheaderLen(length int) int {
	if length < 128 {
		return 2
	}
	return 3
}

// schPduSize counts the bytes a PDU needs when its last SDU carries the 1-byte subheader.
func schPduSize(ces []SubPdu, sdus []SubPdu) int {
	size := 0
	for _, ce := range ces {
		size += 1 + len(ce.Payload)
	}
	for _, sdu := range sdus {
		size += len(sdu.Payload) + sduSubheaderLen(len(sdu.Payload))
	}
	if n := len(sdus); n > 0 {
		size -= sduSubheaderLen(len(sdus[n-1].Payload)) - 1
	}
	return size
}

// encodeSchPdu writes a PDU of exactly grant bytes. One or two spare bytes become leading padding
// subheaders, three or more become a trailing padding subheader followed by padding bytes.
func encodeSchPdu(out []byte, grant int, ces []SubPdu, sdus []SubPdu) (int, error) {
	if grant == 0 {
		return 0, nil
	}
	if len(out) < grant {
		return 0, fmt.Errorf("output buffer %d smaller than grant %d", len(out), grant)
	}

	size := schPduSize(ces, sdus)
	if size > grant {
		return 0, fmt.Errorf("PDU content %d exceeds grant %d", size, grant)
	}

	spare := grant - size
	leading, padBytes, trailing := 0, 0, false
	switch {
	case spare > 0 && spare <= 2:
		leading = spare
	case spare >= 3:
		trailing = true
		extra := 0
		if n := len(sdus); n > 0 {
			extra = sduSubheaderLen(len(sdus[n-1].Payload)) - 1
		}
		padBytes = spare - 1 - extra
	}

	headers := make([]SubPdu, 0, leading+len(ces)+len(sdus)+1)
	for i := 0; i < leading; i++ {
		headers = append(headers, SubPdu{Lcid: LCID_PADDING})
	}
	headers = append(headers, ces...)
	headers = append(headers, sdus...)
	if trailing {
		headers = append(headers, SubPdu{Lcid: LCID_PADDING})
	}

	pos := 0
	for i, h := range headers {
		last := i == len(headers)-1
		b := h.Lcid & 0x1f
		if !last {
			b |= 0x20
		}
		out[pos] = b
		pos++
		if h.IsSdu() && !last {
			l := len(h.Payload)
			if l < 128 {
				out[pos] = byte(l)
				pos++
			} else {
				out[pos] = 0x80 | byte(l>>8)
				out[pos+1] = byte(l)
				pos += 2
			}
		}
	}

	for _, h := range headers {
		pos += copy(out[pos:], h.Payload)
	}
	for i := 0; i < padBytes; i++ {
		out[pos] = 0
		pos++
	}

	if pos != grant {
		return 0, fmt.Errorf("encoded %d bytes for grant %d", pos, grant)
	}
	return pos, nil
}

// EncodeSchPdu builds a standalone PDU into a new slice.
func EncodeSchPdu(grant int, ces []SubPdu, sdus []SubPdu) ([]byte, error) {
	out := make([]byte, grant)
	n, err := encodeSchPdu(out, grant, ces, sdus)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

func ceLen(lcid uint8, ul bool) (int, bool) {
	table := dlCeLen
	if ul {
		table = ulCeLen
	}
	l, ok := table[lcid]
	return l, ok
}

// ParseSchPdu splits a PDU into its elements, dropping padding. Payloads alias pdu.
func ParseSchPdu(pdu []byte, ul bool) ([]SubPdu, error) {
	type header struct {
		lcid   uint8
		length int
		last   bool
	}

	headers := make([]header, 0, 8)
	pos := 0
	for {
		if pos >= len(pdu) {
			return nil, fmt.Errorf("%w: subheader beyond end", ErrMalformedPdu)
		}
		b := pdu[pos]
		pos++
		extended := b&0x20 != 0
		lcid := b & 0x1f

		h := header{lcid: lcid, length: 0, last: !extended}
		switch {
		case lcid == LCID_PADDING:
		case lcid <= MAX_LCID:
			if extended {
				if pos >= len(pdu) {
					return nil, fmt.Errorf("%w: missing length field", ErrMalformedPdu)
				}
				if pdu[pos]&0x80 == 0 {
					h.length = int(pdu[pos] & 0x7f)
					pos++
				} else {
					if pos+1 >= len(pdu) {
						return nil, fmt.Errorf("%w: missing length field", ErrMalformedPdu)
					}
					h.length = int(pdu[pos]&0x7f)<<8 | int(pdu[pos+1])
					pos += 2
				}
			}
		default:
			l, ok := ceLen(lcid, ul)
			if !ok {
				return nil, fmt.Errorf("%w: reserved lcid %d", ErrMalformedPdu, lcid)
			}
			h.length = l
		}
		headers = append(headers, h)
		if !extended {
			break
		}
	}

	subPdus := make([]SubPdu, 0, len(headers))
	for _, h := range headers {
		if h.lcid == LCID_PADDING {
			if h.last {
				break
			}
			continue
		}
		length := h.length
		if h.last && h.lcid <= MAX_LCID {
			length = len(pdu) - pos
		}
		if length < 0 || pos+length > len(pdu) {
			return nil, fmt.Errorf("%w: lcid %d length %d exceeds PDU", ErrMalformedPdu, h.lcid, length)
		}
		subPdus = append(subPdus, SubPdu{Lcid: h.lcid, Payload: pdu[pos : pos+length]})
		pos += length
	}

	return subPdus, nil
}
