package mac

import "fmt"

// Rar is one random access response, 36.321 6.1.5.
type Rar struct {
	Rapid     int
	Ta        uint32
	Grant     uint32
	TempCrnti uint16
}

type RarPdu struct {
	// BackoffIndicator is -1 when the PDU carries no BI subheader.
	BackoffIndicator int
	Rars             []Rar
}

func EncodeRarPdu(pdu RarPdu) []byte {
	out := make([]byte, 0, 1+len(pdu.Rars)*(1+RAR_LEN))

	nofHeaders := len(pdu.Rars)
	if pdu.BackoffIndicator >= 0 {
		nofHeaders++
	}

	idx := 0
	if pdu.BackoffIndicator >= 0 {
		b := byte(pdu.BackoffIndicator & 0x0f)
		if idx < nofHeaders-1 {
			b |= 0x80
		}
		out = append(out, b)
		idx++
	}
	for _, rar := range pdu.Rars {
		b := byte(0x40) | byte(rar.Rapid&0x3f)
		if idx < nofHeaders-1 {
			b |= 0x80
		}
		out = append(out, b)
		idx++
	}

	for _, rar := range pdu.Rars {
		ta := rar.Ta & 0x7ff
		grant := rar.Grant & 0xfffff
		out = append(out,
			byte(ta>>4),
			byte(ta&0x0f)<<4|byte(grant>>16),
			byte(grant>>8),
			byte(grant),
			byte(rar.TempCrnti>>8),
			byte(rar.TempCrnti),
		)
	}

	return out
}

func ParseRarPdu(data []byte) (RarPdu, error) {
	pdu := RarPdu{BackoffIndicator: -1}

	rapids := make([]int, 0, 4)
	pos := 0
	for {
		if pos >= len(data) {
			return pdu, fmt.Errorf("%w: RAR subheader beyond end", ErrMalformedPdu)
		}
		b := data[pos]
		pos++
		if b&0x40 == 0 {
			pdu.BackoffIndicator = int(b & 0x0f)
		} else {
			rapids = append(rapids, int(b&0x3f))
		}
		if b&0x80 == 0 {
			break
		}
	}

	for _, rapid := range rapids {
		if pos+RAR_LEN > len(data) {
			return pdu, fmt.Errorf("%w: truncated RAR for RAPID %d", ErrMalformedPdu, rapid)
		}
		r := data[pos : pos+RAR_LEN]
		pdu.Rars = append(pdu.Rars, Rar{
			Rapid:     rapid,
			Ta:        uint32(r[0]&0x7f)<<4 | uint32(r[1]>>4),
			Grant:     uint32(r[1]&0x0f)<<16 | uint32(r[2])<<8 | uint32(r[3]),
			TempCrnti: uint16(r[4])<<8 | uint16(r[5]),
		})
		pos += RAR_LEN
	}

	return pdu, nil
}
