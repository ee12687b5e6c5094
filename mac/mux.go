package mac

import (
	"encoding/binary"
	"fmt"

	"github.com/Alonza0314/free-ran-l2/metrics"
	"github.com/Alonza0314/free-ran-l2/pool"
	loggergoModel "github.com/Alonza0314/logger-go/v2/model"
)

// Mux assembles UL MAC PDUs with logical channel prioritization, 36.321 5.4.3.
type Mux struct {
	lch *LchTable
	rlc RlcInterface
	bsr *Bsr
	phr *Phr

	pendingCrnti    uint16
	hasPendingCrnti bool

	msg3Pending      bool
	msg3Cached       bool
	msg3Transmitted  bool
	msg3ContentionId uint64
	msg3Buf          [MAX_TB_SIZE]byte
	msg3Pdu          []byte

	sduBuf [MAX_TB_SIZE]byte

	lastPduHadBsr bool

	log     loggergoModel.LoggerInterface
	metrics *metrics.MacMetrics
}

func NewMux(lch *LchTable, rlc RlcInterface, bsr *Bsr, phr *Phr, log loggergoModel.LoggerInterface, m *metrics.MacMetrics) *Mux {
	return &Mux{
		lch:     lch,
		rlc:     rlc,
		bsr:     bsr,
		phr:     phr,
		log:     log,
		metrics: m,
	}
}

// Step adds one TTI of tokens to every bucket.
func (m *Mux) Step() {
	m.lch.UpdateBj()
}

func (m *Mux) Reset() {
	m.lch.ResetBj()
	m.hasPendingCrnti = false
	m.Msg3Flush()
}

// AppendCrntiCe queues a C-RNTI CE for the next PDU without CCCH data.
func (m *Mux) AppendCrntiCe(rnti uint16) {
	m.pendingCrnti = rnti
	m.hasPendingCrnti = true
}

func (m *Mux) LastPduHadBsr() bool {
	return m.lastPduHadBsr
}

func (m *Mux) PduGet(payload *pool.ByteBuffer, grant int) ([]byte, error) {
	out := payload.Resize(grant)
	if len(out) < grant {
		return nil, fmt.Errorf("grant %d exceeds buffer size %d", grant, len(out))
	}
	n, err := m.assemble(out, grant)
	if err != nil {
		return nil, err
	}
	payload.N = n
	return out[:n], nil
}

func (m *Mux) sizeOf(ceBytes int) int {
	size := ceBytes
	lastHdr := 0
	for _, l := range m.lch.Channels() {
		if l.SchedLen > 0 {
			lastHdr = sduSubheaderLen(l.SchedLen)
			size += l.SchedLen + lastHdr
		}
	}
	if lastHdr > 0 {
		size -= lastHdr - 1
	}
	return size
}

// allocate grows the channel's scheduled length by at most limit bytes without exceeding the grant.
func (m *Mux) allocate(l *LogicalChannel, limit, ceBytes, grant int) {
	if limit <= 0 {
		return
	}
	cur := l.SchedLen
	l.SchedLen = cur + limit
	for l.SchedLen > cur {
		over := m.sizeOf(ceBytes) - grant
		if over <= 0 {
			return
		}
		if over > l.SchedLen-cur {
			over = l.SchedLen - cur
		}
		l.SchedLen -= over
	}
}

func (m *Mux) assemble(out []byte, grant int) (int, error) {
	m.lastPduHadBsr = false
	if grant <= 0 {
		return 0, nil
	}
	if grant > MAX_TB_SIZE || grant > len(out) {
		return 0, fmt.Errorf("grant %d exceeds transport block limit", grant)
	}

	m.lch.RefreshBuffers(m.rlc)

	ces := make([]SubPdu, 0, 4)
	ceBytes := 0

	ccchPending := false
	if ccch := m.lch.Get(LCID_CCCH); ccch != nil && ccch.BufferLen > 0 {
		ccchPending = true
	}
	if m.hasPendingCrnti && !ccchPending && grant >= 3 {
		ce := make([]byte, 2)
		binary.BigEndian.PutUint16(ce, m.pendingCrnti)
		ces = append(ces, SubPdu{Lcid: LCID_CRNTI, Payload: ce})
		ceBytes += 3
		m.hasPendingCrnti = false
		m.log.Debugf("Added C-RNTI CE 0x%x", m.pendingCrnti)
	}

	bsrIdx := -1
	bsrFormat := BSR_FORMAT_SHORT
	bsrTrigger := m.bsr.Trigger()
	if send, format := m.bsr.NeedToSendOnUlGrant(grant); send && ceBytes+1+format.ceLen() <= grant {
		bsrIdx = len(ces)
		bsrFormat = format
		ces = append(ces, SubPdu{Lcid: format.lcid()})
		ceBytes += 1 + format.ceLen()
	}

	if m.phr.IsTriggered() && ceBytes+2 <= grant {
		ces = append(ces, m.phr.Build())
		ceBytes += 2
	}

	// first pass, bounded by Bj
	for _, l := range m.lch.Channels() {
		if l.BufferLen == 0 {
			continue
		}
		limit := l.BufferLen
		if !l.infinitePbr() && l.Bj < limit {
			limit = l.Bj
		}
		m.allocate(l, limit, ceBytes, grant)
	}

	// second pass, whatever still fits
	for _, l := range m.lch.Channels() {
		m.allocate(l, l.BufferLen-l.SchedLen, ceBytes, grant)
	}

	sdus := make([]SubPdu, 0, len(m.lch.Channels()))
	offset := 0
	sduBytes := 0
	for _, l := range m.lch.Channels() {
		if l.SchedLen <= 0 {
			continue
		}
		n := m.rlc.ReadPdu(l.Lcid, m.sduBuf[offset:offset+l.SchedLen])
		if n <= 0 {
			m.log.Warnf("RLC returned no data for lcid %d (%d bytes scheduled)", l.Lcid, l.SchedLen)
			l.SchedLen = 0
			continue
		}
		if n > l.SchedLen {
			n = l.SchedLen
		}
		l.SchedLen = n
		if !l.infinitePbr() {
			l.Bj -= n
		}
		sdu := m.sduBuf[offset : offset+n]
		if l.Lcid == LCID_CCCH && n >= CONTENTION_ID_LEN {
			m.msg3ContentionId = contentionId(sdu)
		}
		sdus = append(sdus, SubPdu{Lcid: l.Lcid, Payload: sdu})
		offset += n
		sduBytes += n
		m.log.Tracef("Scheduled %d bytes on lcid %d (Bj %d)", n, l.Lcid, l.Bj)
	}

	if bsrIdx >= 0 {
		ces[bsrIdx] = m.bsr.Build(bsrFormat, bsrTrigger)
		m.lastPduHadBsr = true
	} else if spare := grant - schPduSize(ces, sdus); spare >= 2 {
		if format, ok := m.bsr.PaddingFormat(spare); ok {
			ces = append(ces, m.bsr.Build(format, BSR_TRIGGER_PADDING))
			m.lastPduHadBsr = true
		}
	}

	n, err := encodeSchPdu(out, grant, ces, sdus)
	if err != nil {
		return 0, fmt.Errorf("error encoding MAC PDU: %v", err)
	}

	if m.metrics != nil {
		m.metrics.MuxPdus.Inc()
		m.metrics.MuxBytes.WithLabelValues("sdu").Add(float64(sduBytes))
		m.metrics.MuxBytes.WithLabelValues("padding").Add(float64(grant - schPduSize(ces, sdus)))
	}
	m.log.Debugf("Assembled %d byte PDU: %d CEs, %d SDUs (%d bytes)", n, len(ces), len(sdus), sduBytes)
	return n, nil
}

func contentionId(sdu []byte) uint64 {
	var id uint64
	for i := 0; i < CONTENTION_ID_LEN; i++ {
		id = id<<8 | uint64(sdu[i])
	}
	return id
}

func (m *Mux) Msg3Prepare() {
	m.msg3Pending = true
}

func (m *Mux) Msg3IsPending() bool {
	return m.msg3Pending
}

func (m *Mux) Msg3IsCached() bool {
	return m.msg3Cached
}

func (m *Mux) Msg3IsTransmitted() bool {
	return m.msg3Transmitted
}

func (m *Mux) Msg3ContentionId() uint64 {
	return m.msg3ContentionId
}

// Msg3SizeEstimate is the Msg3 size used for preamble group selection.
func (m *Mux) Msg3SizeEstimate() int {
	size := 0
	if ccch := m.lch.Get(LCID_CCCH); ccch != nil {
		size += 1 + m.rlc.GetBufferState(LCID_CCCH)
	}
	if m.hasPendingCrnti {
		size += 3
	}
	return size
}

// Msg3Get builds Msg3 on the first call of an RA attempt and returns the same bytes afterwards.
func (m *Mux) Msg3Get(payload *pool.ByteBuffer, grant int) ([]byte, error) {
	if !m.msg3Cached {
		n, err := m.assemble(m.msg3Buf[:], grant)
		if err != nil {
			return nil, err
		}
		m.msg3Pdu = m.msg3Buf[:n]
		m.msg3Cached = true
		m.log.Debugf("Generated Msg3 of %d bytes, contention id 0x%012x", n, m.msg3ContentionId)
	}
	if len(m.msg3Pdu) != grant {
		return nil, fmt.Errorf("msg3 grant changed from %d to %d bytes", len(m.msg3Pdu), grant)
	}
	payload.Set(m.msg3Pdu)
	m.msg3Transmitted = true
	return payload.Bytes(), nil
}

func (m *Mux) Msg3Flush() {
	m.msg3Pending = false
	m.msg3Cached = false
	m.msg3Transmitted = false
	m.msg3ContentionId = 0
	m.msg3Pdu = nil
}
