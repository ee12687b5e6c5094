package mac

import (
	"github.com/Alonza0314/free-ran-l2/metrics"
	"github.com/Alonza0314/free-ran-l2/model"
	loggergoModel "github.com/Alonza0314/logger-go/v2/model"
)

type BsrTrigger int

const (
	BSR_TRIGGER_NONE BsrTrigger = iota
	BSR_TRIGGER_REGULAR
	BSR_TRIGGER_PERIODIC
	BSR_TRIGGER_PADDING
)

func (t BsrTrigger) String() string {
	switch t {
	case BSR_TRIGGER_REGULAR:
		return "regular"
	case BSR_TRIGGER_PERIODIC:
		return "periodic"
	case BSR_TRIGGER_PADDING:
		return "padding"
	}
	return "none"
}

type BsrFormat int

const (
	BSR_FORMAT_SHORT BsrFormat = iota
	BSR_FORMAT_LONG
	BSR_FORMAT_TRUNCATED
)

func (f BsrFormat) lcid() uint8 {
	switch f {
	case BSR_FORMAT_LONG:
		return LCID_LONG_BSR
	case BSR_FORMAT_TRUNCATED:
		return LCID_TRUNC_BSR
	}
	return LCID_SHORT_BSR
}

func (f BsrFormat) ceLen() int {
	if f == BSR_FORMAT_LONG {
		return 3
	}
	return 1
}

// bufferSizeLevels holds the upper bound of indices 1..62, 36.321 Table 6.1.3.1-1.
var bufferSizeLevels = [62]int{
	10, 12, 14, 17, 19, 22, 26, 31, 36, 42, 49, 57, 67, 78, 91, 107, 125, 146, 171, 200, 234, 274, 321, 376,
	440, 515, 603, 706, 826, 967, 1132, 1326, 1552, 1817, 2127, 2490, 2915, 3413, 3995, 4677, 5476, 6411,
	7505, 8787, 10287, 12043, 14099, 16507, 19325, 22624, 26487, 31009, 36304, 42502, 49759, 58255, 68201,
	79846, 93479, 109439, 128125, 150000,
}

func BufferSizeIndex(bytes int) uint8 {
	if bytes <= 0 {
		return 0
	}
	for i, level := range bufferSizeLevels {
		if bytes <= level {
			return uint8(i + 1)
		}
	}
	return 63
}

// BufferSizeUpperBound is the largest byte count an index may stand for.
func BufferSizeUpperBound(index uint8) int {
	switch {
	case index == 0:
		return 0
	case index >= 63:
		return 150001
	}
	return bufferSizeLevels[index-1]
}

type srStarter interface {
	Start()
}

type Bsr struct {
	lch *LchTable
	sr  srStarter

	trigger BsrTrigger

	periodicTimer ttiTimer
	retxTimer     ttiTimer

	prevBuffer map[uint8]int

	log     loggergoModel.LoggerInterface
	metrics *metrics.MacMetrics
}

func NewBsr(cfg model.BsrIE, lch *LchTable, sr srStarter, log loggergoModel.LoggerInterface, m *metrics.MacMetrics) *Bsr {
	b := &Bsr{
		lch:        lch,
		sr:         sr,
		prevBuffer: make(map[uint8]int),
		log:        log,
		metrics:    m,
	}
	b.periodicTimer.Set(cfg.PeriodicTimer)
	b.retxTimer.Set(cfg.RetxTimer)
	b.periodicTimer.Start()
	return b
}

func (b *Bsr) Reconfigure(cfg model.BsrIE) {
	b.periodicTimer.Set(cfg.PeriodicTimer)
	b.retxTimer.Set(cfg.RetxTimer)
	b.periodicTimer.Start()
}

func (b *Bsr) Reset() {
	b.trigger = BSR_TRIGGER_NONE
	b.periodicTimer.Stop()
	b.retxTimer.Stop()
	b.prevBuffer = make(map[uint8]int)
}

func (b *Bsr) Trigger() BsrTrigger {
	return b.trigger
}

func (b *Bsr) setTrigger(t BsrTrigger) {
	b.log.Debugf("BSR triggered: %s", t)
	b.trigger = t
	if t == BSR_TRIGGER_REGULAR {
		b.sr.Start()
	}
}

// Step runs once per TTI after the buffer states were refreshed.
func (b *Bsr) Step() {
	if b.periodicTimer.Step() {
		b.log.Tracef("Periodic BSR timer expired")
		if b.trigger == BSR_TRIGGER_NONE || b.trigger == BSR_TRIGGER_PADDING {
			b.setTrigger(BSR_TRIGGER_PERIODIC)
		}
	}

	if b.retxTimer.Step() && b.lch.TotalBuffer() > 0 {
		b.log.Tracef("BSR retx timer expired with data pending")
		b.setTrigger(BSR_TRIGGER_REGULAR)
	}

	if b.newDataTriggersRegular() {
		b.setTrigger(BSR_TRIGGER_REGULAR)
	}

	for _, l := range b.lch.Channels() {
		b.prevBuffer[l.Lcid] = l.BufferLen
	}
}

// newDataTriggersRegular checks for a channel going from empty to non-empty while no channel of equal or
// higher priority already had data.
func (b *Bsr) newDataTriggersRegular() bool {
	for _, l := range b.lch.Channels() {
		if l.Lcid == LCID_CCCH || l.BufferLen == 0 || b.prevBuffer[l.Lcid] > 0 {
			continue
		}
		higherHadData := false
		for _, o := range b.lch.Channels() {
			if o.Lcid != l.Lcid && o.Lcid != LCID_CCCH && o.Priority <= l.Priority && b.prevBuffer[o.Lcid] > 0 {
				higherHadData = true
				break
			}
		}
		if !higherHadData {
			b.log.Debugf("New data on lcid %d (%d bytes)", l.Lcid, l.BufferLen)
			return true
		}
	}
	return false
}

func (b *Bsr) nofLcgWithData(buffers [NOF_LCG]int) int {
	n := 0
	for _, v := range buffers {
		if v > 0 {
			n++
		}
	}
	return n
}

// NeedToSendOnUlGrant decides whether a regular or periodic BSR goes into a PDU of grantSize bytes.
// A grant large enough for all pending data cancels the triggers instead.
func (b *Bsr) NeedToSendOnUlGrant(grantSize int) (bool, BsrFormat) {
	if b.trigger != BSR_TRIGGER_REGULAR && b.trigger != BSR_TRIGGER_PERIODIC {
		return false, BSR_FORMAT_SHORT
	}

	sdus := make([]SubPdu, 0, len(b.lch.Channels()))
	for _, l := range b.lch.Channels() {
		if l.BufferLen > 0 {
			sdus = append(sdus, SubPdu{Lcid: l.Lcid, Payload: make([]byte, l.BufferLen)})
		}
	}
	if len(sdus) > 0 && schPduSize(nil, sdus) <= grantSize {
		b.log.Debugf("Grant of %d bytes fits all pending data, cancelling %s BSR", grantSize, b.trigger)
		b.trigger = BSR_TRIGGER_NONE
		return false, BSR_FORMAT_SHORT
	}

	format := BSR_FORMAT_SHORT
	if b.nofLcgWithData(b.lch.LcgBuffers()) > 1 {
		format = BSR_FORMAT_LONG
	}
	return true, format
}

// PaddingFormat picks the padding BSR format for space bytes: long, else truncated, else short.
func (b *Bsr) PaddingFormat(space int) (BsrFormat, bool) {
	nLcg := b.nofLcgWithData(b.lch.LcgBuffers())
	switch {
	case nLcg > 1 && space >= 1+BSR_FORMAT_LONG.ceLen():
		return BSR_FORMAT_LONG, true
	case nLcg > 1 && space >= 1+BSR_FORMAT_TRUNCATED.ceLen():
		return BSR_FORMAT_TRUNCATED, true
	case space >= 1+BSR_FORMAT_SHORT.ceLen():
		return BSR_FORMAT_SHORT, true
	}
	return BSR_FORMAT_SHORT, false
}

// Build encodes the CE from the post-SDU buffer snapshot and restarts the timers.
func (b *Bsr) Build(format BsrFormat, trigger BsrTrigger) SubPdu {
	buffers := b.lch.LcgBuffers()

	var payload []byte
	switch format {
	case BSR_FORMAT_LONG:
		idx := [NOF_LCG]uint8{}
		for i := range buffers {
			idx[i] = BufferSizeIndex(buffers[i])
		}
		payload = []byte{
			idx[0]<<2 | idx[1]>>4,
			idx[1]<<4 | idx[2]>>2,
			idx[2]<<6 | idx[3],
		}
	default:
		lcg := b.reportedLcg(buffers)
		payload = []byte{lcg<<6 | BufferSizeIndex(buffers[lcg])}
	}

	if format != BSR_FORMAT_TRUNCATED {
		b.periodicTimer.Start()
	}
	b.retxTimer.Start()
	b.trigger = BSR_TRIGGER_NONE

	if b.metrics != nil {
		b.metrics.BsrSent.WithLabelValues(trigger.String()).Inc()
	}
	b.log.Debugf("Built %s BSR (%s): %v", trigger, format.name(), buffers)
	return SubPdu{Lcid: format.lcid(), Payload: payload}
}

// reportedLcg is the LCG of the highest priority channel with data left, or 0.
func (b *Bsr) reportedLcg(buffers [NOF_LCG]int) uint8 {
	for _, l := range b.lch.Channels() {
		if l.Lcid != LCID_CCCH && int(l.Lcg) < NOF_LCG && buffers[l.Lcg] > 0 {
			return l.Lcg
		}
	}
	return 0
}

func (f BsrFormat) name() string {
	switch f {
	case BSR_FORMAT_LONG:
		return "long"
	case BSR_FORMAT_TRUNCATED:
		return "truncated"
	}
	return "short"
}

// ParseBsr decodes a BSR CE into per-LCG buffer upper bounds.
func ParseBsr(lcid uint8, payload []byte) [NOF_LCG]int {
	var buffers [NOF_LCG]int
	switch lcid {
	case LCID_LONG_BSR:
		if len(payload) < 3 {
			return buffers
		}
		buffers[0] = BufferSizeUpperBound(payload[0] >> 2)
		buffers[1] = BufferSizeUpperBound((payload[0]&0x03)<<4 | payload[1]>>4)
		buffers[2] = BufferSizeUpperBound((payload[1]&0x0f)<<2 | payload[2]>>6)
		buffers[3] = BufferSizeUpperBound(payload[2] & 0x3f)
	case LCID_SHORT_BSR, LCID_TRUNC_BSR:
		if len(payload) < 1 {
			return buffers
		}
		buffers[payload[0]>>6] = BufferSizeUpperBound(payload[0] & 0x3f)
	}
	return buffers
}
