package mac

import (
	"github.com/Alonza0314/free-ran-l2/pool"
	loggergoModel "github.com/Alonza0314/logger-go/v2/model"
)

type contentionResolver interface {
	ContentionResolutionIdReceived(id uint64) bool
}

type pendingPdu struct {
	buf  *pool.ByteBuffer
	bcch bool
}

// Demux unpacks DL-SCH PDUs. PDUs pushed from HARQ are processed later in the TTI, except Msg4 which
// must resolve contention before its SDUs reach RLC.
type Demux struct {
	rlc  RlcInterface
	ra   contentionResolver
	ta   *TimeAlignment
	pool *pool.BufferPool

	pending []pendingPdu

	log loggergoModel.LoggerInterface
}

func NewDemux(rlc RlcInterface, ra contentionResolver, ta *TimeAlignment, bufferPool *pool.BufferPool, log loggergoModel.LoggerInterface) *Demux {
	return &Demux{
		rlc:  rlc,
		ra:   ra,
		ta:   ta,
		pool: bufferPool,
		log:  log,
	}
}

// Push queues a decoded transport block. The demux owns buf from here on.
func (d *Demux) Push(buf *pool.ByteBuffer, bcch bool) {
	d.pending = append(d.pending, pendingPdu{buf: buf, bcch: bcch})
}

// PushTempCrnti processes a PDU received on the temporary C-RNTI right away and reports whether it
// resolved contention.
func (d *Demux) PushTempCrnti(buf *pool.ByteBuffer) bool {
	defer d.release(buf)

	subPdus, err := ParseSchPdu(buf.Bytes(), false)
	if err != nil {
		d.log.Errorf("Error parsing temp C-RNTI PDU: %v", err)
		return false
	}

	resolved := false
	for _, s := range subPdus {
		if s.Lcid == LCID_CON_RES_ID {
			id := contentionId(s.Payload)
			resolved = d.ra.ContentionResolutionIdReceived(id)
			break
		}
	}
	if !resolved {
		d.log.Debugf("Temp C-RNTI PDU did not resolve contention, discarding")
		return false
	}
	d.deliver(subPdus)
	return true
}

func (d *Demux) ProcessPdus() int {
	n := len(d.pending)
	for _, p := range d.pending {
		if p.bcch {
			d.rlc.WritePduBcch(p.buf.Bytes())
		} else {
			subPdus, err := ParseSchPdu(p.buf.Bytes(), false)
			if err != nil {
				d.log.Errorf("Error parsing DL PDU: %v", err)
			} else {
				d.deliver(subPdus)
			}
		}
		d.release(p.buf)
	}
	d.pending = d.pending[:0]
	return n
}

func (d *Demux) deliver(subPdus []SubPdu) {
	for _, s := range subPdus {
		switch {
		case s.IsSdu():
			d.rlc.WritePdu(s.Lcid, s.Payload)
		case s.Lcid == LCID_TA_CMD:
			d.ta.ApplyCommand(uint32(s.Payload[0] & 0x3f))
		case s.Lcid == LCID_CON_RES_ID:
		case s.Lcid == LCID_DRX_CMD:
			d.log.Debugf("Received DRX command")
		default:
			d.log.Warnf("Unhandled DL control element lcid %d", s.Lcid)
		}
	}
}

func (d *Demux) release(buf *pool.ByteBuffer) {
	if err := d.pool.Deallocate(buf); err != nil {
		d.log.Errorf("Error releasing DL buffer: %v", err)
	}
}

func (d *Demux) Reset() {
	for _, p := range d.pending {
		d.release(p.buf)
	}
	d.pending = d.pending[:0]
}
