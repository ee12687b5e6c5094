package mac

import (
	"github.com/Alonza0314/free-ran-l2/metrics"
	"github.com/Alonza0314/free-ran-l2/pool"
	loggergoModel "github.com/Alonza0314/logger-go/v2/model"
)

// CalcIsNewTransmissionDl follows 36.321 5.3.2.2.
func CalcIsNewTransmissionDl(ndiToggled, ndiPresent, isBcch bool, rv int, firstGrant bool) bool {
	return (ndiToggled && ndiPresent) || (isBcch && rv == 0) || firstGrant
}

type dlHarqProcess struct {
	pid int

	hasGrant      bool
	grant         DlGrant
	ndi           bool
	ack           bool
	nofDuplicates int

	payload *pool.ByteBuffer
}

type DlHarqEntity struct {
	procs [NOF_DL_HARQ_PROCESSES]dlHarqProcess
	bcch  dlHarqProcess

	pool *pool.BufferPool

	log     loggergoModel.LoggerInterface
	metrics *metrics.MacMetrics
}

func NewDlHarqEntity(bufferPool *pool.BufferPool, log loggergoModel.LoggerInterface, m *metrics.MacMetrics) *DlHarqEntity {
	h := &DlHarqEntity{
		pool:    bufferPool,
		log:     log,
		metrics: m,
	}
	for i := range h.procs {
		h.procs[i].pid = i
	}
	h.bcch.pid = -1
	return h
}

func (h *DlHarqEntity) process(grant DlGrant) *dlHarqProcess {
	if grant.IsBcch {
		return &h.bcch
	}
	if grant.Pid < 0 || grant.Pid >= NOF_DL_HARQ_PROCESSES {
		return nil
	}
	return &h.procs[grant.Pid]
}

func (h *DlHarqEntity) drop(reason string) {
	if h.metrics != nil {
		h.metrics.HarqDrops.WithLabelValues(reason).Inc()
	}
}

func (h *DlHarqEntity) NewGrantDl(grant DlGrant) DlAction {
	p := h.process(grant)
	if p == nil {
		h.log.Errorf("Dropping DL grant with invalid pid %d", grant.Pid)
		h.drop("invalid_pid")
		return DlAction{}
	}
	if grant.Tbs <= 0 || grant.Tbs > MAX_TB_SIZE {
		h.log.Errorf("Dropping DL grant for pid %d with invalid TBS %d", grant.Pid, grant.Tbs)
		h.drop("invalid_tbs")
		return DlAction{}
	}

	ndiToggled := p.hasGrant && grant.Ndi != p.ndi
	if CalcIsNewTransmissionDl(ndiToggled, grant.NdiPresent, grant.IsBcch, grant.Rv, !p.hasGrant) {
		if p.payload == nil {
			buf, err := h.pool.Allocate("dl_harq", false)
			if err != nil {
				h.log.Errorf("No buffer for DL pid %d: %v", p.pid, err)
				h.drop("pool_exhausted")
				return DlAction{}
			}
			p.payload = buf
		}
		p.hasGrant = true
		p.grant = grant
		p.ndi = grant.Ndi
		p.ack = false
		p.nofDuplicates = 0
		if h.metrics != nil {
			h.metrics.HarqTx.WithLabelValues("dl", "new").Inc()
		}
		h.log.Tracef("DL new tx pid %d rnti 0x%x tbs %d", p.pid, grant.Rnti, grant.Tbs)
		return DlAction{
			DecodeEnabled: true,
			GenerateAck:   !grant.IsBcch,
			Payload:       p.payload.Resize(grant.Tbs),
		}
	}

	if p.ack {
		p.nofDuplicates++
		h.log.Debugf("Duplicate TB on DL pid %d (%d), regenerating ACK", p.pid, p.nofDuplicates)
		if p.nofDuplicates >= DL_MAX_DUPLICATES {
			h.log.Warnf("DL pid %d received %d duplicates, resetting process", p.pid, p.nofDuplicates)
			if h.metrics != nil {
				h.metrics.DlHarqResets.Inc()
			}
			h.resetProcess(p)
		}
		return DlAction{
			DecodeEnabled: false,
			GenerateAck:   !grant.IsBcch,
			DefaultAck:    true,
		}
	}

	if p.payload == nil {
		buf, err := h.pool.Allocate("dl_harq", false)
		if err != nil {
			h.log.Errorf("No buffer for DL retx on pid %d: %v", p.pid, err)
			h.drop("pool_exhausted")
			return DlAction{}
		}
		p.payload = buf
	}
	p.grant = grant
	if h.metrics != nil {
		h.metrics.HarqTx.WithLabelValues("dl", "retx").Inc()
	}
	h.log.Tracef("DL retx pid %d rv %d", p.pid, grant.Rv)
	return DlAction{
		DecodeEnabled: true,
		GenerateAck:   !grant.IsBcch,
		Payload:       p.payload.Resize(grant.Tbs),
	}
}

// TbDecoded records the decoding result. On success ownership of the buffer moves to the caller.
func (h *DlHarqEntity) TbDecoded(grant DlGrant, ack bool) *pool.ByteBuffer {
	p := h.process(grant)
	if p == nil || !p.hasGrant {
		return nil
	}
	if !ack {
		p.ack = false
		return nil
	}
	if p.ack {
		return nil
	}
	p.ack = true
	buf := p.payload
	p.payload = nil
	return buf
}

func (h *DlHarqEntity) resetProcess(p *dlHarqProcess) {
	if p.payload != nil {
		if err := h.pool.Deallocate(p.payload); err != nil {
			h.log.Errorf("Error releasing DL pid %d buffer: %v", p.pid, err)
		}
		p.payload = nil
	}
	p.hasGrant = false
	p.ack = false
	p.nofDuplicates = 0
}

func (h *DlHarqEntity) Reset() {
	for i := range h.procs {
		h.resetProcess(&h.procs[i])
		h.procs[i].ndi = false
	}
	h.resetProcess(&h.bcch)
	h.log.Debugf("DL HARQ reset")
}
