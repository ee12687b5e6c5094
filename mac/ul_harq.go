package mac

import (
	"github.com/Alonza0314/free-ran-l2/metrics"
	"github.com/Alonza0314/free-ran-l2/pool"
	loggergoModel "github.com/Alonza0314/logger-go/v2/model"
)

// CalcIsNewTransmission decides a new UL transmission: NDI toggled on a normal grant, a RAR grant,
// or the first grant seen by the process.
func CalcIsNewTransmission(ndiToggled, isTempOrRar, firstGrant bool) bool {
	return ndiToggled || isTempOrRar || firstGrant
}

type raHarqListener interface {
	Msg3Transmitted()
	HarqMaxRetx()
}

type ulHarqProcess struct {
	pid int

	hasGrant   bool
	grant      UlGrant
	ndi        bool
	currentTx  int
	currentIrv int
	isMsg3     bool

	hasFeedback bool
	ack         bool

	payload *pool.ByteBuffer
}

type UlHarqEntity struct {
	procs [NOF_UL_HARQ_PROCESSES]ulHarqProcess

	mux   *Mux
	ra    raHarqListener
	rntis *RntiHolder
	pool  *pool.BufferPool

	maxHarqTx     int
	maxHarqMsg3Tx int

	log     loggergoModel.LoggerInterface
	metrics *metrics.MacMetrics
}

func NewUlHarqEntity(maxHarqTx, maxHarqMsg3Tx int, mux *Mux, ra raHarqListener, rntis *RntiHolder, bufferPool *pool.BufferPool, log loggergoModel.LoggerInterface, m *metrics.MacMetrics) *UlHarqEntity {
	h := &UlHarqEntity{
		mux:           mux,
		ra:            ra,
		rntis:         rntis,
		pool:          bufferPool,
		maxHarqTx:     maxHarqTx,
		maxHarqMsg3Tx: maxHarqMsg3Tx,
		log:           log,
		metrics:       m,
	}
	for i := range h.procs {
		h.procs[i].pid = i
	}
	return h
}

func (h *UlHarqEntity) drop(reason string) {
	if h.metrics != nil {
		h.metrics.HarqDrops.WithLabelValues(reason).Inc()
	}
}

func (h *UlHarqEntity) countTx(kind string) {
	if h.metrics != nil {
		h.metrics.HarqTx.WithLabelValues("ul", kind).Inc()
	}
}

func (h *UlHarqEntity) SetMaxHarqTx(maxHarqTx, maxHarqMsg3Tx int) {
	h.maxHarqTx = maxHarqTx
	h.maxHarqMsg3Tx = maxHarqMsg3Tx
}

func (h *UlHarqEntity) NewGrantUl(grant UlGrant) UlAction {
	if grant.Pid < 0 || grant.Pid >= NOF_UL_HARQ_PROCESSES {
		h.log.Errorf("Dropping UL grant with invalid pid %d", grant.Pid)
		h.drop("invalid_pid")
		return UlAction{}
	}
	if grant.Tbs <= 0 || grant.Tbs > MAX_TB_SIZE {
		h.log.Errorf("Dropping UL grant for pid %d with invalid TBS %d", grant.Pid, grant.Tbs)
		h.drop("invalid_tbs")
		return UlAction{}
	}

	p := &h.procs[grant.Pid]
	if h.isNewTx(p, grant) {
		return h.newTx(p, grant)
	}
	return h.retx(p, grant, true)
}

// isNewTx ignores the NDI of grants on the temporary C-RNTI: once Msg3 is on the process they are
// adaptive retransmissions bounded by maxHarqMsg3Tx.
func (h *UlHarqEntity) isNewTx(p *ulHarqProcess, grant UlGrant) bool {
	temp := h.rntis.TempCrnti()
	isTemp := !grant.IsRar && temp != 0 && grant.Rnti == temp
	tempSwitch := isTemp && p.hasGrant && !p.isMsg3 && p.grant.Rnti != temp
	ndiToggled := !grant.IsRar && !isTemp && p.hasGrant && grant.Ndi != p.ndi
	return CalcIsNewTransmission(ndiToggled, grant.IsRar || tempSwitch, !p.hasGrant)
}

func (h *UlHarqEntity) isMsg3Grant(grant UlGrant) bool {
	if grant.IsRar {
		return true
	}
	temp := h.rntis.TempCrnti()
	return temp != 0 && grant.Rnti == temp && h.mux.Msg3IsPending()
}

func (h *UlHarqEntity) newTx(p *ulHarqProcess, grant UlGrant) UlAction {
	isMsg3 := h.isMsg3Grant(grant)

	allocated := false
	if p.payload == nil {
		buf, err := h.pool.Allocate("ul_harq", false)
		if err != nil {
			h.log.Errorf("No buffer for UL pid %d: %v", p.pid, err)
			h.drop("pool_exhausted")
			return UlAction{}
		}
		p.payload = buf
		allocated = true
	}

	var data []byte
	var err error
	if isMsg3 {
		data, err = h.mux.Msg3Get(p.payload, grant.Tbs)
	} else {
		data, err = h.mux.PduGet(p.payload, grant.Tbs)
	}
	if err != nil {
		h.log.Errorf("Error generating UL PDU for pid %d: %v", p.pid, err)
		if allocated {
			h.releasePayload(p)
		}
		h.drop("mux_error")
		return UlAction{}
	}

	p.grant = grant
	p.hasGrant = true
	p.ndi = grant.Ndi
	p.currentTx = 1
	p.currentIrv = 0
	p.isMsg3 = isMsg3
	p.hasFeedback = false

	rv := ulRvSequence[0]
	if grant.Rv >= 0 {
		rv = grant.Rv
	}

	h.log.Debugf("UL new tx pid %d rnti 0x%x tbs %d msg3 %v", p.pid, grant.Rnti, grant.Tbs, isMsg3)
	h.countTx("new")
	if isMsg3 {
		h.ra.Msg3Transmitted()
	}

	return UlAction{
		TbEn:      true,
		Pid:       p.pid,
		Rnti:      grant.Rnti,
		Rv:        rv,
		CurrentTx: p.currentTx,
		IsMsg3:    isMsg3,
		Payload:   data,
	}
}

func (h *UlHarqEntity) retx(p *ulHarqProcess, grant UlGrant, adaptive bool) UlAction {
	if p.payload == nil {
		if !p.isMsg3 || !h.mux.Msg3IsCached() {
			h.log.Warnf("Retransmission requested on UL pid %d without data", p.pid)
			h.drop("retx_without_data")
			return UlAction{}
		}
		buf, err := h.pool.Allocate("ul_harq", false)
		if err != nil {
			h.log.Errorf("No buffer for Msg3 retransmission on pid %d: %v", p.pid, err)
			h.drop("pool_exhausted")
			return UlAction{}
		}
		p.payload = buf
		if _, err := h.mux.Msg3Get(p.payload, p.grant.Tbs); err != nil {
			h.log.Errorf("Error restoring Msg3 on pid %d: %v", p.pid, err)
			h.releasePayload(p)
			return UlAction{}
		}
	}

	maxTx := h.maxHarqTx
	if p.isMsg3 {
		maxTx = h.maxHarqMsg3Tx
	}
	if p.currentTx >= maxTx {
		if p.isMsg3 {
			h.log.Warnf("Msg3 reached maximum of %d transmissions on pid %d", maxTx, p.pid)
			h.drop("msg3_max_retx")
			h.resetProcess(p)
			h.ra.HarqMaxRetx()
		} else {
			h.log.Warnf("Discarding TB on UL pid %d after %d transmissions", p.pid, maxTx)
			h.drop("max_retx")
			h.resetProcess(p)
		}
		return UlAction{}
	}

	p.currentTx++
	p.currentIrv = (p.currentIrv + 1) % len(ulRvSequence)
	p.hasFeedback = false
	rv := ulRvSequence[p.currentIrv]
	if adaptive {
		if grant.Rv >= 0 {
			rv = grant.Rv
		}
		if grant.Tbs != p.payload.N {
			h.log.Warnf("Adaptive retx on pid %d with TBS %d differs from buffered %d", p.pid, grant.Tbs, p.payload.N)
		}
		p.grant = grant
	}

	kind := "nonadaptive"
	if adaptive {
		kind = "adaptive"
	}
	h.log.Debugf("UL %s retx pid %d tx %d rv %d", kind, p.pid, p.currentTx, rv)
	h.countTx(kind)
	if p.isMsg3 {
		h.ra.Msg3Transmitted()
	}

	return UlAction{
		TbEn:      true,
		Pid:       p.pid,
		Rnti:      p.grant.Rnti,
		Rv:        rv,
		CurrentTx: p.currentTx,
		IsMsg3:    p.isMsg3,
		Payload:   p.payload.Bytes(),
	}
}

// SetFeedback stores the PHICH result. An ACK returns the buffer to the pool.
func (h *UlHarqEntity) SetFeedback(pid int, ack bool) {
	if pid < 0 || pid >= NOF_UL_HARQ_PROCESSES {
		h.log.Errorf("HARQ feedback for invalid pid %d", pid)
		return
	}
	p := &h.procs[pid]
	if !p.hasGrant {
		return
	}
	p.hasFeedback = true
	p.ack = ack
	if ack {
		h.releasePayload(p)
	}
}

// NonAdaptiveRetx retransmits on the stored grant after a NACK received without a DCI.
func (h *UlHarqEntity) NonAdaptiveRetx(pid int) UlAction {
	if pid < 0 || pid >= NOF_UL_HARQ_PROCESSES {
		return UlAction{}
	}
	p := &h.procs[pid]
	if !p.hasFeedback || p.ack {
		return UlAction{}
	}
	return h.retx(p, p.grant, false)
}

func (h *UlHarqEntity) releasePayload(p *ulHarqProcess) {
	if p.payload == nil {
		return
	}
	if err := h.pool.Deallocate(p.payload); err != nil {
		h.log.Errorf("Error releasing UL pid %d buffer: %v", p.pid, err)
	}
	p.payload = nil
}

func (h *UlHarqEntity) resetProcess(p *ulHarqProcess) {
	h.releasePayload(p)
	p.hasGrant = false
	p.currentTx = 0
	p.currentIrv = 0
	p.hasFeedback = false
	p.ack = false
	p.isMsg3 = false
}

func (h *UlHarqEntity) Reset() {
	for i := range h.procs {
		h.resetProcess(&h.procs[i])
		h.procs[i].ndi = false
	}
	h.log.Debugf("UL HARQ reset")
}

// CurrentTx reports the transmission count of a process, for tests and the info API.
func (h *UlHarqEntity) CurrentTx(pid int) int {
	if pid < 0 || pid >= NOF_UL_HARQ_PROCESSES {
		return 0
	}
	return h.procs[pid].currentTx
}

// IsNewTransmission reports how NewGrantUl would classify grant, without side effects.
func (h *UlHarqEntity) IsNewTransmission(grant UlGrant) bool {
	if grant.Pid < 0 || grant.Pid >= NOF_UL_HARQ_PROCESSES {
		return false
	}
	return h.isNewTx(&h.procs[grant.Pid], grant)
}
