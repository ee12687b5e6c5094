package mac

import (
	"math/rand/v2"

	"github.com/Alonza0314/free-ran-l2/logger"
	"github.com/Alonza0314/free-ran-l2/metrics"
	"github.com/Alonza0314/free-ran-l2/model"
	"github.com/Alonza0314/free-ran-l2/pool"
)

// Mac is the UE MAC entity. Every method except Rntis and the pool must be called from the stack goroutine.
type Mac struct {
	phy PhyInterface
	rlc RlcInterface
	rrc RrcInterface

	rntis *RntiHolder
	pool  *pool.BufferPool

	lch    *LchTable
	bsr    *Bsr
	phr    *Phr
	sr     *Sr
	mux    *Mux
	demux  *Demux
	ta     *TimeAlignment
	ra     *RaProcedure
	ulHarq *UlHarqEntity
	dlHarq *DlHarqEntity

	rarBuf [MAX_RAR_PDU_SIZE]byte
	tti    uint32

	log     *logger.UeLogger
	metrics *metrics.MacMetrics
}

func NewMac(cfg *model.MacIE, phy PhyInterface, rlc RlcInterface, rrc RrcInterface, tasks TaskScheduler, bufferPool *pool.BufferPool, rng *rand.Rand, log *logger.UeLogger, m *metrics.MacMetrics) *Mac {
	mac := &Mac{
		phy:     phy,
		rlc:     rlc,
		rrc:     rrc,
		rntis:   NewRntiHolder(),
		pool:    bufferPool,
		log:     log,
		metrics: m,
	}

	mac.lch = NewLchTable(cfg.LogicalChannels)
	mac.sr = NewSr(cfg.Sr, phy, rrc, mac.rntis, func() { mac.ra.Start(false) }, log.MacLog)
	mac.bsr = NewBsr(cfg.Bsr, mac.lch, mac.sr, log.BsrLog, m)
	mac.phr = NewPhr(cfg.Phr, phy, log.MacLog)
	mac.mux = NewMux(mac.lch, rlc, mac.bsr, mac.phr, log.MuxLog, m)
	mac.ta = NewTimeAlignment(cfg.TimeAlignment.Timer, phy, mac.timeAlignmentExpired, log.MacLog)
	mac.ra = NewRaProcedure(cfg.Rach, phy, rrc, mac.mux, mac.rntis, mac.ta, tasks, rng, log.RaLog, m)
	mac.ra.OnComplete(func() {
		mac.sr.RestorePucch()
		mac.sr.Reset()
	})
	mac.ulHarq = NewUlHarqEntity(cfg.Harq.MaxHarqTx, cfg.Rach.MaxHarqMsg3Tx, mac.mux, mac.ra, mac.rntis, bufferPool, log.HarqLog, m)
	mac.dlHarq = NewDlHarqEntity(bufferPool, log.HarqLog, m)
	mac.demux = NewDemux(rlc, mac.ra, mac.ta, bufferPool, log.MacLog)

	return mac
}

func (m *Mac) Rntis() *RntiHolder {
	return m.rntis
}

func (m *Mac) Tti() uint32 {
	return m.tti
}

// RunTti advances every procedure by one TTI.
func (m *Mac) RunTti(tti uint32) {
	m.tti = tti

	m.ta.Step()
	m.lch.RefreshBuffers(m.rlc)
	m.mux.Step()
	m.bsr.Step()
	m.phr.Step()
	m.sr.Step(m.ra.IsIdle())
	m.ra.Step(tti)
	m.demux.ProcessPdus()

	if m.metrics != nil {
		m.metrics.PoolFree.Set(float64(m.pool.Available()))
	}
}

func (m *Mac) NewGrantUl(grant UlGrant) UlAction {
	if !grant.IsRar && m.ra.IsContentionResolution() {
		if crnti := m.rntis.Crnti(); crnti != 0 && grant.Rnti == crnti {
			m.ra.PdcchToCrnti(m.ulHarq.IsNewTransmission(grant))
		}
	}
	return m.ulHarq.NewGrantUl(grant)
}

// HarqFeedback stores the PHICH result for pid.
func (m *Mac) HarqFeedback(pid int, ack bool) {
	m.ulHarq.SetFeedback(pid, ack)
}

// NonAdaptiveRetx is called for a process that got a NACK and no DCI in its retransmission TTI.
func (m *Mac) NonAdaptiveRetx(pid int) UlAction {
	return m.ulHarq.NonAdaptiveRetx(pid)
}

func (m *Mac) isRar(grant DlGrant) bool {
	raRnti := m.rntis.RaRnti()
	return raRnti != 0 && grant.Rnti == raRnti && m.ra.IsResponseWindow()
}

func (m *Mac) NewGrantDl(grant DlGrant) DlAction {
	if m.isRar(grant) {
		if grant.Tbs <= 0 || grant.Tbs > MAX_RAR_PDU_SIZE {
			m.log.MacLog.Errorf("Dropping RAR grant with TBS %d", grant.Tbs)
			return DlAction{}
		}
		return DlAction{
			DecodeEnabled: true,
			Payload:       m.rarBuf[:grant.Tbs],
		}
	}
	return m.dlHarq.NewGrantDl(grant)
}

// TbDecoded hands a decoded DL transport block to the RA procedure or the demux.
func (m *Mac) TbDecoded(grant DlGrant, ack bool) {
	if m.isRar(grant) {
		if ack {
			m.ra.RarReceived(m.rarBuf[:grant.Tbs])
		}
		return
	}

	buf := m.dlHarq.TbDecoded(grant, ack)
	if buf == nil {
		return
	}

	switch {
	case grant.IsBcch:
		m.demux.Push(buf, true)
	case m.ra.IsContentionResolution() && m.rntis.TempCrnti() != 0 && grant.Rnti == m.rntis.TempCrnti():
		m.demux.PushTempCrnti(buf)
	default:
		m.demux.Push(buf, false)
	}
}

func (m *Mac) StartRa() {
	m.ra.Start(false)
}

// StartNoncontentionRa starts RA with a dedicated preamble, as for a handover or a PDCCH order.
func (m *Mac) StartNoncontentionRa(preambleIndex, prachMaskIndex int, isHandover bool) {
	m.ra.StartNoncontention(preambleIndex, prachMaskIndex, isHandover)
}

// StartHandoverRa starts a contention based RA towards a target cell.
func (m *Mac) StartHandoverRa() {
	m.ra.Start(true)
}

// SetCrnti installs the C-RNTI assigned by RRC, for instance in a handover command.
func (m *Mac) SetCrnti(rnti uint16) {
	m.rntis.SetCrnti(rnti)
}

func (m *Mac) SetupLogicalChannel(cfg model.LogicalChannelIE) {
	m.lch.Setup(cfg)
	m.log.MacLog.Infof("Logical channel %d set up (lcg %d, priority %d)", cfg.Lcid, cfg.Lcg, cfg.Priority)
}

func (m *Mac) RemoveLogicalChannel(lcid uint8) {
	m.lch.Remove(lcid)
}

func (m *Mac) timeAlignmentExpired() {
	m.ulHarq.Reset()
	m.dlHarq.Reset()
	m.sr.ReleasePucch()
	m.rrc.ReleasePucchSrs()
}

// Reset flushes the MAC entity. The C-RNTI is kept.
func (m *Mac) Reset() {
	m.ra.Reset()
	m.ulHarq.Reset()
	m.dlHarq.Reset()
	m.demux.Reset()
	m.mux.Reset()
	m.bsr.Reset()
	m.phr.Reset()
	m.sr.Reset()
	m.ta.Stop()
	m.log.MacLog.Infof("MAC reset")
}

type MacInfo struct {
	Tti           uint32 `json:"tti"`
	Rntis         Rntis  `json:"rntis"`
	Ra            RaInfo `json:"ra"`
	BsrTrigger    string `json:"bsrTrigger"`
	SrPending     bool   `json:"srPending"`
	TaRunning     bool   `json:"taRunning"`
	PoolAvailable int    `json:"poolAvailable"`
	PoolUsed      int    `json:"poolUsed"`
}

// Info snapshots the entity. It must run on the stack goroutine.
func (m *Mac) Info() MacInfo {
	available, used := m.pool.Stats()
	return MacInfo{
		Tti:           m.tti,
		Rntis:         m.rntis.Snapshot(),
		Ra:            m.ra.Info(),
		BsrTrigger:    m.bsr.Trigger().String(),
		SrPending:     m.sr.IsPending(),
		TaRunning:     m.ta.IsRunning(),
		PoolAvailable: available,
		PoolUsed:      used,
	}
}
