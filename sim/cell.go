package sim

import (
	"math/rand/v2"
	"sync"

	"github.com/Alonza0314/free-ran-l2/constant"
	"github.com/Alonza0314/free-ran-l2/mac"
	"github.com/Alonza0314/free-ran-l2/model"
	loggergoModel "github.com/Alonza0314/logger-go/v2/model"
)

const (
	// HARQ_RTT_TTI is the distance between a UL transmission and its PHICH.
	HARQ_RTT_TTI = 4
	// MSG3_DELAY_TTI is the distance between the RAR and the Msg3 grant.
	MSG3_DELAY_TTI = 6

	TA_COMMAND_PERIOD = 200
	TA_NO_CHANGE      = 31

	MIN_UL_TBS         = 16
	UL_HEADER_OVERHEAD = 8

	DEFAULT_PHR = 20
)

// Mac is the PHY facing side of the UE MAC.
type Mac interface {
	NewGrantUl(grant mac.UlGrant) mac.UlAction
	HarqFeedback(pid int, ack bool)
	NonAdaptiveRetx(pid int) mac.UlAction
	NewGrantDl(grant mac.DlGrant) mac.DlAction
	TbDecoded(grant mac.DlGrant, ack bool)
}

type prachOccasion struct {
	preamble int
	tti      uint32
	reported bool
}

type ulTransmission struct {
	active  bool
	tti     uint32
	rnti    uint16
	isMsg3  bool
	payload []byte
}

type dlTransmission struct {
	rnti    uint16
	pdu     []byte
	pid     int
	ndi     bool
	started bool
	conRes  bool
}

type Stats struct {
	Preambles   int `json:"preambles"`
	Rars        int `json:"rars"`
	RarsDropped int `json:"rarsDropped"`
	Msg3        int `json:"msg3"`
	Msg4        int `json:"msg4"`
	UlTbs       int `json:"ulTbs"`
	UlNacks     int `json:"ulNacks"`
	UlDrops     int `json:"ulDrops"`
	UlErrors    int `json:"ulErrors"`
	UlBytes     int `json:"ulBytes"`
	DlTbs       int `json:"dlTbs"`
	DlNacks     int `json:"dlNacks"`
	Bsrs        int `json:"bsrs"`
	Srs         int `json:"srs"`
	TaCommands  int `json:"taCommands"`
}

type CellInfo struct {
	Pci      uint16           `json:"pci"`
	Crnti    uint16           `json:"crnti"`
	PhyCrnti uint16           `json:"phyCrnti"`
	Ta       uint32           `json:"ta"`
	Buffers  [mac.NOF_LCG]int `json:"buffers"`
	Phr      int              `json:"phr"`
	Stats    Stats            `json:"stats"`
}

// Cell emulates the eNB side of one cell over a loopback PHY. SetCrnti and ConfigurePrachParams are
// called from background workers, every other method runs on the stack goroutine.
type Cell struct {
	cfg model.CellIE
	pci uint16
	mac Mac
	rng *rand.Rand

	tti uint32

	prach    *prachOccasion
	dropRar  int
	nextRnti uint16

	hoPreamble int
	hoCrnti    uint16

	msg3Pending   bool
	msg3Dedicated bool
	msg3Tti       uint32
	msg3Rnti      uint16
	msg3Tbs       int

	// crnti is the UE identity the cell schedules once contention is resolved.
	crnti        uint16
	pdcchToCrnti bool

	ul    [mac.NOF_UL_HARQ_PROCESSES]ulTransmission
	ulNdi [mac.NOF_UL_HARQ_PROCESSES]bool
	dl    []*dlTransmission
	dlNdi [mac.NOF_DL_HARQ_PROCESSES]bool
	dlPid int

	bsr       [mac.NOF_LCG]int
	phr       int
	srPending bool
	ta        uint32

	rx    map[uint8][][]byte
	stats Stats

	mtx      sync.Mutex
	phyCrnti uint16

	log loggergoModel.LoggerInterface
}

func NewCell(cfg model.CellIE, rng *rand.Rand, log loggergoModel.LoggerInterface) *Cell {
	if cfg.MaxUlTbs <= 0 || cfg.MaxUlTbs > mac.MAX_TB_SIZE {
		cfg.MaxUlTbs = mac.MAX_TB_SIZE
	}
	return &Cell{
		cfg:        cfg,
		pci:        cfg.Pci,
		rng:        rng,
		dropRar:    cfg.DropRar,
		nextRnti:   constant.ENB_UE_RNTI_START,
		hoPreamble: -1,
		rx:         make(map[uint8][][]byte),
		log:        log,
	}
}

// Attach binds the MAC whose PHY this cell is.
func (c *Cell) Attach(m Mac) {
	c.mac = m
}

func (c *Cell) ConfigurePrachParams() error {
	c.log.Debugf("PRACH configured on pci %d", c.pci)
	return nil
}

func (c *Cell) PrachSend(preambleIndex int, allowedSubframe int, targetPowerDbm float32) {
	c.prach = &prachOccasion{preamble: preambleIndex, tti: c.tti}
	c.stats.Preambles++
	c.log.Debugf("Preamble %d at tti %d, power %.1f dBm", preambleIndex, c.tti, targetPowerDbm)
}

func (c *Cell) PrachGetInfo() mac.PrachInfo {
	if c.prach == nil || c.prach.reported {
		return mac.PrachInfo{}
	}
	c.prach.reported = true
	return mac.PrachInfo{IsTransmitted: true, TtiRa: c.prach.tti}
}

func (c *Cell) SetCrnti(rnti uint16) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.phyCrnti = rnti
	return nil
}

func (c *Cell) PhyCrnti() uint16 {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.phyCrnti
}

func (c *Cell) SetTimingAdvance(ta uint32) {
	c.ta = ta
}

func (c *Cell) SetTimingAdvanceRar(ta uint32) {
	c.ta = ta
}

// SetRarGrant schedules the grant the RAR carried. The cell encodes the Msg3 TBS as the grant value.
func (c *Cell) SetRarGrant(grant uint32, tempCrnti uint16) {
	c.msg3Pending = true
	c.msg3Tti = c.tti + MSG3_DELAY_TTI
	c.msg3Rnti = tempCrnti
	c.msg3Tbs = int(grant)
}

func (c *Cell) SrSend() {
	c.srPending = true
	c.stats.Srs++
}

func (c *Cell) GetPhr() int {
	return DEFAULT_PHR
}

// Handover moves the cell to the target of a handover command: the UE is expected on the dedicated
// preamble and keeps crnti.
func (c *Cell) Handover(pci uint16, crnti uint16, preamble int) {
	c.log.Infof("Handover to pci %d, C-RNTI 0x%x, dedicated preamble %d", pci, crnti, preamble)
	c.pci = pci
	c.hoCrnti = crnti
	c.hoPreamble = preamble
	c.crnti = 0
	c.prach = nil
	c.msg3Pending = false
	c.pdcchToCrnti = false
	c.srPending = false
	c.bsr = [mac.NOF_LCG]int{}
	c.dl = nil
	for pid := range c.ul {
		c.ul[pid] = ulTransmission{}
	}
}

// SendDl queues an SDU towards the connected UE.
func (c *Cell) SendDl(lcid uint8, sdu []byte) bool {
	if c.crnti == 0 {
		return false
	}
	c.queueDl(c.crnti, nil, []mac.SubPdu{{Lcid: lcid, Payload: append([]byte(nil), sdu...)}}, false)
	return true
}

func (c *Cell) Received(lcid uint8) [][]byte {
	return c.rx[lcid]
}

func (c *Cell) Info() CellInfo {
	return CellInfo{
		Pci:      c.pci,
		Crnti:    c.crnti,
		PhyCrnti: c.PhyCrnti(),
		Ta:       c.ta,
		Buffers:  c.bsr,
		Phr:      c.phr,
		Stats:    c.stats,
	}
}

func (c *Cell) nack() bool {
	return c.cfg.NackRatio > 0 && c.rng.IntN(100) < c.cfg.NackRatio
}

func (c *Cell) allocateRnti() uint16 {
	rnti := c.nextRnti
	c.nextRnti++
	if c.nextRnti > constant.ENB_UE_RNTI_END {
		c.nextRnti = constant.ENB_UE_RNTI_START
	}
	return rnti
}

// Phich delivers the HARQ feedback due in tti. NACKed processes are retransmitted at once.
func (c *Cell) Phich(tti uint32) {
	c.tti = tti
	for pid := range c.ul {
		tx := &c.ul[pid]
		if !tx.active || tti < tx.tti+HARQ_RTT_TTI {
			continue
		}

		if !c.nack() {
			c.mac.HarqFeedback(pid, true)
			tx.active = false
			c.receive(tx)
			continue
		}

		c.stats.UlNacks++
		c.mac.HarqFeedback(pid, false)
		retx := c.mac.NonAdaptiveRetx(pid)
		if !retx.TbEn {
			c.log.Debugf("UL pid %d dropped after %d transmissions", pid, retx.CurrentTx)
			c.stats.UlDrops++
			tx.active = false
			continue
		}
		tx.tti = tti
		tx.payload = append(tx.payload[:0], retx.Payload...)
	}
}

// Schedule issues the DL and UL grants of tti.
func (c *Cell) Schedule(tti uint32) {
	c.tti = tti
	c.scheduleRar(tti)
	if c.cfg.TaCommands && c.crnti != 0 && tti%TA_COMMAND_PERIOD == 0 {
		c.queueDl(c.crnti, []mac.SubPdu{{Lcid: mac.LCID_TA_CMD, Payload: []byte{TA_NO_CHANGE}}}, nil, false)
		c.stats.TaCommands++
	}
	c.scheduleDl(tti)
	c.scheduleUl(tti)
}

func (c *Cell) scheduleRar(tti uint32) {
	p := c.prach
	if p == nil || !p.reported || tti < p.tti+mac.RA_WINDOW_OFFSET {
		return
	}
	c.prach = nil

	if c.dropRar > 0 {
		c.dropRar--
		c.stats.RarsDropped++
		c.log.Debugf("Dropping RAR for preamble %d", p.preamble)
		return
	}

	dedicated := c.hoCrnti != 0 && p.preamble == c.hoPreamble
	temp := c.allocateRnti()
	if dedicated {
		temp = c.hoCrnti
	}
	bi := -1
	if c.cfg.Backoff > 0 && !dedicated {
		bi = c.cfg.Backoff
	}
	pdu := mac.EncodeRarPdu(mac.RarPdu{
		BackoffIndicator: bi,
		Rars: []mac.Rar{{
			Rapid:     p.preamble,
			Ta:        uint32(c.rng.IntN(64)),
			Grant:     uint32(c.cfg.Msg3Tbs),
			TempCrnti: temp,
		}},
	})

	grant := mac.DlGrant{Rnti: uint16(1 + p.tti%10), Tti: tti, Tbs: len(pdu)}
	action := c.mac.NewGrantDl(grant)
	if !action.DecodeEnabled {
		c.log.Debugf("RAR on RA-RNTI 0x%x not decoded", grant.Rnti)
		return
	}
	copy(action.Payload, pdu)
	c.mac.TbDecoded(grant, true)
	c.stats.Rars++
	c.msg3Dedicated = dedicated

	if dedicated {
		c.crnti = temp
		c.hoCrnti = 0
		c.hoPreamble = -1
	}
}

func (c *Cell) queueDl(rnti uint16, ces []mac.SubPdu, sdus []mac.SubPdu, conRes bool) {
	grant := 0
	for _, ce := range ces {
		grant += 1 + len(ce.Payload)
	}
	for _, sdu := range sdus {
		grant += 3 + len(sdu.Payload)
	}
	pdu, err := mac.EncodeSchPdu(grant, ces, sdus)
	if err != nil {
		c.log.Errorf("Error encoding DL PDU: %v", err)
		return
	}
	c.dl = append(c.dl, &dlTransmission{rnti: rnti, pdu: pdu, conRes: conRes})
}

// scheduleDl sends one transport block per TTI. A NACKed block is retransmitted with the same NDI.
func (c *Cell) scheduleDl(tti uint32) {
	if len(c.dl) == 0 {
		return
	}
	d := c.dl[0]
	rv := 2
	if !d.started {
		d.started = true
		d.pid = c.dlPid
		c.dlPid = (c.dlPid + 1) % mac.NOF_DL_HARQ_PROCESSES
		c.dlNdi[d.pid] = !c.dlNdi[d.pid]
		d.ndi = c.dlNdi[d.pid]
		rv = 0
	}

	grant := mac.DlGrant{Rnti: d.rnti, Tti: tti, Pid: d.pid, Tbs: len(d.pdu), Ndi: d.ndi, NdiPresent: true, Rv: rv}
	action := c.mac.NewGrantDl(grant)
	if !action.DecodeEnabled {
		c.dl = c.dl[1:]
		return
	}
	copy(action.Payload, d.pdu)
	c.stats.DlTbs++

	if c.nack() {
		c.stats.DlNacks++
		c.mac.TbDecoded(grant, false)
		return
	}
	c.mac.TbDecoded(grant, true)
	c.dl = c.dl[1:]
	if d.conRes {
		c.crnti = d.rnti
		c.stats.Msg4++
		c.log.Infof("Contention resolved for C-RNTI 0x%x", d.rnti)
	}
}

func (c *Cell) pendingBytes() int {
	total := 0
	for _, b := range c.bsr {
		total += b
	}
	return total
}

func (c *Cell) scheduleUl(tti uint32) {
	pid := int(tti % mac.NOF_UL_HARQ_PROCESSES)
	if c.ul[pid].active {
		return
	}

	if c.msg3Pending && tti >= c.msg3Tti {
		c.msg3Pending = false
		c.ulNdi[pid] = false
		grant := mac.UlGrant{Rnti: c.msg3Rnti, Tti: tti, Pid: pid, Tbs: c.msg3Tbs, Rv: -1, IsRar: true}
		if c.transmit(grant, !c.msg3Dedicated) && !c.msg3Dedicated {
			c.stats.Msg3++
		}
		return
	}

	if c.crnti == 0 {
		return
	}
	need := c.pendingBytes()
	if need == 0 && !c.srPending && !c.pdcchToCrnti {
		return
	}

	tbs := need + UL_HEADER_OVERHEAD
	if tbs < MIN_UL_TBS {
		tbs = MIN_UL_TBS
	}
	if tbs > c.cfg.MaxUlTbs {
		tbs = c.cfg.MaxUlTbs
	}

	c.ulNdi[pid] = !c.ulNdi[pid]
	grant := mac.UlGrant{Rnti: c.crnti, Tti: tti, Pid: pid, Tbs: tbs, Ndi: c.ulNdi[pid], Rv: -1}
	if !c.transmit(grant, false) {
		c.ulNdi[pid] = !c.ulNdi[pid]
		return
	}
	c.srPending = false
	c.pdcchToCrnti = false
}

func (c *Cell) transmit(grant mac.UlGrant, isMsg3 bool) bool {
	action := c.mac.NewGrantUl(grant)
	if !action.TbEn {
		return false
	}
	c.ul[grant.Pid] = ulTransmission{
		active:  true,
		tti:     grant.Tti,
		rnti:    grant.Rnti,
		isMsg3:  isMsg3,
		payload: append([]byte(nil), action.Payload...),
	}
	c.stats.UlTbs++
	return true
}

func (c *Cell) receive(tx *ulTransmission) {
	subPdus, err := mac.ParseSchPdu(tx.payload, true)
	if err != nil {
		c.log.Warnf("Error parsing UL PDU from 0x%x: %v", tx.rnti, err)
		c.stats.UlErrors++
		return
	}

	for _, s := range subPdus {
		switch {
		case s.IsSdu():
			if s.Lcid == mac.LCID_CCCH && tx.isMsg3 && len(s.Payload) >= mac.CONTENTION_ID_LEN {
				c.queueDl(tx.rnti, []mac.SubPdu{{Lcid: mac.LCID_CON_RES_ID, Payload: append([]byte(nil), s.Payload[:mac.CONTENTION_ID_LEN]...)}}, nil, true)
			}
			c.deliver(s)
		case s.Lcid == mac.LCID_CRNTI:
			c.crnti = uint16(s.Payload[0])<<8 | uint16(s.Payload[1])
			c.pdcchToCrnti = true
			c.log.Infof("Msg3 from C-RNTI 0x%x", c.crnti)
		case s.Lcid == mac.LCID_SHORT_BSR, s.Lcid == mac.LCID_TRUNC_BSR, s.Lcid == mac.LCID_LONG_BSR:
			c.bsr = mac.ParseBsr(s.Lcid, s.Payload)
			c.stats.Bsrs++
		case s.Lcid == mac.LCID_PHR:
			c.phr = int(s.Payload[0] & 0x3f)
		}
	}
}

func (c *Cell) deliver(s mac.SubPdu) {
	sdu := append([]byte(nil), s.Payload...)
	c.rx[s.Lcid] = append(c.rx[s.Lcid], sdu)
	c.stats.UlBytes += len(sdu)

	served := len(sdu)
	for lcg := range c.bsr {
		if served == 0 {
			break
		}
		n := min(served, c.bsr[lcg])
		c.bsr[lcg] -= n
		served -= n
	}

	if c.cfg.Echo && s.Lcid >= constant.UE_DRB1_LCID && c.crnti != 0 {
		c.queueDl(c.crnti, nil, []mac.SubPdu{{Lcid: s.Lcid, Payload: sdu}}, false)
	}
}
