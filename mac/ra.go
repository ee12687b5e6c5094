package mac

import (
	"math/rand/v2"

	"github.com/Alonza0314/free-ran-l2/metrics"
	"github.com/Alonza0314/free-ran-l2/model"
	"github.com/Alonza0314/free-ran-l2/task"
	loggergoModel "github.com/Alonza0314/logger-go/v2/model"
)

type RaState int

const (
	RA_STATE_IDLE RaState = iota
	RA_STATE_WAITING_PHY_CONFIG
	RA_STATE_PDCCH_SETUP
	RA_STATE_RESPONSE_RECEPTION
	RA_STATE_BACKOFF_WAIT
	RA_STATE_CONTENTION_RESOLUTION
	RA_STATE_START_WAIT_COMPLETION
	RA_STATE_WAITING_COMPLETION
)

func (s RaState) String() string {
	switch s {
	case RA_STATE_IDLE:
		return "IDLE"
	case RA_STATE_WAITING_PHY_CONFIG:
		return "WAITING_PHY_CONFIG"
	case RA_STATE_PDCCH_SETUP:
		return "PDCCH_SETUP"
	case RA_STATE_RESPONSE_RECEPTION:
		return "RESPONSE_RECEPTION"
	case RA_STATE_BACKOFF_WAIT:
		return "BACKOFF_WAIT"
	case RA_STATE_CONTENTION_RESOLUTION:
		return "CONTENTION_RESOLUTION"
	case RA_STATE_START_WAIT_COMPLETION:
		return "START_WAIT_COMPLETION"
	case RA_STATE_WAITING_COMPLETION:
		return "WAITING_COMPLETION"
	}
	return "UNKNOWN"
}

type RaInfo struct {
	State           string `json:"state"`
	PreambleIndex   int    `json:"preambleIndex"`
	PreambleCounter int    `json:"preambleCounter"`
	BackoffParamMs  int    `json:"backoffParamMs"`
	Noncontention   bool   `json:"noncontention"`
	Handover        bool   `json:"handover"`
}

// RaProcedure is the UE random access procedure, 36.321 5.1. It runs on the stack goroutine; PHY
// configuration calls go through the task scheduler and come back stamped with a generation token.
type RaProcedure struct {
	cfg   model.RachIE
	state RaState

	phy   PhyInterface
	rrc   RrcInterface
	mux   *Mux
	rntis *RntiHolder
	ta    *TimeAlignment
	tasks TaskScheduler
	rng   *rand.Rand

	gen task.Generation

	noncontention     bool
	dedicatedPreamble int
	prachMaskIndex    int
	isHandover        bool

	preambleIndex   int
	preambleCounter int
	groupB          bool
	backoffParamMs  int
	problemReported bool
	taskQueued      bool
	taskRetries     int

	raTti          uint32
	raWindowEnd    uint32
	currentTti     uint32
	backoffTimer   ttiTimer
	contentionTmr  ttiTimer
	msg3CrntiSent  uint16
	onComplete     func()
	lastPrachPower float32

	log     loggergoModel.LoggerInterface
	metrics *metrics.MacMetrics
}

func NewRaProcedure(cfg model.RachIE, phy PhyInterface, rrc RrcInterface, mux *Mux, rntis *RntiHolder, ta *TimeAlignment, tasks TaskScheduler, rng *rand.Rand, log loggergoModel.LoggerInterface, m *metrics.MacMetrics) *RaProcedure {
	return &RaProcedure{
		cfg:     cfg,
		phy:     phy,
		rrc:     rrc,
		mux:     mux,
		rntis:   rntis,
		ta:      ta,
		tasks:   tasks,
		rng:     rng,
		log:     log,
		metrics: m,
	}
}

// OnComplete registers a hook run when the procedure completes successfully.
func (r *RaProcedure) OnComplete(fn func()) {
	r.onComplete = fn
}

func (r *RaProcedure) SetConfig(cfg model.RachIE) {
	r.cfg = cfg
}

func (r *RaProcedure) State() RaState {
	return r.state
}

func (r *RaProcedure) IsIdle() bool {
	return r.state == RA_STATE_IDLE
}

func (r *RaProcedure) IsResponseWindow() bool {
	return r.state == RA_STATE_RESPONSE_RECEPTION
}

func (r *RaProcedure) IsContentionResolution() bool {
	return r.state == RA_STATE_CONTENTION_RESOLUTION
}

func (r *RaProcedure) Info() RaInfo {
	return RaInfo{
		State:           r.state.String(),
		PreambleIndex:   r.preambleIndex,
		PreambleCounter: r.preambleCounter,
		BackoffParamMs:  r.backoffParamMs,
		Noncontention:   r.noncontention,
		Handover:        r.isHandover,
	}
}

// Start begins a contention based procedure.
func (r *RaProcedure) Start(isHandover bool) {
	r.start(false, 0, -1, isHandover)
}

// StartNoncontention begins a procedure with a network selected preamble.
func (r *RaProcedure) StartNoncontention(preambleIndex, prachMaskIndex int, isHandover bool) {
	r.start(true, preambleIndex, prachMaskIndex, isHandover)
}

func (r *RaProcedure) start(noncontention bool, preamble, mask int, isHandover bool) {
	if r.state != RA_STATE_IDLE {
		r.log.Warnf("Random access already in progress in state %s", r.state)
		return
	}

	r.noncontention = noncontention
	r.dedicatedPreamble = preamble
	r.prachMaskIndex = mask
	r.isHandover = isHandover
	r.preambleCounter = 1
	r.backoffParamMs = 0
	r.groupB = false
	r.problemReported = false
	r.msg3CrntiSent = 0
	r.mux.Msg3Flush()

	r.log.Infof("Starting %s random access (handover: %v)", r.kind(), isHandover)
	r.state = RA_STATE_WAITING_PHY_CONFIG
	r.taskRetries = 0
	r.requestPrachConfig()
}

func (r *RaProcedure) requestPrachConfig() {
	tok := r.gen.Next()
	phy, tasks := r.phy, r.tasks
	r.taskQueued = tasks.EnqueueBackground(func() {
		err := phy.ConfigurePrachParams()
		tasks.Defer(func() {
			r.prachConfigured(tok, err)
		})
	})
	if !r.taskQueued && !r.retryTask("PRACH configuration") {
		r.fail()
	}
}

// retryTask counts a PHY call the task queue refused and reports whether to try again next TTI.
func (r *RaProcedure) retryTask(name string) bool {
	r.taskRetries++
	if r.taskRetries > RA_MAX_TASK_RETRIES {
		r.log.Errorf("Task queue full, giving up on %s after %d attempts", name, r.taskRetries)
		return false
	}
	r.log.Warnf("Task queue full, retrying %s next tti", name)
	return true
}

func (r *RaProcedure) kind() string {
	if r.noncontention {
		return "noncontention"
	}
	return "contention"
}

func (r *RaProcedure) prachConfigured(tok task.Token, err error) {
	if !r.gen.Valid(tok) || r.state != RA_STATE_WAITING_PHY_CONFIG {
		r.log.Debugf("Discarding stale PRACH configuration result")
		return
	}
	if err != nil {
		r.log.Errorf("Error configuring PRACH: %v", err)
		r.fail()
		return
	}
	r.resourceSelection()
}

// deltaPreamble follows 36.321 Table 7.6-1 for the preamble format of the PRACH configuration.
func deltaPreamble(prachConfigIndex int) int {
	switch {
	case prachConfigIndex < 32:
		return 0
	case prachConfigIndex < 64:
		return -3
	default:
		return 8
	}
}

func (r *RaProcedure) resourceSelection() {
	if r.noncontention {
		r.preambleIndex = r.dedicatedPreamble
	} else {
		sizeA := r.cfg.SizeOfRaPreamblesGroupA
		sizeB := r.cfg.NofPreambles - sizeA
		if !r.mux.Msg3IsTransmitted() {
			r.groupB = sizeB > 0 && r.mux.Msg3SizeEstimate()*8 > r.cfg.MessageSizeGroupA
		}
		if r.groupB {
			r.preambleIndex = sizeA + r.rng.IntN(sizeB)
		} else {
			r.preambleIndex = r.rng.IntN(sizeA)
		}
	}

	r.lastPrachPower = float32(r.cfg.InitialReceivedTargetPower + deltaPreamble(r.cfg.PrachConfigIndex) +
		(r.preambleCounter-1)*r.cfg.PowerRampingStep)

	r.log.Infof("Sending preamble %d (attempt %d/%d) at %.1f dBm", r.preambleIndex, r.preambleCounter,
		r.cfg.PreambleTransMax, r.lastPrachPower)
	r.phy.PrachSend(r.preambleIndex, r.prachMaskIndex, r.lastPrachPower)
	if r.metrics != nil {
		r.metrics.RaAttempts.WithLabelValues(r.kind()).Inc()
	}
	r.state = RA_STATE_PDCCH_SETUP
}

func (r *RaProcedure) Step(tti uint32) {
	r.currentTti = tti
	switch r.state {
	case RA_STATE_WAITING_PHY_CONFIG:
		if !r.taskQueued {
			r.requestPrachConfig()
		}
	case RA_STATE_PDCCH_SETUP:
		info := r.phy.PrachGetInfo()
		if !info.IsTransmitted {
			return
		}
		r.raTti = info.TtiRa
		raRnti := uint16(1 + info.TtiRa%10 + info.FId)
		r.rntis.SetRaRnti(raRnti)
		r.raWindowEnd = info.TtiRa + RA_WINDOW_OFFSET + uint32(r.cfg.ResponseWindowSize)
		r.log.Debugf("Preamble sent at tti %d, RA-RNTI 0x%x, window ends at tti %d", info.TtiRa, raRnti, r.raWindowEnd)
		r.state = RA_STATE_RESPONSE_RECEPTION
	case RA_STATE_RESPONSE_RECEPTION:
		if tti >= r.raWindowEnd {
			r.log.Warnf("RAR window expired at tti %d", tti)
			r.responseError()
		}
	case RA_STATE_BACKOFF_WAIT:
		if r.backoffTimer.Step() {
			r.resourceSelection()
		}
	case RA_STATE_CONTENTION_RESOLUTION:
		if r.contentionTmr.Step() {
			r.log.Warnf("Contention resolution timer expired")
			r.rntis.SetTempCrnti(0)
			r.responseError()
		}
	case RA_STATE_START_WAIT_COMPLETION:
		r.state = RA_STATE_WAITING_COMPLETION
		tok := r.gen.Next()
		crnti := r.rntis.Crnti()
		phy, tasks := r.phy, r.tasks
		queued := tasks.EnqueueBackground(func() {
			err := phy.SetCrnti(crnti)
			tasks.Defer(func() {
				r.completionDone(tok, err)
			})
		})
		if queued {
			return
		}
		// the procedure already succeeded, only the PHY update is lost
		r.state = RA_STATE_START_WAIT_COMPLETION
		if !r.retryTask("C-RNTI configuration") {
			r.state = RA_STATE_IDLE
		}
	}
}

// RarReceived handles a PDU decoded on the RA-RNTI inside the response window.
func (r *RaProcedure) RarReceived(data []byte) {
	if r.state != RA_STATE_RESPONSE_RECEPTION {
		r.log.Debugf("Ignoring RAR in state %s", r.state)
		return
	}

	pdu, err := ParseRarPdu(data)
	if err != nil {
		r.log.Errorf("Error parsing RAR: %v", err)
		return
	}
	if pdu.BackoffIndicator >= 0 && pdu.BackoffIndicator < len(backoffTableMs) {
		r.backoffParamMs = backoffTableMs[pdu.BackoffIndicator]
		r.log.Debugf("Backoff indicator %d (%d ms)", pdu.BackoffIndicator, r.backoffParamMs)
	}

	for _, rar := range pdu.Rars {
		if rar.Rapid != r.preambleIndex {
			continue
		}
		r.log.Infof("RAR for preamble %d: TA %d, temp C-RNTI 0x%x", rar.Rapid, rar.Ta, rar.TempCrnti)
		r.rntis.SetRaRnti(0)

		if r.ta.IsRunning() && !r.noncontention {
			r.log.Debugf("Ignoring RAR TA while alignment timer runs")
		} else {
			r.ta.ApplyRar(rar.Ta)
		}

		r.phy.SetRarGrant(rar.Grant, rar.TempCrnti)

		if r.noncontention {
			r.complete()
			return
		}

		r.rntis.SetTempCrnti(rar.TempCrnti)
		if crnti := r.rntis.Crnti(); crnti != 0 && !r.mux.Msg3IsCached() {
			r.mux.AppendCrntiCe(crnti)
			r.msg3CrntiSent = crnti
		}
		r.mux.Msg3Prepare()
		r.contentionTmr.Set(r.cfg.ContentionResolutionTimer)
		r.state = RA_STATE_CONTENTION_RESOLUTION
		return
	}

	r.log.Warnf("RAR does not carry preamble %d", r.preambleIndex)
	r.responseError()
}

// Msg3Transmitted restarts the contention resolution timer on every Msg3 (re)transmission.
func (r *RaProcedure) Msg3Transmitted() {
	if r.state != RA_STATE_CONTENTION_RESOLUTION {
		return
	}
	r.contentionTmr.Start()
}

// HarqMaxRetx is called when Msg3 ran out of HARQ transmissions.
func (r *RaProcedure) HarqMaxRetx() {
	if r.state != RA_STATE_CONTENTION_RESOLUTION {
		return
	}
	r.log.Warnf("Msg3 reached maximum HARQ transmissions")
	r.contentionTmr.Stop()
	r.rntis.SetTempCrnti(0)
	r.responseError()
}

// ContentionResolutionIdReceived compares a received contention resolution identity with the one sent in Msg3.
func (r *RaProcedure) ContentionResolutionIdReceived(id uint64) bool {
	if r.state != RA_STATE_CONTENTION_RESOLUTION {
		r.log.Debugf("Ignoring contention resolution id in state %s", r.state)
		return false
	}
	r.contentionTmr.Stop()
	if id != r.mux.Msg3ContentionId() {
		r.log.Warnf("Contention resolution id 0x%012x does not match 0x%012x", id, r.mux.Msg3ContentionId())
		r.rntis.SetTempCrnti(0)
		r.responseError()
		return false
	}
	r.log.Infof("Contention resolved by contention resolution id")
	r.complete()
	return true
}

// PdcchToCrnti resolves contention when Msg3 carried a C-RNTI CE and a PDCCH on that C-RNTI asks
// for a new UL transmission.
func (r *RaProcedure) PdcchToCrnti(isNewUlTx bool) bool {
	if r.state != RA_STATE_CONTENTION_RESOLUTION || r.msg3CrntiSent == 0 || !isNewUlTx {
		return false
	}
	if !r.mux.Msg3IsTransmitted() {
		return false
	}
	r.contentionTmr.Stop()
	r.log.Infof("Contention resolved by PDCCH on C-RNTI 0x%x", r.msg3CrntiSent)
	r.complete()
	return true
}

func (r *RaProcedure) responseError() {
	r.preambleCounter++
	if r.preambleCounter == r.cfg.PreambleTransMax+1 {
		r.log.Errorf("Random access failed after %d preambles", r.cfg.PreambleTransMax)
		r.fail()
		return
	}

	backoff := 0
	if !r.noncontention && r.backoffParamMs > 0 {
		backoff = r.rng.IntN(r.backoffParamMs + 1)
	}
	if backoff > 0 {
		r.log.Debugf("Backing off %d ms before next preamble", backoff)
		r.backoffTimer.Set(backoff)
		r.backoffTimer.Start()
		r.state = RA_STATE_BACKOFF_WAIT
		if r.metrics != nil {
			r.metrics.RaBackoffs.Inc()
		}
		return
	}
	r.resourceSelection()
}

func (r *RaProcedure) fail() {
	if r.isHandover {
		r.rrc.HoRaCompleted(false)
	}
	if !r.problemReported {
		r.problemReported = true
		r.rrc.RaProblem()
	}
	if r.metrics != nil {
		r.metrics.RaOutcomes.WithLabelValues("failure").Inc()
	}
	r.Reset()
}

func (r *RaProcedure) complete() {
	if r.rntis.Crnti() == 0 {
		r.rntis.SetCrnti(r.rntis.TempCrnti())
	}
	r.rntis.SetTempCrnti(0)
	r.rntis.SetRaRnti(0)
	r.mux.Msg3Flush()

	if r.isHandover {
		r.rrc.HoRaCompleted(true)
	}
	if r.onComplete != nil {
		r.onComplete()
	}
	if r.metrics != nil {
		r.metrics.RaOutcomes.WithLabelValues("success").Inc()
	}
	r.log.Infof("Random access complete, C-RNTI 0x%x", r.rntis.Crnti())
	r.taskRetries = 0
	r.state = RA_STATE_START_WAIT_COMPLETION
}

func (r *RaProcedure) completionDone(tok task.Token, err error) {
	if !r.gen.Valid(tok) || r.state != RA_STATE_WAITING_COMPLETION {
		r.log.Debugf("Discarding stale random access completion")
		return
	}
	if err != nil {
		r.log.Errorf("Error setting C-RNTI in PHY: %v", err)
	}
	r.state = RA_STATE_IDLE
}

// Reset aborts the procedure at once. Background results still in flight are discarded on arrival.
func (r *RaProcedure) Reset() {
	r.gen.Next()
	r.state = RA_STATE_IDLE
	r.backoffTimer.Stop()
	r.contentionTmr.Stop()
	r.rntis.SetTempCrnti(0)
	r.rntis.SetRaRnti(0)
	r.mux.Msg3Flush()
	r.isHandover = false
	r.noncontention = false
}
