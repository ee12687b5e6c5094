package ue

import (
	"errors"

	"github.com/Alonza0314/free-ran-l2/constant"
	"github.com/Alonza0314/free-ran-l2/rrc"
	loggergoModel "github.com/Alonza0314/logger-go/v2/model"
)

type RrcState int

const (
	RRC_IDLE RrcState = iota
	RRC_CONNECTING
	RRC_CONNECTED
	RRC_HANDOVER
)

func (s RrcState) String() string {
	switch s {
	case RRC_IDLE:
		return "idle"
	case RRC_CONNECTING:
		return "connecting"
	case RRC_CONNECTED:
		return "connected"
	case RRC_HANDOVER:
		return "handover"
	}
	return "unknown"
}

var (
	ErrNotIdle      = errors.New("rrc connection already set up")
	ErrNotConnected = errors.New("rrc not connected")
)

type RrcInfo struct {
	State      string                 `json:"state"`
	Handovers  int                    `json:"handovers"`
	HoFailures int                    `json:"hoFailures"`
	RaProblems int                    `json:"raProblems"`
	PucchLost  int                    `json:"pucchLost"`
	Handover   *rrc.HoReconfiguration `json:"handover,omitempty"`
}

// Rrc is the UE side of the connection: it sends the connection request, follows handover commands
// and runs T304. Every method runs on the stack goroutine.
type Rrc struct {
	state RrcState
	rlc   *Rlc

	handover *rrc.HoReconfiguration
	t304     int

	handovers  int
	hoFailures int
	raProblems int
	pucchLost  int

	log loggergoModel.LoggerInterface
}

func NewRrc(rlc *Rlc, log loggergoModel.LoggerInterface) *Rrc {
	return &Rrc{
		rlc: rlc,
		log: log,
	}
}

func (r *Rrc) State() RrcState {
	return r.state
}

// Connect queues the connection request on the CCCH. Its first bytes become the contention identity.
func (r *Rrc) Connect(identity []byte) error {
	if r.state != RRC_IDLE {
		return ErrNotIdle
	}
	request := make([]byte, constant.UE_CONNECTION_REQUEST_SIZE)
	copy(request, identity)
	if err := r.rlc.WriteSdu(constant.UE_CCCH_LCID, request); err != nil {
		return err
	}
	r.state = RRC_CONNECTING
	r.log.Infof("Connection request queued, identity %x", request)
	return nil
}

// StartHandover records a handover command. T304 counts in TTIs of one millisecond.
func (r *Rrc) StartHandover(ho rrc.HoReconfiguration) error {
	if r.state != RRC_CONNECTED {
		return ErrNotConnected
	}
	r.handover = &ho
	r.t304 = ho.T304Ms
	r.state = RRC_HANDOVER
	r.log.Infof("Handover to pci %d, new C-RNTI 0x%x, T304 %d ms", ho.TargetPci, ho.NewCrnti, ho.T304Ms)
	return nil
}

// Step runs once per TTI after the MAC.
func (r *Rrc) Step(crnti uint16, raIdle bool) {
	switch r.state {
	case RRC_CONNECTING:
		if crnti != 0 && raIdle {
			r.state = RRC_CONNECTED
			r.log.Infof("Connected with C-RNTI 0x%x", crnti)
		}
	case RRC_HANDOVER:
		if r.t304 <= 0 {
			return
		}
		r.t304--
		if r.t304 == 0 {
			r.log.Warnf("T304 expired, handover to pci %d failed", r.handover.TargetPci)
			r.hoFailures++
			r.handover = nil
			r.state = RRC_IDLE
		}
	}
}

func (r *Rrc) RaProblem() {
	r.raProblems++
	r.log.Warnf("Random access problem in state %s", r.state)
	if r.state == RRC_CONNECTING {
		r.state = RRC_IDLE
	}
}

func (r *Rrc) HoRaCompleted(success bool) {
	if r.state != RRC_HANDOVER {
		r.log.Debugf("Ignoring handover RA result in state %s", r.state)
		return
	}
	r.handover = nil
	r.t304 = 0
	if !success {
		r.hoFailures++
		r.state = RRC_IDLE
		r.log.Warnf("Handover random access failed")
		return
	}
	r.handovers++
	r.state = RRC_CONNECTED
	r.log.Infof("Handover complete")
}

func (r *Rrc) ReleasePucchSrs() {
	r.pucchLost++
	r.log.Infof("PUCCH and SRS released")
}

func (r *Rrc) Info() RrcInfo {
	return RrcInfo{
		State:      r.state.String(),
		Handovers:  r.handovers,
		HoFailures: r.hoFailures,
		RaProblems: r.raProblems,
		PucchLost:  r.pucchLost,
		Handover:   r.handover,
	}
}
