package mac

import (
	"github.com/Alonza0314/free-ran-l2/model"
	loggergoModel "github.com/Alonza0314/logger-go/v2/model"
)

// Sr is the scheduling request procedure, 36.321 5.4.4.
type Sr struct {
	dsrTransMax int

	pending  bool
	counter  int
	released bool

	phy   PhyInterface
	rrc   RrcInterface
	rntis *RntiHolder

	startRa func()

	log loggergoModel.LoggerInterface
}

func NewSr(cfg model.SrIE, phy PhyInterface, rrc RrcInterface, rntis *RntiHolder, startRa func(), log loggergoModel.LoggerInterface) *Sr {
	return &Sr{
		dsrTransMax: cfg.DsrTransMax,
		phy:         phy,
		rrc:         rrc,
		rntis:       rntis,
		startRa:     startRa,
		log:         log,
	}
}

func (s *Sr) Start() {
	if !s.pending {
		s.log.Debugf("SR pending")
		s.counter = 0
		s.pending = true
	}
}

func (s *Sr) Reset() {
	s.pending = false
	s.counter = 0
}

func (s *Sr) IsPending() bool {
	return s.pending
}

func (s *Sr) ReleasePucch() {
	s.released = true
}

func (s *Sr) RestorePucch() {
	s.released = false
}

func (s *Sr) hasPucch() bool {
	return !s.released && s.rntis.Crnti() != 0
}

// Step signals SR on PUCCH, or falls back to random access without a PUCCH resource or after
// dsrTransMax attempts.
func (s *Sr) Step(raIdle bool) {
	if !s.pending || !raIdle {
		return
	}

	if !s.hasPucch() {
		s.log.Infof("SR pending without PUCCH resources, starting random access")
		s.Reset()
		s.startRa()
		return
	}

	if s.counter < s.dsrTransMax {
		s.counter++
		s.log.Debugf("Sending SR %d/%d", s.counter, s.dsrTransMax)
		s.phy.SrSend()
		return
	}

	s.log.Warnf("SR reached dsrTransMax %d, releasing PUCCH and starting random access", s.dsrTransMax)
	s.rrc.ReleasePucchSrs()
	s.ReleasePucch()
	s.Reset()
	s.startRa()
}
