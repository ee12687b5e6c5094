package mac

import (
	"github.com/Alonza0314/free-ran-l2/model"
	loggergoModel "github.com/Alonza0314/logger-go/v2/model"
)

type Phr struct {
	phy PhyInterface

	triggered     bool
	periodicTimer ttiTimer
	prohibitTimer ttiTimer

	log loggergoModel.LoggerInterface
}

func NewPhr(cfg model.PhrIE, phy PhyInterface, log loggergoModel.LoggerInterface) *Phr {
	p := &Phr{
		phy: phy,
		log: log,
	}
	p.Reconfigure(cfg)
	return p
}

// Reconfigure arms the timers and triggers a report, as on PHR setup.
func (p *Phr) Reconfigure(cfg model.PhrIE) {
	p.periodicTimer.Set(cfg.PeriodicTimer)
	p.prohibitTimer.Set(cfg.ProhibitTimer)
	p.triggered = cfg.PeriodicTimer > 0
}

func (p *Phr) Reset() {
	p.triggered = false
	p.periodicTimer.Stop()
	p.prohibitTimer.Stop()
}

func (p *Phr) Step() {
	p.prohibitTimer.Step()
	if p.periodicTimer.Step() {
		p.log.Tracef("PHR periodic timer expired")
		p.triggered = true
	}
}

func (p *Phr) IsTriggered() bool {
	return p.triggered && !p.prohibitTimer.IsRunning()
}

// Build returns the PHR CE and restarts the timers.
func (p *Phr) Build() SubPdu {
	ph := p.phy.GetPhr()
	if ph < 0 {
		ph = 0
	}
	if ph > 63 {
		ph = 63
	}
	p.triggered = false
	p.periodicTimer.Start()
	p.prohibitTimer.Start()
	p.log.Debugf("Built PHR with power headroom index %d", ph)
	return SubPdu{Lcid: LCID_PHR, Payload: []byte{byte(ph)}}
}
