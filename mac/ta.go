package mac

import (
	loggergoModel "github.com/Alonza0314/logger-go/v2/model"
)

// TimeAlignment holds the timeAlignmentTimer of 36.321 5.2.
type TimeAlignment struct {
	timer ttiTimer

	phy      PhyInterface
	onExpiry func()

	log loggergoModel.LoggerInterface
}

func NewTimeAlignment(timerTti int, phy PhyInterface, onExpiry func(), log loggergoModel.LoggerInterface) *TimeAlignment {
	ta := &TimeAlignment{
		phy:      phy,
		onExpiry: onExpiry,
		log:      log,
	}
	ta.timer.Set(timerTti)
	return ta
}

func (t *TimeAlignment) IsRunning() bool {
	return t.timer.IsRunning()
}

func (t *TimeAlignment) Start() {
	t.timer.Start()
}

func (t *TimeAlignment) Stop() {
	t.timer.Stop()
}

// ApplyCommand applies a TA command MAC CE and restarts the timer.
func (t *TimeAlignment) ApplyCommand(ta uint32) {
	t.phy.SetTimingAdvance(ta)
	t.timer.Start()
	t.log.Debugf("Applied TA command %d", ta)
}

// ApplyRar applies the absolute TA from a random access response and restarts the timer.
func (t *TimeAlignment) ApplyRar(ta uint32) {
	t.phy.SetTimingAdvanceRar(ta)
	t.timer.Start()
	t.log.Debugf("Applied RAR TA %d", ta)
}

func (t *TimeAlignment) Step() {
	if t.timer.Step() {
		t.log.Warnf("Time alignment timer expired")
		if t.onExpiry != nil {
			t.onExpiry()
		}
	}
}
