package rrc

// Guards are pure predicates over an event and the UE's measurement configuration.
type Guards struct {
	Meas *MeasConfig
}

func (g Guards) target(report MeasReportEvent) (Cell, bool) {
	if g.Meas == nil {
		return Cell{}, false
	}
	return g.Meas.BestTarget(report)
}

// NeedsS1Ho holds when the best target belongs to another eNB.
func (g Guards) NeedsS1Ho(report MeasReportEvent) bool {
	cell, ok := g.target(report)
	return ok && cell.EnbId != g.Meas.LocalEnbId
}

// NeedsIntraEnbHo holds when the best target is another cell of this eNB.
func (g Guards) NeedsIntraEnbHo(report MeasReportEvent) bool {
	cell, ok := g.target(report)
	return ok && cell.EnbId == g.Meas.LocalEnbId
}
