package rrc

import "fmt"

type Cell struct {
	EnbId  string `json:"enbId"`
	CellId uint8  `json:"cellId"`
	Pci    uint16 `json:"pci"`
	Earfcn uint32 `json:"earfcn"`
	Tac    string `json:"tac,omitempty"`
}

func (c Cell) String() string {
	return fmt.Sprintf("%s/%d(pci %d, earfcn %d)", c.EnbId, c.CellId, c.Pci, c.Earfcn)
}

func (c Cell) same(pci uint16, earfcn uint32) bool {
	return c.Pci == pci && c.Earfcn == earfcn
}

// MeasConfig is the measurement configuration snapshot held by one UE context. Offsets are in dB.
type MeasConfig struct {
	LocalEnbId string
	Serving    Cell
	Local      []Cell
	Neighbours []Cell

	A3Offset   int
	Hysteresis int
}

// Clone returns a copy that does not share slices with m.
func (m *MeasConfig) Clone() *MeasConfig {
	c := *m
	c.Local = append([]Cell(nil), m.Local...)
	c.Neighbours = append([]Cell(nil), m.Neighbours...)
	return &c
}

func (m *MeasConfig) lookup(pci uint16, earfcn uint32) (Cell, bool) {
	for _, cell := range m.Local {
		if cell.same(pci, earfcn) {
			return cell, true
		}
	}
	for _, cell := range m.Neighbours {
		if cell.same(pci, earfcn) {
			return cell, true
		}
	}
	return Cell{}, false
}

// BestTarget returns the strongest reported cell meeting the A3 entry condition.
func (m *MeasConfig) BestTarget(report MeasReportEvent) (Cell, bool) {
	threshold := report.ServingRsrp + m.A3Offset + m.Hysteresis
	best, found, bestRsrp := Cell{}, false, 0
	for _, result := range report.Neighbours {
		if result.Rsrp <= threshold {
			continue
		}
		if m.Serving.same(result.Pci, result.Earfcn) {
			continue
		}
		cell, ok := m.lookup(result.Pci, result.Earfcn)
		if !ok {
			continue
		}
		if !found || result.Rsrp > bestRsrp {
			best, found, bestRsrp = cell, true, result.Rsrp
		}
	}
	return best, found
}
