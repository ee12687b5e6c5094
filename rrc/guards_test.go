package rrc

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func testMeasConfig() *MeasConfig {
	return &MeasConfig{
		LocalEnbId: "000102",
		Serving:    Cell{EnbId: "000102", CellId: 1, Pci: 1, Earfcn: 3350},
		Local: []Cell{
			{EnbId: "000102", CellId: 1, Pci: 1, Earfcn: 3350},
			{EnbId: "000102", CellId: 2, Pci: 2, Earfcn: 3350},
		},
		Neighbours: []Cell{
			{EnbId: "000103", CellId: 1, Pci: 10, Earfcn: 3350},
		},
		A3Offset:   3,
		Hysteresis: 1,
	}
}

var testGuardsCases = []struct {
	name      string
	report    MeasReportEvent
	needsS1   bool
	needsIntr bool
	targetPci uint16
}{
	{
		name:      "local cell above a3 threshold",
		report:    MeasReportEvent{ServingRsrp: -100, Neighbours: []MeasResult{{Pci: 2, Earfcn: 3350, Rsrp: -95}}},
		needsIntr: true,
		targetPci: 2,
	},
	{
		name:      "foreign cell above a3 threshold",
		report:    MeasReportEvent{ServingRsrp: -100, Neighbours: []MeasResult{{Pci: 10, Earfcn: 3350, Rsrp: -90}}},
		needsS1:   true,
		targetPci: 10,
	},
	{
		name:   "equal to threshold is not enough",
		report: MeasReportEvent{ServingRsrp: -100, Neighbours: []MeasResult{{Pci: 2, Earfcn: 3350, Rsrp: -96}}},
	},
	{
		name:   "unknown cell",
		report: MeasReportEvent{ServingRsrp: -100, Neighbours: []MeasResult{{Pci: 77, Earfcn: 3350, Rsrp: -60}}},
	},
	{
		name:   "serving cell reported as neighbour",
		report: MeasReportEvent{ServingRsrp: -100, Neighbours: []MeasResult{{Pci: 1, Earfcn: 3350, Rsrp: -60}}},
	},
	{
		name:   "same pci on another carrier",
		report: MeasReportEvent{ServingRsrp: -100, Neighbours: []MeasResult{{Pci: 2, Earfcn: 1800, Rsrp: -60}}},
	},
	{
		name: "strongest candidate wins",
		report: MeasReportEvent{ServingRsrp: -100, Neighbours: []MeasResult{
			{Pci: 2, Earfcn: 3350, Rsrp: -94},
			{Pci: 10, Earfcn: 3350, Rsrp: -80},
		}},
		needsS1:   true,
		targetPci: 10,
	},
	{
		name:   "empty report",
		report: MeasReportEvent{ServingRsrp: -100},
	},
}

func TestGuards(t *testing.T) {
	guards := Guards{Meas: testMeasConfig()}
	for _, testCase := range testGuardsCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.needsS1, guards.NeedsS1Ho(testCase.report))
			assert.Equal(t, testCase.needsIntr, guards.NeedsIntraEnbHo(testCase.report))
			assert.Equal(t, false, guards.NeedsS1Ho(testCase.report) && guards.NeedsIntraEnbHo(testCase.report))

			target, ok := guards.target(testCase.report)
			assert.Equal(t, testCase.needsS1 || testCase.needsIntr, ok)
			if ok {
				assert.Equal(t, testCase.targetPci, target.Pci)
			}
		})
	}
}

func TestGuardsWithoutMeasConfig(t *testing.T) {
	report := MeasReportEvent{ServingRsrp: -100, Neighbours: []MeasResult{{Pci: 2, Earfcn: 3350, Rsrp: -60}}}
	guards := Guards{}
	assert.Equal(t, false, guards.NeedsS1Ho(report))
	assert.Equal(t, false, guards.NeedsIntraEnbHo(report))
}

func TestMeasConfigClone(t *testing.T) {
	meas := testMeasConfig()
	clone := meas.Clone()
	clone.Local[1].Pci = 99
	assert.Equal(t, uint16(2), meas.Local[1].Pci)
}
