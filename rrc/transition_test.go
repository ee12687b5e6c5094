package rrc

import (
	"fmt"
	"testing"

	"github.com/go-playground/assert/v2"
)

var (
	testIntraReport = MeasReportEvent{ServingRsrp: -100, Neighbours: []MeasResult{{Pci: 2, Earfcn: 3350, Rsrp: -90}}}
	testS1Report    = MeasReportEvent{ServingRsrp: -100, Neighbours: []MeasResult{{Pci: 10, Earfcn: 3350, Rsrp: -90}}}
	testWeakReport  = MeasReportEvent{ServingRsrp: -100, Neighbours: []MeasResult{{Pci: 2, Earfcn: 3350, Rsrp: -110}}}
)

func effectNames(effects []Effect) []string {
	names := make([]string, 0, len(effects))
	for _, e := range effects {
		names = append(names, fmt.Sprintf("%T", e))
	}
	return names
}

var testTransitionCases = []struct {
	name     string
	state    State
	event    Event
	ok       bool
	next     State
	expected []string
}{
	{
		name:     "idle intra-enb report",
		state:    Idle{},
		event:    testIntraReport,
		ok:       true,
		next:     IntraEnbHo{},
		expected: []string{"rrc.SetPendingTarget", "rrc.SendHoReconfiguration"},
	},
	{
		name:     "idle s1 report",
		state:    Idle{},
		event:    testS1Report,
		ok:       true,
		next:     S1SourceHo{Sub: S1_SOURCE_WAIT_HO_CMD},
		expected: []string{"rrc.SetPendingTarget", "rrc.SendHandoverRequired"},
	},
	{
		name:  "idle report without candidate is rejected",
		state: Idle{},
		event: testWeakReport,
		next:  Idle{},
	},
	{
		name:     "idle handover request",
		state:    Idle{},
		event:    HoRequestEvent{Bearers: []uint8{1}},
		ok:       true,
		next:     S1TargetHo{},
		expected: []string{"rrc.SendHandoverRequestAck"},
	},
	{
		name:  "idle recfg complete",
		state: Idle{},
		event: RecfgCompleteEvent{},
		next:  Idle{},
	},
	{
		name:  "idle release",
		state: Idle{},
		event: UeContextReleaseEvent{},
		next:  Idle{},
	},
	{
		name:     "intra crnti update stays",
		state:    IntraEnbHo{},
		event:    CrntiUpdateEvent{Rnti: 100},
		ok:       true,
		next:     IntraEnbHo{},
		expected: []string{"rrc.UpdateCrnti"},
	},
	{
		name:     "intra recfg complete",
		state:    IntraEnbHo{},
		event:    RecfgCompleteEvent{},
		ok:       true,
		next:     Idle{},
		expected: []string{"rrc.CompleteHandover"},
	},
	{
		name:  "intra ignores measurement",
		state: IntraEnbHo{},
		event: testIntraReport,
		next:  IntraEnbHo{},
	},
	{
		name:     "source ho command",
		state:    S1SourceHo{Sub: S1_SOURCE_WAIT_HO_CMD},
		event:    HoCommandEvent{Container: []byte{1}},
		ok:       true,
		next:     S1SourceHo{Sub: S1_SOURCE_STATUS_TRANSFER},
		expected: []string{"rrc.ForwardHoCommand", "rrc.SendStatusTransfer"},
	},
	{
		name:  "source duplicate ho command",
		state: S1SourceHo{Sub: S1_SOURCE_STATUS_TRANSFER},
		event: HoCommandEvent{Container: []byte{1}},
		next:  S1SourceHo{Sub: S1_SOURCE_STATUS_TRANSFER},
	},
	{
		name:     "source cancel while waiting",
		state:    S1SourceHo{Sub: S1_SOURCE_WAIT_HO_CMD},
		event:    HoCancelEvent{Cause: "timeout"},
		ok:       true,
		next:     Idle{},
		expected: []string{"rrc.SendHandoverCancel", "rrc.RecordFailure"},
	},
	{
		name:     "source cancel during status transfer",
		state:    S1SourceHo{Sub: S1_SOURCE_STATUS_TRANSFER},
		event:    HoCancelEvent{Cause: "timeout"},
		ok:       true,
		next:     Idle{},
		expected: []string{"rrc.SendHandoverCancel", "rrc.RecordFailure"},
	},
	{
		name:     "source preparation failure",
		state:    S1SourceHo{Sub: S1_SOURCE_WAIT_HO_CMD},
		event:    HoFailureEvent{Cause: "no resources"},
		ok:       true,
		next:     Idle{},
		expected: []string{"rrc.RecordFailure"},
	},
	{
		name:     "source release after takeover",
		state:    S1SourceHo{Sub: S1_SOURCE_STATUS_TRANSFER},
		event:    UeContextReleaseEvent{Cause: "successful handover"},
		ok:       true,
		next:     Idle{},
		expected: []string{"rrc.CompleteHandover", "rrc.ReleaseContext"},
	},
	{
		name:     "target recfg complete before status transfer is deferred",
		state:    S1TargetHo{},
		event:    RecfgCompleteEvent{},
		ok:       true,
		next:     S1TargetHo{},
		expected: []string{"rrc.DeferEvent"},
	},
	{
		name:     "target status transfer",
		state:    S1TargetHo{},
		event:    StatusTransferEvent{},
		ok:       true,
		next:     S1TargetHo{WaitRecfgComp: true},
		expected: []string{"rrc.ApplyBearerStatus", "rrc.ReplayDeferred"},
	},
	{
		name:  "target duplicate status transfer",
		state: S1TargetHo{WaitRecfgComp: true},
		event: StatusTransferEvent{},
		next:  S1TargetHo{WaitRecfgComp: true},
	},
	{
		name:     "target recfg complete",
		state:    S1TargetHo{WaitRecfgComp: true},
		event:    RecfgCompleteEvent{},
		ok:       true,
		next:     Idle{},
		expected: []string{"rrc.SendHandoverNotify", "rrc.CompleteHandover"},
	},
	{
		name:     "target cancel",
		state:    S1TargetHo{WaitRecfgComp: true},
		event:    HoCancelEvent{Cause: "cancelled"},
		ok:       true,
		next:     Idle{},
		expected: []string{"rrc.RecordFailure", "rrc.ReleaseContext"},
	},
	{
		name:     "target failure before status transfer",
		state:    S1TargetHo{},
		event:    HoFailureEvent{Cause: "ack not sent"},
		ok:       true,
		next:     Idle{},
		expected: []string{"rrc.RecordFailure", "rrc.ReleaseContext"},
	},
	{
		name:     "target failure waiting for recfg complete",
		state:    S1TargetHo{WaitRecfgComp: true},
		event:    HoFailureEvent{Cause: "ack not sent"},
		ok:       true,
		next:     Idle{},
		expected: []string{"rrc.RecordFailure", "rrc.ReleaseContext"},
	},
}

func TestTransition(t *testing.T) {
	guards := Guards{Meas: testMeasConfig()}
	for _, testCase := range testTransitionCases {
		t.Run(testCase.name, func(t *testing.T) {
			next, effects, ok := Transition(testCase.state, testCase.event, guards)
			assert.Equal(t, testCase.ok, ok)
			assert.Equal(t, testCase.next, next)
			if !ok {
				assert.Equal(t, 0, len(effects))
				return
			}
			assert.Equal(t, testCase.expected, effectNames(effects))
		})
	}
}

var (
	testAllStates = []State{
		Idle{},
		IntraEnbHo{},
		S1TargetHo{},
		S1TargetHo{WaitRecfgComp: true},
		S1SourceHo{Sub: S1_SOURCE_WAIT_HO_CMD},
		S1SourceHo{Sub: S1_SOURCE_STATUS_TRANSFER},
	}
	testAllEvents = []Event{
		testIntraReport,
		testS1Report,
		testWeakReport,
		HoCommandEvent{Container: []byte{1}},
		HoCancelEvent{Cause: "cancel"},
		HoFailureEvent{Cause: "failure"},
		StatusTransferEvent{},
		RecfgCompleteEvent{},
		CrntiUpdateEvent{Rnti: 100},
		HoRequestEvent{},
		UeContextReleaseEvent{},
	}
)

// Every (state, event) pair yields at most one outcome, and a rejected event leaves the state untouched.
func TestTransitionDeterministic(t *testing.T) {
	guards := Guards{Meas: testMeasConfig()}
	for _, state := range testAllStates {
		for _, event := range testAllEvents {
			t.Run(state.String()+"/"+event.Name(), func(t *testing.T) {
				next1, effects1, ok1 := Transition(state, event, guards)
				next2, effects2, ok2 := Transition(state, event, guards)
				assert.Equal(t, ok1, ok2)
				assert.Equal(t, next1, next2)
				assert.Equal(t, effectNames(effects1), effectNames(effects2))
				if !ok1 {
					assert.Equal(t, state, next1)
					assert.Equal(t, 0, len(effects1))
				}
			})
		}
	}
}

// Applying the event that led into a state a second time is a no-op, except for events that are deferred or are
// same-state updates by definition.
func TestTransitionIdempotent(t *testing.T) {
	guards := Guards{Meas: testMeasConfig()}
	for _, state := range testAllStates {
		for _, event := range testAllEvents {
			next, _, ok := Transition(state, event, guards)
			if !ok || next == state {
				continue
			}
			t.Run(state.String()+"/"+event.Name(), func(t *testing.T) {
				again, effects, ok := Transition(next, event, guards)
				assert.Equal(t, false, ok)
				assert.Equal(t, next, again)
				assert.Equal(t, 0, len(effects))
			})
		}
	}
}
