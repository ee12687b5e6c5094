package rrc

// Transition returns the next state and the effects for one event. ok is false when no row matches, in which
// case the state is returned unchanged and effects is nil. Transition never mutates its inputs.
func Transition(state State, event Event, guards Guards) (State, []Effect, bool) {
	if release, isRelease := event.(UeContextReleaseEvent); isRelease {
		return releaseRow(state, release)
	}

	switch s := state.(type) {
	case Idle:
		return fromIdle(s, event, guards)
	case IntraEnbHo:
		return fromIntraEnbHo(s, event)
	case S1SourceHo:
		return fromS1SourceHo(s, event)
	case S1TargetHo:
		return fromS1TargetHo(s, event)
	}
	return state, nil, false
}

func fromIdle(s Idle, event Event, guards Guards) (State, []Effect, bool) {
	switch e := event.(type) {
	case MeasReportEvent:
		s1, intra := guards.NeedsS1Ho(e), guards.NeedsIntraEnbHo(e)
		if s1 == intra {
			return s, nil, false
		}
		target, _ := guards.target(e)
		if s1 {
			return S1SourceHo{Sub: S1_SOURCE_WAIT_HO_CMD}, []Effect{
				SetPendingTarget{Target: target},
				SendHandoverRequired{Target: target},
			}, true
		}
		return IntraEnbHo{}, []Effect{
			SetPendingTarget{Target: target},
			SendHoReconfiguration{Target: target},
		}, true
	case HoRequestEvent:
		return S1TargetHo{}, []Effect{
			SendHandoverRequestAck{Bearers: e.Bearers},
		}, true
	}
	return s, nil, false
}

func fromIntraEnbHo(s IntraEnbHo, event Event) (State, []Effect, bool) {
	switch e := event.(type) {
	case CrntiUpdateEvent:
		return s, []Effect{UpdateCrnti{Rnti: e.Rnti}}, true
	case RecfgCompleteEvent:
		return Idle{}, []Effect{CompleteHandover{Type: HO_TYPE_INTRA_ENB}}, true
	case HoFailureEvent:
		return Idle{}, []Effect{RecordFailure{Type: HO_TYPE_INTRA_ENB, Cause: e.Cause}}, true
	}
	return s, nil, false
}

// Cancel and failure collapse the whole source procedure, whatever the sub-state.
func fromS1SourceHo(s S1SourceHo, event Event) (State, []Effect, bool) {
	switch e := event.(type) {
	case HoCancelEvent:
		return Idle{}, []Effect{
			SendHandoverCancel{Cause: e.Cause},
			RecordFailure{Type: HO_TYPE_S1_SOURCE, Cause: e.Cause},
		}, true
	case HoFailureEvent:
		return Idle{}, []Effect{
			RecordFailure{Type: HO_TYPE_S1_SOURCE, Cause: e.Cause},
		}, true
	}

	if e, ok := event.(HoCommandEvent); ok && s.Sub == S1_SOURCE_WAIT_HO_CMD {
		return S1SourceHo{Sub: S1_SOURCE_STATUS_TRANSFER}, []Effect{
			ForwardHoCommand{Container: e.Container},
			SendStatusTransfer{},
		}, true
	}
	return s, nil, false
}

func fromS1TargetHo(s S1TargetHo, event Event) (State, []Effect, bool) {
	switch e := event.(type) {
	case StatusTransferEvent:
		if s.WaitRecfgComp {
			return s, nil, false
		}
		return S1TargetHo{WaitRecfgComp: true}, []Effect{
			ApplyBearerStatus{Bearers: e.Bearers},
			ReplayDeferred{},
		}, true
	case RecfgCompleteEvent:
		if !s.WaitRecfgComp {
			return s, []Effect{DeferEvent{Event: e}}, true
		}
		return Idle{}, []Effect{
			SendHandoverNotify{},
			CompleteHandover{Type: HO_TYPE_S1_TARGET},
		}, true
	case HoCancelEvent:
		return Idle{}, []Effect{
			RecordFailure{Type: HO_TYPE_S1_TARGET, Cause: e.Cause},
			ReleaseContext{Cause: e.Cause},
		}, true
	case HoFailureEvent:
		return Idle{}, []Effect{
			RecordFailure{Type: HO_TYPE_S1_TARGET, Cause: e.Cause},
			ReleaseContext{Cause: e.Cause},
		}, true
	}
	return s, nil, false
}

// The source releases the UE once the target has taken it over. A release during any other handover aborts it.
func releaseRow(state State, e UeContextReleaseEvent) (State, []Effect, bool) {
	switch s := state.(type) {
	case Idle:
		return s, nil, false
	case S1SourceHo:
		if s.Sub == S1_SOURCE_STATUS_TRANSFER {
			return Idle{}, []Effect{
				CompleteHandover{Type: HO_TYPE_S1_SOURCE},
				ReleaseContext{Cause: e.Cause, Complete: e.Command},
			}, true
		}
		return Idle{}, []Effect{
			RecordFailure{Type: HO_TYPE_S1_SOURCE, Cause: e.Cause},
			ReleaseContext{Cause: e.Cause, Complete: e.Command},
		}, true
	case IntraEnbHo:
		return Idle{}, []Effect{
			RecordFailure{Type: HO_TYPE_INTRA_ENB, Cause: e.Cause},
			ReleaseContext{Cause: e.Cause, Complete: e.Command},
		}, true
	case S1TargetHo:
		return Idle{}, []Effect{
			RecordFailure{Type: HO_TYPE_S1_TARGET, Cause: e.Cause},
			ReleaseContext{Cause: e.Cause, Complete: e.Command},
		}, true
	}
	return state, nil, false
}
