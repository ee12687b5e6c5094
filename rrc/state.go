package rrc

// State is one node of the per-UE mobility state machine. Nested states carry their sub-state as a field.
type State interface {
	String() string
}

type Idle struct{}

func (Idle) String() string { return "idle" }

type IntraEnbHo struct{}

func (IntraEnbHo) String() string { return "intraenb_ho" }

// S1TargetHo waits for the status transfer (WaitRecfgComp false) and then for the UE (WaitRecfgComp true).
type S1TargetHo struct {
	WaitRecfgComp bool
}

func (s S1TargetHo) String() string {
	if s.WaitRecfgComp {
		return "s1_target_ho/wait_recfg_comp"
	}
	return "s1_target_ho"
}

type S1SourceSub int

const (
	S1_SOURCE_WAIT_HO_CMD S1SourceSub = iota
	S1_SOURCE_STATUS_TRANSFER
)

func (s S1SourceSub) String() string {
	switch s {
	case S1_SOURCE_WAIT_HO_CMD:
		return "wait_ho_cmd"
	case S1_SOURCE_STATUS_TRANSFER:
		return "status_transfer"
	default:
		return "unknown"
	}
}

type S1SourceHo struct {
	Sub S1SourceSub
}

func (s S1SourceHo) String() string {
	return "s1_source_ho/" + s.Sub.String()
}
