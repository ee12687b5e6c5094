package rrc

// Effect is an action produced by a transition. Effects are executed in order by Mobility.Handle.
type Effect interface {
	effect()
}

type HoType string

const (
	HO_TYPE_INTRA_ENB HoType = "intra_enb"
	HO_TYPE_S1_SOURCE HoType = "s1_source"
	HO_TYPE_S1_TARGET HoType = "s1_target"
)

type SetPendingTarget struct {
	Target Cell
}

// SendHoReconfiguration builds a reconfiguration with mobility control info towards Target.
type SendHoReconfiguration struct {
	Target Cell
}

type SendHandoverRequired struct {
	Target Cell
}

type ForwardHoCommand struct {
	Container []byte
}

type SendStatusTransfer struct{}

type SendHandoverCancel struct {
	Cause string
}

type SendHandoverRequestAck struct {
	Bearers []uint8
}

type SendHandoverNotify struct{}

type DeferEvent struct {
	Event Event
}

type ApplyBearerStatus struct {
	Bearers []BearerStatus
}

type ReplayDeferred struct{}

type UpdateCrnti struct {
	Rnti uint16
}

type RecordFailure struct {
	Type  HoType
	Cause string
}

type CompleteHandover struct {
	Type HoType
}

// ReleaseContext drops the UE. Complete answers a release command, otherwise a release is requested.
type ReleaseContext struct {
	Cause    string
	Complete bool
}

func (SetPendingTarget) effect()       {}
func (SendHoReconfiguration) effect()  {}
func (SendHandoverRequired) effect()   {}
func (ForwardHoCommand) effect()       {}
func (SendStatusTransfer) effect()     {}
func (SendHandoverCancel) effect()     {}
func (SendHandoverRequestAck) effect() {}
func (SendHandoverNotify) effect()     {}
func (DeferEvent) effect()             {}
func (ApplyBearerStatus) effect()      {}
func (ReplayDeferred) effect()         {}
func (UpdateCrnti) effect()            {}
func (RecordFailure) effect()          {}
func (CompleteHandover) effect()       {}
func (ReleaseContext) effect()         {}
