package rrc

type Event interface {
	Name() string
}

// MeasResult is one neighbour measurement, RSRP in dBm.
type MeasResult struct {
	Pci    uint16 `json:"pci"`
	Earfcn uint32 `json:"earfcn"`
	Rsrp   int    `json:"rsrp"`
}

type MeasReportEvent struct {
	ServingRsrp int          `json:"servingRsrp"`
	Neighbours  []MeasResult `json:"neighbours"`
}

// BearerStatus is the PDCP sequence number state of one DRB.
type BearerStatus struct {
	DrbId    uint8  `json:"drbId"`
	UlCount  uint32 `json:"ulCount"`
	DlCount  uint32 `json:"dlCount"`
	UlBitmap []byte `json:"ulBitmap,omitempty"`
}

// HoCommandEvent carries the target's RRC reconfiguration, to be forwarded to the UE unchanged.
type HoCommandEvent struct {
	Container []byte
}

type HoCancelEvent struct {
	Cause string
}

type HoFailureEvent struct {
	Cause string
}

type StatusTransferEvent struct {
	Bearers []BearerStatus
}

type RecfgCompleteEvent struct {
	TransactionId int64
}

type CrntiUpdateEvent struct {
	Rnti uint16
}

type HoRequestEvent struct {
	Source  Cell
	Bearers []uint8
}

// UeContextReleaseEvent is a release ordered by the core (Command true) or decided locally.
type UeContextReleaseEvent struct {
	Cause   string
	Command bool
}

func (MeasReportEvent) Name() string       { return "meas_report" }
func (HoCommandEvent) Name() string        { return "ho_command" }
func (HoCancelEvent) Name() string         { return "ho_cancel" }
func (HoFailureEvent) Name() string        { return "ho_failure" }
func (StatusTransferEvent) Name() string   { return "status_transfer" }
func (RecfgCompleteEvent) Name() string    { return "recfg_complete" }
func (CrntiUpdateEvent) Name() string      { return "crnti_update" }
func (HoRequestEvent) Name() string        { return "ho_request" }
func (UeContextReleaseEvent) Name() string { return "ue_context_release" }
