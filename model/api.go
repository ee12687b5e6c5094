package model

import "github.com/Alonza0314/free-ran-l2/rrc"

type EnbInfoResponse struct {
	Message string  `json:"message"`
	EnbInfo EnbInfo `json:"enbInfo"`
}

type EnbInfo struct {
	EnbId   string `json:"enbId"`
	EnbName string `json:"enbName"`
	PlmnId  string `json:"plmnId"`

	CoreConnected bool `json:"coreConnected"`

	Cells      []rrc.Cell `json:"cells"`
	Neighbours []rrc.Cell `json:"neighbours"`

	Ues []EnbUeInfo `json:"ues"`
}

type EnbUeInfo struct {
	Rnti         uint16             `json:"rnti"`
	RanUeNgapId  int64              `json:"ranUeNgapId"`
	AmfUeNgapId  int64              `json:"amfUeNgapId"`
	State        string             `json:"state"`
	ServingCell  rrc.Cell           `json:"servingCell"`
	PendingRnti  uint16             `json:"pendingRnti,omitempty"`
	HoId         string             `json:"hoId,omitempty"`
	FailureCause string             `json:"failureCause,omitempty"`
	Bearers      []rrc.BearerStatus `json:"bearers"`
	LastRrcPdu   string             `json:"lastRrcPdu,omitempty"`
	PdcpCount    uint32             `json:"pdcpCount"`
}

type EnbAddUeRequest struct {
	CellId uint8   `json:"cellId"`
	Drbs   []uint8 `json:"drbs"`
}

type EnbUeResponse struct {
	Message string     `json:"message"`
	Ue      *EnbUeInfo `json:"ue,omitempty"`
}

type EnbRecfgCompleteRequest struct {
	TransactionId int64 `json:"transactionId"`
}

type EnbCrntiUpdateRequest struct {
	Rnti uint16 `json:"rnti"`
}

type UeHandoverRequest struct {
	// RrcPdu is the hex encoded RRC reconfiguration as sent by the eNB, MAC-I included.
	RrcPdu string `json:"rrcPdu"`
}

type UeTrafficRequest struct {
	Lcid  uint8 `json:"lcid"`
	Size  int   `json:"size"`
	Count int   `json:"count"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
