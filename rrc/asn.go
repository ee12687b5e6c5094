package rrc

import (
	"encoding/binary"
	"fmt"

	"github.com/free5gc/aper"
)

// RrcConnectionReconfiguration carries only the fields the mobility procedure fills in.
type RrcConnectionReconfiguration struct {
	RrcTransactionIdentifier int64                `aper:"valueLB:0,valueUB:3"`
	MobilityControlInfo      *MobilityControlInfo `aper:"optional"`
}

type MobilityControlInfo struct {
	TargetPhysCellId    int64                `aper:"valueLB:0,valueUB:503"`
	CarrierFreq         *CarrierFreq         `aper:"optional"`
	T304                aper.Enumerated      `aper:"valueLB:0,valueUB:7"`
	NewUeIdentity       aper.BitString       `aper:"sizeLB:16,sizeUB:16"`
	RachConfigDedicated *RachConfigDedicated `aper:"optional"`
}

type CarrierFreq struct {
	DlCarrierFreq int64 `aper:"valueLB:0,valueUB:65535"`
}

type RachConfigDedicated struct {
	RaPreambleIndex  int64 `aper:"valueLB:0,valueUB:63"`
	RaPrachMaskIndex int64 `aper:"valueLB:0,valueUB:15"`
}

var t304Ms = []int{50, 100, 150, 200, 500, 1000, 2000}

// HoReconfiguration is the decoded view of a handover command to the UE. Preamble is -1 for contention based access.
type HoReconfiguration struct {
	TransactionId int64  `json:"transactionId"`
	TargetPci     uint16 `json:"targetPci"`
	Earfcn        uint32 `json:"earfcn"`
	T304Ms        int    `json:"t304Ms"`
	NewCrnti      uint16 `json:"newCrnti"`
	Preamble      int    `json:"preamble"`
	PrachMask     int    `json:"prachMask"`
}

func t304Enumerated(ms int) aper.Enumerated {
	for i, v := range t304Ms {
		if ms <= v {
			return aper.Enumerated(i)
		}
	}
	return aper.Enumerated(len(t304Ms) - 1)
}

func EncodeHoReconfiguration(r HoReconfiguration) ([]byte, error) {
	if r.TargetPci > 503 {
		return nil, fmt.Errorf("target pci %d out of range", r.TargetPci)
	}

	identity := make([]byte, 2)
	binary.BigEndian.PutUint16(identity, r.NewCrnti)

	mci := &MobilityControlInfo{
		TargetPhysCellId: int64(r.TargetPci),
		T304:             t304Enumerated(r.T304Ms),
		NewUeIdentity: aper.BitString{
			Bytes:     identity,
			BitLength: 16,
		},
	}
	if r.Earfcn != 0 {
		if r.Earfcn > 65535 {
			return nil, fmt.Errorf("earfcn %d out of range", r.Earfcn)
		}
		mci.CarrierFreq = &CarrierFreq{DlCarrierFreq: int64(r.Earfcn)}
	}
	if r.Preamble >= 0 {
		if r.Preamble > 63 || r.PrachMask < 0 || r.PrachMask > 15 {
			return nil, fmt.Errorf("dedicated preamble %d/%d out of range", r.Preamble, r.PrachMask)
		}
		mci.RachConfigDedicated = &RachConfigDedicated{
			RaPreambleIndex:  int64(r.Preamble),
			RaPrachMaskIndex: int64(r.PrachMask),
		}
	}

	msg := RrcConnectionReconfiguration{
		RrcTransactionIdentifier: r.TransactionId & 0x3,
		MobilityControlInfo:      mci,
	}
	b, err := aper.MarshalWithParams(msg, "valueExt")
	if err != nil {
		return nil, fmt.Errorf("error encoding rrc reconfiguration: %v", err)
	}
	return b, nil
}

func DecodeHoReconfiguration(b []byte) (HoReconfiguration, error) {
	msg := RrcConnectionReconfiguration{}
	if err := aper.UnmarshalWithParams(b, &msg, "valueExt"); err != nil {
		return HoReconfiguration{}, fmt.Errorf("error decoding rrc reconfiguration: %v", err)
	}
	mci := msg.MobilityControlInfo
	if mci == nil {
		return HoReconfiguration{}, fmt.Errorf("rrc reconfiguration without mobility control info")
	}
	if len(mci.NewUeIdentity.Bytes) < 2 {
		return HoReconfiguration{}, fmt.Errorf("invalid new ue identity")
	}

	r := HoReconfiguration{
		TransactionId: msg.RrcTransactionIdentifier,
		TargetPci:     uint16(mci.TargetPhysCellId),
		NewCrnti:      binary.BigEndian.Uint16(mci.NewUeIdentity.Bytes),
		Preamble:      -1,
	}
	if int(mci.T304) < len(t304Ms) {
		r.T304Ms = t304Ms[mci.T304]
	}
	if mci.CarrierFreq != nil {
		r.Earfcn = uint32(mci.CarrierFreq.DlCarrierFreq)
	}
	if mci.RachConfigDedicated != nil {
		r.Preamble = int(mci.RachConfigDedicated.RaPreambleIndex)
		r.PrachMask = int(mci.RachConfigDedicated.RaPrachMaskIndex)
	}
	return r, nil
}
