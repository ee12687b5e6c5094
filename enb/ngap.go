package enb

import (
	"encoding/binary"
	"fmt"

	"github.com/Alonza0314/free-ran-l2/rrc"
	"github.com/free5gc/aper"
	"github.com/free5gc/ngap"
	"github.com/free5gc/ngap/ngapConvert"
	"github.com/free5gc/ngap/ngapType"
	"github.com/free5gc/sctp"
)

const (
	DEFAULT_N3_IP       = "127.0.0.1"
	DEFAULT_QOS_FLOW_ID = 1

	pdcpSn18Mask = 0x3ffff
	pdcpSn18Bits = 18
)

type ngapUeIds struct {
	amfUeNgapId int64
	ranUeNgapId int64
}

func buildNgapSetupRequest(enbId []byte, enbName string, plmnId ngapType.PLMNIdentity, tai ngapType.TAI, snssai ngapType.SNSSAI) ngapType.NGAPPDU {
	pdu := ngapType.NGAPPDU{}
	pdu.Present = ngapType.NGAPPDUPresentInitiatingMessage
	pdu.InitiatingMessage = &ngapType.InitiatingMessage{}
	pdu.InitiatingMessage.ProcedureCode.Value = ngapType.ProcedureCodeNGSetup
	pdu.InitiatingMessage.Criticality.Value = ngapType.CriticalityPresentReject
	pdu.InitiatingMessage.Value.Present = ngapType.InitiatingMessagePresentNGSetupRequest
	pdu.InitiatingMessage.Value.NGSetupRequest = &ngapType.NGSetupRequest{}

	ies := &pdu.InitiatingMessage.Value.NGSetupRequest.ProtocolIEs

	nodeId := ngapType.NGSetupRequestIEs{}
	nodeId.Id.Value = ngapType.ProtocolIEIDGlobalRANNodeID
	nodeId.Criticality.Value = ngapType.CriticalityPresentReject
	nodeId.Value.Present = ngapType.NGSetupRequestIEsPresentGlobalRANNodeID
	globalRanNodeId := globalRanNodeIdOf(enbId, plmnId)
	nodeId.Value.GlobalRANNodeID = &globalRanNodeId
	ies.List = append(ies.List, nodeId)

	nodeName := ngapType.NGSetupRequestIEs{}
	nodeName.Id.Value = ngapType.ProtocolIEIDRANNodeName
	nodeName.Criticality.Value = ngapType.CriticalityPresentIgnore
	nodeName.Value.Present = ngapType.NGSetupRequestIEsPresentRANNodeName
	nodeName.Value.RANNodeName = &ngapType.RANNodeName{Value: enbName}
	ies.List = append(ies.List, nodeName)

	slice := ngapType.SliceSupportItem{}
	slice.SNSSAI.SST.Value = aper.OctetString(snssai.SST.Value)
	if snssai.SD != nil {
		slice.SNSSAI.SD = &ngapType.SD{Value: aper.OctetString(snssai.SD.Value)}
	}
	plmn := ngapType.BroadcastPLMNItem{}
	plmn.PLMNIdentity.Value = tai.PLMNIdentity.Value
	plmn.TAISliceSupportList.List = append(plmn.TAISliceSupportList.List, slice)
	ta := ngapType.SupportedTAItem{}
	ta.TAC.Value = aper.OctetString(tai.TAC.Value)
	ta.BroadcastPLMNList.List = append(ta.BroadcastPLMNList.List, plmn)

	taList := ngapType.NGSetupRequestIEs{}
	taList.Id.Value = ngapType.ProtocolIEIDSupportedTAList
	taList.Criticality.Value = ngapType.CriticalityPresentReject
	taList.Value.Present = ngapType.NGSetupRequestIEsPresentSupportedTAList
	taList.Value.SupportedTAList = &ngapType.SupportedTAList{List: []ngapType.SupportedTAItem{ta}}
	ies.List = append(ies.List, taList)

	drx := ngapType.NGSetupRequestIEs{}
	drx.Id.Value = ngapType.ProtocolIEIDDefaultPagingDRX
	drx.Criticality.Value = ngapType.CriticalityPresentIgnore
	drx.Value.Present = ngapType.NGSetupRequestIEsPresentDefaultPagingDRX
	drx.Value.DefaultPagingDRX = &ngapType.PagingDRX{Value: ngapType.PagingDRXPresentV128}
	ies.List = append(ies.List, drx)

	return pdu
}

func globalRanNodeIdOf(enbId []byte, plmnId ngapType.PLMNIdentity) ngapType.GlobalRANNodeID {
	nodeId := ngapType.GlobalRANNodeID{}
	nodeId.Present = ngapType.GlobalRANNodeIDPresentGlobalGNBID
	nodeId.GlobalGNBID = &ngapType.GlobalGNBID{}
	nodeId.GlobalGNBID.PLMNIdentity.Value = plmnId.Value
	nodeId.GlobalGNBID.GNBID.Present = ngapType.GNBIDPresentGNBID
	nodeId.GlobalGNBID.GNBID.GNBID = &aper.BitString{
		Bytes:     append([]byte(nil), enbId...),
		BitLength: uint64(len(enbId) * 8),
	}
	return nodeId
}

// cellIdentityOf packs the node id and the local cell id into a 36 bit cell identity.
func cellIdentityOf(enbId []byte, cellId uint8) aper.BitString {
	var node uint64
	for _, b := range enbId {
		node = node<<8 | uint64(b)
	}
	nodeBits := uint(len(enbId) * 8)
	if nodeBits > 36 {
		nodeBits = 36
	}
	value := (node<<(36-nodeBits) | uint64(cellId)) & (1<<36 - 1)

	// 36 bits are left aligned in 5 octets.
	bytes := make([]byte, 5)
	shifted := value << 4
	for i := range bytes {
		bytes[i] = byte(shifted >> uint(8*(4-i)))
	}
	return aper.BitString{Bytes: bytes, BitLength: 36}
}

func radioNetworkCause(value aper.Enumerated) ngapType.Cause {
	return ngapType.Cause{
		Present:      ngapType.CausePresentRadioNetwork,
		RadioNetwork: &ngapType.CauseRadioNetwork{Value: value},
	}
}

func causeString(cause *ngapType.Cause) string {
	if cause == nil {
		return "unspecified"
	}
	switch cause.Present {
	case ngapType.CausePresentRadioNetwork:
		return fmt.Sprintf("radio network cause %d", cause.RadioNetwork.Value)
	case ngapType.CausePresentTransport:
		return fmt.Sprintf("transport cause %d", cause.Transport.Value)
	case ngapType.CausePresentNas:
		return fmt.Sprintf("nas cause %d", cause.Nas.Value)
	case ngapType.CausePresentProtocol:
		return fmt.Sprintf("protocol cause %d", cause.Protocol.Value)
	case ngapType.CausePresentMisc:
		return fmt.Sprintf("misc cause %d", cause.Misc.Value)
	}
	return "unknown"
}

func newInitiatingMessage(procedureCode int64, criticality aper.Enumerated, present int) ngapType.NGAPPDU {
	pdu := ngapType.NGAPPDU{}
	pdu.Present = ngapType.NGAPPDUPresentInitiatingMessage
	pdu.InitiatingMessage = &ngapType.InitiatingMessage{}
	pdu.InitiatingMessage.ProcedureCode.Value = procedureCode
	pdu.InitiatingMessage.Criticality.Value = criticality
	pdu.InitiatingMessage.Value.Present = present
	return pdu
}

func buildHandoverRequired(ids ngapUeIds, targetEnbId []byte, target rrc.Cell, plmnId ngapType.PLMNIdentity, tai ngapType.TAI, bearers []rrc.BearerStatus) (ngapType.NGAPPDU, error) {
	pdu := newInitiatingMessage(ngapType.ProcedureCodeHandoverPreparation, ngapType.CriticalityPresentReject, ngapType.InitiatingMessagePresentHandoverRequired)
	pdu.InitiatingMessage.Value.HandoverRequired = &ngapType.HandoverRequired{}
	ies := &pdu.InitiatingMessage.Value.HandoverRequired.ProtocolIEs

	ie := ngapType.HandoverRequiredIEs{}
	ie.Id.Value = ngapType.ProtocolIEIDAMFUENGAPID
	ie.Criticality.Value = ngapType.CriticalityPresentReject
	ie.Value.Present = ngapType.HandoverRequiredIEsPresentAMFUENGAPID
	ie.Value.AMFUENGAPID = &ngapType.AMFUENGAPID{Value: ids.amfUeNgapId}
	ies.List = append(ies.List, ie)

	ie = ngapType.HandoverRequiredIEs{}
	ie.Id.Value = ngapType.ProtocolIEIDRANUENGAPID
	ie.Criticality.Value = ngapType.CriticalityPresentReject
	ie.Value.Present = ngapType.HandoverRequiredIEsPresentRANUENGAPID
	ie.Value.RANUENGAPID = &ngapType.RANUENGAPID{Value: ids.ranUeNgapId}
	ies.List = append(ies.List, ie)

	ie = ngapType.HandoverRequiredIEs{}
	ie.Id.Value = ngapType.ProtocolIEIDHandoverType
	ie.Criticality.Value = ngapType.CriticalityPresentReject
	ie.Value.Present = ngapType.HandoverRequiredIEsPresentHandoverType
	ie.Value.HandoverType = &ngapType.HandoverType{Value: ngapType.HandoverTypePresentIntra5gs}
	ies.List = append(ies.List, ie)

	ie = ngapType.HandoverRequiredIEs{}
	ie.Id.Value = ngapType.ProtocolIEIDCause
	ie.Criticality.Value = ngapType.CriticalityPresentIgnore
	ie.Value.Present = ngapType.HandoverRequiredIEsPresentCause
	cause := radioNetworkCause(ngapType.CauseRadioNetworkPresentHandoverDesirableForRadioReason)
	ie.Value.Cause = &cause
	ies.List = append(ies.List, ie)

	ie = ngapType.HandoverRequiredIEs{}
	ie.Id.Value = ngapType.ProtocolIEIDTargetID
	ie.Criticality.Value = ngapType.CriticalityPresentReject
	ie.Value.Present = ngapType.HandoverRequiredIEsPresentTargetID
	ie.Value.TargetID = &ngapType.TargetID{
		Present: ngapType.TargetIDPresentTargetRANNodeID,
		TargetRANNodeID: &ngapType.TargetRANNodeID{
			GlobalRANNodeID: globalRanNodeIdOf(targetEnbId, plmnId),
			SelectedTAI:     tai,
		},
	}
	ies.List = append(ies.List, ie)

	sessions := ngapType.PDUSessionResourceListHORqd{}
	for _, bearer := range bearers {
		transfer, err := aper.MarshalWithParams(ngapType.HandoverRequiredTransfer{}, "valueExt")
		if err != nil {
			return pdu, fmt.Errorf("error encoding handover required transfer: %v", err)
		}
		sessions.List = append(sessions.List, ngapType.PDUSessionResourceItemHORqd{
			PDUSessionID:             ngapType.PDUSessionID{Value: int64(bearer.DrbId)},
			HandoverRequiredTransfer: transfer,
		})
	}
	if len(sessions.List) > 0 {
		ie = ngapType.HandoverRequiredIEs{}
		ie.Id.Value = ngapType.ProtocolIEIDPDUSessionResourceListHORqd
		ie.Criticality.Value = ngapType.CriticalityPresentReject
		ie.Value.Present = ngapType.HandoverRequiredIEsPresentPDUSessionResourceListHORqd
		ie.Value.PDUSessionResourceListHORqd = &sessions
		ies.List = append(ies.List, ie)
	}

	targetCell := ngapType.NGRANCGI{
		Present: ngapType.NGRANCGIPresentNRCGI,
		NRCGI: &ngapType.NRCGI{
			PLMNIdentity:   plmnId,
			NRCellIdentity: ngapType.NRCellIdentity{Value: cellIdentityOf(targetEnbId, target.CellId)},
		},
	}
	container := ngapType.SourceNGRANNodeToTargetNGRANNodeTransparentContainer{
		RRCContainer: ngapType.RRCContainer{Value: []byte{0x00}},
		TargetCellID: targetCell,
	}
	container.UEHistoryInformation.List = append(container.UEHistoryInformation.List, ngapType.LastVisitedCellItem{
		LastVisitedCellInformation: ngapType.LastVisitedCellInformation{
			Present: ngapType.LastVisitedCellInformationPresentNGRANCell,
			NGRANCell: &ngapType.LastVisitedNGRANCellInformation{
				GlobalCellID:       targetCell,
				CellType:           ngapType.CellType{CellSize: ngapType.CellSize{Value: ngapType.CellSizePresentSmall}},
				TimeUEStayedInCell: ngapType.TimeUEStayedInCell{Value: 1},
			},
		},
	})
	containerBytes, err := aper.MarshalWithParams(container, "valueExt")
	if err != nil {
		return pdu, fmt.Errorf("error encoding source to target container: %v", err)
	}

	ie = ngapType.HandoverRequiredIEs{}
	ie.Id.Value = ngapType.ProtocolIEIDSourceToTargetTransparentContainer
	ie.Criticality.Value = ngapType.CriticalityPresentReject
	ie.Value.Present = ngapType.HandoverRequiredIEsPresentSourceToTargetTransparentContainer
	ie.Value.SourceToTargetTransparentContainer = &ngapType.SourceToTargetTransparentContainer{Value: containerBytes}
	ies.List = append(ies.List, ie)

	return pdu, nil
}

func buildHandoverCancel(ids ngapUeIds) ngapType.NGAPPDU {
	pdu := newInitiatingMessage(ngapType.ProcedureCodeHandoverCancel, ngapType.CriticalityPresentReject, ngapType.InitiatingMessagePresentHandoverCancel)
	pdu.InitiatingMessage.Value.HandoverCancel = &ngapType.HandoverCancel{}
	ies := &pdu.InitiatingMessage.Value.HandoverCancel.ProtocolIEs

	ie := ngapType.HandoverCancelIEs{}
	ie.Id.Value = ngapType.ProtocolIEIDAMFUENGAPID
	ie.Criticality.Value = ngapType.CriticalityPresentReject
	ie.Value.Present = ngapType.HandoverCancelIEsPresentAMFUENGAPID
	ie.Value.AMFUENGAPID = &ngapType.AMFUENGAPID{Value: ids.amfUeNgapId}
	ies.List = append(ies.List, ie)

	ie = ngapType.HandoverCancelIEs{}
	ie.Id.Value = ngapType.ProtocolIEIDRANUENGAPID
	ie.Criticality.Value = ngapType.CriticalityPresentReject
	ie.Value.Present = ngapType.HandoverCancelIEsPresentRANUENGAPID
	ie.Value.RANUENGAPID = &ngapType.RANUENGAPID{Value: ids.ranUeNgapId}
	ies.List = append(ies.List, ie)

	ie = ngapType.HandoverCancelIEs{}
	ie.Id.Value = ngapType.ProtocolIEIDCause
	ie.Criticality.Value = ngapType.CriticalityPresentIgnore
	ie.Value.Present = ngapType.HandoverCancelIEsPresentCause
	cause := radioNetworkCause(ngapType.CauseRadioNetworkPresentHandoverCancelled)
	ie.Value.Cause = &cause
	ies.List = append(ies.List, ie)

	return pdu
}

// admittedSession is a PDU session accepted at the target together with its downlink N3 tunnel.
type admittedSession struct {
	id   uint8
	teid uint32
}

func buildHandoverRequestAcknowledgeTransfer(session admittedSession, n3Ip string) ([]byte, error) {
	transfer := ngapType.HandoverRequestAcknowledgeTransfer{}

	transfer.DLNGUUPTNLInformation.Present = ngapType.UPTransportLayerInformationPresentGTPTunnel
	transfer.DLNGUUPTNLInformation.GTPTunnel = new(ngapType.GTPTunnel)
	gtpTunnel := transfer.DLNGUUPTNLInformation.GTPTunnel

	teid := make([]byte, 4)
	binary.BigEndian.PutUint32(teid, session.teid)
	gtpTunnel.GTPTEID.Value = teid
	gtpTunnel.TransportLayerAddress = ngapConvert.IPAddressToNgap(n3Ip, "")

	transfer.QosFlowSetupResponseList.List = append(transfer.QosFlowSetupResponseList.List, ngapType.QosFlowItemWithDataForwarding{
		QosFlowIdentifier: ngapType.QosFlowIdentifier{Value: DEFAULT_QOS_FLOW_ID},
	})

	return aper.MarshalWithParams(transfer, "valueExt")
}

// buildHandoverRequestAcknowledge admits every requested session and carries the handover command for the UE.
func buildHandoverRequestAcknowledge(ids ngapUeIds, sessions []admittedSession, n3Ip string, rrcContainer []byte) (ngapType.NGAPPDU, error) {
	pdu := ngapType.NGAPPDU{}
	pdu.Present = ngapType.NGAPPDUPresentSuccessfulOutcome
	pdu.SuccessfulOutcome = &ngapType.SuccessfulOutcome{}
	pdu.SuccessfulOutcome.ProcedureCode.Value = ngapType.ProcedureCodeHandoverResourceAllocation
	pdu.SuccessfulOutcome.Criticality.Value = ngapType.CriticalityPresentReject
	pdu.SuccessfulOutcome.Value.Present = ngapType.SuccessfulOutcomePresentHandoverRequestAcknowledge
	pdu.SuccessfulOutcome.Value.HandoverRequestAcknowledge = &ngapType.HandoverRequestAcknowledge{}
	ies := &pdu.SuccessfulOutcome.Value.HandoverRequestAcknowledge.ProtocolIEs

	ie := ngapType.HandoverRequestAcknowledgeIEs{}
	ie.Id.Value = ngapType.ProtocolIEIDAMFUENGAPID
	ie.Criticality.Value = ngapType.CriticalityPresentIgnore
	ie.Value.Present = ngapType.HandoverRequestAcknowledgeIEsPresentAMFUENGAPID
	ie.Value.AMFUENGAPID = &ngapType.AMFUENGAPID{Value: ids.amfUeNgapId}
	ies.List = append(ies.List, ie)

	ie = ngapType.HandoverRequestAcknowledgeIEs{}
	ie.Id.Value = ngapType.ProtocolIEIDRANUENGAPID
	ie.Criticality.Value = ngapType.CriticalityPresentIgnore
	ie.Value.Present = ngapType.HandoverRequestAcknowledgeIEsPresentRANUENGAPID
	ie.Value.RANUENGAPID = &ngapType.RANUENGAPID{Value: ids.ranUeNgapId}
	ies.List = append(ies.List, ie)

	if len(sessions) > 0 {
		admitted := ngapType.PDUSessionResourceAdmittedList{}
		for _, session := range sessions {
			transfer, err := buildHandoverRequestAcknowledgeTransfer(session, n3Ip)
			if err != nil {
				return pdu, fmt.Errorf("error encoding handover request acknowledge transfer: %v", err)
			}
			admitted.List = append(admitted.List, ngapType.PDUSessionResourceAdmittedItem{
				PDUSessionID:                       ngapType.PDUSessionID{Value: int64(session.id)},
				HandoverRequestAcknowledgeTransfer: transfer,
			})
		}
		ie = ngapType.HandoverRequestAcknowledgeIEs{}
		ie.Id.Value = ngapType.ProtocolIEIDPDUSessionResourceAdmittedList
		ie.Criticality.Value = ngapType.CriticalityPresentIgnore
		ie.Value.Present = ngapType.HandoverRequestAcknowledgeIEsPresentPDUSessionResourceAdmittedList
		ie.Value.PDUSessionResourceAdmittedList = &admitted
		ies.List = append(ies.List, ie)
	}

	container, err := aper.MarshalWithParams(ngapType.TargetNGRANNodeToSourceNGRANNodeTransparentContainer{
		RRCContainer: ngapType.RRCContainer{Value: rrcContainer},
	}, "valueExt")
	if err != nil {
		return pdu, fmt.Errorf("error encoding target to source container: %v", err)
	}
	ie = ngapType.HandoverRequestAcknowledgeIEs{}
	ie.Id.Value = ngapType.ProtocolIEIDTargetToSourceTransparentContainer
	ie.Criticality.Value = ngapType.CriticalityPresentReject
	ie.Value.Present = ngapType.HandoverRequestAcknowledgeIEsPresentTargetToSourceTransparentContainer
	ie.Value.TargetToSourceTransparentContainer = &ngapType.TargetToSourceTransparentContainer{Value: container}
	ies.List = append(ies.List, ie)

	return pdu, nil
}

func buildHandoverNotify(ids ngapUeIds, enbId []byte, cellId uint8, plmnId ngapType.PLMNIdentity, tai ngapType.TAI) ngapType.NGAPPDU {
	pdu := newInitiatingMessage(ngapType.ProcedureCodeHandoverNotification, ngapType.CriticalityPresentIgnore, ngapType.InitiatingMessagePresentHandoverNotify)
	pdu.InitiatingMessage.Value.HandoverNotify = &ngapType.HandoverNotify{}
	ies := &pdu.InitiatingMessage.Value.HandoverNotify.ProtocolIEs

	ie := ngapType.HandoverNotifyIEs{}
	ie.Id.Value = ngapType.ProtocolIEIDAMFUENGAPID
	ie.Criticality.Value = ngapType.CriticalityPresentReject
	ie.Value.Present = ngapType.HandoverNotifyIEsPresentAMFUENGAPID
	ie.Value.AMFUENGAPID = &ngapType.AMFUENGAPID{Value: ids.amfUeNgapId}
	ies.List = append(ies.List, ie)

	ie = ngapType.HandoverNotifyIEs{}
	ie.Id.Value = ngapType.ProtocolIEIDRANUENGAPID
	ie.Criticality.Value = ngapType.CriticalityPresentReject
	ie.Value.Present = ngapType.HandoverNotifyIEsPresentRANUENGAPID
	ie.Value.RANUENGAPID = &ngapType.RANUENGAPID{Value: ids.ranUeNgapId}
	ies.List = append(ies.List, ie)

	ie = ngapType.HandoverNotifyIEs{}
	ie.Id.Value = ngapType.ProtocolIEIDUserLocationInformation
	ie.Criticality.Value = ngapType.CriticalityPresentIgnore
	ie.Value.Present = ngapType.HandoverNotifyIEsPresentUserLocationInformation
	ie.Value.UserLocationInformation = &ngapType.UserLocationInformation{
		Present: ngapType.UserLocationInformationPresentUserLocationInformationNR,
		UserLocationInformationNR: &ngapType.UserLocationInformationNR{
			NRCGI: ngapType.NRCGI{
				PLMNIdentity:   plmnId,
				NRCellIdentity: ngapType.NRCellIdentity{Value: cellIdentityOf(enbId, cellId)},
			},
			TAI: tai,
		},
	}
	ies.List = append(ies.List, ie)

	return pdu
}

func countToSn18(count uint32) ngapType.COUNTValueForPDCPSN18 {
	return ngapType.COUNTValueForPDCPSN18{
		PDCPSN18:    int64(count & pdcpSn18Mask),
		HFNPDCPSN18: int64(count >> pdcpSn18Bits),
	}
}

func sn18ToCount(value ngapType.COUNTValueForPDCPSN18) uint32 {
	return uint32(value.HFNPDCPSN18)<<pdcpSn18Bits | uint32(value.PDCPSN18)&pdcpSn18Mask
}

func buildUplinkRanStatusTransfer(ids ngapUeIds, bearers []rrc.BearerStatus) ngapType.NGAPPDU {
	pdu := newInitiatingMessage(ngapType.ProcedureCodeUplinkRANStatusTransfer, ngapType.CriticalityPresentIgnore, ngapType.InitiatingMessagePresentUplinkRANStatusTransfer)
	pdu.InitiatingMessage.Value.UplinkRANStatusTransfer = &ngapType.UplinkRANStatusTransfer{}
	ies := &pdu.InitiatingMessage.Value.UplinkRANStatusTransfer.ProtocolIEs

	ie := ngapType.UplinkRANStatusTransferIEs{}
	ie.Id.Value = ngapType.ProtocolIEIDAMFUENGAPID
	ie.Criticality.Value = ngapType.CriticalityPresentReject
	ie.Value.Present = ngapType.UplinkRANStatusTransferIEsPresentAMFUENGAPID
	ie.Value.AMFUENGAPID = &ngapType.AMFUENGAPID{Value: ids.amfUeNgapId}
	ies.List = append(ies.List, ie)

	ie = ngapType.UplinkRANStatusTransferIEs{}
	ie.Id.Value = ngapType.ProtocolIEIDRANUENGAPID
	ie.Criticality.Value = ngapType.CriticalityPresentReject
	ie.Value.Present = ngapType.UplinkRANStatusTransferIEsPresentRANUENGAPID
	ie.Value.RANUENGAPID = &ngapType.RANUENGAPID{Value: ids.ranUeNgapId}
	ies.List = append(ies.List, ie)

	container := ngapType.RANStatusTransferTransparentContainer{}
	for _, bearer := range bearers {
		item := ngapType.DRBsSubjectToStatusTransferItem{}
		item.DRBID.Value = int64(bearer.DrbId)
		item.DRBStatusUL.Present = ngapType.DRBStatusULPresentDRBStatusUL18
		item.DRBStatusUL.DRBStatusUL18 = &ngapType.DRBStatusUL18{ULCOUNTValue: countToSn18(bearer.UlCount)}
		item.DRBStatusDL.Present = ngapType.DRBStatusDLPresentDRBStatusDL18
		item.DRBStatusDL.DRBStatusDL18 = &ngapType.DRBStatusDL18{DLCOUNTValue: countToSn18(bearer.DlCount)}
		container.DRBsSubjectToStatusTransferList.List = append(container.DRBsSubjectToStatusTransferList.List, item)
	}

	ie = ngapType.UplinkRANStatusTransferIEs{}
	ie.Id.Value = ngapType.ProtocolIEIDRANStatusTransferTransparentContainer
	ie.Criticality.Value = ngapType.CriticalityPresentReject
	ie.Value.Present = ngapType.UplinkRANStatusTransferIEsPresentRANStatusTransferTransparentContainer
	ie.Value.RANStatusTransferTransparentContainer = &container
	ies.List = append(ies.List, ie)

	return pdu
}

func buildUeContextReleaseRequest(ids ngapUeIds) ngapType.NGAPPDU {
	pdu := newInitiatingMessage(ngapType.ProcedureCodeUEContextReleaseRequest, ngapType.CriticalityPresentIgnore, ngapType.InitiatingMessagePresentUEContextReleaseRequest)
	pdu.InitiatingMessage.Value.UEContextReleaseRequest = &ngapType.UEContextReleaseRequest{}
	ies := &pdu.InitiatingMessage.Value.UEContextReleaseRequest.ProtocolIEs

	ie := ngapType.UEContextReleaseRequestIEs{}
	ie.Id.Value = ngapType.ProtocolIEIDAMFUENGAPID
	ie.Criticality.Value = ngapType.CriticalityPresentReject
	ie.Value.Present = ngapType.UEContextReleaseRequestIEsPresentAMFUENGAPID
	ie.Value.AMFUENGAPID = &ngapType.AMFUENGAPID{Value: ids.amfUeNgapId}
	ies.List = append(ies.List, ie)

	ie = ngapType.UEContextReleaseRequestIEs{}
	ie.Id.Value = ngapType.ProtocolIEIDRANUENGAPID
	ie.Criticality.Value = ngapType.CriticalityPresentReject
	ie.Value.Present = ngapType.UEContextReleaseRequestIEsPresentRANUENGAPID
	ie.Value.RANUENGAPID = &ngapType.RANUENGAPID{Value: ids.ranUeNgapId}
	ies.List = append(ies.List, ie)

	ie = ngapType.UEContextReleaseRequestIEs{}
	ie.Id.Value = ngapType.ProtocolIEIDCause
	ie.Criticality.Value = ngapType.CriticalityPresentIgnore
	ie.Value.Present = ngapType.UEContextReleaseRequestIEsPresentCause
	cause := radioNetworkCause(ngapType.CauseRadioNetworkPresentUnspecified)
	ie.Value.Cause = &cause
	ies.List = append(ies.List, ie)

	return pdu
}

func buildUeContextReleaseComplete(ids ngapUeIds) ngapType.NGAPPDU {
	pdu := ngapType.NGAPPDU{}
	pdu.Present = ngapType.NGAPPDUPresentSuccessfulOutcome
	pdu.SuccessfulOutcome = &ngapType.SuccessfulOutcome{}
	pdu.SuccessfulOutcome.ProcedureCode.Value = ngapType.ProcedureCodeUEContextRelease
	pdu.SuccessfulOutcome.Criticality.Value = ngapType.CriticalityPresentReject
	pdu.SuccessfulOutcome.Value.Present = ngapType.SuccessfulOutcomePresentUEContextReleaseComplete
	pdu.SuccessfulOutcome.Value.UEContextReleaseComplete = &ngapType.UEContextReleaseComplete{}
	ies := &pdu.SuccessfulOutcome.Value.UEContextReleaseComplete.ProtocolIEs

	ie := ngapType.UEContextReleaseCompleteIEs{}
	ie.Id.Value = ngapType.ProtocolIEIDAMFUENGAPID
	ie.Criticality.Value = ngapType.CriticalityPresentIgnore
	ie.Value.Present = ngapType.UEContextReleaseCompleteIEsPresentAMFUENGAPID
	ie.Value.AMFUENGAPID = &ngapType.AMFUENGAPID{Value: ids.amfUeNgapId}
	ies.List = append(ies.List, ie)

	ie = ngapType.UEContextReleaseCompleteIEs{}
	ie.Id.Value = ngapType.ProtocolIEIDRANUENGAPID
	ie.Criticality.Value = ngapType.CriticalityPresentIgnore
	ie.Value.Present = ngapType.UEContextReleaseCompleteIEsPresentRANUENGAPID
	ie.Value.RANUENGAPID = &ngapType.RANUENGAPID{Value: ids.ranUeNgapId}
	ies.List = append(ies.List, ie)

	return pdu
}

// coreMessage is an inbound NGAP message reduced to the mobility event it carries.
type coreMessage struct {
	ids   ngapUeIds
	event rrc.Event
	// newUe is set for a handover request, which creates the context at the target.
	newUe bool
}

func decodeCoreMessage(pdu *ngapType.NGAPPDU) (coreMessage, error) {
	switch pdu.Present {
	case ngapType.NGAPPDUPresentInitiatingMessage:
		return decodeInitiatingMessage(pdu.InitiatingMessage)
	case ngapType.NGAPPDUPresentSuccessfulOutcome:
		return decodeSuccessfulOutcome(pdu.SuccessfulOutcome)
	case ngapType.NGAPPDUPresentUnsuccessfulOutcome:
		return decodeUnsuccessfulOutcome(pdu.UnsuccessfulOutcome)
	}
	return coreMessage{}, fmt.Errorf("unknown ngap pdu present %d", pdu.Present)
}

func decodeInitiatingMessage(msg *ngapType.InitiatingMessage) (coreMessage, error) {
	if msg == nil {
		return coreMessage{}, fmt.Errorf("empty initiating message")
	}
	out := coreMessage{}
	switch msg.Value.Present {
	case ngapType.InitiatingMessagePresentHandoverRequest:
		event := rrc.HoRequestEvent{}
		for _, ie := range msg.Value.HandoverRequest.ProtocolIEs.List {
			switch ie.Id.Value {
			case ngapType.ProtocolIEIDAMFUENGAPID:
				out.ids.amfUeNgapId = ie.Value.AMFUENGAPID.Value
			case ngapType.ProtocolIEIDPDUSessionResourceSetupListHOReq:
				for _, item := range ie.Value.PDUSessionResourceSetupListHOReq.List {
					event.Bearers = append(event.Bearers, uint8(item.PDUSessionID.Value))
				}
			}
		}
		out.event, out.newUe = event, true
	case ngapType.InitiatingMessagePresentDownlinkRANStatusTransfer:
		event := rrc.StatusTransferEvent{}
		for _, ie := range msg.Value.DownlinkRANStatusTransfer.ProtocolIEs.List {
			switch ie.Id.Value {
			case ngapType.ProtocolIEIDAMFUENGAPID:
				out.ids.amfUeNgapId = ie.Value.AMFUENGAPID.Value
			case ngapType.ProtocolIEIDRANUENGAPID:
				out.ids.ranUeNgapId = ie.Value.RANUENGAPID.Value
			case ngapType.ProtocolIEIDRANStatusTransferTransparentContainer:
				for _, item := range ie.Value.RANStatusTransferTransparentContainer.DRBsSubjectToStatusTransferList.List {
					status := rrc.BearerStatus{DrbId: uint8(item.DRBID.Value)}
					if item.DRBStatusUL.DRBStatusUL18 != nil {
						status.UlCount = sn18ToCount(item.DRBStatusUL.DRBStatusUL18.ULCOUNTValue)
					}
					if item.DRBStatusDL.DRBStatusDL18 != nil {
						status.DlCount = sn18ToCount(item.DRBStatusDL.DRBStatusDL18.DLCOUNTValue)
					}
					event.Bearers = append(event.Bearers, status)
				}
			}
		}
		out.event = event
	case ngapType.InitiatingMessagePresentUEContextReleaseCommand:
		event := rrc.UeContextReleaseEvent{Command: true}
		for _, ie := range msg.Value.UEContextReleaseCommand.ProtocolIEs.List {
			switch ie.Id.Value {
			case ngapType.ProtocolIEIDUENGAPIDs:
				if pair := ie.Value.UENGAPIDs.UENGAPIDPair; pair != nil {
					out.ids.amfUeNgapId = pair.AMFUENGAPID.Value
					out.ids.ranUeNgapId = pair.RANUENGAPID.Value
				}
			case ngapType.ProtocolIEIDCause:
				event.Cause = causeString(ie.Value.Cause)
			}
		}
		out.event = event
	default:
		return out, fmt.Errorf("unsupported initiating message %d", msg.ProcedureCode.Value)
	}
	return out, nil
}

func decodeSuccessfulOutcome(msg *ngapType.SuccessfulOutcome) (coreMessage, error) {
	if msg == nil {
		return coreMessage{}, fmt.Errorf("empty successful outcome")
	}
	out := coreMessage{}
	switch msg.Value.Present {
	case ngapType.SuccessfulOutcomePresentHandoverCommand:
		event := rrc.HoCommandEvent{}
		for _, ie := range msg.Value.HandoverCommand.ProtocolIEs.List {
			switch ie.Id.Value {
			case ngapType.ProtocolIEIDAMFUENGAPID:
				out.ids.amfUeNgapId = ie.Value.AMFUENGAPID.Value
			case ngapType.ProtocolIEIDRANUENGAPID:
				out.ids.ranUeNgapId = ie.Value.RANUENGAPID.Value
			case ngapType.ProtocolIEIDTargetToSourceTransparentContainer:
				container := ngapType.TargetNGRANNodeToSourceNGRANNodeTransparentContainer{}
				if err := aper.UnmarshalWithParams(ie.Value.TargetToSourceTransparentContainer.Value, &container, "valueExt"); err != nil {
					return out, fmt.Errorf("error decoding target to source container: %v", err)
				}
				event.Container = append([]byte(nil), container.RRCContainer.Value...)
			}
		}
		if event.Container == nil {
			return out, fmt.Errorf("handover command without rrc container")
		}
		out.event = event
	default:
		return out, fmt.Errorf("unsupported successful outcome %d", msg.ProcedureCode.Value)
	}
	return out, nil
}

func decodeUnsuccessfulOutcome(msg *ngapType.UnsuccessfulOutcome) (coreMessage, error) {
	if msg == nil {
		return coreMessage{}, fmt.Errorf("empty unsuccessful outcome")
	}
	out := coreMessage{}
	switch msg.Value.Present {
	case ngapType.UnsuccessfulOutcomePresentHandoverPreparationFailure:
		event := rrc.HoFailureEvent{}
		for _, ie := range msg.Value.HandoverPreparationFailure.ProtocolIEs.List {
			switch ie.Id.Value {
			case ngapType.ProtocolIEIDAMFUENGAPID:
				out.ids.amfUeNgapId = ie.Value.AMFUENGAPID.Value
			case ngapType.ProtocolIEIDRANUENGAPID:
				out.ids.ranUeNgapId = ie.Value.RANUENGAPID.Value
			case ngapType.ProtocolIEIDCause:
				event.Cause = causeString(ie.Value.Cause)
			}
		}
		out.event = event
	default:
		return out, fmt.Errorf("unsupported unsuccessful outcome %d", msg.ProcedureCode.Value)
	}
	return out, nil
}

func ngapSetup(conn *sctp.SCTPConn, enbId []byte, enbName string, plmnId ngapType.PLMNIdentity, tai ngapType.TAI, snssai ngapType.SNSSAI) error {
	request, err := ngap.Encoder(buildNgapSetupRequest(enbId, enbName, plmnId, tai, snssai))
	if err != nil {
		return fmt.Errorf("error encoding NGAP setup request: %v", err)
	}

	if _, err := conn.Write(request); err != nil {
		return fmt.Errorf("error sending NGAP setup request: %v", err)
	}

	response := make([]byte, 2048)
	n, err := conn.Read(response)
	if err != nil {
		return fmt.Errorf("error reading NGAP setup response: %v", err)
	}

	responsePdu, err := ngap.Decoder(response[:n])
	if err != nil {
		return fmt.Errorf("error decoding NGAP setup response: %v", err)
	}

	if responsePdu.Present == ngapType.NGAPPDUPresentSuccessfulOutcome && responsePdu.SuccessfulOutcome.ProcedureCode.Value == ngapType.ProcedureCodeNGSetup {
		return nil
	}
	return fmt.Errorf("NGAP setup rejected: %+v", responsePdu)
}
