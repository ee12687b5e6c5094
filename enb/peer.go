package enb

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/Alonza0314/free-ran-l2/rrc"
	"github.com/Alonza0314/free-ran-l2/util"
	"github.com/free5gc/ngap"
	"github.com/free5gc/ngap/ngapType"
	"github.com/free5gc/openapi/models"
)

var ErrCoreDisabled = errors.New("core link not enabled")

// coreLink is the N2 association, an *sctp.SCTPConn in production.
type coreLink interface {
	Write(b []byte) (int, error)
}

// peer carries mobility effects to the UE and to the core on behalf of one eNB.
type peer struct {
	enb *Enb
}

func (p *peer) SendRrcReconfiguration(ue *rrc.UeContext, pdu []byte) error {
	enbUe, exists := p.enb.ues[ue.RanUeNgapId]
	if !exists {
		return fmt.Errorf("no ue with ran ue ngap id %d", ue.RanUeNgapId)
	}

	protected := pdu
	if ue.Security != nil {
		var err error
		if protected, err = ue.Security.Protect(pdu); err != nil {
			return fmt.Errorf("error protecting rrc reconfiguration: %v", err)
		}
	}
	enbUe.lastRrcPdu = protected

	p.enb.RrcLog.Debugf("UE %d: rrc reconfiguration %s", ue.Rnti, hex.EncodeToString(protected))
	return nil
}

func (p *peer) SendHandoverRequired(ue *rrc.UeContext, target rrc.Cell) error {
	targetEnbId, err := hex.DecodeString(target.EnbId)
	if err != nil {
		return fmt.Errorf("error decoding target enb id %s: %v", target.EnbId, err)
	}

	tai := p.enb.tai
	if target.Tac != "" {
		if tai, err = util.TaiToNgap(models.Tai{
			Tac:    target.Tac,
			PlmnId: &p.enb.plmnModel,
		}); err != nil {
			return err
		}
	}

	pdu, err := buildHandoverRequired(p.ids(ue), targetEnbId, target, p.enb.plmnId, tai, ue.Bearers)
	if err != nil {
		return err
	}
	return p.send(ue, "handover required", pdu)
}

func (p *peer) SendHandoverCancel(ue *rrc.UeContext, cause string) error {
	p.enb.NgapLog.Debugf("UE %d: cancelling handover: %s", ue.Rnti, cause)
	return p.send(ue, "handover cancel", buildHandoverCancel(p.ids(ue)))
}

func (p *peer) SendHandoverRequestAck(ue *rrc.UeContext, container []byte) error {
	enbUe, exists := p.enb.ues[ue.RanUeNgapId]
	if !exists {
		return fmt.Errorf("no UE with ran ue ngap id %d", ue.RanUeNgapId)
	}

	sessions := make([]admittedSession, 0, len(ue.Bearers))
	for _, bearer := range ue.Bearers {
		teid, err := p.enb.dlTeids.Allocate()
		if err != nil {
			return fmt.Errorf("error allocating downlink teid for session %d: %v", bearer.DrbId, err)
		}
		enbUe.dlTeids = append(enbUe.dlTeids, teid)
		sessions = append(sessions, admittedSession{id: bearer.DrbId, teid: uint32(teid)})
	}

	// forwarded to the UE by the source, which applies its own integrity protection
	enbUe.lastRrcPdu = container

	pdu, err := buildHandoverRequestAcknowledge(p.ids(ue), sessions, p.enb.n3Ip, container)
	if err != nil {
		return err
	}
	return p.send(ue, "handover request acknowledge", pdu)
}

func (p *peer) SendHandoverNotify(ue *rrc.UeContext) error {
	var cellId uint8
	if ue.Meas != nil {
		cellId = ue.Meas.Serving.CellId
	}
	return p.send(ue, "handover notify", buildHandoverNotify(p.ids(ue), p.enb.enbId, cellId, p.enb.plmnId, p.enb.tai))
}

func (p *peer) SendStatusTransfer(ue *rrc.UeContext, bearers []rrc.BearerStatus) error {
	return p.send(ue, "uplink ran status transfer", buildUplinkRanStatusTransfer(p.ids(ue), bearers))
}

func (p *peer) SendUeContextReleaseRequest(ue *rrc.UeContext, cause string) error {
	p.enb.NgapLog.Debugf("UE %d: requesting release: %s", ue.Rnti, cause)
	return p.send(ue, "ue context release request", buildUeContextReleaseRequest(p.ids(ue)))
}

func (p *peer) SendUeContextReleaseComplete(ue *rrc.UeContext) error {
	return p.send(ue, "ue context release complete", buildUeContextReleaseComplete(p.ids(ue)))
}

func (p *peer) ids(ue *rrc.UeContext) ngapUeIds {
	return ngapUeIds{
		amfUeNgapId: ue.AmfUeNgapId,
		ranUeNgapId: ue.RanUeNgapId,
	}
}

func (p *peer) send(ue *rrc.UeContext, name string, pdu ngapType.NGAPPDU) error {
	if p.enb.core == nil {
		return ErrCoreDisabled
	}

	b, err := ngap.Encoder(pdu)
	if err != nil {
		return fmt.Errorf("error encoding %s: %v", name, err)
	}

	n, err := p.enb.core.Write(b)
	if err != nil {
		return fmt.Errorf("error sending %s: %v", name, err)
	}
	p.enb.NgapLog.Tracef("Sent %d bytes of %s", n, name)
	p.enb.NgapLog.Debugf("UE %d: sent %s to core", ue.Rnti, name)
	return nil
}
