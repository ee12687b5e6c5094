package rrc

import (
	"errors"
	"fmt"

	"github.com/Alonza0314/free-ran-l2/metrics"
	"github.com/Alonza0314/free-ran-l2/security"
	loggergoModel "github.com/Alonza0314/logger-go/v2/model"
	"github.com/rs/xid"
)

var (
	ErrNoTransition   = errors.New("no transition for event")
	ErrContextRelease = errors.New("ue context released")
)

// Peer sends the messages produced by mobility effects. RRC PDUs are sent unprotected, the peer applies integrity.
type Peer interface {
	SendRrcReconfiguration(ue *UeContext, pdu []byte) error
	SendHandoverRequired(ue *UeContext, target Cell) error
	SendHandoverCancel(ue *UeContext, cause string) error
	SendHandoverRequestAck(ue *UeContext, container []byte) error
	SendHandoverNotify(ue *UeContext) error
	SendStatusTransfer(ue *UeContext, bearers []BearerStatus) error
	SendUeContextReleaseRequest(ue *UeContext, cause string) error
	SendUeContextReleaseComplete(ue *UeContext) error
}

type RntiAllocator interface {
	Allocate() (uint16, error)
	Release(rnti uint16)
}

type Options struct {
	T304Ms int
	// Dedicated preambles start at DedicatedPreambleStart. Zero NofDedicatedPreambles means contention based access.
	DedicatedPreambleStart int
	NofDedicatedPreambles  int
}

// UeContext is the eNB's view of one UE. It is owned by the dispatcher goroutine.
type UeContext struct {
	Rnti        uint16
	RanUeNgapId int64
	AmfUeNgapId int64

	Meas     *MeasConfig
	Security *security.Context
	Bearers  []BearerStatus

	// Handover in progress.
	HoId          xid.ID
	PendingTarget *Cell
	PendingRnti   uint16
	FailureCause  string

	rrcTransactionId int64
	released         bool
}

func (ue *UeContext) nextTransactionId() int64 {
	id := ue.rrcTransactionId
	ue.rrcTransactionId = (ue.rrcTransactionId + 1) & 0x3
	return id
}

func (ue *UeContext) Released() bool {
	return ue.released
}

// Mobility runs the state machine of one UE and executes the effects of every transition.
type Mobility struct {
	ue    *UeContext
	state State

	deferred []Event

	peer    Peer
	rntis   RntiAllocator
	options Options

	log     loggergoModel.LoggerInterface
	metrics *metrics.RrcMetrics
}

func NewMobility(ue *UeContext, peer Peer, rntis RntiAllocator, options Options, log loggergoModel.LoggerInterface, m *metrics.RrcMetrics) *Mobility {
	return &Mobility{
		ue:      ue,
		state:   Idle{},
		peer:    peer,
		rntis:   rntis,
		options: options,
		log:     log,
		metrics: m,
	}
}

func (m *Mobility) State() State {
	return m.state
}

func (m *Mobility) Ue() *UeContext {
	return m.ue
}

func (m *Mobility) Deferred() int {
	return len(m.deferred)
}

// Handle applies exactly one transition. Deferred events released by the transition are handled afterwards, each
// as a transition of its own.
func (m *Mobility) Handle(event Event) error {
	if m.ue.released {
		return ErrContextRelease
	}

	next, effects, ok := Transition(m.state, event, Guards{Meas: m.ue.Meas})
	if !ok {
		m.log.Warnf("UE %d: ignoring %s in state %s", m.ue.Rnti, event.Name(), m.state)
		if m.metrics != nil {
			m.metrics.Rejected.Inc()
		}
		return ErrNoTransition
	}

	if next != m.state {
		m.log.Infof("UE %d: %s -> %s on %s", m.ue.Rnti, m.state, next, event.Name())
		if m.metrics != nil {
			m.metrics.Transitions.WithLabelValues(next.String()).Inc()
		}
	}
	m.state = next

	var err error
	replay := false
	for _, effect := range effects {
		if _, isReplay := effect.(ReplayDeferred); isReplay {
			replay = true
			continue
		}
		if applyErr := m.apply(effect); applyErr != nil {
			m.log.Errorf("UE %d: %T failed: %v", m.ue.Rnti, effect, applyErr)
			if err == nil {
				err = applyErr
			}
		}
	}

	if replay {
		pending := m.deferred
		m.deferred = nil
		for _, ev := range pending {
			m.log.Debugf("UE %d: replaying %s", m.ue.Rnti, ev.Name())
			if replayErr := m.Handle(ev); replayErr != nil && err == nil {
				err = replayErr
			}
		}
	}
	return err
}

func (m *Mobility) apply(effect Effect) error {
	ue := m.ue
	switch e := effect.(type) {
	case SetPendingTarget:
		target := e.Target
		ue.PendingTarget = &target
		ue.HoId = xid.New()
		ue.FailureCause = ""
		m.log.Infof("UE %d: handover %s towards %s", ue.Rnti, ue.HoId, target)
	case SendHoReconfiguration:
		return m.sendHoReconfiguration(e.Target)
	case SendHandoverRequired:
		return m.peer.SendHandoverRequired(ue, e.Target)
	case ForwardHoCommand:
		return m.peer.SendRrcReconfiguration(ue, e.Container)
	case SendStatusTransfer:
		return m.peer.SendStatusTransfer(ue, ue.Bearers)
	case SendHandoverCancel:
		return m.peer.SendHandoverCancel(ue, e.Cause)
	case SendHandoverRequestAck:
		return m.sendHandoverRequestAck(e.Bearers)
	case SendHandoverNotify:
		return m.peer.SendHandoverNotify(ue)
	case DeferEvent:
		m.deferred = append(m.deferred, e.Event)
	case ApplyBearerStatus:
		ue.Bearers = append([]BearerStatus(nil), e.Bearers...)
	case UpdateCrnti:
		return m.updateCrnti(e.Rnti)
	case RecordFailure:
		ue.FailureCause = e.Cause
		if ue.PendingRnti != 0 {
			m.rntis.Release(ue.PendingRnti)
			ue.PendingRnti = 0
		}
		ue.PendingTarget = nil
		m.deferred = nil
		m.log.Warnf("UE %d: %s handover %s failed: %s", ue.Rnti, e.Type, ue.HoId, e.Cause)
		m.countHandover(e.Type, "failure")
	case CompleteHandover:
		if e.Type == HO_TYPE_INTRA_ENB && ue.PendingTarget != nil {
			ue.Meas.Serving = *ue.PendingTarget
		}
		ue.PendingTarget = nil
		if ue.PendingRnti != 0 {
			if err := m.updateCrnti(ue.PendingRnti); err != nil {
				return err
			}
		}
		m.log.Infof("UE %d: %s handover %s completed", ue.Rnti, e.Type, ue.HoId)
		m.countHandover(e.Type, "success")
	case ReleaseContext:
		ue.released = true
		if e.Complete {
			return m.peer.SendUeContextReleaseComplete(ue)
		}
		return m.peer.SendUeContextReleaseRequest(ue, e.Cause)
	default:
		return fmt.Errorf("unknown effect %T", effect)
	}
	return nil
}

func (m *Mobility) countHandover(hoType HoType, result string) {
	if m.metrics != nil {
		m.metrics.Handovers.WithLabelValues(string(hoType), result).Inc()
	}
}

func (m *Mobility) buildReconfiguration(target Cell) ([]byte, error) {
	rnti, err := m.rntis.Allocate()
	if err != nil {
		return nil, fmt.Errorf("error allocating target rnti: %v", err)
	}
	m.ue.PendingRnti = rnti

	r := HoReconfiguration{
		TransactionId: m.ue.nextTransactionId(),
		TargetPci:     target.Pci,
		Earfcn:        target.Earfcn,
		T304Ms:        m.options.T304Ms,
		NewCrnti:      rnti,
		Preamble:      -1,
	}
	if m.options.NofDedicatedPreambles > 0 {
		r.Preamble = m.options.DedicatedPreambleStart + int(rnti)%m.options.NofDedicatedPreambles
	}
	return EncodeHoReconfiguration(r)
}

func (m *Mobility) sendHoReconfiguration(target Cell) error {
	pdu, err := m.buildReconfiguration(target)
	if err != nil {
		return err
	}
	if err := m.peer.SendRrcReconfiguration(m.ue, pdu); err != nil {
		return err
	}
	if m.ue.Security != nil {
		if err := m.ue.Security.Rekey(target.Pci, target.Earfcn); err != nil {
			return fmt.Errorf("error deriving target key: %v", err)
		}
	}
	return nil
}

func (m *Mobility) sendHandoverRequestAck(bearers []uint8) error {
	if m.ue.Meas == nil {
		return fmt.Errorf("no serving cell for incoming handover")
	}
	m.ue.Bearers = m.ue.Bearers[:0]
	for _, drbId := range bearers {
		m.ue.Bearers = append(m.ue.Bearers, BearerStatus{DrbId: drbId})
	}
	m.ue.HoId = xid.New()

	container, err := m.buildReconfiguration(m.ue.Meas.Serving)
	if err != nil {
		return err
	}
	return m.peer.SendHandoverRequestAck(m.ue, container)
}

// updateCrnti moves the context to the C-RNTI the UE used at the target cell.
func (m *Mobility) updateCrnti(rnti uint16) error {
	if m.ue.PendingRnti != 0 && m.ue.PendingRnti != rnti {
		return fmt.Errorf("c-rnti %d does not match allocated %d", rnti, m.ue.PendingRnti)
	}
	old := m.ue.Rnti
	m.ue.Rnti = rnti
	m.ue.PendingRnti = 0
	if old != rnti && old != 0 {
		m.rntis.Release(old)
	}
	m.log.Infof("UE %d: c-rnti updated to %d", old, rnti)
	return nil
}
