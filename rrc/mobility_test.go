package rrc

import (
	"errors"
	"testing"

	"github.com/Alonza0314/free-ran-l2/metrics"
	"github.com/Alonza0314/free-ran-l2/security"
	loggergo "github.com/Alonza0314/logger-go/v2"
	"github.com/go-playground/assert/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"
)

var testLogger = loggergo.NewLogger("", true).WithTags("TEST", "RRC")

type fakeRntis struct {
	next     uint16
	released []uint16
}

func (f *fakeRntis) Allocate() (uint16, error) {
	if f.next == 0 {
		return 0, errors.New("exhausted")
	}
	rnti := f.next
	f.next++
	return rnti, nil
}

func (f *fakeRntis) Release(rnti uint16) {
	f.released = append(f.released, rnti)
}

type mobilityFixture struct {
	peer     *MockPeer
	rntis    *fakeRntis
	metrics  *metrics.RrcMetrics
	ue       *UeContext
	mobility *Mobility
}

func newMobilityFixture(t *testing.T) *mobilityFixture {
	ctrl := gomock.NewController(t)
	f := &mobilityFixture{
		peer:    NewMockPeer(ctrl),
		rntis:   &fakeRntis{next: 0x100},
		metrics: metrics.NewRrcMetrics(prometheus.NewRegistry()),
		ue: &UeContext{
			Rnti: 0x46,
			Meas: testMeasConfig(),
		},
	}
	f.mobility = NewMobility(f.ue, f.peer, f.rntis, Options{T304Ms: 1000}, testLogger, f.metrics)
	return f
}

func TestMobilityIntraEnbHandover(t *testing.T) {
	f := newMobilityFixture(t)
	sec, err := security.NewContext("000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f", "NIA2")
	assert.Equal(t, nil, err)
	f.ue.Security = sec
	oldKey := sec.KEnbHex()

	var sent []byte
	f.peer.EXPECT().SendRrcReconfiguration(f.ue, gomock.Any()).DoAndReturn(func(_ *UeContext, pdu []byte) error {
		sent = pdu
		return nil
	})

	assert.Equal(t, nil, f.mobility.Handle(testIntraReport))
	assert.Equal(t, IntraEnbHo{}, f.mobility.State())
	assert.Equal(t, uint16(2), f.ue.PendingTarget.Pci)
	assert.Equal(t, uint16(0x100), f.ue.PendingRnti)
	assert.NotEqual(t, oldKey, sec.KEnbHex())

	recfg, err := DecodeHoReconfiguration(sent)
	assert.Equal(t, nil, err)
	assert.Equal(t, uint16(2), recfg.TargetPci)
	assert.Equal(t, uint16(0x100), recfg.NewCrnti)
	assert.Equal(t, 1000, recfg.T304Ms)
	assert.Equal(t, -1, recfg.Preamble)

	assert.Equal(t, nil, f.mobility.Handle(CrntiUpdateEvent{Rnti: 0x100}))
	assert.Equal(t, IntraEnbHo{}, f.mobility.State())
	assert.Equal(t, uint16(0x100), f.ue.Rnti)
	assert.Equal(t, []uint16{0x46}, f.rntis.released)

	assert.Equal(t, nil, f.mobility.Handle(RecfgCompleteEvent{}))
	assert.Equal(t, Idle{}, f.mobility.State())
	assert.Equal(t, uint16(2), f.ue.Meas.Serving.Pci)
	assert.Equal(t, true, f.ue.PendingTarget == nil)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Handovers.WithLabelValues("intra_enb", "success")))

	assert.Equal(t, ErrNoTransition, f.mobility.Handle(RecfgCompleteEvent{}))
	assert.Equal(t, Idle{}, f.mobility.State())
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Rejected))
}

func TestMobilityDedicatedPreamble(t *testing.T) {
	f := newMobilityFixture(t)
	f.mobility.options = Options{T304Ms: 500, DedicatedPreambleStart: 52, NofDedicatedPreambles: 12}

	var sent []byte
	f.peer.EXPECT().SendRrcReconfiguration(f.ue, gomock.Any()).DoAndReturn(func(_ *UeContext, pdu []byte) error {
		sent = pdu
		return nil
	})
	assert.Equal(t, nil, f.mobility.Handle(testIntraReport))

	recfg, err := DecodeHoReconfiguration(sent)
	assert.Equal(t, nil, err)
	assert.Equal(t, 52+0x100%12, recfg.Preamble)
}

func TestMobilityCrntiMismatch(t *testing.T) {
	f := newMobilityFixture(t)
	f.peer.EXPECT().SendRrcReconfiguration(f.ue, gomock.Any()).Return(nil)
	assert.Equal(t, nil, f.mobility.Handle(testIntraReport))

	assert.NotEqual(t, nil, f.mobility.Handle(CrntiUpdateEvent{Rnti: 0x999}))
	assert.Equal(t, IntraEnbHo{}, f.mobility.State())
	assert.Equal(t, uint16(0x46), f.ue.Rnti)
}

func TestMobilityS1SourceCancelCollapses(t *testing.T) {
	f := newMobilityFixture(t)
	gomock.InOrder(
		f.peer.EXPECT().SendHandoverRequired(f.ue, gomock.Any()).DoAndReturn(func(_ *UeContext, target Cell) error {
			assert.Equal(t, "000103", target.EnbId)
			return nil
		}),
		f.peer.EXPECT().SendHandoverCancel(f.ue, "t-reloc-prep expiry").Return(nil),
	)

	assert.Equal(t, nil, f.mobility.Handle(testS1Report))
	assert.Equal(t, S1SourceHo{Sub: S1_SOURCE_WAIT_HO_CMD}, f.mobility.State())
	hoId := f.ue.HoId
	assert.Equal(t, false, hoId.IsNil())

	assert.Equal(t, nil, f.mobility.Handle(HoCancelEvent{Cause: "t-reloc-prep expiry"}))
	assert.Equal(t, Idle{}, f.mobility.State())
	assert.Equal(t, "t-reloc-prep expiry", f.ue.FailureCause)
	assert.Equal(t, true, f.ue.PendingTarget == nil)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Handovers.WithLabelValues("s1_source", "failure")))

	assert.Equal(t, ErrNoTransition, f.mobility.Handle(HoCancelEvent{Cause: "t-reloc-prep expiry"}))
}

func TestMobilityS1SourceSuccess(t *testing.T) {
	f := newMobilityFixture(t)
	f.ue.Bearers = []BearerStatus{{DrbId: 1, UlCount: 10, DlCount: 20}}
	container := []byte{0x01, 0x02, 0x03}

	gomock.InOrder(
		f.peer.EXPECT().SendHandoverRequired(f.ue, gomock.Any()).Return(nil),
		f.peer.EXPECT().SendRrcReconfiguration(f.ue, container).Return(nil),
		f.peer.EXPECT().SendStatusTransfer(f.ue, f.ue.Bearers).Return(nil),
		f.peer.EXPECT().SendUeContextReleaseComplete(f.ue).Return(nil),
	)

	assert.Equal(t, nil, f.mobility.Handle(testS1Report))
	assert.Equal(t, nil, f.mobility.Handle(HoCommandEvent{Container: container}))
	assert.Equal(t, S1SourceHo{Sub: S1_SOURCE_STATUS_TRANSFER}, f.mobility.State())
	assert.Equal(t, nil, f.mobility.Handle(UeContextReleaseEvent{Cause: "successful handover", Command: true}))
	assert.Equal(t, Idle{}, f.mobility.State())
	assert.Equal(t, true, f.ue.Released())

	assert.Equal(t, ErrContextRelease, f.mobility.Handle(testS1Report))
}

func TestMobilityS1TargetDefersRecfgComplete(t *testing.T) {
	f := newMobilityFixture(t)
	f.ue.Rnti = 0

	gomock.InOrder(
		f.peer.EXPECT().SendHandoverRequestAck(f.ue, gomock.Any()).Return(nil),
		f.peer.EXPECT().SendHandoverNotify(f.ue).Return(nil),
	)

	assert.Equal(t, nil, f.mobility.Handle(HoRequestEvent{Bearers: []uint8{1, 2}}))
	assert.Equal(t, S1TargetHo{}, f.mobility.State())
	assert.Equal(t, 2, len(f.ue.Bearers))

	assert.Equal(t, nil, f.mobility.Handle(RecfgCompleteEvent{}))
	assert.Equal(t, S1TargetHo{}, f.mobility.State())
	assert.Equal(t, 1, f.mobility.Deferred())

	bearers := []BearerStatus{{DrbId: 1, UlCount: 7, DlCount: 9}, {DrbId: 2, UlCount: 1, DlCount: 2}}
	assert.Equal(t, nil, f.mobility.Handle(StatusTransferEvent{Bearers: bearers}))
	assert.Equal(t, Idle{}, f.mobility.State())
	assert.Equal(t, 0, f.mobility.Deferred())
	assert.Equal(t, bearers, f.ue.Bearers)
	assert.Equal(t, uint16(0x100), f.ue.Rnti)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Handovers.WithLabelValues("s1_target", "success")))
}

func TestMobilityS1TargetInOrder(t *testing.T) {
	f := newMobilityFixture(t)
	f.ue.Rnti = 0

	f.peer.EXPECT().SendHandoverRequestAck(f.ue, gomock.Any()).DoAndReturn(func(_ *UeContext, container []byte) error {
		recfg, err := DecodeHoReconfiguration(container)
		assert.Equal(t, nil, err)
		assert.Equal(t, uint16(1), recfg.TargetPci)
		return nil
	})
	f.peer.EXPECT().SendHandoverNotify(f.ue).Return(nil)

	assert.Equal(t, nil, f.mobility.Handle(HoRequestEvent{Bearers: []uint8{1}}))
	assert.Equal(t, nil, f.mobility.Handle(StatusTransferEvent{}))
	assert.Equal(t, S1TargetHo{WaitRecfgComp: true}, f.mobility.State())
	assert.Equal(t, nil, f.mobility.Handle(RecfgCompleteEvent{}))
	assert.Equal(t, Idle{}, f.mobility.State())
}

func TestMobilityRejectedReport(t *testing.T) {
	f := newMobilityFixture(t)
	assert.Equal(t, ErrNoTransition, f.mobility.Handle(testWeakReport))
	assert.Equal(t, Idle{}, f.mobility.State())
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Rejected))
}

func TestMobilityRntiExhausted(t *testing.T) {
	f := newMobilityFixture(t)
	f.rntis.next = 0

	assert.NotEqual(t, nil, f.mobility.Handle(testIntraReport))
	assert.Equal(t, IntraEnbHo{}, f.mobility.State())

	assert.Equal(t, nil, f.mobility.Handle(HoFailureEvent{Cause: "no rnti"}))
	assert.Equal(t, Idle{}, f.mobility.State())
	assert.Equal(t, "no rnti", f.ue.FailureCause)
}

func TestMobilityS1TargetCancelRequestsRelease(t *testing.T) {
	f := newMobilityFixture(t)
	f.ue.Rnti = 0

	gomock.InOrder(
		f.peer.EXPECT().SendHandoverRequestAck(f.ue, gomock.Any()).Return(nil),
		f.peer.EXPECT().SendUeContextReleaseRequest(f.ue, "cancelled").Return(nil),
	)

	assert.Equal(t, nil, f.mobility.Handle(HoRequestEvent{Bearers: []uint8{1}}))
	assert.Equal(t, nil, f.mobility.Handle(RecfgCompleteEvent{}))
	assert.Equal(t, nil, f.mobility.Handle(HoCancelEvent{Cause: "cancelled"}))
	assert.Equal(t, Idle{}, f.mobility.State())
	assert.Equal(t, 0, f.mobility.Deferred())
	assert.Equal(t, true, f.ue.Released())
	assert.Equal(t, []uint16{0x100}, f.rntis.released)
}

func TestMobilityS1TargetFailureRequestsRelease(t *testing.T) {
	f := newMobilityFixture(t)
	f.ue.Rnti = 0

	gomock.InOrder(
		f.peer.EXPECT().SendHandoverRequestAck(f.ue, gomock.Any()).Return(errors.New("association down")),
		f.peer.EXPECT().SendUeContextReleaseRequest(f.ue, "association down").Return(nil),
	)

	assert.NotEqual(t, nil, f.mobility.Handle(HoRequestEvent{Bearers: []uint8{1}}))
	assert.Equal(t, S1TargetHo{}, f.mobility.State())

	assert.Equal(t, nil, f.mobility.Handle(HoFailureEvent{Cause: "association down"}))
	assert.Equal(t, Idle{}, f.mobility.State())
	assert.Equal(t, "association down", f.ue.FailureCause)
	assert.Equal(t, true, f.ue.Released())
	assert.Equal(t, []uint16{0x100}, f.rntis.released)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Handovers.WithLabelValues("s1_target", "failure")))
}
