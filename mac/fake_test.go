package mac

import (
	"testing"

	"github.com/Alonza0314/free-ran-l2/model"
	"github.com/Alonza0314/free-ran-l2/pool"
	loggergo "github.com/Alonza0314/logger-go/v2"
)

var testLogger = loggergo.NewLogger("", true).WithTags("TEST", "MAC")

type fakeRlc struct {
	queues map[uint8][]byte
	rx     map[uint8][][]byte
	bcch   [][]byte
}

func newFakeRlc() *fakeRlc {
	return &fakeRlc{
		queues: make(map[uint8][]byte),
		rx:     make(map[uint8][][]byte),
	}
}

func (f *fakeRlc) fill(lcid uint8, n int, seed byte) {
	for i := 0; i < n; i++ {
		f.queues[lcid] = append(f.queues[lcid], seed+byte(i))
	}
}

func (f *fakeRlc) pending() int {
	total := 0
	for _, q := range f.queues {
		total += len(q)
	}
	return total
}

func (f *fakeRlc) GetBufferState(lcid uint8) int {
	return len(f.queues[lcid])
}

func (f *fakeRlc) ReadPdu(lcid uint8, payload []byte) int {
	n := copy(payload, f.queues[lcid])
	f.queues[lcid] = f.queues[lcid][n:]
	return n
}

func (f *fakeRlc) WritePdu(lcid uint8, payload []byte) {
	f.rx[lcid] = append(f.rx[lcid], append([]byte(nil), payload...))
}

func (f *fakeRlc) WritePduBcch(payload []byte) {
	f.bcch = append(f.bcch, append([]byte(nil), payload...))
}

type fakePhy struct {
	prachErr    error
	prachTti    uint32
	transmitted bool
	preambles   []int
	powers      []float32

	crnti      uint16
	crntiCalls int

	ta, taRar uint32
	rarGrant  uint32
	rarTemp   uint16
	srSent    int
	phr       int
}

func (f *fakePhy) ConfigurePrachParams() error {
	return f.prachErr
}

func (f *fakePhy) PrachSend(preambleIndex int, allowedSubframe int, targetPowerDbm float32) {
	f.preambles = append(f.preambles, preambleIndex)
	f.powers = append(f.powers, targetPowerDbm)
	f.transmitted = true
}

func (f *fakePhy) PrachGetInfo() PrachInfo {
	if !f.transmitted {
		return PrachInfo{}
	}
	f.transmitted = false
	return PrachInfo{IsTransmitted: true, TtiRa: f.prachTti}
}

func (f *fakePhy) SetCrnti(rnti uint16) error {
	f.crnti = rnti
	f.crntiCalls++
	return nil
}

func (f *fakePhy) SetTimingAdvance(ta uint32) {
	f.ta = ta
}

func (f *fakePhy) SetTimingAdvanceRar(ta uint32) {
	f.taRar = ta
}

func (f *fakePhy) SetRarGrant(grant uint32, tempCrnti uint16) {
	f.rarGrant = grant
	f.rarTemp = tempCrnti
}

func (f *fakePhy) SrSend() {
	f.srSent++
}

func (f *fakePhy) GetPhr() int {
	return f.phr
}

// fakeTasks holds background and deferred work until the test runs it. While full it refuses
// background work.
type fakeTasks struct {
	background []func()
	deferred   []func()
	full       bool
	refused    int
}

func (f *fakeTasks) EnqueueBackground(fn func()) bool {
	if f.full {
		f.refused++
		return false
	}
	f.background = append(f.background, fn)
	return true
}

func (f *fakeTasks) Defer(fn func()) {
	f.deferred = append(f.deferred, fn)
}

func (f *fakeTasks) runBackground() {
	fns := f.background
	f.background = nil
	for _, fn := range fns {
		fn()
	}
}

func (f *fakeTasks) runDeferred() {
	fns := f.deferred
	f.deferred = nil
	for _, fn := range fns {
		fn()
	}
}

func (f *fakeTasks) flush() {
	f.runBackground()
	f.runDeferred()
}

type countingSr struct {
	starts int
}

func (c *countingSr) Start() {
	c.starts++
}

type fakeRa struct {
	msg3Tx  int
	maxRetx int
}

func (f *fakeRa) Msg3Transmitted() {
	f.msg3Tx++
}

func (f *fakeRa) HarqMaxRetx() {
	f.maxRetx++
}

func newTestPool(t *testing.T, capacity int) *pool.BufferPool {
	t.Helper()
	p, err := pool.NewBufferPool(capacity, testLogger)
	if err != nil {
		t.Fatalf("Failed to create buffer pool: %v", err)
	}
	return p
}

// testChannels are three DRBs with large buckets so that Bj equals PBR times the number of steps.
func testChannels() []model.LogicalChannelIE {
	return []model.LogicalChannelIE{
		{Lcid: 1, Lcg: 0, Priority: 1, Pbr: 10, Bsd: 1000},
		{Lcid: 2, Lcg: 1, Priority: 2, Pbr: 4, Bsd: 1000},
		{Lcid: 3, Lcg: 2, Priority: 3, Pbr: 2, Bsd: 1000},
	}
}

type muxFixture struct {
	rlc *fakeRlc
	phy *fakePhy
	sr  *countingSr
	lch *LchTable
	bsr *Bsr
	phr *Phr
	mux *Mux
}

func newMuxFixture(channels []model.LogicalChannelIE) *muxFixture {
	f := &muxFixture{
		rlc: newFakeRlc(),
		phy: &fakePhy{},
		sr:  &countingSr{},
		lch: NewLchTable(channels),
	}
	f.bsr = NewBsr(model.BsrIE{PeriodicTimer: -1, RetxTimer: -1}, f.lch, f.sr, testLogger, nil)
	f.phr = NewPhr(model.PhrIE{PeriodicTimer: -1, ProhibitTimer: -1}, f.phy, testLogger)
	f.mux = NewMux(f.lch, f.rlc, f.bsr, f.phr, testLogger, nil)
	return f
}
