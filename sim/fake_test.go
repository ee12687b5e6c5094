package sim

import (
	"math/rand/v2"
	"testing"

	"github.com/Alonza0314/free-ran-l2/logger"
	"github.com/Alonza0314/free-ran-l2/mac"
	"github.com/Alonza0314/free-ran-l2/model"
	"github.com/Alonza0314/free-ran-l2/pool"
	loggergo "github.com/Alonza0314/logger-go/v2"
)

var testLogger = loggergo.NewLogger("", true).WithTags("TEST", "SIM")

type testRlc struct {
	queues map[uint8][]byte
	rx     map[uint8][][]byte
}

func newTestRlc() *testRlc {
	return &testRlc{
		queues: make(map[uint8][]byte),
		rx:     make(map[uint8][][]byte),
	}
}

func (r *testRlc) fill(lcid uint8, n int) {
	for i := 0; i < n; i++ {
		r.queues[lcid] = append(r.queues[lcid], byte(i))
	}
}

func (r *testRlc) GetBufferState(lcid uint8) int {
	return len(r.queues[lcid])
}

func (r *testRlc) ReadPdu(lcid uint8, payload []byte) int {
	n := copy(payload, r.queues[lcid])
	r.queues[lcid] = r.queues[lcid][n:]
	return n
}

func (r *testRlc) WritePdu(lcid uint8, payload []byte) {
	r.rx[lcid] = append(r.rx[lcid], append([]byte(nil), payload...))
}

func (r *testRlc) WritePduBcch(payload []byte) {}

type testRrc struct {
	raProblems   int
	hoCompleted  []bool
	pucchRelease int
}

func (r *testRrc) RaProblem() {
	r.raProblems++
}

func (r *testRrc) HoRaCompleted(success bool) {
	r.hoCompleted = append(r.hoCompleted, success)
}

func (r *testRrc) ReleasePucchSrs() {
	r.pucchRelease++
}

// inlineTasks runs background work at once and holds deferred results until the next TTI.
type inlineTasks struct {
	deferred []func()
}

func (t *inlineTasks) EnqueueBackground(fn func()) bool {
	fn()
	return true
}

func (t *inlineTasks) Defer(fn func()) {
	t.deferred = append(t.deferred, fn)
}

func (t *inlineTasks) run() {
	fns := t.deferred
	t.deferred = nil
	for _, fn := range fns {
		fn()
	}
}

func testMacConfig() *model.MacIE {
	return &model.MacIE{
		LogicalChannels: []model.LogicalChannelIE{
			{Lcid: 0, Lcg: 0, Priority: 0, Pbr: -1, Bsd: 1},
			{Lcid: 1, Lcg: 0, Priority: 1, Pbr: -1, Bsd: 1},
			{Lcid: 3, Lcg: 1, Priority: 3, Pbr: 8, Bsd: 50},
		},
		Rach: model.RachIE{
			NofPreambles:               64,
			SizeOfRaPreamblesGroupA:    52,
			MessageSizeGroupA:          56,
			PreambleTransMax:           8,
			ResponseWindowSize:         5,
			ContentionResolutionTimer:  32,
			PowerRampingStep:           2,
			InitialReceivedTargetPower: -104,
			MaxHarqMsg3Tx:              8,
		},
		Bsr:           model.BsrIE{PeriodicTimer: 20, RetxTimer: 320},
		Harq:          model.HarqIE{MaxHarqTx: 8},
		Sr:            model.SrIE{DsrTransMax: 16},
		Phr:           model.PhrIE{PeriodicTimer: -1, ProhibitTimer: -1},
		TimeAlignment: model.TimeAlignmentIE{Timer: 500},
		Pool:          model.PoolIE{Capacity: 64},
	}
}

func testCellConfig() model.CellIE {
	return model.CellIE{
		Pci:      1,
		Seed:     7,
		Msg3Tbs:  12,
		MaxUlTbs: 120,
	}
}

func testUeLogger() *logger.UeLogger {
	return &logger.UeLogger{
		CfgLog:  testLogger,
		UeLog:   testLogger,
		MacLog:  testLogger,
		RaLog:   testLogger,
		HarqLog: testLogger,
		MuxLog:  testLogger,
		BsrLog:  testLogger,
		PhyLog:  testLogger,
		TunLog:  testLogger,
		PoolLog: testLogger,
		ApiLog:  testLogger,
	}
}

type testStack struct {
	cell  *Cell
	mac   *mac.Mac
	rlc   *testRlc
	rrc   *testRrc
	tasks *inlineTasks
	tti   uint32
}

func newTestStack(t *testing.T, cfg model.CellIE) *testStack {
	t.Helper()
	bufferPool, err := pool.NewBufferPool(64, testLogger)
	if err != nil {
		t.Fatalf("Failed to create buffer pool: %v", err)
	}

	s := &testStack{
		cell:  NewCell(cfg, rand.New(rand.NewPCG(cfg.Seed, 1)), testLogger),
		rlc:   newTestRlc(),
		rrc:   &testRrc{},
		tasks: &inlineTasks{},
	}
	s.mac = mac.NewMac(testMacConfig(), s.cell, s.rlc, s.rrc, s.tasks, bufferPool, rand.New(rand.NewPCG(3, 5)), testUeLogger(), nil)
	s.cell.Attach(s.mac)
	return s
}

func (s *testStack) step() {
	s.cell.Phich(s.tti)
	s.tasks.run()
	s.mac.RunTti(s.tti)
	s.cell.Schedule(s.tti)
	s.tti++
}

// runUntil steps at most n TTIs and reports whether done became true.
func (s *testStack) runUntil(n int, done func() bool) bool {
	for i := 0; i < n; i++ {
		s.step()
		if done() {
			return true
		}
	}
	return false
}

func (s *testStack) raIdle() bool {
	info := s.mac.Info()
	return info.Ra.State == "IDLE" && info.Rntis.Crnti != 0
}

func (s *testStack) attach(t *testing.T) {
	t.Helper()
	s.rlc.fill(0, 6)
	s.mac.StartRa()
	if !s.runUntil(200, s.raIdle) {
		t.Fatalf("Random access did not complete: %+v", s.mac.Info().Ra)
	}
}

func receivedBytes(sdus [][]byte) int {
	n := 0
	for _, sdu := range sdus {
		n += len(sdu)
	}
	return n
}
