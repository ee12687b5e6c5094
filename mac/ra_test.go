package mac

import (
	"math/rand/v2"
	"testing"

	"github.com/Alonza0314/free-ran-l2/model"
	"github.com/Alonza0314/free-ran-l2/pool"
	"github.com/go-playground/assert/v2"
	"go.uber.org/mock/gomock"
)

func testRachConfig() model.RachIE {
	return model.RachIE{
		NofPreambles:               64,
		SizeOfRaPreamblesGroupA:    52,
		MessageSizeGroupA:          56,
		PreambleTransMax:           4,
		ResponseWindowSize:         5,
		ContentionResolutionTimer:  8,
		PowerRampingStep:           2,
		InitialReceivedTargetPower: -104,
		MaxHarqMsg3Tx:              4,
	}
}

type raFixture struct {
	rrc   *MockRrcInterface
	phy   *fakePhy
	tasks *fakeTasks
	mux   *muxFixture
	rntis *RntiHolder
	ta    *TimeAlignment
	ra    *RaProcedure
	tti   uint32
}

func newRaFixture(t *testing.T, cfg model.RachIE) *raFixture {
	ctrl := gomock.NewController(t)
	f := &raFixture{
		rrc:   NewMockRrcInterface(ctrl),
		tasks: &fakeTasks{},
		mux:   newMuxFixture(append(testChannels(), model.LogicalChannelIE{Lcid: 0, Priority: 0, Pbr: -1, Bsd: 1})),
		rntis: NewRntiHolder(),
	}
	f.phy = f.mux.phy
	f.ta = NewTimeAlignment(500, f.phy, nil, testLogger)
	f.ra = NewRaProcedure(cfg, f.phy, f.rrc, f.mux.mux, f.rntis, f.ta, f.tasks, rand.New(rand.NewPCG(7, 11)), testLogger, nil)
	return f
}

// step runs one TTI, reporting the current TTI as the PRACH occasion.
func (f *raFixture) step() {
	f.phy.prachTti = f.tti
	f.ra.Step(f.tti)
	f.tti++
}

// sendPreamble starts a contention based procedure and runs it until the response window opens.
func (f *raFixture) sendPreamble(t *testing.T) {
	t.Helper()
	f.ra.Start(false)
	assert.Equal(t, RA_STATE_WAITING_PHY_CONFIG, f.ra.State())
	f.tasks.flush()
	assert.Equal(t, RA_STATE_PDCCH_SETUP, f.ra.State())
	f.step()
	assert.Equal(t, RA_STATE_RESPONSE_RECEPTION, f.ra.State())
}

func (f *raFixture) lastPreamble() int {
	return f.phy.preambles[len(f.phy.preambles)-1]
}

func (f *raFixture) rarFor(rapid int, tempCrnti uint16) []byte {
	return EncodeRarPdu(RarPdu{
		BackoffIndicator: -1,
		Rars:             []Rar{{Rapid: rapid, Ta: 12, Grant: 0x1234, TempCrnti: tempCrnti}},
	})
}

func TestRaBoundedRetries(t *testing.T) {
	cfg := testRachConfig()
	f := newRaFixture(t, cfg)
	f.rrc.EXPECT().RaProblem().Times(1)

	f.sendPreamble(t)
	for i := 0; i < 200; i++ {
		f.step()
	}

	assert.Equal(t, RA_STATE_IDLE, f.ra.State())
	assert.Equal(t, cfg.PreambleTransMax, len(f.phy.preambles))
	for i, p := range f.phy.powers {
		assert.Equal(t, float32(cfg.InitialReceivedTargetPower+i*cfg.PowerRampingStep), p)
	}
	for _, p := range f.phy.preambles {
		assert.Equal(t, true, p >= 0 && p < cfg.SizeOfRaPreamblesGroupA)
	}
}

func TestRaRarWindow(t *testing.T) {
	f := newRaFixture(t, testRachConfig())
	f.sendPreamble(t)
	assert.Equal(t, uint16(1), f.rntis.RaRnti())

	// the window ends RA_WINDOW_OFFSET+ResponseWindowSize TTIs after the PRACH TTI
	for i := 0; i < RA_WINDOW_OFFSET+5-1; i++ {
		f.step()
		assert.Equal(t, RA_STATE_RESPONSE_RECEPTION, f.ra.State())
	}
	f.step()
	assert.Equal(t, RA_STATE_PDCCH_SETUP, f.ra.State())
	assert.Equal(t, 2, f.ra.Info().PreambleCounter)
}

func TestRaContentionResolution(t *testing.T) {
	f := newRaFixture(t, testRachConfig())
	f.mux.rlc.fill(LCID_CCCH, 6, 0x21)
	f.sendPreamble(t)

	f.ra.RarReceived(f.rarFor(f.lastPreamble(), 0x4601))
	assert.Equal(t, RA_STATE_CONTENTION_RESOLUTION, f.ra.State())
	assert.Equal(t, uint32(12), f.phy.taRar)
	assert.Equal(t, uint32(0x1234), f.phy.rarGrant)
	assert.Equal(t, uint16(0x4601), f.rntis.TempCrnti())
	assert.Equal(t, uint16(0), f.rntis.RaRnti())
	assert.Equal(t, true, f.mux.mux.Msg3IsPending())

	_, err := f.mux.mux.Msg3Get(pool.NewByteBuffer(), 10)
	assert.Equal(t, nil, err)
	f.ra.Msg3Transmitted()

	assert.Equal(t, false, f.ra.ContentionResolutionIdReceived(0x1))
	assert.Equal(t, RA_STATE_PDCCH_SETUP, f.ra.State())
	assert.Equal(t, uint16(0), f.rntis.TempCrnti())

	f.step()
	f.ra.RarReceived(f.rarFor(f.lastPreamble(), 0x4602))
	_, err = f.mux.mux.Msg3Get(pool.NewByteBuffer(), 10)
	assert.Equal(t, nil, err)
	f.ra.Msg3Transmitted()

	assert.Equal(t, true, f.ra.ContentionResolutionIdReceived(0x212223242526))
	assert.Equal(t, RA_STATE_START_WAIT_COMPLETION, f.ra.State())
	assert.Equal(t, uint16(0x4602), f.rntis.Crnti())
	assert.Equal(t, uint16(0), f.rntis.TempCrnti())
	assert.Equal(t, false, f.mux.mux.Msg3IsCached())

	f.step()
	assert.Equal(t, RA_STATE_WAITING_COMPLETION, f.ra.State())
	f.tasks.flush()
	assert.Equal(t, RA_STATE_IDLE, f.ra.State())
	assert.Equal(t, uint16(0x4602), f.phy.crnti)
}

func TestRaContentionTimerExpiry(t *testing.T) {
	f := newRaFixture(t, testRachConfig())
	f.mux.rlc.fill(LCID_CCCH, 6, 0x21)
	f.sendPreamble(t)
	f.ra.RarReceived(f.rarFor(f.lastPreamble(), 0x4601))
	f.ra.Msg3Transmitted()

	for i := 0; i < 7; i++ {
		f.step()
		assert.Equal(t, RA_STATE_CONTENTION_RESOLUTION, f.ra.State())
		// a Msg3 retransmission restarts the timer
		if i == 3 {
			f.ra.Msg3Transmitted()
		}
	}
	for i := 0; i < 4; i++ {
		f.step()
		assert.Equal(t, RA_STATE_CONTENTION_RESOLUTION, f.ra.State())
	}
	f.step()
	assert.Equal(t, RA_STATE_PDCCH_SETUP, f.ra.State())
	assert.Equal(t, uint16(0), f.rntis.TempCrnti())
}

func TestRaRapidMismatch(t *testing.T) {
	f := newRaFixture(t, testRachConfig())
	f.sendPreamble(t)

	f.ra.RarReceived(f.rarFor((f.lastPreamble()+1)%52, 0x4601))
	assert.Equal(t, 2, f.ra.Info().PreambleCounter)
	assert.Equal(t, RA_STATE_PDCCH_SETUP, f.ra.State())
}

func TestRaBackoff(t *testing.T) {
	f := newRaFixture(t, testRachConfig())
	f.sendPreamble(t)

	pdu := EncodeRarPdu(RarPdu{BackoffIndicator: 8, Rars: []Rar{{Rapid: (f.lastPreamble() + 1) % 52}}})
	f.ra.RarReceived(pdu)
	assert.Equal(t, backoffTableMs[8], f.ra.Info().BackoffParamMs)

	for i := 0; i <= backoffTableMs[8] && f.ra.State() == RA_STATE_BACKOFF_WAIT; i++ {
		f.step()
	}
	assert.Equal(t, 2, len(f.phy.preambles))
}

func TestRaTimingAdvanceIgnoredWhileAligned(t *testing.T) {
	f := newRaFixture(t, testRachConfig())
	f.ta.Start()
	f.sendPreamble(t)
	f.ra.RarReceived(f.rarFor(f.lastPreamble(), 0x4601))
	assert.Equal(t, uint32(0), f.phy.taRar)
}

func TestRaNoncontentionHandover(t *testing.T) {
	f := newRaFixture(t, testRachConfig())
	f.rrc.EXPECT().HoRaCompleted(true).Times(1)
	f.rntis.SetCrnti(0x99)
	f.ta.Start()

	f.ra.StartNoncontention(60, -1, true)
	f.tasks.flush()
	assert.Equal(t, []int{60}, f.phy.preambles)
	f.step()

	f.ra.RarReceived(f.rarFor(60, 0x4601))
	assert.Equal(t, uint32(12), f.phy.taRar)
	assert.Equal(t, RA_STATE_START_WAIT_COMPLETION, f.ra.State())
	assert.Equal(t, uint16(0x99), f.rntis.Crnti())

	f.step()
	f.tasks.flush()
	assert.Equal(t, RA_STATE_IDLE, f.ra.State())
	assert.Equal(t, uint16(0x99), f.phy.crnti)
}

func TestRaHandoverFailure(t *testing.T) {
	cfg := testRachConfig()
	cfg.PreambleTransMax = 2
	f := newRaFixture(t, cfg)
	gomock.InOrder(
		f.rrc.EXPECT().HoRaCompleted(false).Times(1),
		f.rrc.EXPECT().RaProblem().Times(1),
	)

	f.ra.StartNoncontention(60, -1, true)
	f.tasks.flush()
	for i := 0; i < 50; i++ {
		f.step()
	}
	assert.Equal(t, RA_STATE_IDLE, f.ra.State())
	assert.Equal(t, 2, len(f.phy.preambles))
}

func TestRaPdcchToCrnti(t *testing.T) {
	f := newRaFixture(t, testRachConfig())
	f.rntis.SetCrnti(0x99)
	f.mux.rlc.fill(1, 20, 0)
	f.mux.mux.Step()
	f.sendPreamble(t)

	f.ra.RarReceived(f.rarFor(f.lastPreamble(), 0x4601))
	assert.Equal(t, false, f.ra.PdcchToCrnti(true))

	msg3, err := f.mux.mux.Msg3Get(pool.NewByteBuffer(), 30)
	assert.Equal(t, nil, err)
	subPdus, err := ParseSchPdu(msg3, true)
	assert.Equal(t, nil, err)
	assert.Equal(t, LCID_CRNTI, subPdus[0].Lcid)

	assert.Equal(t, false, f.ra.PdcchToCrnti(false))
	assert.Equal(t, true, f.ra.PdcchToCrnti(true))
	assert.Equal(t, uint16(0x99), f.rntis.Crnti())
	assert.Equal(t, uint16(0), f.rntis.TempCrnti())
}

func TestRaStaleResultsDiscarded(t *testing.T) {
	f := newRaFixture(t, testRachConfig())

	f.ra.Start(false)
	f.ra.Reset()
	f.tasks.flush()
	assert.Equal(t, RA_STATE_IDLE, f.ra.State())
	assert.Equal(t, 0, len(f.phy.preambles))

	// a completion that lands after a reset and a new start must not end the new procedure
	f.mux.rlc.fill(LCID_CCCH, 6, 0x21)
	f.sendPreamble(t)
	f.ra.RarReceived(f.rarFor(f.lastPreamble(), 0x4601))
	_, err := f.mux.mux.Msg3Get(pool.NewByteBuffer(), 10)
	assert.Equal(t, nil, err)
	f.ra.Msg3Transmitted()
	f.ra.ContentionResolutionIdReceived(0x212223242526)
	f.step()
	assert.Equal(t, RA_STATE_WAITING_COMPLETION, f.ra.State())

	f.ra.Reset()
	f.ra.Start(false)
	f.tasks.runBackground()
	f.tasks.runDeferred()
	assert.Equal(t, RA_STATE_PDCCH_SETUP, f.ra.State())
	assert.Equal(t, 2, len(f.phy.preambles))
}

var testRaPrachConfigQueueFullCases = []struct {
	name          string
	fullSteps     int
	expectedState RaState
	expectedTries int
}{
	{
		name:          "queueDrains",
		fullSteps:     3,
		expectedState: RA_STATE_PDCCH_SETUP,
		expectedTries: 4,
	},
	{
		name:          "queueStaysFull",
		fullSteps:     RA_MAX_TASK_RETRIES + 5,
		expectedState: RA_STATE_IDLE,
		expectedTries: RA_MAX_TASK_RETRIES + 1,
	},
}

func TestRaPrachConfigQueueFull(t *testing.T) {
	for _, testCase := range testRaPrachConfigQueueFullCases {
		t.Run(testCase.name, func(t *testing.T) {
			f := newRaFixture(t, testRachConfig())
			if testCase.expectedState == RA_STATE_IDLE {
				gomock.InOrder(
					f.rrc.EXPECT().HoRaCompleted(false).Times(1),
					f.rrc.EXPECT().RaProblem().Times(1),
				)
			}
			f.rntis.SetCrnti(0x99)

			f.tasks.full = true
			f.ra.StartNoncontention(60, -1, true)
			assert.Equal(t, RA_STATE_WAITING_PHY_CONFIG, f.ra.State())
			for i := 0; i < testCase.fullSteps; i++ {
				f.step()
			}

			f.tasks.full = false
			f.step()
			f.tasks.flush()
			assert.Equal(t, testCase.expectedState, f.ra.State())
			assert.Equal(t, testCase.expectedTries, f.tasks.refused)
			if testCase.expectedState == RA_STATE_PDCCH_SETUP {
				assert.Equal(t, []int{60}, f.phy.preambles)
			} else {
				assert.Equal(t, 0, len(f.phy.preambles))
			}
		})
	}
}

var testRaCompletionQueueFullCases = []struct {
	name          string
	fullSteps     int
	expectedCalls int
}{
	{
		name:          "queueDrains",
		fullSteps:     2,
		expectedCalls: 1,
	},
	{
		name:          "queueStaysFull",
		fullSteps:     RA_MAX_TASK_RETRIES + 1,
		expectedCalls: 0,
	},
}

// The procedure has already succeeded when the C-RNTI update is refused, so only the PHY call is retried.
func TestRaCompletionQueueFull(t *testing.T) {
	for _, testCase := range testRaCompletionQueueFullCases {
		t.Run(testCase.name, func(t *testing.T) {
			f := newRaFixture(t, testRachConfig())
			f.rrc.EXPECT().HoRaCompleted(true).Times(1)
			f.rntis.SetCrnti(0x99)

			f.ra.StartNoncontention(60, -1, true)
			f.tasks.flush()
			f.step()
			f.ra.RarReceived(f.rarFor(60, 0x4601))
			assert.Equal(t, RA_STATE_START_WAIT_COMPLETION, f.ra.State())

			f.tasks.full = true
			for i := 0; i < testCase.fullSteps; i++ {
				f.step()
			}
			assert.Equal(t, testCase.fullSteps, f.tasks.refused)

			f.tasks.full = false
			f.step()
			f.tasks.flush()
			assert.Equal(t, RA_STATE_IDLE, f.ra.State())
			assert.Equal(t, testCase.expectedCalls, f.phy.crntiCalls)
		})
	}
}
