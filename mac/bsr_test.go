package mac

import (
	"testing"

	"github.com/Alonza0314/free-ran-l2/model"
	"github.com/go-playground/assert/v2"
)

var testBufferSizeIndexCases = []struct {
	name     string
	bytes    int
	expected uint8
}{
	{name: "empty", bytes: 0, expected: 0},
	{name: "oneByte", bytes: 1, expected: 1},
	{name: "tenBytes", bytes: 10, expected: 1},
	{name: "elevenBytes", bytes: 11, expected: 2},
	{name: "largestLevel", bytes: 150000, expected: 62},
	{name: "aboveTable", bytes: 150001, expected: 63},
}

func TestBufferSizeIndex(t *testing.T) {
	for _, testCase := range testBufferSizeIndexCases {
		t.Run(testCase.name, func(t *testing.T) {
			idx := BufferSizeIndex(testCase.bytes)
			assert.Equal(t, testCase.expected, idx)
			if testCase.bytes > 0 {
				assert.Equal(t, true, BufferSizeUpperBound(idx) >= testCase.bytes)
			}
		})
	}
}

func newBsrFixture(cfg model.BsrIE) (*fakeRlc, *LchTable, *countingSr, *Bsr) {
	rlc := newFakeRlc()
	lch := NewLchTable(testChannels())
	sr := &countingSr{}
	return rlc, lch, sr, NewBsr(cfg, lch, sr, testLogger, nil)
}

func TestBsrRegularTrigger(t *testing.T) {
	rlc, lch, sr, bsr := newBsrFixture(model.BsrIE{PeriodicTimer: -1, RetxTimer: -1})

	rlc.fill(2, 10, 0)
	lch.RefreshBuffers(rlc)
	bsr.Step()
	assert.Equal(t, BSR_TRIGGER_REGULAR, bsr.Trigger())
	assert.Equal(t, 1, sr.starts)

	bsr.Build(BSR_FORMAT_SHORT, bsr.Trigger())
	assert.Equal(t, BSR_TRIGGER_NONE, bsr.Trigger())

	// lower priority data while lcid 2 still has data does not trigger
	rlc.fill(3, 10, 0)
	lch.RefreshBuffers(rlc)
	bsr.Step()
	assert.Equal(t, BSR_TRIGGER_NONE, bsr.Trigger())

	// higher priority data does
	rlc.fill(1, 10, 0)
	lch.RefreshBuffers(rlc)
	bsr.Step()
	assert.Equal(t, BSR_TRIGGER_REGULAR, bsr.Trigger())
	assert.Equal(t, 2, sr.starts)
}

func TestBsrPeriodicTrigger(t *testing.T) {
	rlc, lch, sr, bsr := newBsrFixture(model.BsrIE{PeriodicTimer: 5, RetxTimer: -1})
	lch.RefreshBuffers(rlc)

	for i := 0; i < 4; i++ {
		bsr.Step()
		assert.Equal(t, BSR_TRIGGER_NONE, bsr.Trigger())
	}
	bsr.Step()
	assert.Equal(t, BSR_TRIGGER_PERIODIC, bsr.Trigger())
	assert.Equal(t, 0, sr.starts)
}

func TestBsrRetxTimer(t *testing.T) {
	rlc, lch, _, bsr := newBsrFixture(model.BsrIE{PeriodicTimer: -1, RetxTimer: 3})
	rlc.fill(1, 10, 0)
	lch.RefreshBuffers(rlc)
	bsr.Step()
	bsr.Build(BSR_FORMAT_SHORT, bsr.Trigger())

	for i := 0; i < 2; i++ {
		bsr.Step()
		assert.Equal(t, BSR_TRIGGER_NONE, bsr.Trigger())
	}
	bsr.Step()
	assert.Equal(t, BSR_TRIGGER_REGULAR, bsr.Trigger())
}

var testNeedToSendOnUlGrantCases = []struct {
	name           string
	buffers        map[uint8]int
	grant          int
	expectedSend   bool
	expectedFormat BsrFormat
}{
	{name: "grantFitsAll", buffers: map[uint8]int{1: 10}, grant: 20, expectedSend: false},
	{name: "singleLcg", buffers: map[uint8]int{1: 100}, grant: 20, expectedSend: true, expectedFormat: BSR_FORMAT_SHORT},
	{name: "twoLcgs", buffers: map[uint8]int{1: 100, 3: 50}, grant: 20, expectedSend: true, expectedFormat: BSR_FORMAT_LONG},
}

func TestNeedToSendOnUlGrant(t *testing.T) {
	for _, testCase := range testNeedToSendOnUlGrantCases {
		t.Run(testCase.name, func(t *testing.T) {
			rlc, lch, _, bsr := newBsrFixture(model.BsrIE{PeriodicTimer: -1, RetxTimer: -1})
			for lcid, n := range testCase.buffers {
				rlc.fill(lcid, n, 0)
			}
			lch.RefreshBuffers(rlc)
			bsr.Step()
			assert.Equal(t, BSR_TRIGGER_REGULAR, bsr.Trigger())

			send, format := bsr.NeedToSendOnUlGrant(testCase.grant)
			assert.Equal(t, testCase.expectedSend, send)
			if send {
				assert.Equal(t, testCase.expectedFormat, format)
				assert.Equal(t, BSR_TRIGGER_REGULAR, bsr.Trigger())
			} else {
				assert.Equal(t, BSR_TRIGGER_NONE, bsr.Trigger())
			}
		})
	}
}

var testPaddingFormatCases = []struct {
	name           string
	buffers        map[uint8]int
	space          int
	expectedOk     bool
	expectedFormat BsrFormat
}{
	{name: "noSpace", buffers: map[uint8]int{1: 10}, space: 1, expectedOk: false},
	{name: "shortSingleLcg", buffers: map[uint8]int{1: 10}, space: 4, expectedOk: true, expectedFormat: BSR_FORMAT_SHORT},
	{name: "longFits", buffers: map[uint8]int{1: 10, 2: 10}, space: 4, expectedOk: true, expectedFormat: BSR_FORMAT_LONG},
	{name: "truncated", buffers: map[uint8]int{1: 10, 2: 10}, space: 3, expectedOk: true, expectedFormat: BSR_FORMAT_TRUNCATED},
	{name: "noData", buffers: map[uint8]int{}, space: 2, expectedOk: true, expectedFormat: BSR_FORMAT_SHORT},
}

func TestPaddingFormat(t *testing.T) {
	for _, testCase := range testPaddingFormatCases {
		t.Run(testCase.name, func(t *testing.T) {
			rlc, lch, _, bsr := newBsrFixture(model.BsrIE{PeriodicTimer: -1, RetxTimer: -1})
			for lcid, n := range testCase.buffers {
				rlc.fill(lcid, n, 0)
			}
			lch.RefreshBuffers(rlc)

			format, ok := bsr.PaddingFormat(testCase.space)
			assert.Equal(t, testCase.expectedOk, ok)
			if ok {
				assert.Equal(t, testCase.expectedFormat, format)
			}
		})
	}
}

func TestBsrBuildParse(t *testing.T) {
	rlc, lch, _, bsr := newBsrFixture(model.BsrIE{PeriodicTimer: -1, RetxTimer: -1})
	rlc.fill(1, 300, 0)
	rlc.fill(2, 7, 0)
	rlc.fill(3, 4000, 0)
	lch.RefreshBuffers(rlc)

	ce := bsr.Build(BSR_FORMAT_LONG, BSR_TRIGGER_PERIODIC)
	assert.Equal(t, LCID_LONG_BSR, ce.Lcid)
	assert.Equal(t, 3, len(ce.Payload))

	reported := ParseBsr(ce.Lcid, ce.Payload)
	assert.Equal(t, BufferSizeUpperBound(BufferSizeIndex(300)), reported[0])
	assert.Equal(t, 10, reported[1])
	assert.Equal(t, BufferSizeUpperBound(BufferSizeIndex(4000)), reported[2])
	assert.Equal(t, 0, reported[3])

	short := bsr.Build(BSR_FORMAT_SHORT, BSR_TRIGGER_REGULAR)
	reported = ParseBsr(short.Lcid, short.Payload)
	assert.Equal(t, BufferSizeUpperBound(BufferSizeIndex(300)), reported[0])
	assert.Equal(t, 0, reported[2])
}
