package mac

import (
	"sort"

	"github.com/Alonza0314/free-ran-l2/model"
)

type LogicalChannel struct {
	Lcid     uint8
	Lcg      uint8
	Priority int
	// Pbr is in bytes per TTI, negative means infinity.
	Pbr int
	Bsd int

	Bj        int
	BufferLen int
	SchedLen  int
}

func (l *LogicalChannel) infinitePbr() bool {
	return l.Pbr < 0
}

func (l *LogicalChannel) bucketSize() int {
	return l.Pbr * l.Bsd
}

// LchTable keeps logical channels sorted by priority, highest priority (lowest value) first.
type LchTable struct {
	channels []*LogicalChannel
}

func NewLchTable(configs []model.LogicalChannelIE) *LchTable {
	t := &LchTable{channels: make([]*LogicalChannel, 0, len(configs))}
	for _, cfg := range configs {
		t.Setup(cfg)
	}
	return t
}

// Setup adds or reconfigures a channel. Bj starts at zero.
func (t *LchTable) Setup(cfg model.LogicalChannelIE) {
	if l := t.Get(cfg.Lcid); l != nil {
		l.Lcg, l.Priority, l.Pbr, l.Bsd = cfg.Lcg, cfg.Priority, cfg.Pbr, cfg.Bsd
	} else {
		t.channels = append(t.channels, &LogicalChannel{
			Lcid:     cfg.Lcid,
			Lcg:      cfg.Lcg,
			Priority: cfg.Priority,
			Pbr:      cfg.Pbr,
			Bsd:      cfg.Bsd,
		})
	}
	sort.SliceStable(t.channels, func(i, j int) bool {
		return t.channels[i].Priority < t.channels[j].Priority
	})
}

func (t *LchTable) Remove(lcid uint8) {
	for i, l := range t.channels {
		if l.Lcid == lcid {
			t.channels = append(t.channels[:i], t.channels[i+1:]...)
			return
		}
	}
}

func (t *LchTable) Get(lcid uint8) *LogicalChannel {
	for _, l := range t.channels {
		if l.Lcid == lcid {
			return l
		}
	}
	return nil
}

func (t *LchTable) Channels() []*LogicalChannel {
	return t.channels
}

// UpdateBj adds one TTI worth of tokens to every finite-PBR channel.
func (t *LchTable) UpdateBj() {
	for _, l := range t.channels {
		if l.infinitePbr() {
			continue
		}
		l.Bj += l.Pbr
		if limit := l.bucketSize(); l.Bj > limit {
			l.Bj = limit
		}
	}
}

func (t *LchTable) ResetBj() {
	for _, l := range t.channels {
		l.Bj = 0
	}
}

func (t *LchTable) RefreshBuffers(rlc RlcInterface) {
	for _, l := range t.channels {
		l.BufferLen = rlc.GetBufferState(l.Lcid)
		l.SchedLen = 0
	}
}

// LcgBuffers sums, per LCG, what is left after this TTI's scheduled SDUs.
func (t *LchTable) LcgBuffers() [NOF_LCG]int {
	var lcg [NOF_LCG]int
	for _, l := range t.channels {
		if l.Lcid == LCID_CCCH || int(l.Lcg) >= NOF_LCG {
			continue
		}
		if left := l.BufferLen - l.SchedLen; left > 0 {
			lcg[l.Lcg] += left
		}
	}
	return lcg
}

func (t *LchTable) TotalBuffer() int {
	total := 0
	for _, l := range t.channels {
		total += l.BufferLen
	}
	return total
}
