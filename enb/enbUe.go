package enb

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/Alonza0314/free-ran-l2/constant"
	"github.com/Alonza0314/free-ran-l2/model"
	"github.com/Alonza0314/free-ran-l2/rrc"
)

// IdGenerator hands out the lowest free id in [start, end].
type IdGenerator struct {
	used  sync.Map
	mtx   sync.Mutex
	start int64
	end   int64
}

func NewIdGenerator(start, end int64) *IdGenerator {
	return &IdGenerator{
		start: start,
		end:   end,
	}
}

func (g *IdGenerator) Allocate() (int64, error) {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	for i := g.start; i <= g.end; i++ {
		if _, exists := g.used.Load(i); !exists {
			g.used.Store(i, true)
			return i, nil
		}
	}

	return -1, fmt.Errorf("no free id in %d..%d", g.start, g.end)
}

func (g *IdGenerator) Release(id int64) {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	g.used.Delete(id)
}

// RntiAllocator allocates C-RNTIs for new and incoming UEs.
type RntiAllocator struct {
	ids *IdGenerator
}

func NewRntiAllocator() *RntiAllocator {
	return &RntiAllocator{
		ids: NewIdGenerator(constant.ENB_UE_RNTI_START, constant.ENB_UE_RNTI_END),
	}
}

func (r *RntiAllocator) Allocate() (uint16, error) {
	id, err := r.ids.Allocate()
	if err != nil {
		return 0, err
	}
	return uint16(id), nil
}

func (r *RntiAllocator) Release(rnti uint16) {
	r.ids.Release(int64(rnti))
}

// EnbUe is owned by the dispatcher goroutine.
type EnbUe struct {
	ctx      *rrc.UeContext
	mobility *rrc.Mobility

	// Last RRC PDU sent to the UE, integrity protected.
	lastRrcPdu []byte

	// downlink N3 tunnels admitted at this eNB
	dlTeids []int64
}

func (u *EnbUe) info() model.EnbUeInfo {
	info := model.EnbUeInfo{
		Rnti:         u.ctx.Rnti,
		RanUeNgapId:  u.ctx.RanUeNgapId,
		AmfUeNgapId:  u.ctx.AmfUeNgapId,
		State:        u.mobility.State().String(),
		PendingRnti:  u.ctx.PendingRnti,
		FailureCause: u.ctx.FailureCause,
		Bearers:      u.ctx.Bearers,
		LastRrcPdu:   hex.EncodeToString(u.lastRrcPdu),
	}
	if u.ctx.Meas != nil {
		info.ServingCell = u.ctx.Meas.Serving
	}
	if !u.ctx.HoId.IsNil() {
		info.HoId = u.ctx.HoId.String()
	}
	if u.ctx.Security != nil {
		info.PdcpCount = u.ctx.Security.Count()
	}
	return info
}
