package mac

import "sync"

// RntiHolder is shared between PHY callbacks and the stack goroutine.
type RntiHolder struct {
	mtx sync.Mutex

	crnti     uint16
	tempCrnti uint16
	raRnti    uint16
	spsRnti   uint16
}

type Rntis struct {
	Crnti     uint16 `json:"crnti"`
	TempCrnti uint16 `json:"tempCrnti"`
	RaRnti    uint16 `json:"raRnti"`
	SpsRnti   uint16 `json:"spsRnti"`
}

func NewRntiHolder() *RntiHolder {
	return &RntiHolder{}
}

func (r *RntiHolder) Crnti() uint16 {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.crnti
}

func (r *RntiHolder) SetCrnti(rnti uint16) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.crnti = rnti
}

func (r *RntiHolder) TempCrnti() uint16 {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.tempCrnti
}

func (r *RntiHolder) SetTempCrnti(rnti uint16) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.tempCrnti = rnti
}

func (r *RntiHolder) RaRnti() uint16 {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.raRnti
}

func (r *RntiHolder) SetRaRnti(rnti uint16) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.raRnti = rnti
}

func (r *RntiHolder) SpsRnti() uint16 {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.spsRnti
}

func (r *RntiHolder) SetSpsRnti(rnti uint16) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.spsRnti = rnti
}

func (r *RntiHolder) Snapshot() Rntis {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return Rntis{
		Crnti:     r.crnti,
		TempCrnti: r.tempCrnti,
		RaRnti:    r.raRnti,
		SpsRnti:   r.spsRnti,
	}
}

func (r *RntiHolder) Clear() {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.crnti, r.tempCrnti, r.raRnti, r.spsRnti = 0, 0, 0, 0
}
