package ue

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Alonza0314/free-ran-l2/constant"
	"github.com/Alonza0314/free-ran-l2/mac"
	loggergoModel "github.com/Alonza0314/logger-go/v2/model"
)

// Framing info of the segment header, 36.322 6.2.2.6.
const (
	RLC_FI_NOT_START byte = 0x80
	RLC_FI_NOT_END   byte = 0x40
	RLC_SN_MASK      byte = 0x3f

	RLC_HEADER_LEN = 1
)

var (
	ErrUnknownBearer = errors.New("unknown radio bearer")
	ErrRlcQueueFull  = errors.New("rlc queue full")
)

type RlcInfo struct {
	Lcid        uint8 `json:"lcid"`
	Transparent bool  `json:"transparent"`
	QueuedSdus  int   `json:"queuedSdus"`
	QueuedBytes int   `json:"queuedBytes"`
	TxSdus      int   `json:"txSdus"`
	TxPdus      int   `json:"txPdus"`
	RxSdus      int   `json:"rxSdus"`
	RxPdus      int   `json:"rxPdus"`
	Dropped     int   `json:"dropped"`
}

type rlcEntity struct {
	lcid        uint8
	transparent bool

	queue  [][]byte
	offset int
	bytes  int

	txSn       byte
	rxSn       byte
	reassembly []byte
	assembling bool

	sink func(sdu []byte)

	info RlcInfo
}

func (e *rlcEntity) bufferState() int {
	if e.transparent {
		return e.bytes
	}
	return e.bytes + len(e.queue)*RLC_HEADER_LEN
}

// Rlc is a per logical channel segmentation layer. The TUN reader and the API write SDUs from their
// own goroutines, the MAC reads and writes PDUs from the stack goroutine.
type Rlc struct {
	mtx      sync.Mutex
	entities map[uint8]*rlcEntity

	bcchPdus int

	log loggergoModel.LoggerInterface
}

func NewRlc(log loggergoModel.LoggerInterface) *Rlc {
	return &Rlc{
		entities: make(map[uint8]*rlcEntity),
		log:      log,
	}
}

// AddBearer sets up lcid. Transparent bearers carry whole SDUs without a header, as the CCCH does.
func (r *Rlc) AddBearer(lcid uint8, transparent bool, sink func(sdu []byte)) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.entities[lcid] = &rlcEntity{
		lcid:        lcid,
		transparent: transparent,
		sink:        sink,
		info:        RlcInfo{Lcid: lcid, Transparent: transparent},
	}
}

func (r *Rlc) WriteSdu(lcid uint8, sdu []byte) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	e, ok := r.entities[lcid]
	if !ok {
		return fmt.Errorf("%w: lcid %d", ErrUnknownBearer, lcid)
	}
	if len(e.queue) >= constant.UE_RLC_MAX_QUEUED_SDUS {
		e.info.Dropped++
		return ErrRlcQueueFull
	}
	e.queue = append(e.queue, append([]byte(nil), sdu...))
	e.bytes += len(sdu)
	return nil
}

func (r *Rlc) GetBufferState(lcid uint8) int {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	e, ok := r.entities[lcid]
	if !ok {
		return 0
	}
	return e.bufferState()
}

// ReadPdu writes at most one SDU or SDU segment into payload and returns the PDU length.
func (r *Rlc) ReadPdu(lcid uint8, payload []byte) int {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	e, ok := r.entities[lcid]
	if !ok || len(e.queue) == 0 {
		return 0
	}
	sdu := e.queue[0]

	if e.transparent {
		if len(sdu) > len(payload) {
			return 0
		}
		n := copy(payload, sdu)
		e.pop()
		e.info.TxPdus++
		return n
	}

	if len(payload) <= RLC_HEADER_LEN {
		return 0
	}
	header := e.txSn & RLC_SN_MASK
	if e.offset > 0 {
		header |= RLC_FI_NOT_START
	}
	n := copy(payload[RLC_HEADER_LEN:], sdu[e.offset:])
	e.offset += n
	e.bytes -= n
	if e.offset < len(sdu) {
		header |= RLC_FI_NOT_END
	} else {
		e.queue = e.queue[1:]
		e.offset = 0
		e.info.TxSdus++
	}
	payload[0] = header
	e.txSn++
	e.info.TxPdus++
	return RLC_HEADER_LEN + n
}

func (e *rlcEntity) pop() {
	e.bytes -= len(e.queue[0])
	e.queue = e.queue[1:]
	e.info.TxSdus++
}

func (r *Rlc) WritePdu(lcid uint8, payload []byte) {
	sdu, sink := r.receive(lcid, payload)
	if sdu != nil && sink != nil {
		sink(sdu)
	}
}

func (r *Rlc) receive(lcid uint8, payload []byte) ([]byte, func([]byte)) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	e, ok := r.entities[lcid]
	if !ok {
		r.log.Warnf("PDU for unknown lcid %d", lcid)
		return nil, nil
	}
	e.info.RxPdus++

	if e.transparent {
		e.info.RxSdus++
		return append([]byte(nil), payload...), e.sink
	}

	if len(payload) < RLC_HEADER_LEN {
		e.info.Dropped++
		return nil, nil
	}
	header := payload[0]
	sn := header & RLC_SN_MASK
	if e.assembling && sn != (e.rxSn+1)&RLC_SN_MASK {
		r.log.Debugf("Lcid %d: sequence gap %d -> %d, dropping partial SDU", lcid, e.rxSn, sn)
		e.reassembly = e.reassembly[:0]
		e.assembling = false
		e.info.Dropped++
	}
	e.rxSn = sn

	if header&RLC_FI_NOT_START == 0 {
		if e.assembling {
			e.info.Dropped++
		}
		e.reassembly = e.reassembly[:0]
		e.assembling = true
	} else if !e.assembling {
		e.info.Dropped++
		return nil, nil
	}
	e.reassembly = append(e.reassembly, payload[RLC_HEADER_LEN:]...)

	if header&RLC_FI_NOT_END != 0 {
		return nil, nil
	}
	e.assembling = false
	e.info.RxSdus++
	return append([]byte(nil), e.reassembly...), e.sink
}

func (r *Rlc) WritePduBcch(payload []byte) {
	r.mtx.Lock()
	r.bcchPdus++
	r.mtx.Unlock()
	r.log.Debugf("BCCH PDU of %d bytes", len(payload))
}

func (r *Rlc) Info() []RlcInfo {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	infos := make([]RlcInfo, 0, len(r.entities))
	for lcid := uint8(0); lcid <= mac.MAX_LCID; lcid++ {
		e, ok := r.entities[lcid]
		if !ok {
			continue
		}
		info := e.info
		info.QueuedSdus = len(e.queue)
		info.QueuedBytes = e.bytes
		infos = append(infos, info)
	}
	return infos
}
