package ue

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/Alonza0314/free-ran-l2/constant"
	"github.com/Alonza0314/free-ran-l2/logger"
	"github.com/Alonza0314/free-ran-l2/mac"
	"github.com/Alonza0314/free-ran-l2/metrics"
	"github.com/Alonza0314/free-ran-l2/model"
	"github.com/Alonza0314/free-ran-l2/pool"
	"github.com/Alonza0314/free-ran-l2/rrc"
	"github.com/Alonza0314/free-ran-l2/security"
	"github.com/Alonza0314/free-ran-l2/sim"
	"github.com/Alonza0314/free-ran-l2/task"
	"github.com/Alonza0314/free-ran-l2/util"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/songgao/water"
)

const (
	jobDepth          = 64
	taskWorkers       = 2
	taskQueueDepth    = 64
	rngStreamMac      = 0x6d6163
	rngStreamCell     = 0x63656c
	rngStreamIdentity = 0x696473
)

var ErrStopped = errors.New("ue stopped")

type UeInfo struct {
	Imsi    string       `json:"imsi"`
	Tti     uint32       `json:"tti"`
	Earfcn  uint32       `json:"earfcn"`
	Rrc     RrcInfo      `json:"rrc"`
	Mac     mac.MacInfo  `json:"mac"`
	Cell    sim.CellInfo `json:"cell"`
	Rlc     []RlcInfo    `json:"rlc"`
	Tun     string       `json:"tun,omitempty"`
	Secured bool         `json:"secured"`
}

type UeInfoResponse struct {
	Message string `json:"message"`
	UeInfo  UeInfo `json:"ueInfo"`
}

// Ue runs the MAC, the RLC stub, the RRC stub and the loopback cell on one stack goroutine, one TTI
// per tick.
type Ue struct {
	imsi      string
	ttiPeriod time.Duration
	tti       uint32
	earfcn    uint32

	pool     *pool.BufferPool
	tasks    *task.Queue
	registry *prometheus.Registry
	metrics  *metrics.MacMetrics
	rng      *rand.Rand

	rlc  *Rlc
	rrc  *Rrc
	cell *sim.Cell
	mac  *mac.Mac

	security *security.Context

	traffic model.TrafficIE
	tunCfg  model.TunIE
	tun     *water.Interface

	jobs    chan func()
	stopped chan struct{}
	wg      sync.WaitGroup

	apiIp     string
	apiPort   int
	router    *gin.Engine
	apiServer *http.Server

	*logger.UeLogger
}

func NewUe(config *model.UeConfig, ueLogger *logger.UeLogger) (*Ue, error) {
	if err := config.Ue.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ue config: %v", err)
	}

	bufferPool, err := pool.NewBufferPool(config.Ue.Mac.Pool.Capacity, ueLogger.PoolLog)
	if err != nil {
		return nil, fmt.Errorf("error creating buffer pool: %v", err)
	}

	var securityContext *security.Context
	if config.Ue.Security.Enable {
		if securityContext, err = security.NewContext(config.Ue.Security.KeNb, config.Ue.Security.IntegrityAlgorithm); err != nil {
			return nil, fmt.Errorf("invalid security config: %v", err)
		}
	}

	seed := config.Ue.Cell.Seed
	registry := prometheus.NewRegistry()
	u := &Ue{
		imsi:      config.Ue.Imsi,
		ttiPeriod: time.Duration(config.Ue.Tti) * time.Microsecond,
		earfcn:    config.Ue.Cell.Earfcn,

		pool:     bufferPool,
		tasks:    task.NewQueue(taskWorkers, taskQueueDepth, ueLogger.UeLog),
		registry: registry,
		metrics:  metrics.NewMacMetrics(registry),
		rng:      rand.New(rand.NewPCG(seed, rngStreamIdentity)),

		rlc:  NewRlc(ueLogger.MacLog),
		cell: sim.NewCell(config.Ue.Cell, rand.New(rand.NewPCG(seed, rngStreamCell)), ueLogger.PhyLog),

		security: securityContext,

		traffic: config.Ue.Traffic,
		tunCfg:  config.Ue.Tun,

		jobs:    make(chan func(), jobDepth),
		stopped: make(chan struct{}),

		apiIp:   config.Ue.Api.Ip,
		apiPort: config.Ue.Api.Port,

		UeLogger: ueLogger,
	}
	u.rrc = NewRrc(u.rlc, ueLogger.UeLog)
	u.mac = mac.NewMac(&config.Ue.Mac, u.cell, u.rlc, u.rrc, u.tasks, bufferPool,
		rand.New(rand.NewPCG(seed, rngStreamMac)), ueLogger, u.metrics)
	u.cell.Attach(u.mac)

	for _, lch := range config.Ue.Mac.LogicalChannels {
		lcid := lch.Lcid
		u.rlc.AddBearer(lcid, lcid == constant.UE_CCCH_LCID, func(sdu []byte) { u.deliverSdu(lcid, sdu) })
	}

	u.router = util.NewGinRouter(constant.API_PREFIX_UE, u.initRoutes())
	return u, nil
}

func (u *Ue) Start(ctx context.Context) error {
	u.UeLog.Infof("Starting UE: imsi-%s", u.imsi)

	if u.tunCfg.Enable {
		if err := u.setupTunnelDevice(); err != nil {
			u.TunLog.Errorf("Error setting up tunnel device: %v", err)
			return err
		}
		u.wg.Add(1)
		go u.readTun(ctx)
	}

	u.startStack(ctx)
	if err := u.Submit(ctx, func() {
		if err := u.connect(); err != nil {
			u.UeLog.Errorf("Error starting connection: %v", err)
		}
	}); err != nil {
		return err
	}

	u.apiServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", u.apiIp, u.apiPort),
		Handler: u.router,
	}
	go func() {
		if err := u.apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			u.ApiLog.Errorf("Failed to start API server: %v", err)
		}
	}()

	u.UeLog.Infoln("============= UE Info =============")
	u.UeLog.Infof("IMSI: %s, TTI: %v", u.imsi, u.ttiPeriod)
	u.UeLog.Infof("Cell: pci %d, earfcn %d", u.cell.Info().Pci, u.earfcn)
	u.UeLog.Infof("API address: %s:%d", u.apiIp, u.apiPort)
	u.UeLog.Infoln("===================================")

	u.UeLog.Infoln("UE started")
	return nil
}

func (u *Ue) startStack(ctx context.Context) {
	u.tasks.Start(ctx)
	u.wg.Add(1)
	go u.run(ctx)
}

func (u *Ue) Stop() {
	u.UeLog.Infof("Stopping UE: imsi-%s", u.imsi)

	if u.apiServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := u.apiServer.Shutdown(shutdownCtx); err != nil {
			u.ApiLog.Errorf("Error stopping API server: %v", err)
		}
	}

	u.cleanUpTunnelDevice()
	u.wg.Wait()
	u.tasks.Stop()
	u.UeLog.Infoln("UE stopped")
}

func (u *Ue) run(ctx context.Context) {
	defer u.wg.Done()
	defer close(u.stopped)

	ticker := time.NewTicker(u.ttiPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-u.jobs:
			job()
		case <-ticker.C:
			u.runTti()
		}
	}
}

// runTti orders one TTI: PHICH, deferred results, MAC procedures, then the cell scheduler.
func (u *Ue) runTti() {
	tti := u.tti
	u.cell.Phich(tti)
	u.tasks.RunPending()
	u.mac.RunTti(tti)
	u.cell.Schedule(tti)

	info := u.mac.Info()
	u.rrc.Step(info.Rntis.Crnti, info.Ra.State == mac.RA_STATE_IDLE.String())
	u.generateTraffic(tti)
	u.tti++
}

// Submit runs fn on the stack goroutine and waits for it.
func (u *Ue) Submit(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case u.jobs <- func() { fn(); close(done) }:
	case <-u.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-u.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (u *Ue) connect() error {
	identity := make([]byte, constant.UE_CONNECTION_REQUEST_SIZE)
	for i := range identity {
		identity[i] = byte(u.rng.UintN(256))
	}
	if err := u.rrc.Connect(identity); err != nil {
		return err
	}
	u.mac.StartRa()
	return nil
}

// triggerRa starts the initial access when idle and a contention based RA otherwise.
func (u *Ue) triggerRa() error {
	switch u.rrc.State() {
	case RRC_IDLE:
		return u.connect()
	case RRC_CONNECTED:
		u.mac.StartRa()
		return nil
	}
	return fmt.Errorf("cannot start random access in state %s", u.rrc.State())
}

// handover applies a protected RRC reconfiguration carrying mobility control info.
func (u *Ue) handover(protected []byte) (rrc.HoReconfiguration, error) {
	if u.rrc.State() != RRC_CONNECTED {
		return rrc.HoReconfiguration{}, ErrNotConnected
	}

	var pdu []byte
	if u.security != nil {
		verified, err := u.security.Verify(protected)
		if err != nil {
			return rrc.HoReconfiguration{}, err
		}
		pdu = verified
	} else {
		if len(protected) < security.MAC_I_SIZE {
			return rrc.HoReconfiguration{}, fmt.Errorf("rrc pdu of %d bytes is too short", len(protected))
		}
		pdu = protected[:len(protected)-security.MAC_I_SIZE]
	}

	ho, err := rrc.DecodeHoReconfiguration(pdu)
	if err != nil {
		return rrc.HoReconfiguration{}, err
	}
	if err := u.rrc.StartHandover(ho); err != nil {
		return rrc.HoReconfiguration{}, err
	}

	earfcn := u.earfcn
	if ho.Earfcn != 0 {
		earfcn = ho.Earfcn
	}
	if u.security != nil {
		if err := u.security.Rekey(ho.TargetPci, earfcn); err != nil {
			u.UeLog.Errorf("Error deriving target key: %v", err)
		}
	}
	u.earfcn = earfcn

	u.cell.Handover(ho.TargetPci, ho.NewCrnti, ho.Preamble)
	u.mac.Reset()
	u.mac.SetCrnti(ho.NewCrnti)
	if ho.Preamble >= 0 {
		u.mac.StartNoncontentionRa(ho.Preamble, ho.PrachMask, true)
	} else {
		u.mac.StartHandoverRa()
	}
	return ho, nil
}

func (u *Ue) writeTraffic(lcid uint8, size, count int) error {
	sdu := make([]byte, size)
	for i := 0; i < count; i++ {
		for j := range sdu {
			sdu[j] = byte(i + j)
		}
		if err := u.rlc.WriteSdu(lcid, sdu); err != nil {
			return err
		}
	}
	return nil
}

func (u *Ue) generateTraffic(tti uint32) {
	if u.traffic.Interval <= 0 || u.traffic.SduSize <= 0 || u.rrc.State() != RRC_CONNECTED {
		return
	}
	if tti%uint32(u.traffic.Interval) != 0 {
		return
	}
	if err := u.writeTraffic(u.traffic.Lcid, u.traffic.SduSize, 1); err != nil {
		u.MacLog.Tracef("Traffic SDU dropped: %v", err)
	}
}

// deliverSdu is the DL sink of every bearer.
func (u *Ue) deliverSdu(lcid uint8, sdu []byte) {
	if u.tun != nil && lcid == u.tunCfg.Lcid {
		u.writeTun(sdu)
		return
	}
	u.MacLog.Tracef("DL SDU of %d bytes on lcid %d", len(sdu), lcid)
}

func (u *Ue) info() UeInfo {
	info := UeInfo{
		Imsi:    u.imsi,
		Tti:     u.tti,
		Earfcn:  u.earfcn,
		Rrc:     u.rrc.Info(),
		Mac:     u.mac.Info(),
		Cell:    u.cell.Info(),
		Rlc:     u.rlc.Info(),
		Secured: u.security != nil,
	}
	if u.tun != nil {
		info.Tun = u.tunCfg.Name
	}
	return info
}
