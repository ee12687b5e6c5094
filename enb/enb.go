package enb

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Alonza0314/free-ran-l2/constant"
	"github.com/Alonza0314/free-ran-l2/logger"
	"github.com/Alonza0314/free-ran-l2/metrics"
	"github.com/Alonza0314/free-ran-l2/model"
	"github.com/Alonza0314/free-ran-l2/rrc"
	"github.com/Alonza0314/free-ran-l2/security"
	"github.com/Alonza0314/free-ran-l2/util"
	"github.com/free5gc/ngap"
	"github.com/free5gc/ngap/ngapConvert"
	"github.com/free5gc/ngap/ngapType"
	"github.com/free5gc/openapi/models"
	"github.com/free5gc/sctp"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DEFAULT_T304_MS = 1000

	dispatcherDepth = 64
	ngapReadSize    = 4096
)

var ErrStopped = errors.New("enb stopped")

type Enb struct {
	enbId   []byte
	enbName string

	plmnId    ngapType.PLMNIdentity
	plmnModel models.PlmnId
	tai       ngapType.TAI
	snssai    ngapType.SNSSAI

	coreCfg model.CoreIE
	n2Conn  *sctp.SCTPConn
	core    coreLink

	meas               rrc.MeasConfig
	kEnb               string
	integrityAlgorithm string
	options            rrc.Options

	// owned by the dispatcher goroutine
	ues          map[int64]*EnbUe
	rntis        *RntiAllocator
	ranUeNgapIds *IdGenerator
	dlTeids      *IdGenerator
	peer         *peer

	n3Ip string

	jobs    chan func()
	stopped chan struct{}
	wg      sync.WaitGroup

	apiIp     string
	apiPort   int
	router    *gin.Engine
	apiServer *http.Server

	registry *prometheus.Registry
	metrics  *metrics.RrcMetrics

	*logger.EnbLogger
}

func NewEnb(config *model.EnbConfig, enbLogger *logger.EnbLogger) (*Enb, error) {
	if err := config.Enb.Validate(); err != nil {
		return nil, fmt.Errorf("invalid enb config: %v", err)
	}

	enbId, err := hex.DecodeString(config.Enb.EnbId)
	if err != nil {
		return nil, fmt.Errorf("error decoding enbId to bytes: %v", err)
	}

	plmnModel := models.PlmnId{
		Mcc: config.Enb.PlmnId.Mcc,
		Mnc: config.Enb.PlmnId.Mnc,
	}
	plmnId, err := util.PlmnIdToNgap(plmnModel)
	if err != nil {
		return nil, fmt.Errorf("error converting plmnId to ngap: %v", err)
	}

	tai, err := util.TaiToNgap(models.Tai{
		Tac: config.Enb.Tai.Tac,
		PlmnId: &models.PlmnId{
			Mcc: config.Enb.Tai.BroadcastPlmnId.Mcc,
			Mnc: config.Enb.Tai.BroadcastPlmnId.Mnc,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error converting tai to ngap: %v", err)
	}

	sst, err := strconv.Atoi(config.Enb.Snssai.Sst)
	if err != nil {
		return nil, fmt.Errorf("error converting sst to int: %v", err)
	}
	snssai, err := util.SNssaiToNgap(models.Snssai{
		Sst: int32(sst),
		Sd:  config.Enb.Snssai.Sd,
	})
	if err != nil {
		return nil, fmt.Errorf("error converting snssai to ngap: %v", err)
	}

	// fail at startup rather than on the first UE
	if _, err := security.NewContext(config.Enb.Security.KeNb, config.Enb.Security.IntegrityAlgorithm); err != nil {
		return nil, fmt.Errorf("invalid security config: %v", err)
	}

	options := rrc.Options{
		T304Ms:                 config.Enb.Handover.T304,
		DedicatedPreambleStart: config.Enb.Handover.DedicatedPreambleStart,
		NofDedicatedPreambles:  config.Enb.Handover.NofDedicatedPreambles,
	}
	if options.T304Ms == 0 {
		options.T304Ms = DEFAULT_T304_MS
	}

	registry := prometheus.NewRegistry()
	e := &Enb{
		enbId:   enbId,
		enbName: config.Enb.EnbName,

		plmnId:    plmnId,
		plmnModel: plmnModel,
		tai:       tai,
		snssai:    snssai,

		coreCfg: config.Enb.Core,

		meas:               buildMeasConfig(&config.Enb),
		kEnb:               config.Enb.Security.KeNb,
		integrityAlgorithm: config.Enb.Security.IntegrityAlgorithm,
		options:            options,

		ues:          make(map[int64]*EnbUe),
		rntis:        NewRntiAllocator(),
		ranUeNgapIds: NewIdGenerator(1, 1<<32-1),
		dlTeids:      NewIdGenerator(1, 1<<32-1),

		n3Ip: resolveN3Ip(config.Enb.Core),

		jobs:    make(chan func(), dispatcherDepth),
		stopped: make(chan struct{}),

		apiIp:   config.Enb.Api.Ip,
		apiPort: config.Enb.Api.Port,

		registry: registry,
		metrics:  metrics.NewRrcMetrics(registry),

		EnbLogger: enbLogger,
	}
	e.peer = &peer{enb: e}
	e.router = util.NewGinRouter(constant.API_PREFIX_ENB, e.initRoutes())
	return e, nil
}

// resolveN3Ip is the address the core sends downlink user plane to.
func resolveN3Ip(core model.CoreIE) string {
	switch {
	case core.N3Ip != "":
		return core.N3Ip
	case net.ParseIP(core.LocalIp).To4() != nil:
		return core.LocalIp
	default:
		return DEFAULT_N3_IP
	}
}

func buildMeasConfig(config *model.EnbIE) rrc.MeasConfig {
	localEnbId := strings.ToLower(config.EnbId)
	meas := rrc.MeasConfig{
		LocalEnbId: localEnbId,
		A3Offset:   config.MeasConfig.A3Offset,
		Hysteresis: config.MeasConfig.Hysteresis,
	}
	for _, cell := range config.Cells {
		meas.Local = append(meas.Local, rrc.Cell{
			EnbId:  localEnbId,
			CellId: cell.CellId,
			Pci:    cell.Pci,
			Earfcn: cell.Earfcn,
			Tac:    config.Tai.Tac,
		})
	}
	for _, ncell := range config.Neighbours {
		meas.Neighbours = append(meas.Neighbours, rrc.Cell{
			EnbId:  strings.ToLower(ncell.EnbId),
			CellId: ncell.CellId,
			Pci:    ncell.Pci,
			Earfcn: ncell.Earfcn,
			Tac:    ncell.Tac,
		})
	}
	if len(meas.Local) > 0 {
		meas.Serving = meas.Local[0]
	}
	return meas
}

func (e *Enb) Start(ctx context.Context) error {
	e.EnbLog.Infoln("Starting eNB")

	if e.coreCfg.Enable {
		if err := e.connectToCore(); err != nil {
			e.SctpLog.Errorf("Error connecting to core: %v", err)
			return err
		}
		if err := e.setupCore(); err != nil {
			e.NgapLog.Errorf("Error setting up core association: %v", err)
			return err
		}
		e.wg.Add(1)
		go e.receiveCore(ctx)
	}

	e.wg.Add(1)
	go e.dispatch(ctx)

	e.apiServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", e.apiIp, e.apiPort),
		Handler: e.router,
	}
	go func() {
		if err := e.apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.ApiLog.Errorf("Failed to start API server: %v", err)
		}
	}()

	e.EnbLog.Infoln("============= eNB Info =============")
	e.EnbLog.Infof("eNB ID: %s, name: %s", hex.EncodeToString(e.enbId), e.enbName)
	for _, cell := range e.meas.Local {
		e.EnbLog.Infof("Cell %d: pci %d, earfcn %d", cell.CellId, cell.Pci, cell.Earfcn)
	}
	e.EnbLog.Infof("API address: %s:%d", e.apiIp, e.apiPort)
	e.EnbLog.Infoln("====================================")

	e.EnbLog.Infoln("eNB started")
	return nil
}

func (e *Enb) Stop() {
	e.EnbLog.Infoln("Stopping eNB")

	if e.apiServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.apiServer.Shutdown(shutdownCtx); err != nil {
			e.ApiLog.Errorf("Error stopping API server: %v", err)
		}
	}

	if e.n2Conn != nil {
		if err := e.n2Conn.Close(); err != nil {
			e.SctpLog.Errorf("Error closing core association: %v", err)
		}
		e.SctpLog.Debugln("Core association closed")
	}

	e.wg.Wait()
	e.EnbLog.Infoln("eNB stopped")
}

func (e *Enb) connectToCore() error {
	coreAddr, enbAddr, err := getCoreAndEnbSctpAddr(e.coreCfg.CoreIp, e.coreCfg.LocalIp, e.coreCfg.CorePort, e.coreCfg.LocalPort)
	if err != nil {
		return err
	}
	e.SctpLog.Tracef("Core address: %v, local address: %v", coreAddr.String(), enbAddr.String())

	conn, err := sctp.DialSCTP("sctp", enbAddr, coreAddr)
	if err != nil {
		return fmt.Errorf("error dialing core: %v", err)
	}

	info, err := conn.GetDefaultSentParam()
	if err != nil {
		return err
	}
	info.PPID = constant.NGAP_PPID
	if err := conn.SetDefaultSentParam(info); err != nil {
		return fmt.Errorf("error setting default sent param: %v", err)
	}

	e.n2Conn = conn
	e.core = conn

	e.SctpLog.Infof("Connected to core: %v", coreAddr.String())
	return nil
}

func (e *Enb) setupCore() error {
	if err := ngapSetup(e.n2Conn, e.enbId, e.enbName, e.plmnId, e.tai, e.snssai); err != nil {
		return err
	}

	tai := ngapConvert.TaiToModels(e.tai)
	snssai := ngapConvert.SNssaiToModels(e.snssai)
	e.NgapLog.Infof("NG setup complete, PLMN %v, TAC %v, SST %v, SD %v", ngapConvert.PlmnIdToModels(e.plmnId), tai.Tac, snssai.Sst, snssai.Sd)
	return nil
}

func (e *Enb) receiveCore(ctx context.Context) {
	defer e.wg.Done()

	buffer := make([]byte, ngapReadSize)
	for {
		n, err := e.n2Conn.Read(buffer)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) {
				e.SctpLog.Errorf("Error reading from core: %v", err)
			}
			return
		}

		pdu, err := ngap.Decoder(buffer[:n])
		if err != nil {
			e.NgapLog.Warnf("Error decoding NGAP message: %v", err)
			continue
		}
		if err := e.Submit(ctx, func() { e.handleCorePdu(pdu) }); err != nil {
			return
		}
	}
}

func (e *Enb) dispatch(ctx context.Context) {
	defer e.wg.Done()
	defer close(e.stopped)

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-e.jobs:
			job()
		}
	}
}

// Submit runs fn on the dispatcher goroutine and waits for it to finish.
func (e *Enb) Submit(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case e.jobs <- func() { fn(); close(done) }:
	case <-e.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-e.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// addUe creates a context for a UE attached to one of the local cells.
func (e *Enb) addUe(cellId uint8, drbs []uint8, amfUeNgapId int64) (*EnbUe, error) {
	meas := e.meas.Clone()
	found := false
	for _, cell := range meas.Local {
		if cell.CellId == cellId {
			meas.Serving, found = cell, true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("unknown cell id %d", cellId)
	}

	sec, err := security.NewContext(e.kEnb, e.integrityAlgorithm)
	if err != nil {
		return nil, err
	}

	ranUeNgapId, err := e.ranUeNgapIds.Allocate()
	if err != nil {
		return nil, err
	}

	ctx := &rrc.UeContext{
		RanUeNgapId: ranUeNgapId,
		AmfUeNgapId: amfUeNgapId,
		Meas:        meas,
		Security:    sec,
	}
	for _, drbId := range drbs {
		ctx.Bearers = append(ctx.Bearers, rrc.BearerStatus{DrbId: drbId})
	}

	ue := &EnbUe{
		ctx:      ctx,
		mobility: rrc.NewMobility(ctx, e.peer, e.rntis, e.options, e.MobLog, e.metrics),
	}
	e.ues[ranUeNgapId] = ue
	e.metrics.ActiveUes.Set(float64(len(e.ues)))
	return ue, nil
}

// attachUe admits a UE through random access, with a fresh C-RNTI.
func (e *Enb) attachUe(cellId uint8, drbs []uint8) (*EnbUe, error) {
	rnti, err := e.rntis.Allocate()
	if err != nil {
		return nil, err
	}
	ue, err := e.addUe(cellId, drbs, 0)
	if err != nil {
		e.rntis.Release(rnti)
		return nil, err
	}
	ue.ctx.Rnti = rnti
	e.RrcLog.Infof("UE %d attached to cell %d, ran ue ngap id %d", rnti, cellId, ue.ctx.RanUeNgapId)
	return ue, nil
}

func (e *Enb) removeUe(ue *EnbUe) {
	if ue.ctx.Rnti != 0 {
		e.rntis.Release(ue.ctx.Rnti)
	}
	if ue.ctx.PendingRnti != 0 {
		e.rntis.Release(ue.ctx.PendingRnti)
	}
	for _, teid := range ue.dlTeids {
		e.dlTeids.Release(teid)
	}
	e.ranUeNgapIds.Release(ue.ctx.RanUeNgapId)
	delete(e.ues, ue.ctx.RanUeNgapId)
	e.metrics.ActiveUes.Set(float64(len(e.ues)))
	e.RrcLog.Infof("UE %d removed, ran ue ngap id %d", ue.ctx.Rnti, ue.ctx.RanUeNgapId)
}

// ueByRnti matches the current C-RNTI first, then one allocated for a handover in progress.
func (e *Enb) ueByRnti(rnti uint16) (*EnbUe, bool) {
	for _, ue := range e.ues {
		if ue.ctx.Rnti == rnti {
			return ue, true
		}
	}
	for _, ue := range e.ues {
		if ue.ctx.PendingRnti == rnti {
			return ue, true
		}
	}
	return nil, false
}

// handleEvent feeds event to the UE's state machine. A handover whose signalling could not be sent is failed
// right away so the UE does not wait for an answer that never comes.
func (e *Enb) handleEvent(ue *EnbUe, event rrc.Event) error {
	err := ue.mobility.Handle(event)
	if err != nil && !errors.Is(err, rrc.ErrNoTransition) && !ue.ctx.Released() && ue.mobility.State() != (rrc.Idle{}) {
		if failErr := ue.mobility.Handle(rrc.HoFailureEvent{Cause: err.Error()}); failErr != nil {
			e.MobLog.Debugf("UE %d: %v", ue.ctx.Rnti, failErr)
		}
	}
	if ue.ctx.Released() {
		e.removeUe(ue)
	}
	return err
}

func (e *Enb) handleCorePdu(pdu *ngapType.NGAPPDU) {
	msg, err := decodeCoreMessage(pdu)
	if err != nil {
		e.NgapLog.Debugf("Ignoring NGAP message: %v", err)
		return
	}
	e.NgapLog.Debugf("Received %s for ran ue ngap id %d", msg.event.Name(), msg.ids.ranUeNgapId)

	if msg.newUe {
		ue, err := e.addUe(e.meas.Serving.CellId, nil, msg.ids.amfUeNgapId)
		if err != nil {
			e.NgapLog.Errorf("Error admitting incoming handover: %v", err)
			return
		}
		if err := e.handleEvent(ue, msg.event); err != nil {
			e.MobLog.Errorf("Error handling %s: %v", msg.event.Name(), err)
			if !ue.ctx.Released() {
				e.removeUe(ue)
			}
		}
		return
	}

	ue, exists := e.ues[msg.ids.ranUeNgapId]
	if !exists {
		e.NgapLog.Warnf("No UE with ran ue ngap id %d for %s", msg.ids.ranUeNgapId, msg.event.Name())
		return
	}
	if ue.ctx.AmfUeNgapId == 0 {
		ue.ctx.AmfUeNgapId = msg.ids.amfUeNgapId
	}
	if err := e.handleEvent(ue, msg.event); err != nil {
		e.MobLog.Warnf("UE %d: %s: %v", ue.ctx.Rnti, msg.event.Name(), err)
	}
}

func (e *Enb) info() model.EnbInfo {
	info := model.EnbInfo{
		EnbId:         hex.EncodeToString(e.enbId),
		EnbName:       e.enbName,
		PlmnId:        e.plmnModel.Mcc + e.plmnModel.Mnc,
		CoreConnected: e.core != nil,
		Cells:         e.meas.Local,
		Neighbours:    e.meas.Neighbours,
		Ues:           make([]model.EnbUeInfo, 0, len(e.ues)),
	}
	for _, ue := range e.ues {
		info.Ues = append(info.Ues, ue.info())
	}
	sort.Slice(info.Ues, func(i, j int) bool {
		return info.Ues[i].RanUeNgapId < info.Ues[j].RanUeNgapId
	})
	return info
}
