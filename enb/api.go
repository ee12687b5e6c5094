package enb

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Alonza0314/free-ran-l2/constant"
	"github.com/Alonza0314/free-ran-l2/metrics"
	"github.com/Alonza0314/free-ran-l2/model"
	"github.com/Alonza0314/free-ran-l2/rrc"
	"github.com/Alonza0314/free-ran-l2/util"
	"github.com/gin-gonic/gin"
)

func (e *Enb) initRoutes() util.Routes {
	return util.Routes{
		{
			Name:        "eNB Info",
			Method:      constant.API_ENB_INFO_METHOD,
			Pattern:     constant.API_ENB_INFO,
			HandlerFunc: e.handleEnbInfo,
		},
		{
			Name:        "eNB Attach UE",
			Method:      constant.API_ENB_UE_METHOD,
			Pattern:     constant.API_ENB_UE,
			HandlerFunc: e.handleEnbAttachUe,
		},
		{
			Name:        "eNB Release UE",
			Method:      constant.API_ENB_UE_RELEASE_METHOD,
			Pattern:     constant.API_ENB_UE_RELEASE,
			HandlerFunc: e.handleEnbReleaseUe,
		},
		{
			Name:        "eNB Measurement Report",
			Method:      constant.API_ENB_MEAS_REPORT_METHOD,
			Pattern:     constant.API_ENB_MEAS_REPORT,
			HandlerFunc: e.handleEnbMeasReport,
		},
		{
			Name:        "eNB Reconfiguration Complete",
			Method:      constant.API_ENB_RECFG_COMPLETE_METHOD,
			Pattern:     constant.API_ENB_RECFG_COMPLETE,
			HandlerFunc: e.handleEnbRecfgComplete,
		},
		{
			Name:        "eNB C-RNTI Update",
			Method:      constant.API_ENB_CRNTI_UPDATE_METHOD,
			Pattern:     constant.API_ENB_CRNTI_UPDATE,
			HandlerFunc: e.handleEnbCrntiUpdate,
		},
		{
			Name:        "eNB Metrics",
			Method:      constant.API_METRICS_METHOD,
			Pattern:     constant.API_METRICS,
			HandlerFunc: metrics.Handler(e.registry),
		},
	}
}

func (e *Enb) handleEnbInfo(c *gin.Context) {
	var info model.EnbInfo
	if err := e.Submit(c.Request.Context(), func() { info = e.info() }); err != nil {
		c.JSON(http.StatusServiceUnavailable, model.EnbInfoResponse{Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.EnbInfoResponse{
		Message: "eNB info",
		EnbInfo: info,
	})
}

func (e *Enb) handleEnbAttachUe(c *gin.Context) {
	var request model.EnbAddUeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		e.ApiLog.Warnf("Failed to bind attach request: %v", err)
		c.JSON(http.StatusBadRequest, model.EnbUeResponse{Message: "Failed to bind JSON"})
		return
	}

	var (
		info      model.EnbUeInfo
		attachErr error
	)
	if err := e.Submit(c.Request.Context(), func() {
		var ue *EnbUe
		if ue, attachErr = e.attachUe(request.CellId, request.Drbs); attachErr == nil {
			info = ue.info()
		}
	}); err != nil {
		c.JSON(http.StatusServiceUnavailable, model.EnbUeResponse{Message: err.Error()})
		return
	}
	if attachErr != nil {
		e.ApiLog.Warnf("Failed to attach UE: %v", attachErr)
		c.JSON(http.StatusBadRequest, model.EnbUeResponse{Message: attachErr.Error()})
		return
	}
	c.JSON(http.StatusOK, model.EnbUeResponse{
		Message: "UE attached",
		Ue:      &info,
	})
}

func (e *Enb) handleEnbReleaseUe(c *gin.Context) {
	e.handleUeEvent(c, func() (rrc.Event, error) {
		return rrc.UeContextReleaseEvent{Cause: "released by operator"}, nil
	})
}

func (e *Enb) handleEnbMeasReport(c *gin.Context) {
	e.handleUeEvent(c, func() (rrc.Event, error) {
		var report rrc.MeasReportEvent
		if err := c.ShouldBindJSON(&report); err != nil {
			return nil, err
		}
		return report, nil
	})
}

func (e *Enb) handleEnbRecfgComplete(c *gin.Context) {
	e.handleUeEvent(c, func() (rrc.Event, error) {
		var request model.EnbRecfgCompleteRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			return nil, err
		}
		return rrc.RecfgCompleteEvent{TransactionId: request.TransactionId}, nil
	})
}

func (e *Enb) handleEnbCrntiUpdate(c *gin.Context) {
	e.handleUeEvent(c, func() (rrc.Event, error) {
		var request model.EnbCrntiUpdateRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			return nil, err
		}
		return rrc.CrntiUpdateEvent{Rnti: request.Rnti}, nil
	})
}

// handleUeEvent feeds one event to the UE addressed by the :rnti path parameter.
func (e *Enb) handleUeEvent(c *gin.Context, parse func() (rrc.Event, error)) {
	rnti, err := strconv.ParseUint(c.Param("rnti"), 10, 16)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.EnbUeResponse{Message: fmt.Sprintf("invalid rnti %s", c.Param("rnti"))})
		return
	}

	event, err := parse()
	if err != nil {
		e.ApiLog.Warnf("Failed to bind request: %v", err)
		c.JSON(http.StatusBadRequest, model.EnbUeResponse{Message: "Failed to bind JSON"})
		return
	}

	status, response := http.StatusOK, model.EnbUeResponse{}
	if err := e.Submit(c.Request.Context(), func() {
		ue, exists := e.ueByRnti(uint16(rnti))
		if !exists {
			status, response.Message = http.StatusNotFound, fmt.Sprintf("no UE with rnti %d", rnti)
			return
		}

		// an idle UE has nothing to tear down in the core
		if _, release := event.(rrc.UeContextReleaseEvent); release && ue.mobility.State() == (rrc.Idle{}) {
			e.removeUe(ue)
			response.Message = "UE released"
			return
		}

		err := e.handleEvent(ue, event)
		switch {
		case errors.Is(err, rrc.ErrNoTransition):
			status, response.Message = http.StatusConflict, err.Error()
		case errors.Is(err, rrc.ErrContextRelease):
			status, response.Message = http.StatusGone, err.Error()
		case err != nil:
			status, response.Message = http.StatusInternalServerError, err.Error()
		default:
			response.Message = event.Name() + " handled"
		}
		if !ue.ctx.Released() {
			info := ue.info()
			response.Ue = &info
		}
	}); err != nil {
		c.JSON(http.StatusServiceUnavailable, model.EnbUeResponse{Message: err.Error()})
		return
	}

	if status != http.StatusOK {
		e.ApiLog.Warnf("UE %d: %s", rnti, response.Message)
	}
	c.JSON(status, response)
}
