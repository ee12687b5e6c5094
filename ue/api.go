package ue

import (
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/Alonza0314/free-ran-l2/constant"
	"github.com/Alonza0314/free-ran-l2/metrics"
	"github.com/Alonza0314/free-ran-l2/model"
	"github.com/Alonza0314/free-ran-l2/security"
	"github.com/Alonza0314/free-ran-l2/util"
	"github.com/gin-gonic/gin"
)

func (u *Ue) initRoutes() util.Routes {
	return util.Routes{
		{
			Name:        "UE Info",
			Method:      constant.API_UE_INFO_METHOD,
			Pattern:     constant.API_UE_INFO,
			HandlerFunc: u.handleUeInfo,
		},
		{
			Name:        "UE Random Access",
			Method:      constant.API_UE_RA_METHOD,
			Pattern:     constant.API_UE_RA,
			HandlerFunc: u.handleUeRa,
		},
		{
			Name:        "UE Traffic",
			Method:      constant.API_UE_TRAFFIC_METHOD,
			Pattern:     constant.API_UE_TRAFFIC,
			HandlerFunc: u.handleUeTraffic,
		},
		{
			Name:        "UE Handover",
			Method:      constant.API_UE_HANDOVER_METHOD,
			Pattern:     constant.API_UE_HANDOVER,
			HandlerFunc: u.handleUeHandover,
		},
		{
			Name:        "UE Metrics",
			Method:      constant.API_METRICS_METHOD,
			Pattern:     constant.API_METRICS,
			HandlerFunc: metrics.Handler(u.registry),
		},
	}
}

func (u *Ue) handleUeInfo(c *gin.Context) {
	var info UeInfo
	if err := u.Submit(c.Request.Context(), func() { info = u.info() }); err != nil {
		c.JSON(http.StatusServiceUnavailable, model.MessageResponse{Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, UeInfoResponse{
		Message: "UE info",
		UeInfo:  info,
	})
}

func (u *Ue) handleUeRa(c *gin.Context) {
	var raErr error
	if err := u.Submit(c.Request.Context(), func() { raErr = u.triggerRa() }); err != nil {
		c.JSON(http.StatusServiceUnavailable, model.MessageResponse{Message: err.Error()})
		return
	}
	if raErr != nil {
		u.ApiLog.Warnf("Random access not started: %v", raErr)
		c.JSON(http.StatusConflict, model.MessageResponse{Message: raErr.Error()})
		return
	}
	c.JSON(http.StatusOK, model.MessageResponse{Message: "Random access started"})
}

func (u *Ue) handleUeTraffic(c *gin.Context) {
	var request model.UeTrafficRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		u.ApiLog.Warnf("Failed to bind traffic request: %v", err)
		c.JSON(http.StatusBadRequest, model.MessageResponse{Message: "Failed to bind JSON"})
		return
	}
	if request.Size <= 0 {
		c.JSON(http.StatusBadRequest, model.MessageResponse{Message: "size must be positive"})
		return
	}
	if request.Count <= 0 {
		request.Count = 1
	}

	if err := u.writeTraffic(request.Lcid, request.Size, request.Count); err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, ErrUnknownBearer) {
			status = http.StatusNotFound
		}
		c.JSON(status, model.MessageResponse{Message: err.Error()})
		return
	}
	u.ApiLog.Debugf("Queued %d SDUs of %d bytes on lcid %d", request.Count, request.Size, request.Lcid)
	c.JSON(http.StatusOK, model.MessageResponse{Message: "Traffic queued"})
}

func (u *Ue) handleUeHandover(c *gin.Context) {
	var request model.UeHandoverRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		u.ApiLog.Warnf("Failed to bind handover request: %v", err)
		c.JSON(http.StatusBadRequest, model.MessageResponse{Message: "Failed to bind JSON"})
		return
	}
	pdu, err := hex.DecodeString(request.RrcPdu)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.MessageResponse{Message: "rrcPdu is not hex"})
		return
	}

	var hoErr error
	if err := u.Submit(c.Request.Context(), func() { _, hoErr = u.handover(pdu) }); err != nil {
		c.JSON(http.StatusServiceUnavailable, model.MessageResponse{Message: err.Error()})
		return
	}
	switch {
	case hoErr == nil:
		c.JSON(http.StatusOK, model.MessageResponse{Message: "Handover started"})
	case errors.Is(hoErr, ErrNotConnected):
		c.JSON(http.StatusConflict, model.MessageResponse{Message: hoErr.Error()})
	case errors.Is(hoErr, security.ErrIntegrity):
		u.ApiLog.Warnf("Handover command rejected: %v", hoErr)
		c.JSON(http.StatusBadRequest, model.MessageResponse{Message: hoErr.Error()})
	default:
		u.ApiLog.Warnf("Handover command not applied: %v", hoErr)
		c.JSON(http.StatusBadRequest, model.MessageResponse{Message: hoErr.Error()})
	}
}
