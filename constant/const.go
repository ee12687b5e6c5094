package constant

import "net/http"

// for eNB
const (
	NGAP_PPID uint32 = 0x3c000000

	ENB_UE_RNTI_START = 0x46
	ENB_UE_RNTI_END   = 0xfff3
)

// for UE
const (
	UE_CCCH_LCID = 0
	UE_SRB1_LCID = 1
	UE_DRB1_LCID = 3

	UE_CONNECTION_REQUEST_SIZE = 6

	UE_RLC_MAX_QUEUED_SDUS = 512
	UE_TUN_READ_SIZE       = 4096
)

// for API
const (
	API_PREFIX_UE  = "/api/ue"
	API_PREFIX_ENB = "/api/enb"

	API_UE_INFO                   = "/info"
	API_UE_INFO_METHOD            = http.MethodGet
	API_UE_RA                     = "/ra"
	API_UE_RA_METHOD              = http.MethodPost
	API_UE_TRAFFIC                = "/traffic"
	API_UE_TRAFFIC_METHOD         = http.MethodPost
	API_UE_HANDOVER               = "/handover"
	API_UE_HANDOVER_METHOD        = http.MethodPost
	API_ENB_INFO                  = "/info"
	API_ENB_INFO_METHOD           = http.MethodGet
	API_ENB_UE                    = "/ue"
	API_ENB_UE_METHOD             = http.MethodPost
	API_ENB_UE_RELEASE            = "/ue/:rnti"
	API_ENB_UE_RELEASE_METHOD     = http.MethodDelete
	API_ENB_MEAS_REPORT           = "/ue/:rnti/measReport"
	API_ENB_MEAS_REPORT_METHOD    = http.MethodPost
	API_ENB_RECFG_COMPLETE        = "/ue/:rnti/recfgComplete"
	API_ENB_RECFG_COMPLETE_METHOD = http.MethodPost
	API_ENB_CRNTI_UPDATE          = "/ue/:rnti/crntiUpdate"
	API_ENB_CRNTI_UPDATE_METHOD   = http.MethodPost

	API_METRICS        = "/metrics"
	API_METRICS_METHOD = http.MethodGet
)
