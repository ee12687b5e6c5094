package logger

const (
	CONFIG_TAG = "CONFIG"

	UE_TAG  = "UE"
	ENB_TAG = "ENB"

	MAC_TAG  = "MAC"
	RA_TAG   = "RA"
	HARQ_TAG = "HARQ"
	MUX_TAG  = "MUX"
	BSR_TAG  = "BSR"
	PHY_TAG  = "PHY"
	TUN_TAG  = "TUN"
	POOL_TAG = "POOL"

	RRC_TAG  = "RRC"
	MOB_TAG  = "MOB"
	SCTP_TAG = "SCTP"
	NGAP_TAG = "NGAP"
	SEC_TAG  = "SEC"

	API_TAG = "API"
)
