package mac

// UL-SCH LCIDs, 36.321 Table 6.2.1-2.
const (
	LCID_CCCH      uint8 = 0
	LCID_PHR       uint8 = 26
	LCID_CRNTI     uint8 = 27
	LCID_TRUNC_BSR uint8 = 28
	LCID_SHORT_BSR uint8 = 29
	LCID_LONG_BSR  uint8 = 30
	LCID_PADDING   uint8 = 31
)

// DL-SCH LCIDs, 36.321 Table 6.2.1-1.
const (
	LCID_CON_RES_ID uint8 = 28
	LCID_TA_CMD     uint8 = 29
	LCID_DRX_CMD    uint8 = 30
)

const (
	MAX_LCID = 10
	NOF_LCG  = 4

	NOF_UL_HARQ_PROCESSES = 8
	NOF_DL_HARQ_PROCESSES = 8

	// MAX_TB_SIZE bounds a single transport block, in bytes.
	MAX_TB_SIZE = 9422

	DL_MAX_DUPLICATES = 6

	CONTENTION_ID_LEN = 6
	RAR_LEN           = 6
	MAX_RAR_PDU_SIZE  = 256

	RA_WINDOW_OFFSET = 3

	// TTIs a PHY call may wait for room in a full task queue before the procedure gives up.
	RA_MAX_TASK_RETRIES = 10
)

var ulCeLen = map[uint8]int{
	LCID_PHR:       1,
	LCID_CRNTI:     2,
	LCID_TRUNC_BSR: 1,
	LCID_SHORT_BSR: 1,
	LCID_LONG_BSR:  3,
}

var dlCeLen = map[uint8]int{
	LCID_CON_RES_ID: 6,
	LCID_TA_CMD:     1,
	LCID_DRX_CMD:    0,
}

// ulRvSequence is the redundancy version order used when the grant does not signal one.
var ulRvSequence = [4]int{0, 2, 3, 1}

// backoffTableMs maps the RAR backoff indicator to milliseconds, 36.321 Table 7.2-1.
var backoffTableMs = [16]int{0, 10, 20, 30, 40, 60, 80, 120, 160, 240, 320, 480, 960, 960, 960, 960}
