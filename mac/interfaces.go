package mac

type PrachInfo struct {
	IsTransmitted bool
	TtiRa         uint32
	FId           uint32
}

// PhyInterface is what the MAC asks of the physical layer.
type PhyInterface interface {
	ConfigurePrachParams() error
	PrachSend(preambleIndex int, allowedSubframe int, targetPowerDbm float32)
	PrachGetInfo() PrachInfo
	SetCrnti(rnti uint16) error
	SetTimingAdvance(ta uint32)
	SetTimingAdvanceRar(ta uint32)
	SetRarGrant(grant uint32, tempCrnti uint16)
	SrSend()
	GetPhr() int
}

type RlcInterface interface {
	GetBufferState(lcid uint8) int
	ReadPdu(lcid uint8, payload []byte) int
	WritePdu(lcid uint8, payload []byte)
	WritePduBcch(payload []byte)
}

type RrcInterface interface {
	RaProblem()
	HoRaCompleted(success bool)
	ReleasePucchSrs()
}

// TaskScheduler runs slow calls off the TTI loop and returns results to it. EnqueueBackground
// reports false when fn was not queued.
type TaskScheduler interface {
	EnqueueBackground(fn func()) bool
	Defer(fn func())
}

type UlGrant struct {
	Rnti uint16
	Tti  uint32
	Pid  int
	Tbs  int
	Ndi  bool
	// Rv is the signalled redundancy version, -1 when absent.
	Rv    int
	IsRar bool
}

type UlAction struct {
	TbEn      bool
	Pid       int
	Rnti      uint16
	Rv        int
	CurrentTx int
	IsMsg3    bool
	Payload   []byte
}

type DlGrant struct {
	Rnti       uint16
	Tti        uint32
	Pid        int
	Tbs        int
	Ndi        bool
	NdiPresent bool
	Rv         int
	IsBcch     bool
}

type DlAction struct {
	DecodeEnabled bool
	GenerateAck   bool
	DefaultAck    bool
	// Payload is where the PHY writes the decoded transport block.
	Payload []byte
}
