package model

import "fmt"

type MacIE struct {
	LogicalChannels []LogicalChannelIE `yaml:"logicalChannels" valid:"required"`

	Rach          RachIE          `yaml:"rach" valid:"required"`
	Bsr           BsrIE           `yaml:"bsr" valid:"required"`
	Harq          HarqIE          `yaml:"harq" valid:"required"`
	Sr            SrIE            `yaml:"sr" valid:"required"`
	Phr           PhrIE           `yaml:"phr" valid:"required"`
	TimeAlignment TimeAlignmentIE `yaml:"timeAlignment" valid:"required"`
	Pool          PoolIE          `yaml:"pool" valid:"required"`
}

// Pbr is in bytes per TTI, a negative value means infinity. Bsd is in ms.
type LogicalChannelIE struct {
	Lcid     uint8 `yaml:"lcid" valid:"optional"`
	Lcg      uint8 `yaml:"lcg" valid:"optional"`
	Priority int   `yaml:"priority" valid:"required"`
	Pbr      int   `yaml:"pbr" valid:"required"`
	Bsd      int   `yaml:"bsd" valid:"required"`
}

type RachIE struct {
	NofPreambles            int `yaml:"nofPreambles" valid:"required"`
	SizeOfRaPreamblesGroupA int `yaml:"sizeOfRaPreamblesGroupA" valid:"required"`
	// MessageSizeGroupA is in bits.
	MessageSizeGroupA        int `yaml:"messageSizeGroupA" valid:"required"`
	MessagePowerOffsetGroupB int `yaml:"messagePowerOffsetGroupB" valid:"optional"`

	PreambleTransMax           int `yaml:"preambleTransMax" valid:"required"`
	ResponseWindowSize         int `yaml:"responseWindowSize" valid:"required"`
	ContentionResolutionTimer  int `yaml:"contentionResolutionTimer" valid:"required"`
	PowerRampingStep           int `yaml:"powerRampingStep" valid:"required"`
	InitialReceivedTargetPower int `yaml:"initialReceivedTargetPower" valid:"required"`
	DeltaPreambleMsg3          int `yaml:"deltaPreambleMsg3" valid:"optional"`
	MaxHarqMsg3Tx              int `yaml:"maxHarqMsg3Tx" valid:"required"`
	PrachFreqOffset            int `yaml:"prachFreqOffset" valid:"optional"`
	PrachConfigIndex           int `yaml:"prachConfigIndex" valid:"optional"`
}

// Timers are in TTIs, -1 disables the periodic timer.
type BsrIE struct {
	PeriodicTimer int `yaml:"periodicTimer" valid:"required"`
	RetxTimer     int `yaml:"retxTimer" valid:"required"`
}

type HarqIE struct {
	MaxHarqTx int `yaml:"maxHarqTx" valid:"required"`
}

type SrIE struct {
	DsrTransMax int `yaml:"dsrTransMax" valid:"required"`
}

type PhrIE struct {
	PeriodicTimer int `yaml:"periodicTimer" valid:"required"`
	ProhibitTimer int `yaml:"prohibitTimer" valid:"optional"`
}

type TimeAlignmentIE struct {
	Timer int `yaml:"timer" valid:"required"`
}

type PoolIE struct {
	Capacity int `yaml:"capacity" valid:"required"`
}

func (m *MacIE) Validate() error {
	priorities := make(map[int]struct{})
	lcids := make(map[uint8]struct{})
	for _, lch := range m.LogicalChannels {
		if lch.Lcg > 3 {
			return fmt.Errorf("logical channel %d: lcg %d out of range 0..3", lch.Lcid, lch.Lcg)
		}
		if lch.Lcid > 10 {
			return fmt.Errorf("logical channel %d: lcid out of range 0..10", lch.Lcid)
		}
		if lch.Priority <= 0 {
			return fmt.Errorf("logical channel %d: priority must be positive", lch.Lcid)
		}
		if lch.Pbr == 0 {
			return fmt.Errorf("logical channel %d: pbr must be positive or negative for infinity", lch.Lcid)
		}
		if lch.Bsd <= 0 {
			return fmt.Errorf("logical channel %d: bsd must be positive", lch.Lcid)
		}
		if _, exists := priorities[lch.Priority]; exists {
			return fmt.Errorf("logical channel %d: duplicated priority %d", lch.Lcid, lch.Priority)
		}
		if _, exists := lcids[lch.Lcid]; exists {
			return fmt.Errorf("logical channel %d: duplicated lcid", lch.Lcid)
		}
		priorities[lch.Priority] = struct{}{}
		lcids[lch.Lcid] = struct{}{}
	}

	if m.Rach.SizeOfRaPreamblesGroupA > m.Rach.NofPreambles {
		return fmt.Errorf("rach: group A size %d exceeds number of preambles %d", m.Rach.SizeOfRaPreamblesGroupA, m.Rach.NofPreambles)
	}
	if m.Rach.NofPreambles > 64 {
		return fmt.Errorf("rach: number of preambles %d exceeds 64", m.Rach.NofPreambles)
	}
	if m.Pool.Capacity <= 0 {
		return fmt.Errorf("pool: capacity must be positive")
	}

	return nil
}
