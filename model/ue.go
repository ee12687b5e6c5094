package model

import "fmt"

type UeConfig struct {
	Ue     UeIE     `yaml:"ue" valid:"required"`
	Logger LoggerIE `yaml:"logger" valid:"required"`
}

type UeIE struct {
	Imsi string `yaml:"imsi" valid:"required"`

	// Tti is the length of one scheduling tick, in microseconds.
	Tti int `yaml:"tti" valid:"required"`

	Mac  MacIE  `yaml:"mac" valid:"required"`
	Cell CellIE `yaml:"cell" valid:"required"`

	Traffic TrafficIE `yaml:"traffic" valid:"optional"`
	Tun     TunIE     `yaml:"tun" valid:"optional"`

	Security UeSecurityIE `yaml:"security" valid:"optional"`

	Api ApiIE `yaml:"api" valid:"required"`
}

// CellIE configures the loopback cell the UE camps on.
type CellIE struct {
	Pci        uint16 `yaml:"pci" valid:"optional"`
	Earfcn     uint32 `yaml:"earfcn" valid:"optional"`
	Seed       uint64 `yaml:"seed" valid:"optional"`
	Msg3Tbs    int    `yaml:"msg3Tbs" valid:"required"`
	MaxUlTbs   int    `yaml:"maxUlTbs" valid:"required"`
	NackRatio  int    `yaml:"nackRatio" valid:"optional"`
	Backoff    int    `yaml:"backoff" valid:"optional"`
	DropRar    int    `yaml:"dropRar" valid:"optional"`
	TaCommands bool   `yaml:"taCommands" valid:"optional"`
	// Echo loops UL SDUs received on a data radio bearer back to the UE.
	Echo bool `yaml:"echo" valid:"optional"`
}

type TrafficIE struct {
	Lcid     uint8 `yaml:"lcid" valid:"optional"`
	SduSize  int   `yaml:"sduSize" valid:"optional"`
	Interval int   `yaml:"interval" valid:"optional"`
}

// UeSecurityIE enables MAC-I checks on handover commands. KeNb must match the serving eNB.
type UeSecurityIE struct {
	Enable             bool   `yaml:"enable" valid:"optional"`
	KeNb               string `yaml:"kEnb" valid:"optional"`
	IntegrityAlgorithm string `yaml:"integrityAlgorithm" valid:"optional"`
}

type TunIE struct {
	Enable bool   `yaml:"enable" valid:"optional"`
	Name   string `yaml:"name" valid:"optional"`
	Ip     string `yaml:"ip" valid:"optional"`
	Lcid   uint8  `yaml:"lcid" valid:"optional"`
}

func (u *UeIE) Validate() error {
	if err := u.Mac.Validate(); err != nil {
		return err
	}
	if u.Tti <= 0 {
		return fmt.Errorf("tti must be positive")
	}
	if u.Cell.Msg3Tbs < 7 || u.Cell.Msg3Tbs > 0xfffff {
		return fmt.Errorf("cell: msg3 tbs %d cannot carry a connection request", u.Cell.Msg3Tbs)
	}
	if u.Cell.NackRatio < 0 || u.Cell.NackRatio > 100 {
		return fmt.Errorf("cell: nack ratio %d out of range 0..100", u.Cell.NackRatio)
	}
	if u.Cell.Backoff < 0 || u.Cell.Backoff > 15 {
		return fmt.Errorf("cell: backoff indicator %d out of range 0..15", u.Cell.Backoff)
	}

	lcids := make(map[uint8]struct{})
	for _, lch := range u.Mac.LogicalChannels {
		lcids[lch.Lcid] = struct{}{}
	}
	if _, ok := lcids[0]; !ok {
		return fmt.Errorf("mac: no logical channel for the ccch")
	}
	if u.Traffic.Interval > 0 {
		if _, ok := lcids[u.Traffic.Lcid]; !ok {
			return fmt.Errorf("traffic: lcid %d not configured", u.Traffic.Lcid)
		}
	}
	if u.Tun.Enable {
		if u.Tun.Name == "" || u.Tun.Ip == "" {
			return fmt.Errorf("tun: name and ip are required")
		}
		if _, ok := lcids[u.Tun.Lcid]; !ok {
			return fmt.Errorf("tun: lcid %d not configured", u.Tun.Lcid)
		}
	}
	return nil
}
