package model

import (
	"fmt"
	"net"
)

type EnbConfig struct {
	Enb    EnbIE    `yaml:"enb" valid:"required"`
	Logger LoggerIE `yaml:"logger" valid:"required"`
}

type EnbIE struct {
	EnbId   string `yaml:"enbId" valid:"required"`
	EnbName string `yaml:"enbName" valid:"required"`

	PlmnId PlmnIdIE `yaml:"plmnId" valid:"required"`
	Tai    TaiIE    `yaml:"tai" valid:"required"`
	Snssai SnssaiIE `yaml:"snssai" valid:"required"`

	Cells      []CellCfgIE       `yaml:"cells" valid:"required"`
	Neighbours []NeighbourCellIE `yaml:"neighbours" valid:"optional"`
	MeasConfig MeasConfigIE      `yaml:"measConfig" valid:"required"`
	Handover   HandoverIE        `yaml:"handover" valid:"optional"`

	Core CoreIE `yaml:"core" valid:"optional"`

	Security SecurityIE `yaml:"security" valid:"required"`

	Api ApiIE `yaml:"api" valid:"required"`
}

type SnssaiIE struct {
	Sst string `yaml:"sst" valid:"required"`
	Sd  string `yaml:"sd" valid:"required"`
}

type CellCfgIE struct {
	CellId uint8  `yaml:"cellId" valid:"optional"`
	Pci    uint16 `yaml:"pci" valid:"required"`
	Earfcn uint32 `yaml:"earfcn" valid:"required"`
}

type NeighbourCellIE struct {
	EnbId  string `yaml:"enbId" valid:"required"`
	CellId uint8  `yaml:"cellId" valid:"optional"`
	Pci    uint16 `yaml:"pci" valid:"required"`
	Earfcn uint32 `yaml:"earfcn" valid:"required"`
	Tac    string `yaml:"tac" valid:"optional"`
}

// Thresholds are RSRP in dBm, hysteresis in dB.
type MeasConfigIE struct {
	A3Offset   int `yaml:"a3Offset" valid:"optional"`
	Hysteresis int `yaml:"hysteresis" valid:"optional"`
}

// HandoverIE configures the mobility control info sent to the UE. Zero values fall back to defaults.
type HandoverIE struct {
	T304                   int `yaml:"t304" valid:"optional"`
	DedicatedPreambleStart int `yaml:"dedicatedPreambleStart" valid:"optional"`
	NofDedicatedPreambles  int `yaml:"nofDedicatedPreambles" valid:"optional"`
}

type CoreIE struct {
	Enable    bool   `yaml:"enable" valid:"optional"`
	CoreIp    string `yaml:"coreIp" valid:"optional"`
	CorePort  int    `yaml:"corePort" valid:"optional"`
	LocalIp   string `yaml:"localIp" valid:"optional"`
	LocalPort int    `yaml:"localPort" valid:"optional"`
	N3Ip      string `yaml:"n3Ip" valid:"optional"`
}

type SecurityIE struct {
	KeNb               string `yaml:"kEnb" valid:"required"`
	IntegrityAlgorithm string `yaml:"integrityAlgorithm" valid:"required"`
}

func (e *EnbIE) Validate() error {
	cellIds := make(map[uint8]struct{})
	pcis := make(map[string]struct{})
	for _, cell := range e.Cells {
		if _, exists := cellIds[cell.CellId]; exists {
			return fmt.Errorf("duplicated cell id %d", cell.CellId)
		}
		cellIds[cell.CellId] = struct{}{}
		key := fmt.Sprintf("%d/%d", cell.Earfcn, cell.Pci)
		if _, exists := pcis[key]; exists {
			return fmt.Errorf("duplicated pci %d on earfcn %d", cell.Pci, cell.Earfcn)
		}
		pcis[key] = struct{}{}
	}
	for _, ncell := range e.Neighbours {
		key := fmt.Sprintf("%d/%d", ncell.Earfcn, ncell.Pci)
		if _, exists := pcis[key]; exists {
			return fmt.Errorf("neighbour pci %d on earfcn %d conflicts with another cell", ncell.Pci, ncell.Earfcn)
		}
		pcis[key] = struct{}{}
	}
	if e.Handover.NofDedicatedPreambles < 0 || e.Handover.DedicatedPreambleStart < 0 ||
		e.Handover.DedicatedPreambleStart+e.Handover.NofDedicatedPreambles > 64 {
		return fmt.Errorf("dedicated preambles %d+%d exceed 64", e.Handover.DedicatedPreambleStart, e.Handover.NofDedicatedPreambles)
	}
	if len(e.Cells) == 0 {
		return fmt.Errorf("no cells configured")
	}
	if e.Core.Enable && e.Core.CorePort == e.Core.LocalPort && e.Core.CoreIp == e.Core.LocalIp {
		return fmt.Errorf("core and local sctp endpoints are identical")
	}
	if e.Core.N3Ip != "" && net.ParseIP(e.Core.N3Ip).To4() == nil {
		return fmt.Errorf("n3 ip %q is not an ipv4 address", e.Core.N3Ip)
	}
	if e.Core.Enable && e.Core.LocalPort == e.Api.Port {
		return fmt.Errorf("api port %d conflicts with sctp port", e.Api.Port)
	}
	return nil
}
