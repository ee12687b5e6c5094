package util

import (
	"encoding/hex"
	"fmt"

	"github.com/free5gc/ngap/ngapConvert"
	"github.com/free5gc/ngap/ngapType"
	"github.com/free5gc/openapi/models"
)

func PlmnIdToNgap(plmnId models.PlmnId) (ngapType.PLMNIdentity, error) {
	if len(plmnId.Mcc) != 3 || (len(plmnId.Mnc) != 2 && len(plmnId.Mnc) != 3) {
		return ngapType.PLMNIdentity{}, fmt.Errorf("invalid plmn id %s-%s", plmnId.Mcc, plmnId.Mnc)
	}
	return ngapConvert.PlmnIdToNgap(plmnId), nil
}

func PlmnIdToModels(plmnId ngapType.PLMNIdentity) models.PlmnId {
	return ngapConvert.PlmnIdToModels(plmnId)
}

func TaiToNgap(tai models.Tai) (ngapType.TAI, error) {
	if tai.PlmnId == nil {
		return ngapType.TAI{}, fmt.Errorf("tai without plmn id")
	}
	plmnId, err := PlmnIdToNgap(*tai.PlmnId)
	if err != nil {
		return ngapType.TAI{}, err
	}
	tac, err := hex.DecodeString(tai.Tac)
	if err != nil {
		return ngapType.TAI{}, fmt.Errorf("error decoding tac %s: %v", tai.Tac, err)
	}
	return ngapType.TAI{
		PLMNIdentity: plmnId,
		TAC:          ngapType.TAC{Value: tac},
	}, nil
}

func SNssaiToNgap(snssai models.Snssai) (ngapType.SNSSAI, error) {
	ngapSnssai := ngapType.SNSSAI{}
	ngapSnssai.SST.Value = []byte{byte(snssai.Sst)}
	if snssai.Sd != "" {
		sd, err := hex.DecodeString(snssai.Sd)
		if err != nil {
			return ngapType.SNSSAI{}, fmt.Errorf("error decoding sd %s: %v", snssai.Sd, err)
		}
		ngapSnssai.SD = &ngapType.SD{Value: sd}
	}
	return ngapSnssai, nil
}

func SNssaiToModels(snssai ngapType.SNSSAI) models.Snssai {
	return ngapConvert.SNssaiToModels(snssai)
}
