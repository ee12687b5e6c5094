package security

import (
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/free5gc/nas/security"
	"github.com/free5gc/util/ueauth"
)

var ErrIntegrity = errors.New("integrity check failed")

const (
	FC_FOR_KENB_STAR_DERIVATION     = "13"
	FC_FOR_ALGORITHM_KEY_DERIVATION = "15"

	RRC_INT_ALG_DISTINGUISHER = 0x04

	SRB1_BEARER = 0x00

	MAC_I_SIZE = 4
)

// ParseIntegrityAlgorithm accepts NIA0..NIA3 and their LTE names EIA0..EIA3.
func ParseIntegrityAlgorithm(name string) (uint8, error) {
	switch strings.ToUpper(name) {
	case "NIA0", "EIA0":
		return security.AlgIntegrity128NIA0, nil
	case "NIA1", "EIA1":
		return security.AlgIntegrity128NIA1, nil
	case "NIA2", "EIA2":
		return security.AlgIntegrity128NIA2, nil
	case "NIA3", "EIA3":
		return security.AlgIntegrity128NIA3, nil
	}
	return 0, fmt.Errorf("unknown integrity algorithm %s", name)
}

// DeriveKeNbStar derives the key for the target cell identified by pci and earfcn.
func DeriveKeNbStar(kEnb []byte, pci uint16, earfcn uint32) ([]byte, error) {
	P0 := make([]byte, 2)
	binary.BigEndian.PutUint16(P0, pci)
	var P1 []byte
	if earfcn > 0xffff {
		P1 = []byte{byte(earfcn >> 16), byte(earfcn >> 8), byte(earfcn)}
	} else {
		P1 = make([]byte, 2)
		binary.BigEndian.PutUint16(P1, uint16(earfcn))
	}

	kEnbStar, err := ueauth.GetKDFValue(kEnb, FC_FOR_KENB_STAR_DERIVATION, P0, ueauth.KDFLen(P0), P1, ueauth.KDFLen(P1))
	if err != nil {
		return nil, fmt.Errorf("GetKDFValue error: %+v", err)
	}
	return kEnbStar, nil
}

func DeriveKRrcInt(kEnb []byte, integrityAlgorithm uint8) ([16]byte, error) {
	var kRrcInt [16]byte

	P0 := []byte{RRC_INT_ALG_DISTINGUISHER}
	L0 := ueauth.KDFLen(P0)
	P1 := []byte{integrityAlgorithm}
	L1 := ueauth.KDFLen(P1)

	kint, err := ueauth.GetKDFValue(kEnb, FC_FOR_ALGORITHM_KEY_DERIVATION, P0, L0, P1, L1)
	if err != nil {
		return kRrcInt, fmt.Errorf("GetKDFValue error: %+v", err)
	}
	copy(kRrcInt[:], kint[16:32])
	return kRrcInt, nil
}

// ComputeMacI returns the 32 bit MAC-I of a downlink SRB PDU. NIA0 yields an all-zero MAC-I.
func ComputeMacI(integrityAlgorithm uint8, kRrcInt [16]byte, count uint32, bearer uint8, pdu []byte) ([]byte, error) {
	mac32, err := security.NASMacCalculate(integrityAlgorithm, kRrcInt, count, bearer, security.DirectionDownlink, pdu)
	if err != nil {
		return nil, fmt.Errorf("error calculating mac-i: %v", err)
	}
	if len(mac32) != MAC_I_SIZE {
		mac32 = make([]byte, MAC_I_SIZE)
	}
	return mac32, nil
}

// Context is the AS security context of one UE. It is owned by the eNB dispatcher goroutine.
type Context struct {
	kEnb               []byte
	kRrcInt            [16]byte
	integrityAlgorithm uint8
	count              security.Count
}

func NewContext(kEnbHex string, integrityAlgorithm string) (*Context, error) {
	kEnb, err := hex.DecodeString(kEnbHex)
	if err != nil {
		return nil, fmt.Errorf("error decoding kEnb: %v", err)
	}
	if len(kEnb) != 32 {
		return nil, fmt.Errorf("kEnb must be 32 bytes, got %d", len(kEnb))
	}
	alg, err := ParseIntegrityAlgorithm(integrityAlgorithm)
	if err != nil {
		return nil, err
	}

	c := &Context{integrityAlgorithm: alg}
	if err := c.setKEnb(kEnb); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Context) setKEnb(kEnb []byte) error {
	kRrcInt, err := DeriveKRrcInt(kEnb, c.integrityAlgorithm)
	if err != nil {
		return err
	}
	c.kEnb, c.kRrcInt = kEnb, kRrcInt
	c.count.Set(0, 0)
	return nil
}

// Protect appends the MAC-I to a downlink SRB1 PDU and advances COUNT.
func (c *Context) Protect(pdu []byte) ([]byte, error) {
	macI, err := ComputeMacI(c.integrityAlgorithm, c.kRrcInt, c.count.Get(), SRB1_BEARER, pdu)
	if err != nil {
		return nil, err
	}
	c.count.AddOne()

	protected := make([]byte, 0, len(pdu)+MAC_I_SIZE)
	protected = append(protected, pdu...)
	return append(protected, macI...), nil
}

// Verify checks the MAC-I of a received SRB1 PDU against COUNT and returns the PDU without it.
func (c *Context) Verify(protected []byte) ([]byte, error) {
	if len(protected) < MAC_I_SIZE {
		return nil, fmt.Errorf("%w: pdu shorter than mac-i", ErrIntegrity)
	}
	pdu := protected[:len(protected)-MAC_I_SIZE]
	macI, err := ComputeMacI(c.integrityAlgorithm, c.kRrcInt, c.count.Get(), SRB1_BEARER, pdu)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(macI, protected[len(pdu):]) != 1 {
		return nil, fmt.Errorf("%w: mac-i mismatch at count %d", ErrIntegrity, c.count.Get())
	}
	c.count.AddOne()
	return pdu, nil
}

// Rekey moves the context to KeNB* of the target cell and restarts COUNT.
func (c *Context) Rekey(pci uint16, earfcn uint32) error {
	kEnbStar, err := DeriveKeNbStar(c.kEnb, pci, earfcn)
	if err != nil {
		return err
	}
	return c.setKEnb(kEnbStar)
}

func (c *Context) Count() uint32 {
	return c.count.Get()
}

func (c *Context) KEnbHex() string {
	return hex.EncodeToString(c.kEnb)
}

func (c *Context) Clone() *Context {
	clone := *c
	clone.kEnb = append([]byte(nil), c.kEnb...)
	return &clone
}
