package tables

import (
	"testing"

	"github.com/jangala-dev/sja1105-go/portdesc"
	"github.com/jangala-dev/sja1105-go/tablestore"
)

func newMACConfTable(t *testing.T) *tablestore.Table {
	t.Helper()
	s := tablestore.New(nil, nil)
	tbl, err := s.AllocateFixed(tablestore.BlockMACConfiguration, 40)
	if err != nil {
		t.Fatalf("AllocateFixed: %v", err)
	}
	return tbl
}

func TestMACConfiguration_IngressEgressDynLearnRoundTrip(t *testing.T) {
	tbl := newMACConfTable(t)

	SetIngress(tbl, 2, true)
	SetEgress(tbl, 2, true)
	SetDynLearn(tbl, 2, false)

	if !GetIngress(tbl, 2) || !GetEgress(tbl, 2) {
		t.Fatal("expected ingress and egress set")
	}
	if GetDynLearn(tbl, 2) {
		t.Fatal("expected dyn-learn clear")
	}

	// Other ports must be untouched.
	if GetIngress(tbl, 0) || GetEgress(tbl, 1) {
		t.Fatal("expected unrelated ports to be unaffected")
	}
}

func TestMACConfiguration_SpeedFieldDoesNotClobberOtherBits(t *testing.T) {
	tbl := newMACConfTable(t)

	SetIngress(tbl, 1, true)
	SetSpeed(tbl, 1, MACSpeed100M)

	if !GetIngress(tbl, 1) {
		t.Fatal("expected ingress bit preserved across speed write")
	}
	if GetSpeed(tbl, 1) != MACSpeed100M {
		t.Fatalf("expected speed 100M, got %v", GetSpeed(tbl, 1))
	}

	SetSpeed(tbl, 1, MACSpeed1G)
	if !GetIngress(tbl, 1) {
		t.Fatal("expected ingress bit still preserved")
	}
	if GetSpeed(tbl, 1) != MACSpeed1G {
		t.Fatalf("expected speed 1G, got %v", GetSpeed(tbl, 1))
	}
}

func TestResetPort_SetsAllThreeBitsUniformly(t *testing.T) {
	tbl := newMACConfTable(t)
	ResetPort(tbl, 3, true)
	if !GetIngress(tbl, 3) || !GetEgress(tbl, 3) || !GetDynLearn(tbl, 3) {
		t.Fatal("expected all three bits enabled")
	}
	ResetPort(tbl, 3, false)
	if GetIngress(tbl, 3) || GetEgress(tbl, 3) || GetDynLearn(tbl, 3) {
		t.Fatal("expected all three bits cleared")
	}
}

func TestValidateMACConfiguration_DetectsMismatch(t *testing.T) {
	tbl := newMACConfTable(t)
	SetSpeed(tbl, 0, MACSpeed100M)

	var ports [5]portdesc.Descriptor
	ports[0] = portdesc.Descriptor{Port: 0, Speed: portdesc.Speed1G}

	if err := ValidateMACConfiguration(tbl, ports); err == nil {
		t.Fatal("expected speed mismatch error")
	}

	ports[0].Speed = portdesc.Speed100M
	if err := ValidateMACConfiguration(tbl, ports); err != nil {
		t.Fatalf("expected match, got: %v", err)
	}
}

func TestWritePortEntry_ReturnsSevenWordsExcludingWordZero(t *testing.T) {
	tbl := newMACConfTable(t)
	for i := 1; i < 8; i++ {
		tbl.SetWord(uint32(2*macEntryWords+i), uint32(i*10))
	}
	got := WritePortEntry(tbl, 2)
	for i := 0; i < 7; i++ {
		if got[i] != uint32((i+1)*10) {
			t.Fatalf("word %d: got %d", i, got[i])
		}
	}
}

func newGeneralParamsTable(t *testing.T) *tablestore.Table {
	t.Helper()
	s := tablestore.New(nil, nil)
	tbl, err := s.AllocateFixed(tablestore.BlockGeneralParameters, 11)
	if err != nil {
		t.Fatalf("AllocateFixed: %v", err)
	}
	return tbl
}

func TestGeneralParameters_HostPortField(t *testing.T) {
	tbl := newGeneralParamsTable(t)
	tbl.SetWord(4, uint32(3)<<hostPortShift)

	if got := GetHostPort(tbl); got != 3 {
		t.Fatalf("expected host port 3, got %d", got)
	}
	if err := ValidateGeneralParameters(tbl, 3); err != nil {
		t.Fatalf("expected match, got: %v", err)
	}
	if err := ValidateGeneralParameters(tbl, 4); err == nil {
		t.Fatal("expected host-port mismatch error")
	}
}

func TestGeneralParameters_MACFilterStraddlesWords(t *testing.T) {
	tbl := newGeneralParamsTable(t)
	// Field 0 starts at bit 152 = word 4, byte 3 (MSB byte of word 4).
	tbl.SetWord(4, 0xAA000000)
	tbl.SetWord(5, 0x665544)
	// field0 bytes: [0xAA, 0x44, 0x55, 0x66, 0x00, ...]
	// word5 = 0x00665544 -> bytes (LE within word): b0=0x44 b1=0x55 b2=0x66 b3=0x00
	got := GetMACFilters(tbl)
	if got[0][0] != 0xAA {
		t.Fatalf("expected first filter byte 0xAA, got %#x", got[0][0])
	}
	if got[0][1] != 0x44 || got[0][2] != 0x55 {
		t.Fatalf("expected filter bytes to continue into word 5, got %+v", got[0])
	}
}

func newXMIITable(t *testing.T) *tablestore.Table {
	t.Helper()
	s := tablestore.New(nil, nil)
	tbl, err := s.AllocateFixed(tablestore.BlockXMIIModeParameters, 1)
	if err != nil {
		t.Fatalf("AllocateFixed: %v", err)
	}
	return tbl
}

func TestXMIIMode_PerPortFieldsIndependent(t *testing.T) {
	tbl := newXMIITable(t)

	SetXMIIPort(tbl, 0, portdesc.InterfaceRGMII, portdesc.RolePHY)
	SetXMIIPort(tbl, 1, portdesc.InterfaceMII, portdesc.RoleMAC)

	if got := GetXMIIInterface(tbl, 0); got != portdesc.InterfaceRGMII {
		t.Fatalf("port 0 interface: got %v", got)
	}
	if got := GetXMIIRole(tbl, 0); got != portdesc.RolePHY {
		t.Fatalf("port 0 role: got %v", got)
	}
	if got := GetXMIIInterface(tbl, 1); got != portdesc.InterfaceMII {
		t.Fatalf("port 1 interface: got %v", got)
	}
	if got := GetXMIIRole(tbl, 1); got != portdesc.RoleMAC {
		t.Fatalf("port 1 role: got %v", got)
	}
}

func TestValidateXMIIModeParameters_RMIIRefclkSpecialCase(t *testing.T) {
	tbl := newXMIITable(t)
	SetXMIIPort(tbl, 4, portdesc.InterfaceRMII, portdesc.RoleMAC)

	desc := portdesc.Descriptor{
		Port: 4, Configured: true,
		Interface: portdesc.InterfaceRMII, Role: portdesc.RolePHY,
		OutputRMIIRefclk: true,
	}
	if err := ValidateXMIIModeParameters(tbl, desc); err != nil {
		t.Fatalf("expected refclk-output PHY special case to pass, got: %v", err)
	}

	desc.OutputRMIIRefclk = false
	if err := ValidateXMIIModeParameters(tbl, desc); err == nil {
		t.Fatal("expected role mismatch once special case no longer applies")
	}
}

func TestValidateXMIIModeParameters_SGMIIMustBeMAC(t *testing.T) {
	tbl := newXMIITable(t)
	// SetXMIIPort with RolePHY leaves the silicon role bit set even
	// though SGMII always implies role=MAC on the wire in practice; the
	// validator must still catch this inconsistency.
	SetXMIIPort(tbl, 3, portdesc.InterfaceSGMII, portdesc.RolePHY)

	desc := portdesc.Descriptor{Port: 3, Configured: true, Interface: portdesc.InterfaceSGMII, Role: portdesc.RoleMAC}
	if err := ValidateXMIIModeParameters(tbl, desc); err == nil {
		t.Fatal("expected SGMII role=PHY in silicon to be rejected")
	}
}
