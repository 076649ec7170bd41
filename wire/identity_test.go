package wire

import (
	"net"
	"testing"
)

func TestAnnouncementRoundtrip(t *testing.T) {
	plain := EncodeAnnouncement(false)
	detail, err := DecodeAnnouncement(plain)
	if err != nil {
		t.Fatalf("DecodeAnnouncement(plain): %v", err)
	}
	if detail {
		t.Error("plain announcement decoded with detail=true")
	}

	withDetail := EncodeAnnouncement(true)
	detail, err = DecodeAnnouncement(withDetail)
	if err != nil {
		t.Fatalf("DecodeAnnouncement(detailed): %v", err)
	}
	if !detail {
		t.Error("detailed announcement decoded with detail=false")
	}
}

func TestDecodeAnnouncementRejectsGarbage(t *testing.T) {
	if _, err := DecodeAnnouncement([]byte{0x00}); err == nil {
		t.Error("expected error for too-short input")
	}
	bad := append([]byte(nil), EncodeAnnouncement(false)...)
	bad[0] = 0x00
	if _, err := DecodeAnnouncement(bad); err == nil {
		t.Error("expected error for wrong command byte")
	}
}

func TestReplyRoundtrip(t *testing.T) {
	id := Identity{
		Name:            "bay-1",
		MAC:             [6]byte{0x00, 0x25, 0x5c, 0xba, 0x5a, 0x00},
		FPGAVersion:     [4]byte{1, 2, 3, 4},
		FirmwareVersion: [4]byte{0, 1, 2, 3},
	}

	wire := EncodeReply(id)
	got, err := DecodeReply(wire, net.ParseIP("10.0.0.5"))
	if err != nil {
		t.Fatalf("DecodeReply: %v", err)
	}

	id.IP = net.ParseIP("10.0.0.5")
	if !got.Equal(id) {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", got, id)
	}
}

func TestReplyRoundtripWithDetail(t *testing.T) {
	id := Identity{
		Name:            "bay-2",
		MAC:             [6]byte{1, 2, 3, 4, 5, 6},
		FPGAVersion:     [4]byte{0, 0, 0, 1},
		FirmwareVersion: [4]byte{0, 2, 0, 0},
		Detailed:        &DetailedBlock{},
	}
	id.Detailed.Raw[offBootType] = 0x02
	id.Detailed.Raw[offCafePower] = 1

	wire := EncodeReply(id)
	got, err := DecodeReply(wire, net.ParseIP("10.0.0.6"))
	if err != nil {
		t.Fatalf("DecodeReply: %v", err)
	}
	if got.Detailed == nil {
		t.Fatal("expected a detailed block")
	}
	if !got.Detailed.BootType().Known || got.Detailed.BootType().String() != "PCFS" {
		t.Errorf("BootType = %v, want known PCFS", got.Detailed.BootType())
	}
	if !got.Detailed.CafePowerOn() {
		t.Error("CafePowerOn should be true")
	}
}

func TestDecodeReplyRejectsShortInput(t *testing.T) {
	if _, err := DecodeReply([]byte{cmdReply}, nil); err == nil {
		t.Error("expected error for short reply")
	}
}

func TestBootTypeUnknown(t *testing.T) {
	bt := BootType{Known: false, Code: 0x09}
	if bt.String() != "Unk(9)" {
		t.Errorf("String() = %q, want Unk(9)", bt.String())
	}
}

func TestFirmwareString(t *testing.T) {
	id := Identity{FirmwareVersion: [4]byte{0, 1, 2, 3}}
	if got := id.FirmwareString(); got != "0.1.2.3" {
		t.Errorf("FirmwareString() = %q, want 0.1.2.3", got)
	}
}

func TestFPGAVersionHex(t *testing.T) {
	id := Identity{FPGAVersion: [4]byte{0x01, 0x02, 0x03, 0x04}}
	if got := id.FPGAVersionHex(); got != "04030201" {
		t.Errorf("FPGAVersionHex() = %q, want 04030201", got)
	}
}

func TestMACString(t *testing.T) {
	id := Identity{MAC: [6]byte{0x00, 0x25, 0x5c, 0xba, 0x5a, 0x00}}
	if got := id.MACString(); got != "00-25-5C-BA-5A-00" {
		t.Errorf("MACString() = %q, want 00-25-5C-BA-5A-00", got)
	}
}

func TestIdentityEqual(t *testing.T) {
	a := Identity{Name: "x", IP: net.ParseIP("10.0.0.1"), MAC: [6]byte{1}}
	b := a
	if !a.Equal(b) {
		t.Error("identical identities should be Equal")
	}
	b.Name = "y"
	if a.Equal(b) {
		t.Error("differing names should not be Equal")
	}
}
