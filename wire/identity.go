package wire

import (
	"bytes"
	"net"
	"strconv"
)

// Identity announcement (request) command byte and literal.
const (
	cmdAnnouncement byte = 0x2A
	cmdReply        byte = 0x20

	announcementLiteral = "MULTI_I/O_NETWORK_BOARD"
	detailMarker        = "enumV1"

	announcementBaseLen   = 25 // 1 (cmd) + 23 (literal) + 1 (terminator)
	announcementDetailLen = 33 // base + 6 (detailMarker) + 2 (zero terminator)

	detailedBlockLen = 239

	// Fixed offsets into the detailed block.
	offSDKVersion = 227
	offBootType   = 232
	offCafePower  = 233
)

// BootType names the device's recorded boot type (detailed block, byte 232).
type BootType struct {
	// Known is true when the byte matched a recognized boot type.
	Known bool
	// Code is the raw byte value.
	Code byte
}

// String renders "PCFS" for the one documented boot type, or "Unk(n)"
// otherwise.
func (b BootType) String() string {
	if b.Known {
		return "PCFS"
	}
	return "Unk(" + strconv.Itoa(int(b.Code)) + ")"
}

// DetailedBlock is the optional 239-byte tail of an identity reply. Only the
// five documented offsets are interpreted; the rest is preserved verbatim
// for equality/round-trip purposes.
type DetailedBlock struct {
	Raw [detailedBlockLen]byte
}

// SDKVersion returns the 4-byte SDK version field at offset 227.
func (d DetailedBlock) SDKVersion() [4]byte {
	var v [4]byte
	copy(v[:], d.Raw[offSDKVersion:offSDKVersion+4])
	return v
}

// BootType returns the decoded boot-type byte at offset 232. Only 0x02
// ("PCFS") is documented; any other value is reported as Unk(n).
func (d DetailedBlock) BootType() BootType {
	code := d.Raw[offBootType]
	return BootType{Known: code == 0x02, Code: code}
}

// CafePowerOn reports whether the cafe_power byte (offset 233) is non-zero.
func (d DetailedBlock) CafePowerOn() bool {
	return d.Raw[offCafePower] != 0
}

// Identity is a decoded identity reply, immutable once constructed. Equality
// is structural, including the detailed block.
type Identity struct {
	Name            string
	IP              net.IP
	MAC             [6]byte
	FPGAVersion     [4]byte
	FirmwareVersion [4]byte
	Detailed        *DetailedBlock
}

// Equal reports structural equality, including the detailed block.
func (id Identity) Equal(other Identity) bool {
	if id.Name != other.Name || !id.IP.Equal(other.IP) || id.MAC != other.MAC ||
		id.FPGAVersion != other.FPGAVersion || id.FirmwareVersion != other.FirmwareVersion {
		return false
	}
	if (id.Detailed == nil) != (other.Detailed == nil) {
		return false
	}
	if id.Detailed != nil && id.Detailed.Raw != other.Detailed.Raw {
		return false
	}
	return true
}

// FirmwareString renders the firmware version as "0.{b1}.{b2}.{b3}", where
// b0..b3 are the bytes of the 4-byte field -- the leading byte b0 is not
// shown in the display form.
func (id Identity) FirmwareString() string {
	v := id.FirmwareVersion
	return "0." + strconv.Itoa(int(v[1])) + "." + strconv.Itoa(int(v[2])) + "." + strconv.Itoa(int(v[3]))
}

// FPGAVersionHex renders the FPGA version printed little-endian-reversed.
func (id Identity) FPGAVersionHex() string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 0, 8)
	for i := len(id.FPGAVersion) - 1; i >= 0; i-- {
		b := id.FPGAVersion[i]
		out = append(out, hexdigits[b>>4], hexdigits[b&0xf])
	}
	return string(out)
}

// MACString renders the MAC as colon-free hyphenated hex, e.g. "00-25-5C-BA-5A-00".
func (id Identity) MACString() string {
	const hexdigits = "0123456789ABCDEF"
	out := make([]byte, 0, 17)
	for i, b := range id.MAC {
		if i > 0 {
			out = append(out, '-')
		}
		out = append(out, hexdigits[b>>4], hexdigits[b&0xf])
	}
	return string(out)
}

// EncodeAnnouncement builds an identity announcement request. When detail is
// true, the request asks the bridge to append its detailed block to the
// reply.
func EncodeAnnouncement(detail bool) []byte {
	buf := make([]byte, 0, announcementDetailLen)
	buf = append(buf, cmdAnnouncement)
	buf = append(buf, announcementLiteral...)
	buf = append(buf, 0x00)
	if detail {
		buf = append(buf, detailMarker...)
		buf = append(buf, 0x00, 0x00)
	}
	return buf
}

// DecodeAnnouncement validates a received identity announcement (used by
// servers/test fixtures that need to accept the request shape; the bridge
// host side only ever encodes these). Returns whether detail was requested.
func DecodeAnnouncement(b []byte) (detail bool, err error) {
	if len(b) < announcementBaseLen {
		return false, errNotEnoughData("identity-announcement", announcementBaseLen, len(b))
	}
	if b[0] != cmdAnnouncement {
		return false, errUnknownCommand("identity-announcement", b[0])
	}
	if !bytes.Equal(b[1:1+len(announcementLiteral)], []byte(announcementLiteral)) {
		return false, errFieldEncodedIncorrectly("identity-announcement", "literal")
	}
	if b[1+len(announcementLiteral)] != 0x00 {
		return false, errFieldEncodedIncorrectly("identity-announcement", "terminator")
	}
	switch {
	case len(b) == announcementBaseLen:
		return false, nil
	case len(b) == announcementDetailLen:
		if !bytes.Equal(b[announcementBaseLen:announcementBaseLen+len(detailMarker)], []byte(detailMarker)) {
			return false, errFieldEncodedIncorrectly("identity-announcement", "detail-marker")
		}
		if b[announcementDetailLen-2] != 0x00 || b[announcementDetailLen-1] != 0x00 {
			return false, errFieldEncodedIncorrectly("identity-announcement", "detail-terminator")
		}
		return true, nil
	default:
		return false, errUnexpectedTrailer("identity-announcement", b[announcementBaseLen:])
	}
}

// DecodeReply parses an identity reply. srcIP is the UDP datagram's source
// address, attached to the resulting Identity.
func DecodeReply(b []byte, srcIP net.IP) (Identity, error) {
	const headerLen = 16 // cmd(1) + mac(6) + namelen(1) + fpga(4) + fw(4)
	if len(b) < headerLen {
		return Identity{}, errNotEnoughData("identity-reply", headerLen, len(b))
	}
	if b[0] != cmdReply {
		return Identity{}, errUnknownCommand("identity-reply", b[0])
	}

	var id Identity
	copy(id.MAC[:], b[1:7])

	nameLen := int(b[7])
	if nameLen < 1 {
		return Identity{}, errFieldEncodedIncorrectly("identity-reply", "name-length")
	}

	copy(id.FPGAVersion[:], b[8:12])
	copy(id.FirmwareVersion[:], b[12:16])

	if headerLen+nameLen > len(b) {
		return Identity{}, errNotEnoughData("identity-reply", headerLen+nameLen, len(b))
	}
	id.Name = string(b[headerLen : headerLen+nameLen])

	tail := b[headerLen+nameLen:]
	switch len(tail) {
	case 0:
		id.Detailed = nil
	case detailedBlockLen:
		d := &DetailedBlock{}
		copy(d.Raw[:], tail)
		id.Detailed = d
	default:
		return Identity{}, errUnexpectedTrailer("identity-reply", tail)
	}

	id.IP = srcIP
	return id, nil
}

// EncodeReply is the inverse of DecodeReply, used by test fixtures that
// need to synthesize a wire-accurate reply.
func EncodeReply(id Identity) []byte {
	nameBytes := []byte(id.Name)
	out := make([]byte, 0, 16+len(nameBytes)+detailedBlockLen)
	out = append(out, cmdReply)
	out = append(out, id.MAC[:]...)
	out = append(out, byte(len(nameBytes)))
	out = append(out, id.FPGAVersion[:]...)
	out = append(out, id.FirmwareVersion[:]...)
	out = append(out, nameBytes...)
	if id.Detailed != nil {
		out = append(out, id.Detailed.Raw[:]...)
	}
	return out
}
