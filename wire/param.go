package wire

import "encoding/binary"

// ParamPacketType distinguishes a Read (dump) from a Write (set) parameter
// packet.
type ParamPacketType int32

const (
	ParamRead  ParamPacketType = 0
	ParamWrite ParamPacketType = 1
)

const (
	paramHeaderLen  = 8
	paramPayloadLen = 512

	dumpResponseLen = paramHeaderLen + paramPayloadLen // 520
	setRequestLen   = paramHeaderLen + paramPayloadLen
	setResponseLen  = paramHeaderLen + 4 // 12
)

// ParamHeader is the 8-byte little-endian header shared by every parameter
// packet: a 4-byte packet type and a 4-byte length-or-status field.
type ParamHeader struct {
	Type          ParamPacketType
	LengthOrState int32
}

// Encode writes the 8-byte wire form of the header.
func (h ParamHeader) Encode() []byte {
	buf := make([]byte, paramHeaderLen)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.Type))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(h.LengthOrState))
	return buf
}

// decodeParamHeader parses the fixed 8-byte header. It never fails on
// well-formed 8-byte input; callers are responsible for checking length
// beforehand via the enclosing packet decoder.
func decodeParamHeader(b []byte) ParamHeader {
	return ParamHeader{
		Type:          ParamPacketType(int32(binary.LittleEndian.Uint32(b[0:4]))),
		LengthOrState: int32(binary.LittleEndian.Uint32(b[4:8])),
	}
}

// EncodeDumpRequest returns the fixed 8 zero bytes that make up a dump
// (parameter read) request.
func EncodeDumpRequest() []byte {
	return make([]byte, paramHeaderLen)
}

// DecodeDumpRequest validates that b is exactly the expected all-zero dump
// request. Used by test fixtures / servers, not by the host-side client.
func DecodeDumpRequest(b []byte) error {
	want := EncodeDumpRequest()
	if len(b) != len(want) {
		return errNotEnoughData("dump-request", len(want), len(b))
	}
	for i := range want {
		if b[i] != want[i] {
			return errStaticMismatch("dump-request")
		}
	}
	return nil
}

// ParamDump wraps exactly 512 bytes of opaque parameter-space state.
type ParamDump struct {
	Bytes [paramPayloadLen]byte
}

const (
	offNANDMode = 2
	offSDKMajor = 3
	offSDKMinor = 4
	offSDKMisc  = 5
)

// EncodeDumpResponse builds the wire form of a successful dump response:
// header (Read, 512) followed by the 512-byte payload.
func EncodeDumpResponse(d ParamDump) []byte {
	h := ParamHeader{Type: ParamRead, LengthOrState: paramPayloadLen}
	out := make([]byte, 0, dumpResponseLen)
	out = append(out, h.Encode()...)
	out = append(out, d.Bytes[:]...)
	return out
}

// DecodeDumpResponse parses a dump response. The total length must be
// exactly 520 bytes; a header type other than Read is an unknown packet
// type, and a Read header whose length field is not 512 is treated as a
// device error code.
func DecodeDumpResponse(b []byte) (ParamDump, error) {
	if len(b) != dumpResponseLen {
		return ParamDump{}, errNotEnoughData("dump-response", dumpResponseLen, len(b))
	}
	h := decodeParamHeader(b[:paramHeaderLen])
	if h.Type != ParamRead {
		return ParamDump{}, errUnknownParamsPacketType("dump-response", int32(h.Type))
	}
	if h.LengthOrState != paramPayloadLen {
		return ParamDump{}, errParamsPacketErrorCode("dump-response", h.LengthOrState)
	}
	var d ParamDump
	copy(d.Bytes[:], b[paramHeaderLen:])
	return d, nil
}

// EncodeSetRequest builds a parameter write request: header (Write, 512)
// followed by the 512-byte payload to commit.
func EncodeSetRequest(d ParamDump) []byte {
	h := ParamHeader{Type: ParamWrite, LengthOrState: paramPayloadLen}
	out := make([]byte, 0, setRequestLen)
	out = append(out, h.Encode()...)
	out = append(out, d.Bytes[:]...)
	return out
}

// DecodeSetRequest is the inverse of EncodeSetRequest, used by test
// fixtures / servers.
func DecodeSetRequest(b []byte) (ParamDump, error) {
	if len(b) != setRequestLen {
		return ParamDump{}, errNotEnoughData("set-request", setRequestLen, len(b))
	}
	h := decodeParamHeader(b[:paramHeaderLen])
	if h.Type != ParamWrite {
		return ParamDump{}, errUnknownParamsPacketType("set-request", int32(h.Type))
	}
	if h.LengthOrState != paramPayloadLen {
		return ParamDump{}, errParamsPacketErrorCode("set-request", h.LengthOrState)
	}
	var d ParamDump
	copy(d.Bytes[:], b[paramHeaderLen:])
	return d, nil
}

// SetStatus is the device-reported outcome of a parameter write.
type SetStatus int32

// Success reports whether the write committed with no error.
func (s SetStatus) Success() bool { return s == 0 }

// EncodeSetResponse builds a write response: header (Write, 4) followed by
// the 4-byte little-endian return code.
func EncodeSetResponse(status SetStatus) []byte {
	h := ParamHeader{Type: ParamWrite, LengthOrState: 4}
	out := make([]byte, 0, setResponseLen)
	out = append(out, h.Encode()...)
	code := make([]byte, 4)
	binary.LittleEndian.PutUint32(code, uint32(int32(status)))
	out = append(out, code...)
	return out
}

// DecodeSetResponse parses a write response. Total length must be exactly
// 12 bytes. Returns the device status verbatim (0 = success) -- a non-zero
// status is data, not a decode error; it is the caller's job to treat it as
// a device-reported failure.
func DecodeSetResponse(b []byte) (SetStatus, error) {
	if len(b) != setResponseLen {
		return 0, errNotEnoughData("set-response", setResponseLen, len(b))
	}
	h := decodeParamHeader(b[:paramHeaderLen])
	if h.Type != ParamWrite {
		return 0, errUnknownParamsPacketType("set-response", int32(h.Type))
	}
	if h.LengthOrState != 4 {
		return 0, errParamsPacketErrorCode("set-response", h.LengthOrState)
	}
	status := int32(binary.LittleEndian.Uint32(b[paramHeaderLen:]))
	return SetStatus(status), nil
}
