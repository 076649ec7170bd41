// Package wire implements the byte-level encoders and decoders for the MION
// bridge protocols: UDP identity announce/reply and TCP parameter-space
// read/write. Encoders are total functions; decoders return one of the
// DecodeError kinds below on malformed input.
package wire

import "fmt"

// ErrorKind discriminates the ways a decode can fail.
type ErrorKind int

const (
	// KindUnknownCommand: the leading command byte wasn't recognized.
	KindUnknownCommand ErrorKind = iota
	// KindFieldEncodedIncorrectly: a fixed literal (e.g. the identity magic
	// string) didn't match what was expected.
	KindFieldEncodedIncorrectly
	// KindFieldNotLongEnough: a length-prefixed field claims more bytes than
	// are available.
	KindFieldNotLongEnough
	// KindNotEnoughData: the buffer is shorter than the minimum required.
	KindNotEnoughData
	// KindUnexpectedTrailer: the buffer has bytes left over after a
	// well-formed packet of fixed shape.
	KindUnexpectedTrailer
	// KindPacketDoesntMatchStaticPayload: a packet whose every byte is fixed
	// (e.g. the dump request) didn't match byte-for-byte.
	KindPacketDoesntMatchStaticPayload
	// KindUnknownParamsPacketType: the parameter packet type field (Read=0,
	// Write=1) held something else.
	KindUnknownParamsPacketType
	// KindParamsPacketErrorCode: the device reported a non-zero status in a
	// parameter response.
	KindParamsPacketErrorCode
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnknownCommand:
		return "unknown command"
	case KindFieldEncodedIncorrectly:
		return "field encoded incorrectly"
	case KindFieldNotLongEnough:
		return "field not long enough"
	case KindNotEnoughData:
		return "not enough data"
	case KindUnexpectedTrailer:
		return "unexpected trailer"
	case KindPacketDoesntMatchStaticPayload:
		return "packet doesn't match static payload"
	case KindUnknownParamsPacketType:
		return "unknown params packet type"
	case KindParamsPacketErrorCode:
		return "params packet error code"
	default:
		return "unknown decode error"
	}
}

// DecodeError is the concrete error type returned by every decoder in this
// package. Callers that need to branch on the failure mode should use
// errors.As to recover one of these and switch on Kind.
type DecodeError struct {
	Kind ErrorKind

	// Packet/Field name the error applies to, e.g. "identity-reply"/"name-length".
	Packet string
	Field  string

	// Expected/Got are populated for length mismatches; Code is populated
	// for KindUnknownCommand, KindUnknownParamsPacketType and
	// KindParamsPacketErrorCode.
	Expected int
	Got      int
	Code     int64

	// Bytes holds the offending trailer for KindUnexpectedTrailer.
	Bytes []byte
}

func (e *DecodeError) Error() string {
	switch e.Kind {
	case KindUnknownCommand:
		return fmt.Sprintf("%s: unknown command byte 0x%02x", e.Packet, e.Code)
	case KindFieldEncodedIncorrectly:
		return fmt.Sprintf("%s: field %q encoded incorrectly", e.Packet, e.Field)
	case KindFieldNotLongEnough:
		return fmt.Sprintf("%s: field %q not long enough: need %d, have %d", e.Packet, e.Field, e.Expected, e.Got)
	case KindNotEnoughData:
		return fmt.Sprintf("%s: not enough data: expected at least %d bytes, got %d", e.Packet, e.Expected, e.Got)
	case KindUnexpectedTrailer:
		return fmt.Sprintf("%s: unexpected trailer of %d byte(s)", e.Packet, len(e.Bytes))
	case KindPacketDoesntMatchStaticPayload:
		return fmt.Sprintf("%s: packet doesn't match its fixed static payload", e.Packet)
	case KindUnknownParamsPacketType:
		return fmt.Sprintf("%s: unknown parameter packet type %d", e.Packet, e.Code)
	case KindParamsPacketErrorCode:
		return fmt.Sprintf("%s: device reported error code %d", e.Packet, e.Code)
	default:
		return fmt.Sprintf("%s: decode error", e.Packet)
	}
}

func errUnknownCommand(packet string, got byte) error {
	return &DecodeError{Kind: KindUnknownCommand, Packet: packet, Code: int64(got)}
}

func errFieldEncodedIncorrectly(packet, field string) error {
	return &DecodeError{Kind: KindFieldEncodedIncorrectly, Packet: packet, Field: field}
}

func errNotEnoughData(packet string, expected, got int) error {
	return &DecodeError{Kind: KindNotEnoughData, Packet: packet, Expected: expected, Got: got}
}

func errUnexpectedTrailer(packet string, trailer []byte) error {
	return &DecodeError{Kind: KindUnexpectedTrailer, Packet: packet, Bytes: trailer}
}

func errStaticMismatch(packet string) error {
	return &DecodeError{Kind: KindPacketDoesntMatchStaticPayload, Packet: packet}
}

func errUnknownParamsPacketType(packet string, got int32) error {
	return &DecodeError{Kind: KindUnknownParamsPacketType, Packet: packet, Code: int64(got)}
}

func errParamsPacketErrorCode(packet string, code int32) error {
	return &DecodeError{Kind: KindParamsPacketErrorCode, Packet: packet, Code: int64(code)}
}
