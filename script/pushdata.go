package script

import "math"

// Opcodes used by the codec. Only the subset this wallet engine constructs or
// recognizes is defined here; everything else is rejected by the parsers.
const (
	Op0                   = 0x00
	OpPUSHDATA1           = 0x4c
	OpPUSHDATA2           = 0x4d
	OpPUSHDATA4           = 0x4e
	Op1NEGATE             = 0x4f
	Op1                   = 0x51
	Op16                  = 0x60
	OpRETURN              = 0x6a
	OpDROP                = 0x75
	OpDUP                 = 0x76
	OpEQUALVERIFY         = 0x88
	OpHASH160             = 0xa9
	OpCHECKSIG            = 0xac
	OpCHECKLOCKTIMEVERIFY = 0xb1
)

// maxDirectPush is the largest payload a bare length byte can carry.
const maxDirectPush = 75

// ReadPushData decodes the push operation starting at pos. It handles OP_0,
// OP_1..OP_16 (returned as their one-byte numeric value), direct pushes of
// 1-75 bytes, and OP_PUSHDATA1/2/4 with little-endian length prefixes.
//
// Returns the pushed data, the offset of the next opcode, and ok=false when
// the byte at pos is not a push or the declared length runs past the end of
// the buffer. Truncated scripts are a normal outcome, never a panic.
func ReadPushData(buf []byte, pos int) (data []byte, next int, ok bool) {
	if pos < 0 || pos >= len(buf) {
		return nil, 0, false
	}

	op := buf[pos]
	switch {
	case op == Op0:
		return []byte{}, pos + 1, true

	case op >= Op1 && op <= Op16:
		return []byte{op - Op1 + 1}, pos + 1, true

	case op >= 1 && op <= maxDirectPush:
		length := int(op)
		return sliceChecked(buf, pos+1, length)

	case op == OpPUSHDATA1:
		if pos+2 > len(buf) {
			return nil, 0, false
		}
		length := int(buf[pos+1])
		return sliceChecked(buf, pos+2, length)

	case op == OpPUSHDATA2:
		if pos+3 > len(buf) {
			return nil, 0, false
		}
		length := int(buf[pos+1]) | int(buf[pos+2])<<8
		return sliceChecked(buf, pos+3, length)

	case op == OpPUSHDATA4:
		if pos+5 > len(buf) {
			return nil, 0, false
		}
		length := int(uint32(buf[pos+1]) | uint32(buf[pos+2])<<8 |
			uint32(buf[pos+3])<<16 | uint32(buf[pos+4])<<24)
		if length < 0 {
			return nil, 0, false
		}
		return sliceChecked(buf, pos+5, length)

	default:
		return nil, 0, false
	}
}

// sliceChecked returns buf[start:start+length] only if it fits.
func sliceChecked(buf []byte, start, length int) ([]byte, int, bool) {
	if start+length > len(buf) {
		return nil, 0, false
	}
	return buf[start : start+length], start + length, true
}

// WritePushData appends the minimal push operation for data to dst and
// returns the extended slice. Empty data is encoded as OP_0; single bytes
// 1-16 use the OP_1..OP_16 short form.
func WritePushData(dst []byte, data []byte) []byte {
	switch {
	case len(data) == 0:
		return append(dst, Op0)

	case len(data) == 1 && data[0] >= 1 && data[0] <= 16:
		return append(dst, Op1+data[0]-1)

	case len(data) <= maxDirectPush:
		dst = append(dst, byte(len(data)))
		return append(dst, data...)

	case len(data) <= math.MaxUint8:
		dst = append(dst, OpPUSHDATA1, byte(len(data)))
		return append(dst, data...)

	case len(data) <= math.MaxUint16:
		dst = append(dst, OpPUSHDATA2, byte(len(data)), byte(len(data)>>8))
		return append(dst, data...)

	default:
		dst = append(dst, OpPUSHDATA4,
			byte(len(data)), byte(len(data)>>8), byte(len(data)>>16), byte(len(data)>>24))
		return append(dst, data...)
	}
}

// WritePushNumber appends a push of n encoded as a minimal script number.
func WritePushNumber(dst []byte, n int64) []byte {
	return WritePushData(dst, EncodeScriptNum(n))
}
