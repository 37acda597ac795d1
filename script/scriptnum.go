package script

// EncodeScriptNum encodes n using Bitcoin's minimal signed-magnitude rule:
// zero encodes as the empty slice; otherwise little-endian magnitude bytes,
// with a sign byte (0x00 or 0x80) appended only when the high bit of the
// last magnitude byte would otherwise be set, or the sign bit folded into
// that byte for negative values.
func EncodeScriptNum(n int64) []byte {
	if n == 0 {
		return []byte{}
	}

	neg := n < 0
	mag := uint64(n)
	if neg {
		mag = uint64(-n)
	}

	var out []byte
	for mag > 0 {
		out = append(out, byte(mag&0xff))
		mag >>= 8
	}

	if out[len(out)-1]&0x80 != 0 {
		if neg {
			out = append(out, 0x80)
		} else {
			out = append(out, 0x00)
		}
	} else if neg {
		out[len(out)-1] |= 0x80
	}

	return out
}

// DecodeScriptNum decodes a minimally encoded script number. ok=false for
// inputs longer than 8 bytes; an empty slice decodes to zero. Non-minimal
// encodings are accepted (on-chain scripts are not re-validated here).
func DecodeScriptNum(b []byte) (int64, bool) {
	if len(b) == 0 {
		return 0, true
	}
	if len(b) > 8 {
		return 0, false
	}

	var mag uint64
	for i := len(b) - 1; i >= 0; i-- {
		mag <<= 8
		v := b[i]
		if i == len(b)-1 {
			v &= 0x7f
		}
		mag |= uint64(v)
	}

	if b[len(b)-1]&0x80 != 0 {
		return -int64(mag), true
	}
	return int64(mag), true
}
