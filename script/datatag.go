package script

// BuildDataTagScript builds a zero-value provably unspendable output script
// carrying application data pushes:
//
//	OP_FALSE OP_RETURN <push>...
//
// Lock creation uses this to link a time-lock to other application state
// (e.g. an ordinal origin reference).
func BuildDataTagScript(pushes ...[]byte) []byte {
	s := []byte{Op0, OpRETURN}
	for _, p := range pushes {
		s = WritePushData(s, p)
	}
	return s
}

// ParseDataTagScript returns the data pushes of an OP_FALSE OP_RETURN script,
// or nil if the script is not a data tag or is malformed.
func ParseDataTagScript(scriptBytes []byte) [][]byte {
	if len(scriptBytes) < 2 || scriptBytes[0] != Op0 || scriptBytes[1] != OpRETURN {
		return nil
	}
	pushes := [][]byte{}
	pos := 2
	for pos < len(scriptBytes) {
		data, next, ok := ReadPushData(scriptBytes, pos)
		if !ok {
			return nil
		}
		pushes = append(pushes, data)
		pos = next
	}
	return pushes
}
