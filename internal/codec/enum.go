package codec

// Code returns the text of a JSON string or number, the form small status
// codes arrive in ("2" or 2).
func Code(data []byte) (string, error) {
	if isNull(data) {
		return "", nil
	}
	return scalarText(data)
}

// Lookup maps a wire code to its enumeration value. Codes that are not in the
// table yield unknown instead of an error so that new exchange codes do not
// break decoding.
func Lookup[K comparable, V any](table map[K]V, code K, unknown V) V {
	if v, ok := table[code]; ok {
		return v
	}
	return unknown
}
