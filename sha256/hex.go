package sha256

const hexDigits = "0123456789abcdef"

// AppendHex appends the 64-character lowercase hex encoding of sum to dst
// and returns the extended slice, two digits per byte, high nibble first.
// It allocates only if dst lacks capacity.
func AppendHex(dst []byte, sum [Size]byte) []byte {
	for _, b := range sum {
		dst = append(dst, hexDigits[b>>4], hexDigits[b&0x0f])
	}
	return dst
}

// EncodeHex writes the 64-character lowercase hex encoding of sum into dst,
// which must be at least HexSize bytes long.
func EncodeHex(dst []byte, sum [Size]byte) {
	_ = dst[HexSize-1]
	for i, b := range sum {
		dst[2*i] = hexDigits[b>>4]
		dst[2*i+1] = hexDigits[b&0x0f]
	}
}

// HexString returns the 64-character lowercase hex encoding of sum.
func HexString(sum [Size]byte) string {
	return string(AppendHex(make([]byte, 0, HexSize), sum))
}
