package sha256

import "hash"

// digest adapts Ctx to the standard hash.Hash interface. Sum works on a
// copy of the context, so unlike the raw Ctx API the hasher survives
// summing and callers may keep writing.
type digest struct {
	ctx Ctx
}

// New returns a new hash.Hash computing the SHA-256 checksum.
func New() hash.Hash {
	d := new(digest)
	d.ctx.Init()
	return d
}

func (d *digest) Write(p []byte) (int, error) {
	d.ctx.Update(p)
	return len(p), nil
}

func (d *digest) Sum(in []byte) []byte {
	c := d.ctx
	var sum [Size]byte
	c.Final(&sum)
	return append(in, sum[:]...)
}

func (d *digest) Reset()         { d.ctx.Init() }
func (d *digest) Size() int      { return Size }
func (d *digest) BlockSize() int { return BlockSize }
