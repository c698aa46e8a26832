// Package capi exposes the SHA-256 core through a C-compatible boundary:
// raw pointers, explicit lengths, and a NUL-terminated hex form. It exists
// for callers that allocate the context themselves (other languages,
// no-runtime environments) and is the only place unsafe pointer handling is
// permitted; everything behind it operates on bounds-checked slices.
//
// Every function trusts its pointer preconditions. A nil or undersized
// pointer is undefined behavior, exactly as at a C call boundary.
package capi

import (
	"unsafe"

	"github.com/sum256/sum256/sha256"
)

// CtxSize is the size in bytes of the context structure, for callers that
// allocate it as raw memory. The field layout is fixed; see sha256.Ctx.
const CtxSize = unsafe.Sizeof(sha256.Ctx{})

// HexBufSize is the buffer capacity ToHex requires: 64 hex characters plus
// the terminating NUL.
const HexBufSize = sha256.HexSize + 1

// Init resets the context at ctx to the initial hashing state. The memory
// need not be zeroed first.
func Init(ctx *sha256.Ctx) {
	ctx.Init()
}

// Update absorbs n bytes starting at data into the context. data must be
// valid for n bytes and may be nil only when n is 0.
func Update(ctx *sha256.Ctx, data unsafe.Pointer, n uint32) {
	if n == 0 {
		return
	}
	ctx.Update(unsafe.Slice((*byte)(data), n))
}

// Final finishes the hash and writes the 32-byte digest to out, which must
// be valid for sha256.Size writable bytes. The context is consumed; pass it
// to Init before hashing another message.
func Final(ctx *sha256.Ctx, out unsafe.Pointer) {
	ctx.Final((*[sha256.Size]byte)(out))
}

// ToHex renders the 32-byte digest at sum as 64 lowercase hex characters
// followed by a terminating NUL. out must be valid for HexBufSize writable
// bytes. The encoding is pure and independent of any hashing state.
func ToHex(sum unsafe.Pointer, out unsafe.Pointer) {
	s := (*[sha256.Size]byte)(sum)
	o := unsafe.Slice((*byte)(out), HexBufSize)
	sha256.EncodeHex(o[:sha256.HexSize], *s)
	o[sha256.HexSize] = 0
}
