// Package sectormap derives free/occupied sector lists from the current
// chain structure of an image and serializes them into the header
// bitmap. The bitmap is always a cache of what this package computes; it
// is never consulted as a source of truth.
package sectormap

import "qnxdd/internal/image"

// ListFree returns, for every sector index, whether that sector is free.
// A sector is occupied if its own next-pointer is non-zero, or if some
// other sector's next-pointer targets it. A sector whose next-pointer is
// zero and which nothing points at is still marked occupied if its
// payload contains more than one distinct byte value — a heuristic for
// single-sector files that happen to terminate a chain with a
// coincidentally-zero header. This mirrors the upstream implementation's
// own acknowledged uncertainty about this rule; it is kept verbatim for
// round-trip compatibility.
func ListFree(img *image.Image) []bool {
	sectorSize := int(img.SectorSize)
	n := len(img.Raw) / sectorSize

	headers := make([]uint32, n)
	pointedAt := make(map[uint32]bool, n)
	for i := 0; i < n; i++ {
		off := i * sectorSize
		next := img.U32(off) / uint32(sectorSize)
		headers[i] = next
		if next != 0 {
			pointedAt[next] = true
		}
	}

	free := make([]bool, n)
	for i := range free {
		free[i] = true
	}

	for i, next := range headers {
		if next != 0 || pointedAt[uint32(i)] {
			free[i] = false
			continue
		}
		off := i * sectorSize
		seen := make(map[byte]bool)
		for _, b := range img.Raw[off : off+sectorSize] {
			seen[b] = true
			if len(seen) > 1 {
				break
			}
		}
		if len(seen) > 1 {
			free[i] = false
		}
	}

	return free
}

// FreeCount returns the number of free sectors.
func FreeCount(img *image.Image) int {
	n := 0
	for _, f := range ListFree(img) {
		if f {
			n++
		}
	}
	return n
}

// FreeIndices returns the sector indices (not byte offsets) of every
// free sector, ascending.
func FreeIndices(img *image.Image) []int {
	free := ListFree(img)
	out := make([]int, 0, len(free))
	for i, f := range free {
		if f {
			out = append(out, i)
		}
	}
	return out
}

// Alloc returns n free sector byte offsets in ascending index order. If
// fewer than n sectors are free, it returns nil — callers must treat
// this as a hard failure with no partial effect.
func Alloc(img *image.Image, n int) []uint32 {
	indices := FreeIndices(img)
	if len(indices) < n {
		return nil
	}
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		out[i] = uint32(indices[i]) * uint32(img.SectorSize)
	}
	return out
}

// WriteBitmap regenerates the sector-map bitmap at the image header from
// the current ListFree result: bit=1 means free, packed LSB-first within
// each byte (bit 0 of byte k is sector 8k), padded with zero bits to the
// next byte boundary. Polarity follows the documented format (free=1),
// which is the opposite of the upstream script's in-memory "0 if free
// else 1" list before its own reversed-bit packing step; see DESIGN.md.
func WriteBitmap(img *image.Image) {
	free := ListFree(img)
	nBytes := (len(free) + 7) / 8
	out := make([]byte, nBytes)
	for i, f := range free {
		if f {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	copy(img.Raw[image.SectorMapStart:image.SectorMapStart+len(out)], out)
}
