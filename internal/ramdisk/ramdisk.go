// Package ramdisk implements the RD_v1.2 filesystem engine: directory
// traversal, file dump, and the handful of mutations (inject, rm, rmdir,
// flags) the format supports, all under the invariants that keep the
// result byte-compatible with the original layout.
package ramdisk

import (
	"qnxdd/internal/entry"
	"qnxdd/internal/image"
	"qnxdd/internal/rderr"
	"qnxdd/internal/sectormap"
)

// entrySizeMagic is the per-occupant cost used in directory Size
// accounting. It is 105, not entry.Size (119) — a format idiosyncrasy
// reproduced verbatim, never "corrected."
const entrySizeMagic = 105

// Engine holds a loaded image and a path stack of Entry views,
// [base, ..., current]. The current directory is always the top of the
// stack.
type Engine struct {
	img  *image.Image
	path []*entry.Entry
}

// Open wraps an already-loaded image in a fresh Engine rooted at the
// base directory.
func Open(img *image.Image) *Engine {
	base := entry.New(img.BaseEntryBytes())
	return &Engine{img: img, path: []*entry.Entry{base}}
}

// Image exposes the underlying image for callers that need it (commit
// paths, tests).
func (e *Engine) Image() *image.Image { return e.img }

func (e *Engine) current() *entry.Entry { return e.path[len(e.path)-1] }

// entriesPerSector is the number of 119-byte records that fit in a
// sector's payload region.
func (e *Engine) entriesPerSector() int {
	return (int(e.img.SectorSize) - 4) / entry.Size
}

// GetSectorList follows en.DestOffset along next-pointers and returns the
// sector offsets visited, stopping before the terminating zero.
func (e *Engine) GetSectorList(en *entry.Entry) []uint32 {
	sectors := []uint32{en.DestOffset()}
	for sectors[len(sectors)-1] != 0 {
		next := e.img.U32(int(sectors[len(sectors)-1]))
		sectors = append(sectors, next)
	}
	return sectors[:len(sectors)-1]
}

// IterateDir returns a view over every Entry slot (including empty
// slots) across dir's sector chain, in on-disk order.
func (e *Engine) IterateDir(dir *entry.Entry) []*entry.Entry {
	sectors := e.GetSectorList(dir)
	perSector := e.entriesPerSector()
	out := make([]*entry.Entry, 0, perSector*len(sectors))
	for _, sector := range sectors {
		base := int(sector) + 4
		for i := 0; i < perSector; i++ {
			off := base + i*entry.Size
			out = append(out, entry.New(e.img.Raw[off:off+entry.Size]))
		}
	}
	return out
}

// GetEntry scans the current directory for the first entry of kind k
// named name. For kind Empty, the first empty slot is returned
// regardless of name.
func (e *Engine) GetEntry(name string, k entry.Kind) *entry.Entry {
	for _, en := range e.IterateDir(e.current()) {
		if en.Kind() != k {
			continue
		}
		if k == entry.Empty {
			return en
		}
		if en.Name() == name {
			return en
		}
	}
	return nil
}

// EntryExists reports whether name is in use by a link, dir, or file in
// the current directory.
func (e *Engine) EntryExists(name string) bool {
	for _, k := range []entry.Kind{entry.Link, entry.Dir, entry.File} {
		if e.GetEntry(name, k) != nil {
			return true
		}
	}
	return false
}

// writeEntry writes en's 119 bytes to offset, stamping en's own
// FatOffset first when en isn't Empty.
func (e *Engine) writeEntry(en *entry.Entry, offset uint32) {
	if en.Kind() != entry.Empty {
		en.SetFatOffset(offset)
	}
	copy(e.img.Raw[offset:offset+entry.Size], en.Raw())
}

// zeroSector zeroes the full sector_size bytes at offset (a byte offset,
// not an ordinal index).
func (e *Engine) zeroSector(offset uint32) {
	sz := int(e.img.SectorSize)
	for i := 0; i < sz; i++ {
		e.img.Raw[int(offset)+i] = 0
	}
}

// Listing is a read-only projection of a directory entry for display.
type Listing struct {
	Kind      entry.Kind
	Name      string
	Size      uint32
	FatOffset uint32
	Contains  uint32
	Flags     uint16
}

// Ls returns a listing of every non-empty entry in the current
// directory, in on-disk order.
func (e *Engine) Ls() []Listing {
	var out []Listing
	for _, en := range e.IterateDir(e.current()) {
		if en.Kind() == entry.Empty {
			continue
		}
		l := Listing{Kind: en.Kind(), Name: en.Name(), FatOffset: en.FatOffset()}
		switch en.Kind() {
		case entry.File, entry.Dir:
			l.Size = en.Size()
			l.Contains = en.Contains()
			l.Flags = en.Flags()
		}
		out = append(out, l)
	}
	return out
}

// Cd changes the current directory. "/" resets to the root, "." is a
// no-op, ".." pops unless already at the root, and any other name must
// name a Dir entry in the current directory.
func (e *Engine) Cd(target string) error {
	switch target {
	case "/":
		e.path = e.path[:1]
		return nil
	case ".":
		return nil
	case "..":
		if len(e.path) > 1 {
			e.path = e.path[:len(e.path)-1]
		}
		return nil
	default:
		en := e.GetEntry(target, entry.Dir)
		if en == nil {
			return rderr.New(rderr.KindUser, "no such directory: "+target)
		}
		off := en.FatOffset()
		e.path = append(e.path, entry.New(e.img.Raw[off:off+entry.Size]))
		return nil
	}
}

// Pwd renders the current path as "/a/b/c".
func (e *Engine) Pwd() string {
	out := "/"
	for i, en := range e.path[1:] {
		if i > 0 {
			out += "/"
		}
		out += en.Name()
	}
	return out
}

// Info summarizes the loaded image.
type Info struct {
	Size        uint32
	SectorSize  uint16
	FreeBytes   uint32
	SectorMapHex string
}

func (e *Engine) Info() Info {
	free := uint32(sectormap.FreeCount(e.img)) * uint32(e.img.SectorSize)
	mapLen := int(e.img.Size) / (int(e.img.SectorSize) * 8)
	mapBytes := e.img.Raw[image.SectorMapStart : image.SectorMapStart+mapLen]
	return Info{
		Size:         e.img.Size,
		SectorSize:   e.img.SectorSize,
		FreeBytes:    free,
		SectorMapHex: hexString(mapBytes),
	}
}

// Showfat returns the hex-encoded 119-byte raw record for the named
// link, dir, or file.
func (e *Engine) Showfat(name string) (string, error) {
	for _, k := range []entry.Kind{entry.Link, entry.Dir, entry.File} {
		en := e.GetEntry(name, k)
		if en != nil {
			return hexString(en.Raw()), nil
		}
	}
	return "", rderr.New(rderr.KindUser, "no such entry: "+name)
}

// Listfree returns the free sector indices (not byte offsets).
func (e *Engine) Listfree() []int {
	return sectormap.FreeIndices(e.img)
}

func hexString(b []byte) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexdigits[c>>4]
		out[i*2+1] = hexdigits[c&0xf]
	}
	return string(out)
}
