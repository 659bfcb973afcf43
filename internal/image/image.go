// Package image owns the raw byte buffer backing an RD_v1.2 ramdisk and
// the primitive little-endian field accessors every other package builds
// on. It has no knowledge of directories, entries, or sector chains.
package image

import (
	"encoding/binary"
	"io"
	"os"

	"qnxdd/internal/rderr"

	"github.com/google/renameio"
)

const (
	MagicStart      = 0
	MagicEnd        = 8
	SizeStart       = 8
	SizeEnd         = 12
	SectorSizeStart = 12
	SectorSizeEnd   = 14
	BaseOffset      = 14
	BaseEntrySize   = 119
	CheckvalStart   = BaseOffset + 8 // 22
	CheckvalEnd     = CheckvalStart + 2
	CheckvalWant    = 0x0016
	SectorMapStart  = 133
)

// Magic is the fixed 8-byte signature every supported ramdisk begins with.
var Magic = [8]byte{'R', 'D', '_', 'v', '1', '.', '2', 0x00}

// Image is the mutable byte buffer for a loaded ramdisk, plus the handful
// of header fields read out of it at load time for convenience.
type Image struct {
	Raw        []byte
	Size       uint32
	SectorSize uint16
}

// Load validates magic and checkval and returns a ready Image.
func Load(r io.Reader) (*Image, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, rderr.Wrap(rderr.KindIO, "reading ramdisk", err)
	}
	return FromBytes(raw)
}

// LoadFile is a convenience wrapper around Load for a local path.
func LoadFile(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, rderr.Wrap(rderr.KindIO, "opening ramdisk file", err)
	}
	defer f.Close()
	return Load(f)
}

// FromBytes validates and wraps an already-read buffer.
func FromBytes(raw []byte) (*Image, error) {
	if len(raw) < SectorMapStart {
		return nil, rderr.New(rderr.KindFormat, "image shorter than fixed header")
	}
	var magic [8]byte
	copy(magic[:], raw[MagicStart:MagicEnd])
	if magic != Magic {
		return nil, rderr.New(rderr.KindFormat, "unsupported format: bad magic")
	}
	checkval := binary.LittleEndian.Uint16(raw[CheckvalStart:CheckvalEnd])
	if checkval != CheckvalWant {
		return nil, rderr.New(rderr.KindFormat, "checkval on base entry is incorrect")
	}
	img := &Image{
		Raw:        raw,
		Size:       binary.LittleEndian.Uint32(raw[SizeStart:SizeEnd]),
		SectorSize: binary.LittleEndian.Uint16(raw[SectorSizeStart:SectorSizeEnd]),
	}
	return img, nil
}

// BaseEntryBytes returns the 119-byte slice holding the root directory's
// Entry record. The slice aliases Image.Raw; writes through it are
// visible to the image immediately.
func (img *Image) BaseEntryBytes() []byte {
	return img.Raw[BaseOffset : BaseOffset+BaseEntrySize]
}

// U32 reads a little-endian uint32 at offset.
func (img *Image) U32(offset int) uint32 {
	return binary.LittleEndian.Uint32(img.Raw[offset : offset+4])
}

// PutU32 writes a little-endian uint32 at offset.
func (img *Image) PutU32(offset int, v uint32) {
	binary.LittleEndian.PutUint32(img.Raw[offset:offset+4], v)
}

// U16 reads a little-endian uint16 at offset.
func (img *Image) U16(offset int) uint16 {
	return binary.LittleEndian.Uint16(img.Raw[offset : offset+2])
}

// PutU16 writes a little-endian uint16 at offset.
func (img *Image) PutU16(offset int, v uint16) {
	binary.LittleEndian.PutUint16(img.Raw[offset:offset+2], v)
}

// Commit writes the full buffer to path atomically: a temp file in the
// same directory, synced and renamed over the target.
func (img *Image) Commit(path string) error {
	if err := renameio.WriteFile(path, img.Raw, 0o644); err != nil {
		return rderr.Wrap(rderr.KindIO, "committing ramdisk", err)
	}
	return nil
}

// WriteTo writes the full buffer verbatim, for callers that already have
// an open sink (tests, pipes) and don't want atomic-rename semantics.
func (img *Image) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(img.Raw)
	if err != nil {
		return int64(n), rderr.Wrap(rderr.KindIO, "writing ramdisk", err)
	}
	return int64(n), nil
}

// SectorCount returns the number of sectors the image is divided into,
// per the sector size read from the header.
func (img *Image) SectorCount() int {
	return len(img.Raw) / int(img.SectorSize)
}
