// Package entry implements the 119-byte directory record view used
// throughout the ramdisk: an accessor over its own detached 119-byte
// buffer, snapshotted out of the image at construction time. Field
// writes only land in the image once the engine explicitly writes the
// entry back at a slot offset (mirroring the original implementation,
// where every directory slot read is itself a copy). This matters for
// optimize: reordering entries during directory compaction reads every
// source slot before any destination write clobbers it, which only
// holds if entries are independent snapshots rather than live aliases
// into the same backing buffer.
package entry

import "encoding/binary"

const (
	Size = 119

	typeOffset     = 0
	maxSizeOffset  = 4
	fatOffset      = 8
	linkNameOffset = 12
	sizeOffset     = 16
	flagsOffset    = 50
	containsOffset = 56
	magicOneOffset = 63
	nameOffset     = 64
	nameLength     = 48
	destOffset     = 115
)

// type tags, per the on-disk type field at offset 0.
const (
	typeEmpty   uint32 = 0x00000000
	typeLink    uint32 = 0x81000000
	typeFileDir uint32 = 0x80000000
)

// Kind is the dynamic, derived variant an Entry's bytes represent.
type Kind int

const (
	Empty Kind = iota
	Link
	File
	Dir
	Bad
)

func (k Kind) String() string {
	switch k {
	case Empty:
		return "empty"
	case Link:
		return "link"
	case File:
		return "file"
	case Dir:
		return "dir"
	default:
		return "bad"
	}
}

// Known, allow-listed flag values. Their individual bit meanings are
// undocumented upstream; only membership in this set is ever checked.
const (
	FlagsDefaultFile = 0x81fd // renamable executables
	FlagsAltFile1    = 0x81a4 // RW text files (e.g. HTML)
	FlagsAltFile2    = 0x81b4 // RW text files (e.g. configs), non-renamable executables
	FlagsDefaultDir  = 0x41fd // all directories
)

// ValidFlags is the allow-list consulted by Ramdisk.Flags.
var ValidFlags = map[uint16]bool{
	FlagsDefaultFile: true,
	FlagsAltFile1:    true,
	FlagsAltFile2:    true,
	FlagsDefaultDir:  true,
}

// Entry is a view over its own detached 119-byte buffer.
type Entry struct {
	raw []byte
}

// New snapshots a 119-byte slice into a freshly-owned buffer. Mutating
// the returned Entry never affects src; callers must write it back to
// the image explicitly (the engine's writeEntry does this at every call
// site that mutates an Entry).
func New(src []byte) *Entry {
	raw := make([]byte, Size)
	copy(raw, src)
	return &Entry{raw: raw}
}

// NewEmpty allocates a fresh zeroed 119-byte backing buffer, used to
// build a new entry before it has a home slot in the directory table.
func NewEmpty() *Entry {
	return &Entry{raw: make([]byte, Size)}
}

// Raw returns the underlying 119-byte slice.
func (e *Entry) Raw() []byte { return e.raw }

// Kind is computed from the type tag and, for the file/dir tag, from
// Contains — it is never cached.
func (e *Entry) Kind() Kind {
	header := binary.LittleEndian.Uint32(e.raw[typeOffset : typeOffset+4])
	switch header {
	case typeEmpty:
		return Empty
	case typeLink:
		return Link
	case typeFileDir:
		if e.Contains() == 1 {
			return File
		}
		return Dir
	default:
		return Bad
	}
}

// SetKind transitions an Empty entry to Link, File, or Dir. Refuses (no
// mutation) if the entry isn't currently Empty, or if asked to set Empty
// or Bad.
func (e *Entry) SetKind(k Kind) bool {
	if e.Kind() != Empty {
		return false
	}
	var val uint32
	switch k {
	case Link:
		val = typeLink
	case File, Dir:
		val = typeFileDir
	default:
		return false
	}
	binary.LittleEndian.PutUint32(e.raw[typeOffset:typeOffset+4], val)
	return true
}

// isInvalidNameByte reports whether b is disallowed in an entry name:
// control characters (<=0x1f), '/' (0x2f), DEL (0x7f), and 0xff.
func isInvalidNameByte(b byte) bool {
	if b <= 0x1f {
		return true
	}
	switch b {
	case 0x2f, 0x7f, 0xff:
		return true
	default:
		return false
	}
}

// ValidName reports whether name could ever be written by SetName: no
// disallowed byte, truncation aside. Callers that need to refuse an
// operation outright (rather than silently writing an empty name)
// should check this before creating a slot.
func ValidName(name string) bool {
	b := []byte(name)
	if len(b) >= nameLength {
		b = b[:nameLength]
	}
	for _, c := range b {
		if isInvalidNameByte(c) {
			return false
		}
	}
	return true
}

// Name returns "" for an empty slot, "." or ".." for a link, and the
// NUL-terminated name string for a file or dir.
func (e *Entry) Name() string {
	switch e.Kind() {
	case Empty:
		return ""
	case Link:
		return readCString(e.raw, linkNameOffset)
	default:
		return readCString(e.raw, nameOffset)
	}
}

func readCString(buf []byte, start int) string {
	end := start
	for end < len(buf) && buf[end] != 0 {
		end++
	}
	return string(buf[start:end])
}

// SetName sets the name for a File or Dir entry. Names longer than 48
// bytes are truncated; names containing a disallowed byte are refused
// silently (no mutation), per the documented contract. No-op on entries
// that aren't File or Dir.
func (e *Entry) SetName(name string) {
	k := e.Kind()
	if k != File && k != Dir {
		return
	}
	b := []byte(name)
	if len(b) >= nameLength {
		b = b[:nameLength]
	}
	for _, c := range b {
		if isInvalidNameByte(c) {
			return
		}
	}
	var buf [nameLength]byte
	copy(buf[:], b)
	copy(e.raw[nameOffset:nameOffset+nameLength], buf[:])
}

// MaxSize returns file max byte capacity / dir max entry capacity; 0 for
// any other kind.
func (e *Entry) MaxSize() uint32 {
	k := e.Kind()
	if k != File && k != Dir {
		return 0
	}
	return binary.LittleEndian.Uint32(e.raw[maxSizeOffset : maxSizeOffset+4])
}

// SetMaxSize writes MaxSize; no-op unless File or Dir.
func (e *Entry) SetMaxSize(v uint32) {
	k := e.Kind()
	if k != File && k != Dir {
		return
	}
	binary.LittleEndian.PutUint32(e.raw[maxSizeOffset:maxSizeOffset+4], v)
}

// FatOffset returns the byte offset of this record's own slot: the raw
// value for a Link, and the raw value minus 8 for File/Dir.
func (e *Entry) FatOffset() uint32 {
	raw := binary.LittleEndian.Uint32(e.raw[fatOffset : fatOffset+4])
	if e.Kind() == Link {
		return raw
	}
	return raw - 8
}

// SetFatOffset writes FatOffset; no-op unless File or Dir. Writes
// value+8, mirroring the +8 adjustment FatOffset hides on read.
func (e *Entry) SetFatOffset(v uint32) {
	k := e.Kind()
	if k != File && k != Dir {
		return
	}
	binary.LittleEndian.PutUint32(e.raw[fatOffset:fatOffset+4], v+8)
}

// Size returns the raw size field: exact byte length for File, occupant
// count times 105 for Dir.
func (e *Entry) Size() uint32 {
	return binary.LittleEndian.Uint32(e.raw[sizeOffset : sizeOffset+4])
}

// SetSize writes Size; no-op unless File or Dir.
func (e *Entry) SetSize(v uint32) {
	k := e.Kind()
	if k != File && k != Dir {
		return
	}
	binary.LittleEndian.PutUint32(e.raw[sizeOffset:sizeOffset+4], v)
}

// Flags returns the permission/mode bits for File or Dir entries.
func (e *Entry) Flags() uint16 {
	return binary.LittleEndian.Uint16(e.raw[flagsOffset : flagsOffset+2])
}

// SetFlags writes Flags; no-op unless File or Dir.
func (e *Entry) SetFlags(v uint16) {
	k := e.Kind()
	if k != File && k != Dir {
		return
	}
	binary.LittleEndian.PutUint16(e.raw[flagsOffset:flagsOffset+2], v)
}

// Contains returns the child/occupant count: 1 for a file, 2+ for a dir
// (every dir holds at least "." and "..").
func (e *Entry) Contains() uint32 {
	return binary.LittleEndian.Uint32(e.raw[containsOffset : containsOffset+4])
}

// SetContains writes Contains and, alongside it, the byte-63 sentinel
// that must accompany every write of this field. No-op unless File or
// Dir.
func (e *Entry) SetContains(v uint32) {
	k := e.Kind()
	if k != File && k != Dir {
		return
	}
	binary.LittleEndian.PutUint32(e.raw[containsOffset:containsOffset+4], v)
	e.raw[magicOneOffset] = 0x01
}

// DestOffset returns the byte offset of this entry's first data/child
// sector; 0 for an empty entry.
func (e *Entry) DestOffset() uint32 {
	return binary.LittleEndian.Uint32(e.raw[destOffset : destOffset+4])
}

// SetDestOffset writes DestOffset; no-op unless File or Dir.
func (e *Entry) SetDestOffset(v uint32) {
	k := e.Kind()
	if k != File && k != Dir {
		return
	}
	binary.LittleEndian.PutUint32(e.raw[destOffset:destOffset+4], v)
}
