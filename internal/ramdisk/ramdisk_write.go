package ramdisk

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"

	"qnxdd/internal/entry"
	"qnxdd/internal/image"
	"qnxdd/internal/rderr"
	"qnxdd/internal/sectormap"
)

// Dump writes the named file's contents to w.
func (e *Engine) Dump(name string, w io.Writer) error {
	en := e.GetEntry(name, entry.File)
	if en == nil {
		return rderr.New(rderr.KindUser, "no such file: "+name)
	}
	remaining := int(en.Size())
	for _, sector := range e.GetSectorList(en) {
		take := int(e.img.SectorSize) - 4
		if remaining < take {
			take = remaining
		}
		off := int(sector) + 4
		if _, err := w.Write(e.img.Raw[off : off+take]); err != nil {
			return rderr.Wrap(rderr.KindIO, "writing dump output", err)
		}
		remaining -= take
	}
	return nil
}

// DumpToFile dumps name to the local file at destPath, creating or
// truncating it.
func (e *Engine) DumpToFile(name, destPath string) error {
	f, err := os.Create(destPath)
	if err != nil {
		return rderr.Wrap(rderr.KindIO, "creating dump destination", err)
	}
	defer f.Close()
	return e.Dump(name, f)
}

// Inject adds data as a new file entry named name in the current
// directory. Fails if name already exists in any kind, or if there
// aren't enough free sectors.
func (e *Engine) Inject(name string, data []byte) error {
	if !entry.ValidName(name) {
		return rderr.New(rderr.KindUser, "invalid name: "+name)
	}
	if e.EntryExists(name) {
		return rderr.New(rderr.KindUser, "already exists: "+name)
	}

	payloadPerSector := int(e.img.SectorSize) - 4
	sectorsNeeded := int(math.Ceil(float64(len(data)) / float64(payloadPerSector)))
	if sectorsNeeded == 0 {
		// A zero-length payload still gets one sector, so an empty file is
		// a valid (if degenerate) entry rather than a refused inject.
		sectorsNeeded = 1
	}

	dir := e.current()
	growDir := dir.Size()/entrySizeMagic == dir.MaxSize()
	if growDir {
		sectorsNeeded++
	}

	sectors := sectormap.Alloc(e.img, sectorsNeeded)
	if sectors == nil {
		return rderr.New(rderr.KindCapacity, "not enough free sectors")
	}

	dirSectors := e.GetSectorList(dir)

	var entryOffset uint32
	if growDir {
		newSector := sectors[0]
		sectors = sectors[1:]
		e.img.PutU32(int(dirSectors[len(dirSectors)-1]), newSector)
		entryOffset = newSector + 4
	} else {
		slot := dir.Size() / entrySizeMagic
		slot %= uint32(e.entriesPerSector())
		entryOffset = dirSectors[len(dirSectors)-1] + 4 + slot*entry.Size
	}

	newEntry := entry.NewEmpty()
	newEntry.SetKind(entry.File)
	newEntry.SetContains(1)
	newEntry.SetName(name)
	newEntry.SetSize(uint32(len(data)))
	newEntry.SetMaxSize(uint32(sectorsNeeded * payloadPerSector))
	newEntry.SetDestOffset(sectors[0])
	newEntry.SetFlags(entry.FlagsDefaultFile)

	e.writeEntry(newEntry, entryOffset)

	readOff := 0
	for i, sector := range sectors {
		if i < len(sectors)-1 {
			e.img.PutU32(int(sector), sectors[i+1])
			copy(e.img.Raw[int(sector)+4:int(sector)+int(e.img.SectorSize)], data[readOff:readOff+payloadPerSector])
			readOff += payloadPerSector
		} else {
			remaining := data[readOff:]
			copy(e.img.Raw[int(sector)+4:int(sector)+4+len(remaining)], remaining)
		}
	}

	e.optimize()
	return nil
}

// InjectFile reads a local file and injects it under its base name.
func (e *Engine) InjectFile(localPath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return rderr.Wrap(rderr.KindIO, "reading local file", err)
	}
	return e.Inject(baseName(localPath), data)
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}

// rmEntry zeroes every sector in en's chain plus en's own slot, then
// optimizes the current directory.
func (e *Engine) rmEntry(en *entry.Entry) {
	for _, sector := range e.GetSectorList(en) {
		e.zeroSector(sector)
	}
	e.writeEntry(entry.NewEmpty(), en.FatOffset())
	e.optimize()
}

// Rm removes the named file.
func (e *Engine) Rm(name string) error {
	en := e.GetEntry(name, entry.File)
	if en == nil {
		return rderr.New(rderr.KindUser, "no such file: "+name)
	}
	e.rmEntry(en)
	return nil
}

// Rmdir removes the named directory if it contains no files or
// subdirectories (links don't count).
func (e *Engine) Rmdir(name string) error {
	en := e.GetEntry(name, entry.Dir)
	if en == nil {
		return rderr.New(rderr.KindUser, "no such directory: "+name)
	}
	for _, child := range e.IterateDir(en) {
		if child.Kind() == entry.File || child.Kind() == entry.Dir {
			return rderr.New(rderr.KindUser, "directory not empty: "+name)
		}
	}
	e.rmEntry(en)
	return nil
}

// Flags sets the flags field on the named file or directory, refusing
// any value outside the known allow-list.
func (e *Engine) Flags(name string, flags uint16) error {
	if !entry.ValidFlags[flags] {
		return rderr.New(rderr.KindUser, fmt.Sprintf("flags value not recognized: 0x%x", flags))
	}
	en := e.GetEntry(name, entry.File)
	if en == nil {
		en = e.GetEntry(name, entry.Dir)
	}
	if en == nil {
		return rderr.New(rderr.KindUser, "no such file or directory: "+name)
	}
	en.SetFlags(flags)
	e.writeEntry(en, en.FatOffset())
	return nil
}

// Commit writes the image to path atomically.
func (e *Engine) Commit(path string) error {
	return e.img.Commit(path)
}

// Bytes returns the full in-memory image buffer, for tests and callers
// that want to compare byte-for-byte without touching the filesystem.
func (e *Engine) Bytes() []byte {
	return e.img.Raw
}

// Equal reports whether images a and b are byte-identical.
func Equal(a, b *image.Image) bool {
	return bytes.Equal(a.Raw, b.Raw)
}
