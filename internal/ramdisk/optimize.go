package ramdisk

import (
	"sort"

	"qnxdd/internal/entry"
	"qnxdd/internal/sectormap"
)

// optimize is invoked after every mutation of the current directory. It
// rewrites the directory's sector chain into canonical order
// ([., .., dirs sorted by name, files sorted by name]), updates the
// parent entry's accounting fields, shrinks the chain by one sector if
// the tail is now unused, and regenerates the header sector-map bitmap.
//
// This is the single most load-bearing routine in the engine: every
// invariant in the testable-properties list traces back to something
// this function gets right or wrong.
func (e *Engine) optimize() {
	dir := e.current()
	sectors := e.GetSectorList(dir)

	all := e.IterateDir(dir)
	var links, dirs, files []*entry.Entry
	for _, en := range all {
		switch en.Kind() {
		case entry.Link:
			links = append(links, en)
		case entry.Dir:
			dirs = append(dirs, en)
		case entry.File:
			files = append(files, en)
		}
	}

	total := len(links) + len(dirs) + len(files)

	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name() < dirs[j].Name() })
	sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })

	dir.SetContains(uint32(len(links) + len(dirs)))
	dir.SetSize(uint32(total * entrySizeMagic))
	dir.SetMaxSize(uint32(len(sectors) * e.entriesPerSector()))
	e.writeEntry(dir, dir.FatOffset())

	perSector := e.entriesPerSector()
	for _, sector := range sectors {
		offset := uint32(sector) + 4
		written := 0
	fillSector:
		for written < perSector {
			var next *entry.Entry
			switch {
			case len(links) > 0:
				next, links = links[0], links[1:]
			case len(dirs) > 0:
				next, dirs = dirs[0], dirs[1:]
			case len(files) > 0:
				next, files = files[0], files[1:]
			default:
				break fillSector
			}
			e.writeEntry(next, offset+uint32(written*entry.Size))
			written++
		}
		tailStart := int(sector) + 4 + written*entry.Size
		tailEnd := int(sector) + int(e.img.SectorSize)
		for i := tailStart; i < tailEnd; i++ {
			e.img.Raw[i] = 0
		}
	}

	if perSector*(len(sectors)-1) >= total {
		last := sectors[len(sectors)-1]
		prev := sectors[len(sectors)-2]
		e.zeroSector(last)
		e.img.PutU32(int(prev), 0)
		dir.SetMaxSize(dir.MaxSize() - uint32(perSector))
		e.writeEntry(dir, dir.FatOffset())
	}

	sectormap.WriteBitmap(e.img)
}
