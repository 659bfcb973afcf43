package ramdisk_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"qnxdd/internal/entry"
	"qnxdd/internal/image"
	"qnxdd/internal/ramdisk"
	"qnxdd/internal/sectormap"
)

const testSectorSize = 512

// buildTestImage constructs a minimal, well-formed RD_v1.2 image with a
// root directory holding "." and ".." across a single sector, plus a
// handful of trailing free sectors.
func buildTestImage(t *testing.T, totalSectors int) *image.Image {
	t.Helper()

	size := totalSectors * testSectorSize
	raw := make([]byte, size)

	copy(raw[0:8], image.Magic[:])
	binary.LittleEndian.PutUint32(raw[8:12], uint32(size))
	binary.LittleEndian.PutUint16(raw[12:14], uint16(testSectorSize))

	// base_entry at [14, 14+119): a dir with "." and ".." in sector 1.
	const entriesPerSector = (testSectorSize - 4) / entry.Size
	base := raw[14 : 14+entry.Size]
	binary.LittleEndian.PutUint32(base[0:4], 0x80000000)  // type
	binary.LittleEndian.PutUint32(base[4:8], uint32(entriesPerSector)) // max_size
	binary.LittleEndian.PutUint32(base[8:12], 14+8)        // fat_offset_raw == checkval anchor
	binary.LittleEndian.PutUint32(base[16:20], 2*105)      // size
	binary.LittleEndian.PutUint16(base[50:52], 0x41fd)     // flags
	binary.LittleEndian.PutUint32(base[56:60], 2)          // contains
	base[63] = 0x01
	binary.LittleEndian.PutUint32(base[115:119], testSectorSize) // dest_offset -> sector 1

	// Sanity: checkval bytes alias fat_offset_raw's low 16 bits.
	require.Equal(t, uint16(0x0016), binary.LittleEndian.Uint16(raw[22:24]))

	// Sector 1: root directory contents. Next-pointer 0 (single sector).
	dirSector := raw[testSectorSize : 2*testSectorSize]
	binary.LittleEndian.PutUint32(dirSector[0:4], 0)

	writeLink := func(slot int, name string) {
		off := 4 + slot*entry.Size
		e := dirSector[off : off+entry.Size]
		binary.LittleEndian.PutUint32(e[0:4], 0x81000000)
		copy(e[12:16], name)
		binary.LittleEndian.PutUint32(e[8:12], uint32(testSectorSize+off))
	}
	writeLink(0, ".")
	writeLink(1, "..")

	img, err := image.FromBytes(raw)
	require.NoError(t, err)

	sectormap.WriteBitmap(img)
	return img
}

func TestLoadRoundTripIdentity(t *testing.T) {
	img := buildTestImage(t, 4)
	before := append([]byte{}, img.Raw...)

	var buf bytes.Buffer
	_, err := img.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, before, buf.Bytes())
}

func TestLsShowsOnlyLinksInitially(t *testing.T) {
	img := buildTestImage(t, 4)
	eng := ramdisk.Open(img)

	listing := eng.Ls()
	require.Len(t, listing, 2)
	require.Equal(t, ".", listing[0].Name)
	require.Equal(t, "..", listing[1].Name)
}

func TestPwdAtRoot(t *testing.T) {
	img := buildTestImage(t, 4)
	eng := ramdisk.Open(img)
	require.Equal(t, "/", eng.Pwd())
}

func TestInjectThenDump(t *testing.T) {
	img := buildTestImage(t, 4)
	eng := ramdisk.Open(img)

	require.NoError(t, eng.Inject("README.TXT", []byte("hello\n")))

	var buf bytes.Buffer
	require.NoError(t, eng.Dump("README.TXT", &buf))
	require.Equal(t, "hello\n", buf.String())

	listing := eng.Ls()
	require.Len(t, listing, 3)
	require.Equal(t, "README.TXT", listing[2].Name)
}

func TestInjectDuplicateNameFails(t *testing.T) {
	img := buildTestImage(t, 4)
	eng := ramdisk.Open(img)

	require.NoError(t, eng.Inject("A.TXT", []byte("x")))
	err := eng.Inject("A.TXT", []byte("y"))
	require.Error(t, err)
}

func TestInjectThenRmRestoresCanonicalState(t *testing.T) {
	img := buildTestImage(t, 4)
	eng := ramdisk.Open(img)

	before := append([]byte{}, img.Raw...)

	require.NoError(t, eng.Inject("A.TXT", []byte("hello")))
	require.NoError(t, eng.Rm("A.TXT"))

	require.Equal(t, before, img.Raw)
}

func TestBitmapCoherenceAfterInject(t *testing.T) {
	img := buildTestImage(t, 6)
	eng := ramdisk.Open(img)

	require.NoError(t, eng.Inject("A.TXT", []byte("some data")))

	free := sectormap.ListFree(img)
	nBytes := (len(free) + 7) / 8
	want := make([]byte, nBytes)
	for i, f := range free {
		if f {
			want[i/8] |= 1 << uint(i%8)
		}
	}
	got := img.Raw[image.SectorMapStart : image.SectorMapStart+nBytes]
	require.Equal(t, want, []byte(got))
}

// buildImageWithSubdir constructs a root directory holding "." / ".."
// plus a "SUB" subdirectory, and SUB holding its own "." / ".." plus
// one file entry, so a Rmdir("SUB") at the root has a genuine
// non-empty child to refuse against.
func buildImageWithSubdir(t *testing.T) *image.Image {
	t.Helper()

	const totalSectors = 8
	img := buildTestImage(t, totalSectors)
	raw := img.Raw

	const subSector = 2 * testSectorSize
	const fileSector = 3 * testSectorSize

	// Root slot 2: "SUB" directory entry.
	rootSlot2 := raw[testSectorSize+4+2*entry.Size : testSectorSize+4+3*entry.Size]
	binary.LittleEndian.PutUint32(rootSlot2[0:4], 0x80000000)
	binary.LittleEndian.PutUint32(rootSlot2[4:8], 4) // max_size: one sector's worth of slots
	binary.LittleEndian.PutUint32(rootSlot2[16:20], uint32(2*105))
	binary.LittleEndian.PutUint16(rootSlot2[50:52], 0x41fd)
	binary.LittleEndian.PutUint32(rootSlot2[56:60], 2) // contains == 2 marks this FileDir as a Dir
	rootSlot2[63] = 0x01
	copy(rootSlot2[64:112], "SUB")
	binary.LittleEndian.PutUint32(rootSlot2[115:119], subSector)

	// SUB's own sector: "." , "..", then a file entry.
	subDirSector := raw[subSector : subSector+testSectorSize]
	binary.LittleEndian.PutUint32(subDirSector[0:4], 0) // single sector, no next

	writeLinkAt := func(slot int, name string) {
		off := 4 + slot*entry.Size
		e := subDirSector[off : off+entry.Size]
		binary.LittleEndian.PutUint32(e[0:4], 0x81000000)
		copy(e[12:16], name)
		binary.LittleEndian.PutUint32(e[8:12], uint32(subSector+off))
	}
	writeLinkAt(0, ".")
	writeLinkAt(1, "..")

	fileSlotOff := 4 + 2*entry.Size
	fileSlot := subDirSector[fileSlotOff : fileSlotOff+entry.Size]
	binary.LittleEndian.PutUint32(fileSlot[0:4], 0x80000000)
	binary.LittleEndian.PutUint32(fileSlot[4:8], uint32(testSectorSize-4)) // max_size
	binary.LittleEndian.PutUint32(fileSlot[16:20], 5)                     // size
	binary.LittleEndian.PutUint16(fileSlot[50:52], 0x81fd)
	binary.LittleEndian.PutUint32(fileSlot[56:60], 1) // contains == 1 marks this FileDir as a File
	fileSlot[63] = 0x01
	copy(fileSlot[64:112], "FILE.TXT")
	binary.LittleEndian.PutUint32(fileSlot[115:119], fileSector)

	reloaded, err := image.FromBytes(raw)
	require.NoError(t, err)
	sectormap.WriteBitmap(reloaded)
	return reloaded
}

func TestRmdirRefusesNonEmpty(t *testing.T) {
	img := buildImageWithSubdir(t)
	eng := ramdisk.Open(img)

	before := append([]byte{}, img.Raw...)
	err := eng.Rmdir("SUB")
	require.Error(t, err)
	require.Equal(t, before, img.Raw)
}

func TestRmdirNoSuchDirectory(t *testing.T) {
	img := buildTestImage(t, 4)
	eng := ramdisk.Open(img)
	require.Error(t, eng.Rmdir("missing"))
}

func TestFlagsAllowList(t *testing.T) {
	img := buildTestImage(t, 4)
	eng := ramdisk.Open(img)
	require.NoError(t, eng.Inject("A.TXT", []byte("x")))

	require.NoError(t, eng.Flags("A.TXT", 0x81fd))
	require.Error(t, eng.Flags("A.TXT", 0x1234))
}

func TestDirectoryOrderingAfterMultipleInjects(t *testing.T) {
	img := buildTestImage(t, 6)
	eng := ramdisk.Open(img)

	require.NoError(t, eng.Inject("ZEBRA.TXT", []byte("z")))
	require.NoError(t, eng.Inject("APPLE.TXT", []byte("a")))

	listing := eng.Ls()
	require.Len(t, listing, 4)
	require.Equal(t, ".", listing[0].Name)
	require.Equal(t, "..", listing[1].Name)
	require.Equal(t, "APPLE.TXT", listing[2].Name)
	require.Equal(t, "ZEBRA.TXT", listing[3].Name)
}

func TestAccountingEqualityAfterInject(t *testing.T) {
	img := buildTestImage(t, 6)
	eng := ramdisk.Open(img)
	require.NoError(t, eng.Inject("A.TXT", []byte("x")))

	base := entry.New(img.BaseEntryBytes())
	require.Equal(t, uint32(3*105), base.Size())
	require.Equal(t, uint32(2), base.Contains())
}

func TestInjectExactSectorMultiple(t *testing.T) {
	img := buildTestImage(t, 8)
	eng := ramdisk.Open(img)

	data := bytes.Repeat([]byte{0xAB}, 2*(testSectorSize-4))
	require.NoError(t, eng.Inject("BIG.BIN", data))

	var buf bytes.Buffer
	require.NoError(t, eng.Dump("BIG.BIN", &buf))
	require.Equal(t, data, buf.Bytes())
}

func TestInjectOneByteIntoNewSector(t *testing.T) {
	img := buildTestImage(t, 8)
	eng := ramdisk.Open(img)

	data := bytes.Repeat([]byte{0xCD}, (testSectorSize-4)+1)
	require.NoError(t, eng.Inject("BIG2.BIN", data))

	var buf bytes.Buffer
	require.NoError(t, eng.Dump("BIG2.BIN", &buf))
	require.Equal(t, data, buf.Bytes())
}

func TestRmShiftCompactsAndZeroesVacatedSlot(t *testing.T) {
	img := buildTestImage(t, 6)
	eng := ramdisk.Open(img)

	// B.TXT sorts before C.TXT, so after both injects the root directory
	// holds [., .., B.TXT, C.TXT] in slots 0-3 of its single sector.
	require.NoError(t, eng.Inject("B.TXT", []byte("b")))
	require.NoError(t, eng.Inject("C.TXT", []byte("c")))

	// Removing B.TXT shifts C.TXT down into slot 2, vacating slot 3.
	require.NoError(t, eng.Rm("B.TXT"))

	listing := eng.Ls()
	require.Len(t, listing, 3)
	require.Equal(t, ".", listing[0].Name)
	require.Equal(t, "..", listing[1].Name)
	require.Equal(t, "C.TXT", listing[2].Name)

	dirSector := testSectorSize // root directory lives in sector index 1
	vacatedSlot := 3
	off := dirSector + 4 + vacatedSlot*entry.Size
	require.Equal(t, make([]byte, entry.Size), []byte(img.Raw[off:off+entry.Size]))
}

func TestInjectNameWithSlashIsRefusedWithNoMutation(t *testing.T) {
	img := buildTestImage(t, 4)
	before := append([]byte{}, img.Raw...)
	eng := ramdisk.Open(img)

	err := eng.Inject("bad/name.txt", []byte("x"))
	require.Error(t, err)
	require.Equal(t, before, img.Raw)
}

func TestShowfat(t *testing.T) {
	img := buildTestImage(t, 4)
	eng := ramdisk.Open(img)
	require.NoError(t, eng.Inject("A.TXT", []byte("x")))

	hexVal, err := eng.Showfat("A.TXT")
	require.NoError(t, err)
	require.Len(t, hexVal, entry.Size*2)
}

func TestListfreeExcludesOccupiedSectors(t *testing.T) {
	img := buildTestImage(t, 4)
	eng := ramdisk.Open(img)

	free := eng.Listfree()
	require.NotContains(t, free, 0) // header sector always occupied
	require.NotContains(t, free, 1) // root dir sector
	require.Contains(t, free, 2)
	require.Contains(t, free, 3)
}
