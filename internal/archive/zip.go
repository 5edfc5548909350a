package archive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// Record signatures and fixed sizes of the stored ZIP layout.
const (
	localHeaderSig   = 0x04034b50
	centralHeaderSig = 0x02014b50
	endRecordSig     = 0x06054b50

	localHeaderLen   = 30
	centralHeaderLen = 46
	endRecordLen     = 22

	zipVersion  = 20
	flagUTF8    = 0x0800
	methodStore = 0
)

// ErrCorrupt is returned by Read for input that is not a well-formed stored
// container or whose checksums do not match.
var ErrCorrupt = errors.New("corrupt archive")

// File is one named byte sequence in a container.
type File struct {
	Name string
	Data []byte
}

var (
	crcOnce  sync.Once
	crcTable [256]uint32
)

// table returns the IEEE CRC-32 lookup table, building it on first use.
func table() *[256]uint32 {
	crcOnce.Do(func() {
		for i := range crcTable {
			c := uint32(i)
			for j := 0; j < 8; j++ {
				if c&1 == 1 {
					c = 0xEDB88320 ^ (c >> 1)
				} else {
					c >>= 1
				}
			}
			crcTable[i] = c
		}
	})
	return &crcTable
}

// CRC32 returns the IEEE CRC-32 of data.
func CRC32(data []byte) uint32 {
	t := table()
	crc := ^uint32(0)
	for _, b := range data {
		crc = t[byte(crc)^b] ^ (crc >> 8)
	}
	return ^crc
}

// dosTime converts t to MS-DOS time and date fields. The zero time maps to
// zero fields.
func dosTime(t time.Time) (uint16, uint16) {
	if t.IsZero() {
		return 0, 0
	}
	t = t.UTC()
	year := t.Year()
	if year < 1980 {
		return 0, 0
	}
	tm := uint16(t.Hour()<<11 | t.Minute()<<5 | t.Second()/2)
	dt := uint16((year-1980)<<9 | int(t.Month())<<5 | t.Day())
	return tm, dt
}

// Encode lays files out as a stored (uncompressed) ZIP container: a local
// header, name and raw bytes per file, then one central directory record
// per file, then the end record. All integers are little-endian.
func Encode(files []File, modTime time.Time) ([]byte, error) {
	if len(files) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d entries exceed the container limit", ErrArchiveBuildFailed, len(files))
	}
	tm, dt := dosTime(modTime)

	type placed struct {
		name   []byte
		crc    uint32
		size   uint32
		offset uint32
	}
	entries := make([]placed, 0, len(files))

	var buf []byte
	for _, f := range files {
		name := []byte(f.Name)
		if len(name) > math.MaxUint16 {
			return nil, fmt.Errorf("%w: name too long: %.40s", ErrArchiveBuildFailed, f.Name)
		}
		if uint64(len(f.Data)) > math.MaxUint32 || uint64(len(buf)) > math.MaxUint32 {
			return nil, fmt.Errorf("%w: %s exceeds the container size limit", ErrArchiveBuildFailed, f.Name)
		}
		p := placed{name: name, crc: CRC32(f.Data), size: uint32(len(f.Data)), offset: uint32(len(buf))}
		entries = append(entries, p)

		buf = binary.LittleEndian.AppendUint32(buf, localHeaderSig)
		buf = binary.LittleEndian.AppendUint16(buf, zipVersion)
		buf = binary.LittleEndian.AppendUint16(buf, flagUTF8)
		buf = binary.LittleEndian.AppendUint16(buf, methodStore)
		buf = binary.LittleEndian.AppendUint16(buf, tm)
		buf = binary.LittleEndian.AppendUint16(buf, dt)
		buf = binary.LittleEndian.AppendUint32(buf, p.crc)
		buf = binary.LittleEndian.AppendUint32(buf, p.size)
		buf = binary.LittleEndian.AppendUint32(buf, p.size)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(name)))
		buf = binary.LittleEndian.AppendUint16(buf, 0)
		buf = append(buf, name...)
		buf = append(buf, f.Data...)
	}

	if uint64(len(buf)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: container exceeds the size limit", ErrArchiveBuildFailed)
	}
	dirOffset := uint32(len(buf))
	for _, p := range entries {
		buf = binary.LittleEndian.AppendUint32(buf, centralHeaderSig)
		buf = binary.LittleEndian.AppendUint16(buf, zipVersion)
		buf = binary.LittleEndian.AppendUint16(buf, zipVersion)
		buf = binary.LittleEndian.AppendUint16(buf, flagUTF8)
		buf = binary.LittleEndian.AppendUint16(buf, methodStore)
		buf = binary.LittleEndian.AppendUint16(buf, tm)
		buf = binary.LittleEndian.AppendUint16(buf, dt)
		buf = binary.LittleEndian.AppendUint32(buf, p.crc)
		buf = binary.LittleEndian.AppendUint32(buf, p.size)
		buf = binary.LittleEndian.AppendUint32(buf, p.size)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(p.name)))
		buf = binary.LittleEndian.AppendUint16(buf, 0) // extra
		buf = binary.LittleEndian.AppendUint16(buf, 0) // comment
		buf = binary.LittleEndian.AppendUint16(buf, 0) // disk
		buf = binary.LittleEndian.AppendUint16(buf, 0) // internal attrs
		buf = binary.LittleEndian.AppendUint32(buf, 0) // external attrs
		buf = binary.LittleEndian.AppendUint32(buf, p.offset)
		buf = append(buf, p.name...)
	}
	dirSize := uint32(len(buf)) - dirOffset

	buf = binary.LittleEndian.AppendUint32(buf, endRecordSig)
	buf = binary.LittleEndian.AppendUint16(buf, 0)
	buf = binary.LittleEndian.AppendUint16(buf, 0)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(entries)))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(entries)))
	buf = binary.LittleEndian.AppendUint32(buf, dirSize)
	buf = binary.LittleEndian.AppendUint32(buf, dirOffset)
	buf = binary.LittleEndian.AppendUint16(buf, 0)
	return buf, nil
}

// Read parses a container written by Encode. It walks the central
// directory, checks each local header against its directory record, and
// verifies every checksum.
func Read(data []byte) ([]File, error) {
	le := binary.LittleEndian
	if len(data) < endRecordLen {
		return nil, fmt.Errorf("%w: too short", ErrCorrupt)
	}
	end := data[len(data)-endRecordLen:]
	if le.Uint32(end) != endRecordSig {
		return nil, fmt.Errorf("%w: missing end record", ErrCorrupt)
	}
	count := int(le.Uint16(end[10:]))
	dirSize := int(le.Uint32(end[12:]))
	dirOffset := int(le.Uint32(end[16:]))
	if dirOffset+dirSize > len(data)-endRecordLen {
		return nil, fmt.Errorf("%w: directory out of range", ErrCorrupt)
	}

	files := make([]File, 0, count)
	pos := dirOffset
	for i := 0; i < count; i++ {
		if pos+centralHeaderLen > dirOffset+dirSize || le.Uint32(data[pos:]) != centralHeaderSig {
			return nil, fmt.Errorf("%w: bad directory record %d", ErrCorrupt, i)
		}
		rec := data[pos : pos+centralHeaderLen]
		if le.Uint16(rec[10:]) != methodStore {
			return nil, fmt.Errorf("%w: record %d is compressed", ErrCorrupt, i)
		}
		crc := le.Uint32(rec[16:])
		size := int(le.Uint32(rec[24:]))
		nameLen := int(le.Uint16(rec[28:]))
		skip := int(le.Uint16(rec[30:])) + int(le.Uint16(rec[32:]))
		offset := int(le.Uint32(rec[42:]))
		if pos+centralHeaderLen+nameLen > len(data) {
			return nil, fmt.Errorf("%w: record %d name out of range", ErrCorrupt, i)
		}
		name := string(data[pos+centralHeaderLen : pos+centralHeaderLen+nameLen])
		pos += centralHeaderLen + nameLen + skip

		if offset+localHeaderLen > dirOffset || le.Uint32(data[offset:]) != localHeaderSig {
			return nil, fmt.Errorf("%w: bad local header for %s", ErrCorrupt, name)
		}
		local := data[offset : offset+localHeaderLen]
		localName := int(le.Uint16(local[26:]))
		localExtra := int(le.Uint16(local[28:]))
		start := offset + localHeaderLen + localName + localExtra
		if start+size > dirOffset {
			return nil, fmt.Errorf("%w: %s data out of range", ErrCorrupt, name)
		}
		if le.Uint32(local[14:]) != crc || int(le.Uint32(local[22:])) != size {
			return nil, fmt.Errorf("%w: %s local header disagrees with directory", ErrCorrupt, name)
		}
		content := data[start : start+size]
		if got := CRC32(content); got != crc {
			return nil, fmt.Errorf("%w: %s checksum %08x, want %08x", ErrCorrupt, name, got, crc)
		}
		files = append(files, File{Name: name, Data: append([]byte(nil), content...)})
	}
	return files, nil
}
