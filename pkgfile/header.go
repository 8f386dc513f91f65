// Package pkgfile reads the container format of rpm package files: the
// legacy lead, the signature header and the main header. Header blobs are
// consumed from a plain io.Reader so callers control which digest
// accumulators observe the raw bytes.
package pkgfile

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrFormat marks malformed container structure. I/O failures are returned
// without this mark so callers can tell the two apart.
var ErrFormat = errors.New("invalid package format")

var headerMagic = []byte{0x8e, 0xad, 0xe8, 0x01, 0x00, 0x00, 0x00, 0x00}

const (
	entrySize       = 16
	maxIndexEntries = 0xffff
	maxDataSize     = 0x0fffffff
)

// Entry is one header index entry together with its raw data bytes.
// Scalar values are big-endian; string values are NUL-terminated.
type Entry struct {
	Tag   Tag
	Type  EntryType
	Count uint32
	Data  []byte
}

// Strings decodes a STRING, STRING_ARRAY or I18NSTRING entry into its
// component strings.
func (e *Entry) Strings() ([]string, error) {
	switch e.Type {
	case TypeString, TypeStringArray, TypeI18NString:
	default:
		return nil, errors.Wrapf(ErrFormat, "tag %d: not a string type", e.Tag)
	}
	if len(e.Data) == 0 || e.Data[len(e.Data)-1] != 0 {
		return nil, errors.Wrapf(ErrFormat, "tag %d: unterminated string data", e.Tag)
	}
	ss := strings.Split(string(e.Data[:len(e.Data)-1]), "\x00")
	if uint32(len(ss)) != e.Count {
		return nil, errors.Wrapf(ErrFormat, "tag %d: expected %d strings, got %d", e.Tag, e.Count, len(ss))
	}
	return ss, nil
}

// Uint32s decodes an INT32 entry.
func (e *Entry) Uint32s() ([]uint32, error) {
	if e.Type != TypeInt32 {
		return nil, errors.Wrapf(ErrFormat, "tag %d: not an int32 type", e.Tag)
	}
	vals := make([]uint32, e.Count)
	for i := range vals {
		vals[i] = binary.BigEndian.Uint32(e.Data[i*4:])
	}
	return vals, nil
}

// Blob is one raw header region decoded from a package stream.
type Blob struct {
	Region  Tag
	Entries []Entry
	dataLen uint32
}

// ReadBlob consumes one header blob from r: magic, index and data,
// plus the 8-byte alignment padding that trails the signature region.
// Exactly the blob bytes are read, nothing more.
func ReadBlob(r io.Reader, region Tag) (*Blob, error) {
	label := regionLabel(region)

	var intro [16]byte
	if _, err := io.ReadFull(r, intro[:]); err != nil {
		return nil, errors.WithMessagef(err, "read %s", label)
	}
	if !bytes.Equal(intro[:8], headerMagic) {
		return nil, errors.Wrapf(ErrFormat, "%s: bad magic", label)
	}
	il := binary.BigEndian.Uint32(intro[8:12])
	dl := binary.BigEndian.Uint32(intro[12:16])
	if il > maxIndexEntries {
		return nil, errors.Wrapf(ErrFormat, "%s: %d index entries out of range", label, il)
	}
	if dl > maxDataSize {
		return nil, errors.Wrapf(ErrFormat, "%s: %d data bytes out of range", label, dl)
	}

	// The signature region is padded to an 8 byte boundary; the padding
	// belongs to the blob and must be consumed from the stream.
	pad := uint32(0)
	if region == TagHeaderSignatures {
		pad = (8 - dl%8) % 8
	}

	buf := make([]byte, il*entrySize+dl+pad)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.WithMessagef(err, "read %s", label)
	}
	data := buf[il*entrySize : il*entrySize+dl]

	b := &Blob{Region: region, Entries: make([]Entry, 0, il), dataLen: dl}
	for i := uint32(0); i < il; i++ {
		ix := buf[i*entrySize : (i+1)*entrySize]
		e := Entry{
			Tag:   Tag(binary.BigEndian.Uint32(ix[0:4])),
			Type:  EntryType(binary.BigEndian.Uint32(ix[4:8])),
			Count: binary.BigEndian.Uint32(ix[12:16]),
		}
		off := binary.BigEndian.Uint32(ix[8:12])
		if !e.Type.valid() {
			return nil, errors.Wrapf(ErrFormat, "%s: tag %d: unknown type %d", label, e.Tag, e.Type)
		}
		if e.Count == 0 {
			return nil, errors.Wrapf(ErrFormat, "%s: tag %d: zero count", label, e.Tag)
		}
		if off > dl {
			return nil, errors.Wrapf(ErrFormat, "%s: tag %d: offset %d out of range", label, e.Tag, off)
		}
		if align := typeAligns[e.Type]; off%uint32(align) != 0 {
			return nil, errors.Wrapf(ErrFormat, "%s: tag %d: misaligned data", label, e.Tag)
		}
		n, err := entryDataLen(e.Type, e.Count, data, off)
		if err != nil {
			return nil, errors.WithMessagef(err, "%s: tag %d", label, e.Tag)
		}
		e.Data = data[off : off+uint32(n)]
		b.Entries = append(b.Entries, e)
	}
	return b, nil
}

// entryDataLen computes the byte length of an entry value starting at off,
// validating that it fits within the data region.
func entryDataLen(t EntryType, count uint32, data []byte, off uint32) (int, error) {
	switch t {
	case TypeString:
		if count != 1 {
			return 0, errors.Wrapf(ErrFormat, "string count %d", count)
		}
		fallthrough
	case TypeStringArray, TypeI18NString:
		n := 0
		for i := uint32(0); i < count; i++ {
			k := bytes.IndexByte(data[off+uint32(n):], 0)
			if k < 0 {
				return 0, errors.Wrap(ErrFormat, "unterminated string data")
			}
			n += k + 1
		}
		return n, nil
	default:
		n := uint64(typeSizes[t]) * uint64(count)
		if uint64(off)+n > uint64(len(data)) {
			return 0, errors.Wrap(ErrFormat, "data out of range")
		}
		return int(n), nil
	}
}

// Import builds a Header from the blob. Duplicate tags are rejected so
// that every verifiable entry maps to exactly one digest accumulator.
func (b *Blob) Import() (*Header, error) {
	h := &Header{index: make(map[Tag]int, len(b.Entries))}
	for _, e := range b.Entries {
		if _, dup := h.index[e.Tag]; dup {
			return nil, errors.Wrapf(ErrFormat, "%s: duplicate tag %d", regionLabel(b.Region), e.Tag)
		}
		h.put(e)
	}
	return h, nil
}

// Header holds decoded entries in container order with tag lookup.
type Header struct {
	entries []Entry
	index   map[Tag]int
}

// Len returns the number of entries.
func (h *Header) Len() int {
	return len(h.entries)
}

// Entries returns the entries in the order they appear in the container.
func (h *Header) Entries() []Entry {
	return h.entries
}

// Get returns the entry for tag, or nil when absent.
func (h *Header) Get(tag Tag) *Entry {
	if i, ok := h.index[tag]; ok {
		return &h.entries[i]
	}
	return nil
}

// Has reports whether tag is present.
func (h *Header) Has(tag Tag) bool {
	_, ok := h.index[tag]
	return ok
}

// CopyTags copies the listed tags from src when present there and not
// already set, preserving entry type and raw data.
func (h *Header) CopyTags(src *Header, tags ...Tag) {
	for _, t := range tags {
		if h.Has(t) {
			continue
		}
		if e := src.Get(t); e != nil {
			h.put(*e)
		}
	}
}

func (h *Header) put(e Entry) {
	h.index[e.Tag] = len(h.entries)
	h.entries = append(h.entries, e)
}

func regionLabel(region Tag) string {
	if region == TagHeaderSignatures {
		return "signature header"
	}
	return "header"
}
