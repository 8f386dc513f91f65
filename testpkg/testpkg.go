// Package testpkg builds synthetic rpm packages for tests: header blobs
// with correct index layout and alignment, signed signature headers and
// complete package files. Builders panic on failure.
package testpkg

import (
	"bytes"
	"crypto"
	"encoding/binary"
	"encoding/hex"

	"github.com/effective-security/xrpm/pkgfile"
)

var headerMagic = []byte{0x8e, 0xad, 0xe8, 0x01, 0x00, 0x00, 0x00, 0x00}

// Entry is one header entry to place into a built blob.
type Entry struct {
	Tag   pkgfile.Tag
	Type  pkgfile.EntryType
	Count uint32
	Data  []byte
}

// String builds a STRING entry.
func String(tag pkgfile.Tag, s string) Entry {
	return Entry{Tag: tag, Type: pkgfile.TypeString, Count: 1, Data: append([]byte(s), 0)}
}

// StringArray builds a STRING_ARRAY entry.
func StringArray(tag pkgfile.Tag, ss ...string) Entry {
	var data []byte
	for _, s := range ss {
		data = append(data, s...)
		data = append(data, 0)
	}
	return Entry{Tag: tag, Type: pkgfile.TypeStringArray, Count: uint32(len(ss)), Data: data}
}

// Bin builds a BIN entry.
func Bin(tag pkgfile.Tag, b []byte) Entry {
	return Entry{Tag: tag, Type: pkgfile.TypeBin, Count: uint32(len(b)), Data: b}
}

// Int32 builds an INT32 entry.
func Int32(tag pkgfile.Tag, vals ...uint32) Entry {
	data := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.BigEndian.PutUint32(data[i*4:], v)
	}
	return Entry{Tag: tag, Type: pkgfile.TypeInt32, Count: uint32(len(vals)), Data: data}
}

// Int64 builds an INT64 entry.
func Int64(tag pkgfile.Tag, vals ...uint64) Entry {
	data := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.BigEndian.PutUint64(data[i*8:], v)
	}
	return Entry{Tag: tag, Type: pkgfile.TypeInt64, Count: uint32(len(vals)), Data: data}
}

var typeAligns = map[pkgfile.EntryType]int{
	pkgfile.TypeInt16: 2,
	pkgfile.TypeInt32: 4,
	pkgfile.TypeInt64: 8,
}

// HeaderBlob serializes entries as a main header blob.
func HeaderBlob(entries ...Entry) []byte {
	return buildBlob(pkgfile.TagHeaderImmutable, entries)
}

// SignatureBlob serializes entries as a signature header blob, including
// the trailing padding to an 8 byte boundary.
func SignatureBlob(entries ...Entry) []byte {
	return buildBlob(pkgfile.TagHeaderSignatures, entries)
}

func buildBlob(region pkgfile.Tag, entries []Entry) []byte {
	var index, data bytes.Buffer
	for _, e := range entries {
		if align := typeAligns[e.Type]; align > 1 {
			for data.Len()%align != 0 {
				data.WriteByte(0)
			}
		}
		var ix [16]byte
		binary.BigEndian.PutUint32(ix[0:4], uint32(e.Tag))
		binary.BigEndian.PutUint32(ix[4:8], uint32(e.Type))
		binary.BigEndian.PutUint32(ix[8:12], uint32(data.Len()))
		binary.BigEndian.PutUint32(ix[12:16], e.Count)
		index.Write(ix[:])
		data.Write(e.Data)
	}

	var blob bytes.Buffer
	blob.Write(headerMagic)
	_ = binary.Write(&blob, binary.BigEndian, uint32(len(entries)))
	_ = binary.Write(&blob, binary.BigEndian, uint32(data.Len()))
	blob.Write(index.Bytes())
	blob.Write(data.Bytes())
	if region == pkgfile.TagHeaderSignatures {
		for blob.Len()%8 != 0 {
			blob.WriteByte(0)
		}
	}
	return blob.Bytes()
}

// Lead serializes a minimal valid lead for the given package name.
func Lead(name string) []byte {
	var buf bytes.Buffer
	l := pkgfile.Lead{Major: 3, Name: name, SignatureType: pkgfile.SignatureTypeHeader}
	if _, err := l.WriteTo(&buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Assemble concatenates the pieces of a package file.
func Assemble(lead, sigBlob, hdrBlob, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Write(lead)
	buf.Write(sigBlob)
	buf.Write(hdrBlob)
	buf.Write(payload)
	return buf.Bytes()
}

// Digest returns the digest of the concatenation of data.
func Digest(h crypto.Hash, data ...[]byte) []byte {
	hh := h.New()
	for _, d := range data {
		hh.Write(d)
	}
	return hh.Sum(nil)
}

// DigestHex returns the lowercase hex digest of the concatenation of data.
func DigestHex(h crypto.Hash, data ...[]byte) string {
	return hex.EncodeToString(Digest(h, data...))
}
