package pkgfile

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
)

// LeadSize is the fixed size of the legacy lead block.
const LeadSize = 96

// SignatureTypeHeader marks packages carrying header-style signatures,
// the only kind this module verifies.
const SignatureTypeHeader = 5

var leadMagic = []byte{0xed, 0xab, 0xee, 0xdb}

// Lead is the legacy fixed-size block at the start of every package file.
// Its fields are obsolete apart from identifying the file and the
// signature style; verification only consults SignatureType.
type Lead struct {
	Major         uint8
	Minor         uint8
	Type          int16
	Arch          int16
	Name          string
	OS            int16
	SignatureType int16
}

// ReadLead consumes exactly LeadSize bytes from r and validates the magic,
// package version and signature type.
func ReadLead(r io.Reader) (*Lead, error) {
	var buf [LeadSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, errors.WithMessage(err, "read lead")
	}
	if !bytes.Equal(buf[:4], leadMagic) {
		return nil, errors.Wrap(ErrFormat, "not an rpm package")
	}

	l := &Lead{
		Major:         buf[4],
		Minor:         buf[5],
		Type:          int16(binary.BigEndian.Uint16(buf[6:8])),
		Arch:          int16(binary.BigEndian.Uint16(buf[8:10])),
		Name:          string(bytes.TrimRight(buf[10:76], "\x00")),
		OS:            int16(binary.BigEndian.Uint16(buf[76:78])),
		SignatureType: int16(binary.BigEndian.Uint16(buf[78:80])),
	}
	if l.Major < 3 || l.Major > 4 {
		return nil, errors.Wrap(ErrFormat, "unsupported rpm package version")
	}
	if l.SignatureType != SignatureTypeHeader {
		return nil, errors.Wrap(ErrFormat, "illegal signature type")
	}
	return l, nil
}

// WriteTo serializes the lead in its on-disk layout.
func (l *Lead) WriteTo(w io.Writer) (int64, error) {
	var buf [LeadSize]byte
	copy(buf[:4], leadMagic)
	buf[4] = l.Major
	buf[5] = l.Minor
	binary.BigEndian.PutUint16(buf[6:8], uint16(l.Type))
	binary.BigEndian.PutUint16(buf[8:10], uint16(l.Arch))
	copy(buf[10:75], l.Name)
	binary.BigEndian.PutUint16(buf[76:78], uint16(l.OS))
	binary.BigEndian.PutUint16(buf[78:80], uint16(l.SignatureType))
	n, err := w.Write(buf[:])
	return int64(n), errors.WithStack(err)
}
