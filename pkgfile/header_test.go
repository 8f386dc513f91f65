package pkgfile_test

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/effective-security/xrpm/pkgfile"
	"github.com/effective-security/xrpm/testpkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBlobRoundTrip(t *testing.T) {
	raw := testpkg.HeaderBlob(
		testpkg.String(pkgfile.SigTagSHA256, "cafe"),
		testpkg.Int32(pkgfile.TagPayloadDigestAlgo, 8),
		testpkg.Bin(pkgfile.SigTagMD5, []byte{1, 2, 3, 4}),
		testpkg.StringArray(pkgfile.TagPayloadDigest, "aa", "bb"),
		testpkg.Int64(pkgfile.SigTagLongSize, 1234567890123),
	)

	b, err := pkgfile.ReadBlob(bytes.NewReader(raw), pkgfile.TagHeaderImmutable)
	require.NoError(t, err)
	require.Len(t, b.Entries, 5)

	h, err := b.Import()
	require.NoError(t, err)
	assert.Equal(t, 5, h.Len())

	ss, err := h.Get(pkgfile.SigTagSHA256).Strings()
	require.NoError(t, err)
	assert.Equal(t, []string{"cafe"}, ss)

	vals, err := h.Get(pkgfile.TagPayloadDigestAlgo).Uint32s()
	require.NoError(t, err)
	assert.Equal(t, []uint32{8}, vals)

	assert.Equal(t, []byte{1, 2, 3, 4}, h.Get(pkgfile.SigTagMD5).Data)

	ss, err = h.Get(pkgfile.TagPayloadDigest).Strings()
	require.NoError(t, err)
	assert.Equal(t, []string{"aa", "bb"}, ss)

	assert.Nil(t, h.Get(pkgfile.SigTagDSA))
	assert.False(t, h.Has(pkgfile.SigTagDSA))
}

// Entries keep the order they appear in the container, not tag order.
func TestImportPreservesOrder(t *testing.T) {
	raw := testpkg.HeaderBlob(
		testpkg.String(pkgfile.SigTagSHA256, "x"),
		testpkg.Bin(pkgfile.SigTagMD5, []byte{9}),
		testpkg.String(pkgfile.SigTagSHA1, "y"),
	)
	b, err := pkgfile.ReadBlob(bytes.NewReader(raw), pkgfile.TagHeaderImmutable)
	require.NoError(t, err)
	h, err := b.Import()
	require.NoError(t, err)

	var tags []pkgfile.Tag
	for _, e := range h.Entries() {
		tags = append(tags, e.Tag)
	}
	assert.Equal(t, []pkgfile.Tag{pkgfile.SigTagSHA256, pkgfile.SigTagMD5, pkgfile.SigTagSHA1}, tags)
}

func TestReadBlobConsumesExactly(t *testing.T) {
	t.Run("header", func(t *testing.T) {
		raw := testpkg.HeaderBlob(testpkg.String(pkgfile.SigTagSHA1, "odd"))
		r := bytes.NewReader(append(raw, 0xEE))
		_, err := pkgfile.ReadBlob(r, pkgfile.TagHeaderImmutable)
		require.NoError(t, err)
		rest, _ := io.ReadAll(r)
		assert.Equal(t, []byte{0xEE}, rest)
	})

	// The signature region is padded to 8 bytes and the padding must be
	// consumed so the main header starts at the right offset.
	t.Run("signature padding", func(t *testing.T) {
		raw := testpkg.SignatureBlob(testpkg.Bin(pkgfile.SigTagMD5, []byte{1, 2, 3}))
		require.Zero(t, len(raw)%8)

		r := bytes.NewReader(append(raw, 0xEE))
		_, err := pkgfile.ReadBlob(r, pkgfile.TagHeaderSignatures)
		require.NoError(t, err)
		rest, _ := io.ReadAll(r)
		assert.Equal(t, []byte{0xEE}, rest)
	})
}

func TestReadBlobErrors(t *testing.T) {
	valid := testpkg.HeaderBlob(testpkg.String(pkgfile.SigTagSHA1, "y"))

	t.Run("bad magic", func(t *testing.T) {
		raw := append([]byte{}, valid...)
		raw[0] = 0
		_, err := pkgfile.ReadBlob(bytes.NewReader(raw), pkgfile.TagHeaderImmutable)
		assert.ErrorIs(t, err, pkgfile.ErrFormat)
		assert.ErrorContains(t, err, "bad magic")
	})

	t.Run("index count out of range", func(t *testing.T) {
		raw := append([]byte{}, valid...)
		binary.BigEndian.PutUint32(raw[8:12], 0x10000)
		_, err := pkgfile.ReadBlob(bytes.NewReader(raw), pkgfile.TagHeaderImmutable)
		assert.ErrorIs(t, err, pkgfile.ErrFormat)
		assert.ErrorContains(t, err, "out of range")
	})

	t.Run("truncated data", func(t *testing.T) {
		_, err := pkgfile.ReadBlob(bytes.NewReader(valid[:len(valid)-1]), pkgfile.TagHeaderImmutable)
		require.Error(t, err)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
		assert.NotErrorIs(t, err, pkgfile.ErrFormat)
	})

	t.Run("unknown entry type", func(t *testing.T) {
		raw := testpkg.HeaderBlob(testpkg.Entry{Tag: 1, Type: 12, Count: 1, Data: []byte{0}})
		_, err := pkgfile.ReadBlob(bytes.NewReader(raw), pkgfile.TagHeaderImmutable)
		assert.ErrorIs(t, err, pkgfile.ErrFormat)
	})

	t.Run("zero count", func(t *testing.T) {
		raw := testpkg.HeaderBlob(testpkg.Entry{Tag: 1, Type: pkgfile.TypeBin, Count: 0})
		_, err := pkgfile.ReadBlob(bytes.NewReader(raw), pkgfile.TagHeaderImmutable)
		assert.ErrorIs(t, err, pkgfile.ErrFormat)
	})

	t.Run("unterminated string", func(t *testing.T) {
		raw := testpkg.HeaderBlob(testpkg.Entry{Tag: 1, Type: pkgfile.TypeString, Count: 1, Data: []byte("x")})
		_, err := pkgfile.ReadBlob(bytes.NewReader(raw), pkgfile.TagHeaderImmutable)
		assert.ErrorIs(t, err, pkgfile.ErrFormat)
		assert.ErrorContains(t, err, "unterminated")
	})

	t.Run("scalar data out of range", func(t *testing.T) {
		raw := testpkg.HeaderBlob(testpkg.Bin(pkgfile.SigTagMD5, []byte{1}))
		// Bump the count past the data region.
		binary.BigEndian.PutUint32(raw[16+12:], 9)
		_, err := pkgfile.ReadBlob(bytes.NewReader(raw), pkgfile.TagHeaderImmutable)
		assert.ErrorIs(t, err, pkgfile.ErrFormat)
		assert.ErrorContains(t, err, "data out of range")
	})

	t.Run("misaligned int32", func(t *testing.T) {
		raw := testpkg.HeaderBlob(
			testpkg.Bin(pkgfile.SigTagMD5, []byte{1}),
			testpkg.Int32(pkgfile.TagPayloadDigestAlgo, 8),
		)
		// Point the int32 entry at an odd offset.
		binary.BigEndian.PutUint32(raw[16+16+8:], 1)
		_, err := pkgfile.ReadBlob(bytes.NewReader(raw), pkgfile.TagHeaderImmutable)
		assert.ErrorIs(t, err, pkgfile.ErrFormat)
		assert.ErrorContains(t, err, "misaligned")
	})
}

func TestImportRejectsDuplicates(t *testing.T) {
	raw := testpkg.HeaderBlob(
		testpkg.String(pkgfile.SigTagSHA1, "a"),
		testpkg.String(pkgfile.SigTagSHA1, "b"),
	)
	b, err := pkgfile.ReadBlob(bytes.NewReader(raw), pkgfile.TagHeaderImmutable)
	require.NoError(t, err)
	_, err = b.Import()
	assert.ErrorIs(t, err, pkgfile.ErrFormat)
	assert.ErrorContains(t, err, "duplicate tag")
}

func TestCopyTags(t *testing.T) {
	src := importBlob(t, testpkg.HeaderBlob(
		testpkg.StringArray(pkgfile.TagPayloadDigest, "aa"),
		testpkg.Int32(pkgfile.TagPayloadDigestAlgo, 8),
		testpkg.String(pkgfile.SigTagSHA1, "skipme"),
	))
	dst := importBlob(t, testpkg.HeaderBlob(
		testpkg.String(pkgfile.SigTagSHA1, "mine"),
	))

	dst.CopyTags(src, pkgfile.TagPayloadDigest, pkgfile.TagPayloadDigestAlgo, pkgfile.SigTagSHA1)

	ss, err := dst.Get(pkgfile.TagPayloadDigest).Strings()
	require.NoError(t, err)
	assert.Equal(t, []string{"aa"}, ss)
	assert.True(t, dst.Has(pkgfile.TagPayloadDigestAlgo))

	// Present tags are not overwritten.
	ss, err = dst.Get(pkgfile.SigTagSHA1).Strings()
	require.NoError(t, err)
	assert.Equal(t, []string{"mine"}, ss)
	assert.Equal(t, 3, dst.Len())
}

func TestEntryAccessorTypes(t *testing.T) {
	h := importBlob(t, testpkg.HeaderBlob(
		testpkg.Bin(pkgfile.SigTagMD5, []byte{1, 2}),
		testpkg.String(pkgfile.SigTagSHA1, "ff"),
	))

	_, err := h.Get(pkgfile.SigTagMD5).Strings()
	assert.ErrorIs(t, err, pkgfile.ErrFormat)

	_, err = h.Get(pkgfile.SigTagSHA1).Uint32s()
	assert.ErrorIs(t, err, pkgfile.ErrFormat)
}

func importBlob(t *testing.T, raw []byte) *pkgfile.Header {
	t.Helper()
	b, err := pkgfile.ReadBlob(bytes.NewReader(raw), pkgfile.TagHeaderImmutable)
	require.NoError(t, err)
	h, err := b.Import()
	require.NoError(t, err)
	return h
}
