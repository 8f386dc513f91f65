package digestio_test

import (
	"crypto"
	_ "crypto/md5"
	_ "crypto/sha1"
	_ "crypto/sha256"
	"io"
	"strings"
	"testing"

	"github.com/effective-security/xrpm/digestio"
	"github.com/effective-security/xrpm/testpkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundleMultiplexes(t *testing.T) {
	b := digestio.New()
	require.NoError(t, b.Attach(1, crypto.SHA256))
	require.NoError(t, b.Attach(2, crypto.MD5))

	// Feed in uneven chunks through both Writer entry points.
	_, err := io.Copy(b, strings.NewReader("hello "))
	require.NoError(t, err)
	_, err = b.Write([]byte("world"))
	require.NoError(t, err)

	sum, err := b.SumHex(1)
	require.NoError(t, err)
	assert.Equal(t, testpkg.DigestHex(crypto.SHA256, []byte("hello world")), sum)

	sum, err = b.SumHex(2)
	require.NoError(t, err)
	assert.Equal(t, testpkg.DigestHex(crypto.MD5, []byte("hello world")), sum)
}

func TestAttachIdempotent(t *testing.T) {
	b := digestio.New()
	require.NoError(t, b.Attach(7, crypto.SHA1))
	_, _ = b.Write([]byte("abc"))

	// A second attach must not reset or replace the accumulator.
	require.NoError(t, b.Attach(7, crypto.SHA256))
	_, _ = b.Write([]byte("def"))

	sum, err := b.SumHex(7)
	require.NoError(t, err)
	assert.Equal(t, testpkg.DigestHex(crypto.SHA1, []byte("abcdef")), sum)
}

func TestSnapshotIndependent(t *testing.T) {
	b := digestio.New()
	require.NoError(t, b.Attach(1, crypto.SHA256))
	_, _ = b.Write([]byte("region one"))

	snap, err := b.Snapshot(1)
	require.NoError(t, err)

	// The running accumulator keeps going.
	_, _ = b.Write([]byte(" region two"))

	assert.Equal(t,
		testpkg.Digest(crypto.SHA256, []byte("region one")),
		snap.Sum(nil))

	// The snapshot accepts further input of its own, as signature
	// verification does with the v4 trailer.
	snap.Write([]byte("trailer"))
	assert.Equal(t,
		testpkg.Digest(crypto.SHA256, []byte("region onetrailer")),
		snap.Sum(nil))

	sum, err := b.SumHex(1)
	require.NoError(t, err)
	assert.Equal(t, testpkg.DigestHex(crypto.SHA256, []byte("region one region two")), sum)
}

func TestDetach(t *testing.T) {
	b := digestio.New()
	require.NoError(t, b.Attach(3, crypto.MD5))
	require.True(t, b.Attached(3))

	b.Detach(3)
	assert.False(t, b.Attached(3))

	_, err := b.Snapshot(3)
	assert.ErrorContains(t, err, "not attached")

	// Unknown ids detach quietly.
	b.Detach(99)
}

func TestAttachUnavailableHash(t *testing.T) {
	b := digestio.New()
	err := b.Attach(1, crypto.MD4)
	assert.ErrorContains(t, err, "not available")
	assert.False(t, b.Attached(1))
}
