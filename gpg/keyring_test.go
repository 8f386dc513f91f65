package gpg_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/effective-security/xrpm/gpg"
	"github.com/effective-security/xrpm/testpkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/openpgp/armor"
)

func TestParse(t *testing.T) {
	alice := testpkg.NewEntity("alice")
	bob := testpkg.NewEntity("bob")

	k := gpg.NewKeyring()
	require.NoError(t, k.Parse(testpkg.Armor(alice, bob)))
	assert.Equal(t, 2, k.Count())

	keys := k.KeysByID(alice.PrimaryKey.KeyId)
	require.NotEmpty(t, keys)
	assert.Equal(t, alice.PrimaryKey.KeyId, keys[0].PublicKey.KeyId)
}

func TestParseSkipsNonKeyBlocks(t *testing.T) {
	data := append(armorBlock(t, "PGP MESSAGE", []byte("hello")), testpkg.Armor(testpkg.NewEntity("alice"))...)

	k := gpg.NewKeyring()
	require.NoError(t, k.Parse(data))
	assert.Equal(t, 1, k.Count())
}

func TestParseNoMarker(t *testing.T) {
	k := gpg.NewKeyring()
	require.NoError(t, k.Parse([]byte("no keys here")))
	assert.Equal(t, 0, k.Count())
}

func TestParseReplacesSameKey(t *testing.T) {
	alice := testpkg.NewEntity("alice")
	k := gpg.NewKeyring()
	require.NoError(t, k.Parse(testpkg.Armor(alice)))
	require.NoError(t, k.Parse(testpkg.Armor(alice)))
	assert.Equal(t, 1, k.Count())
}

func TestKeyringFromFiles(t *testing.T) {
	dir := t.TempDir()
	f1 := filepath.Join(dir, "alice.asc")
	f2 := filepath.Join(dir, "bob.asc")
	require.NoError(t, os.WriteFile(f1, testpkg.Armor(testpkg.NewEntity("alice")), 0o644))
	require.NoError(t, os.WriteFile(f2, testpkg.Armor(testpkg.NewEntity("bob")), 0o644))

	k, err := gpg.KeyringFromFiles([]string{f1, f2})
	require.NoError(t, err)
	assert.Equal(t, 2, k.Count())

	_, err = gpg.KeyringFromFile(filepath.Join(dir, "missing.asc"))
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	alice := testpkg.NewEntity("alice")
	k := gpg.NewKeyring()
	require.NoError(t, k.Parse(testpkg.Armor(alice)))

	infos := k.Keys()
	require.Len(t, infos, 1)
	assert.Len(t, infos[0].KeyID, 16)
	assert.Contains(t, infos[0].Identity, "alice")
	assert.False(t, infos[0].Created.IsZero())
}

func TestWriteArmored(t *testing.T) {
	alice := testpkg.NewEntity("alice")
	bob := testpkg.NewEntity("bob")
	k := gpg.NewKeyring()
	require.NoError(t, k.Parse(testpkg.Armor(alice, bob)))

	var buf bytes.Buffer
	require.NoError(t, k.WriteArmored(&buf))

	k2 := gpg.NewKeyring()
	require.NoError(t, k2.Parse(buf.Bytes()))
	assert.Equal(t, 2, k2.Count())
	assert.NotEmpty(t, k2.KeysByID(alice.PrimaryKey.KeyId))
	assert.NotEmpty(t, k2.KeysByID(bob.PrimaryKey.KeyId))

	var empty bytes.Buffer
	require.NoError(t, gpg.NewKeyring().WriteArmored(&empty))
	assert.Zero(t, empty.Len())
}

func armorBlock(t *testing.T, blockType string, body []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, blockType, nil)
	require.NoError(t, err)
	_, err = w.Write(body)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	buf.WriteString("\n")
	return buf.Bytes()
}
