package gpg

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xrpm", "gpg")

// armorMarker starts every armored OpenPGP block. Scanning for it lets a
// single file carry several concatenated key blocks.
const armorMarker = "-----BEGIN PGP "

// Keyring holds trusted OpenPGP public keys used to validate GPG
// signatures on RPM packages.
type Keyring struct {
	entities openpgp.EntityList
}

// NewKeyring returns an empty keyring.
func NewKeyring() *Keyring {
	return &Keyring{}
}

// Parse appends every public key block found in data to the keyring.
// Non key armor blocks are skipped; a malformed key block fails the whole
// parse.
func (k *Keyring) Parse(data []byte) error {
	for _, block := range armorBlocks(data) {
		blk, err := decodeArmor(block)
		if err != nil {
			logger.KV(xlog.TRACE, "reason", "no_block", "err", err.Error())
			continue
		}
		if blk.Type != openpgp.PublicKeyType {
			logger.KV(xlog.TRACE, "reason", "skipped_block", "type", blk.Type)
			continue
		}
		el, err := openpgp.ReadKeyRing(bytes.NewReader(blk.Packets))
		if err != nil {
			return errors.WithStack(err)
		}
		for _, e := range el {
			k.add(e)
		}
	}
	return nil
}

// KeyringFromFile reads armored public keys from the given file path which
// may then be used to validate GPG signatures on RPM packages.
func KeyringFromFile(path string) (*Keyring, error) {
	return KeyringFromFiles([]string{path})
}

// KeyringFromFiles reads armored public keys from the given file paths.
//
// This function might typically be used to read all keys in
// /etc/pki/rpm-gpg.
func KeyringFromFiles(files []string) (*Keyring, error) {
	k := NewKeyring()
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if err := k.Parse(data); err != nil {
			return nil, errors.WithMessagef(err, "parse keyring: %s", path)
		}
	}
	return k, nil
}

// Count returns the number of keys in the keyring.
func (k *Keyring) Count() int {
	return len(k.entities)
}

// KeysByID returns every key matching the given key id, including subkeys.
func (k *Keyring) KeysByID(id uint64) []openpgp.Key {
	return k.entities.KeysById(id)
}

// KeyInfo describes one primary key in the keyring.
type KeyInfo struct {
	KeyID    string
	Created  time.Time
	Identity string
}

// Keys lists the primary keys in insertion order.
func (k *Keyring) Keys() []KeyInfo {
	infos := make([]KeyInfo, 0, len(k.entities))
	for _, e := range k.entities {
		infos = append(infos, KeyInfo{
			KeyID:    fmt.Sprintf("%016x", e.PrimaryKey.KeyId),
			Created:  e.PrimaryKey.CreationTime,
			Identity: primaryIdentityName(e),
		})
	}
	return infos
}

// primaryIdentityName prefers the identity whose self signature marks it
// as primary, falling back to any identity on the entity.
func primaryIdentityName(e *openpgp.Entity) string {
	name := ""
	for _, id := range e.Identities {
		if name == "" {
			name = id.Name
		}
		if id.SelfSignature != nil && id.SelfSignature.IsPrimaryId != nil && *id.SelfSignature.IsPrimaryId {
			return id.Name
		}
	}
	return name
}

// WriteArmored writes the public part of every key to w, one armored
// block per key. The output round trips through Parse and Import.
func (k *Keyring) WriteArmored(w io.Writer) error {
	for _, e := range k.entities {
		aw, err := armor.Encode(w, openpgp.PublicKeyType, nil)
		if err != nil {
			return errors.WithStack(err)
		}
		if err := e.Serialize(aw); err != nil {
			return errors.WithStack(err)
		}
		if err := aw.Close(); err != nil {
			return errors.WithStack(err)
		}
		// The armor encoder does not terminate the end marker line.
		if _, err := io.WriteString(w, "\n"); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// add inserts the entity, replacing a previous entity with the same
// primary key id.
func (k *Keyring) add(e *openpgp.Entity) {
	for i, have := range k.entities {
		if have.PrimaryKey.KeyId == e.PrimaryKey.KeyId {
			k.entities[i] = e
			return
		}
	}
	k.entities = append(k.entities, e)
}

// armorBlocks splits data at every armor begin marker. Data before the
// first marker is dropped; input with no marker yields nothing.
func armorBlocks(data []byte) [][]byte {
	var blocks [][]byte
	marker := []byte(armorMarker)
	start := bytes.Index(data, marker)
	for start >= 0 {
		rest := data[start:]
		next := bytes.Index(rest[len(marker):], marker)
		if next < 0 {
			blocks = append(blocks, rest)
			break
		}
		blocks = append(blocks, rest[:len(marker)+next])
		start += len(marker) + next
	}
	return blocks
}
