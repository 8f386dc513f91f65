package verify

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/effective-security/xrpm/digestio"
	"github.com/effective-security/xrpm/gpg"
)

// Result is the outcome of checking one item, with the display line
// already formatted.
type Result struct {
	Item    *Item
	Status  Status
	Message string
}

// checkItem verifies one item against a snapshot of its accumulator.
// The accumulator keeps running; the caller detaches it afterwards.
func checkItem(b *digestio.Bundle, it *Item, keyring *gpg.Keyring) Result {
	res := Result{Item: it, Status: StatusOK}
	switch it.Kind {
	case KindDigest:
		res.Status, res.Message = checkDigest(b, it)
	case KindSignature:
		res.Status, res.Message = checkSignature(b, it, keyring)
	}
	return res
}

func checkDigest(b *digestio.Bundle, it *Item) (Status, string) {
	snap, err := b.Snapshot(int(it.Tag))
	if err != nil {
		return StatusBad, fmt.Sprintf("%s: %s", it.Title(), StatusBad)
	}
	sum := snap.Sum(nil)

	want, got := it.expectedHex, hex.EncodeToString(sum)
	ok := want == got
	if !it.hex {
		want, got = hex.EncodeToString(it.expected), hex.EncodeToString(sum)
		ok = bytes.Equal(sum, it.expected)
	}
	if !ok {
		return StatusBad, fmt.Sprintf("%s: %s (Expected %s != %s)", it.Title(), StatusBad, want, got)
	}
	return StatusOK, fmt.Sprintf("%s: %s", it.Title(), StatusOK)
}

func checkSignature(b *digestio.Bundle, it *Item, keyring *gpg.Keyring) (Status, string) {
	keys := keyring.KeysByID(it.KeyID)
	if len(keys) == 0 {
		return StatusNoKey, fmt.Sprintf("%s: %s", it.Title(), StatusNoKey)
	}

	status := StatusBad
	for _, key := range keys {
		// Verification consumes the hash by appending the signature
		// trailer, so every candidate key gets its own snapshot.
		snap, err := b.Snapshot(int(it.Tag))
		if err != nil {
			break
		}
		if it.sig != nil {
			err = key.PublicKey.VerifySignature(snap, it.sig)
		} else {
			err = key.PublicKey.VerifySignatureV3(snap, it.sigV3)
		}
		if err == nil {
			status = StatusOK
			break
		}
	}
	return status, fmt.Sprintf("%s: %s", it.Title(), status)
}
