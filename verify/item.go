package verify

import (
	"bytes"
	"crypto"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xrpm/pkgfile"
	"golang.org/x/crypto/openpgp/packet"
	"golang.org/x/crypto/openpgp/s2k"
)

// Item is one verifiable unit derived from a signature header entry.
// Items are built fresh for each phase iteration and never outlive one
// verification pass.
type Item struct {
	Tag      pkgfile.Tag
	Kind     Kind
	Range    Range
	Algo     crypto.Hash
	KeyID    uint64
	disabler Flags

	// digest items
	hex         bool
	expectedHex string
	expected    []byte

	// signature items
	sig        *packet.Signature
	sigV3      *packet.SignatureV3
	version    int
	pubKeyAlgo packet.PublicKeyAlgorithm

	token string
}

// sigItems maps recognized signature header tags to their verification
// profile. Size tags are informational and deliberately absent; unknown
// tags are skipped entirely.
var sigItems = map[pkgfile.Tag]struct {
	kind     Kind
	rng      Range
	algo     crypto.Hash
	hex      bool
	token    string
	disabler Flags
}{
	pkgfile.SigTagSHA1:       {kind: KindDigest, rng: RangeHeader, algo: crypto.SHA1, hex: true, token: "sha1", disabler: NoSHA1Header},
	pkgfile.SigTagSHA256:     {kind: KindDigest, rng: RangeHeader, algo: crypto.SHA256, hex: true, token: "sha256", disabler: NoSHA256Header},
	pkgfile.SigTagMD5:        {kind: KindDigest, rng: RangeHeader | RangePayload, algo: crypto.MD5, token: "md5", disabler: NoMD5},
	pkgfile.TagPayloadDigest: {kind: KindDigest, rng: RangePayload, algo: crypto.SHA256, hex: true, token: "payload", disabler: NoPayloadDigest},
	pkgfile.SigTagDSA:        {kind: KindSignature, rng: RangeHeader, token: "dsa", disabler: NoDSAHeader},
	pkgfile.SigTagRSA:        {kind: KindSignature, rng: RangeHeader, token: "rsa", disabler: NoRSAHeader},
	pkgfile.SigTagPGP:        {kind: KindSignature, rng: RangeHeader | RangePayload, token: "pgp", disabler: NoRSA},
	pkgfile.SigTagPGP5:       {kind: KindSignature, rng: RangeHeader | RangePayload, token: "pgp", disabler: NoRSA},
	pkgfile.SigTagGPG:        {kind: KindSignature, rng: RangeHeader | RangePayload, token: "gpg", disabler: NoDSA},
}

// newItem derives an Item from a signature header entry. Unrecognized
// tags return (nil, nil). A malformed entry of a recognized digest tag
// returns the partially populated item with an error; the caller marks
// the file failed without reporting the item. Signature entries that do
// not parse yield an item with no usable algorithm, which the enablement
// filter then skips.
func newItem(e *pkgfile.Entry, sigh *pkgfile.Header) (*Item, error) {
	info, ok := sigItems[e.Tag]
	if !ok {
		return nil, nil
	}
	it := &Item{
		Tag:      e.Tag,
		Kind:     info.kind,
		Range:    info.rng,
		Algo:     info.algo,
		disabler: info.disabler,
		hex:      info.hex,
		token:    info.token,
	}

	switch info.kind {
	case KindDigest:
		if info.hex {
			ss, err := e.Strings()
			if err != nil {
				return it, err
			}
			it.expectedHex = ss[0]
		} else {
			if e.Type != pkgfile.TypeBin {
				return it, errors.Wrapf(pkgfile.ErrFormat, "tag %d: binary digest expected", e.Tag)
			}
			it.expected = e.Data
		}
		// The payload digest algorithm travels in a companion entry;
		// SHA256 is assumed when it is absent.
		if e.Tag == pkgfile.TagPayloadDigest {
			if algoE := sigh.Get(pkgfile.TagPayloadDigestAlgo); algoE != nil {
				vals, err := algoE.Uint32s()
				if err != nil {
					return it, err
				}
				h, ok := s2k.HashIdToHash(byte(vals[0]))
				if !ok {
					it.Algo = 0
					return it, nil
				}
				it.Algo = h
			}
		}

	case KindSignature:
		if e.Type != pkgfile.TypeBin {
			return it, nil
		}
		p, err := packet.Read(bytes.NewReader(e.Data))
		if err != nil {
			return it, nil
		}
		switch sig := p.(type) {
		case *packet.Signature:
			if sig.IssuerKeyId != nil {
				it.KeyID = *sig.IssuerKeyId
			}
			it.Algo = sig.Hash
			it.sig = sig
			it.version = 4
			it.pubKeyAlgo = sig.PubKeyAlgo
		case *packet.SignatureV3:
			it.KeyID = sig.IssuerKeyId
			it.Algo = sig.Hash
			it.sigV3 = sig
			it.version = 3
			it.pubKeyAlgo = sig.PubKeyAlgo
		}
	}
	return it, nil
}

// disabled applies the enablement filter: items without a usable hash
// algorithm, items whose disabler bit the flags carry, and payload
// covering items under HeaderOnly are never attached, verified or
// counted.
func (it *Item) disabled(flags Flags) bool {
	if it.Algo == 0 {
		return true
	}
	if flags&it.disabler != 0 {
		return true
	}
	if flags&HeaderOnly != 0 && it.Range&RangePayload != 0 {
		return true
	}
	return false
}

// Title renders the descriptive name used in verbose result lines, such
// as "Header SHA256 digest" or "V4 RSA/SHA256 Signature, key ID 1234aabb".
func (it *Item) Title() string {
	var prefix string
	switch it.Range {
	case RangeHeader:
		prefix = "Header "
	case RangePayload:
		prefix = "Payload "
	}
	if it.Kind == KindDigest {
		return fmt.Sprintf("%s%s digest", prefix, hashName(it.Algo))
	}
	return fmt.Sprintf("%sV%d %s/%s Signature, key ID %08x",
		prefix, it.version, pubKeyAlgoName(it.pubKeyAlgo), hashName(it.Algo), uint32(it.KeyID))
}

// Token is the abbreviation used by the summary reporter.
func (it *Item) Token(upper bool) string {
	if upper {
		return strings.ToUpper(it.token)
	}
	return it.token
}

func hashName(h crypto.Hash) string {
	return strings.ReplaceAll(h.String(), "-", "")
}

func pubKeyAlgoName(a packet.PublicKeyAlgorithm) string {
	switch a {
	case packet.PubKeyAlgoRSA, packet.PubKeyAlgoRSAEncryptOnly, packet.PubKeyAlgoRSASignOnly:
		return "RSA"
	case packet.PubKeyAlgoDSA:
		return "DSA"
	case packet.PubKeyAlgoECDSA:
		return "ECDSA"
	default:
		return "?"
	}
}
