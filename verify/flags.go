package verify

// Flags globally disables verification items. Each recognized tag has
// its own disabler bit; the composites cover a whole class.
type Flags uint32

const (
	// NoSHA1Header skips the header SHA1 digest.
	NoSHA1Header Flags = 1 << iota
	// NoSHA256Header skips the header SHA256 digest.
	NoSHA256Header
	// NoPayloadDigest skips the payload digest carried in the main header.
	NoPayloadDigest
	// NoMD5 skips the header plus payload MD5 digest.
	NoMD5
	// NoDSAHeader skips the DSA header signature.
	NoDSAHeader
	// NoRSAHeader skips the RSA header signature.
	NoRSAHeader
	// NoDSA skips legacy DSA signatures over header plus payload.
	NoDSA
	// NoRSA skips legacy RSA signatures over header plus payload.
	NoRSA
	// HeaderOnly skips any item whose coverage includes the payload,
	// for callers verifying detached or truncated header parts.
	HeaderOnly

	// NoDigests skips every digest item.
	NoDigests = NoSHA1Header | NoSHA256Header | NoPayloadDigest | NoMD5
	// NoSignatures skips every signature item.
	NoSignatures = NoDSAHeader | NoRSAHeader | NoDSA | NoRSA
)

// Range tells which container bytes an item's stored value covers.
type Range uint8

const (
	// RangeHeader covers the main header bytes.
	RangeHeader Range = 1 << iota
	// RangePayload covers everything after the main header.
	RangePayload
)

// Kind classifies a verifiable item.
type Kind uint8

const (
	// KindDigest compares a computed digest against a stored value.
	KindDigest Kind = iota + 1
	// KindSignature checks an OpenPGP signature against a keyring.
	KindSignature
)

// Status is the outcome of checking one item.
type Status uint8

const (
	// StatusOK means the stored value matched.
	StatusOK Status = iota
	// StatusBad marks a digest or signature mismatch.
	StatusBad
	// StatusNoKey marks a signature whose key is absent from the keyring.
	StatusNoKey
)

// String returns the display form used in result lines.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusNoKey:
		return "NOKEY"
	default:
		return "BAD"
	}
}
