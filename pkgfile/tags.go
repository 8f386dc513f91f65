package pkgfile

// Tag identifies a header entry. The signature header and the main header
// use separate tag namespaces; the values consumed by this module do not
// collide, so a single type carries both.
type Tag uint32

// Region tags select which header region a blob belongs to.
const (
	TagHeaderSignatures Tag = 62
	TagHeaderImmutable  Tag = 63
)

// Signature header tags.
const (
	SigTagDSA      Tag = 267
	SigTagRSA      Tag = 268
	SigTagSHA1     Tag = 269
	SigTagLongSize Tag = 270
	SigTagSHA256   Tag = 273
	SigTagSize     Tag = 1000
	SigTagPGP      Tag = 1002
	SigTagMD5      Tag = 1004
	SigTagGPG      Tag = 1005
	SigTagPGP5     Tag = 1006
)

// Main header tags used by verification. PayloadDigest and PayloadDigestAlgo
// are copied into the signature header after the main header is decoded.
const (
	TagPayloadDigest     Tag = 5092
	TagPayloadDigestAlgo Tag = 5093
)

// EntryType is the on-disk type of a header entry value.
type EntryType uint32

// Header entry types.
const (
	TypeNull EntryType = iota
	TypeChar
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt64
	TypeString
	TypeBin
	TypeStringArray
	TypeI18NString
)

// typeSizes holds the fixed per-element size of scalar entry types;
// zero marks variable-length types.
var typeSizes = [...]int{
	TypeNull:        0,
	TypeChar:        1,
	TypeInt8:        1,
	TypeInt16:       2,
	TypeInt32:       4,
	TypeInt64:       8,
	TypeString:      0,
	TypeBin:         1,
	TypeStringArray: 0,
	TypeI18NString:  0,
}

// typeAligns holds the required data-offset alignment per entry type.
var typeAligns = [...]int{
	TypeNull:        1,
	TypeChar:        1,
	TypeInt8:        1,
	TypeInt16:       2,
	TypeInt32:       4,
	TypeInt64:       8,
	TypeString:      1,
	TypeBin:         1,
	TypeStringArray: 1,
	TypeI18NString:  1,
}

func (t EntryType) valid() bool {
	return t <= TypeI18NString
}
