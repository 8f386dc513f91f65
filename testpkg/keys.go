package testpkg

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/binary"
	"math/big"
	"time"

	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"
	"golang.org/x/crypto/openpgp/packet"
	"golang.org/x/crypto/openpgp/s2k"
)

// NewEntity generates a small RSA signing key for the given identity.
func NewEntity(name string) *openpgp.Entity {
	e, err := openpgp.NewEntity(name, "", name+"@example.com", &packet.Config{RSABits: 1024})
	if err != nil {
		panic(err)
	}
	return e
}

// Armor returns the ASCII armored public part of each entity, one armored
// block per entity, concatenated.
func Armor(entities ...*openpgp.Entity) []byte {
	var buf bytes.Buffer
	for _, e := range entities {
		w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
		if err != nil {
			panic(err)
		}
		if err := e.Serialize(w); err != nil {
			panic(err)
		}
		if err := w.Close(); err != nil {
			panic(err)
		}
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// SignBinary produces a version 4 binary signature packet over the
// concatenation of data.
func SignBinary(e *openpgp.Entity, h crypto.Hash, data ...[]byte) []byte {
	sig := &packet.Signature{
		SigType:      packet.SigTypeBinary,
		PubKeyAlgo:   e.PrivateKey.PubKeyAlgo,
		Hash:         h,
		CreationTime: time.Now(),
		IssuerKeyId:  &e.PrivateKey.KeyId,
	}
	hh := h.New()
	for _, d := range data {
		hh.Write(d)
	}
	if err := sig.Sign(hh, e.PrivateKey, nil); err != nil {
		panic(err)
	}
	var buf bytes.Buffer
	if err := sig.Serialize(&buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// SignBinaryV3 produces a legacy version 3 RSA binary signature packet
// over the concatenation of data. The packet is assembled by hand since
// v3 signature creation has no library support.
func SignBinaryV3(e *openpgp.Entity, h crypto.Hash, data ...[]byte) []byte {
	priv, ok := e.PrivateKey.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		panic("v3 signing requires an RSA key")
	}
	hashID, ok := s2k.HashToHashId(h)
	if !ok {
		panic("unsupported hash")
	}

	// Hashed material: signature type then big-endian creation time.
	var suffix [5]byte
	binary.BigEndian.PutUint32(suffix[1:], uint32(time.Now().Unix()))

	hh := h.New()
	for _, d := range data {
		hh.Write(d)
	}
	hh.Write(suffix[:])
	digest := hh.Sum(nil)

	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, h, digest)
	if err != nil {
		panic(err)
	}

	var body bytes.Buffer
	body.WriteByte(3)
	body.WriteByte(5)
	body.Write(suffix[:])
	_ = binary.Write(&body, binary.BigEndian, e.PrivateKey.KeyId)
	body.WriteByte(1) // RSA
	body.WriteByte(hashID)
	body.Write(digest[:2])
	mpi := new(big.Int).SetBytes(sig)
	_ = binary.Write(&body, binary.BigEndian, uint16(mpi.BitLen()))
	body.Write(mpi.Bytes())

	// Old format packet framing for tag 2.
	var out bytes.Buffer
	if body.Len() < 256 {
		out.WriteByte(0x88)
		out.WriteByte(byte(body.Len()))
	} else {
		out.WriteByte(0x89)
		_ = binary.Write(&out, binary.BigEndian, uint16(body.Len()))
	}
	out.Write(body.Bytes())
	return out.Bytes()
}
