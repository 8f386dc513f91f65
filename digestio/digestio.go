// Package digestio accumulates any number of digests over a single pass
// of a byte stream. Accumulators are attached under caller-chosen ids and
// can be snapshotted mid-stream without disturbing the running state, so
// one region of the stream can be checked while later regions are still
// being fed. Instances are not safe for concurrent use.
package digestio

import (
	"crypto"
	"encoding"
	"encoding/hex"
	"hash"

	"github.com/cockroachdb/errors"
)

// Bundle multiplexes writes into the attached hash accumulators.
// It implements io.Writer so it can terminate an io.Copy or sit behind
// an io.TeeReader.
type Bundle struct {
	hashes map[int]hash.Hash
	algos  map[int]crypto.Hash
}

// New returns an empty Bundle.
func New() *Bundle {
	return &Bundle{
		hashes: make(map[int]hash.Hash),
		algos:  make(map[int]crypto.Hash),
	}
}

// Attach registers an accumulator for id starting with the next write.
// Attaching an already attached id is a no-op, which lets accumulators
// spanning several stream regions survive repeated attach passes.
func (b *Bundle) Attach(id int, algo crypto.Hash) error {
	if _, ok := b.hashes[id]; ok {
		return nil
	}
	if !algo.Available() {
		return errors.Errorf("hash %s not available", algo)
	}
	b.hashes[id] = algo.New()
	b.algos[id] = algo
	return nil
}

// Attached reports whether id has an accumulator.
func (b *Bundle) Attached(id int) bool {
	_, ok := b.hashes[id]
	return ok
}

// Detach removes the accumulator for id. Detaching an unknown id is a no-op.
func (b *Bundle) Detach(id int) {
	delete(b.hashes, id)
	delete(b.algos, id)
}

// Snapshot returns an independent copy of the accumulator for id.
// The copy can be finalized or fed further input, for example a signature
// trailer, without disturbing the running accumulator.
func (b *Bundle) Snapshot(id int) (hash.Hash, error) {
	h, ok := b.hashes[id]
	if !ok {
		return nil, errors.Errorf("digest %d not attached", id)
	}
	m, ok := h.(encoding.BinaryMarshaler)
	if !ok {
		return nil, errors.Errorf("digest %d does not support snapshots", id)
	}
	state, err := m.MarshalBinary()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	clone := b.algos[id].New()
	if err := clone.(encoding.BinaryUnmarshaler).UnmarshalBinary(state); err != nil {
		return nil, errors.WithStack(err)
	}
	return clone, nil
}

// SumHex returns the lowercase hex digest of a snapshot of id.
func (b *Bundle) SumHex(id int) (string, error) {
	h, err := b.Snapshot(id)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Write feeds p to every attached accumulator.
func (b *Bundle) Write(p []byte) (int, error) {
	for _, h := range b.hashes {
		h.Write(p)
	}
	return len(p), nil
}
