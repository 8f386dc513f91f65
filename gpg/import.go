package gpg

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"
	"golang.org/x/crypto/openpgp/packet"
)

// pubkeyPacketTag is the OpenPGP packet tag of a primary public key,
// which starts a new certificate inside a dearmored block.
const pubkeyPacketTag = 6

// Import parses each armored key block in data and adds every contained
// public key certificate to the keyring. Unlike Parse it accounts for
// keys individually: one error is returned per block that is not an
// armored public key and per certificate that fails to import. A decode
// attempt is made even when data carries no armor marker at all, so
// garbage input yields exactly one failure.
func (k *Keyring) Import(data []byte) (int, []error) {
	blocks := armorBlocks(data)
	if len(blocks) == 0 {
		blocks = [][]byte{data}
	}

	added := 0
	var failures []error
	for i, block := range blocks {
		keyno := i + 1

		blk, err := decodeArmor(block)
		if err != nil || blk.Type != openpgp.PublicKeyType {
			failures = append(failures, errors.Errorf("key %d not an armored public key", keyno))
			continue
		}

		certs, cerr := splitCerts(blk.Packets)
		for _, cert := range certs {
			e, err := openpgp.ReadEntity(packet.NewReader(bytes.NewReader(cert)))
			if err != nil {
				logger.KV(xlog.DEBUG, "reason", "read_entity", "key", keyno, "err", err.Error())
				failures = append(failures, errors.Errorf("key %d import failed", keyno))
				continue
			}
			k.add(e)
			added++
		}
		// Certificates after a framing error are unrecoverable.
		if cerr != nil {
			logger.KV(xlog.DEBUG, "reason", "cert_framing", "key", keyno, "err", cerr.Error())
			failures = append(failures, errors.Errorf("key %d import failed", keyno))
		}
	}
	return added, failures
}

// ImportSources retrieves and imports each key argument in order,
// writing one diagnostic line per failure to errout. It returns the total
// failure count across all arguments. Cancellation is observed between
// arguments only.
func ImportSources(ctx context.Context, k *Keyring, src *Source, errout io.Writer, args []string) int {
	res := 0
	for _, arg := range args {
		if err := ctx.Err(); err != nil {
			logger.KV(xlog.WARNING, "reason", "canceled", "err", err.Error())
			break
		}
		loc, data, err := src.Fetch(ctx, arg)
		if err != nil {
			fmt.Fprintf(errout, "%s: %v\n", loc, err)
			res++
			continue
		}
		added, failures := k.Import(data)
		for _, f := range failures {
			fmt.Fprintf(errout, "%s: %v\n", loc, f)
		}
		res += len(failures)
		logger.KV(xlog.DEBUG, "imported", added, "failed", len(failures), "from", loc)
	}
	return res
}

// armoredKey is one dearmored block.
type armoredKey struct {
	Type    string
	Packets []byte
}

func decodeArmor(data []byte) (*armoredKey, error) {
	blk, err := armor.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	body, err := io.ReadAll(blk.Body)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &armoredKey{Type: blk.Type, Packets: body}, nil
}

// splitCerts slices a dearmored packet sequence into certificates, each
// running from one primary public key packet to the next. Certificates
// framed before a malformed packet are returned along with the error.
func splitCerts(packets []byte) ([][]byte, error) {
	if len(packets) == 0 {
		return nil, nil
	}

	r := bytes.NewReader(packets)
	or := packet.NewOpaqueReader(r)
	starts := []int{0}
	var certs [][]byte
	for {
		pos := len(packets) - r.Len()
		op, err := or.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			for i := 0; i+1 < len(starts); i++ {
				certs = append(certs, packets[starts[i]:starts[i+1]])
			}
			return certs, errors.WithStack(err)
		}
		if op.Tag == pubkeyPacketTag && pos > 0 {
			starts = append(starts, pos)
		}
	}
	for i := range starts {
		end := len(packets)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		certs = append(certs, packets[starts[i]:end])
	}
	return certs, nil
}
