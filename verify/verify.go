// Package verify checks the digests and signatures of RPM packages
// against a keyring of trusted OpenPGP keys.
//
// A package is consumed in one pass: the signature header names the
// expected digests and signatures together with the byte range each one
// covers, accumulators for those ranges are attached to the stream, and
// every enabled item is checked once its range has been fully read. Per
// item results flow through a ReportFunc; fatal format or I/O problems
// abort the file with a single diagnostic.
package verify

import (
	"context"
	_ "crypto/md5"
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/effective-security/xrpm/digestio"
	"github.com/effective-security/xrpm/gpg"
	"github.com/effective-security/xrpm/metricskey"
	"github.com/effective-security/xrpm/pkgfile"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xrpm", "verify")

// ErrNotOK reports that at least one enabled item failed verification.
// The per item details have already been delivered to the ReportFunc.
var ErrNotOK = errors.New("package verification failed")

// readBufSize is the chunk size for draining the payload.
const readBufSize = 32 * 1024

// copyTags lists main header tags mirrored into the signature header
// before payload items are derived.
var copyTags = []pkgfile.Tag{pkgfile.TagPayloadDigest, pkgfile.TagPayloadDigestAlgo}

// Package verifies one package read from r. Format and I/O failures
// return the underlying error; item failures are reported through report
// and collapse into ErrNotOK. A nil report suppresses per item output
// without changing the outcome.
func Package(r io.Reader, keyring *gpg.Keyring, flags Flags, report ReportFunc) error {
	defer metricskey.PerfPkgVerify.MeasureSince(time.Now(), "package")

	if _, err := pkgfile.ReadLead(r); err != nil {
		return err
	}
	sigBlob, err := pkgfile.ReadBlob(r, pkgfile.TagHeaderSignatures)
	if err != nil {
		return err
	}
	sigh, err := sigBlob.Import()
	if err != nil {
		return err
	}

	bundle := digestio.New()
	attachDigests(bundle, sigh, RangeHeader, flags)

	// The main header is the only region read through the attached
	// accumulators twice over: raw bytes here, decoded entries below.
	hdrBlob, err := pkgfile.ReadBlob(io.TeeReader(r, bundle), pkgfile.TagHeaderImmutable)
	if err != nil {
		return err
	}

	failed := verifyPhase(bundle, sigh, RangeHeader, flags, keyring, report)

	hdr, err := hdrBlob.Import()
	if err != nil {
		return err
	}
	sigh.CopyTags(hdr, copyTags...)

	attachDigests(bundle, sigh, RangePayload, flags)

	buf := make([]byte, readBufSize)
	if _, err := io.CopyBuffer(bundle, r, buf); err != nil {
		return errors.WithMessage(err, "read payload")
	}

	failed += verifyPhase(bundle, sigh, RangePayload, flags, keyring, report)
	failed += verifyPhase(bundle, sigh, RangeHeader|RangePayload, flags, keyring, report)

	if failed != 0 {
		return ErrNotOK
	}
	return nil
}

// attachDigests attaches one accumulator per enabled item whose range
// intersects rng. Attach is idempotent, so items spanning both ranges
// keep one accumulator running across both passes.
func attachDigests(b *digestio.Bundle, sigh *pkgfile.Header, rng Range, flags Flags) {
	entries := sigh.Entries()
	for i := range entries {
		it, _ := newItem(&entries[i], sigh)
		if it == nil || it.disabled(flags) {
			continue
		}
		if it.Range&rng != 0 {
			if err := b.Attach(int(it.Tag), it.Algo); err != nil {
				logger.KV(xlog.DEBUG, "reason", "attach", "tag", it.Tag, "err", err.Error())
			}
		}
	}
}

// verifyPhase checks every enabled item whose range equals rng, detaching
// each item's accumulator after use, and returns 1 when anything failed.
// Malformed entries of recognized tags fail the file without producing a
// result line.
func verifyPhase(b *digestio.Bundle, sigh *pkgfile.Header, rng Range, flags Flags, keyring *gpg.Keyring, report ReportFunc) int {
	failed := 0
	entries := sigh.Entries()
	for i := range entries {
		it, err := newItem(&entries[i], sigh)
		if it == nil || it.disabled(flags) {
			continue
		}
		status := StatusOK
		if err != nil {
			status = StatusBad
		}
		if it.Range == rng && err == nil {
			res := checkItem(b, it, keyring)
			b.Detach(int(it.Tag))
			if report != nil {
				res.Status = report(res)
			}
			status = res.Status
		}
		if status != StatusOK {
			failed = 1
		}
	}
	return failed
}

// Files verifies each named package in order, writing result lines to out
// and diagnostics to errout. It returns the number of files that failed.
// Cancellation is observed between files only; the file in progress
// always completes.
func Files(ctx context.Context, keyring *gpg.Keyring, flags Flags, verbose bool, out, errout io.Writer, paths []string) int {
	res := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			logger.KV(xlog.WARNING, "reason", "canceled", "err", err.Error())
			break
		}
		if err := verifyFile(keyring, flags, verbose, out, errout, path); err != nil {
			res++
		}
	}
	return res
}

func verifyFile(keyring *gpg.Keyring, flags Flags, verbose bool, out, errout io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(errout, "%s: open failed: %v\n", path, err)
		return err
	}
	defer f.Close()

	if verbose {
		fmt.Fprintf(out, "%s:\n", path)
		err = Package(f, keyring, flags, Verbose(out))
	} else {
		fmt.Fprintf(out, "%s: ", path)
		err = Package(f, keyring, flags, Summary(out))
	}
	if err != nil && !errors.Is(err, ErrNotOK) {
		fmt.Fprintf(errout, "%s: %v\n", path, err)
	}
	if !verbose {
		if err != nil {
			fmt.Fprintln(out, "NOT OK")
		} else {
			fmt.Fprintln(out, "OK")
		}
	}
	return err
}
