package cli

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xrpm/verify"
)

// VerifyCmd checks the digests and signatures of package files.
type VerifyCmd struct {
	Packages []string `kong:"arg" required:"" help:"Package files to verify"`

	NoDigest    bool `help:"Skip digest verification"`
	NoSignature bool `help:"Skip signature verification"`
	HeaderOnly  bool `help:"Verify only items covering the header"`
	Verbose     bool `short:"v" help:"Print one result line per item"`
}

// Run the command
func (a *VerifyCmd) Run(ctx *Cli) error {
	keyring, err := ctx.Keyring()
	if err != nil {
		return err
	}

	var flags verify.Flags
	if a.NoDigest {
		flags |= verify.NoDigests
	}
	if a.NoSignature {
		flags |= verify.NoSignatures
	}
	if a.HeaderOnly {
		flags |= verify.HeaderOnly
	}

	failed := verify.Files(ctx.Context(), keyring, flags, a.Verbose,
		ctx.Writer(), ctx.ErrWriter(), a.Packages)
	if failed != 0 {
		return errors.Errorf("%d of %d packages did not verify", failed, len(a.Packages))
	}
	return nil
}
