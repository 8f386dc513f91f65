package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xrpm/gpg"
)

// ImportCmd fetches armored public keys and imports them into the
// keyring, optionally writing the merged keyring back out.
type ImportCmd struct {
	Keys []string `kong:"arg" required:"" help:"Key files, URLs or 0x prefixed key IDs to import"`
	Out  string   `help:"Write the merged keyring to the specified file" type:"path"`
}

// Run the command
func (a *ImportCmd) Run(ctx *Cli) error {
	cfg, err := ctx.Config()
	if err != nil {
		return err
	}
	keyring, err := ctx.Keyring()
	if err != nil {
		return err
	}

	src := &gpg.Source{Query: cfg.KeyserverQuery}
	before := keyring.Count()
	failed := gpg.ImportSources(ctx.Context(), keyring, src, ctx.ErrWriter(), a.Keys)

	fmt.Fprintf(ctx.Writer(), "imported %d keys\n", keyring.Count()-before)
	if a.Out != "" {
		var buf bytes.Buffer
		if err := keyring.WriteArmored(&buf); err != nil {
			return errors.WithMessage(err, "export keyring")
		}
		if err := os.WriteFile(a.Out, buf.Bytes(), 0o644); err != nil {
			return errors.WithStack(err)
		}
	}
	if failed != 0 {
		return errors.Errorf("%d keys failed to import", failed)
	}
	return nil
}
