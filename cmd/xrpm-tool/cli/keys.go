package cli

import (
	"fmt"
)

// KeysCmd prints the keys on the keyring.
type KeysCmd struct{}

// Run the command
func (a *KeysCmd) Run(ctx *Cli) error {
	keyring, err := ctx.Keyring()
	if err != nil {
		return err
	}

	out := ctx.Writer()
	for _, key := range keyring.Keys() {
		fmt.Fprintf(out, "%s %s %s\n", key.KeyID, key.Created.Format("2006-01-02"), key.Identity)
	}
	return nil
}
