package cli

import (
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/ctl"
	"github.com/effective-security/xlog"
	"github.com/effective-security/xrpm/gpg"
	"golang.org/x/net/context"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xrpm", "cli")

// Cli provides CLI context to run commands
type Cli struct {
	Version ctl.VersionFlag `name:"version" help:"Print version information and quit" hidden:""`

	Cfg      string   `help:"Location of the configuration file" type:"path"`
	Key      []string `short:"k" help:"Additional file with armored public keys, can be used multiple times"`
	Debug    bool     `short:"D" help:"Enable debug mode"`
	LogLevel string   `short:"l" help:"Set the logging level (debug|info|warn|error)" default:"error"`

	// Stdin is the source to read from, typically set to os.Stdin
	stdin io.Reader
	// Output is the destination for all output from the command, typically set to os.Stdout
	output io.Writer
	// ErrOutput is the destinaton for errors.
	// If not set, errors will be written to os.StdError
	errOutput io.Writer

	ctx     context.Context
	cfg     *gpg.Config
	keyring *gpg.Keyring
}

// Context for requests
func (c *Cli) Context() context.Context {
	if c.ctx == nil {
		c.ctx = context.Background()
	}
	return c.ctx
}

// Reader is the source to read from, typically set to os.Stdin
func (c *Cli) Reader() io.Reader {
	if c.stdin != nil {
		return c.stdin
	}
	return os.Stdin
}

// WithReader allows to specify a custom reader
func (c *Cli) WithReader(reader io.Reader) *Cli {
	c.stdin = reader
	return c
}

// Writer returns a writer for control output
func (c *Cli) Writer() io.Writer {
	if c.output != nil {
		return c.output
	}
	return os.Stdout
}

// WithWriter allows to specify a custom writer
func (c *Cli) WithWriter(out io.Writer) *Cli {
	c.output = out
	return c
}

// ErrWriter returns a writer for control output
func (c *Cli) ErrWriter() io.Writer {
	if c.errOutput != nil {
		return c.errOutput
	}
	return os.Stderr
}

// WithErrWriter allows to specify a custom error writer
func (c *Cli) WithErrWriter(out io.Writer) *Cli {
	c.errOutput = out
	return c
}

// AfterApply hook loads config
func (c *Cli) AfterApply(app *kong.Kong, vars kong.Vars) error {
	if c.Debug {
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	} else {
		val := strings.TrimLeft(c.LogLevel, "=")
		l, err := xlog.ParseLevel(strings.ToUpper(val))
		if err != nil {
			return errors.WithStack(err)
		}
		xlog.SetGlobalLogLevel(l)
	}

	return nil
}

// Config returns the tool configuration, empty when --cfg is not provided.
func (c *Cli) Config() (*gpg.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	if c.Cfg == "" {
		c.cfg = &gpg.Config{}
		return c.cfg, nil
	}
	cfg, err := gpg.LoadConfig(c.Cfg)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return c.cfg, nil
}

// Keyring loads the trusted keys from the files named by the
// configuration and the --key flags.
func (c *Cli) Keyring() (*gpg.Keyring, error) {
	if c.keyring != nil {
		return c.keyring, nil
	}
	cfg, err := c.Config()
	if err != nil {
		return nil, err
	}
	files := append(append([]string{}, cfg.Keyring...), c.Key...)
	logger.KV(xlog.DEBUG, "keyring_files", len(files))

	keyring, err := gpg.KeyringFromFiles(files)
	if err != nil {
		return nil, err
	}
	c.keyring = keyring
	return c.keyring, nil
}
