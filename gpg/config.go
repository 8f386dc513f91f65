package gpg

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Config holds verification defaults loaded from a configuration file:
// the trusted keyring files and the keyserver query template used to
// expand 0x key id arguments.
type Config struct {
	// Keyring lists files with armored public keys to trust.
	Keyring []string `json:"keyring" yaml:"keyring"`

	// KeyserverQuery is prepended to a key id to form the retrieval URL.
	KeyserverQuery string `json:"keyserver_query" yaml:"keyserver_query"`
}

// LoadConfig loads Config from a json or yaml file, selected by the
// file name suffix.
func LoadConfig(filename string) (*Config, error) {
	cfr, err := os.Open(filename)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer cfr.Close()

	cfg := new(Config)
	if strings.HasSuffix(filename, ".json") {
		err = json.NewDecoder(cfr).Decode(cfg)
	} else {
		err = yaml.NewDecoder(cfr).Decode(cfg)
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to decode file: %s", filename)
	}
	return cfg, nil
}
