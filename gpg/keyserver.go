package gpg

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/effective-security/xrpm/metricskey"
)

// HTTPClient is used to retrieve keys from keyservers,
// can be replaced for tests.
var HTTPClient = http.DefaultClient

// minKeySize is the smallest byte count that could possibly hold an
// armored public key; shorter reads are reported as failed.
const minKeySize = 64

// Source resolves key import arguments into key material. Plain paths are
// read from the filesystem; arguments of the form 0x followed by exactly
// 8 or 16 hex digits are expanded through the keyserver query template
// and fetched over HTTP.
type Source struct {
	// Query is prepended to the key id to form the retrieval URL, for
	// example "https://keyserver.ubuntu.com/pks/lookup?op=get&search=0x".
	// An empty or unexpanded value disables keyserver lookups.
	Query string
}

// Fetch returns the key material for arg together with the location that
// was actually read, which is the expanded URL for key id arguments.
func (s *Source) Fetch(ctx context.Context, arg string) (string, []byte, error) {
	loc := s.expand(arg)

	var data []byte
	var err error
	if strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://") {
		defer metricskey.PerfKeyImport.MeasureSince(time.Now(), "keyserver")
		data, err = fetchHTTP(ctx, loc)
	} else {
		defer metricskey.PerfKeyImport.MeasureSince(time.Now(), "file")
		data, err = os.ReadFile(loc)
	}
	if err != nil {
		return loc, nil, errors.WithMessage(err, "import read failed")
	}
	if len(data) < minKeySize {
		return loc, nil, errors.Errorf("import read failed(%d)", len(data))
	}
	return loc, data, nil
}

// expand maps a key id argument to its keyserver URL. Anything that does
// not look like a key id, or an unusable query template, leaves the
// argument unchanged.
func (s *Source) expand(arg string) string {
	if !strings.HasPrefix(arg, "0x") {
		return arg
	}
	id := arg[2:]
	if len(id) != 8 && len(id) != 16 {
		return arg
	}
	for _, c := range id {
		if !isHexDigit(c) {
			return arg
		}
	}
	if s.Query == "" || s.Query[0] == '%' {
		logger.KV(xlog.DEBUG, "reason", "no_keyserver_query", "arg", arg)
		return arg
	}
	return s.Query + id
}

func fetchHTTP(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	resp, err := HTTPClient.Do(req)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status: %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return data, nil
}

func isHexDigit(c rune) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}
