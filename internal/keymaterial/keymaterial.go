// Package keymaterial resolves the --key flag value into the raw passphrase
// bytes the cipher derives a key from.
package keymaterial

import (
	"bytes"
	"fmt"
	"os"
	"strings"
)

// Resolve returns value verbatim unless it starts with "@", in which case
// the rest is a file path whose trimmed contents are used instead — so a
// passphrase never has to appear directly on the command line or in a
// process listing.
func Resolve(value string) ([]byte, error) {
	if !strings.HasPrefix(value, "@") {
		return []byte(value), nil
	}
	path := value[1:]
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keymaterial: reading %s: %w", path, err)
	}
	return bytes.TrimSpace(raw), nil
}
