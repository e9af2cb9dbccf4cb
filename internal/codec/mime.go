package codec

import (
	"fmt"
	"os"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fuzzrnet/forage-go/internal/forageerr"
)

// SniffMIME performs a best-effort content sniff of the first bytes of
// path, defaulting to application/octet-stream when the content doesn't
// match any known signature.
func SniffMIME(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("sniff mime open %s: %w", path, forageerr.IO)
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return "application/octet-stream", nil
	}
	return mt.String(), nil
}
