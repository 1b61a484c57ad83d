package pdf

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// internalPDFScheme is how EndNote refers to files kept in its library's
// PDF folder.
const internalPDFScheme = "internal-pdf://"

// ResolveAttachment turns an L1 attachment reference into a local file
// path. It accepts plain paths, file:// URLs and internal-pdf:// references.
// Relative paths are taken relative to baseDir.
func ResolveAttachment(baseDir, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("no attachment path specified")
	}

	var path string
	switch {
	case strings.HasPrefix(ref, "file://"):
		u, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("parsing attachment URL %q: %w", ref, err)
		}
		path = u.Path
	case strings.HasPrefix(ref, internalPDFScheme):
		path = filepath.Join("PDF", filepath.FromSlash(strings.TrimPrefix(ref, internalPDFScheme)))
	default:
		path = ref
	}

	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("PDF not found: %s", path)
		}
		return "", fmt.Errorf("checking PDF: %w", err)
	}
	return path, nil
}
