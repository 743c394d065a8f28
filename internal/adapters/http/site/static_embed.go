package site

import (
	"embed"
	"fmt"
)

//go:embed static/index.html
var staticFS embed.FS

// Index returns the embedded console page.
func Index() ([]byte, error) {
	b, err := staticFS.ReadFile("static/" + indexFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAssetMissing, err)
	}
	return b, nil
}
