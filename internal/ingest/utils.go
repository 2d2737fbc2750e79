package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/claims-intake/constants"
)

func defaultExts() map[string]struct{} {
	out := make(map[string]struct{}, len(constants.AllowedExtensions))
	for e := range constants.AllowedExtensions {
		out[e] = struct{}{}
	}
	return out
}

func extSet(exts []string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, e := range exts {
		if e = constants.NormalizeExt(strings.TrimSpace(e)); e != "" {
			out[e] = struct{}{}
		}
	}
	return out
}

func allowed(path string, exts map[string]struct{}) bool {
	_, ok := exts[constants.NormalizeExt(filepath.Ext(path))]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
