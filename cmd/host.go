package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/shiplet/ast-search/internal/scan"
)

// host maps command line paths onto a filesystem rooted at "/" and back to
// working-directory relative names for output.
type host struct {
	fs  billy.Filesystem
	cwd string
}

func newHost() (*host, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("working directory: %w", err)
	}
	return &host{fs: osfs.New("/"), cwd: cwd}, nil
}

func (h *host) abs(paths []string) ([]string, error) {
	out := make([]string, len(paths))
	for i, p := range paths {
		if filepath.IsAbs(p) {
			out[i] = filepath.Clean(p)
			continue
		}
		out[i] = filepath.Join(h.cwd, p)
	}
	return out, nil
}

// display names path relative to the working directory when it lies below
// it.
func (h *host) display(path string) string {
	rel, err := filepath.Rel(h.cwd, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}

func (h *host) relativize(r *scan.Report) {
	for i := range r.Hits {
		r.Hits[i].Source = h.display(r.Hits[i].Source)
	}
	for i := range r.Skipped {
		r.Skipped[i] = h.display(r.Skipped[i])
	}
	for i := range r.Failures {
		r.Failures[i].Path = h.display(r.Failures[i].Path)
	}
}
