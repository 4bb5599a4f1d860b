// Package scan runs a query over many files in parallel. Every file gets its
// own tree and Searcher, so no traversal state is shared between workers.
package scan

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v5/util"
	"golang.org/x/sync/errgroup"

	"github.com/shiplet/ast-search/api"
	"github.com/shiplet/ast-search/internal/graph"
	"github.com/shiplet/ast-search/internal/ingest"
	"github.com/shiplet/ast-search/internal/search"
)

// Options selects files and shapes the per-file search.
type Options struct {
	Query api.Query
	// Scope is a JSONPath selecting the subtrees anchors are searched in.
	Scope string
	// Workers bounds the files processed at once; <= 0 means one per CPU.
	Workers int
	// Extensions filters files found by walking directories. Files named
	// explicitly are always loaded.
	Extensions []string
	// Exclude holds glob patterns matched against base names and slash
	// paths. Matching directories are not descended into.
	Exclude []string
}

// Failure is a file that could not be loaded or searched.
type Failure struct {
	Path string
	Err  error
}

// Report is the outcome of a scan.
type Report struct {
	Files    int
	Hits     []search.Hit
	Skipped  []string
	Failures []Failure
}

// Identifiers returns the distinct, sorted identifiers of the hits: the
// source file, or the anchor location when locations is set.
func (r *Report) Identifiers(locations bool) []string {
	seen := make(map[string]bool, len(r.Hits))
	var out []string
	for _, h := range r.Hits {
		id := h.Source
		if locations && h.Anchor != nil {
			id = search.LocationIdentity(h.Source)(h.Anchor)
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// Scanner walks paths on the loader's filesystem and searches each file.
type Scanner struct {
	Loader *ingest.Loader
	Opts   Options
	Logger *slog.Logger
}

func (s *Scanner) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.Logger
}

// Files expands paths into the sorted, de-duplicated list of files to load.
func (s *Scanner) Files(paths []string) ([]string, error) {
	fs := s.Loader.FS
	exts := s.extensions()
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, root := range paths {
		info, err := fs.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		err = util.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if path != root && s.excluded(path) {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !info.IsDir() && exts[strings.ToLower(filepath.Ext(path))] {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	slices.Sort(files)
	return files, nil
}

func (s *Scanner) extensions() map[string]bool {
	list := s.Opts.Extensions
	if len(list) == 0 {
		list = ingest.DefaultExtensions
	}
	exts := make(map[string]bool, len(list))
	for _, e := range list {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = true
	}
	return exts
}

func (s *Scanner) excluded(path string) bool {
	base := filepath.Base(path)
	slash := filepath.ToSlash(path)
	for _, pattern := range s.Opts.Exclude {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, slash); ok {
			return true
		}
	}
	return false
}

// Run validates the query, then loads and searches every file under paths.
// Files without a <script> block are skipped; other per-file errors are
// reported as failures and do not stop the scan.
func (s *Scanner) Run(ctx context.Context, paths []string) (*Report, error) {
	if err := s.Opts.Query.Validate(); err != nil {
		return nil, err
	}
	files, err := s.Files(paths)
	if err != nil {
		return nil, err
	}
	log := s.logger()

	type fileResult struct {
		hits    []search.Hit
		skipped bool
		err     error
	}
	results := make([]fileResult, len(files))

	workers := s.Opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		g.Go(func() error {
			hits, err := s.file(gctx, f)
			switch {
			case errors.Is(err, ingest.ErrNoScript):
				log.Debug("skipping file without script block", "path", f)
				results[i] = fileResult{skipped: true}
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return err
			case err != nil:
				log.Warn("search failed", "path", f, "error", err)
				results[i] = fileResult{err: err}
			default:
				results[i] = fileResult{hits: hits}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r := &Report{Files: len(files)}
	for i, res := range results {
		switch {
		case res.skipped:
			r.Skipped = append(r.Skipped, files[i])
		case res.err != nil:
			r.Failures = append(r.Failures, Failure{Path: files[i], Err: res.err})
		default:
			r.Hits = append(r.Hits, res.hits...)
		}
	}
	slices.SortFunc(r.Hits, compareHits)
	log.Info("scan complete", "files", r.Files, "hits", len(r.Hits), "skipped", len(r.Skipped), "failed", len(r.Failures))
	return r, nil
}

func (s *Scanner) file(ctx context.Context, path string) ([]search.Hit, error) {
	doc, err := s.Loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	log := s.logger().With("path", path)

	if s.Opts.Scope == "" {
		return search.NewSearcher(doc.Tree, search.WithLogger(log)).Run(s.Opts.Query, path)
	}

	roots, err := ingest.Select(doc, s.Opts.Scope)
	if err != nil {
		return nil, err
	}
	log.Debug("scope selected", "scope", s.Opts.Scope, "roots", len(roots))

	seen := graph.NewNodeSet()
	var hits []search.Hit
	for _, root := range roots {
		found, err := search.NewSearcher(doc.Tree, search.WithRoot(root), search.WithLogger(log)).Run(s.Opts.Query, path)
		if err != nil {
			return nil, err
		}
		for _, h := range found {
			if seen.Add(h.Anchor) {
				hits = append(hits, h)
			}
		}
	}
	return hits, nil
}

func compareHits(a, b search.Hit) int {
	return cmp.Or(
		cmp.Compare(a.Source, b.Source),
		cmp.Compare(a.Line, b.Line),
		cmp.Compare(a.Column, b.Column),
		cmp.Compare(a.Name, b.Name),
	)
}
