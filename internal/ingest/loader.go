package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/shiplet/ast-search/internal/graph"
)

// ErrUnsupported is returned for files whose extension has no known format.
var ErrUnsupported = errors.New("unsupported file type")

// Document is one loaded file: the ESTree-shaped value it was parsed into
// and the classified tree built from that value.
type Document struct {
	Path string
	Lang Language
	Raw  map[string]any
	Tree *graph.Tree
}

// Loader reads files from a billy filesystem and turns them into Documents.
type Loader struct {
	FS billy.Filesystem
	// Strict makes syntax errors fatal. Otherwise they are logged and the
	// tree recovered by the parser is searched.
	Strict bool
	Logger *slog.Logger
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l.Logger
}

// Load reads and parses path.
func (l *Loader) Load(ctx context.Context, path string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	format, ok := DetectLanguage(path)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupported)
	}
	data, err := util.ReadFile(l.FS, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return l.Parse(ctx, path, format, data)
}

// Parse builds a Document from file contents already in memory.
func (l *Loader) Parse(ctx context.Context, path string, format Format, data []byte) (*Document, error) {
	log := l.logger()
	doc := &Document{Path: path, Lang: format.Lang}

	if format.Lang == LangESTree {
		raw, err := ParseESTree(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		doc.Raw = raw
	} else {
		src := Source{Path: path, Code: data, Lang: format.Lang}
		if format.Embedded {
			s, err := ExtractScript(bytes.NewReader(data))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			src.Code, src.Lang, src.Line, src.Offset = s.Code, s.Lang, s.Line, s.Offset
			doc.Lang = s.Lang
		}

		raw, err := ParseSource(ctx, src)
		var synErr *SyntaxError
		switch {
		case errors.As(err, &synErr):
			if l.Strict {
				return nil, err
			}
			log.Warn("syntax errors, searching recovered tree", "path", path, "error", synErr)
		case err != nil:
			return nil, err
		}
		doc.Raw = raw
	}

	doc.Tree = graph.FromValue(doc.Raw)
	doc.Tree.OnSequenceNode(func(seq, elem *graph.Node) {
		log.Debug("sequence element", "path", path, "type", elem.Type, "id", elem.ID, "sequence", seq.ID)
	})
	log.Debug("loaded document", "path", path, "lang", doc.Lang, "nodes", doc.Tree.Len())
	return doc, nil
}
