package vault

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sandevgo/quill/internal/core"
	"github.com/sandevgo/quill/internal/providers/rag"
	"github.com/sandevgo/quill/internal/providers/tools"
	"github.com/sandevgo/quill/pkg/conv"
	"github.com/sandevgo/quill/pkg/log"
	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 4

type Stats struct {
	Indexed   int
	Unchanged int
	Removed   int
	Failed    int
}

// Indexer mirrors the vault into the documents repository.
type Indexer struct {
	root    string
	repo    core.DocumentsRepository
	chunker rag.ChunkerConfig
	workers int

	mu sync.Mutex
}

func NewIndexer(root string, repo core.DocumentsRepository) *Indexer {
	return &Indexer{
		root:    root,
		repo:    repo,
		chunker: rag.VaultChunkerConfig(),
		workers: defaultWorkers,
	}
}

type file struct {
	rel     string
	abs     string
	modTime time.Time
}

// Reindex parses documents whose modification time changed and drops the
// ones that disappeared. A document that fails to parse is skipped and
// retried on the next run.
func (ix *Indexer) Reindex(ctx context.Context) (Stats, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	logger := log.FromCtx(ctx)
	var stats Stats

	files, err := ix.walk(ctx)
	if err != nil {
		return stats, err
	}

	known, err := ix.repo.DocumentModTimes(ctx)
	if err != nil {
		return stats, fmt.Errorf("load index state: %w", err)
	}

	var changed []file
	for _, f := range files {
		if mod, ok := known[f.rel]; ok && mod.Equal(f.modTime) {
			stats.Unchanged++
		} else {
			changed = append(changed, f)
		}
		delete(known, f.rel)
	}

	var (
		statsMu sync.Mutex
		g       errgroup.Group
	)
	g.SetLimit(ix.workers)
	for _, f := range changed {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			doc, err := ix.parse(f)
			if err == nil {
				err = ix.repo.UpsertDocument(ctx, doc)
			}

			statsMu.Lock()
			defer statsMu.Unlock()
			if err != nil {
				logger.Warn().Err(err).Str("path", f.rel).Msg("failed to index document")
				stats.Failed++
				return nil
			}
			stats.Indexed++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	if len(known) > 0 {
		removed := make([]string, 0, len(known))
		for path := range known {
			removed = append(removed, path)
		}
		if err := ix.repo.DeleteDocuments(ctx, removed); err != nil {
			return stats, fmt.Errorf("prune index: %w", err)
		}
		stats.Removed = len(removed)
	}

	logger.Info().
		Int("indexed", stats.Indexed).
		Int("unchanged", stats.Unchanged).
		Int("removed", stats.Removed).
		Int("failed", stats.Failed).
		Msg("vault indexed")

	return stats, nil
}

func (ix *Indexer) walk(ctx context.Context) ([]file, error) {
	var files []file
	err := filepath.WalkDir(ix.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == ix.root {
				return err
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if path != ix.root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !tools.IsDocument(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(ix.root, path)
		if err != nil {
			return nil
		}
		files = append(files, file{rel: filepath.ToSlash(rel), abs: path, modTime: info.ModTime().UTC()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk vault: %w", err)
	}
	return files, nil
}

func (ix *Indexer) parse(f file) (core.Document, error) {
	data, err := os.ReadFile(f.abs)
	if err != nil {
		return core.Document{}, err
	}

	doc := core.Document{Path: f.rel, ModTime: f.modTime}

	text := string(data)
	if ext := strings.ToLower(filepath.Ext(f.rel)); ext == ".md" || ext == ".markdown" {
		fm, body, err := conv.SplitFrontmatter(data)
		if err != nil {
			return core.Document{}, err
		}
		doc.Title = fm.Title
		doc.Tags = fm.Tags
		if doc.Title == "" {
			doc.Title = firstHeading(body)
		}

		text, err = conv.MarkdownToPlainText(body)
		if err != nil {
			return core.Document{}, err
		}
	}
	if doc.Title == "" {
		doc.Title = strings.TrimSuffix(filepath.Base(f.rel), filepath.Ext(f.rel))
	}

	for _, c := range rag.ChunkText(text, ix.chunker) {
		doc.Chunks = append(doc.Chunks, c.Text)
	}
	return doc, nil
}

func firstHeading(md []byte) string {
	for _, line := range strings.Split(string(md), "\n") {
		line = strings.TrimSpace(line)
		if title, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(title)
		}
	}
	return ""
}
