package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/sandevgo/quill/internal/core"
)

const (
	defaultSearchLimit   = 5
	defaultSnippetLength = 400
	maxReadBytes         = 256 << 10
)

const searchDocsSchema = `
{
  "type": "object",
  "properties": {
    "query": { "type": "string", "description": "Words to look for in the vault" },
    "limit": { "type": "integer", "description": "Maximum number of documents to return" }
  },
  "required": ["query"]
}
`

const listDocsSchema = `
{
  "type": "object",
  "properties": {
    "prefix": { "type": "string", "description": "Only list documents under this folder" }
  }
}
`

const readDocSchema = `
{
  "type": "object",
  "properties": {
    "path": { "type": "string", "description": "Vault-relative path of the document" }
  },
  "required": ["path"]
}
`

const proposeEditSchema = `
{
  "type": "object",
  "properties": {
    "path": { "type": "string", "description": "Vault-relative path of an existing document" },
    "content": { "type": "string", "description": "The full proposed content of the document" },
    "reason": { "type": "string", "description": "Short explanation shown to the user" }
  },
  "required": ["path", "content"]
}
`

const createDocSchema = `
{
  "type": "object",
  "properties": {
    "path": { "type": "string", "description": "Vault-relative path of the new document" },
    "content": { "type": "string", "description": "Content of the new document" }
  },
  "required": ["path", "content"]
}
`

var docExtensions = []string{".md", ".markdown", ".txt"}

var errOutsideVault = errors.New("path is outside the vault")

// Vault exposes the document vault to the model. Edits and creations are
// only proposed: the result carries the content and nothing is written.
type Vault struct {
	root      string
	retriever core.Retriever
}

func NewVault(root string, retriever core.Retriever) *Vault {
	return &Vault{root: root, retriever: retriever}
}

// Resolve maps a vault-rooted path to a file path. A leading slash means the
// vault root, and the result never leaves it.
func (v *Vault) Resolve(p string) (rel, abs string, err error) {
	p = strings.TrimSpace(filepath.ToSlash(p))
	if p == "" {
		return "", "", errors.New("empty path")
	}
	if strings.HasPrefix(p, "../") || p == ".." {
		return "", "", errOutsideVault
	}

	rel = strings.TrimPrefix(filepath.Clean("/"+p), "/")
	if rel == "" {
		return "", "", errOutsideVault
	}
	return rel, filepath.Join(v.root, filepath.FromSlash(rel)), nil
}

func (v *Vault) SearchDocs(ctx context.Context, args json.RawMessage) (string, error) {
	var input struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(input.Query) == "" {
		return failure(errors.New("query is required"))
	}
	if input.Limit <= 0 {
		input.Limit = defaultSearchLimit
	}

	docs, err := v.retriever.Search(ctx, input.Query, input.Limit, defaultSnippetLength)
	if err != nil {
		return failure(err)
	}

	type hit struct {
		Path    string  `json:"path"`
		Title   string  `json:"title"`
		Snippet string  `json:"snippet"`
		Score   float64 `json:"score"`
	}
	hits := make([]hit, 0, len(docs))
	for _, d := range docs {
		hits = append(hits, hit{Path: d.Path, Title: d.Title, Snippet: d.Snippet, Score: d.Score})
	}
	return result(map[string]any{"ok": true, "results": hits})
}

func (v *Vault) ListDocs(ctx context.Context, args json.RawMessage) (string, error) {
	var input struct {
		Prefix string `json:"prefix"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &input); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
	}

	start := v.root
	if p := strings.Trim(input.Prefix, "/ "); p != "" {
		_, abs, err := v.Resolve(p)
		if err != nil {
			return failure(err)
		}
		start = abs
	}

	type entry struct {
		Path    string `json:"path"`
		Size    int64  `json:"size"`
		ModTime string `json:"modTime"`
	}
	var docs []entry

	err := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if strings.HasPrefix(d.Name(), ".") && path != start {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsDocument(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(v.root, path)
		if err != nil {
			return nil
		}
		docs = append(docs, entry{
			Path:    filepath.ToSlash(rel),
			Size:    info.Size(),
			ModTime: info.ModTime().UTC().Format(time.RFC3339),
		})
		return nil
	})
	if err != nil {
		return failure(err)
	}

	if docs == nil {
		docs = []entry{}
	}
	return result(map[string]any{"ok": true, "docs": docs})
}

func (v *Vault) ReadDoc(ctx context.Context, args json.RawMessage) (string, error) {
	var input struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	rel, abs, err := v.Resolve(input.Path)
	if err != nil {
		return failure(err)
	}

	f, err := os.Open(abs)
	if err != nil {
		return failure(fmt.Errorf("failed to read %s: %w", rel, err))
	}
	defer f.Close()

	buf := make([]byte, maxReadBytes+1)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return failure(fmt.Errorf("failed to read %s: %w", rel, err))
	}

	return result(map[string]any{
		"ok":        true,
		"path":      rel,
		"content":   string(buf[:min(n, maxReadBytes)]),
		"truncated": n > maxReadBytes,
	})
}

func (v *Vault) ProposeEdit(ctx context.Context, args json.RawMessage) (string, error) {
	var input struct {
		Path    string `json:"path"`
		Content string `json:"content"`
		Reason  string `json:"reason"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	rel, abs, err := v.Resolve(input.Path)
	if err != nil {
		return failure(err)
	}
	if _, err := os.Stat(abs); err != nil {
		return failure(fmt.Errorf("cannot edit %s: %w", rel, err))
	}

	return result(map[string]any{
		"ok":      true,
		"path":    rel,
		"content": input.Content,
		"reason":  input.Reason,
	})
}

func (v *Vault) CreateDoc(ctx context.Context, args json.RawMessage) (string, error) {
	var input struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	p := input.Path
	if filepath.Ext(p) == "" {
		p += ".md"
	}
	rel, abs, err := v.Resolve(p)
	if err != nil {
		return failure(err)
	}
	if _, err := os.Stat(abs); err == nil {
		return failure(fmt.Errorf("%s already exists", rel))
	}

	return result(map[string]any{"ok": true, "path": rel, "content": input.Content})
}

func (v *Vault) Tools() core.ToolSet {
	return core.ToolSet{
		"search_docs":  {Description: "Search the vault for documents matching a query", Schema: json.RawMessage(searchDocsSchema), Execute: v.SearchDocs},
		"list_docs":    {Description: "List documents in the vault", Schema: json.RawMessage(listDocsSchema), Execute: v.ListDocs},
		"read_doc":     {Description: "Read a document from the vault", Schema: json.RawMessage(readDocSchema), Execute: v.ReadDoc},
		"propose_edit": {Description: "Propose new content for an existing document. The user reviews it before anything is written", Schema: json.RawMessage(proposeEditSchema), Execute: v.ProposeEdit},
		"create_doc":   {Description: "Propose a new document. The user reviews it before anything is written", Schema: json.RawMessage(createDocSchema), Execute: v.CreateDoc},
	}
}

// IsDocument reports whether the file is indexed and listed as a vault document.
func IsDocument(path string) bool {
	return slices.Contains(docExtensions, strings.ToLower(filepath.Ext(path)))
}

func result(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	return string(data), nil
}

func failure(err error) (string, error) {
	return result(map[string]any{"ok": false, "error": err.Error()})
}
