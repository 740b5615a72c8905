package vault

import (
	"context"
	"strings"
	"unicode"

	"github.com/sandevgo/quill/internal/core"
)

const maxTerms = 12

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"can": {}, "do": {}, "does": {}, "for": {}, "from": {}, "how": {}, "i": {}, "in": {},
	"is": {}, "it": {}, "me": {}, "my": {}, "of": {}, "on": {}, "or": {}, "our": {},
	"please": {}, "show": {}, "that": {}, "the": {}, "this": {}, "to": {}, "was": {},
	"we": {}, "what": {}, "where": {}, "which": {}, "who": {}, "why": {}, "with": {},
	"you": {}, "your": {},
}

var _ core.Retriever = (*Searcher)(nil)

// Searcher answers retrieval queries from the vault index.
type Searcher struct {
	repo core.DocumentsRepository
}

func NewSearcher(repo core.DocumentsRepository) *Searcher {
	return &Searcher{repo: repo}
}

func (s *Searcher) Search(ctx context.Context, query string, k, snippetLength int) ([]core.DocSlice, error) {
	terms := Terms(query)
	if len(terms) == 0 || k <= 0 {
		return nil, nil
	}

	docs, err := s.repo.SearchChunks(ctx, terms, k)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		if snippetLength > 0 {
			if r := []rune(docs[i].Snippet); len(r) > snippetLength {
				docs[i].Snippet = string(r[:snippetLength])
			}
		}
	}
	return docs, nil
}

// Terms lowercases the query and keeps distinct words that are not stopwords.
func Terms(query string) []string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_'
	})

	var terms []string
	seen := make(map[string]struct{})
	for _, w := range words {
		w = strings.Trim(w, "-_")
		if len([]rune(w)) < 2 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, w)
		if len(terms) == maxTerms {
			break
		}
	}
	return terms
}
