package conv

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Frontmatter holds the YAML header fields a vault document may declare.
type Frontmatter struct {
	Title string   `yaml:"title"`
	Tags  []string `yaml:"tags"`
}

var fmDelim = []byte("---")

// SplitFrontmatter separates a leading YAML block from the markdown body.
// Documents without a header are returned unchanged with an empty Frontmatter.
func SplitFrontmatter(md []byte) (Frontmatter, []byte, error) {
	var fm Frontmatter

	trimmed := bytes.TrimLeft(md, "\ufeff")
	if !bytes.HasPrefix(trimmed, fmDelim) {
		return fm, md, nil
	}

	rest := trimmed[len(fmDelim):]
	nl := bytes.IndexByte(rest, '\n')
	if nl < 0 || len(bytes.TrimSpace(rest[:nl])) != 0 {
		return fm, md, nil
	}
	rest = rest[nl+1:]

	end := bytes.Index(rest, append([]byte("\n"), fmDelim...))
	var header, body []byte
	switch {
	case bytes.HasPrefix(rest, fmDelim):
		header, body = nil, rest[len(fmDelim):]
	case end >= 0:
		header, body = rest[:end], rest[end+1+len(fmDelim):]
	default:
		return fm, md, nil
	}

	if err := yaml.Unmarshal(header, &fm); err != nil {
		return Frontmatter{}, md, fmt.Errorf("parse frontmatter: %w", err)
	}
	return fm, bytes.TrimLeft(body, "\r\n"), nil
}
