package agent

import "strings"

const (
	openTag  = "<finalAnswer>"
	closeTag = "</finalAnswer>"
)

type scanState int

const (
	stateBefore scanState = iota
	stateInside
	stateAfter
)

// AnswerScanner splits a chunked text stream into the part inside
// <finalAnswer>...</finalAnswer> and everything outside it. Tags may be cut
// at any chunk boundary; a partial tag is held back until it resolves.
type AnswerScanner struct {
	state   scanState
	pending string
	opened  bool

	answer  strings.Builder
	outside strings.Builder

	onAnswer  func(string)
	onOutside func(string)
}

// NewAnswerScanner returns a scanner. Either callback may be nil.
func NewAnswerScanner(onAnswer, onOutside func(string)) *AnswerScanner {
	return &AnswerScanner{onAnswer: onAnswer, onOutside: onOutside}
}

func (s *AnswerScanner) Write(chunk string) {
	buf := s.pending + chunk
	s.pending = ""

	for buf != "" {
		tag := openTag
		if s.state == stateInside {
			tag = closeTag
		}

		if i := strings.Index(buf, tag); i >= 0 {
			s.emit(buf[:i])
			buf = buf[i+len(tag):]
			if s.state == stateInside {
				s.state = stateAfter
			} else {
				s.state = stateInside
				s.opened = true
			}
			continue
		}

		keep := partialSuffix(buf, tag)
		s.emit(buf[:len(buf)-keep])
		s.pending = buf[len(buf)-keep:]
		return
	}
}

// Flush releases a held back partial tag as plain text.
func (s *AnswerScanner) Flush() {
	s.emit(s.pending)
	s.pending = ""
}

func (s *AnswerScanner) emit(text string) {
	if text == "" {
		return
	}
	if s.state == stateInside {
		s.answer.WriteString(text)
		if s.onAnswer != nil {
			s.onAnswer(text)
		}
		return
	}
	s.outside.WriteString(text)
	if s.onOutside != nil {
		s.onOutside(text)
	}
}

func (s *AnswerScanner) Answer() string { return s.answer.String() }

func (s *AnswerScanner) Outside() string { return s.outside.String() }

// Opened reports whether an opening tag was ever seen.
func (s *AnswerScanner) Opened() bool { return s.opened }

// partialSuffix returns the length of the longest suffix of buf that is a
// proper prefix of tag.
func partialSuffix(buf, tag string) int {
	for n := min(len(tag)-1, len(buf)); n > 0; n-- {
		if strings.HasSuffix(buf, tag[:n]) {
			return n
		}
	}
	return 0
}

// ExtractAnswer returns the tagged answer of a complete text, or the whole
// text when it carries no tags.
func ExtractAnswer(text string) string {
	s := NewAnswerScanner(nil, nil)
	s.Write(text)
	s.Flush()
	if s.Opened() {
		return strings.TrimSpace(s.Answer())
	}
	return strings.TrimSpace(text)
}
