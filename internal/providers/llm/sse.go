package llm

import (
	"bufio"
	"io"
	"strings"
)

type sseEvent struct {
	Type string
	Data string
}

// sseScanner reads Server-Sent Events. Events end at a blank line; multiple
// data lines are joined with newlines; comments and unknown fields are skipped.
type sseScanner struct {
	reader  *bufio.Reader
	current sseEvent
	err     error
}

func newSSEScanner(r io.Reader) *sseScanner {
	return &sseScanner{reader: bufio.NewReaderSize(r, 64*1024)}
}

func (s *sseScanner) Next() bool {
	if s.err != nil {
		return false
	}
	s.current = sseEvent{}

	var data []string
	var eventType string
	hasData := false

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil && line == "" {
			s.err = err
			if err == io.EOF && hasData {
				s.current = sseEvent{Type: eventType, Data: strings.Join(data, "\n")}
				return true
			}
			return false
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if hasData {
				s.current = sseEvent{Type: eventType, Data: strings.Join(data, "\n")}
				return true
			}
			eventType = ""
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "data":
			data = append(data, value)
			hasData = true
		case "event":
			eventType = value
		}
	}
}

func (s *sseScanner) Event() sseEvent {
	return s.current
}

// Err returns nil after a clean EOF.
func (s *sseScanner) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}
