package core

import "time"

type MemoryType string

const (
	MemoryFact       MemoryType = "fact"
	MemoryPreference MemoryType = "preference"
	MemoryEntity     MemoryType = "entity"
)

func (t MemoryType) Valid() bool {
	switch t {
	case MemoryFact, MemoryPreference, MemoryEntity:
		return true
	}
	return false
}

type MemoryItem struct {
	ID        string     `json:"id"`
	Type      MemoryType `json:"type"`
	Content   string     `json:"content"`
	Tags      []string   `json:"tags"`
	CreatedAt time.Time  `json:"createdAt"`
}
