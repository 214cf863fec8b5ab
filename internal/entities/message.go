package entities

import "time"

type Message struct {
	From     string
	Content  string
	Platform string // "telegram", "whatsapp", "whatsapp-web"
}

// KnowledgeEntry is one question/answer pair from the FAQ file.
// Entries are immutable once loaded; ordering matters for tie-breaks.
type KnowledgeEntry struct {
	Question string
	Answer   string
}

// MemoryTurn is one entry of per-conversation memory kept in Redis.
type MemoryTurn struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	TS   time.Time `json:"ts"`
}

// Session tracks a multi-turn flow for one identity. Data is scratch
// space for fields captured so far; the whole session is dropped when
// the flow completes or is cancelled.
type Session struct {
	State string
	Data  map[string]any
}

func NewSession(state string) *Session {
	return &Session{State: state, Data: make(map[string]any)}
}
