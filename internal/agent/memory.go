package agent

// Memory entry kinds.
const (
	MemoryUser        = "user"
	MemoryAssistant   = "assistant"
	MemoryEnvironment = "environment"
)

// Entry is one remembered interaction.
type Entry struct {
	Kind    string
	Content string
}

// Memory is the append-only interaction log for one conversation.
type Memory struct {
	entries []Entry
}

func NewMemory() *Memory {
	return &Memory{}
}

// Add appends an entry. Entries with an empty kind or content are dropped.
func (m *Memory) Add(kind, content string) {
	if kind == "" || content == "" {
		return
	}
	m.entries = append(m.entries, Entry{Kind: kind, Content: content})
}

// Entries returns all entries in chronological order.
func (m *Memory) Entries() []Entry {
	return m.entries
}

// Recent returns the last n entries.
func (m *Memory) Recent(n int) []Entry {
	if n >= len(m.entries) {
		return m.entries
	}
	return m.entries[len(m.entries)-n:]
}

// Clear drops all entries.
func (m *Memory) Clear() {
	m.entries = nil
}
