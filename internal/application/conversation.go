package application

import (
	"regexp"
	"sync"

	"voice-home/internal/domain"
)

const (
	DefaultHistoryLimit  = 30
	DefaultHistoryWindow = 10
)

const smartHomeInstruction = `You are a smart home voice assistant. You control lights, fans, air conditioners and TVs, set reminders, and help with everyday questions such as music suggestions and recipes.
Keep answers short and conversational because they are read aloud. When the user asks for something a device command would do, explain the exact phrase to say, for example "turn on the bedroom fan" or "remind me to call mom in 5 minutes".`

const generalInstruction = `You are a friendly, knowledgeable assistant. Answer clearly and accurately.
Keep answers concise and conversational because they are read aloud. Use plain text without markdown.`

var smartTopicRe = regexp.MustCompile(`(?i)\b(?:device|devices|smart|home|remind|reminder|music|song|songs|recipe|recipes|cook|cooking)\b`)

// InstructionFor picks the system context for a message.
func InstructionFor(text string) string {
	if smartTopicRe.MatchString(text) {
		return smartHomeInstruction
	}
	return generalInstruction
}

// Conversation is the bounded turn history shared with the chat model.
type Conversation struct {
	limit  int
	window int

	mu    sync.Mutex
	turns []domain.Turn
}

func NewConversation(limit, window int) *Conversation {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if window <= 0 || window > limit {
		window = min(DefaultHistoryWindow, limit)
	}
	return &Conversation{limit: limit, window: window}
}

// Prompt builds the request for text using the most recent turns.
func (c *Conversation) Prompt(text string) Prompt {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := max(0, len(c.turns)-c.window)
	history := make([]domain.Turn, len(c.turns)-start)
	copy(history, c.turns[start:])
	return Prompt{
		Instruction: InstructionFor(text),
		History:     history,
		Message:     text,
	}
}

// Record appends a completed exchange and drops the oldest turns past the limit.
func (c *Conversation) Record(user, assistant string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns,
		domain.Turn{Role: domain.RoleUser, Content: user},
		domain.Turn{Role: domain.RoleAssistant, Content: assistant},
	)
	if over := len(c.turns) - c.limit; over > 0 {
		c.turns = append([]domain.Turn(nil), c.turns[over:]...)
	}
}

func (c *Conversation) Turns() []domain.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

func (c *Conversation) Clear() {
	c.mu.Lock()
	c.turns = nil
	c.mu.Unlock()
}
