package model

// Message roles sent to the completion provider
const (
	MessageRoleSystem = "system"
	MessageRoleUser   = "user"
)

// Message is a single chat message for the completion provider
type Message struct {
	Role    string
	Content string
}

// Prompt is the assembled input of one completion call
type Prompt struct {
	System   string
	Question string
}

// Messages returns the system and user message pair
func (p *Prompt) Messages() []Message {
	return []Message{
		{Role: MessageRoleSystem, Content: p.System},
		{Role: MessageRoleUser, Content: p.Question},
	}
}
