package llm

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    Role
	Content string
}

// Constraint names a closed vocabulary a structured response must draw
// from. Tokens outside Vocabulary are a protocol violation the caller
// must reject.
type Constraint struct {
	Name       string
	Vocabulary []string
}

// CompletionRequest contains the parameters for an LLM completion request.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
	Constraint  *Constraint
}

// CompletionResponse contains the result of an LLM completion request.
type CompletionResponse struct {
	Content      string
	Structured   string // raw structured payload when a Constraint was set
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}
