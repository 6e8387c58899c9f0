// Package interfaces defines service contracts for Kakei
package interfaces

import (
	"context"
)

// ChatMessage is one turn in a model conversation.
type ChatMessage struct {
	Role    string // "system", "user" or "assistant"
	Content string
}

// ModelClient provides access to a chat-completion model service
type ModelClient interface {
	// Chat sends an ordered message list to the named model and returns the
	// reply text. Options are opaque decode parameters passed through to the
	// backend (temperature, top_p and friends).
	Chat(ctx context.Context, model string, messages []ChatMessage, options map[string]any) (string, error)
}
