package chat

import (
	openai "github.com/sashabaranov/go-openai"
)

// Message is one turn of the user-visible transcript.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required,max=8000"`
}

// Request is the body of a chat request.
type Request struct {
	Messages []Message `json:"messages" validate:"required,min=1,max=100,dive"`

	// UserEmail selects the calendar the tools act on. Empty means the
	// service account calendar.
	UserEmail string `json:"user_email,omitempty" validate:"omitempty,email"`
}

// Response is the reply to a chat request.
type Response struct {
	Response string `json:"response"`
}

func (m Message) toOpenAI() openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
}
