package domain

import (
	"strings"
	"time"
)

// Chat message types.
const (
	MessageGeneral    = "general"
	MessageWorkout    = "workout"
	MessageNutrition  = "nutrition"
	MessageMotivation = "motivation"
)

// ChatFallbackResponse is returned when the assistant cannot be reached.
const ChatFallbackResponse = "I'm sorry, I'm having trouble processing your request right now. Please try again later."

// ChatSuggestions are follow-up prompts attached to every reply.
var ChatSuggestions = []string{
	"Tell me about strength training",
	"Create a meal plan",
	"How to improve cardio?",
}

// ChatMessage is a user message to the assistant.
type ChatMessage struct {
	UserID      string `json:"user_id" validate:"required,max=128"`
	Message     string `json:"message" validate:"required,max=4000"`
	MessageType string `json:"message_type" validate:"required,oneof=general workout nutrition motivation"`
}

// Normalize trims the message and defaults the type to general.
func (m ChatMessage) Normalize() ChatMessage {
	m.UserID = strings.TrimSpace(m.UserID)
	m.Message = strings.TrimSpace(m.Message)
	m.MessageType = strings.ToLower(strings.TrimSpace(m.MessageType))
	if m.MessageType == "" {
		m.MessageType = MessageGeneral
	}
	return m
}

// ChatReply is the assistant's answer. Degraded marks the canned fallback.
type ChatReply struct {
	Response    string    `json:"response"`
	MessageType string    `json:"message_type"`
	Suggestions []string  `json:"suggestions"`
	Timestamp   time.Time `json:"timestamp"`
	Degraded    bool      `json:"degraded"`
}
