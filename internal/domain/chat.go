package domain

import "time"

type ChatKind string

const (
	ChatPlayer  ChatKind = "player"
	ChatSystem  ChatKind = "system"
	ChatWhisper ChatKind = "whisper"
)

type ChatMessage struct {
	Kind ChatKind  `json:"kind"`
	From string    `json:"from,omitempty"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}
