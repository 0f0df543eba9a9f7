package models

import (
	"errors"
	"strings"
)

// TimestampFormat is the fixed layout for message timestamps.
const TimestampFormat = "2006-01-02 15:04:05"

// MaxContentLength is the longest message content accepted, in characters.
const MaxContentLength = 400

var (
	ErrContentTooLong   = errors.New("message content exceeds 400 characters")
	ErrContentMultiline = errors.New("message content must be a single line")
)

// Account is one durable credential pair. PasswordDigest holds the at-rest
// form of the wire digest, not the digest itself.
type Account struct {
	Name           string `json:"name"`
	PasswordDigest string `json:"passwordDigest"`
}

// Credentials is the payload a client sends for login and addUser.
type Credentials struct {
	Name   string `json:"name"`
	Digest string `json:"digest"`
}

// Message is one board entry. Messages are append-only and never mutated.
type Message struct {
	Timestamp string `json:"timestamp"`
	Content   string `json:"content"`
}

// Line renders the message in its persisted "timestamp,content" form.
func (m Message) Line() string {
	return m.Timestamp + "," + m.Content
}

// Validate checks the content constraints shared by client and server.
func (m Message) Validate() error {
	return ValidateContent(m.Content)
}

func ValidateContent(content string) error {
	if strings.ContainsAny(content, "\n\r") {
		return ErrContentMultiline
	}
	if len([]rune(content)) > MaxContentLength {
		return ErrContentTooLong
	}
	return nil
}
