package models

import (
	"time"

	"github.com/google/uuid"
)

// WatchSession is the runtime state of one running directory watch
type WatchSession struct {
	ID         string    `json:"id"`
	Root       string    `json:"root"`
	Extensions []string  `json:"extensions,omitempty"`
	StartedAt  time.Time `json:"started_at"`
}

// NewWatchSession creates a session with a fresh identifier
func NewWatchSession(root string, extensions []string) *WatchSession {
	return &WatchSession{
		ID:         uuid.NewString(),
		Root:       root,
		Extensions: extensions,
		StartedAt:  time.Now(),
	}
}

// Uptime returns how long the session has been running
func (s *WatchSession) Uptime() time.Duration {
	return time.Since(s.StartedAt)
}
