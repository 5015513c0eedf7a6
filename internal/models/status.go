package models

import (
	"errors"
	"fmt"
)

type Status string

const (
	StatusToRead     Status = "to_read"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnknownStatus     = errors.New("unknown status")
)

// Statuses lists the reading states in progression order.
var Statuses = []Status{StatusToRead, StatusInProgress, StatusCompleted}

func (s Status) rank() int {
	switch s {
	case StatusToRead:
		return 0
	case StatusInProgress:
		return 1
	case StatusCompleted:
		return 2
	}
	return -1
}

func (s Status) Valid() bool { return s.rank() >= 0 }

// ParseStatus accepts only the exact lowercase wire values.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
	}
	return s, nil
}

// ValidateTransition allows staying put and moving forward; moving back
// (e.g. completed -> in_progress) fails with ErrInvalidTransition.
func ValidateTransition(from, to Status) error {
	if !from.Valid() || !to.Valid() {
		return ErrUnknownStatus
	}
	if to.rank() < from.rank() {
		return ErrInvalidTransition
	}
	return nil
}
