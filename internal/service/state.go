package service

import (
	"time"

	"github.com/balajivenky06/dandi/internal/domain"
)

// NotificationKind selects the toast style.
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationDelete  NotificationKind = "delete"
)

// Notification is a transient toast.
type Notification struct {
	Message string           `json:"message"`
	Kind    NotificationKind `json:"kind"`
}

// UndoableEdit remembers the name a rename replaced until Expiry.
type UndoableEdit struct {
	RecordID     string    `json:"record_id"`
	PreviousName string    `json:"previous_name"`
	Expiry       time.Time `json:"expiry"`
}

// Banner is the dismissible list-level error.
type Banner struct {
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// State is a point-in-time copy of everything the dashboard renders.
type State struct {
	Keys            []*domain.KeyRecord `json:"keys"`
	Loading         bool                `json:"loading"`
	Error           *Banner             `json:"error,omitempty"`
	Visible         map[string]bool     `json:"visible"`
	CopiedID        string              `json:"copied_id,omitempty"`
	EditingID       string              `json:"editing_id,omitempty"`
	EditBuffer      string              `json:"edit_buffer,omitempty"`
	PendingDeleteID string              `json:"pending_delete_id,omitempty"`
	Notification    *Notification       `json:"notification,omitempty"`
	Undo            *UndoableEdit       `json:"undo,omitempty"`
}

// Key returns the record with the given id, or nil.
func (s State) Key(id string) *domain.KeyRecord {
	for _, k := range s.Keys {
		if k.ID == id {
			return k
		}
	}
	return nil
}

// UndoArmed reports whether the toast should offer "Undo".
func (s State) UndoArmed() bool {
	return s.Undo != nil
}

func (s *State) clone() State {
	c := *s
	c.Keys = make([]*domain.KeyRecord, len(s.Keys))
	for i, k := range s.Keys {
		c.Keys[i] = k.Clone()
	}
	c.Visible = make(map[string]bool, len(s.Visible))
	for id, v := range s.Visible {
		if v {
			c.Visible[id] = true
		}
	}
	if s.Error != nil {
		b := *s.Error
		c.Error = &b
	}
	if s.Notification != nil {
		n := *s.Notification
		c.Notification = &n
	}
	if s.Undo != nil {
		u := *s.Undo
		c.Undo = &u
	}
	return c
}
