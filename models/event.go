// api/internal/models/analytics.go
package models

import (
	"encoding/json"
	"time"
)

// AnalyticsEvent represents a single persisted analytics event.
// The id, ip_address, user_agent and timestamp fields are assigned
// server-side at creation; timestamp is never updated afterwards.
type AnalyticsEvent struct {
	ID        int64           `json:"id"`
	EventType string          `json:"event_type"`
	UserID    *int64          `json:"user_id"`
	SessionID *string         `json:"session_id"`
	PagePath  *string         `json:"page_path"`
	Metadata  json.RawMessage `json:"metadata"`
	IPAddress *string         `json:"ip_address"`
	UserAgent *string         `json:"user_agent"`
	Timestamp time.Time       `json:"timestamp"`
}

// EventInput is the client-supplied portion of a new event.
type EventInput struct {
	EventType string          `json:"event_type"`
	UserID    *int64          `json:"user_id"`
	SessionID *string         `json:"session_id"`
	PagePath  *string         `json:"page_path"`
	Metadata  json.RawMessage `json:"metadata"`
}

// EventUpdate carries a partial update. A nil field means "leave unchanged";
// only fields present in the payload are applied.
type EventUpdate struct {
	ID        *int64           `json:"id"`
	EventType *string          `json:"event_type"`
	UserID    *int64           `json:"user_id"`
	SessionID *string          `json:"session_id"`
	PagePath  *string          `json:"page_path"`
	Metadata  *json.RawMessage `json:"metadata"`
}

// IsEmpty reports whether the update carries no applicable field.
func (u EventUpdate) IsEmpty() bool {
	return u.EventType == nil && u.UserID == nil && u.SessionID == nil &&
		u.PagePath == nil && u.Metadata == nil
}

type BatchEventsRequest struct {
	Events []EventInput `json:"events"`
}

type BatchUpdateRequest struct {
	Updates []EventUpdate `json:"updates"`
}
