package domain

import "time"

// ============================================================
// Analytics events (append-only)
// ============================================================

// EventType enumerates analytics event kinds.
type EventType string

const (
	EventProfileView   EventType = "profile_view"
	EventCTAClick      EventType = "cta_click"
	EventNFCTap        EventType = "nfc_tap"
	EventLeadSubmit    EventType = "lead_submit"
	EventFollowUpSent  EventType = "follow_up_sent"
	EventVCardDownload EventType = "vcard_download"
)

// VisitorTrackable reports whether visitors may post this event type directly.
func (t EventType) VisitorTrackable() bool {
	return t == EventCTAClick || t == EventVCardDownload
}

// DeviceClass is a coarse classification derived from the user agent.
type DeviceClass string

const (
	DeviceMobile  DeviceClass = "mobile"
	DeviceDesktop DeviceClass = "desktop"
)

// Event is a write-once analytics record.
type Event struct {
	ID        string         `json:"id,omitempty"`
	CompanyID string         `json:"company_id"`
	ProfileID *string        `json:"profile_id"`
	CardID    *string        `json:"card_id"`
	Type      EventType      `json:"event_type"`
	Device    DeviceClass    `json:"device"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
}

// TrackRequest is the visitor payload for CTA / vCard tracking.
type TrackRequest struct {
	Type     EventType      `json:"event_type"`
	CardID   *string        `json:"card_id,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
