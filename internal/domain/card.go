package domain

import "time"

// ============================================================
// NFC Cards
// ============================================================

// CardStatus is the lifecycle status of a physical tag.
type CardStatus string

const (
	CardActive   CardStatus = "active"
	CardInactive CardStatus = "inactive"
)

// Card identifies one physical NFC tag and its public routing slug.
type Card struct {
	ID        string     `json:"id"`
	TagUID    string     `json:"tag_uid"`
	Slug      string     `json:"slug"`
	Status    CardStatus `json:"status"`
	ProfileID *string    `json:"profile_id"`
	CompanyID string     `json:"company_id"`
	CreatedAt time.Time  `json:"created_at"`
}

// TagResolution is the successful result of scanning a tag.
type TagResolution struct {
	CardID    string `json:"card_id"`
	CompanyID string `json:"company_id"`
	ProfileID string `json:"profile_id"`
}
