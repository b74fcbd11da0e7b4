package postgres

import (
	"encoding/json"
	"time"

	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
)

// Row types mirror the Supabase schema so both backends read the same tables.

type companyRow struct {
	ID            string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name          string `gorm:"not null"`
	Slug          string `gorm:"uniqueIndex;not null"`
	FollowUpEmail bool   `gorm:"not null;default:false"`
	CreatedAt     time.Time
}

func (companyRow) TableName() string { return "companies" }

type cardRow struct {
	ID        string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TagUID    string  `gorm:"uniqueIndex;not null"`
	Slug      string  `gorm:"uniqueIndex;not null"`
	Status    string  `gorm:"not null;default:active"`
	ProfileID *string `gorm:"type:uuid"`
	CompanyID string  `gorm:"type:uuid;index;not null"`
	CreatedAt time.Time
}

func (cardRow) TableName() string { return "cards" }

type profileRow struct {
	ID        string            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID string            `gorm:"type:uuid;index;not null"`
	FullName  string            `gorm:"not null"`
	Role      string
	Bio       string
	Email     string
	Phone     string
	WhatsApp  string            `gorm:"column:whatsapp"`
	Website   string
	Socials   map[string]string `gorm:"type:jsonb;serializer:json"`
	AvatarURL string
	CoverURL  string
	Published bool              `gorm:"not null;default:false"`
	CreatedAt time.Time
}

func (profileRow) TableName() string { return "profiles" }

type layoutRow struct {
	CompanyID       string `gorm:"type:uuid;primaryKey"`
	ShowAvatar      *bool
	ShowCover       *bool
	ShowBio         *bool
	ShowContact     *bool
	ShowSocials     *bool
	ShowSaveContact *bool
	ShowLeadForm    *bool
}

func (layoutRow) TableName() string { return "profile_layouts" }

type leadRow struct {
	ID        string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID string  `gorm:"type:uuid;index;not null"`
	ProfileID *string `gorm:"type:uuid"`
	CardID    *string `gorm:"type:uuid"`
	Name      string  `gorm:"not null"`
	Email     string  `gorm:"not null"`
	Phone     *string
	Consent   bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (leadRow) TableName() string { return "leads" }

type eventRow struct {
	ID        string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID string         `gorm:"type:uuid;index;not null"`
	ProfileID *string        `gorm:"type:uuid"`
	CardID    *string        `gorm:"type:uuid"`
	EventType string         `gorm:"not null"`
	Device    string
	Metadata  map[string]any `gorm:"type:jsonb;serializer:json"`
	CreatedAt time.Time
}

func (eventRow) TableName() string { return "events" }

type integrationRow struct {
	ID        string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID string `gorm:"type:uuid;index;not null"`
	Type      string `gorm:"not null"`
	Active    bool   `gorm:"not null;default:true"`
	Config    []byte `gorm:"type:jsonb"`
	CreatedAt time.Time
}

func (integrationRow) TableName() string { return "integrations" }

func (r *cardRow) toDomain() *domain.Card {
	return &domain.Card{
		ID:        r.ID,
		TagUID:    r.TagUID,
		Slug:      r.Slug,
		Status:    domain.CardStatus(r.Status),
		ProfileID: r.ProfileID,
		CompanyID: r.CompanyID,
		CreatedAt: r.CreatedAt,
	}
}

func (r *companyRow) toDomain() *domain.Company {
	return &domain.Company{ID: r.ID, Name: r.Name, Slug: r.Slug, FollowUpEmail: r.FollowUpEmail}
}

func (r *profileRow) toDomain() *domain.Profile {
	return &domain.Profile{
		ID:        r.ID,
		CompanyID: r.CompanyID,
		FullName:  r.FullName,
		Role:      r.Role,
		Bio:       r.Bio,
		Email:     r.Email,
		Phone:     r.Phone,
		WhatsApp:  r.WhatsApp,
		Website:   r.Website,
		Socials:   r.Socials,
		AvatarURL: r.AvatarURL,
		CoverURL:  r.CoverURL,
		Published: r.Published,
	}
}

func (r *layoutRow) toDomain() *domain.ProfileLayout {
	return &domain.ProfileLayout{
		CompanyID:       r.CompanyID,
		ShowAvatar:      r.ShowAvatar,
		ShowCover:       r.ShowCover,
		ShowBio:         r.ShowBio,
		ShowContact:     r.ShowContact,
		ShowSocials:     r.ShowSocials,
		ShowSaveContact: r.ShowSaveContact,
		ShowLeadForm:    r.ShowLeadForm,
	}
}

func (r *leadRow) toDomain() *domain.Lead {
	return &domain.Lead{
		ID:        r.ID,
		CompanyID: r.CompanyID,
		ProfileID: r.ProfileID,
		CardID:    r.CardID,
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		Consent:   r.Consent,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r *integrationRow) toDomain() domain.Integration {
	return domain.Integration{
		ID:        r.ID,
		CompanyID: r.CompanyID,
		Type:      domain.IntegrationType(r.Type),
		Active:    r.Active,
		Config:    json.RawMessage(r.Config),
	}
}

func leadRowFrom(l *domain.Lead) *leadRow {
	return &leadRow{
		CompanyID: l.CompanyID,
		ProfileID: l.ProfileID,
		CardID:    l.CardID,
		Name:      l.Name,
		Email:     l.Email,
		Phone:     l.Phone,
		Consent:   l.Consent,
	}
}

func eventRowFrom(e *domain.Event) *eventRow {
	return &eventRow{
		CompanyID: e.CompanyID,
		ProfileID: e.ProfileID,
		CardID:    e.CardID,
		EventType: string(e.Type),
		Device:    string(e.Device),
		Metadata:  e.Metadata,
	}
}
