package domain

// ============================================================
// Companies, Profiles & Layout
// ============================================================

// Company is the tenant owning cards, profiles, leads and integrations.
type Company struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	FollowUpEmail bool   `json:"follow_up_email"`
}

// Profile is a person's public digital business card.
type Profile struct {
	ID        string            `json:"id"`
	CompanyID string            `json:"company_id"`
	FullName  string            `json:"full_name"`
	Role      string            `json:"role,omitempty"`
	Bio       string            `json:"bio,omitempty"`
	Email     string            `json:"email,omitempty"`
	Phone     string            `json:"phone,omitempty"`
	WhatsApp  string            `json:"whatsapp,omitempty"`
	Website   string            `json:"website,omitempty"`
	Socials   map[string]string `json:"socials,omitempty"`
	AvatarURL string            `json:"avatar_url,omitempty"`
	CoverURL  string            `json:"cover_url,omitempty"`
	Published bool              `json:"published"`
}

// ProfileLayout is the stored per-company display configuration.
// Nil flags were never configured.
type ProfileLayout struct {
	CompanyID       string `json:"company_id"`
	ShowAvatar      *bool  `json:"show_avatar"`
	ShowCover       *bool  `json:"show_cover"`
	ShowBio         *bool  `json:"show_bio"`
	ShowContact     *bool  `json:"show_contact"`
	ShowSocials     *bool  `json:"show_socials"`
	ShowSaveContact *bool  `json:"show_save_contact"`
	ShowLeadForm    *bool  `json:"show_lead_form"`
}

// ResolvedLayout is the layout after defaults have been applied.
type ResolvedLayout struct {
	ShowAvatar      bool `json:"show_avatar"`
	ShowCover       bool `json:"show_cover"`
	ShowBio         bool `json:"show_bio"`
	ShowContact     bool `json:"show_contact"`
	ShowSocials     bool `json:"show_socials"`
	ShowSaveContact bool `json:"show_save_contact"`
	ShowLeadForm    bool `json:"show_lead_form"`
}

// Layout defaults. Content flags default to visible. The lead form defaults
// to enabled only when the company has no layout row at all.
const (
	DefaultShowContent       = true
	DefaultShowLeadForm      = true
	DefaultShowLeadFormInRow = false
)

// ResolveLayout applies the enumerated defaults to a possibly missing layout.
func ResolveLayout(l *ProfileLayout) ResolvedLayout {
	if l == nil {
		return ResolvedLayout{
			ShowAvatar:      DefaultShowContent,
			ShowCover:       DefaultShowContent,
			ShowBio:         DefaultShowContent,
			ShowContact:     DefaultShowContent,
			ShowSocials:     DefaultShowContent,
			ShowSaveContact: DefaultShowContent,
			ShowLeadForm:    DefaultShowLeadForm,
		}
	}
	return ResolvedLayout{
		ShowAvatar:      flag(l.ShowAvatar, DefaultShowContent),
		ShowCover:       flag(l.ShowCover, DefaultShowContent),
		ShowBio:         flag(l.ShowBio, DefaultShowContent),
		ShowContact:     flag(l.ShowContact, DefaultShowContent),
		ShowSocials:     flag(l.ShowSocials, DefaultShowContent),
		ShowSaveContact: flag(l.ShowSaveContact, DefaultShowContent),
		ShowLeadForm:    flag(l.ShowLeadForm, DefaultShowLeadFormInRow),
	}
}

func flag(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

// PublicProfile is what the visitor-facing page renders.
type PublicProfile struct {
	Profile *Profile       `json:"profile"`
	Company *Company       `json:"company"`
	Layout  ResolvedLayout `json:"layout"`
}
