package domain

import "time"

type Channel string

const (
	ChannelWeb        Channel = "WEB"
	ChannelFacebook   Channel = "FACEBOOK"
	ChannelInfluencer Channel = "INFLUENCER"
)

type CaseStatus string

const (
	StatusInProgress  CaseStatus = "IN_CORSO"
	StatusClosed      CaseStatus = "CHIUSO"
	StatusAppointment CaseStatus = "APPUNTAMENTO"
)

// Case is a single lead tracked by the clinic call center.
type Case struct {
	ID                int64      `json:"id"`
	CreatedAt         time.Time  `json:"created_at"`
	AssignedTo        *string    `json:"assigned_to,omitempty"`
	FirstName         string     `json:"first_name" validate:"required,max=100"`
	LastName          string     `json:"last_name" validate:"required,max=100"`
	Phone             *string    `json:"phone,omitempty" validate:"omitempty,max=32"`
	HomePhone         *string    `json:"home_phone,omitempty" validate:"omitempty,max=32"`
	CellPhone         *string    `json:"cell_phone,omitempty" validate:"omitempty,max=32"`
	Email             *string    `json:"email,omitempty" validate:"omitempty,email"`
	Channel           Channel    `json:"channel" validate:"required,oneof=WEB FACEBOOK INFLUENCER"`
	Origin            string     `json:"origin" validate:"required"`
	Status            CaseStatus `json:"status" validate:"required,oneof=IN_CORSO CHIUSO APPUNTAMENTO"`
	Disposition       *string    `json:"disposition,omitempty"`
	Outcome           *string    `json:"outcome,omitempty"`
	Clinic            string     `json:"clinic" validate:"required"`
	Treatment         *string    `json:"treatment,omitempty"`
	Promotion         *string    `json:"promotion,omitempty"`
	FollowUpDate      *time.Time `json:"follow_up_date,omitempty"`
	DialerCampaignTag *string    `json:"dialer_campaign_tag,omitempty"`
}

// Phones returns the stored phone fields in lookup order.
func (c *Case) Phones() []string {
	var out []string
	for _, p := range []*string{c.Phone, c.HomePhone, c.CellPhone} {
		if p != nil && *p != "" {
			out = append(out, *p)
		}
	}
	return out
}

// CaseUpdate is a partial update. Nil fields keep their stored value.
type CaseUpdate struct {
	AssignedTo        *string     `json:"assigned_to"`
	FirstName         *string     `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName          *string     `json:"last_name" validate:"omitempty,min=1,max=100"`
	Phone             *string     `json:"phone" validate:"omitempty,max=32"`
	HomePhone         *string     `json:"home_phone" validate:"omitempty,max=32"`
	CellPhone         *string     `json:"cell_phone" validate:"omitempty,max=32"`
	Email             *string     `json:"email" validate:"omitempty,email"`
	Channel           *Channel    `json:"channel" validate:"omitempty,oneof=WEB FACEBOOK INFLUENCER"`
	Origin            *string     `json:"origin"`
	Status            *CaseStatus `json:"status" validate:"omitempty,oneof=IN_CORSO CHIUSO APPUNTAMENTO"`
	Disposition       *string     `json:"disposition"`
	Outcome           *string     `json:"outcome"`
	Clinic            *string     `json:"clinic" validate:"omitempty,min=1"`
	Treatment         *string     `json:"treatment"`
	Promotion         *string     `json:"promotion"`
	FollowUpDate      *time.Time  `json:"follow_up_date"`
	DialerCampaignTag *string     `json:"dialer_campaign_tag"`
}

// Empty reports whether the update touches no column.
func (u *CaseUpdate) Empty() bool {
	return u.AssignedTo == nil && u.FirstName == nil && u.LastName == nil &&
		u.Phone == nil && u.HomePhone == nil && u.CellPhone == nil && u.Email == nil &&
		u.Channel == nil && u.Origin == nil && u.Status == nil && u.Disposition == nil &&
		u.Outcome == nil && u.Clinic == nil && u.Treatment == nil && u.Promotion == nil &&
		u.FollowUpDate == nil && u.DialerCampaignTag == nil
}

type CaseFilters struct {
	Search     string     `json:"search,omitempty"`
	Status     string     `json:"status,omitempty" validate:"omitempty,oneof=IN_CORSO CHIUSO APPUNTAMENTO"`
	Channel    string     `json:"channel,omitempty" validate:"omitempty,oneof=WEB FACEBOOK INFLUENCER"`
	AssignedTo string     `json:"assigned_to,omitempty"`
	DateFrom   *time.Time `json:"date_from,omitempty"`
	DateTo     *time.Time `json:"date_to,omitempty"`
}

// ExportRow is a case joined with the display name of its assignee.
type ExportRow struct {
	Case
	AssignedName string
}

type Note struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	CaseID    int64     `json:"case_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
}

type DialerLead struct {
	RecordID  int64  `json:"record_id"`
	PhoneE164 string `json:"phone_e164"`
}

// LookupResult is the screen-pop payload for a matched inbound call.
type LookupResult struct {
	Case         *Case
	MatchedPhone string
	ScreenPopURL string
}
