package repo

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/counsel_backend/pkg/util/dates"
)

// Role is the single platform role of a user.
type Role string

const (
	RoleClient       Role = "client"
	RoleCounselor    Role = "counselor"
	RolePsychiatrist Role = "psychiatrist"
	RoleAdmin        Role = "admin"
	RoleManagement   Role = "management"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleCounselor, RolePsychiatrist, RoleAdmin, RoleManagement:
		return true
	}
	return false
}

// IsProfessional reports whether the role can publish availability.
func (r Role) IsProfessional() bool {
	return r == RoleCounselor || r == RolePsychiatrist
}

// IsStaff reports whether the role may read any session.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleManagement
}

type User struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ClientProfile struct {
	UserID    uuid.UUID `json:"user_id"`
	IsStudent bool      `json:"is_student"`
}

type Professional struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	Kind         Role      `json:"kind"`
	DisplayName  string    `json:"display_name"`
	IsAvailable  bool      `json:"is_available"`
	SessionPrice int64     `json:"session_price"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TimeSlot is one bookable (professional, date, time) opportunity.
type TimeSlot struct {
	ID             uuid.UUID `json:"id"`
	ProfessionalID uuid.UUID `json:"professional_id"`
	Date           time.Time `json:"date"`
	Time           string    `json:"time"`
	IsBooked       bool      `json:"is_booked"`
	IsAvailable    bool      `json:"is_available"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Open reports whether the slot can be claimed by a booking.
func (s TimeSlot) Open() bool {
	return s.IsAvailable && !s.IsBooked
}

// MarshalJSON renders Date as YYYY-MM-DD, the form every request uses.
func (s TimeSlot) MarshalJSON() ([]byte, error) {
	type plain TimeSlot
	return json.Marshal(struct {
		plain
		Date string `json:"date"`
	}{plain(s), dates.Format(s.Date)})
}

// DayAvailability aggregates the slots of one date.
type DayAvailability struct {
	Date           time.Time
	TotalSlots     int
	AvailableSlots int
}

type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionConfirmed SessionStatus = "confirmed"
	SessionOngoing   SessionStatus = "ongoing"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionScheduled, SessionConfirmed, SessionOngoing, SessionCompleted, SessionCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

type Session struct {
	ID              uuid.UUID     `json:"id"`
	ClientUserID    uuid.UUID     `json:"client_user_id"`
	ProfessionalID  uuid.UUID     `json:"professional_id"`
	Date            time.Time     `json:"date"`
	Time            string        `json:"time"`
	DurationMinutes int           `json:"duration_minutes"`
	Price           int64         `json:"price"`
	Concerns        *string       `json:"concerns,omitempty"`
	Status          SessionStatus `json:"status"`
	CancelledAt     *time.Time    `json:"cancelled_at,omitempty"`
	CancelledBy     *uuid.UUID    `json:"cancelled_by,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

func (s Session) MarshalJSON() ([]byte, error) {
	type plain Session
	return json.Marshal(struct {
		plain
		Date string `json:"date"`
	}{plain(s), dates.Format(s.Date)})
}

// SessionFilter narrows ListSessions. Zero values are ignored.
type SessionFilter struct {
	ClientUserID   *uuid.UUID
	ProfessionalID *uuid.UUID
	Status         *SessionStatus
	From           *time.Time
	To             *time.Time
	Limit          int
	Offset         int
}

type Notification struct {
	ID        uuid.UUID      `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Body      *string        `json:"body,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	IsRead    bool           `json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type PlatformPayment struct {
	ID        uuid.UUID     `json:"id"`
	UserID    uuid.UUID     `json:"user_id"`
	Amount    int64         `json:"amount"`
	Authority string        `json:"authority"`
	Status    PaymentStatus `json:"status"`
	RefID     *int64        `json:"ref_id,omitempty"`
	PaidAt    *time.Time    `json:"paid_at,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type QuestionnaireResponse struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Kind       string    `json:"kind"`
	Answers    string    `json:"-"`
	TotalScore int       `json:"total_score"`
	Severity   string    `json:"severity"`
	RiskFlag   bool      `json:"risk_flag"`
	CreatedAt  time.Time `json:"created_at"`
}
