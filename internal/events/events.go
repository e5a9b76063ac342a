// Package events defines the domain events emitted after a booking,
// cancellation or platform-fee payment commits, and the publishers that
// deliver them to the notification workers.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	subjectPrefix = "counsel."

	SubjectSessionBooked    = subjectPrefix + "session.booked"
	SubjectSessionCancelled = subjectPrefix + "session.cancelled"
	SubjectPlatformFeePaid  = subjectPrefix + "payment.platform_fee.paid"

	// SubjectAll matches every subject above.
	SubjectAll = subjectPrefix + ">"
)

type Event interface {
	Subject() string
}

type SessionBooked struct {
	SessionID          uuid.UUID `json:"session_id"`
	ClientUserID       uuid.UUID `json:"client_user_id"`
	ProfessionalID     uuid.UUID `json:"professional_id"`
	ProfessionalUserID uuid.UUID `json:"professional_user_id"`
	ProfessionalName   string    `json:"professional_name"`
	Date               string    `json:"date"`
	Time               string    `json:"time"`
	Price              int64     `json:"price"`
}

func (SessionBooked) Subject() string { return SubjectSessionBooked }

type SessionCancelled struct {
	SessionID          uuid.UUID `json:"session_id"`
	ClientUserID       uuid.UUID `json:"client_user_id"`
	ProfessionalID     uuid.UUID `json:"professional_id"`
	ProfessionalUserID uuid.UUID `json:"professional_user_id"`
	ProfessionalName   string    `json:"professional_name"`
	Date               string    `json:"date"`
	Time               string    `json:"time"`
	CancelledBy        uuid.UUID `json:"cancelled_by"`
}

func (SessionCancelled) Subject() string { return SubjectSessionCancelled }

type PlatformFeePaid struct {
	PaymentID  uuid.UUID `json:"payment_id"`
	UserID     uuid.UUID `json:"user_id"`
	Amount     int64     `json:"amount"`
	RefID      int64     `json:"ref_id"`
	ValidUntil time.Time `json:"valid_until"`
}

func (PlatformFeePaid) Subject() string { return SubjectPlatformFeePaid }

// Decode turns a wire payload back into the event registered for subject.
func Decode(subject string, data []byte) (Event, error) {
	var ev Event
	switch subject {
	case SubjectSessionBooked:
		var e SessionBooked
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", subject, err)
		}
		ev = e
	case SubjectSessionCancelled:
		var e SessionCancelled
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", subject, err)
		}
		ev = e
	case SubjectPlatformFeePaid:
		var e PlatformFeePaid
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", subject, err)
		}
		ev = e
	default:
		return nil, fmt.Errorf("unknown event subject %q", subject)
	}
	return ev, nil
}
