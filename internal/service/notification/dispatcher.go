package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/counsel_backend/internal/events"
	"github.com/Alijeyrad/counsel_backend/internal/repo"
	"github.com/Alijeyrad/counsel_backend/pkg/email"
)

// UserLookup resolves contact details of notification recipients.
type UserLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (*repo.User, error)
}

// Mailer is implemented by *email.Client.
type Mailer interface {
	Send(ctx context.Context, m email.Message) error
}

// SMSSender is implemented by *sms.Client.
type SMSSender interface {
	SendTemplate(ctx context.Context, phoneNumber string, params map[string]string) error
}

// Dispatcher turns domain events into notification rows, emails and
// cancellation SMS. Delivery failures are logged; only a failure to store
// the in-app notification is returned.
type Dispatcher struct {
	svc     Service
	users   UserLookup
	mailer  Mailer
	sms     SMSSender
	appName string
}

func NewDispatcher(svc Service, users UserLookup, mailer Mailer, sms SMSSender, appName string) *Dispatcher {
	return &Dispatcher{svc: svc, users: users, mailer: mailer, sms: sms, appName: appName}
}

func (d *Dispatcher) Handle(ctx context.Context, ev events.Event) error {
	switch e := ev.(type) {
	case events.SessionBooked:
		return d.sessionBooked(ctx, e)
	case events.SessionCancelled:
		return d.sessionCancelled(ctx, e)
	case events.PlatformFeePaid:
		return d.platformFeePaid(ctx, e)
	default:
		slog.Warn("notification: unhandled event", "subject", ev.Subject())
		return nil
	}
}

func (d *Dispatcher) sessionBooked(ctx context.Context, e events.SessionBooked) error {
	client := d.lookup(ctx, e.ClientUserID)
	data := map[string]any{
		"session_id": e.SessionID.String(),
		"date":       e.Date,
		"time":       e.Time,
	}

	var errs []error
	errs = append(errs, d.store(ctx, CreateRequest{
		UserID: e.ClientUserID,
		Type:   TypeSessionBooked,
		Title:  "Session booked",
		Body:   ptr(fmt.Sprintf("Your session with %s on %s at %s is confirmed.", e.ProfessionalName, e.Date, e.Time)),
		Data:   data,
	}))
	errs = append(errs, d.store(ctx, CreateRequest{
		UserID: e.ProfessionalUserID,
		Type:   TypeSessionBooked,
		Title:  "New session booked",
		Body:   ptr(fmt.Sprintf("%s booked a session on %s at %s.", displayName(client), e.Date, e.Time)),
		Data:   data,
	}))

	pro := d.lookup(ctx, e.ProfessionalUserID)
	d.mail(ctx, client, email.BuildSessionBookedEmail, e.ProfessionalName, e.Date, e.Time)
	d.mail(ctx, pro, email.BuildSessionBookedEmail, displayName(client), e.Date, e.Time)

	return errors.Join(errs...)
}

func (d *Dispatcher) sessionCancelled(ctx context.Context, e events.SessionCancelled) error {
	client := d.lookup(ctx, e.ClientUserID)
	pro := d.lookup(ctx, e.ProfessionalUserID)
	data := map[string]any{
		"session_id":   e.SessionID.String(),
		"date":         e.Date,
		"time":         e.Time,
		"cancelled_by": e.CancelledBy.String(),
	}

	var errs []error
	errs = append(errs, d.store(ctx, CreateRequest{
		UserID: e.ClientUserID,
		Type:   TypeSessionCancelled,
		Title:  "Session cancelled",
		Body:   ptr(fmt.Sprintf("Your session with %s on %s at %s was cancelled.", e.ProfessionalName, e.Date, e.Time)),
		Data:   data,
	}))
	errs = append(errs, d.store(ctx, CreateRequest{
		UserID: e.ProfessionalUserID,
		Type:   TypeSessionCancelled,
		Title:  "Session cancelled",
		Body:   ptr(fmt.Sprintf("The session with %s on %s at %s was cancelled.", displayName(client), e.Date, e.Time)),
		Data:   data,
	}))

	d.mail(ctx, client, email.BuildSessionCancelledEmail, e.ProfessionalName, e.Date, e.Time)
	d.mail(ctx, pro, email.BuildSessionCancelledEmail, displayName(client), e.Date, e.Time)

	// The party who did not cancel gets a text message.
	other := client
	if e.CancelledBy == e.ClientUserID {
		other = pro
	}
	d.text(ctx, other, map[string]string{"date": e.Date, "time": e.Time})

	return errors.Join(errs...)
}

func (d *Dispatcher) platformFeePaid(ctx context.Context, e events.PlatformFeePaid) error {
	return d.store(ctx, CreateRequest{
		UserID: e.UserID,
		Type:   TypePlatformFeePaid,
		Title:  "Platform fee received",
		Body:   ptr(fmt.Sprintf("Your membership is active until %s.", e.ValidUntil.Format(time.DateOnly))),
		Data: map[string]any{
			"payment_id": e.PaymentID.String(),
			"ref_id":     e.RefID,
		},
	})
}

func (d *Dispatcher) store(ctx context.Context, req CreateRequest) error {
	if _, err := d.svc.Create(ctx, req); err != nil {
		return err
	}
	return nil
}

func (d *Dispatcher) lookup(ctx context.Context, id uuid.UUID) *repo.User {
	u, err := d.users.GetUser(ctx, id)
	if err != nil {
		slog.Warn("notification: recipient lookup failed", "user_id", id, "error", err)
		return nil
	}
	return u
}

func (d *Dispatcher) mail(ctx context.Context, to *repo.User, build func(email.SessionEmailData) email.Message, counterpart, date, clock string) {
	if d.mailer == nil || to == nil || to.Email == nil || *to.Email == "" {
		return
	}
	msg := build(email.SessionEmailData{
		To:          *to.Email,
		Name:        to.FullName,
		Counterpart: counterpart,
		Date:        date,
		Time:        clock,
		AppName:     d.appName,
	})
	if err := d.mailer.Send(ctx, msg); err != nil {
		var disabled email.ErrDisabled
		if errors.As(err, &disabled) {
			return
		}
		slog.Error("notification: send email", "user_id", to.ID, "error", err)
	}
}

func (d *Dispatcher) text(ctx context.Context, to *repo.User, params map[string]string) {
	if d.sms == nil || to == nil || to.Phone == nil || *to.Phone == "" {
		return
	}
	if err := d.sms.SendTemplate(ctx, *to.Phone, params); err != nil {
		slog.Error("notification: send sms", "user_id", to.ID, "error", err)
	}
}

func displayName(u *repo.User) string {
	if u == nil || u.FullName == "" {
		return "A client"
	}
	return u.FullName
}

func ptr[T any](v T) *T { return &v }
