package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/counsel_backend/internal/events"
	"github.com/Alijeyrad/counsel_backend/internal/repo"
	"github.com/Alijeyrad/counsel_backend/pkg/zarinpal"
)

// Store is the persistence the platform fee flow needs.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreatePlatformPayment(ctx context.Context, p *repo.PlatformPayment) error
	LockPlatformPaymentByAuthority(ctx context.Context, authority string) (*repo.PlatformPayment, error)
	UpdatePlatformPayment(ctx context.Context, p *repo.PlatformPayment) error
	LatestPaidPlatformPayment(ctx context.Context, userID uuid.UUID) (*repo.PlatformPayment, error)
}

// Gateway is implemented by *zarinpal.Client.
type Gateway interface {
	RequestPayment(ctx context.Context, amount int64, desc string) (*zarinpal.Payment, error)
	VerifyPayment(ctx context.Context, authority string, amount int64) (*zarinpal.Verification, error)
}

type Config struct {
	Amount int64
	Period time.Duration
	Now    func() time.Time
}

// Status reports whether the platform fee covers the current moment.
type Status struct {
	Paid       bool       `json:"paid"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
	Amount     int64      `json:"amount"`
}

type Service interface {
	Initiate(ctx context.Context, userID uuid.UUID) (payURL string, err error)
	Verify(ctx context.Context, authority, status string) (*repo.PlatformPayment, error)
	Status(ctx context.Context, userID uuid.UUID) (*Status, error)
}

type paymentService struct {
	store     Store
	gateway   Gateway
	publisher events.Publisher
	cfg       Config
}

func New(store Store, gateway Gateway, publisher events.Publisher, cfg Config) Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &paymentService{store: store, gateway: gateway, publisher: publisher, cfg: cfg}
}

func (s *paymentService) Initiate(ctx context.Context, userID uuid.UUID) (string, error) {
	st, err := s.Status(ctx, userID)
	if err != nil {
		return "", err
	}
	if st.Paid {
		return "", ErrAlreadyPaid
	}

	p, err := s.gateway.RequestPayment(ctx, s.cfg.Amount, "Counsel platform fee")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}

	if err := s.store.CreatePlatformPayment(ctx, &repo.PlatformPayment{
		UserID:    userID,
		Amount:    s.cfg.Amount,
		Authority: p.Authority,
		Status:    repo.PaymentPending,
	}); err != nil {
		return "", fmt.Errorf("create platform payment: %w", err)
	}

	return p.PayURL, nil
}

// Verify handles the gateway callback. A replayed callback for a payment that
// is already paid returns the stored record without calling the gateway.
func (s *paymentService) Verify(ctx context.Context, authority, status string) (*repo.PlatformPayment, error) {
	var (
		out       *repo.PlatformPayment
		published bool
		failed    bool
	)

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.store.LockPlatformPaymentByAuthority(ctx, authority)
		if err != nil {
			if repo.IsNotFound(err) {
				return ErrPaymentNotFound
			}
			return fmt.Errorf("lock platform payment: %w", err)
		}
		out = p

		switch p.Status {
		case repo.PaymentPaid:
			return nil
		case repo.PaymentFailed:
			return ErrPaymentFailed
		}

		if status != "OK" {
			p.Status = repo.PaymentFailed
			if err := s.store.UpdatePlatformPayment(ctx, p); err != nil {
				return fmt.Errorf("update platform payment: %w", err)
			}
			failed = true
			return nil
		}

		v, err := s.gateway.VerifyPayment(ctx, authority, p.Amount)
		if err != nil {
			p.Status = repo.PaymentFailed
			if uerr := s.store.UpdatePlatformPayment(ctx, p); uerr != nil {
				return fmt.Errorf("update platform payment: %w", uerr)
			}
			slog.Warn("platform fee verification failed", "authority", authority, "error", err)
			failed = true
			return nil
		}

		paidAt := s.cfg.Now().UTC()
		p.Status = repo.PaymentPaid
		p.RefID = &v.RefID
		p.PaidAt = &paidAt
		if err := s.store.UpdatePlatformPayment(ctx, p); err != nil {
			return fmt.Errorf("update platform payment: %w", err)
		}
		published = true
		return nil
	})

	if err != nil {
		return nil, err
	}
	// The failed state is committed before the caller sees the error.
	if failed {
		return nil, ErrPaymentFailed
	}

	if published {
		s.publish(ctx, out)
	}
	return out, nil
}

func (s *paymentService) publish(ctx context.Context, p *repo.PlatformPayment) {
	if s.publisher == nil {
		return
	}
	ev := events.PlatformFeePaid{
		PaymentID:  p.ID,
		UserID:     p.UserID,
		Amount:     p.Amount,
		ValidUntil: p.PaidAt.Add(s.cfg.Period),
	}
	if p.RefID != nil {
		ev.RefID = *p.RefID
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		slog.Error("publish platform fee event", "payment_id", p.ID, "error", err)
	}
}

func (s *paymentService) Status(ctx context.Context, userID uuid.UUID) (*Status, error) {
	st := &Status{Amount: s.cfg.Amount}

	p, err := s.store.LatestPaidPlatformPayment(ctx, userID)
	if err != nil {
		if repo.IsNotFound(err) {
			return st, nil
		}
		return nil, fmt.Errorf("latest platform payment: %w", err)
	}
	if p.PaidAt == nil {
		return st, nil
	}

	until := p.PaidAt.Add(s.cfg.Period)
	st.PaidAt = p.PaidAt
	st.ValidUntil = &until
	st.Paid = s.cfg.Now().Before(until)
	return st, nil
}
