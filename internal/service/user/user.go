package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"

	"github.com/Alijeyrad/counsel_backend/internal/repo"
	"github.com/Alijeyrad/counsel_backend/pkg/authorize"
	"github.com/Alijeyrad/counsel_backend/pkg/sms"
)

type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	GetUser(ctx context.Context, id uuid.UUID) (*repo.User, error)
	CreateUser(ctx context.Context, u *repo.User) error
	GetClientProfile(ctx context.Context, userID uuid.UUID) (*repo.ClientProfile, error)
	UpsertClientProfile(ctx context.Context, p *repo.ClientProfile) error
	GetProfessionalByUserID(ctx context.Context, userID uuid.UUID) (*repo.Professional, error)
	CreateProfessional(ctx context.Context, p *repo.Professional) error
}

// Profile is the caller's own view of their account.
type Profile struct {
	*repo.User
	IsStudent    *bool              `json:"is_student,omitempty"`
	Professional *repo.Professional `json:"professional,omitempty"`
}

type CreateRequest struct {
	FullName     string
	Email        string
	Phone        string
	Role         repo.Role
	IsStudent    bool
	SessionPrice int64
}

type Service interface {
	GetByID(ctx context.Context, id uuid.UUID) (*repo.User, error)
	Me(ctx context.Context, id uuid.UUID) (*Profile, error)
	Create(ctx context.Context, req CreateRequest) (*Profile, error)
}

type UserService struct {
	store     Store
	authorize authorize.IAuthorization
}

func New(store Store, authz authorize.IAuthorization) *UserService {
	return &UserService{
		store:     store,
		authorize: authz,
	}
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*repo.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

// Me returns the user together with the profile matching their role.
func (s *UserService) Me(ctx context.Context, id uuid.UUID) (*Profile, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &Profile{User: u}

	switch {
	case u.Role == repo.RoleClient:
		cp, err := s.store.GetClientProfile(ctx, id)
		switch {
		case err == nil:
			out.IsStudent = &cp.IsStudent
		case !repo.IsNotFound(err):
			return nil, fmt.Errorf("failed to query client profile: %w", err)
		}
	case u.Role.IsProfessional():
		p, err := s.store.GetProfessionalByUserID(ctx, id)
		switch {
		case err == nil:
			out.Professional = p
		case !repo.IsNotFound(err):
			return nil, fmt.Errorf("failed to query professional: %w", err)
		}
	}
	return out, nil
}

// Create registers a user, the profile of their role and their RBAC role
// grouping in one transaction.
func (s *UserService) Create(ctx context.Context, req CreateRequest) (*Profile, error) {
	u, err := validate(req)
	if err != nil {
		return nil, err
	}

	out := &Profile{User: u}
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		if err := s.store.CreateUser(ctx, u); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return ErrContactInUse
			}
			return fmt.Errorf("create user: %w", err)
		}

		switch {
		case u.Role == repo.RoleClient:
			cp := &repo.ClientProfile{UserID: u.ID, IsStudent: req.IsStudent}
			if err := s.store.UpsertClientProfile(ctx, cp); err != nil {
				return fmt.Errorf("create client profile: %w", err)
			}
			out.IsStudent = &cp.IsStudent
		case u.Role.IsProfessional():
			p := &repo.Professional{
				UserID:       u.ID,
				Kind:         u.Role,
				DisplayName:  u.FullName,
				IsAvailable:  true,
				SessionPrice: req.SessionPrice,
			}
			if err := s.store.CreateProfessional(ctx, p); err != nil {
				return fmt.Errorf("create professional: %w", err)
			}
			out.Professional = p
		}

		if s.authorize != nil {
			if err := authorize.AssignPlatformRole(ctx, s.authorize, u.ID.String(), string(u.Role)); err != nil {
				return fmt.Errorf("assign role: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "user created", "user_id", u.ID, "role", u.Role)
	return out, nil
}

func validate(req CreateRequest) (*repo.User, error) {
	name := strings.TrimSpace(req.FullName)
	if n := utf8.RuneCountInString(name); n < 1 || n > 100 {
		return nil, ErrInvalidFullName
	}
	if !req.Role.Valid() {
		return nil, ErrInvalidRole
	}
	if req.IsStudent && req.Role != repo.RoleClient {
		return nil, ErrStudentNotProvided
	}
	if req.SessionPrice < 0 {
		return nil, ErrInvalidPrice
	}

	u := &repo.User{FullName: name, Role: req.Role}

	if e := strings.TrimSpace(req.Email); e != "" {
		addr, err := mail.ParseAddress(e)
		if err != nil || addr.Address != e {
			return nil, ErrInvalidEmail
		}
		e = strings.ToLower(e)
		u.Email = &e
	}
	if p := strings.TrimSpace(req.Phone); p != "" {
		phone, err := normalizePhone(p)
		if err != nil {
			return nil, err
		}
		u.Phone = &phone
	}
	if u.Email == nil && u.Phone == nil {
		return nil, ErrContactRequired
	}
	return u, nil
}

// normalizePhone stores numbers in E.164 so uniqueness is format-agnostic.
func normalizePhone(raw string) (string, error) {
	num, err := phonenumbers.Parse(raw, sms.DefaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidPhone
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
