package psychtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/counsel_backend/internal/repo"
)

// KindPHQ9 is the Patient Health Questionnaire depression screen.
const KindPHQ9 = "phq9"

const (
	phq9Items    = 9
	maxItemScore = 3
)

var (
	ErrAnswerCount = errors.New("phq-9 requires exactly 9 answers")
	ErrAnswerRange = errors.New("each answer must be between 0 and 3")
)

// Severity bands of the PHQ-9 total score.
const (
	SeverityMinimal          = "minimal"
	SeverityMild             = "mild"
	SeverityModerate         = "moderate"
	SeverityModeratelySevere = "moderately_severe"
	SeveritySevere           = "severe"
)

type Store interface {
	CreateQuestionnaireResponse(ctx context.Context, r *repo.QuestionnaireResponse) error
	ListQuestionnaireResponses(ctx context.Context, userID uuid.UUID, kind string) ([]repo.QuestionnaireResponse, error)
}

// Cipher seals the raw answers at rest.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(encoded string) (string, error)
}

type Result struct {
	ID         uuid.UUID `json:"id"`
	Answers    []int     `json:"answers,omitempty"`
	TotalScore int       `json:"total_score"`
	Severity   string    `json:"severity"`
	RiskFlag   bool      `json:"risk_flag"`
	CreatedAt  time.Time `json:"created_at"`
}

type Service interface {
	SubmitPHQ9(ctx context.Context, userID uuid.UUID, answers []int) (*Result, error)
	ListPHQ9(ctx context.Context, userID uuid.UUID) ([]Result, error)
}

type service struct {
	store  Store
	cipher Cipher
}

func New(store Store, cipher Cipher) Service {
	return &service{store: store, cipher: cipher}
}

// Score validates PHQ-9 answers and returns the total, its band and whether
// item 9 (thoughts of self-harm) was answered above zero.
func Score(answers []int) (total int, severity string, risk bool, err error) {
	if len(answers) != phq9Items {
		return 0, "", false, ErrAnswerCount
	}
	for _, a := range answers {
		if a < 0 || a > maxItemScore {
			return 0, "", false, ErrAnswerRange
		}
		total += a
	}
	return total, severityOf(total), answers[phq9Items-1] > 0, nil
}

func severityOf(total int) string {
	switch {
	case total <= 4:
		return SeverityMinimal
	case total <= 9:
		return SeverityMild
	case total <= 14:
		return SeverityModerate
	case total <= 19:
		return SeverityModeratelySevere
	default:
		return SeveritySevere
	}
}

func (s *service) SubmitPHQ9(ctx context.Context, userID uuid.UUID, answers []int) (*Result, error) {
	total, severity, risk, err := Score(answers)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}
	sealed, err := s.cipher.Encrypt(string(raw))
	if err != nil {
		return nil, fmt.Errorf("encrypt answers: %w", err)
	}

	r := &repo.QuestionnaireResponse{
		UserID:     userID,
		Kind:       KindPHQ9,
		Answers:    sealed,
		TotalScore: total,
		Severity:   severity,
		RiskFlag:   risk,
	}
	if err := s.store.CreateQuestionnaireResponse(ctx, r); err != nil {
		return nil, fmt.Errorf("create questionnaire response: %w", err)
	}

	if risk {
		slog.Warn("phq-9 self-harm item flagged", "user_id", userID, "response_id", r.ID)
	}

	return &Result{
		ID:         r.ID,
		Answers:    append([]int(nil), answers...),
		TotalScore: total,
		Severity:   severity,
		RiskFlag:   risk,
		CreatedAt:  r.CreatedAt,
	}, nil
}

// ListPHQ9 returns the user's responses, newest first, with answers decrypted.
func (s *service) ListPHQ9(ctx context.Context, userID uuid.UUID) ([]Result, error) {
	rows, err := s.store.ListQuestionnaireResponses(ctx, userID, KindPHQ9)
	if err != nil {
		return nil, fmt.Errorf("list questionnaire responses: %w", err)
	}

	out := make([]Result, 0, len(rows))
	for _, r := range rows {
		res := Result{
			ID:         r.ID,
			TotalScore: r.TotalScore,
			Severity:   r.Severity,
			RiskFlag:   r.RiskFlag,
			CreatedAt:  r.CreatedAt,
		}
		plain, err := s.cipher.Decrypt(r.Answers)
		if err != nil {
			return nil, fmt.Errorf("decrypt answers: %w", err)
		}
		if err := json.Unmarshal([]byte(plain), &res.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
		out = append(out, res)
	}
	return out, nil
}
