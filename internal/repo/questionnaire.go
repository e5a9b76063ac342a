package repo

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

var questionnaireColumns = []string{
	"id", "user_id", "kind", "answers", "total_score", "severity", "risk_flag", "created_at",
}

func (c *Client) CreateQuestionnaireResponse(ctx context.Context, r *QuestionnaireResponse) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.CreatedAt = time.Now().UTC()

	q, args := pg().Insert("questionnaire_responses").
		Columns(questionnaireColumns...).
		Values(r.ID, r.UserID, r.Kind, r.Answers, r.TotalScore, r.Severity, r.RiskFlag, r.CreatedAt).
		Query()
	if _, err := c.exec(ctx, q, args); err != nil {
		return fmt.Errorf("create questionnaire response: %w", err)
	}
	return nil
}

func (c *Client) ListQuestionnaireResponses(ctx context.Context, userID uuid.UUID, kind string) ([]QuestionnaireResponse, error) {
	q, args := pg().Select(questionnaireColumns...).
		From(entsql.Table("questionnaire_responses")).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("kind", kind))).
		OrderBy(entsql.Desc("created_at")).
		Query()

	var out []QuestionnaireResponse
	err := c.query(ctx, q, args, func(rows *entsql.Rows) error {
		var r QuestionnaireResponse
		if err := rows.Scan(&r.ID, &r.UserID, &r.Kind, &r.Answers, &r.TotalScore, &r.Severity,
			&r.RiskFlag, &r.CreatedAt); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list questionnaire responses: %w", err)
	}
	return out, nil
}
