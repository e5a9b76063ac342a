package psychtest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/counsel_backend/internal/repo/repotest"
	"github.com/Alijeyrad/counsel_backend/pkg/crypto"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		answers  []int
		total    int
		severity string
		risk     bool
		err      error
	}{
		{name: "all zero", answers: []int{0, 0, 0, 0, 0, 0, 0, 0, 0}, total: 0, severity: SeverityMinimal},
		{name: "minimal upper", answers: []int{1, 1, 1, 1, 0, 0, 0, 0, 0}, total: 4, severity: SeverityMinimal},
		{name: "mild lower", answers: []int{1, 1, 1, 1, 1, 0, 0, 0, 0}, total: 5, severity: SeverityMild},
		{name: "moderate", answers: []int{2, 2, 2, 2, 2, 0, 0, 0, 0}, total: 10, severity: SeverityModerate},
		{name: "moderately severe", answers: []int{3, 3, 3, 3, 3, 0, 0, 0, 0}, total: 15, severity: SeverityModeratelySevere},
		{name: "severe with risk", answers: []int{3, 3, 3, 3, 3, 3, 2, 0, 1}, total: 21, severity: SeveritySevere, risk: true},
		{name: "max", answers: []int{3, 3, 3, 3, 3, 3, 3, 3, 3}, total: 27, severity: SeveritySevere, risk: true},
		{name: "too few", answers: []int{0, 0, 0}, err: ErrAnswerCount},
		{name: "out of range", answers: []int{0, 0, 0, 0, 4, 0, 0, 0, 0}, err: ErrAnswerRange},
		{name: "negative", answers: []int{0, -1, 0, 0, 0, 0, 0, 0, 0}, err: ErrAnswerRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, severity, risk, err := Score(tt.answers)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.total, total)
			assert.Equal(t, tt.severity, severity)
			assert.Equal(t, tt.risk, risk)
		})
	}
}

func TestSubmitAndListPHQ9(t *testing.T) {
	store := repotest.New()
	cipher, err := crypto.NewFieldCipher(testKeyHex, "questionnaire.answers")
	require.NoError(t, err)
	svc := New(store, cipher)
	ctx := context.Background()
	user := uuid.New()

	first, err := svc.SubmitPHQ9(ctx, user, []int{1, 1, 1, 1, 1, 1, 1, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, 8, first.TotalScore)
	assert.False(t, first.RiskFlag)

	second, err := svc.SubmitPHQ9(ctx, user, []int{2, 2, 2, 2, 2, 2, 2, 2, 1})
	require.NoError(t, err)
	assert.True(t, second.RiskFlag)

	stored, err := store.ListQuestionnaireResponses(ctx, user, KindPHQ9)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.NotContains(t, stored[0].Answers, "[2,2")

	list, err := svc.ListPHQ9(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, []int{2, 2, 2, 2, 2, 2, 2, 2, 1}, list[0].Answers)
	assert.Equal(t, SeverityModeratelySevere, list[0].Severity)

	other, err := svc.ListPHQ9(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSubmitRejectsInvalid(t *testing.T) {
	store := repotest.New()
	cipher, err := crypto.NewFieldCipher(testKeyHex, "questionnaire.answers")
	require.NoError(t, err)
	svc := New(store, cipher)

	_, err = svc.SubmitPHQ9(context.Background(), uuid.New(), []int{0, 0})
	assert.ErrorIs(t, err, ErrAnswerCount)

	list, err := store.ListQuestionnaireResponses(context.Background(), uuid.New(), KindPHQ9)
	require.NoError(t, err)
	assert.Empty(t, list)
}
