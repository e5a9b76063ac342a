package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/counsel_backend/internal/repo"
	"github.com/Alijeyrad/counsel_backend/internal/repo/repotest"
	"github.com/Alijeyrad/counsel_backend/pkg/authorize"
	"github.com/Alijeyrad/counsel_backend/pkg/authorize/authorizetest"
)

func TestMe(t *testing.T) {
	store := repotest.New()
	svc := New(store, nil)
	ctx := context.Background()

	client := store.SeedClient("sara", true, time.Now())
	proUser, pro := store.SeedProfessional("dr-rahimi", repo.RoleCounselor, true)

	me, err := svc.Me(ctx, client.ID)
	require.NoError(t, err)
	require.NotNil(t, me.IsStudent)
	assert.True(t, *me.IsStudent)
	assert.Nil(t, me.Professional)

	me, err = svc.Me(ctx, proUser.ID)
	require.NoError(t, err)
	assert.Nil(t, me.IsStudent)
	require.NotNil(t, me.Professional)
	assert.Equal(t, pro.ID, me.Professional.ID)

	_, err = svc.Me(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCreate(t *testing.T) {
	store := repotest.New()
	auth := authorizetest.New(t)
	svc := New(store, auth)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateRequest{
		FullName:     "  Dr. Karimi ",
		Phone:        "0912 123 4567",
		Role:         repo.RolePsychiatrist,
		SessionPrice: 2_000_000,
	})
	require.NoError(t, err)
	assert.Equal(t, "Dr. Karimi", p.FullName)
	require.NotNil(t, p.Phone)
	assert.Equal(t, "+989121234567", *p.Phone)
	require.NotNil(t, p.Professional)
	assert.Equal(t, repo.RolePsychiatrist, p.Professional.Kind)
	assert.True(t, p.Professional.IsAvailable)

	ok, err := auth.Enforce(ctx, authorize.GroupSubject(p.ID.String()), authorize.DomainSys, authorize.ResourceSchedule, authorize.ActionUpdate)
	require.NoError(t, err)
	assert.True(t, ok)

	c, err := svc.Create(ctx, CreateRequest{FullName: "Sara", Email: "Sara@Example.com", Role: repo.RoleClient, IsStudent: true})
	require.NoError(t, err)
	assert.Equal(t, "sara@example.com", *c.Email)
	require.NotNil(t, c.IsStudent)
	assert.True(t, *c.IsStudent)

	_, err = svc.Create(ctx, CreateRequest{FullName: "Other", Phone: "+989121234567", Role: repo.RoleClient})
	assert.ErrorIs(t, err, ErrContactInUse)
}

func TestCreateValidation(t *testing.T) {
	svc := New(repotest.New(), nil)

	tests := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{"empty name", CreateRequest{FullName: " ", Email: "a@b.co", Role: repo.RoleClient}, ErrInvalidFullName},
		{"bad role", CreateRequest{FullName: "A", Email: "a@b.co", Role: "root"}, ErrInvalidRole},
		{"student counselor", CreateRequest{FullName: "A", Email: "a@b.co", Role: repo.RoleCounselor, IsStudent: true}, ErrStudentNotProvided},
		{"negative price", CreateRequest{FullName: "A", Email: "a@b.co", Role: repo.RoleCounselor, SessionPrice: -1}, ErrInvalidPrice},
		{"bad email", CreateRequest{FullName: "A", Email: "not-an-email", Role: repo.RoleClient}, ErrInvalidEmail},
		{"bad phone", CreateRequest{FullName: "A", Phone: "12", Role: repo.RoleClient}, ErrInvalidPhone},
		{"no contact", CreateRequest{FullName: "A", Role: repo.RoleClient}, ErrContactRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreateRollsBackOnProfileFailure(t *testing.T) {
	store := repotest.New()
	store.FailOn("UpsertClientProfile", errors.New("disk full"))
	svc := New(store, nil)

	_, err := svc.Create(context.Background(), CreateRequest{FullName: "A", Email: "a@b.co", Role: repo.RoleClient})
	require.Error(t, err)

	// The email is free again after the rollback.
	store.FailOn("UpsertClientProfile", nil)
	_, err = svc.Create(context.Background(), CreateRequest{FullName: "A", Email: "a@b.co", Role: repo.RoleClient})
	require.NoError(t, err)
}
