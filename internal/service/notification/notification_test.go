package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/counsel_backend/internal/events"
	"github.com/Alijeyrad/counsel_backend/internal/repo"
	"github.com/Alijeyrad/counsel_backend/internal/repo/repotest"
	"github.com/Alijeyrad/counsel_backend/pkg/email"
)

type fakeMailer struct {
	sent []email.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg email.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type textMessage struct {
	phone  string
	params map[string]string
}

type fakeSMS struct {
	sent []textMessage
}

func (s *fakeSMS) SendTemplate(_ context.Context, phone string, params map[string]string) error {
	s.sent = append(s.sent, textMessage{phone: phone, params: params})
	return nil
}

func TestListAndMarkRead(t *testing.T) {
	store := repotest.New()
	svc := New(store)
	ctx := context.Background()
	user := uuid.New()
	other := uuid.New()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		n, err := svc.Create(ctx, CreateRequest{UserID: user, Type: TypeSessionBooked, Title: "t"})
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}
	_, err := svc.Create(ctx, CreateRequest{UserID: other, Type: TypeSessionBooked, Title: "t"})
	require.NoError(t, err)

	all, err := svc.List(ctx, user, false, 1, 20)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID, "newest first")

	paged, err := svc.List(ctx, user, false, 2, 2)
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, ids[0], paged[0].ID)

	require.NoError(t, svc.MarkRead(ctx, ids[1], user))
	assert.ErrorIs(t, svc.MarkRead(ctx, ids[1], other), ErrNotFound)
	assert.ErrorIs(t, svc.MarkRead(ctx, uuid.New(), user), ErrNotFound)

	unread, err := svc.List(ctx, user, true, 1, 20)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	n, err := svc.MarkAllRead(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	unread, err = svc.List(ctx, user, true, 1, 20)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

type dispatcherFixture struct {
	store   *repotest.Store
	mailer  *fakeMailer
	sms     *fakeSMS
	d       *Dispatcher
	client  repo.User
	proUser repo.User
	pro     repo.Professional
}

func newDispatcherFixture() *dispatcherFixture {
	store := repotest.New()
	f := &dispatcherFixture{store: store, mailer: &fakeMailer{}, sms: &fakeSMS{}}
	f.client = store.SeedClient("sara", true, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	f.proUser, f.pro = store.SeedProfessional("dr-karimi", repo.RoleCounselor, true)
	f.d = NewDispatcher(New(store), store, f.mailer, f.sms, "Counsel")
	return f
}

func TestDispatcherSessionBooked(t *testing.T) {
	f := newDispatcherFixture()

	err := f.d.Handle(context.Background(), events.SessionBooked{
		SessionID:          uuid.New(),
		ClientUserID:       f.client.ID,
		ProfessionalID:     f.pro.ID,
		ProfessionalUserID: f.proUser.ID,
		ProfessionalName:   f.pro.DisplayName,
		Date:               "2026-10-25",
		Time:               "10:00",
	})
	require.NoError(t, err)

	clientNotes := f.store.Notifications(f.client.ID)
	require.Len(t, clientNotes, 1)
	assert.Equal(t, TypeSessionBooked, clientNotes[0].Type)
	assert.Equal(t, "2026-10-25", clientNotes[0].Data["date"])
	require.Len(t, f.store.Notifications(f.proUser.ID), 1)

	// only the client has an email address
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, []string{*f.client.Email}, f.mailer.sent[0].To)
	assert.Empty(t, f.sms.sent)
}

func TestDispatcherSessionCancelledTextsOtherParty(t *testing.T) {
	f := newDispatcherFixture()
	ev := events.SessionCancelled{
		SessionID:          uuid.New(),
		ClientUserID:       f.client.ID,
		ProfessionalID:     f.pro.ID,
		ProfessionalUserID: f.proUser.ID,
		ProfessionalName:   f.pro.DisplayName,
		Date:               "2026-10-25",
		Time:               "10:00",
		CancelledBy:        f.client.ID,
	}

	require.NoError(t, f.d.Handle(context.Background(), ev))

	require.Len(t, f.sms.sent, 1)
	assert.Equal(t, *f.proUser.Phone, f.sms.sent[0].phone)
	assert.Equal(t, "10:00", f.sms.sent[0].params["time"])
	assert.Len(t, f.store.Notifications(f.client.ID), 1)
	assert.Len(t, f.store.Notifications(f.proUser.ID), 1)

	// professional cancels: the client has no phone, nothing is texted
	ev.CancelledBy = f.proUser.ID
	require.NoError(t, f.d.Handle(context.Background(), ev))
	assert.Len(t, f.sms.sent, 1)
}

func TestDispatcherDeliveryFailureIsNotFatal(t *testing.T) {
	f := newDispatcherFixture()
	f.mailer.err = errors.New("smtp down")

	err := f.d.Handle(context.Background(), events.SessionBooked{
		ClientUserID:       f.client.ID,
		ProfessionalUserID: f.proUser.ID,
		Date:               "2026-10-25",
		Time:               "10:00",
	})
	require.NoError(t, err)
	assert.Len(t, f.store.Notifications(f.client.ID), 1)
}

func TestDispatcherStoreFailure(t *testing.T) {
	f := newDispatcherFixture()
	boom := errors.New("db down")
	f.store.FailOn("CreateNotification", boom)

	err := f.d.Handle(context.Background(), events.PlatformFeePaid{
		UserID:     f.client.ID,
		ValidUntil: time.Date(2026, 11, 18, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, boom)
}

func TestDispatcherPlatformFeePaid(t *testing.T) {
	f := newDispatcherFixture()

	err := f.d.Handle(context.Background(), events.PlatformFeePaid{
		PaymentID:  uuid.New(),
		UserID:     f.client.ID,
		RefID:      4242,
		ValidUntil: time.Date(2026, 11, 18, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	notes := f.store.Notifications(f.client.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, TypePlatformFeePaid, notes[0].Type)
	require.NotNil(t, notes[0].Body)
	assert.Contains(t, *notes[0].Body, "2026-11-18")
}
