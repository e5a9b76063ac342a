package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/counsel_backend/internal/events"
	"github.com/Alijeyrad/counsel_backend/internal/events/eventstest"
	"github.com/Alijeyrad/counsel_backend/internal/repo"
	"github.com/Alijeyrad/counsel_backend/internal/repo/repotest"
	"github.com/Alijeyrad/counsel_backend/pkg/crypto"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

var tehran = time.FixedZone("IRST", 3*3600+1800)

type recordingCache struct {
	mu          sync.Mutex
	invalidated []uuid.UUID
}

func (c *recordingCache) InvalidateMonth(_ context.Context, id uuid.UUID, _ time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, id)
}

type fixture struct {
	store     *repotest.Store
	events    *eventstest.Recorder
	cache     *recordingCache
	svc       Service
	now       time.Time
	proUser   repo.User
	pro       repo.Professional
	client    repo.User
	student   repo.User
	slotDate  time.Time
	slotClock string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	now := time.Date(2026, 10, 19, 10, 0, 0, 0, tehran)
	store := repotest.New()
	rec := &eventstest.Recorder{}
	cache := &recordingCache{}
	cipher, err := crypto.NewFieldCipher(testKeyHex, "sessions.concerns")
	require.NoError(t, err)

	proUser, pro := store.SeedProfessional("dr-karimi", repo.RolePsychiatrist, true)
	f := &fixture{
		store:   store,
		events:  rec,
		cache:   cache,
		now:     now,
		proUser: proUser,
		pro:     pro,
		client:  store.SeedClient("ali", false, time.Date(2026, 1, 3, 9, 0, 0, 0, tehran)),
		student: store.SeedClient("mina", true, time.Date(2026, 3, 15, 12, 0, 0, 0, tehran)),

		slotDate:  time.Date(2026, 10, 25, 0, 0, 0, 0, time.UTC),
		slotClock: "10:00",
	}
	f.svc = New(store, rec, cache, cipher, Config{
		Location:               tehran,
		Now:                    func() time.Time { return f.now },
		FreeSessionsPerMonth:   4,
		StudentDiscountPercent: 20,
		CancellationNotice:     24 * time.Hour,
	})
	return f
}

func (f *fixture) openSlot(date time.Time, clock string) repo.TimeSlot {
	return f.store.SeedSlot(f.pro.ID, date, clock, true, false)
}

func (f *fixture) request(price int64) BookRequest {
	return BookRequest{
		ProfessionalID:  f.pro.ID,
		Date:            f.slotDate,
		Time:            f.slotClock,
		DurationMinutes: 50,
		Price:           price,
	}
}

func (f *fixture) slot(t *testing.T, date time.Time, clock string) repo.TimeSlot {
	t.Helper()
	s, err := f.store.LockTimeSlot(context.Background(), f.pro.ID, date, clock)
	require.NoError(t, err)
	return *s
}

// assertSlotInvariant checks that booked slots and live sessions match one to
// one.
func (f *fixture) assertSlotInvariant(t *testing.T) {
	t.Helper()
	type key struct {
		pro   uuid.UUID
		date  time.Time
		clock string
	}
	live := map[key]int{}
	for _, s := range f.store.Sessions() {
		if s.Status != repo.SessionCancelled {
			live[key{s.ProfessionalID, s.Date, s.Time}]++
		}
	}
	for k, n := range live {
		assert.Equal(t, 1, n, "one live session per slot %v", k)
	}
	for _, slot := range f.store.Slots() {
		k := key{slot.ProfessionalID, slot.Date, slot.Time}
		assert.Equal(t, slot.IsBooked, live[k] == 1, "slot %s %s booked flag", slot.Date.Format("2006-01-02"), slot.Time)
		delete(live, k)
	}
	assert.Empty(t, live, "every live session has a slot")
}

func TestBookPaidSession(t *testing.T) {
	f := newFixture(t)
	f.openSlot(f.slotDate, f.slotClock)
	ctx := context.Background()

	req := f.request(1_500_000)
	concerns := "panic attacks at work"
	req.Concerns = &concerns

	s, err := f.svc.Book(ctx, f.client.ID, req)
	require.NoError(t, err)

	assert.Equal(t, repo.SessionConfirmed, s.Status)
	assert.Equal(t, int64(1_500_000), s.Price)
	assert.Equal(t, f.client.ID, s.ClientUserID)
	require.NotNil(t, s.Concerns)
	assert.Equal(t, concerns, *s.Concerns)

	stored, err := f.store.GetSession(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Concerns)
	assert.NotEqual(t, concerns, *stored.Concerns, "concerns are encrypted at rest")

	slot := f.slot(t, f.slotDate, f.slotClock)
	assert.True(t, slot.IsBooked)
	assert.True(t, slot.IsAvailable)

	evs := f.events.Events()
	require.Len(t, evs, 1)
	booked, ok := evs[0].(events.SessionBooked)
	require.True(t, ok)
	assert.Equal(t, s.ID, booked.SessionID)
	assert.Equal(t, f.proUser.ID, booked.ProfessionalUserID)
	assert.Equal(t, []uuid.UUID{f.pro.ID}, f.cache.invalidated)

	f.assertSlotInvariant(t)
}

func TestBookStudentDiscount(t *testing.T) {
	f := newFixture(t)
	f.openSlot(f.slotDate, f.slotClock)

	s, err := f.svc.Book(context.Background(), f.student.ID, f.request(1_000_000))
	require.NoError(t, err)
	assert.Equal(t, int64(800_000), s.Price)
}

func TestBookPreconditionOrder(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fixture) BookRequest
		wantErr error
	}{
		{
			name: "unknown professional",
			setup: func(f *fixture) BookRequest {
				req := f.request(1000)
				req.ProfessionalID = uuid.New()
				return req
			},
			wantErr: ErrProfessionalNotFound,
		},
		{
			name: "professional not accepting wins over open slot",
			setup: func(f *fixture) BookRequest {
				f.openSlot(f.slotDate, f.slotClock)
				require.NoError(t, f.store.SetProfessionalAvailable(context.Background(), f.pro.ID, false))
				return f.request(1000)
			},
			wantErr: ErrProfessionalUnavailable,
		},
		{
			name:    "no slot row",
			setup:   func(f *fixture) BookRequest { return f.request(1000) },
			wantErr: ErrSlotNotAvailable,
		},
		{
			name: "slot not opened",
			setup: func(f *fixture) BookRequest {
				f.store.SeedSlot(f.pro.ID, f.slotDate, f.slotClock, false, false)
				return f.request(1000)
			},
			wantErr: ErrSlotNotAvailable,
		},
		{
			name: "slot already booked",
			setup: func(f *fixture) BookRequest {
				f.store.SeedSlot(f.pro.ID, f.slotDate, f.slotClock, true, true)
				return f.request(1000)
			},
			wantErr: ErrSlotNotAvailable,
		},
		{
			name: "free session for non-student",
			setup: func(f *fixture) BookRequest {
				f.openSlot(f.slotDate, f.slotClock)
				return f.request(0)
			},
			wantErr: ErrFreeSessionsStudentsOnly,
		},
		{
			name: "slot check precedes student check",
			setup: func(f *fixture) BookRequest {
				return f.request(0)
			},
			wantErr: ErrSlotNotAvailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := tt.setup(f)

			_, err := f.svc.Book(context.Background(), f.client.ID, req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.store.Sessions())
			assert.Empty(t, f.events.Events())
			f.assertSlotInvariant(t)
		})
	}
}

func TestBookValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.request(1000)
	req.DurationMinutes = 0
	_, err := f.svc.Book(ctx, f.client.ID, req)
	assert.ErrorIs(t, err, ErrInvalidDuration)

	req = f.request(-1)
	_, err = f.svc.Book(ctx, f.client.ID, req)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	req = f.request(1000)
	req.Time = "10"
	_, err = f.svc.Book(ctx, f.client.ID, req)
	assert.Error(t, err)

	req = f.request(1000)
	req.Date = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	req.Time = "09:00"
	_, err = f.svc.Book(ctx, f.client.ID, req)
	assert.ErrorIs(t, err, ErrSessionInPast)
}

func TestNonStudentFreeBookingLeavesSlotOpen(t *testing.T) {
	f := newFixture(t)
	f.openSlot(f.slotDate, f.slotClock)

	_, err := f.svc.Book(context.Background(), f.client.ID, f.request(0))
	require.ErrorIs(t, err, ErrFreeSessionsStudentsOnly)

	slot := f.slot(t, f.slotDate, f.slotClock)
	assert.False(t, slot.IsBooked)
}

func TestFreeQuotaExhausted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// student registered on the 15th: current period is [Oct 15, Nov 15)
	for i, clock := range []string{"09:00", "10:00", "11:00", "12:00"} {
		f.openSlot(f.slotDate, clock)
		req := f.request(0)
		req.Time = clock
		_, err := f.svc.Book(ctx, f.student.ID, req)
		require.NoError(t, err, "free booking %d", i+1)
	}

	f.openSlot(f.slotDate, "13:00")
	req := f.request(0)
	req.Time = "13:00"
	_, err := f.svc.Book(ctx, f.student.ID, req)
	assert.ErrorIs(t, err, ErrFreeQuotaExhausted)
	assert.False(t, f.slot(t, f.slotDate, "13:00").IsBooked)

	q, err := f.svc.RemainingStudentSessions(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, q.RemainingSessions)
	assert.Equal(t, 4, q.TotalSessionsThisPeriod)
}

func TestFreeQuotaAppliesToSessionPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// next period is [Nov 15, Dec 15); the current one stays empty
	for day := 16; day <= 19; day++ {
		date := time.Date(2026, 11, day, 0, 0, 0, 0, time.UTC)
		f.openSlot(date, f.slotClock)
		req := f.request(0)
		req.Date = date
		_, err := f.svc.Book(ctx, f.student.ID, req)
		require.NoError(t, err, "free booking on Nov %d", day)
	}

	fifth := time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC)
	f.openSlot(fifth, f.slotClock)
	req := f.request(0)
	req.Date = fifth
	_, err := f.svc.Book(ctx, f.student.ID, req)
	assert.ErrorIs(t, err, ErrFreeQuotaExhausted)
	assert.False(t, f.slot(t, fifth, f.slotClock).IsBooked)

	q, err := f.svc.RemainingStudentSessions(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, q.RemainingSessions)
	assert.Equal(t, "2026-11-15", q.NextResetDate)
}

func TestConcurrentBookingsOnOneSlot(t *testing.T) {
	f := newFixture(t)
	f.openSlot(f.slotDate, f.slotClock)

	const attempts = 25
	clients := make([]repo.User, attempts)
	for i := range clients {
		clients[i] = f.store.SeedClient(uuid.NewString(), false, f.now)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
	)
	for _, c := range clients {
		wg.Add(1)
		go func(userID uuid.UUID) {
			defer wg.Done()
			_, err := f.svc.Book(context.Background(), userID, f.request(1000))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrSlotNotAvailable):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(c.ID)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, rejected)
	assert.Len(t, f.store.Sessions(), 1)
	f.assertSlotInvariant(t)
}

func TestConcurrentFreeBookingsRespectQuota(t *testing.T) {
	f := newFixture(t)
	clocks := []string{"09:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00"}
	for _, c := range clocks {
		f.openSlot(f.slotDate, c)
	}

	var wg sync.WaitGroup
	for _, c := range clocks {
		wg.Add(1)
		go func(clock string) {
			defer wg.Done()
			req := f.request(0)
			req.Time = clock
			_, _ = f.svc.Book(context.Background(), f.student.ID, req)
		}(c)
	}
	wg.Wait()

	assert.Len(t, f.store.Sessions(), 4)
	f.assertSlotInvariant(t)
}

func TestBookRollsBackWhenSessionInsertFails(t *testing.T) {
	f := newFixture(t)
	f.openSlot(f.slotDate, f.slotClock)
	boom := errors.New("boom")
	f.store.FailOn("CreateSession", boom)

	_, err := f.svc.Book(context.Background(), f.client.ID, f.request(1000))
	assert.ErrorIs(t, err, boom)
	assert.False(t, f.slot(t, f.slotDate, f.slotClock).IsBooked)
	assert.Empty(t, f.events.Events())
}

func TestPublishFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture(t)
	f.openSlot(f.slotDate, f.slotClock)
	f.events.Err = errors.New("broker down")

	s, err := f.svc.Book(context.Background(), f.client.ID, f.request(1000))
	require.NoError(t, err)
	assert.Equal(t, repo.SessionConfirmed, s.Status)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	f.openSlot(f.slotDate, f.slotClock)
	ctx := context.Background()

	booked, err := f.svc.Book(ctx, f.client.ID, f.request(1000))
	require.NoError(t, err)

	s, err := f.svc.Cancel(ctx, booked.ID, f.client.ID)
	require.NoError(t, err)
	assert.Equal(t, repo.SessionCancelled, s.Status)
	require.NotNil(t, s.CancelledBy)
	assert.Equal(t, f.client.ID, *s.CancelledBy)
	require.NotNil(t, s.CancelledAt)

	slot := f.slot(t, f.slotDate, f.slotClock)
	assert.False(t, slot.IsBooked)
	assert.True(t, slot.IsAvailable, "availability declaration survives cancellation")

	evs := f.events.Events()
	require.Len(t, evs, 2)
	assert.IsType(t, events.SessionCancelled{}, evs[1])
	f.assertSlotInvariant(t)

	// the freed slot can be booked again
	_, err = f.svc.Book(ctx, f.student.ID, f.request(1000))
	require.NoError(t, err)
	f.assertSlotInvariant(t)
}

func TestCancelTooLate(t *testing.T) {
	f := newFixture(t)
	f.openSlot(f.slotDate, f.slotClock)
	ctx := context.Background()

	booked, err := f.svc.Book(ctx, f.client.ID, f.request(1000))
	require.NoError(t, err)

	// 23h before the 10:00 start
	f.now = time.Date(2026, 10, 24, 11, 0, 0, 0, tehran)
	for _, actor := range []uuid.UUID{f.client.ID, f.proUser.ID} {
		_, err = f.svc.Cancel(ctx, booked.ID, actor)
		assert.ErrorIs(t, err, ErrTooLateToCancel)
	}
	assert.True(t, f.slot(t, f.slotDate, f.slotClock).IsBooked)

	// exactly 24h ahead is still allowed
	f.now = time.Date(2026, 10, 24, 10, 0, 0, 0, tehran)
	_, err = f.svc.Cancel(ctx, booked.ID, f.proUser.ID)
	assert.NoError(t, err)
}

func TestCancelPermissions(t *testing.T) {
	f := newFixture(t)
	f.openSlot(f.slotDate, f.slotClock)
	ctx := context.Background()

	booked, err := f.svc.Book(ctx, f.client.ID, f.request(1000))
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, uuid.New(), f.client.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = f.svc.Cancel(ctx, booked.ID, f.student.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Cancel(ctx, booked.ID, f.proUser.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, booked.ID, f.client.ID)
	assert.ErrorIs(t, err, ErrNotCancellable)
}

func TestRemainingStudentSessions(t *testing.T) {
	tests := []struct {
		name          string
		now           time.Time
		sessionDates  []time.Time
		wantRemaining int
		wantUsed      int
		wantReset     string
	}{
		{
			name: "three free sessions in the period leaves one",
			now:  time.Date(2026, 11, 10, 12, 0, 0, 0, tehran),
			sessionDates: []time.Time{
				time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
				time.Date(2026, 10, 28, 0, 0, 0, 0, time.UTC),
				time.Date(2026, 11, 14, 0, 0, 0, 0, time.UTC),
			},
			wantRemaining: 1,
			wantUsed:      3,
			wantReset:     "2026-11-15",
		},
		{
			name: "sessions before the anchor belong to the previous period",
			now:  time.Date(2026, 10, 19, 12, 0, 0, 0, tehran),
			sessionDates: []time.Time{
				time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC),
				time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
				time.Date(2026, 11, 15, 0, 0, 0, 0, time.UTC),
			},
			wantRemaining: 3,
			wantUsed:      1,
			wantReset:     "2026-11-15",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.now = tt.now
			ctx := context.Background()

			for i, d := range tt.sessionDates {
				require.NoError(t, f.store.CreateSession(ctx, &repo.Session{
					ClientUserID:    f.student.ID,
					ProfessionalID:  f.pro.ID,
					Date:            d,
					Time:            []string{"09:00", "10:00", "11:00"}[i%3],
					DurationMinutes: 50,
					Status:          repo.SessionCompleted,
				}))
			}
			// cancelled and paid sessions never count
			require.NoError(t, f.store.CreateSession(ctx, &repo.Session{
				ClientUserID: f.student.ID, ProfessionalID: f.pro.ID,
				Date: time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), Time: "16:00",
				DurationMinutes: 50, Status: repo.SessionCancelled,
			}))
			require.NoError(t, f.store.CreateSession(ctx, &repo.Session{
				ClientUserID: f.student.ID, ProfessionalID: f.pro.ID,
				Date: time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC), Time: "16:00",
				DurationMinutes: 50, Price: 500_000, Status: repo.SessionCompleted,
			}))

			q, err := f.svc.RemainingStudentSessions(ctx, f.student.ID)
			require.NoError(t, err)
			assert.True(t, q.IsStudent)
			assert.Equal(t, tt.wantRemaining, q.RemainingSessions)
			assert.Equal(t, tt.wantUsed, q.TotalSessionsThisPeriod)
			assert.Equal(t, tt.wantReset, q.NextResetDate)
		})
	}
}

func TestRemainingStudentSessionsNonStudent(t *testing.T) {
	f := newFixture(t)

	q, err := f.svc.RemainingStudentSessions(context.Background(), f.client.ID)
	require.NoError(t, err)
	assert.Equal(t, Quota{}, *q)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	f.openSlot(f.slotDate, f.slotClock)
	ctx := context.Background()

	booked, err := f.svc.Book(ctx, f.client.ID, f.request(1000))
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, booked.ID, f.client.ID, repo.SessionOngoing)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.UpdateStatus(ctx, booked.ID, f.proUser.ID, repo.SessionCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	s, err := f.svc.UpdateStatus(ctx, booked.ID, f.proUser.ID, repo.SessionOngoing)
	require.NoError(t, err)
	assert.Equal(t, repo.SessionOngoing, s.Status)

	s, err = f.svc.UpdateStatus(ctx, booked.ID, f.proUser.ID, repo.SessionCompleted)
	require.NoError(t, err)
	assert.Equal(t, repo.SessionCompleted, s.Status)

	_, err = f.svc.UpdateStatus(ctx, booked.ID, f.proUser.ID, repo.SessionCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestGetAndList(t *testing.T) {
	f := newFixture(t)
	f.openSlot(f.slotDate, f.slotClock)
	ctx := context.Background()

	concerns := "grief"
	req := f.request(1000)
	req.Concerns = &concerns
	booked, err := f.svc.Book(ctx, f.client.ID, req)
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, booked.ID, Actor{UserID: f.proUser.ID, Role: repo.RolePsychiatrist})
	require.NoError(t, err)
	require.NotNil(t, got.Concerns)
	assert.Equal(t, "grief", *got.Concerns)

	admin, err := f.svc.Get(ctx, booked.ID, Actor{UserID: uuid.New(), Role: repo.RoleAdmin})
	require.NoError(t, err)
	assert.Nil(t, admin.Concerns)

	_, err = f.svc.Get(ctx, booked.ID, Actor{UserID: f.student.ID, Role: repo.RoleClient})
	assert.ErrorIs(t, err, ErrForbidden)

	mine, err := f.svc.List(ctx, Actor{UserID: f.client.ID, Role: repo.RoleClient}, ListRequest{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Nil(t, mine[0].Concerns)

	theirs, err := f.svc.List(ctx, Actor{UserID: f.student.ID, Role: repo.RoleClient}, ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, theirs)

	pro, err := f.svc.List(ctx, Actor{UserID: f.proUser.ID, Role: repo.RolePsychiatrist}, ListRequest{})
	require.NoError(t, err)
	assert.Len(t, pro, 1)
}
