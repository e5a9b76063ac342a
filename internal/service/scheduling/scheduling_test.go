package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/counsel_backend/internal/repo"
	"github.com/Alijeyrad/counsel_backend/internal/repo/repotest"
)

var tehran = time.FixedZone("IRST", 3*3600+1800)

type fakeCache struct {
	months      map[string]MonthAvailability
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{months: map[string]MonthAvailability{}}
}

func cacheKey(id uuid.UUID, year int, month time.Month) string {
	return id.String() + time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

func (c *fakeCache) GetMonth(_ context.Context, id uuid.UUID, year int, month time.Month) (MonthAvailability, bool) {
	v, ok := c.months[cacheKey(id, year, month)]
	return v, ok
}

func (c *fakeCache) SetMonth(_ context.Context, id uuid.UUID, year int, month time.Month, v MonthAvailability) {
	c.months[cacheKey(id, year, month)] = v
}

func (c *fakeCache) InvalidateMonth(_ context.Context, id uuid.UUID, date time.Time) {
	key := cacheKey(id, date.Year(), date.Month())
	delete(c.months, key)
	c.invalidated = append(c.invalidated, key)
}

type fixture struct {
	store   *repotest.Store
	cache   *fakeCache
	svc     Service
	proUser repo.User
	pro     repo.Professional
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	store := repotest.New()
	cache := newFakeCache()
	u, p := store.SeedProfessional("dr-rahimi", repo.RoleCounselor, true)
	svc := New(store, cache, Config{
		Location:     tehran,
		DayStartHour: 9,
		DayEndHour:   17,
		Now:          func() time.Time { return now },
	})
	return &fixture{store: store, cache: cache, svc: svc, proUser: u, pro: p}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func clocks(slots []repo.TimeSlot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Time)
	}
	return out
}

func TestGenerationIsIdempotent(t *testing.T) {
	f := newFixture(t, time.Date(2026, 10, 19, 10, 0, 0, 0, tehran))
	ctx := context.Background()
	target := day(2026, 10, 22)

	first, err := f.svc.GetDaySchedule(ctx, f.proUser.ID, target)
	require.NoError(t, err)
	second, err := f.svc.GetDaySchedule(ctx, f.proUser.ID, target)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"09:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00", "17:00"}, clocks(first))
	for _, s := range first {
		assert.False(t, s.IsAvailable, "generated slots start closed")
		assert.False(t, s.IsBooked)
	}
	assert.Len(t, f.store.Slots(), 9)
}

func TestGetAvailableTimeSlotsTwiceDoesNotDuplicate(t *testing.T) {
	f := newFixture(t, time.Date(2026, 10, 19, 10, 0, 0, 0, tehran))
	ctx := context.Background()
	target := day(2026, 10, 23)

	first, err := f.svc.GetAvailableTimeSlots(ctx, f.pro.ID, target)
	require.NoError(t, err)
	second, err := f.svc.GetAvailableTimeSlots(ctx, f.pro.ID, target)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Empty(t, first, "professional has not opted in yet")
	assert.Len(t, f.store.Slots(), 9)
}

func TestTodaySkipsPastAndTooSoonHours(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want []string
	}{
		{
			name: "after 4pm nothing is left",
			now:  time.Date(2026, 10, 19, 16, 5, 0, 0, tehran),
			want: []string{},
		},
		{
			name: "1pm starts at 3pm",
			now:  time.Date(2026, 10, 19, 13, 5, 0, 0, tehran),
			want: []string{"15:00", "16:00", "17:00"},
		},
		{
			name: "early morning keeps the full grid",
			now:  time.Date(2026, 10, 19, 6, 0, 0, 0, tehran),
			want: []string{"09:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00", "17:00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.now)
			slots, err := f.svc.GetDaySchedule(context.Background(), f.proUser.ID, day(2026, 10, 19))
			require.NoError(t, err)
			assert.Equal(t, tt.want, clocks(slots))
		})
	}
}

func TestTodayAvailableSlotsStartFromCurrentHourPlusTwo(t *testing.T) {
	now := time.Date(2026, 10, 19, 16, 30, 0, 0, tehran)
	f := newFixture(t, now)
	today := day(2026, 10, 19)

	for h := 9; h <= 17; h++ {
		f.store.SeedSlot(f.pro.ID, today, time.Date(0, 1, 1, h, 0, 0, 0, time.UTC).Format("15:04"), true, false)
	}
	f.store.SeedSlot(f.pro.ID, today, "18:00", true, false)
	f.store.SeedSlot(f.pro.ID, today, "19:00", true, false)

	slots, err := f.svc.GetAvailableTimeSlots(context.Background(), f.pro.ID, today)
	require.NoError(t, err)
	assert.Equal(t, []string{"18:00", "19:00"}, clocks(slots))
}

func TestPastDateReturnsEmpty(t *testing.T) {
	f := newFixture(t, time.Date(2026, 10, 19, 10, 0, 0, 0, tehran))

	slots, err := f.svc.GetAvailableTimeSlots(context.Background(), f.pro.ID, day(2026, 10, 18))
	require.NoError(t, err)
	assert.NotNil(t, slots)
	assert.Empty(t, slots)
	assert.Empty(t, f.store.Slots(), "no generation for past dates")
}

func TestUnknownProfessional(t *testing.T) {
	f := newFixture(t, time.Date(2026, 10, 19, 10, 0, 0, 0, tehran))

	_, err := f.svc.GetAvailableTimeSlots(context.Background(), uuid.New(), day(2026, 10, 22))
	assert.ErrorIs(t, err, ErrProfessionalNotFound)

	_, err = f.svc.GetMonthlyAvailability(context.Background(), uuid.New(), 2026, time.October)
	assert.ErrorIs(t, err, ErrProfessionalNotFound)
}

func TestSetAvailabilityOpensSlots(t *testing.T) {
	f := newFixture(t, time.Date(2026, 10, 19, 10, 0, 0, 0, tehran))
	ctx := context.Background()
	target := day(2026, 10, 22)

	grid, err := f.svc.SetAvailability(ctx, f.proUser.ID, target, []string{"10:00", "11:00", "18:30"}, true)
	require.NoError(t, err)
	assert.Len(t, grid, 10, "default grid plus the custom 18:30")

	open, err := f.svc.GetAvailableTimeSlots(ctx, f.pro.ID, target)
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00", "11:00", "18:30"}, clocks(open))
	assert.Contains(t, f.cache.invalidated, cacheKey(f.pro.ID, 2026, time.October))
}

func TestSetAvailabilityRejectsClosingBookedSlot(t *testing.T) {
	f := newFixture(t, time.Date(2026, 10, 19, 10, 0, 0, 0, tehran))
	ctx := context.Background()
	target := day(2026, 10, 22)

	_, err := f.svc.SetAvailability(ctx, f.proUser.ID, target, []string{"10:00", "11:00"}, true)
	require.NoError(t, err)
	slot, err := f.store.LockTimeSlot(ctx, f.pro.ID, target, "11:00")
	require.NoError(t, err)
	require.NoError(t, f.store.SetTimeSlotBooked(ctx, slot.ID, true))

	_, err = f.svc.SetAvailability(ctx, f.proUser.ID, target, []string{"10:00", "11:00"}, false)
	assert.ErrorIs(t, err, ErrSlotBooked)

	// the whole change rolled back, 10:00 stays open
	open, err := f.svc.GetAvailableTimeSlots(ctx, f.pro.ID, target)
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00"}, clocks(open))
}

func TestSetAvailabilityValidation(t *testing.T) {
	f := newFixture(t, time.Date(2026, 10, 19, 10, 0, 0, 0, tehran))
	ctx := context.Background()

	_, err := f.svc.SetAvailability(ctx, f.proUser.ID, day(2026, 10, 18), []string{"10:00"}, true)
	assert.ErrorIs(t, err, ErrPastDate)

	_, err = f.svc.SetAvailability(ctx, f.proUser.ID, day(2026, 10, 22), nil, true)
	assert.ErrorIs(t, err, ErrNoTimes)

	_, err = f.svc.SetAvailability(ctx, f.proUser.ID, day(2026, 10, 22), []string{"10am"}, true)
	assert.Error(t, err)

	client := f.store.SeedClient("sara", false, time.Now())
	_, err = f.svc.SetAvailability(ctx, client.ID, day(2026, 10, 22), []string{"10:00"}, true)
	assert.ErrorIs(t, err, ErrNotProfessional)
}

func TestMonthlyAvailability(t *testing.T) {
	f := newFixture(t, time.Date(2026, 10, 19, 10, 0, 0, 0, tehran))
	ctx := context.Background()

	f.store.SeedSlot(f.pro.ID, day(2026, 10, 20), "09:00", true, false)
	f.store.SeedSlot(f.pro.ID, day(2026, 10, 20), "10:00", true, true)
	f.store.SeedSlot(f.pro.ID, day(2026, 10, 20), "11:00", false, false)
	f.store.SeedSlot(f.pro.ID, day(2026, 10, 21), "09:00", true, true)
	f.store.SeedSlot(f.pro.ID, day(2026, 11, 2), "09:00", true, false)

	got, err := f.svc.GetMonthlyAvailability(ctx, f.pro.ID, 2026, time.October)
	require.NoError(t, err)
	assert.Equal(t, MonthAvailability{
		"2026-10-20": {IsAvailable: true, TotalSlots: 3, AvailableSlots: 1},
		"2026-10-21": {IsAvailable: false, TotalSlots: 1, AvailableSlots: 0},
	}, got)

	cached, ok := f.cache.GetMonth(ctx, f.pro.ID, 2026, time.October)
	require.True(t, ok)
	assert.Equal(t, got, cached)

	_, err = f.svc.GetMonthlyAvailability(ctx, f.pro.ID, 2026, time.Month(13))
	assert.ErrorIs(t, err, ErrInvalidMonth)
}

func TestGeneratingDayRefreshesMonth(t *testing.T) {
	f := newFixture(t, time.Date(2026, 10, 19, 10, 0, 0, 0, tehran))
	ctx := context.Background()

	before, err := f.svc.GetMonthlyAvailability(ctx, f.pro.ID, 2026, time.November)
	require.NoError(t, err)
	assert.Empty(t, before)

	_, err = f.svc.GetAvailableTimeSlots(ctx, f.pro.ID, day(2026, 11, 3))
	require.NoError(t, err)

	after, err := f.svc.GetMonthlyAvailability(ctx, f.pro.ID, 2026, time.November)
	require.NoError(t, err)
	assert.Equal(t, MonthAvailability{
		"2026-11-03": {IsAvailable: false, TotalSlots: 9, AvailableSlots: 0},
	}, after)
}

func TestSetAcceptingBookings(t *testing.T) {
	f := newFixture(t, time.Date(2026, 10, 19, 10, 0, 0, 0, tehran))
	ctx := context.Background()

	p, err := f.svc.SetAcceptingBookings(ctx, f.proUser.ID, false)
	require.NoError(t, err)
	assert.False(t, p.IsAvailable)

	stored, err := f.store.GetProfessional(ctx, f.pro.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsAvailable)
}
