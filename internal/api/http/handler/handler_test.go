package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/counsel_backend/internal/events/eventstest"
	"github.com/Alijeyrad/counsel_backend/internal/repo"
	"github.com/Alijeyrad/counsel_backend/internal/repo/repotest"
	"github.com/Alijeyrad/counsel_backend/internal/service/booking"
	"github.com/Alijeyrad/counsel_backend/internal/service/scheduling"
	"github.com/Alijeyrad/counsel_backend/internal/service/user"
	"github.com/Alijeyrad/counsel_backend/pkg/crypto"
	pasetotoken "github.com/Alijeyrad/counsel_backend/pkg/paseto"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

type env struct {
	app     *fiber.App
	store   *repotest.Store
	client  repo.User
	proUser repo.User
	pro     repo.Professional
}

// fakeAuth trusts X-User / X-Role headers so handlers can be exercised
// without issuing tokens.
func fakeAuth(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Get("X-User"))
	if err != nil {
		return fiber.ErrUnauthorized
	}
	c.Locals(pasetotoken.CtxKeyClaims, &pasetotoken.Claims{
		Type:   pasetotoken.TokenTypeAccess,
		UserID: id,
		Role:   c.Get("X-Role"),
	})
	return c.Next()
}

func newEnv(t *testing.T) *env {
	t.Helper()

	loc := time.FixedZone("IRST", 3*3600+1800)
	now := func() time.Time { return time.Date(2026, 10, 19, 10, 0, 0, 0, loc) }

	store := repotest.New()
	cipher, err := crypto.NewFieldCipher(testKeyHex, "sessions.concerns")
	require.NoError(t, err)

	bookingSvc := booking.New(store, &eventstest.Recorder{}, nil, cipher, booking.Config{
		Location:               loc,
		Now:                    now,
		FreeSessionsPerMonth:   4,
		StudentDiscountPercent: 20,
		CancellationNotice:     24 * time.Hour,
	})
	schedulingSvc := scheduling.New(store, nil, scheduling.Config{Location: loc, Now: now})

	e := &env{store: store}
	e.client = store.SeedClient("ali", false, time.Date(2026, 1, 3, 9, 0, 0, 0, loc))
	e.proUser, e.pro = store.SeedProfessional("dr-karimi", repo.RoleCounselor, true)
	store.SeedSlot(e.pro.ID, time.Date(2026, 10, 25, 0, 0, 0, 0, time.UTC), "10:00", true, false)

	sh := NewSessionHandler(bookingSvc)
	ah := NewScheduleHandler(schedulingSvc)
	uh := NewUserHandler(user.New(store, nil))
	ph := NewPaymentHandler(nil, "")

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/payments/callback", ph.Callback)
	api := app.Group("/", fakeAuth)
	api.Post("/sessions/book", sh.Book)
	api.Get("/sessions/:id", sh.Get)
	api.Post("/sessions/:id/cancel", sh.Cancel)
	api.Get("/professionals/:id/availability", ah.MonthlyAvailability)
	api.Get("/professionals/:id/availability/:date", ah.AvailableSlots)
	api.Get("/users/me", uh.GetMe)
	e.app = app
	return e
}

func (e *env) do(t *testing.T, method, path string, as repo.User, body string) (int, map[string]any) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if as.ID != uuid.Nil {
		req.Header.Set("X-User", as.ID.String())
		req.Header.Set("X-Role", string(as.Role))
	}

	resp, err := e.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != fiber.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func bookBody(proID uuid.UUID, clock string) string {
	return `{"professional_id":"` + proID.String() + `","date":"2026-10-25","time":"` + clock + `","duration_minutes":50,"price":1000000}`
}

func TestBookAndCancel(t *testing.T) {
	e := newEnv(t)

	status, body := e.do(t, http.MethodPost, "/sessions/book", e.client, bookBody(e.pro.ID, "10:00"))
	require.Equal(t, fiber.StatusCreated, status, body)
	data := body["data"].(map[string]any)
	assert.Equal(t, "confirmed", data["status"])
	assert.Equal(t, "2026-10-25", data["date"])
	assert.EqualValues(t, 1_000_000, data["price"])
	sessionID := data["id"].(string)

	status, body = e.do(t, http.MethodPost, "/sessions/book", e.client, bookBody(e.pro.ID, "10:00"))
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, CodeConflict, body["code"])

	stranger := e.store.SeedClient("stranger", false, time.Now())
	status, body = e.do(t, http.MethodPost, "/sessions/"+sessionID+"/cancel", stranger, "")
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, CodeForbidden, body["code"])

	status, body = e.do(t, http.MethodPost, "/sessions/"+sessionID+"/cancel", e.client, "")
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "cancelled", body["data"].(map[string]any)["status"])

	status, body = e.do(t, http.MethodGet, "/professionals/"+e.pro.ID.String()+"/availability/2026-10-25", e.client, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 1, "slot is open again")
}

func TestBookValidation(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"bad professional id", `{"professional_id":"x","date":"2026-10-25","time":"10:00","duration_minutes":50,"price":0}`},
		{"bad date", `{"professional_id":"` + e.pro.ID.String() + `","date":"25/10/2026","time":"10:00","duration_minutes":50,"price":0}`},
		{"missing price", `{"professional_id":"` + e.pro.ID.String() + `","date":"2026-10-25","time":"10:00","duration_minutes":50}`},
		{"bad clock", bookBody(e.pro.ID, "10am")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := e.do(t, http.MethodPost, "/sessions/book", e.client, tt.body)
			assert.Equal(t, fiber.StatusBadRequest, status)
			assert.Equal(t, CodeValidation, body["code"])
		})
	}
}

func TestErrorBodies(t *testing.T) {
	e := newEnv(t)

	status, body := e.do(t, http.MethodGet, "/sessions/"+uuid.NewString(), e.client, "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, CodeNotFound, body["code"])

	status, body = e.do(t, http.MethodGet, "/users/me", repo.User{}, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, CodeUnauthorized, body["code"])

	status, body = e.do(t, http.MethodGet, "/professionals/"+e.pro.ID.String()+"/availability", e.client, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, CodeValidation, body["code"])

	status, body = e.do(t, http.MethodGet, "/professionals/"+uuid.NewString()+"/availability?year=2026&month=10", e.client, "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, CodeNotFound, body["code"])

	status, body = e.do(t, http.MethodGet, "/payments/callback", repo.User{}, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, CodeValidation, body["code"])
}

func TestMonthlyAvailabilityAndMe(t *testing.T) {
	e := newEnv(t)

	status, body := e.do(t, http.MethodGet, "/professionals/"+e.pro.ID.String()+"/availability?year=2026&month=10", e.client, "")
	require.Equal(t, fiber.StatusOK, status)
	day := body["data"].(map[string]any)["2026-10-25"].(map[string]any)
	assert.Equal(t, true, day["is_available"])
	assert.EqualValues(t, 1, day["available_slots"])

	status, body = e.do(t, http.MethodGet, "/users/me", e.proUser, "")
	require.Equal(t, fiber.StatusOK, status)
	me := body["data"].(map[string]any)
	assert.Equal(t, "counselor", me["role"])
	assert.Equal(t, e.pro.ID.String(), me["professional"].(map[string]any)["id"])
}
