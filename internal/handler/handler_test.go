package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/venuedesk/service-billing/internal/application"
	"github.com/venuedesk/service-billing/internal/platform/auth"
	"github.com/venuedesk/service-billing/internal/platform/kafka"
	"github.com/venuedesk/service-billing/internal/platform/middleware"
	"github.com/venuedesk/service-billing/internal/repository/memory"
	"github.com/venuedesk/service-billing/internal/saga"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		Total int64 `json:"total"`
	} `json:"meta"`
}

type testServer struct {
	router *gin.Engine
	now    time.Time
	admin  string
	staff  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	ts := &testServer{now: time.Date(2026, 6, 12, 18, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return ts.now }

	spaces := memory.NewSpaceRepository()
	sessions := memory.NewSessionRepository()
	promos := memory.NewPromoRepository()
	invoices := memory.NewInvoiceRepository()
	closer := saga.NewCloseSessionSaga(sessions, invoices, promos, kafka.NewNopPublisher(logger), logger)

	venueSvc := application.NewVenueService(spaces, logger)
	sessionSvc := application.NewSessionService(sessions, spaces, promos, clock, logger)
	promoSvc := application.NewPromoService(promos, sessions, clock, logger)
	billingSvc := application.NewBillingService(sessions, invoices, promos, closer, clock, logger)

	jwtManager := auth.NewJWTManager("test-secret", time.Hour, 24*time.Hour)
	var err error
	ts.admin, err = jwtManager.GenerateAccessToken(uuid.New(), auth.RoleAdmin)
	require.NoError(t, err)
	ts.staff, err = jwtManager.GenerateAccessToken(uuid.New(), auth.RoleStaff)
	require.NoError(t, err)

	r := gin.New()
	NewHealthHandler("service-billing", nil).RegisterRoutes(r)
	api := r.Group("/api/v1")
	NewSpaceHandler(venueSvc).RegisterRoutes(api, jwtManager)
	NewSessionHandler(sessionSvc, billingSvc).RegisterRoutes(api, jwtManager)
	NewPromoHandler(promoSvc, middleware.NewRateLimiter(1, 2)).RegisterRoutes(api, jwtManager)
	NewInvoiceHandler(billingSvc).RegisterRoutes(api, jwtManager)
	NewAdminBillingHandler(billingSvc, promoSvc).RegisterRoutes(api, jwtManager)
	ts.router = r
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func (ts *testServer) createSpace(t *testing.T, mode, hourly string) application.SpaceDTO {
	t.Helper()
	code, env := ts.do(t, http.MethodPost, "/api/v1/spaces", ts.admin, map[string]interface{}{
		"name": "Table 1", "kind": "table", "pricing_mode": mode, "hourly_rate": hourly,
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	return decode[application.SpaceDTO](t, env)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	code, _ := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestSpaceRoutes_RequireAdminToCreate(t *testing.T) {
	ts := newTestServer(t)

	code, _ := ts.do(t, http.MethodPost, "/api/v1/spaces", "", map[string]interface{}{"name": "x"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = ts.do(t, http.MethodPost, "/api/v1/spaces", ts.staff, map[string]interface{}{
		"name": "x", "kind": "table", "pricing_mode": "per_space", "hourly_rate": "10",
	})
	assert.Equal(t, http.StatusForbidden, code)

	code, env := ts.do(t, http.MethodPost, "/api/v1/spaces", ts.admin, map[string]interface{}{
		"name": "x", "kind": "sofa", "pricing_mode": "per_space", "hourly_rate": "10",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)

	sp := ts.createSpace(t, "per_space", "60")
	code, env = ts.do(t, http.MethodGet, "/api/v1/spaces/"+sp.ID.String(), ts.staff, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Table 1", decode[application.SpaceDTO](t, env).Name)

	code, _ = ts.do(t, http.MethodGet, "/api/v1/spaces/not-a-uuid", ts.staff, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = ts.do(t, http.MethodGet, "/api/v1/spaces/"+uuid.NewString(), ts.staff, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestSessionFlow_CloseAndVoid(t *testing.T) {
	ts := newTestServer(t)
	sp := ts.createSpace(t, "per_space", "60")

	code, env := ts.do(t, http.MethodPost, "/api/v1/sessions", ts.staff, map[string]interface{}{"space_id": sp.ID})
	require.Equal(t, http.StatusCreated, code, env.Error)
	sess := decode[application.SessionDTO](t, env)
	base := "/api/v1/sessions/" + sess.ID.String()

	code, env = ts.do(t, http.MethodPost, base+"/orders", ts.staff, map[string]interface{}{
		"item_id": "cola", "name": "Cola", "unit_price": "2.50", "quantity": 2,
	})
	require.Equal(t, http.StatusCreated, code, env.Error)

	code, _ = ts.do(t, http.MethodPost, base+"/orders", ts.staff, map[string]interface{}{"item_id": "cola", "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, code)

	ts.now = ts.now.Add(90 * time.Minute)

	code, env = ts.do(t, http.MethodGet, base+"/quote", ts.staff, nil)
	require.Equal(t, http.StatusOK, code)
	quote := decode[application.QuoteDTO](t, env)
	assert.True(t, decimal.NewFromInt(95).Equal(quote.Bill.FinalTotal), quote.Bill.FinalTotal.String())

	code, env = ts.do(t, http.MethodGet, "/api/v1/sessions/open", ts.staff, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]application.SessionDTO](t, env), 1)

	code, env = ts.do(t, http.MethodPost, base+"/close", ts.staff, nil)
	require.Equal(t, http.StatusCreated, code, env.Error)
	inv := decode[application.InvoiceDTO](t, env)
	assert.Equal(t, "issued", inv.Status)
	assert.Equal(t, int64(90), inv.DurationMinutes)

	code, env = ts.do(t, http.MethodPost, base+"/close", ts.staff, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "INVALID_STATE", env.Error.Code)

	code, env = ts.do(t, http.MethodGet, "/api/v1/invoices/session/"+sess.ID.String(), ts.staff, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, inv.ID, decode[application.InvoiceDTO](t, env).ID)

	voidPath := "/api/v1/admin/invoices/" + inv.ID.String() + "/void"
	code, _ = ts.do(t, http.MethodPost, voidPath, ts.staff, map[string]string{"reason": "test"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = ts.do(t, http.MethodPost, voidPath, ts.admin, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = ts.do(t, http.MethodPost, voidPath, ts.admin, map[string]string{"reason": "comped"})
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, "void", decode[application.InvoiceDTO](t, env).Status)

	code, env = ts.do(t, http.MethodGet, "/api/v1/admin/invoices?page=0&limit=500", ts.admin, nil)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(1), env.Meta.Total)

	code, env = ts.do(t, http.MethodGet, "/api/v1/admin/stats/invoices", ts.admin, nil)
	require.Equal(t, http.StatusOK, code)
	stats := decode[application.InvoiceStatsDTO](t, env)
	assert.Equal(t, int64(1), stats.ByStatus["void"])
	assert.True(t, stats.Revenue.IsZero())
}

func TestSessionFlow_PerPersonMemberLeave(t *testing.T) {
	ts := newTestServer(t)
	sp := ts.createSpace(t, "per_person", "30")

	_, env := ts.do(t, http.MethodPost, "/api/v1/sessions", ts.staff, map[string]interface{}{"space_id": sp.ID})
	sess := decode[application.SessionDTO](t, env)
	base := "/api/v1/sessions/" + sess.ID.String()

	code, env := ts.do(t, http.MethodPost, base+"/members", ts.staff, map[string]string{"name": "Ana"})
	require.Equal(t, http.StatusCreated, code, env.Error)
	member := decode[application.MemberDTO](t, env)

	ts.now = ts.now.Add(2 * time.Hour)

	code, env = ts.do(t, http.MethodPost, base+"/members/"+member.ID.String()+"/leave", ts.staff, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	leave := decode[application.MemberLeaveDTO](t, env)
	require.NotNil(t, leave.Bill)
	assert.True(t, decimal.NewFromInt(60).Equal(leave.Bill.FinalTotal), leave.Bill.FinalTotal.String())

	code, _ = ts.do(t, http.MethodPost, base+"/members/"+member.ID.String()+"/leave", ts.staff, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.do(t, http.MethodPost, base+"/switch", ts.staff, map[string]interface{}{"space_id": sp.ID})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPromoRoutes(t *testing.T) {
	ts := newTestServer(t)
	body := map[string]interface{}{
		"code":        "welcome",
		"kind":        "fixed",
		"discount":    map[string]interface{}{"value": "5", "applies_to": []string{"orders"}},
		"valid_from":  ts.now.Add(-time.Hour).Format(time.RFC3339),
		"valid_until": ts.now.Add(time.Hour).Format(time.RFC3339),
	}

	code, _ := ts.do(t, http.MethodPost, "/api/v1/promos", ts.staff, body)
	assert.Equal(t, http.StatusForbidden, code)

	code, env := ts.do(t, http.MethodPost, "/api/v1/promos", ts.admin, body)
	require.Equal(t, http.StatusCreated, code, env.Error)
	created := decode[struct {
		ID   uuid.UUID `json:"id"`
		Code string    `json:"code"`
	}](t, env)
	assert.Equal(t, "WELCOME", created.Code)

	code, env = ts.do(t, http.MethodPost, "/api/v1/promos/validate", ts.staff, map[string]string{"code": "Welcome"})
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decode[application.PromoValidationDTO](t, env).Valid)

	code, env = ts.do(t, http.MethodGet, "/api/v1/admin/promos", ts.admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "WELCOME")

	code, _ = ts.do(t, http.MethodPost, "/api/v1/promos/"+created.ID.String()+"/deactivate", ts.admin, nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = ts.do(t, http.MethodGet, "/api/v1/promos/active", ts.staff, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "[]", string(env.Data))
}

func TestPromoValidate_RateLimited(t *testing.T) {
	ts := newTestServer(t)

	var last int
	for i := 0; i < 5; i++ {
		last, _ = ts.do(t, http.MethodPost, "/api/v1/promos/validate", ts.staff, map[string]string{"code": "NOPE"})
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
