package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clinicpos/diagnostics-api/internal/application/service"
	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
	"github.com/clinicpos/diagnostics-api/internal/presentation/http/middleware"
	"github.com/clinicpos/diagnostics-api/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Reason  string          `json:"reason"`
	Data    json.RawMessage `json:"data"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// asUser stands in for AuthMiddleware
func asUser(id uuid.UUID, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, id)
		c.Set(middleware.ContextUserRoles, roles)
		c.Set(middleware.ContextCapabilities, middleware.DefaultPolicy().Grant(roles))
		c.Next()
	}
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDB     string
	}{
		{"database up", nil, http.StatusOK, "ok"},
		{"database down", errors.New("connection refused"), http.StatusServiceUnavailable, "unreachable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/health", NewHealthHandler("diagnostics-api", fakePinger{err: tt.err}).Health)

			rec := serve(r, http.MethodGet, "/health", "")
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantDB, body["database"])
			assert.Equal(t, "diagnostics-api", body["service"])
		})
	}
}

type fakeUsers struct {
	byEmail map[string]*entity.User
}

func (f *fakeUsers) Create(_ context.Context, u *entity.User) error {
	f.byEmail[u.Email] = u
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	return f.byEmail[email], nil
}

type fakeRoles struct{}

func (fakeRoles) GetByName(_ context.Context, name string) (*entity.Role, error) {
	return &entity.Role{Name: name}, nil
}

func (fakeRoles) List(context.Context) ([]entity.Role, error) { return nil, nil }

func newAuthFixture(t *testing.T) (*AuthHandler, *entity.User, *utils.JWTManager) {
	t.Helper()
	hash, err := utils.HashPassword("s3cret-pass")
	require.NoError(t, err)

	cashier := &entity.User{
		ID:        uuid.New(),
		FirstName: "Maria",
		LastName:  "Santos",
		Email:     "maria@clinic.ph",
		Password:  hash,
		IsActive:  true,
		Roles:     []entity.Role{{Name: entity.RoleCashier}},
	}
	users := &fakeUsers{byEmail: map[string]*entity.User{cashier.Email: cashier}}
	jwtManager := utils.NewJWTManager("handler-test", 8*time.Hour)
	auth := service.NewAuthService(users, fakeRoles{}, jwtManager)
	return NewAuthHandler(auth, middleware.DefaultPolicy()), cashier, jwtManager
}

func TestLogin(t *testing.T) {
	h, cashier, jwtManager := newAuthFixture(t)
	r := gin.New()
	r.POST("/auth/login", h.Login)

	rec := serve(r, http.MethodPost, "/auth/login", `{"email":"Maria@Clinic.ph","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var data struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
		User        struct {
			Email        string   `json:"email"`
			Roles        []string `json:"roles"`
			Capabilities []string `json:"capabilities"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &data))
	assert.Equal(t, "Bearer", data.TokenType)
	assert.Equal(t, int64(8*3600), data.ExpiresIn)
	assert.Equal(t, []string{entity.RoleCashier}, data.User.Roles)
	assert.Contains(t, data.User.Capabilities, "transactions:create")
	assert.NotContains(t, data.User.Capabilities, "reconciliation:approve")

	claims, err := jwtManager.ValidateAccessToken(data.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, cashier.ID, claims.UserID)
}

func TestLoginFailures(t *testing.T) {
	h, _, _ := newAuthFixture(t)
	r := gin.New()
	r.POST("/auth/login", h.Login)

	rec := serve(r, http.MethodPost, "/auth/login", `{"email":"maria@clinic.ph","password":"wrong-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decode(t, rec).Reason)

	rec = serve(r, http.MethodPost, "/auth/login", `{"email":"nobody@clinic.ph","password":"s3cret-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(r, http.MethodPost, "/auth/login", `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "VALIDATION_FAILED", env.Reason)
	fields := map[string]string{}
	for _, fe := range env.Errors {
		fields[fe.Field] = fe.Message
	}
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "is required", fields["password"])

	rec = serve(r, http.MethodPost, "/auth/login", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMe(t *testing.T) {
	h, cashier, _ := newAuthFixture(t)
	r := gin.New()
	r.GET("/auth/me", asUser(cashier.ID, entity.RoleCashier), h.Me)
	r.GET("/anonymous/me", h.Me)

	rec := serve(r, http.MethodGet, "/auth/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decode(t, rec).Data), cashier.Email)

	rec = serve(r, http.MethodGet, "/anonymous/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestValidationRunsBeforeServices(t *testing.T) {
	calendar := service.NewCalendar(time.UTC)
	txn := NewTransactionHandler(nil, calendar)
	rec := NewReconciliationHandler(nil, calendar)
	lab := NewLabHandler(nil)
	user := uuid.New()

	r := gin.New()
	g := r.Group("", asUser(user, entity.RoleAdmin))
	g.POST("/transactions", txn.Create)
	g.GET("/transactions/:id", txn.Get)
	g.PATCH("/transactions/:id/tests/:test_id", lab.UpdateTestResult)
	g.POST("/reconciliation/submit", rec.Submit)
	g.POST("/reconciliation/approve-correction", rec.ApproveCorrection)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantField  string
	}{
		{"transaction without payment method", http.MethodPost, "/transactions", `{"test_ids":[]}`, http.StatusUnprocessableEntity, "payment_method"},
		{"patient with bad birth date", http.MethodPost, "/transactions", `{"payment_method":"cash","patient":{"first_name":"A","last_name":"B","birth_date":"15/03/1990"}}`, http.StatusUnprocessableEntity, "birth_date"},
		{"malformed transaction id", http.MethodGet, "/transactions/abc", "", http.StatusBadRequest, ""},
		{"malformed test id", http.MethodPatch, "/transactions/" + uuid.NewString() + "/tests/abc", `{"status":"completed"}`, http.StatusBadRequest, ""},
		{"reconciliation without cash", http.MethodPost, "/reconciliation/submit", `{"notes":"x"}`, http.StatusUnprocessableEntity, "actual_cash"},
		{"approve with bad id", http.MethodPost, "/reconciliation/approve-correction", `{"reconciliation_id":"nope"}`, http.StatusUnprocessableEntity, "reconciliation_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := serve(r, tt.method, tt.path, tt.body)
			require.Equal(t, tt.wantStatus, res.Code, res.Body.String())
			if tt.wantField == "" {
				return
			}
			env := decode(t, res)
			fields := make([]string, 0, len(env.Errors))
			for _, fe := range env.Errors {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

func TestToSnake(t *testing.T) {
	cases := map[string]string{
		"TestIDs":          "test_ids",
		"ActualCash":       "actual_cash",
		"ReconciliationID": "reconciliation_id",
		"PaymentMethod":    "payment_method",
		"Email":            "email",
		"ID":               "id",
	}
	for in, want := range cases {
		assert.Equal(t, want, toSnake(in), in)
	}
}

func TestGetCapabilitiesWithoutAuth(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, GetCapabilities(c))
	assert.Nil(t, GetUserID(c))
	assert.Nil(t, GetUserRoles(c))
}
