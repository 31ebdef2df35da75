package router

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirphl/parts-pricing/app/handlers"
	"github.com/amirphl/parts-pricing/app/middleware"
	"github.com/amirphl/parts-pricing/app/services"
	businessflow "github.com/amirphl/parts-pricing/business_flow"
	"github.com/amirphl/parts-pricing/config"
	"github.com/amirphl/parts-pricing/models"
	"github.com/amirphl/parts-pricing/repository"
	testingutil "github.com/amirphl/parts-pricing/testing"
	"github.com/amirphl/parts-pricing/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
}

type testServer struct {
	app *fiber.App
	fx  *testingutil.TestFixtures
}

func testConfig() *config.ProductionConfig {
	return &config.ProductionConfig{
		Server: config.ServerConfig{
			BodyLimit:    4 * 1024 * 1024,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			IdleTimeout:  5 * time.Second,
		},
		Security: config.SecurityConfig{
			AllowedOrigins:  []string{"http://localhost:5173"},
			AllowedMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
			AuthRateLimit:   1000,
			GlobalRateLimit: 1000,
			RateLimitWindow: time.Minute,
			XFrameOptions:   "DENY",
			ReferrerPolicy:  "no-referrer",
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	tdb, err := testingutil.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = tdb.TeardownTestDB() })

	tokens, err := services.NewTokenService(time.Hour, 24*time.Hour, "parts-pricing", "parts-pricing-api", false, "", "", "router-test-secret")
	require.NoError(t, err)

	partRepo := repository.NewPartRepository(tdb.DB)
	formulaRepo := repository.NewFormulaRepository(tdb.DB)
	deviceRepo := repository.NewDeviceModelRepository(tdb.DB)
	userRepo := repository.NewUserRepository(tdb.DB)

	catalog := businessflow.NewDeviceCatalog(deviceRepo, nil, nil)
	loginFlow := businessflow.NewLoginFlow(userRepo, tokens, nil)

	r := NewFiberRouter(testConfig(), middleware.NewAuthMiddleware(tokens, loginFlow), Handlers{
		Auth:         handlers.NewAuthHandler(loginFlow),
		Parts:        handlers.NewPartHandler(businessflow.NewPartFlow(partRepo, catalog)),
		Formulas:     handlers.NewFormulaHandler(businessflow.NewFormulaFlow(formulaRepo, partRepo)),
		DeviceModels: handlers.NewDeviceModelHandler(businessflow.NewDeviceModelFlow(deviceRepo, partRepo, catalog, tdb.DB)),
		Pricing:      handlers.NewPricingHandler(businessflow.NewPricingFlow(partRepo, formulaRepo)),
		Import:       handlers.NewImportHandler(businessflow.NewImportFlow(partRepo, formulaRepo, catalog)),
		Users:        handlers.NewUserHandler(businessflow.NewUserFlow(userRepo, bcrypt.MinCost)),
	}, nil)
	r.SetupRoutes()

	return &testServer{app: r.GetApp(), fx: testingutil.NewTestFixtures(tdb)}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, apiEnvelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	require.NoError(t, err)
	defer resp.Body.Close()

	var env apiEnvelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &env))
	}
	return resp.StatusCode, env
}

func (s *testServer) login(t *testing.T, role string, perms ...string) string {
	t.Helper()

	user, err := s.fx.CreateTestUser(role, perms...)
	require.NoError(t, err)

	status, env := s.do(t, http.MethodPost, "/api/v1/auth/token", "", map[string]string{
		"username": user.Username,
		"password": testingutil.TestPassword,
	})
	require.Equal(t, http.StatusOK, status, env.Message)

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tok))
	require.NotEmpty(t, tok.AccessToken)
	return tok.AccessToken
}

func TestRouter_OpsEndpoints(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/swagger.json", nil)
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	doc, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "/api/v1/calculate-price")

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err = s.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	status, env = s.do(t, http.MethodGet, "/definitely-not-here", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestRouter_Authentication(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		token    string
		wantCode string
	}{
		{name: "missing header", token: "", wantCode: "MISSING_AUTHORIZATION_HEADER"},
		{name: "garbage token", token: "not-a-jwt", wantCode: "TOKEN_INVALID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := s.do(t, http.MethodGet, "/api/v1/parts", tt.token, nil)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, tt.wantCode, env.Error.Code)
		})
	}

	t.Run("wrong password", func(t *testing.T) {
		user, err := s.fx.CreateTestUser(models.RoleUser)
		require.NoError(t, err)
		status, _ := s.do(t, http.MethodPost, "/api/v1/auth/token", "", map[string]string{
			"username": user.Username,
			"password": "nope-nope",
		})
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("captcha disabled", func(t *testing.T) {
		status, _ := s.do(t, http.MethodGet, "/api/v1/auth/captcha", "", nil)
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestRouter_Permissions(t *testing.T) {
	s := newTestServer(t)
	viewer := s.login(t, models.RoleUser)
	editor := s.login(t, models.RoleUser, models.PermManageParts)

	status, _ := s.do(t, http.MethodGet, "/api/v1/parts", viewer, nil)
	assert.Equal(t, http.StatusOK, status)

	status, env := s.do(t, http.MethodPost, "/api/v1/parts", viewer, map[string]any{"code": "GH82-1"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "PERMISSION_DENIED", env.Error.Code)

	status, _ = s.do(t, http.MethodPost, "/api/v1/parts", editor, map[string]any{"code": "GH82-1"})
	assert.Equal(t, http.StatusCreated, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/admin/users", editor, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodPost, "/api/v1/formulas", editor, map[string]any{"class_name": "Low End"})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestRouter_PartsAndPricing(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, models.RoleAdmin)

	status, env := s.do(t, http.MethodPost, "/api/v1/parts", admin, map[string]any{
		"code":      "GH82-100",
		"map_price": 100,
		"stock_qty": 2,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var part struct {
		ID     uint   `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &part))
	assert.Equal(t, "Active", part.Status)

	status, env = s.do(t, http.MethodPost, "/api/v1/parts", admin, map[string]any{"map_price": 5})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	status, _ = s.do(t, http.MethodGet, "/api/v1/parts/abc", admin, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/parts/999999", admin, nil)
	assert.Equal(t, http.StatusNotFound, status)

	formula, err := s.fx.CreateTestFormula(models.Formula{
		ClassName:      "Mid End",
		LaborLvl1:      utils.ToPtr(10.0),
		LaborLvl2Major: utils.ToPtr(15.0),
		Margin:         utils.ToPtr(2.0),
		ExchangeRate:   1450,
	})
	require.NoError(t, err)

	status, env = s.do(t, http.MethodPost, "/api/v1/calculate-price", admin, map[string]any{
		"formula_id":    formula.ID,
		"labor_level":   "2_major",
		"customer_type": "dealer",
		"part_id":       part.ID,
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	var quote struct {
		FinalPriceUSD float64 `json:"final_price_usd"`
		PartCode      string  `json:"part_code"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &quote))
	assert.InDelta(t, 116.0, quote.FinalPriceUSD, 1e-9)
	assert.Equal(t, "GH82-100", quote.PartCode)

	status, _ = s.do(t, http.MethodPost, "/api/v1/calculate-price", admin, map[string]any{
		"formula_id": 999999,
		"part_id":    part.ID,
	})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRouter_RejectsMalformedRequests(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, models.RoleAdmin)

	for _, price := range []float64{5, 500, 50} {
		_, err := s.fx.CreateTestPart(models.Part{MapPrice: utils.ToPtr(price)})
		require.NoError(t, err)
	}

	countParts := func(t *testing.T, query string) int64 {
		t.Helper()
		status, env := s.do(t, http.MethodGet, "/api/v1/parts/count"+query, admin, nil)
		require.Equal(t, http.StatusOK, status, env.Message)
		var out struct {
			Total int64 `json:"total"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &out))
		return out.Total
	}

	t.Run("bulk delete with unbindable body deletes nothing", func(t *testing.T) {
		status, env := s.do(t, http.MethodPost, "/api/v1/parts/bulk/delete", admin, map[string]any{"search": 3})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "INVALID_REQUEST", env.Error.Code)
		assert.Equal(t, int64(3), countParts(t, ""))
	})

	t.Run("bulk delete with invalid filter deletes nothing", func(t *testing.T) {
		status, env := s.do(t, http.MethodPost, "/api/v1/parts/bulk/delete", admin, map[string]any{"status": "Sold"})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
		assert.Equal(t, int64(3), countParts(t, ""))
	})

	t.Run("calculate price validates labor level", func(t *testing.T) {
		status, env := s.do(t, http.MethodPost, "/api/v1/calculate-price", admin, map[string]any{
			"formula_id":  1,
			"labor_level": "9",
		})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	})

	t.Run("path id", func(t *testing.T) {
		status, env := s.do(t, http.MethodDelete, "/api/v1/parts/abc", admin, nil)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "INVALID_ID", env.Error.Code)
		assert.Equal(t, int64(3), countParts(t, ""))
	})

	t.Run("numeric query filters", func(t *testing.T) {
		assert.Equal(t, int64(2), countParts(t, "?min_price=50"))

		tests := []struct {
			name string
			path string
		}{
			{name: "count min_price", path: "/api/v1/parts/count?min_price=abc"},
			{name: "list max_price", path: "/api/v1/parts?max_price=1e"},
			{name: "list in_stock", path: "/api/v1/parts?in_stock=maybe"},
			{name: "list negative limit", path: "/api/v1/parts?limit=-1"},
			{name: "export min_price", path: "/api/v1/parts/export?min_price=abc"},
			{name: "formulas skip", path: "/api/v1/formulas?skip=x"},
			{name: "samsung models limit", path: "/api/v1/samsung-models?limit=ten"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				status, env := s.do(t, http.MethodGet, tt.path, admin, nil)
				assert.Equal(t, http.StatusBadRequest, status)
				assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
			})
		}
	})
}

func TestRouter_InactiveUserIsForbidden(t *testing.T) {
	s := newTestServer(t)

	user, err := s.fx.CreateTestUser(models.RoleUser)
	require.NoError(t, err)
	status, env := s.do(t, http.MethodPost, "/api/v1/auth/token", "", map[string]string{
		"username": user.Username,
		"password": testingutil.TestPassword,
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tok))

	require.NoError(t, s.fx.DB.DB.Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", false).Error)

	status, env = s.do(t, http.MethodGet, "/api/v1/parts", tok.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "USER_INACTIVE", env.Error.Code)

	status, env = s.do(t, http.MethodPost, "/api/v1/auth/token", "", map[string]string{
		"username": user.Username,
		"password": testingutil.TestPassword,
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "USER_INACTIVE", env.Error.Code)
}
