package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/domain"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	pc, err := config.LoadPlannerConfig()
	require.NoError(t, err)

	cfg := &config.Config{Planner: *pc}
	h, err := NewHandler(cfg, nil, nil, nil)
	require.NoError(t, err)
	return h
}

func testDataset() *domain.Dataset {
	return &domain.Dataset{
		Grid: [][]int64{{1, 2, 3}, {4, 5, 6}},
	}
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestBuildPlanningParametersDefaults(t *testing.T) {
	h := newTestHandler(t)

	params, err := h.buildPlanningParameters(&planningParametersRequest{}, testDataset())
	require.NoError(t, err)

	expected := h.config.Planner.PlanningParameters()
	assert.Equal(t, expected.PopulationSize, params.PopulationSize)
	assert.Equal(t, expected.Covariance, params.Covariance)
	assert.NotZero(t, params.Seed)
}

func TestBuildPlanningParametersOverrides(t *testing.T) {
	h := newTestHandler(t)

	populationSize := 8
	blend := "ratio"
	seed := uint64(99)
	params, err := h.buildPlanningParameters(&planningParametersRequest{
		PopulationSize: &populationSize,
		Blend:          &blend,
		Seed:           &seed,
	}, testDataset())
	require.NoError(t, err)

	assert.Equal(t, 8, params.PopulationSize)
	assert.Equal(t, domain.BlendRatio, params.Blend)
	assert.Equal(t, uint64(99), params.Seed)
	assert.Equal(t, h.config.Planner.MaxGenerations, params.MaxGenerations)
}

func TestBuildPlanningParametersInvalid(t *testing.T) {
	h := newTestHandler(t)

	rate := 1.5
	towers := 7
	blend := "product"
	negative := [4]float64{-8, 0, 0, -8}
	cases := []struct {
		Name string
		Req  planningParametersRequest
	}{
		{Name: "crossover rate", Req: planningParametersRequest{CrossoverRate: &rate}},
		{Name: "towers exceed cities", Req: planningParametersRequest{TowersMax: &towers}},
		{Name: "unknown blend", Req: planningParametersRequest{Blend: &blend}},
		{Name: "negative definite covariance", Req: planningParametersRequest{Covariance: &negative}},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			_, err := h.buildPlanningParameters(&c.Req, testDataset())
			assert.Error(t, err)
		})
	}
}

func TestBadRequestTranslatesValidationErrors(t *testing.T) {
	h := newTestHandler(t)

	rate := 1.5
	_, err := h.buildPlanningParameters(&planningParametersRequest{MutationRate: &rate}, testDataset())
	require.Error(t, err)

	rec := httptest.NewRecorder()
	h.badRequest(rec, httptest.NewRequest(http.MethodPost, "/", nil), err)

	resp := decodeResponse(t, rec)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "MutationRate")
}

func TestRequiredRole(t *testing.T) {
	h := newTestHandler(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.successResponse(w, r, "ok", nil)
	})
	protected := h.RequiredRole([]domain.Role{domain.RoleAdmin})(next)

	cases := []struct {
		Role    domain.Role
		Success bool
	}{
		{Role: domain.RoleAdmin, Success: true},
		{Role: domain.RoleOperator, Success: false},
	}

	for _, c := range cases {
		t.Run(string(c.Role), func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(context.WithValue(req.Context(), RoleCtxKey, string(c.Role)))
			rec := httptest.NewRecorder()

			protected.ServeHTTP(rec, req)

			assert.Equal(t, c.Success, decodeResponse(t, rec).Success)
		})
	}
}

func TestAuthWithoutCookie(t *testing.T) {
	h := newTestHandler(t)
	h.RegisterRoutes()

	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/datasets", nil))

	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "用户未登录", resp.Message)
}

func TestLogoutClearsCookie(t *testing.T) {
	h := newTestHandler(t)
	h.RegisterRoutes()

	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	assert.True(t, decodeResponse(t, rec).Success)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, tokenCookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestIssueToken(t *testing.T) {
	h := newTestHandler(t)
	h.config.JWT.Secret = "test-secret"
	h.config.JWT.Expiration = 2

	ss, expiration, err := h.issueToken(&domain.User{ID: 42, Role: domain.RoleOperator})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), expiration, time.Minute)

	claims := &AuthClaims{}
	token, err := jwt.ParseWithClaims(ss, claims, func(token *jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.True(t, token.Valid)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, string(domain.RoleOperator), claims.Role)
}

func TestTokenCookie(t *testing.T) {
	h := newTestHandler(t)
	expiration := time.Now().Add(time.Hour)

	h.config.Environment = "development"
	cookie := h.tokenCookie("token", expiration)
	assert.Equal(t, tokenCookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.False(t, cookie.Secure)

	h.config.Environment = "production"
	cookie = h.tokenCookie("token", expiration)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
}

func TestPreventInactiveUser(t *testing.T) {
	h := newTestHandler(t)

	protected := h.preventInactiveUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.successResponse(w, r, "ok", nil)
	}))

	cases := []struct {
		Name     string
		IsActive bool
		Message  string
	}{
		{Name: "active", IsActive: true, Message: "ok"},
		{Name: "inactive", IsActive: false, Message: "账号已停用"},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req = req.WithContext(context.WithValue(req.Context(), MyInfoCtx, &domain.User{IsActive: c.IsActive}))
			rec := httptest.NewRecorder()

			protected.ServeHTTP(rec, req)

			assert.Equal(t, c.Message, decodeResponse(t, rec).Message)
		})
	}
}

func TestUpdateMyPasswordValidation(t *testing.T) {
	h := newTestHandler(t)

	cases := []struct {
		Name string
		Body string
	}{
		{Name: "too short", Body: `{"oldPassword": "old-password", "newPassword": "short"}`},
		{Name: "unchanged", Body: `{"oldPassword": "same-password", "newPassword": "same-password"}`},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(c.Body))
			req = req.WithContext(context.WithValue(req.Context(), MyInfoCtx, &domain.User{}))
			rec := httptest.NewRecorder()

			h.UpdateMyPassword(rec, req)

			assert.False(t, decodeResponse(t, rec).Success)
		})
	}
}

func TestReadJSON(t *testing.T) {
	h := newTestHandler(t)

	type body struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	cases := []struct {
		Name    string
		Input   string
		Message string
	}{
		{Name: "valid", Input: `{"name": "a", "count": 1}`},
		{Name: "empty", Input: ``, Message: "请求体不能为空"},
		{Name: "syntax", Input: `{"name": `, Message: "请求体不是合法的 JSON"},
		{Name: "type", Input: `{"count": "x"}`, Message: "字段 count 的类型错误"},
		{Name: "unknown field", Input: `{"other": 1}`, Message: `未知字段 "other"`},
		{Name: "trailing value", Input: `{"name": "a"} {}`, Message: "请求体只能包含一个 JSON 值"},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(c.Input))

			var v body
			err := h.readJSON(req, &v)
			if c.Message == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, c.Message, err.Error())
		})
	}
}
