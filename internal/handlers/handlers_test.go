package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/huangang/rendermarket/internal/config"
	"github.com/huangang/rendermarket/internal/middleware"
	"github.com/huangang/rendermarket/internal/models"
	"github.com/huangang/rendermarket/internal/services"
	"github.com/huangang/rendermarket/internal/utils"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("handler-test-secret")
}

type apiResponse struct {
	Code    int             `json:"code"`
	Reason  string          `json:"reason"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details map[string]any  `json:"details"`
}

type testAPI struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := models.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:h_%s?mode=memory&cache=shared", name),
	}, logger.Silent)
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cfg := config.DefaultConfig()
	engine := services.NewEngagementService(db, &cfg.Marketplace)
	auth := NewAuthHandler(services.NewAuthService(db, &cfg.JWT))
	projects := NewProjectHandler(engine)
	apps := NewApplicationHandler(engine)
	quotes := NewQuoteHandler(engine)
	packages := NewPackageHandler(engine)
	orders := NewOrderHandler(engine)
	engagements := NewEngagementHandler(engine, services.NewMatchingResolver(db))
	history := NewHistoryHandler(engine, services.NewSystemLogService(db))

	r := gin.New()
	r.GET("/health", NewHealthHandler(db, services.NewSyncQueue(), services.NewSSEHub()).CheckHealth)
	r.POST("/api/auth/signup", auth.Signup)
	r.POST("/api/auth/login", auth.Login)

	api := r.Group("/api", middleware.AuthRequired())
	api.GET("/auth/me", auth.Me)
	api.GET("/projects", projects.List)
	api.POST("/projects", projects.Create)
	api.GET("/projects/:id", projects.GetByID)
	api.POST("/projects/:id/close", projects.Close)
	api.GET("/projects/:id/applications", apps.ListForProject)
	api.POST("/projects/:id/applications", apps.Submit)
	api.POST("/applications/:id/decision", apps.Decide)
	api.POST("/quote-requests", quotes.Request)
	api.POST("/quote-requests/:id/quote", quotes.SubmitQuote)
	api.POST("/quote-requests/:id/decision", quotes.Decide)
	api.POST("/packages", packages.Create)
	api.POST("/packages/:id/orders", packages.Purchase)
	api.POST("/orders/:id/start", orders.Start)
	api.GET("/engagements", engagements.List)
	api.GET("/engagements/:kind/:id/deliveries", engagements.ListDeliveries)
	api.POST("/engagements/:kind/:id/deliveries", engagements.SubmitDelivery)
	api.POST("/engagements/:kind/:id/approve", engagements.Approve)
	api.POST("/deliveries/:id/review", engagements.ReviewDelivery)
	api.GET("/engagements/:kind/:id/history", history.List)

	return &testAPI{t: t, db: db, router: r}
}

func (a *testAPI) do(method, path, token string, body any) (*httptest.ResponseRecorder, apiResponse) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	var req *http.Request
	if reader != nil {
		req = httptest.NewRequest(method, path, reader)
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func (a *testAPI) signup(email, role string) (string, uint) {
	a.t.Helper()
	w, resp := a.do(http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email": email, "password": "correct-horse", "full_name": email, "role": role, "country": "BR",
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var out struct {
		Token   string `json:"token"`
		Profile struct {
			ID uint `json:"id"`
		} `json:"profile"`
	}
	require.NoError(a.t, json.Unmarshal(resp.Data, &out))
	return out.Token, out.Profile.ID
}

func decode[T any](t *testing.T, resp apiResponse) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	return out
}

type idVersion struct {
	ID      uint   `json:"id"`
	Status  string `json:"status"`
	Version int    `json:"version"`
}

func TestAuthHandler(t *testing.T) {
	api := newTestAPI(t)
	token, id := api.signup("client@studio.test", "client")

	w, resp := api.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, id, decode[idVersion](t, resp).ID)

	w, _ = api.do(http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email": "client@studio.test", "password": "correct-horse", "full_name": "x", "role": "client",
	})
	require.Equal(t, http.StatusConflict, w.Code)

	w, _ = api.do(http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "client@studio.test", "password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = api.do(http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "CLIENT@studio.test", "password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = api.do(http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email": "bad", "password": "short", "full_name": "x", "role": "client",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProjectFlow_ApplicationToCompletion(t *testing.T) {
	api := newTestAPI(t)
	client, _ := api.signup("client@studio.test", "client")
	artist, _ := api.signup("artist@studio.test", "artist")

	w, resp := api.do(http.MethodPost, "/api/projects", artist, map[string]any{
		"title": "Loft", "description": "d", "budget": 3000,
	})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "unauthorized", resp.Reason)

	w, resp = api.do(http.MethodPost, "/api/projects", client, map[string]any{
		"title": "Loft", "description": "Two interior stills", "budget": 3000,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	project := decode[idVersion](t, resp)
	require.Equal(t, "open", project.Status)

	w, resp = api.do(http.MethodGet, "/api/projects", artist, nil)
	require.Equal(t, http.StatusOK, w.Code)
	board := decode[struct {
		Total int64 `json:"total"`
	}](t, resp)
	require.Equal(t, int64(1), board.Total)

	applyPath := fmt.Sprintf("/api/projects/%d/applications", project.ID)
	w, resp = api.do(http.MethodPost, applyPath, artist, map[string]any{
		"proposal": "Night and day variants", "quoted_price": 2800, "revision_rounds": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	app := decode[idVersion](t, resp)

	w, resp = api.do(http.MethodPost, applyPath, artist, map[string]any{
		"proposal": "again", "quoted_price": 2700,
	})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "duplicate_application", resp.Reason)

	decisionPath := fmt.Sprintf("/api/applications/%d/decision", app.ID)
	w, resp = api.do(http.MethodPost, decisionPath, client, map[string]any{
		"decision": "accept", "expected_version": app.Version + 5,
	})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "stale_state", resp.Reason)

	w, _ = api.do(http.MethodPost, decisionPath, client, map[string]any{"decision": "accept"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, resp = api.do(http.MethodGet, "/api/engagements", artist, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[[]map[string]any](t, resp), 1)

	deliveries := fmt.Sprintf("/api/engagements/project/%d/deliveries", project.ID)
	w, resp = api.do(http.MethodPost, deliveries, artist, map[string]any{
		"round": 1, "files": []string{"renders/loft-day.png"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	d1 := decode[idVersion](t, resp)

	review := fmt.Sprintf("/api/deliveries/%d/review", d1.ID)
	w, _ = api.do(http.MethodPost, review, client, map[string]any{"decision": "request_revision"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, resp = api.do(http.MethodPost, deliveries, artist, map[string]any{
		"round": 2, "files": []string{"renders/loft-night.png"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Equal(t, "round_limit_exceeded", resp.Reason)

	w, resp = api.do(http.MethodGet, deliveries, client, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Limit        int  `json:"limit"`
		NextRound    int  `json:"next_round"`
		LimitReached bool `json:"limit_reached"`
	}](t, resp)
	require.Equal(t, 1, list.Limit)
	require.Zero(t, list.NextRound)
	require.True(t, list.LimitReached)

	historyPath := fmt.Sprintf("/api/engagements/project/%d/history", project.ID)
	w, _ = api.do(http.MethodGet, historyPath, client, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestPackageFlow(t *testing.T) {
	api := newTestAPI(t)
	client, _ := api.signup("client@studio.test", "client")
	artist, _ := api.signup("artist@studio.test", "artist")

	w, resp := api.do(http.MethodPost, "/api/packages", artist, map[string]any{
		"tier": "basic", "title": "Single still", "price": 900, "delivery_days": 3,
		"revision_rounds": 1, "features": []string{"1 view"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	pkg := decode[idVersion](t, resp)

	w, resp = api.do(http.MethodPost, fmt.Sprintf("/api/packages/%d/orders", pkg.ID), client, map[string]any{
		"project_description": "Kitchen refresh",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[idVersion](t, resp)
	require.Equal(t, "pending", order.Status)

	w, _ = api.do(http.MethodPost, fmt.Sprintf("/api/orders/%d/start", order.ID), client, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w, resp = api.do(http.MethodPost, fmt.Sprintf("/api/orders/%d/start", order.ID), artist, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "in_progress", decode[idVersion](t, resp).Status)

	deliveries := fmt.Sprintf("/api/engagements/package-order/%d/deliveries", order.ID)
	w, resp = api.do(http.MethodPost, deliveries, artist, map[string]any{
		"round": 1, "files": []string{"renders/kitchen.png"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	d := decode[idVersion](t, resp)

	w, _ = api.do(http.MethodPost, fmt.Sprintf("/api/deliveries/%d/review", d.ID), client, map[string]any{"decision": "accept"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	approve := fmt.Sprintf("/api/engagements/package_order/%d/approve", order.ID)
	w, _ = api.do(http.MethodPost, approve, artist, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w, resp = api.do(http.MethodPost, approve, client, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, resp = api.do(http.MethodGet, "/api/engagements", client, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, decode[[]map[string]any](t, resp))
}

func TestQuoteFlow(t *testing.T) {
	api := newTestAPI(t)
	client, _ := api.signup("client@studio.test", "client")
	artist, artistID := api.signup("artist@studio.test", "artist")

	w, resp := api.do(http.MethodPost, "/api/quote-requests", client, map[string]any{
		"artist_id": artistID, "title": "Masterplan", "description": "Aerial view",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	qr := decode[idVersion](t, resp)

	decision := fmt.Sprintf("/api/quote-requests/%d/decision", qr.ID)
	w, resp = api.do(http.MethodPost, decision, client, map[string]any{"decision": "accept"})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "invalid_transition", resp.Reason)

	w, _ = api.do(http.MethodPost, fmt.Sprintf("/api/quote-requests/%d/quote", qr.ID), artist, map[string]any{
		"proposed_price": 5200, "delivery_days": 6,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, resp = api.do(http.MethodPost, decision, client, map[string]any{"decision": "accept"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "accepted", decode[idVersion](t, resp).Status)

	w, resp = api.do(http.MethodGet, "/api/engagements", artist, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]struct {
		SourceKind string  `json:"source_kind"`
		Price      float64 `json:"price"`
	}](t, resp)
	require.Len(t, list, 1)
	require.Equal(t, 5200.0, list[0].Price)
}

func TestHandlers_BadParams(t *testing.T) {
	api := newTestAPI(t)
	client, _ := api.signup("client@studio.test", "client")

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"non-numeric id", http.MethodGet, "/api/projects/abc", http.StatusBadRequest},
		{"zero id", http.MethodPost, "/api/projects/0/close", http.StatusBadRequest},
		{"unknown engagement kind", http.MethodGet, "/api/engagements/invoice/1/deliveries", http.StatusBadRequest},
		{"missing project", http.MethodGet, "/api/projects/404", http.StatusNotFound},
		{"no token", http.MethodGet, "/api/engagements", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := client
			if tt.want == http.StatusUnauthorized {
				token = ""
			}
			w, _ := api.do(tt.method, tt.path, token, nil)
			require.Equal(t, tt.want, w.Code)
		})
	}
}

func TestHealthHandler(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status     string         `json:"status"`
		Components map[string]any `json:"components"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "healthy", body.Status)
	require.Equal(t, "ok", body.Components["database"])
	require.Equal(t, "sync", body.Components["queue_mode"])
	require.EqualValues(t, 0, body.Components["sse_dropped"])
}

func TestCalendarHandler_Countries(t *testing.T) {
	r := gin.New()
	r.GET("/countries", NewCalendarHandler(services.NewCalendarService()).Countries)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/countries", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []services.CountryInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	codes := make([]string, len(resp.Data))
	for i, c := range resp.Data {
		codes[i] = c.Code
	}
	require.Contains(t, codes, "BR")
	require.Contains(t, codes, "CN")
}
