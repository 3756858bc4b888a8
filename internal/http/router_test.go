package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hintlabs/hint-server/internal/config"
	"github.com/hintlabs/hint-server/internal/domain"
	"github.com/hintlabs/hint-server/internal/repo"
)

func init() { gin.SetMode(gin.TestMode) }

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	cfg := config.Config{
		APIBasePath:     "/api/v1",
		ViewerBaseURL:   "https://hint.example.com/l",
		ClaimPoints:     10,
		UnclaimTokenLen: 32,
		RateRPS:         1000,
		RateBurst:       1000,
	}

	r := gin.New()
	RegisterRoutes(r, db, cfg)
	return r, db
}

func request(t *testing.T, r *gin.Engine, method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	// Skip gzip so bodies can be asserted as plain JSON.
	req.Header.Set("Accept-Encoding", "identity")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	w := request(t, r, http.MethodGet, "/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("body = %s", w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("no X-Request-ID header")
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("ACAO = %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("X-Content-Type-Options = %q", w.Header().Get("X-Content-Type-Options"))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	// One real request so counters have something to show.
	request(t, r, http.MethodGet, "/health", nil, nil)

	w := request(t, r, http.MethodGet, "/metrics", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Fatal("metrics output missing request counter")
	}
}

func TestNoRouteAndNoMethod(t *testing.T) {
	r, _ := newTestRouter(t)

	w := request(t, r, http.MethodGet, "/api/v1/nope", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown route: status = %d", w.Code)
	}
	var er struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil || er.Code != "not_found" {
		t.Fatalf("error envelope = %s", w.Body.String())
	}

	w = request(t, r, http.MethodDelete, "/api/v1/lists", nil, nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("bad method: status = %d", w.Code)
	}
}

// TestGuestClaimFlow drives the full stack end to end: an owner creates a
// list with products, a guest resolves the shared code, claims a product,
// loses the re-claim race, and finally releases the claim via the mailed link.
func TestGuestClaimFlow(t *testing.T) {
	r, _ := newTestRouter(t)
	owner := map[string]string{"X-User-ID": "owner-1"}

	// Owner: create a public list and two products.
	w := request(t, r, http.MethodPost, "/api/v1/lists", map[string]any{
		"name": "Maria's wedding", "owner_name": "Maria", "owner_email": "maria@example.com",
		"is_public": true, "notification_level": "both",
	}, owner)
	if w.Code != http.StatusCreated {
		t.Fatalf("create list: status = %d, body %s", w.Code, w.Body.String())
	}
	var list domain.List
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}

	for _, name := range []string{"Headphones", "Vase"} {
		w = request(t, r, http.MethodPost, "/api/v1/lists/"+list.ID+"/products",
			map[string]string{"name": name}, owner)
		if w.Code != http.StatusCreated {
			t.Fatalf("add %s: status = %d", name, w.Code)
		}
	}

	// Guest: resolve the shared code.
	w = request(t, r, http.MethodGet, "/api/v1/guest/lists?code="+list.AccessCode, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("resolve: status = %d, body %s", w.Code, w.Body.String())
	}
	var resolved struct {
		List struct {
			ID string `json:"id"`
		} `json:"list"`
		Products []struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Claimed bool   `json:"claimed"`
		} `json:"products"`
		AvailableCount int `json:"available_count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resolved); err != nil {
		t.Fatalf("decode resolve: %v", err)
	}
	if resolved.List.ID != list.ID || resolved.AvailableCount != 2 {
		t.Fatalf("resolve = %+v", resolved)
	}
	var target string
	for _, p := range resolved.Products {
		if p.Name == "Headphones" {
			target = p.ID
		}
	}
	if target == "" {
		t.Fatal("headphones not in resolve payload")
	}

	// Guest: claim the headphones.
	w = request(t, r, http.MethodPost, "/api/v1/guest/products/"+target+"/claim", map[string]string{
		"code": list.AccessCode, "name": "Alex", "email": "alex@example.com",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("claim: status = %d, body %s", w.Code, w.Body.String())
	}
	var claim struct {
		UnclaimURL string `json:"unclaim_url"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &claim); err != nil {
		t.Fatalf("decode claim: %v", err)
	}
	if !strings.Contains(claim.UnclaimURL, "unclaim=") {
		t.Fatalf("unclaim url = %q", claim.UnclaimURL)
	}

	// Another guest loses the race.
	w = request(t, r, http.MethodPost, "/api/v1/guest/products/"+target+"/claim", map[string]string{
		"code": list.AccessCode, "name": "Bea", "email": "bea@example.com",
	}, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("second claim: status = %d", w.Code)
	}

	// Availability now shows one product.
	w = request(t, r, http.MethodGet, "/api/v1/guest/lists/"+list.ID+"/available?code="+list.AccessCode, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("available: status = %d", w.Code)
	}
	var avail struct {
		Products []struct {
			Name string `json:"name"`
		} `json:"products"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &avail); err != nil {
		t.Fatalf("decode available: %v", err)
	}
	if len(avail.Products) != 1 || avail.Products[0].Name != "Vase" {
		t.Fatalf("available = %+v", avail.Products)
	}

	// Guest follows the mailed link: extract product/token from the URL.
	parsed := claim.UnclaimURL[strings.Index(claim.UnclaimURL, "?")+1:]
	params := map[string]string{}
	for _, kv := range strings.Split(parsed, "&") {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			params[parts[0]] = parts[1]
		}
	}

	w = request(t, r, http.MethodGet,
		"/api/v1/guest/unclaim?product="+params["product"]+"&token="+params["unclaim"], nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("verify unclaim: status = %d, body %s", w.Code, w.Body.String())
	}

	w = request(t, r, http.MethodPost, "/api/v1/guest/unclaim", map[string]string{
		"product": params["product"], "token": params["unclaim"],
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("commit unclaim: status = %d, body %s", w.Code, w.Body.String())
	}

	// Both products are available again; the spent link is terminal.
	w = request(t, r, http.MethodGet, "/api/v1/guest/lists?code="+list.AccessCode, nil, nil)
	if err := json.Unmarshal(w.Body.Bytes(), &resolved); err != nil {
		t.Fatalf("decode resolve: %v", err)
	}
	if resolved.AvailableCount != 2 {
		t.Fatalf("available after unclaim = %d", resolved.AvailableCount)
	}
	w = request(t, r, http.MethodPost, "/api/v1/guest/unclaim", map[string]string{
		"product": params["product"], "token": params["unclaim"],
	}, nil)
	if w.Code != http.StatusGone {
		t.Fatalf("spent link: status = %d", w.Code)
	}

	// The owner's history recorded the claim and the release.
	w = request(t, r, http.MethodGet, "/api/v1/notifications", nil, owner)
	if w.Code != http.StatusOK {
		t.Fatalf("notifications: status = %d", w.Code)
	}
	var hist struct {
		Notifications []struct {
			Kind string `json:"kind"`
		} `json:"notifications"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(hist.Notifications) != 2 {
		t.Fatalf("history rows = %d", len(hist.Notifications))
	}
}

func TestIdempotencyKeyRejectedWhenTooLong(t *testing.T) {
	r, _ := newTestRouter(t)

	w := request(t, r, http.MethodPost, "/api/v1/guest/products/"+uuid.NewString()+"/claim",
		map[string]string{"code": "GIFT24", "name": "Alex", "email": "alex@example.com"},
		map[string]string{"Idempotency-Key": strings.Repeat("k", 300)})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("oversized key: status = %d, body %s", w.Code, w.Body.String())
	}
}
