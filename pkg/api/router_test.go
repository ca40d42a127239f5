package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"constantdb/pkg/storage"
)

const piPrefix = "31415926535897932384626433832795028841971693993751"

func testDigits(n int) string {
	var b strings.Builder
	b.WriteString(piPrefix)
	for b.Len() < n {
		b.WriteByte(byte('0' + (b.Len()*7+3)%10))
	}
	return b.String()[:n]
}

func newTestRouter(t *testing.T) (http.Handler, *storage.Registry) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "pi_digits.txt"), []byte(testDigits(1000)+"\n"), 0o644); err != nil {
		t.Fatalf("write digits: %v", err)
	}
	reg, err := storage.OpenRegistry(storage.RegistryConfig{DataDir: dir, ChunkSize: 100})
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	t.Cleanup(func() { reg.Close() })
	return NewRouter(reg, RateLimitConfig{}, func() bool { return true }), reg
}

func doReq(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func TestHealthEndpoints(t *testing.T) {
	h, _ := newTestRouter(t)
	if rr := doReq(t, h, http.MethodGet, "/healthz"); rr.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rr.Code)
	}
	if rr := doReq(t, h, http.MethodGet, "/readyz"); rr.Code != http.StatusOK {
		t.Fatalf("readyz = %d", rr.Code)
	}
}

func TestReadyzNotReady(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "pi_digits.txt"), []byte(testDigits(1000)+"\n"), 0o644); err != nil {
		t.Fatalf("write digits: %v", err)
	}
	reg, err := storage.OpenRegistry(storage.RegistryConfig{DataDir: dir})
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	defer reg.Close()

	h := NewRouter(reg, RateLimitConfig{}, func() bool { return false })
	if rr := doReq(t, h, http.MethodGet, "/readyz"); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz while starting = %d", rr.Code)
	}
}

func TestListConstants(t *testing.T) {
	h, _ := newTestRouter(t)
	rr := doReq(t, h, http.MethodGet, "/v1/constants")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body struct {
		Constants []struct {
			ID        string `json:"id"`
			Available bool   `json:"available"`
		} `json:"constants"`
	}
	decode(t, rr, &body)
	if len(body.Constants) != 12 {
		t.Fatalf("got %d constants", len(body.Constants))
	}
	found := false
	for _, c := range body.Constants {
		if c.ID == "pi" {
			found = true
			if !c.Available {
				t.Fatal("pi should be available")
			}
		} else if c.Available {
			t.Fatalf("%s should not be available", c.ID)
		}
	}
	if !found {
		t.Fatal("pi missing from catalog")
	}
}

func TestGetDigitsEndpoint(t *testing.T) {
	h, _ := newTestRouter(t)
	rr := doReq(t, h, http.MethodGet, "/v1/constants/pi/digits?start=0&length=10")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Constant string `json:"constant"`
		Digits   string `json:"digits"`
	}
	decode(t, rr, &body)
	if body.Constant != "pi" || body.Digits != piPrefix[:10] {
		t.Fatalf("body = %+v", body)
	}
}

func TestGetDigitsErrors(t *testing.T) {
	h, _ := newTestRouter(t)
	cases := []struct {
		name   string
		target string
		code   int
	}{
		{"unknown constant", "/v1/constants/tau/digits", http.StatusNotFound},
		{"bad start", "/v1/constants/pi/digits?start=abc", http.StatusBadRequest},
		{"bad length", "/v1/constants/pi/digits?length=-5", http.StatusBadRequest},
		{"out of range", "/v1/constants/pi/digits?start=5000&length=10", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rr := doReq(t, h, http.MethodGet, tc.target); rr.Code != tc.code {
				t.Fatalf("status = %d, want %d", rr.Code, tc.code)
			}
		})
	}
}

func TestSearchEndpoint(t *testing.T) {
	h, _ := newTestRouter(t)
	rr := doReq(t, h, http.MethodGet, "/v1/constants/pi/search?sequence=14159&max_results=1")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Positions []int64 `json:"positions"`
		Count     int     `json:"count"`
	}
	decode(t, rr, &body)
	if body.Count != 1 || len(body.Positions) != 1 || body.Positions[0] != 1 {
		t.Fatalf("body = %+v", body)
	}

	if rr := doReq(t, h, http.MethodGet, "/v1/constants/pi/search"); rr.Code != http.StatusBadRequest {
		t.Fatalf("missing sequence = %d", rr.Code)
	}
	if rr := doReq(t, h, http.MethodGet, "/v1/constants/pi/search?sequence=12x"); rr.Code != http.StatusBadRequest {
		t.Fatalf("non-digit sequence = %d", rr.Code)
	}
}

func TestAdminBuildAndVerify(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := doReq(t, h, http.MethodPost, "/v1/admin/constants/pi/cache")
	if rr.Code != http.StatusOK {
		t.Fatalf("build = %d: %s", rr.Code, rr.Body.String())
	}
	var res struct {
		Status string `json:"status"`
	}
	decode(t, rr, &res)
	if res.Status != "success" {
		t.Fatalf("build status = %q", res.Status)
	}

	rr = doReq(t, h, http.MethodPost, "/v1/admin/constants/pi/cache")
	decode(t, rr, &res)
	if res.Status != "skipped" {
		t.Fatalf("second build status = %q", res.Status)
	}

	rr = doReq(t, h, http.MethodGet, "/v1/admin/constants/pi/verify")
	if rr.Code != http.StatusOK {
		t.Fatalf("verify = %d", rr.Code)
	}
	var verify struct {
		ChunksChecked int  `json:"chunks_checked"`
		Healthy       bool `json:"healthy"`
	}
	decode(t, rr, &verify)
	if !verify.Healthy || verify.ChunksChecked == 0 {
		t.Fatalf("verify = %+v", verify)
	}

	rr = doReq(t, h, http.MethodGet, "/v1/constants/pi/status")
	var st struct {
		CacheComplete bool `json:"cache_complete"`
	}
	decode(t, rr, &st)
	if !st.CacheComplete {
		t.Fatal("cache should be complete after build")
	}
}

func TestAdminBuildAll(t *testing.T) {
	h, _ := newTestRouter(t)
	rr := doReq(t, h, http.MethodPost, "/v1/admin/cache")
	if rr.Code != http.StatusOK {
		t.Fatalf("build all = %d: %s", rr.Code, rr.Body.String())
	}
	var sum struct {
		Success int `json:"success"`
		Failed  int `json:"failed"`
	}
	decode(t, rr, &sum)
	if sum.Success != 1 || sum.Failed != 0 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestRateLimit(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "pi_digits.txt"), []byte(testDigits(1000)+"\n"), 0o644); err != nil {
		t.Fatalf("write digits: %v", err)
	}
	reg, err := storage.OpenRegistry(storage.RegistryConfig{DataDir: dir})
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	defer reg.Close()

	h := NewRouter(reg, RateLimitConfig{RPS: 0.001, Burst: 1}, func() bool { return true })

	if rr := doReq(t, h, http.MethodGet, "/v1/constants"); rr.Code != http.StatusOK {
		t.Fatalf("first request = %d", rr.Code)
	}
	if rr := doReq(t, h, http.MethodGet, "/v1/constants"); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", rr.Code)
	}
	// probes bypass the limiter
	if rr := doReq(t, h, http.MethodGet, "/healthz"); rr.Code != http.StatusOK {
		t.Fatalf("healthz under limit = %d", rr.Code)
	}
}
