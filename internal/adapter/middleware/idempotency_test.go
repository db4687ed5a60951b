package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"
)

const (
	testReqID  = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	testMember = "alice"
	testRoute  = "/groups/:group_id/loans"
	testPath   = "/groups/" + "gggggggggggggggggggggggggggggggg" + "/loans"
)

func setupEcho(t *testing.T, rdb *redis.Client, ttl time.Duration, handler echo.HandlerFunc) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.HideBanner = true
	e.Use(Idempotency(rdb, ttl, zaptest.NewLogger(t)))
	e.POST(testRoute, handler)
	e.GET(testRoute, handler)
	return e
}

func mkJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(b)
}

func doReq(t *testing.T, e *echo.Echo, method, path string, body io.Reader, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func validHeaders() map[string]string {
	return map[string]string{
		HeaderRequestID: testReqID,
		HeaderRequestAt: time.Now().UTC().Format(time.RFC3339),
		HeaderMemberID:  testMember,
	}
}

// counts handler invocations so replays can be told apart from re-execution
func countingHandler(calls *int32, status int) echo.HandlerFunc {
	return func(c echo.Context) error {
		n := atomic.AddInt32(calls, 1)
		return c.JSON(status, map[string]any{"call": n})
	}
}

func Test_BypassOnGET_NoHeadersRequired(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	e := setupEcho(t, rdb, 30*time.Second, func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "get ok"})
	})
	if rec := doReq(t, e, http.MethodGet, testPath, nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func Test_ValidationFailures(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	var calls int32
	e := setupEcho(t, rdb, 30*time.Second, countingHandler(&calls, http.StatusCreated))

	tests := []struct {
		name string
		mut  func(h map[string]string)
	}{
		{"missing request id", func(h map[string]string) { delete(h, HeaderRequestID) }},
		{"invalid request id", func(h map[string]string) { h[HeaderRequestID] = "NOT-VALID" }},
		{"invalid request at", func(h map[string]string) { h[HeaderRequestAt] = "not-a-time" }},
		{"skewed request at", func(h map[string]string) {
			h[HeaderRequestAt] = time.Now().UTC().Add(-maxClockSkew - time.Minute).Format(time.RFC3339)
		}},
		{"missing member", func(h map[string]string) { delete(h, HeaderMemberID) }},
		{"invalid member", func(h map[string]string) { h[HeaderMemberID] = "has spaces" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := validHeaders()
			tt.mut(h)
			rec := doReq(t, e, http.MethodPost, testPath, mkJSONBody(t, map[string]int{"x": 1}), h)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("want 400, got %d body=%s", rec.Code, rec.Body.String())
			}
		})
	}
	if calls != 0 {
		t.Fatalf("handler ran %d times for rejected requests", calls)
	}
}

func Test_HappyPath_Then_Replay(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	var calls int32
	e := setupEcho(t, rdb, 2*time.Minute, countingHandler(&calls, http.StatusCreated))

	h := validHeaders()
	rec1 := doReq(t, e, http.MethodPost, testPath, mkJSONBody(t, map[string]any{"amount": 5000}), h)
	if rec1.Code != http.StatusCreated {
		t.Fatalf("first request => want 201, got %d, body: %s", rec1.Code, rec1.Body.String())
	}

	rec2 := doReq(t, e, http.MethodPost, testPath, mkJSONBody(t, map[string]any{"amount": 5000}), h)
	if rec2.Code != http.StatusCreated {
		t.Fatalf("replay => want 201, got %d, body: %s", rec2.Code, rec2.Body.String())
	}
	if rec1.Body.String() != rec2.Body.String() {
		t.Fatalf("replay body mismatch: %q vs %q", rec1.Body.String(), rec2.Body.String())
	}
	if rec2.Header().Get("Idempotent-Replay") != "true" {
		t.Fatal("replay should be marked")
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}

	// another member may reuse the same request id
	h[HeaderMemberID] = "bob"
	if rec := doReq(t, e, http.MethodPost, testPath, mkJSONBody(t, map[string]any{"amount": 5000}), h); rec.Code != http.StatusCreated {
		t.Fatalf("other member => want 201, got %d", rec.Code)
	}
	if calls != 2 {
		t.Fatalf("handler ran %d times, want 2", calls)
	}
}

func Test_PolicyRefusalIsReplayed(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	var calls int32
	e := setupEcho(t, rdb, time.Minute, countingHandler(&calls, http.StatusConflict))

	h := validHeaders()
	for i := 0; i < 2; i++ {
		if rec := doReq(t, e, http.MethodPost, testPath, strings.NewReader(`{}`), h); rec.Code != http.StatusConflict {
			t.Fatalf("attempt %d => want 409, got %d", i, rec.Code)
		}
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
}

func Test_ServerFailureReleasesKey(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	var calls int32
	e := setupEcho(t, rdb, time.Minute, countingHandler(&calls, http.StatusServiceUnavailable))

	h := validHeaders()
	for i := 0; i < 2; i++ {
		if rec := doReq(t, e, http.MethodPost, testPath, strings.NewReader(`{}`), h); rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("attempt %d => want 503, got %d", i, rec.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("a failed attempt must not be replayed; handler ran %d times", calls)
	}
	key := buildKey(http.MethodPost, testRoute, testMember, testReqID)
	if n := rdb.Exists(context.Background(), key).Val(); n != 0 {
		t.Fatalf("key should be released, exists=%d", n)
	}
}

func Test_Conflict_When_InProgress(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	e := setupEcho(t, rdb, 2*time.Minute, countingHandler(new(int32), http.StatusCreated))

	body := []byte(`{"x":1}`)
	key := buildKey(http.MethodPost, testRoute, testMember, testReqID)
	entry := idempEntry{
		InProgress:  true,
		BodySHA256:  bodyHash(body),
		RequestID:   testReqID,
		RequestAtMS: time.Now().UnixMilli(),
		CreatedAt:   time.Now().UTC(),
	}
	if ok, err := provisionalSet(context.Background(), rdb, key, entry); err != nil || !ok {
		t.Fatalf("seed provisional failed, ok=%v err=%v", ok, err)
	}

	rec := doReq(t, e, http.MethodPost, testPath, bytes.NewReader(body), validHeaders())
	if rec.Code != http.StatusConflict {
		t.Fatalf("in-progress => want 409, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func Test_Conflict_When_SameReqID_DifferentBody(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	e := setupEcho(t, rdb, 2*time.Minute, countingHandler(new(int32), http.StatusCreated))

	key := buildKey(http.MethodPost, testRoute, testMember, testReqID)
	final := idempEntry{
		Code:        http.StatusCreated,
		Body:        []byte(`{"ok":true}`),
		BodySHA256:  bodyHash([]byte(`{"x":1}`)),
		RequestID:   testReqID,
		RequestAtMS: time.Now().UnixMilli(),
		CreatedAt:   time.Now().UTC(),
	}
	if err := saveFinal(context.Background(), rdb, key, final, 5*time.Minute); err != nil {
		t.Fatalf("seed final failed: %v", err)
	}

	rec := doReq(t, e, http.MethodPost, testPath, strings.NewReader(`{"x":2}`), validHeaders())
	if rec.Code != http.StatusConflict {
		t.Fatalf("different body same reqID => want 409, got %d", rec.Code)
	}
}

func Test_StoreUnavailable_Returns503(t *testing.T) {
	// closed port: SetNX fails fast
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	e := setupEcho(t, rdb, time.Minute, countingHandler(new(int32), http.StatusCreated))

	rec := doReq(t, e, http.MethodPost, testPath, strings.NewReader(`{}`), validHeaders())
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("store unavailable => want 503, got %d", rec.Code)
	}
}
