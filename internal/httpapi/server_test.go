package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"limbobot/internal/notify"
	"limbobot/internal/registry"
	logx "limbobot/pkg/logx"
)

type fakeDispatcher struct {
	res  notify.Result
	last notify.Inquiry
	user string
}

func (f *fakeDispatcher) Dispatch(_ context.Context, rawUsername string, inq notify.Inquiry) notify.Result {
	f.user = rawUsername
	f.last = inq
	return f.res
}

type fakeLookup map[string]registry.Artist

func (f fakeLookup) FindByUsername(raw string) (registry.Artist, bool) {
	a, ok := f[registry.NormalizeUsername(raw)]
	return a, ok
}

func newTestServer(d Dispatcher, lookup ArtistLookup) *Server {
	return NewServer(Config{Port: 0, RatePerSec: 100}, d, lookup, logx.Nop())
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("invalid JSON response: %v\n%s", err, rec.Body.String())
	}
	return m
}

const validInquiry = `{
	"workTitle": "Закат",
	"artistUsername": "@vasya",
	"price": 15000,
	"customer": {"fullName": "Иван Петров", "phone": "+79990001122"}
}`

func TestNotificationDelivered(t *testing.T) {
	t.Parallel()

	d := &fakeDispatcher{res: notify.Result{Status: notify.StatusDelivered, Message: "Уведомление доставлено художнику"}}
	srv := newTestServer(d, fakeLookup{})

	rec := postJSON(t, srv.Routes(), "/api/notification", validInquiry)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != true || body["artistFound"] != true {
		t.Fatalf("body = %v", body)
	}
	if _, err := time.Parse(time.RFC3339, body["timestamp"].(string)); err != nil {
		t.Fatalf("timestamp: %v", err)
	}
	if d.user != "@vasya" || d.last.WorkTitle != "Закат" {
		t.Fatalf("dispatcher got %q / %+v", d.user, d.last)
	}
	if d.last.Price == nil || *d.last.Price != 15000 {
		t.Fatalf("price not decoded: %+v", d.last.Price)
	}
}

func TestNotificationOutcomeMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		res         notify.Result
		success     bool
		artistFound bool
	}{
		{"unknown", notify.Result{Status: notify.StatusUnknown}, false, false},
		{"unregistered", notify.Result{Status: notify.StatusUnregistered}, false, true},
		{"failed", notify.Result{Status: notify.StatusFailed, Detail: notify.DetailPermanent}, false, true},
		{"delivered", notify.Result{Status: notify.StatusDelivered}, true, true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := newTestServer(&fakeDispatcher{res: tc.res}, fakeLookup{})
			rec := postJSON(t, srv.Routes(), "/api/notification", validInquiry)
			if rec.Code != http.StatusOK {
				t.Fatalf("code = %d", rec.Code)
			}
			body := decodeBody(t, rec)
			if body["success"] != tc.success || body["artistFound"] != tc.artistFound {
				t.Fatalf("body = %v", body)
			}
		})
	}
}

func TestNotificationValidation(t *testing.T) {
	t.Parallel()

	d := &fakeDispatcher{}
	srv := newTestServer(d, fakeLookup{})

	rec := postJSON(t, srv.Routes(), "/api/notification",
		`{"workTitle":"", "artistUsername":" ", "customer":{"fullName":"","phone":""}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != false {
		t.Fatalf("body = %v", body)
	}
	errs, _ := body["errors"].([]any)
	if len(errs) != 4 {
		t.Fatalf("errors = %v", errs)
	}
	if d.user != "" {
		t.Fatal("invalid inquiry must not reach the dispatcher")
	}
}

func TestNotificationBadJSON(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeDispatcher{}, fakeLookup{})
	rec := postJSON(t, srv.Routes(), "/api/notification", "{broken")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d", rec.Code)
	}
}

func TestNotificationRateLimit(t *testing.T) {
	t.Parallel()

	srv := NewServer(Config{Port: 0, RatePerSec: 1}, &fakeDispatcher{res: notify.Result{Status: notify.StatusDelivered}}, fakeLookup{}, logx.Nop())
	h := srv.Routes()

	// Burst capacity equals the per-second rate, so the second immediate
	// request must be throttled.
	if rec := postJSON(t, h, "/api/notification", validInquiry); rec.Code != http.StatusOK {
		t.Fatalf("first request: code = %d", rec.Code)
	}
	rec := postJSON(t, h, "/api/notification", validInquiry)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: code = %d, want 429", rec.Code)
	}
}

func TestArtistStatus(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC().Truncate(time.Second)
	lookup := fakeLookup{
		"vasya": {Name: "Вася Пупкин", Username: "@vasya", Slug: "vasya-pupkin", RecipientID: "12345", RegisteredAt: &now},
		"anna":  {Name: "Анна", Username: "@anna", Slug: "anna"},
	}
	srv := newTestServer(&fakeDispatcher{}, lookup)
	h := srv.Routes()

	req := httptest.NewRequest(http.MethodGet, "/api/artist/VASYA/status", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["found"] != true || body["registered"] != true {
		t.Fatalf("body = %v", body)
	}
	if body["recipientId"] != "12345" {
		t.Fatalf("recipientId = %v", body["recipientId"])
	}
	if body["registeredAt"] != now.Format(time.RFC3339) {
		t.Fatalf("registeredAt = %v", body["registeredAt"])
	}

	// Known but unregistered: no binding fields in the response.
	req = httptest.NewRequest(http.MethodGet, "/api/artist/anna/status", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	body = decodeBody(t, rec)
	if body["found"] != true || body["registered"] != false {
		t.Fatalf("body = %v", body)
	}
	if _, ok := body["recipientId"]; ok {
		t.Fatalf("unregistered artist must not expose recipientId: %v", body)
	}
}

func TestArtistStatusUnknown(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeDispatcher{}, fakeLookup{})
	req := httptest.NewRequest(http.MethodGet, "/api/artist/nobody/status", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, unknown artist is not an HTTP error", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["found"] != false {
		t.Fatalf("body = %v", body)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeDispatcher{}, fakeLookup{})
	h := srv.Routes()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("request id not assigned")
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "given-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got != "given-id" {
		t.Fatalf("request id = %q, want caller-provided id", got)
	}
}

func TestRecovererReturns500(t *testing.T) {
	t.Parallel()

	srv := newTestServer(panicDispatcher{}, fakeLookup{})
	rec := postJSON(t, srv.Routes(), "/api/notification", validInquiry)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != false {
		t.Fatalf("body = %v", body)
	}
}

type panicDispatcher struct{}

func (panicDispatcher) Dispatch(context.Context, string, notify.Inquiry) notify.Result {
	panic("boom")
}
