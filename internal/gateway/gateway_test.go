package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/asset-gateway/internal/api/dto"
	"github.com/spec-kit/asset-gateway/internal/config"
	"github.com/spec-kit/asset-gateway/internal/credential"
	"github.com/spec-kit/asset-gateway/internal/events"
	"github.com/spec-kit/asset-gateway/internal/observability"
	apperrors "github.com/spec-kit/asset-gateway/pkg/util"
)

type testEnv struct {
	gateway    *Gateway
	durable    *credential.MemoryStore
	session    *credential.MemoryStore
	metrics    *observability.Metrics
	dispatcher events.Dispatcher
}

func newTestEnv(t *testing.T, handler http.HandlerFunc) *testEnv {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	env := &testEnv{
		durable:    credential.NewMemoryStore(),
		session:    credential.NewMemoryStore(),
		metrics:    observability.NewMetrics(),
		dispatcher: events.NewInMemoryDispatcher(),
	}
	keyring := credential.NewKeyring(env.durable, env.session, "authToken")
	gw, err := New(config.GatewayConfig{BaseURL: server.URL + "/v1", UserAgent: "test"}, keyring,
		WithHTTPClient(server.Client()),
		WithLogger(zaptest.NewLogger(t)),
		WithMetrics(env.metrics),
		WithDispatcher(env.dispatcher),
	)
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	env.gateway = gw
	return env
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func asDomainError(t *testing.T, err error) *apperrors.DomainError {
	t.Helper()
	var failure *apperrors.DomainError
	if !errors.As(err, &failure) {
		t.Fatalf("expected *DomainError, got %T (%v)", err, err)
	}
	return failure
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://host/v1", "http:///v1", "::bad"} {
		if _, err := New(config.GatewayConfig{BaseURL: raw}, nil); err == nil {
			t.Fatalf("expected error for base url %q", raw)
		}
	}
}

func TestBearerHeaderFollowsStoredCredential(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{}})
	})
	ctx := context.Background()
	req := Request{Method: http.MethodGet, Path: "/customers"}

	if err := env.gateway.Do(ctx, req, nil); err != nil {
		t.Fatalf("no token: %v", err)
	}
	_ = env.session.Set(ctx, "authToken", "session-tok")
	if err := env.gateway.Do(ctx, req, nil); err != nil {
		t.Fatalf("session token: %v", err)
	}
	_ = env.durable.Set(ctx, "authToken", "durable-tok")
	if err := env.gateway.Do(ctx, req, nil); err != nil {
		t.Fatalf("durable token: %v", err)
	}

	want := []string{"", "Bearer session-tok", "Bearer durable-tok"}
	if !reflect.DeepEqual(seen, want) {
		t.Fatalf("authorization headers = %q, want %q", seen, want)
	}
}

func TestRequestCarriesPathQueryAndHeaders(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/customers/abc" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("page") != "2" {
			t.Errorf("expected page query, got %q", r.URL.RawQuery)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Errorf("expected request id header")
		}
		if r.Header.Get("User-Agent") != "test" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": "abc", "name": "Acme"}})
	})

	var out dto.DataEnvelope[map[string]any]
	err := env.gateway.Do(context.Background(), Request{
		Method: http.MethodGet,
		Path:   "customers/abc",
		Query:  map[string][]string{"page": {"2"}},
	}, &out)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if out.Data["name"] != "Acme" {
		t.Fatalf("unexpected payload %+v", out)
	}
}

func TestJSONBodySetsContentType(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusCreated, map[string]any{"message": "created", "data": body})
	})

	var out dto.MessageEnvelope[map[string]string]
	err := env.gateway.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/sites",
		Body:   JSONBody{Value: map[string]string{"name": "HQ"}},
	}, &out)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if out.Message != "created" || out.Data == nil || (*out.Data)["name"] != "HQ" {
		t.Fatalf("unexpected envelope %+v", out)
	}
}

func TestMultipartBodyUploadsFileField(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data; boundary=") {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		content, _ := io.ReadAll(file)
		if header.Filename != "assets.csv" || string(content) != "tag,name\n" {
			t.Errorf("unexpected upload %q %q", header.Filename, content)
		}
		if r.FormValue("mode") != "upsert" {
			t.Errorf("expected scalar field, got %q", r.FormValue("mode"))
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "imported"})
	})

	err := env.gateway.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/assets/import",
		Body: MultipartBody{
			FileName: "assets.csv",
			Content:  strings.NewReader("tag,name\n"),
			Fields:   map[string]string{"mode": "upsert"},
		},
	}, nil)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
}

func TestMultipartBodyRequiresFile(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("request should not be dispatched")
	})
	err := env.gateway.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/assets/import",
		Body:   MultipartBody{FileName: "x.csv"},
	}, nil)
	if !apperrors.IsKind(err, apperrors.KindBadInput) {
		t.Fatalf("expected bad input, got %v", err)
	}
}

func TestPathMustStayUnderBase(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("request should not be dispatched for %s", r.URL.Path)
	})
	for _, path := range []string{"https://evil.example/x", "//evil.example/x", "../admin", "customers/../../x", "customers?x=1"} {
		err := env.gateway.Do(context.Background(), Request{Method: http.MethodGet, Path: path}, nil)
		if !apperrors.IsKind(err, apperrors.KindBadInput) {
			t.Fatalf("path %q: expected bad input, got %v", path, err)
		}
	}
}

func TestEscapedIDsReachServerOnce(t *testing.T) {
	var mu sync.Mutex
	var decoded, escaped []string
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/bulk-delete") {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"message": "Route not found"}})
			return
		}
		mu.Lock()
		decoded = append(decoded, r.URL.Path)
		escaped = append(escaped, r.URL.EscapedPath())
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"message": "deleted"})
	})

	result, err := env.gateway.BulkDelete(context.Background(), "/customers", []string{"a b", "x/y", "é"})
	if err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	if result.DeletedCount != 3 {
		t.Fatalf("unexpected result %+v", result)
	}
	if want := []string{"/v1/customers/a b", "/v1/customers/x/y", "/v1/customers/é"}; !reflect.DeepEqual(decoded, want) {
		t.Fatalf("decoded paths = %v, want %v", decoded, want)
	}
	if escaped[1] != "/v1/customers/x%2Fy" {
		t.Fatalf("escaped slash lost: %q", escaped[1])
	}
	for _, p := range escaped {
		if strings.Contains(p, "%25") {
			t.Fatalf("path escaped twice: %q", p)
		}
	}
}

func TestMalformedEscapeIsBadInput(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("request should not be dispatched for %s", r.URL.Path)
	})
	for _, path := range []string{"/customers/100%", "/customers/%2E%2E/admin"} {
		err := env.gateway.Do(context.Background(), Request{Method: http.MethodGet, Path: path}, nil)
		if !apperrors.IsKind(err, apperrors.KindBadInput) {
			t.Fatalf("path %q: expected bad input, got %v", path, err)
		}
	}
}

func TestFailureMessageNormalization(t *testing.T) {
	cases := []struct {
		name        string
		status      int
		contentType string
		body        string
		wantMessage string
		wantCode    string
	}{
		{"nested", http.StatusBadRequest, "application/json", `{"error":{"code":"VALIDATION_FAILED","message":"X","details":{"name":"required"}}}`, "X", "VALIDATION_FAILED"},
		{"flat", http.StatusConflict, "application/json", `{"message":"Y"}`, "Y", ""},
		{"nested wins over flat", http.StatusBadRequest, "application/json", `{"error":{"message":"inner"},"message":"outer"}`, "inner", ""},
		{"numeric code", http.StatusBadRequest, "application/json", `{"error":{"code":42,"message":"Z"}}`, "Z", "42"},
		{"error string falls to raw text", http.StatusBadRequest, "application/json", `{"error":"plain"}`, `{"error":"plain"}`, ""},
		{"raw text", http.StatusBadGateway, "text/plain", "upstream exploded", "upstream exploded", ""},
		{"empty body", http.StatusServiceUnavailable, "text/plain", "", "HTTP 503: Service Unavailable", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tc.contentType)
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			err := env.gateway.Do(context.Background(), Request{Method: http.MethodGet, Path: "/customers"}, nil)
			failure := asDomainError(t, err)
			if failure.Message != tc.wantMessage {
				t.Fatalf("message = %q, want %q", failure.Message, tc.wantMessage)
			}
			if failure.Code != tc.wantCode {
				t.Fatalf("code = %q, want %q", failure.Code, tc.wantCode)
			}
			if failure.HTTPStatus != tc.status || failure.Kind != apperrors.KindDomain {
				t.Fatalf("unexpected status/kind %d/%s", failure.HTTPStatus, failure.Kind)
			}
		})
	}
}

func TestFailureDetailsCarried(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": map[string]any{"code": "VALIDATION_FAILED", "message": "invalid", "details": []string{"a", "b"}},
		})
	})
	err := env.gateway.Do(context.Background(), Request{Path: "/customers"}, nil)
	failure := asDomainError(t, err)
	items, ok := failure.Details["items"].([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("expected list details wrapped under items, got %#v", failure.Details)
	}
}

func TestUnauthorizedClearsBothScopes(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"code": "UNAUTHORIZED", "message": "invalid token"}})
	})
	ctx := context.Background()
	_ = env.durable.Set(ctx, "authToken", "stale")
	_ = env.session.Set(ctx, "authToken", "stale-too")

	var expired []events.Event
	env.dispatcher.Subscribe(events.EventSessionExpired, func(_ context.Context, e events.Event) error {
		expired = append(expired, e)
		return nil
	})

	err := env.gateway.Do(ctx, Request{Path: "/customers"}, nil)
	failure := asDomainError(t, err)
	if failure.Message != apperrors.MsgSessionExpired {
		t.Fatalf("expected session expired message, got %q", failure.Message)
	}
	if failure.Kind != apperrors.KindAuthorization || failure.HTTPStatus != http.StatusUnauthorized {
		t.Fatalf("unexpected kind/status %s/%d", failure.Kind, failure.HTTPStatus)
	}
	if failure.Details["backend_message"] != "invalid token" {
		t.Fatalf("expected backend message kept in details, got %#v", failure.Details)
	}
	if _, ok, _ := env.durable.Get(ctx, "authToken"); ok {
		t.Fatalf("durable token should be cleared")
	}
	if _, ok, _ := env.session.Get(ctx, "authToken"); ok {
		t.Fatalf("session token should be cleared")
	}
	if len(expired) != 1 {
		t.Fatalf("expected one session_expired event, got %d", len(expired))
	}
	if !IsSessionExpired(err) {
		t.Fatalf("IsSessionExpired should report true")
	}
}

func TestAuthMessagePatternClearsCredential(t *testing.T) {
	for _, body := range []string{`{"message":"Unauthorized access"}`, `{"error":{"message":"Verify token failed"}}`} {
		env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, body)
		})
		ctx := context.Background()
		_ = env.durable.Set(ctx, "authToken", "tok")

		err := env.gateway.Do(ctx, Request{Path: "/customers"}, nil)
		failure := asDomainError(t, err)
		if failure.Message != apperrors.MsgSessionExpired || failure.HTTPStatus != http.StatusForbidden {
			t.Fatalf("body %s: unexpected failure %+v", body, failure)
		}
		if _, _, ok, _ := env.gateway.Keyring().Resolve(ctx); ok {
			t.Fatalf("body %s: credential should be cleared", body)
		}
	}
}

func TestForbiddenWithoutAuthMessageKeepsCredential(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]any{"error": map[string]any{"message": "insufficient role"}})
	})
	ctx := context.Background()
	_ = env.durable.Set(ctx, "authToken", "tok")

	err := env.gateway.Do(ctx, Request{Path: "/customers"}, nil)
	if asDomainError(t, err).Message != "insufficient role" {
		t.Fatalf("unexpected message %v", err)
	}
	if _, _, ok, _ := env.gateway.Keyring().Resolve(ctx); !ok {
		t.Fatalf("credential should survive a plain 403")
	}
}

func TestNetworkFailureIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	gw, err := New(config.GatewayConfig{BaseURL: url + "/v1"}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	err = gw.Do(context.Background(), Request{Path: "/customers"}, nil)
	failure := asDomainError(t, err)
	if failure.Kind != apperrors.KindTransport || failure.HTTPStatus != 0 {
		t.Fatalf("expected transport failure without status, got %+v", failure)
	}
	if failure.Message != apperrors.MsgNetworkFailure {
		t.Fatalf("unexpected message %q", failure.Message)
	}
}

func TestResponseLimitIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "123456789")
	}))
	defer server.Close()

	gw, err := New(config.GatewayConfig{BaseURL: server.URL, MaxResponseBytes: 4}, nil, WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := gw.Download(context.Background(), Request{Path: "/reports/x"}); !apperrors.IsKind(err, apperrors.KindTransport) {
		t.Fatalf("expected transport failure, got %v", err)
	}
}

func TestInvalidJSONSuccessIsIntegrityError(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>")
	})
	var out dto.DataEnvelope[map[string]any]
	err := env.gateway.Do(context.Background(), Request{Path: "/customers/1"}, &out)
	if !apperrors.IsKind(err, apperrors.KindIntegrity) {
		t.Fatalf("expected integrity failure, got %v", err)
	}
}

func TestRepeatedReadsAreStructurallyIdentical(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"data":       []map[string]any{{"id": "1", "name": "Acme"}, {"id": "2", "name": "Globex"}},
			"pagination": map[string]any{"current_page": 1, "per_page": 2, "total_records": 2, "total_pages": 1, "start_record": 1, "end_record": 2},
		})
	})
	ctx := context.Background()
	_ = env.durable.Set(ctx, "authToken", "tok")

	var first, second dto.PageEnvelope[map[string]any]
	if err := env.gateway.Do(ctx, Request{Path: "/customers"}, &first); err != nil {
		t.Fatalf("first read: %v", err)
	}
	if err := env.gateway.Do(ctx, Request{Path: "/customers"}, &second); err != nil {
		t.Fatalf("second read: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("reads differ:\n%+v\n%+v", first, second)
	}
	if first.Pagination.TotalRecords != 2 || first.Pagination.EndRecord != 2 {
		t.Fatalf("pagination not passed through: %+v", first.Pagination)
	}
}

func TestMetricsRecorded(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing") {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"code": "NOT_FOUND", "message": "missing"}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{})
	})
	ctx := context.Background()
	_ = env.gateway.Do(ctx, Request{Path: "/customers"}, nil)
	_ = env.gateway.Do(ctx, Request{Path: "/customers/missing"}, nil)

	snap := env.metrics.Snapshot()
	if len(snap.Requests) != 2 {
		t.Fatalf("expected two request counters, got %+v", snap.Requests)
	}
	if len(snap.Errors) != 1 || snap.Errors[0].Key != "/customers/missing|GET|NOT_FOUND" {
		t.Fatalf("unexpected error counters %+v", snap.Errors)
	}
}
