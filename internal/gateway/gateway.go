// Package gateway turns request descriptors into decoded values or normalized failures
// against the asset-management API. Every resource client goes through it so the
// credential and error policy lives in one place.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/asset-gateway/internal/config"
	"github.com/spec-kit/asset-gateway/internal/credential"
	"github.com/spec-kit/asset-gateway/internal/events"
	"github.com/spec-kit/asset-gateway/internal/observability"
	apperrors "github.com/spec-kit/asset-gateway/pkg/util"
)

const defaultMaxResponseBytes int64 = 50 << 20

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Gateway is safe for concurrent use.
type Gateway struct {
	base       *url.URL
	client     HTTPDoer
	keyring    *credential.Keyring
	logger     *zap.Logger
	metrics    *observability.Metrics
	dispatcher events.Dispatcher
	maxBody    int64
	userAgent  string
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(g *Gateway) {
		if client != nil {
			g.client = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Gateway) {
		g.logger = observability.OrNop(logger)
	}
}

// WithMetrics records every dispatch.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = metrics
	}
}

// WithDispatcher publishes session and fallback events.
func WithDispatcher(dispatcher events.Dispatcher) Option {
	return func(g *Gateway) {
		g.dispatcher = dispatcher
	}
}

// New builds a gateway rooted at cfg.BaseURL.
func New(cfg config.GatewayConfig, keyring *credential.Keyring, opts ...Option) (*Gateway, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", cfg.BaseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("base url %q has no host", cfg.BaseURL)
	}
	base.RawQuery = ""
	base.Fragment = ""

	if keyring == nil {
		keyring = credential.NewKeyring(nil, nil, "")
	}

	g := &Gateway{
		base:      base,
		client:    &http.Client{Timeout: cfg.RequestTimeout()},
		keyring:   keyring,
		logger:    zap.NewNop(),
		maxBody:   cfg.MaxResponseBytes,
		userAgent: cfg.UserAgent,
	}
	if g.maxBody <= 0 {
		g.maxBody = defaultMaxResponseBytes
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

// BaseURL returns the fixed base every path hangs off.
func (g *Gateway) BaseURL() string {
	return g.base.String()
}

// Keyring exposes the credential keyring the gateway reads.
func (g *Gateway) Keyring() *credential.Keyring {
	return g.keyring
}

// Do sends req and decodes a JSON success body into out. out may be nil, and an empty
// success body leaves out untouched.
func (g *Gateway) Do(ctx context.Context, req Request, out any) error {
	res, err := g.send(ctx, req, "application/json")
	if err != nil {
		return err
	}
	if out == nil || len(res.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.body, out); err != nil {
		failure := apperrors.NewIntegrityError("Invalid response from server", res.status)
		failure.Err = err
		return failure
	}
	return nil
}

// Blob is a binary download.
type Blob struct {
	Data        []byte
	ContentType string
	FileName    string
}

// Size returns the payload length.
func (b *Blob) Size() int {
	return len(b.Data)
}

// Download sends req and returns the raw body. An empty body is an integrity failure.
func (g *Gateway) Download(ctx context.Context, req Request) (*Blob, error) {
	res, err := g.send(ctx, req, "*/*")
	if err != nil {
		return nil, err
	}
	if len(res.body) == 0 {
		g.metrics.RecordError(req.Path, req.Method, "INVALID_PAYLOAD")
		return nil, apperrors.NewIntegrityError(apperrors.MsgEmptyExport, res.status)
	}
	return &Blob{
		Data:        res.body,
		ContentType: res.header.Get("Content-Type"),
		FileName:    attachmentName(res.header.Get("Content-Disposition")),
	}, nil
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (g *Gateway) send(ctx context.Context, req Request, accept string) (*response, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	target, err := resolve(g.base, req.Path, req.Query)
	if err != nil {
		return nil, apperrors.NewBadInput("Invalid request path", err)
	}

	var payload io.Reader
	contentType := ""
	if req.Body != nil {
		payload, contentType, err = req.Body.encode()
		if err != nil {
			return nil, apperrors.NewBadInput("Invalid request body", err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), payload)
	if err != nil {
		return nil, apperrors.NewBadInput("Invalid request", err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", accept)
	httpReq.Header.Set("X-Request-ID", requestID)
	if g.userAgent != "" {
		httpReq.Header.Set("User-Agent", g.userAgent)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	token, _, ok, err := g.keyring.Resolve(ctx)
	if err != nil {
		g.logger.Warn("credential lookup failed; sending unauthenticated", zap.Error(err))
	} else if ok {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	logger := g.logger.With(
		zap.String("method", method),
		zap.String("path", req.Path),
		zap.String("request_id", requestID),
	)

	startedAt := time.Now()
	httpRes, err := g.client.Do(httpReq)
	if err != nil {
		g.metrics.RecordError(req.Path, method, "NETWORK_ERROR")
		logger.Warn("request failed", zap.Error(err))
		return nil, apperrors.NewTransportError(err)
	}
	defer httpRes.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpRes.Body, g.maxBody+1))
	if err != nil {
		g.metrics.RecordError(req.Path, method, "NETWORK_ERROR")
		logger.Warn("read response failed", zap.Error(err))
		return nil, apperrors.NewTransportError(err)
	}
	if int64(len(body)) > g.maxBody {
		g.metrics.RecordError(req.Path, method, "NETWORK_ERROR")
		return nil, apperrors.NewTransportError(fmt.Errorf("response body exceeds limit of %d bytes", g.maxBody))
	}

	duration := time.Since(startedAt)
	g.metrics.RecordRequest(req.Path, method, httpRes.StatusCode, duration)
	logger.Debug("response",
		zap.Int("status", httpRes.StatusCode),
		zap.Duration("duration", duration),
		zap.Int("bytes", len(body)),
	)

	if httpRes.StatusCode < 200 || httpRes.StatusCode > 299 {
		return nil, g.failure(ctx, method, req.Path, httpRes, body, logger)
	}
	return &response{status: httpRes.StatusCode, header: httpRes.Header, body: body}, nil
}

func (g *Gateway) failure(ctx context.Context, method, path string, httpRes *http.Response, body []byte, logger *zap.Logger) error {
	parsed := parseFailure(httpRes.StatusCode, statusText(httpRes), body)

	if !isAuthFailure(httpRes.StatusCode, parsed.Message) {
		g.metrics.RecordError(path, method, errorCode(parsed))
		logger.Debug("request rejected", zap.Int("status", parsed.HTTPStatus), zap.String("message", parsed.Message))
		return parsed
	}

	g.metrics.RecordError(path, method, "SESSION_EXPIRED")
	if err := g.keyring.Clear(ctx); err != nil {
		logger.Error("failed to clear credential after authorization failure", zap.Error(err))
	}
	logger.Warn("credential rejected; cleared stored token", zap.Int("status", httpRes.StatusCode))
	g.publish(ctx, events.New(events.EventSessionExpired, events.SessionExpiredPayload{
		Method:         method,
		Path:           path,
		Status:         httpRes.StatusCode,
		BackendMessage: parsed.Message,
	}))
	g.publish(ctx, events.New(events.EventCredentialCleared, events.CredentialClearedPayload{Reason: "session_expired"}))
	return apperrors.NewSessionExpired(httpRes.StatusCode, parsed.Message)
}

func (g *Gateway) publish(ctx context.Context, event events.Event) {
	if g.dispatcher == nil {
		return
	}
	if err := g.dispatcher.Publish(ctx, event); err != nil {
		g.logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}

func errorCode(err *apperrors.DomainError) string {
	if err.Code != "" {
		return err.Code
	}
	return fmt.Sprintf("HTTP_%d", err.HTTPStatus)
}

func attachmentName(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}

// IsSessionExpired reports whether err means the caller must log in again.
func IsSessionExpired(err error) bool {
	return apperrors.IsKind(err, apperrors.KindAuthorization)
}
