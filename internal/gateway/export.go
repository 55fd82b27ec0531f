package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/spec-kit/asset-gateway/pkg/util"
)

// Export downloads resourcePath/export. Some resources route "export" to their
// get-by-id handler and answer 404; those are retried once against export-data.
func (g *Gateway) Export(ctx context.Context, resourcePath string, query url.Values) (*Blob, error) {
	base := strings.TrimRight(resourcePath, "/")
	blob, err := g.Download(ctx, Request{Method: http.MethodGet, Path: base + "/export", Query: query})
	if err == nil || !exportShadowed(err) {
		return blob, err
	}

	g.logger.Info("export route shadowed; retrying export-data",
		zap.String("resource", resourcePath),
		zap.String("message", apperrors.ToDomainError(err).Message),
	)
	return g.Download(ctx, Request{Method: http.MethodGet, Path: base + "/export-data", Query: query})
}

func exportShadowed(err error) bool {
	failure := apperrors.ToDomainError(err)
	return failure.Kind == apperrors.KindDomain && failure.HTTPStatus == http.StatusNotFound
}
