package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/asset-gateway/internal/api/dto"
	"github.com/spec-kit/asset-gateway/internal/events"
	apperrors "github.com/spec-kit/asset-gateway/pkg/util"
)

// ItemFailure records one identifier the per-item fallback could not delete.
type ItemFailure struct {
	ID  string
	Err error
}

// BulkResult reports a bulk delete. Partial success is a valid outcome, not an error.
type BulkResult struct {
	Requested    int
	DeletedCount int
	Failures     []ItemFailure
	Fallback     bool
	Message      string
}

// FailedCount returns how many identifiers were not deleted.
func (r *BulkResult) FailedCount() int {
	return len(r.Failures)
}

// BulkDelete removes ids in one batched call, falling back to one DELETE per id, in input
// order, when the batch route is unavailable for the resource.
func (g *Gateway) BulkDelete(ctx context.Context, resourcePath string, ids []string) (*BulkResult, error) {
	if len(ids) == 0 {
		return nil, apperrors.NewBadInput("No items selected for deletion", nil)
	}

	var batch dto.MessageEnvelope[dto.BulkDeleteResult]
	err := g.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   strings.TrimRight(resourcePath, "/") + "/bulk-delete",
		Body:   JSONBody{Value: dto.BulkDeleteRequest{IDs: ids}},
	}, &batch)
	if err == nil {
		deleted := len(ids)
		if batch.Data != nil {
			deleted = batch.Data.DeletedCount
		}
		return &BulkResult{Requested: len(ids), DeletedCount: deleted, Message: batch.Message}, nil
	}

	reason, ok := batchRouteUnavailable(err)
	if !ok {
		return nil, err
	}

	g.logger.Info("bulk delete route unavailable; deleting items one at a time",
		zap.String("resource", resourcePath),
		zap.Int("count", len(ids)),
		zap.String("reason", reason),
	)
	g.publish(ctx, events.New(events.EventBulkFallback, events.BulkFallbackPayload{
		Resource: resourcePath,
		Count:    len(ids),
		Reason:   reason,
	}))

	return g.deleteEach(ctx, resourcePath, ids)
}

func (g *Gateway) deleteEach(ctx context.Context, resourcePath string, ids []string) (*BulkResult, error) {
	result := &BulkResult{Requested: len(ids), Fallback: true}
	for _, id := range ids {
		err := g.Do(ctx, Request{
			Method: http.MethodDelete,
			Path:   strings.TrimRight(resourcePath, "/") + "/" + url.PathEscape(id),
		}, nil)
		if err == nil {
			result.DeletedCount++
			continue
		}
		result.Failures = append(result.Failures, ItemFailure{ID: id, Err: err})
		// the credential is gone; every remaining call would fail the same way
		if IsSessionExpired(err) {
			result.Message = summarize(result)
			return result, err
		}
	}

	result.Message = summarize(result)
	if result.DeletedCount == 0 {
		failure := apperrors.NewDomainError("BULK_DELETE_FAILED", apperrors.MsgAllDeletesFailed, 0, map[string]any{
			"failed_ids": failedIDs(result.Failures),
		})
		failure.HTTPStatus = apperrors.StatusOf(result.Failures[0].Err)
		failure.Err = result.Failures[0].Err
		return result, failure
	}
	return result, nil
}

// batchRouteUnavailable decides whether a failed batch call should fall back. A 404 or
// 405 means the route is absent; otherwise the message is sniffed for "bulk" or
// "not found", which is how resources without the route have been observed to answer.
func batchRouteUnavailable(err error) (string, bool) {
	failure := apperrors.ToDomainError(err)
	if failure.Kind != apperrors.KindDomain {
		return "", false
	}
	switch failure.HTTPStatus {
	case http.StatusNotFound:
		return "status 404", true
	case http.StatusMethodNotAllowed:
		return "status 405", true
	}
	lower := strings.ToLower(failure.Message)
	if strings.Contains(lower, "bulk") || strings.Contains(lower, "not found") {
		return "message: " + failure.Message, true
	}
	return "", false
}

func summarize(result *BulkResult) string {
	if len(result.Failures) == 0 {
		return fmt.Sprintf("Deleted %d items", result.DeletedCount)
	}
	return fmt.Sprintf("Deleted %d of %d items, %d failed", result.DeletedCount, result.Requested, len(result.Failures))
}

func failedIDs(failures []ItemFailure) []string {
	ids := make([]string, 0, len(failures))
	for _, f := range failures {
		ids = append(ids, f.ID)
	}
	return ids
}
