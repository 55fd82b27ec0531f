package service

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spec-kit/asset-gateway/internal/api/dto"
	"github.com/spec-kit/asset-gateway/internal/domain"
	"github.com/spec-kit/asset-gateway/internal/gateway"
	apperrors "github.com/spec-kit/asset-gateway/pkg/util"
)

// ListParams are the query parameters every list endpoint accepts.
type ListParams struct {
	Page    int
	PerPage int
	Search  string
	Filters map[string]string
}

func (p ListParams) values() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(p.PerPage))
	}
	if s := strings.TrimSpace(p.Search); s != "" {
		q.Set("search", s)
	}
	for k, v := range p.Filters {
		q.Set(k, v)
	}
	return q
}

// ImportFile is a spreadsheet uploaded to a resource's import endpoint.
type ImportFile struct {
	Name    string
	Content io.Reader
}

// ResourceClient maps one REST collection onto gateway calls. T is the entity type the
// collection returns.
type ResourceClient[T any] struct {
	gw       *gateway.Gateway
	resource domain.Resource
}

// NewResourceClient binds a client to resource.
func NewResourceClient[T any](gw *gateway.Gateway, resource domain.Resource) *ResourceClient[T] {
	return &ResourceClient[T]{gw: gw, resource: resource}
}

// Resource returns the bound collection.
func (c *ResourceClient[T]) Resource() domain.Resource {
	return c.resource
}

// List returns one page of the collection.
func (c *ResourceClient[T]) List(ctx context.Context, params ListParams) (*dto.PageEnvelope[T], error) {
	var page dto.PageEnvelope[T]
	err := c.gw.Do(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   c.resource.Path,
		Query:  params.values(),
	}, &page)
	if err != nil {
		return nil, err
	}
	if page.Data == nil {
		page.Data = []T{}
	}
	return &page, nil
}

// Get fetches one entity.
func (c *ResourceClient[T]) Get(ctx context.Context, id string) (*T, error) {
	path, err := c.itemPath(id)
	if err != nil {
		return nil, err
	}
	var envelope dto.DataEnvelope[T]
	if err := c.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: path}, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// Create posts input and returns the stored entity along with the server message.
func (c *ResourceClient[T]) Create(ctx context.Context, input any) (*dto.MessageEnvelope[T], error) {
	var envelope dto.MessageEnvelope[T]
	err := c.gw.Do(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   c.resource.Path,
		Body:   gateway.JSONBody{Value: input},
	}, &envelope)
	if err != nil {
		return nil, err
	}
	return &envelope, nil
}

// Update replaces the entity identified by id.
func (c *ResourceClient[T]) Update(ctx context.Context, id string, input any) (*dto.MessageEnvelope[T], error) {
	path, err := c.itemPath(id)
	if err != nil {
		return nil, err
	}
	var envelope dto.MessageEnvelope[T]
	err = c.gw.Do(ctx, gateway.Request{
		Method: http.MethodPut,
		Path:   path,
		Body:   gateway.JSONBody{Value: input},
	}, &envelope)
	if err != nil {
		return nil, err
	}
	return &envelope, nil
}

// Delete removes one entity.
func (c *ResourceClient[T]) Delete(ctx context.Context, id string) error {
	path, err := c.itemPath(id)
	if err != nil {
		return err
	}
	return c.gw.Do(ctx, gateway.Request{Method: http.MethodDelete, Path: path}, nil)
}

// BulkDelete removes ids, falling back to per-item deletes where the collection has no
// batch route.
func (c *ResourceClient[T]) BulkDelete(ctx context.Context, ids []string) (*gateway.BulkResult, error) {
	return c.gw.BulkDelete(ctx, c.resource.Path, ids)
}

// Export downloads the collection. format is passed through as ?format= when set.
func (c *ResourceClient[T]) Export(ctx context.Context, format string, params ListParams) (*gateway.Blob, error) {
	q := params.values()
	if format != "" {
		q.Set("format", format)
	}
	return c.gw.Export(ctx, c.resource.Path, q)
}

// Import uploads file as multipart field "file".
func (c *ResourceClient[T]) Import(ctx context.Context, file ImportFile, fields map[string]string) (*dto.MessageEnvelope[dto.ImportResult], error) {
	var envelope dto.MessageEnvelope[dto.ImportResult]
	err := c.gw.Do(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   c.resource.Path + "/import",
		Body: gateway.MultipartBody{
			FileName: file.Name,
			Content:  file.Content,
			Fields:   fields,
		},
	}, &envelope)
	if err != nil {
		return nil, err
	}
	return &envelope, nil
}

// Template downloads the empty import spreadsheet for the collection.
func (c *ResourceClient[T]) Template(ctx context.Context) (*gateway.Blob, error) {
	return c.gw.Download(ctx, gateway.Request{Method: http.MethodGet, Path: c.resource.Path + "/template"})
}

func (c *ResourceClient[T]) itemPath(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", apperrors.NewBadInput(c.resource.Name+" id is required", nil)
	}
	return c.resource.Path + "/" + url.PathEscape(id), nil
}
