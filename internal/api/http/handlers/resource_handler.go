package handlers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/asset-gateway/internal/api/dto"
	"github.com/spec-kit/asset-gateway/internal/domain"
	"github.com/spec-kit/asset-gateway/internal/repository"
	apperrors "github.com/spec-kit/asset-gateway/pkg/util"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

// Routes is implemented by every collection handler.
type Routes interface {
	Resource() domain.Resource
	Register(router fiber.Router, write fiber.Handler)
}

// ResourceOptions toggle the route quirks some deployments have.
type ResourceOptions struct {
	// NoBulkRoute answers bulk-delete with 404 "Route not found".
	NoBulkRoute bool
	// ExportShadowed leaves /export unregistered so it falls through to /:id.
	ExportShadowed bool
}

// ResourceHandler serves CRUD, bulk delete, CSV export/import and template download for
// one collection.
type ResourceHandler[T any] struct {
	spec ResourceSpec[T]
	repo repository.Repository[T]
	opts ResourceOptions
}

// NewResourceHandler constructs handler.
func NewResourceHandler[T any](spec ResourceSpec[T], repo repository.Repository[T], opts ResourceOptions) *ResourceHandler[T] {
	return &ResourceHandler[T]{spec: spec, repo: repo, opts: opts}
}

// Resource returns the served collection.
func (h *ResourceHandler[T]) Resource() domain.Resource {
	return h.spec.Resource
}

// Register mounts the collection routes. write guards every mutating route.
func (h *ResourceHandler[T]) Register(router fiber.Router, write fiber.Handler) {
	router.Get("", h.List)
	if !h.opts.ExportShadowed {
		router.Get("/export", h.Export)
	}
	router.Get("/export-data", h.Export)
	router.Get("/template", h.Template)
	router.Get("/:id", h.Get)

	router.Post("", write, h.Create)
	if h.opts.NoBulkRoute {
		router.Post("/bulk-delete", RouteNotFound)
	} else {
		router.Post("/bulk-delete", write, h.BulkDelete)
	}
	router.Post("/import", write, h.Import)
	router.Put("/:id", write, h.Update)
	router.Delete("/:id", write, h.Delete)
}

// List GET /<resource>?page=&per_page=&search=.
func (h *ResourceHandler[T]) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	perPage := c.QueryInt("per_page", defaultPerPage)
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	items, total, err := h.repo.List(c.UserContext(), repository.Query{Page: page, PerPage: perPage, Search: c.Query("search")})
	if err != nil {
		return err
	}
	return c.JSON(dto.PageEnvelope[T]{Data: items, Pagination: paginate(page, perPage, total, len(items))})
}

// Get GET /<resource>/:id.
func (h *ResourceHandler[T]) Get(c *fiber.Ctx) error {
	id := idParam(c)
	item, err := h.repo.GetByID(c.UserContext(), id)
	if err != nil {
		return h.mapError(err, id)
	}
	return c.JSON(dto.DataEnvelope[*T]{Data: item})
}

// Create POST /<resource>.
func (h *ResourceHandler[T]) Create(c *fiber.Ctx) error {
	item := new(T)
	if err := c.BodyParser(item); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	*h.spec.Accessor.ID(item) = ""
	if err := h.spec.Validate(item); err != nil {
		return err
	}
	if err := h.repo.Create(c.UserContext(), item); err != nil {
		return h.mapError(err, "")
	}
	return c.Status(http.StatusCreated).JSON(dto.MessageEnvelope[T]{
		Message: h.spec.Resource.Name + " created successfully",
		Data:    item,
	})
}

// Update PUT /<resource>/:id.
func (h *ResourceHandler[T]) Update(c *fiber.Ctx) error {
	id := idParam(c)
	current, err := h.repo.GetByID(c.UserContext(), id)
	if err != nil {
		return h.mapError(err, id)
	}

	next := new(T)
	if err := c.BodyParser(next); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if h.spec.Carry != nil {
		h.spec.Carry(current, next)
	}
	if err := h.spec.Validate(next); err != nil {
		return err
	}
	if err := h.repo.Update(c.UserContext(), id, next); err != nil {
		return h.mapError(err, id)
	}
	return c.JSON(dto.MessageEnvelope[T]{
		Message: h.spec.Resource.Name + " updated successfully",
		Data:    next,
	})
}

// Delete DELETE /<resource>/:id.
func (h *ResourceHandler[T]) Delete(c *fiber.Ctx) error {
	id := idParam(c)
	if err := h.repo.Delete(c.UserContext(), id); err != nil {
		return h.mapError(err, id)
	}
	return c.JSON(fiber.Map{"message": h.spec.Resource.Name + " deleted successfully"})
}

// BulkDelete POST /<resource>/bulk-delete. Unknown ids are skipped.
func (h *ResourceHandler[T]) BulkDelete(c *fiber.Ctx) error {
	var req dto.BulkDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if len(req.IDs) == 0 {
		return apperrors.NewValidationError("ids are required", map[string]any{"field": "ids"})
	}
	deleted, err := h.repo.DeleteMany(c.UserContext(), req.IDs)
	if err != nil {
		return err
	}
	return c.JSON(dto.MessageEnvelope[dto.BulkDeleteResult]{
		Message: fmt.Sprintf("%d %s deleted", deleted, h.spec.Resource.Key()),
		Data:    &dto.BulkDeleteResult{DeletedCount: deleted},
	})
}

// Export GET /<resource>/export and /export-data. Only CSV is produced.
func (h *ResourceHandler[T]) Export(c *fiber.Ctx) error {
	if format := strings.ToLower(c.Query("format")); format != "" && format != "csv" {
		return apperrors.NewValidationError("Unsupported export format", map[string]any{"format": format})
	}
	items, err := h.repo.All(c.UserContext())
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(items))
	for i := range items {
		row := []string{*h.spec.Accessor.ID(&items[i])}
		for _, col := range h.spec.Columns {
			row = append(row, col.Get(&items[i]))
		}
		rows = append(rows, row)
	}
	return sendCSV(c, h.spec.Resource.Key()+"-export.csv", append([]string{"id"}, h.headers()...), rows)
}

// Template GET /<resource>/template returns the import header row.
func (h *ResourceHandler[T]) Template(c *fiber.Ctx) error {
	return sendCSV(c, h.spec.Resource.Key()+"-template.csv", h.headers(), nil)
}

// Import POST /<resource>/import with a CSV in multipart field "file". Valid rows are
// stored; rejected rows are reported by line number.
func (h *ResourceHandler[T]) Import(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file is required", map[string]any{"field": "file"})
	}
	file, err := header.Open()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	first, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return apperrors.NewValidationError("import file is empty", nil)
	}
	if err != nil {
		return apperrors.NewValidationError("import file is not valid CSV", map[string]any{"reason": err.Error()})
	}
	positions := h.columnPositions(first)
	if len(positions) == 0 {
		return apperrors.NewValidationError("import file has no known columns", map[string]any{"expected": h.headers()})
	}

	result := dto.ImportResult{}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, dto.ImportRowError{Row: line, Message: err.Error()})
			continue
		}
		if err := h.importRow(c, positions, record); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, dto.ImportRowError{Row: line, Message: apperrors.ToDomainError(err).Message})
			continue
		}
		result.Imported++
	}

	return c.JSON(dto.MessageEnvelope[dto.ImportResult]{
		Message: fmt.Sprintf("Imported %d %s", result.Imported, h.spec.Resource.Key()),
		Data:    &result,
	})
}

func (h *ResourceHandler[T]) importRow(c *fiber.Ctx, positions map[int]Column[T], record []string) error {
	item := new(T)
	for idx, col := range positions {
		if idx >= len(record) {
			continue
		}
		if err := col.Set(item, record[idx]); err != nil {
			return err
		}
	}
	if err := h.spec.Validate(item); err != nil {
		return err
	}
	return h.repo.Create(c.UserContext(), item)
}

func (h *ResourceHandler[T]) columnPositions(header []string) map[int]Column[T] {
	byName := make(map[string]Column[T], len(h.spec.Columns))
	for _, col := range h.spec.Columns {
		byName[col.Header] = col
	}
	positions := make(map[int]Column[T])
	for idx, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if col, ok := byName[name]; ok {
			positions[idx] = col
		}
	}
	return positions
}

func (h *ResourceHandler[T]) headers() []string {
	out := make([]string, 0, len(h.spec.Columns))
	for _, col := range h.spec.Columns {
		out = append(out, col.Header)
	}
	return out
}

func (h *ResourceHandler[T]) mapError(err error, id string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(fmt.Sprintf("%s with id %s", h.spec.Resource.Name, id), nil)
	case errors.Is(err, repository.ErrConflict):
		return apperrors.NewConflict(h.spec.Resource.Name+" already exists", nil)
	}
	return apperrors.MapError(err)
}

// idParam returns the decoded :id segment; fiber hands params over still escaped.
func idParam(c *fiber.Ctx) string {
	raw := c.Params("id")
	if id, err := url.PathUnescape(raw); err == nil {
		return id
	}
	return raw
}

// RouteNotFound answers routes a deployment does not have.
func RouteNotFound(*fiber.Ctx) error {
	return apperrors.NewDomainError("NOT_FOUND", "Route not found", http.StatusNotFound, nil)
}

func paginate(page, perPage, total, count int) dto.Pagination {
	p := dto.Pagination{
		CurrentPage:  page,
		PerPage:      perPage,
		TotalRecords: total,
		TotalPages:   int(math.Ceil(float64(total) / float64(perPage))),
	}
	if count > 0 {
		p.StartRecord = (page-1)*perPage + 1
		p.EndRecord = p.StartRecord + count - 1
	}
	return p
}

func sendCSV(c *fiber.Ctx, fileName string, header []string, rows [][]string) error {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(header); err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := w.WriteAll(rows); err != nil {
		return apperrors.NewInternalError(err)
	}
	c.Attachment(fileName)
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	return c.Send(buf.Bytes())
}
