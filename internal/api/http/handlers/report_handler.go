package handlers

import (
	"sort"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/asset-gateway/internal/domain"
	"github.com/spec-kit/asset-gateway/internal/repository"
	apperrors "github.com/spec-kit/asset-gateway/pkg/util"
)

// ReportHandler renders CSV reports over the asset inventory.
type ReportHandler struct {
	assets    repository.Repository[domain.Asset]
	customers repository.Repository[domain.Customer]
}

// NewReportHandler constructs handler.
func NewReportHandler(assets repository.Repository[domain.Asset], customers repository.Repository[domain.Customer]) *ReportHandler {
	return &ReportHandler{assets: assets, customers: customers}
}

// Download handles GET /reports/:name.
func (h *ReportHandler) Download(c *fiber.Ctx) error {
	name := c.Params("name")
	if format := strings.ToLower(c.Query("format")); format != "" && format != "csv" {
		return apperrors.NewValidationError("Unsupported report format", map[string]any{"format": format})
	}

	assets, err := h.assets.All(c.UserContext())
	if err != nil {
		return err
	}
	if status := strings.ToUpper(c.Query("status")); status != "" {
		filtered := assets[:0]
		for _, a := range assets {
			if string(a.Status) == status {
				filtered = append(filtered, a)
			}
		}
		assets = filtered
	}

	switch name {
	case "inventory":
		rows := make([][]string, 0, len(assets))
		for _, a := range assets {
			rows = append(rows, []string{a.Tag, a.Name, a.Category, string(a.Status), a.SerialNumber, a.CustomerID})
		}
		return sendCSV(c, "inventory.csv", []string{"tag", "name", "category", "status", "serial_number", "customer_id"}, rows)
	case "assets-by-status":
		counts := map[string]int{}
		for _, a := range assets {
			counts[string(a.Status)]++
		}
		return sendCSV(c, "assets-by-status.csv", []string{"status", "count"}, countRows(counts, nil))
	case "assets-by-customer":
		customers, err := h.customers.All(c.UserContext())
		if err != nil {
			return err
		}
		names := make(map[string]string, len(customers))
		for _, cu := range customers {
			names[cu.ID] = cu.Name
		}
		counts := map[string]int{}
		for _, a := range assets {
			counts[a.CustomerID]++
		}
		return sendCSV(c, "assets-by-customer.csv", []string{"customer_id", "customer_name", "count"}, countRows(counts, names))
	}
	return apperrors.NewNotFound("Report "+name, nil)
}

func countRows(counts map[string]int, labels map[string]string) [][]string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		if labels == nil {
			rows = append(rows, []string{k, strconv.Itoa(counts[k])})
			continue
		}
		rows = append(rows, []string{k, labels[k], strconv.Itoa(counts[k])})
	}
	return rows
}
