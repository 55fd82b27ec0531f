package service

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/spec-kit/asset-gateway/internal/domain"
	"github.com/spec-kit/asset-gateway/internal/gateway"
	apperrors "github.com/spec-kit/asset-gateway/pkg/util"
)

// Catalog holds one typed client per collection.
type Catalog struct {
	Customers      *ResourceClient[domain.Customer]
	Sites          *ResourceClient[domain.Site]
	Locations      *ResourceClient[domain.Location]
	Departments    *ResourceClient[domain.Department]
	SecurityGroups *ResourceClient[domain.SecurityGroup]
	Assets         *ResourceClient[domain.Asset]
	EmailTemplates *ResourceClient[domain.EmailTemplate]
	Images         *ResourceClient[domain.Image]
	Users          *ResourceClient[domain.User]
	Reports        *ReportService
}

// NewCatalog builds every client over one gateway.
func NewCatalog(gw *gateway.Gateway) *Catalog {
	return &Catalog{
		Customers:      NewResourceClient[domain.Customer](gw, domain.ResourceCustomers),
		Sites:          NewResourceClient[domain.Site](gw, domain.ResourceSites),
		Locations:      NewResourceClient[domain.Location](gw, domain.ResourceLocations),
		Departments:    NewResourceClient[domain.Department](gw, domain.ResourceDepartments),
		SecurityGroups: NewResourceClient[domain.SecurityGroup](gw, domain.ResourceSecurityGroups),
		Assets:         NewResourceClient[domain.Asset](gw, domain.ResourceAssets),
		EmailTemplates: NewResourceClient[domain.EmailTemplate](gw, domain.ResourceEmailTemplates),
		Images:         NewResourceClient[domain.Image](gw, domain.ResourceImages),
		Users:          NewResourceClient[domain.User](gw, domain.ResourceUsers),
		Reports:        NewReportService(gw),
	}
}

// Generic returns an untyped client for a collection named at runtime.
func Generic(gw *gateway.Gateway, name string) (*ResourceClient[map[string]any], error) {
	resource, ok := domain.LookupResource(name)
	if !ok {
		return nil, apperrors.NewBadInput("unknown resource "+name, nil)
	}
	return NewResourceClient[map[string]any](gw, resource), nil
}

// ReportService downloads generated reports.
type ReportService struct {
	gw *gateway.Gateway
}

// NewReportService builds the service.
func NewReportService(gw *gateway.Gateway) *ReportService {
	return &ReportService{gw: gw}
}

// Download fetches /reports/<report>. format and params become query parameters.
func (s *ReportService) Download(ctx context.Context, report, format string, params map[string]string) (*gateway.Blob, error) {
	report = strings.TrimSpace(report)
	if report == "" {
		return nil, apperrors.NewBadInput("report name is required", nil)
	}
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	if format != "" {
		q.Set("format", format)
	}
	return s.gw.Download(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   "/reports/" + url.PathEscape(report),
		Query:  q,
	})
}
