package handlers

import (
	"strconv"
	"strings"

	"github.com/spec-kit/asset-gateway/internal/domain"
	"github.com/spec-kit/asset-gateway/internal/repository"
	apperrors "github.com/spec-kit/asset-gateway/pkg/util"
)

// Column maps one spreadsheet column onto a field of T.
type Column[T any] struct {
	Header string
	Get    func(*T) string
	Set    func(*T, string) error
}

// ResourceSpec describes how a collection is stored, validated and exchanged as CSV.
type ResourceSpec[T any] struct {
	Resource domain.Resource
	Accessor repository.Accessor[T]
	Columns  []Column[T]
	Validate func(*T) error
	// Carry copies fields the wire format never sends from the stored record into an
	// update, e.g. password hashes.
	Carry func(current, next *T)
}

func textColumn[T any](header string, field func(*T) *string) Column[T] {
	return Column[T]{
		Header: header,
		Get:    func(item *T) string { return *field(item) },
		Set: func(item *T, value string) error {
			*field(item) = strings.TrimSpace(value)
			return nil
		},
	}
}

func boolColumn[T any](header string, field func(*T) *bool) Column[T] {
	return Column[T]{
		Header: header,
		Get:    func(item *T) string { return strconv.FormatBool(*field(item)) },
		Set: func(item *T, value string) error {
			value = strings.TrimSpace(value)
			if value == "" {
				*field(item) = false
				return nil
			}
			parsed, err := strconv.ParseBool(value)
			if err != nil {
				return apperrors.NewValidationError(header+" must be true or false", map[string]any{"field": header})
			}
			*field(item) = parsed
			return nil
		},
	}
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperrors.NewValidationError(field+" is required", map[string]any{"field": field})
	}
	return nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// CustomerSpec describes /customers.
func CustomerSpec() ResourceSpec[domain.Customer] {
	return ResourceSpec[domain.Customer]{
		Resource: domain.ResourceCustomers,
		Accessor: repository.Accessor[domain.Customer]{
			ID:     func(c *domain.Customer) *string { return &c.ID },
			Stamps: func(c *domain.Customer) *domain.Timestamps { return &c.Timestamps },
			Search: func(c *domain.Customer) string { return c.Name + " " + c.Email + " " + c.Phone },
		},
		Columns: []Column[domain.Customer]{
			textColumn("name", func(c *domain.Customer) *string { return &c.Name }),
			textColumn("email", func(c *domain.Customer) *string { return &c.Email }),
			textColumn("phone", func(c *domain.Customer) *string { return &c.Phone }),
			textColumn("address", func(c *domain.Customer) *string { return &c.Address }),
			boolColumn("is_active", func(c *domain.Customer) *bool { return &c.IsActive }),
		},
		Validate: func(c *domain.Customer) error {
			return firstError(required("name", c.Name), required("email", c.Email))
		},
	}
}

// SiteSpec describes /sites.
func SiteSpec() ResourceSpec[domain.Site] {
	return ResourceSpec[domain.Site]{
		Resource: domain.ResourceSites,
		Accessor: repository.Accessor[domain.Site]{
			ID:     func(s *domain.Site) *string { return &s.ID },
			Stamps: func(s *domain.Site) *domain.Timestamps { return &s.Timestamps },
			Search: func(s *domain.Site) string { return s.Name + " " + s.Address },
		},
		Columns: []Column[domain.Site]{
			textColumn("customer_id", func(s *domain.Site) *string { return &s.CustomerID }),
			textColumn("name", func(s *domain.Site) *string { return &s.Name }),
			textColumn("address", func(s *domain.Site) *string { return &s.Address }),
		},
		Validate: func(s *domain.Site) error {
			return firstError(required("customer_id", s.CustomerID), required("name", s.Name))
		},
	}
}

// LocationSpec describes /locations.
func LocationSpec() ResourceSpec[domain.Location] {
	return ResourceSpec[domain.Location]{
		Resource: domain.ResourceLocations,
		Accessor: repository.Accessor[domain.Location]{
			ID:     func(l *domain.Location) *string { return &l.ID },
			Stamps: func(l *domain.Location) *domain.Timestamps { return &l.Timestamps },
			Search: func(l *domain.Location) string { return l.Name + " " + l.Description },
		},
		Columns: []Column[domain.Location]{
			textColumn("site_id", func(l *domain.Location) *string { return &l.SiteID }),
			textColumn("name", func(l *domain.Location) *string { return &l.Name }),
			textColumn("description", func(l *domain.Location) *string { return &l.Description }),
		},
		Validate: func(l *domain.Location) error {
			return firstError(required("site_id", l.SiteID), required("name", l.Name))
		},
	}
}

// DepartmentSpec describes /departments.
func DepartmentSpec() ResourceSpec[domain.Department] {
	return ResourceSpec[domain.Department]{
		Resource: domain.ResourceDepartments,
		Accessor: repository.Accessor[domain.Department]{
			ID:     func(d *domain.Department) *string { return &d.ID },
			Stamps: func(d *domain.Department) *domain.Timestamps { return &d.Timestamps },
			Search: func(d *domain.Department) string { return d.Name + " " + d.Description },
		},
		Columns: []Column[domain.Department]{
			textColumn("name", func(d *domain.Department) *string { return &d.Name }),
			textColumn("description", func(d *domain.Department) *string { return &d.Description }),
			boolColumn("is_active", func(d *domain.Department) *bool { return &d.IsActive }),
		},
		Validate: func(d *domain.Department) error {
			return required("name", d.Name)
		},
	}
}

// SecurityGroupSpec describes /security-groups. Permissions travel as a
// semicolon-separated cell.
func SecurityGroupSpec() ResourceSpec[domain.SecurityGroup] {
	return ResourceSpec[domain.SecurityGroup]{
		Resource: domain.ResourceSecurityGroups,
		Accessor: repository.Accessor[domain.SecurityGroup]{
			ID:     func(g *domain.SecurityGroup) *string { return &g.ID },
			Stamps: func(g *domain.SecurityGroup) *domain.Timestamps { return &g.Timestamps },
			Search: func(g *domain.SecurityGroup) string { return g.Name + " " + g.Description },
		},
		Columns: []Column[domain.SecurityGroup]{
			textColumn("name", func(g *domain.SecurityGroup) *string { return &g.Name }),
			textColumn("description", func(g *domain.SecurityGroup) *string { return &g.Description }),
			{
				Header: "permissions",
				Get:    func(g *domain.SecurityGroup) string { return strings.Join(g.Permissions, ";") },
				Set: func(g *domain.SecurityGroup, value string) error {
					g.Permissions = nil
					for _, p := range strings.Split(value, ";") {
						if p = strings.TrimSpace(p); p != "" {
							g.Permissions = append(g.Permissions, p)
						}
					}
					return nil
				},
			},
		},
		Validate: func(g *domain.SecurityGroup) error {
			if g.Permissions == nil {
				g.Permissions = []string{}
			}
			return required("name", g.Name)
		},
	}
}

// AssetSpec describes /assets.
func AssetSpec() ResourceSpec[domain.Asset] {
	return ResourceSpec[domain.Asset]{
		Resource: domain.ResourceAssets,
		Accessor: repository.Accessor[domain.Asset]{
			ID:     func(a *domain.Asset) *string { return &a.ID },
			Stamps: func(a *domain.Asset) *domain.Timestamps { return &a.Timestamps },
			Search: func(a *domain.Asset) string { return a.Tag + " " + a.Name + " " + a.SerialNumber + " " + a.Category },
		},
		Columns: []Column[domain.Asset]{
			textColumn("tag", func(a *domain.Asset) *string { return &a.Tag }),
			textColumn("name", func(a *domain.Asset) *string { return &a.Name }),
			textColumn("category", func(a *domain.Asset) *string { return &a.Category }),
			{
				Header: "status",
				Get:    func(a *domain.Asset) string { return string(a.Status) },
				Set: func(a *domain.Asset, value string) error {
					a.Status = domain.AssetStatus(strings.ToUpper(strings.TrimSpace(value)))
					return nil
				},
			},
			textColumn("serial_number", func(a *domain.Asset) *string { return &a.SerialNumber }),
			textColumn("customer_id", func(a *domain.Asset) *string { return &a.CustomerID }),
			textColumn("site_id", func(a *domain.Asset) *string { return &a.SiteID }),
			textColumn("location_id", func(a *domain.Asset) *string { return &a.LocationID }),
			textColumn("department_id", func(a *domain.Asset) *string { return &a.DepartmentID }),
		},
		Validate: func(a *domain.Asset) error {
			if a.Status == "" {
				a.Status = domain.AssetStatusActive
			}
			if !a.Status.Valid() {
				return apperrors.NewValidationError("status is invalid", map[string]any{"field": "status", "value": string(a.Status)})
			}
			return firstError(required("tag", a.Tag), required("name", a.Name))
		},
	}
}

// EmailTemplateSpec describes /email-templates.
func EmailTemplateSpec() ResourceSpec[domain.EmailTemplate] {
	return ResourceSpec[domain.EmailTemplate]{
		Resource: domain.ResourceEmailTemplates,
		Accessor: repository.Accessor[domain.EmailTemplate]{
			ID:     func(e *domain.EmailTemplate) *string { return &e.ID },
			Stamps: func(e *domain.EmailTemplate) *domain.Timestamps { return &e.Timestamps },
			Search: func(e *domain.EmailTemplate) string { return e.Name + " " + e.Subject },
		},
		Columns: []Column[domain.EmailTemplate]{
			textColumn("name", func(e *domain.EmailTemplate) *string { return &e.Name }),
			textColumn("subject", func(e *domain.EmailTemplate) *string { return &e.Subject }),
			textColumn("body", func(e *domain.EmailTemplate) *string { return &e.Body }),
		},
		Validate: func(e *domain.EmailTemplate) error {
			return firstError(required("name", e.Name), required("subject", e.Subject))
		},
	}
}

// ImageSpec describes /images.
func ImageSpec() ResourceSpec[domain.Image] {
	return ResourceSpec[domain.Image]{
		Resource: domain.ResourceImages,
		Accessor: repository.Accessor[domain.Image]{
			ID:     func(i *domain.Image) *string { return &i.ID },
			Stamps: func(i *domain.Image) *domain.Timestamps { return &i.Timestamps },
			Search: func(i *domain.Image) string { return i.FileName },
		},
		Columns: []Column[domain.Image]{
			textColumn("asset_id", func(i *domain.Image) *string { return &i.AssetID }),
			textColumn("file_name", func(i *domain.Image) *string { return &i.FileName }),
			textColumn("mime_type", func(i *domain.Image) *string { return &i.MimeType }),
			textColumn("url", func(i *domain.Image) *string { return &i.URL }),
		},
		Validate: func(i *domain.Image) error {
			return required("file_name", i.FileName)
		},
	}
}

// UserSpec describes /users. Passwords are never exported or imported.
func UserSpec() ResourceSpec[domain.User] {
	return ResourceSpec[domain.User]{
		Resource: domain.ResourceUsers,
		Accessor: UserAccessor(),
		Carry: func(current, next *domain.User) {
			next.PasswordHash = current.PasswordHash
		},
		Columns: []Column[domain.User]{
			textColumn("name", func(u *domain.User) *string { return &u.Name }),
			textColumn("email", func(u *domain.User) *string { return &u.Email }),
			{
				Header: "role",
				Get:    func(u *domain.User) string { return string(u.Role) },
				Set: func(u *domain.User, value string) error {
					u.Role = domain.Role(strings.ToUpper(strings.TrimSpace(value)))
					return nil
				},
			},
			textColumn("security_group_id", func(u *domain.User) *string { return &u.SecurityGroupID }),
		},
		Validate: func(u *domain.User) error {
			if u.Role == "" {
				u.Role = domain.RoleViewer
			}
			if u.Role != domain.RoleAdmin && u.Role != domain.RoleViewer {
				return apperrors.NewValidationError("role is invalid", map[string]any{"field": "role", "value": string(u.Role)})
			}
			return firstError(required("name", u.Name), required("email", u.Email))
		},
	}
}

// UserAccessor is shared by the users collection and the login lookup.
func UserAccessor() repository.Accessor[domain.User] {
	return repository.Accessor[domain.User]{
		ID:     func(u *domain.User) *string { return &u.ID },
		Stamps: func(u *domain.User) *domain.Timestamps { return &u.Timestamps },
		Search: func(u *domain.User) string { return u.Name + " " + u.Email },
	}
}
