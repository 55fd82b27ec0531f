package domain

import "strings"

// Resource names one REST collection. Path is relative to the API base, e.g. "/customers".
type Resource struct {
	Name string
	Path string
}

// Key returns the path without its leading slash, as used in config lists and CLI args.
func (r Resource) Key() string {
	return strings.TrimPrefix(r.Path, "/")
}

var (
	ResourceCustomers      = Resource{Name: "Customer", Path: "/customers"}
	ResourceSites          = Resource{Name: "Site", Path: "/sites"}
	ResourceLocations      = Resource{Name: "Location", Path: "/locations"}
	ResourceDepartments    = Resource{Name: "Department", Path: "/departments"}
	ResourceSecurityGroups = Resource{Name: "Security group", Path: "/security-groups"}
	ResourceAssets         = Resource{Name: "Asset", Path: "/assets"}
	ResourceEmailTemplates = Resource{Name: "Email template", Path: "/email-templates"}
	ResourceImages         = Resource{Name: "Image", Path: "/images"}
	ResourceUsers          = Resource{Name: "User", Path: "/users"}
)

// Resources lists every collection in display order.
func Resources() []Resource {
	return []Resource{
		ResourceCustomers,
		ResourceSites,
		ResourceLocations,
		ResourceDepartments,
		ResourceSecurityGroups,
		ResourceAssets,
		ResourceEmailTemplates,
		ResourceImages,
		ResourceUsers,
	}
}

// LookupResource finds a collection by key ("customers") or path ("/customers").
func LookupResource(name string) (Resource, bool) {
	key := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "/")
	for _, r := range Resources() {
		if r.Key() == key {
			return r, true
		}
	}
	return Resource{}, false
}
