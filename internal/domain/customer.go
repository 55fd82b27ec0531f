package domain

// Customer owns sites and assets.
type Customer struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
	IsActive bool   `json:"is_active"`
	Timestamps
}

// Site is a physical premises belonging to a customer.
type Site struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
	Address    string `json:"address,omitempty"`
	Timestamps
}

// Location is an area within a site.
type Location struct {
	ID          string `json:"id"`
	SiteID      string `json:"site_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Timestamps
}

// Department represents an organizational unit assets can be assigned to.
type Department struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
	Timestamps
}
