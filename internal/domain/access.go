package domain

// Role differentiates console users.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleViewer Role = "VIEWER"
)

// User is a console user.
type User struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Role            Role   `json:"role"`
	SecurityGroupID string `json:"security_group_id,omitempty"`
	PasswordHash    string `json:"-"`
	Timestamps
}

// SecurityGroup bundles permissions granted to users.
type SecurityGroup struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions"`
	Timestamps
}

// EmailTemplate is a notification template managed in settings.
type EmailTemplate struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Timestamps
}
