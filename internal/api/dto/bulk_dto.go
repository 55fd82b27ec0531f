package dto

// BulkDeleteRequest payload for POST /<resource>/bulk-delete.
type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// BulkDeleteResult is the data block of a bulk delete response.
type BulkDeleteResult struct {
	DeletedCount int `json:"deleted_count"`
}

// ImportRowError describes one rejected import row.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult is the data block of an import response.
type ImportResult struct {
	Imported int              `json:"imported"`
	Skipped  int              `json:"skipped"`
	Errors   []ImportRowError `json:"errors,omitempty"`
}
