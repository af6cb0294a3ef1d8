package models

// AuthRequest is the body of a password authentication call.
type AuthRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by a successful authentication.
type AuthResponse struct {
	Token   string `json:"token"`
	Email   string `json:"email"`
	Expires string `json:"expires"`
}

// UpdateFrontmatterRequest replaces the frontmatter of a record.
type UpdateFrontmatterRequest struct {
	Data map[string]any `json:"data"`
}

// UpdateContentRequest replaces the body of a record.
type UpdateContentRequest struct {
	Content string `json:"content"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
