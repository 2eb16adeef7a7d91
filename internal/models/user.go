package models

// User represents a registered account holder. The password hash never
// leaves the persistence layer in any serialized form.
type User struct {
	ID           int    `json:"id" example:"1"`
	Username     string `json:"username" example:"ana"`
	Email        string `json:"email" example:"ana@example.com"`
	PasswordHash string `json:"-"`
}
