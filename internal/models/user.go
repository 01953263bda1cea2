package models

// User is a dashboard account. Only the bcrypt hash is stored and it
// never appears in API responses.
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}
