package model

// User is the authenticated principal's profile as returned by the backend
// on login. The admin flag only gates UI visibility; the backend enforces
// role checks on every mutating endpoint.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
}
