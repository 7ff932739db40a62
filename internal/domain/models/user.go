package models

// Роли пользователей.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User представляет пользователя
type User struct {
	ID       int64
	Username string
	Email    string
	PassHash []byte
	Role     string
}
