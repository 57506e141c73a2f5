// internal/domain/models/roles.go
package models

// Caller roles carried in the bearer identity.
const (
	RoleAdmin   = "admin"
	RoleMentor  = "mentor"
	RoleStudent = "student"
)
