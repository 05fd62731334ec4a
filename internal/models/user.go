package models

// UserRole represents the roles understood by the access policy. Staff accounts live in
// the users table and are managed by the authentication provider.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
)
