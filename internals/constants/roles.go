package constants

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)
