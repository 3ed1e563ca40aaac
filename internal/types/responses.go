package types

// UserResponse is the safe projection of a user returned by auth and
// user-management endpoints.
type UserResponse struct {
	ID       uint            `json:"id"`
	Username string          `json:"username"`
	Role     string          `json:"role"`
	RoleID   uint            `json:"role_id"`
	Perms    map[string]bool `json:"permissions,omitempty"`
}
