package types

import (
	"os"
	"strconv"
	"strings"
)

const ContextUserKey = "user"

// Permission keys understood by the authorization middleware. Roles carry
// an open string->bool map, so deployments may define additional keys;
// these are the ones the built-in routes are gated on. PermissionAll is
// the reserved super-permission and is never enumerated as a grant of
// its own.
const (
	PermissionAll               = "all"
	PermissionManageRoles       = "manage_roles"
	PermissionManageUsers       = "manage_users"
	PermissionManageComponents  = "manage_components"
	PermissionManageIncidents   = "manage_incidents"
	PermissionManageMaintenance = "manage_maintenance"
	PermissionManageAutomations = "manage_automations"
	PermissionManageSettings    = "manage_settings"
	PermissionViewAuditLogs     = "view_audit_logs"
)

// Reserved site-setting keys.
const (
	SettingMaintenanceModeEnabled = "maintenance_mode_enabled"
	SettingMaintenanceModeMessage = "maintenance_mode_message"
)

// DefaultRecentWindowDays bounds the "recent" incident and maintenance
// views when the caller does not supply a window.
const DefaultRecentWindowDays = 15

var (
	// Default allowed origins for development
	defaultOrigins = []string{
		"http://localhost:3000",
		"http://localhost:5173",
	}

	AllowedOrigins = initAllowedOrigins()
)

func initAllowedOrigins() []string {
	origins := make([]string, len(defaultOrigins))
	copy(origins, defaultOrigins)

	if clientURL := os.Getenv("CLIENT_URL"); clientURL != "" {
		origins = append(origins, clientURL)
	}

	if allowedOrigins := os.Getenv("ALLOWED_ORIGINS"); allowedOrigins != "" {
		envOrigins := strings.Split(allowedOrigins, ",")
		for _, origin := range envOrigins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
	}

	return origins
}

// RecentWindowDays returns the configured recent-view window, falling back
// to the default when RECENT_WINDOW_DAYS is unset or not a positive integer.
func RecentWindowDays() int {
	raw := os.Getenv("RECENT_WINDOW_DAYS")
	if raw == "" {
		return DefaultRecentWindowDays
	}

	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		return DefaultRecentWindowDays
	}

	return days
}
