package model

import "time"

// AdminConfig holds one administrator's platform preferences. Every
// admin gets a row lazily; until they change something the defaults
// below apply.
type AdminConfig struct {
	AdminID           uint64    `json:"admin_id"`
	PushNotifications bool      `json:"push_notifications"`
	AutoReports       bool      `json:"auto_reports"`
	AutoBackups       bool      `json:"auto_backups"`
	SecurityAlerts    bool      `json:"security_alerts"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DefaultAdminConfig returns the settings a new admin starts with:
// notifications and security alerts on, automatic backups opt-in.
func DefaultAdminConfig(adminID uint64) AdminConfig {
	return AdminConfig{
		AdminID:           adminID,
		PushNotifications: true,
		AutoReports:       true,
		AutoBackups:       false,
		SecurityAlerts:    true,
	}
}
