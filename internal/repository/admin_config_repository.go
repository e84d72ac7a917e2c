package repository

import (
	"context"
	"database/sql"

	"github.com/supervitec/field-movement-api/internal/model"
)

type AdminConfigRepo struct{ DB *sql.DB }

func NewAdminConfigRepo(db *sql.DB) *AdminConfigRepo { return &AdminConfigRepo{DB: db} }

// Get returns the admin's stored preferences, or the defaults when
// they have never saved any. A missing row is not an error.
func (r *AdminConfigRepo) Get(ctx context.Context, adminID uint64) (model.AdminConfig, error) {
	cfg := model.AdminConfig{AdminID: adminID}
	err := r.DB.QueryRowContext(ctx,
		`SELECT push_notifications, auto_reports, auto_backups, security_alerts, updated_at
		 FROM admin_configs WHERE admin_id=? LIMIT 1`, adminID).
		Scan(&cfg.PushNotifications, &cfg.AutoReports, &cfg.AutoBackups,
			&cfg.SecurityAlerts, &cfg.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.DefaultAdminConfig(adminID), nil
	}
	if err != nil {
		return model.AdminConfig{}, err
	}
	return cfg, nil
}

// Upsert writes the admin's preferences, creating the row on first
// save.
func (r *AdminConfigRepo) Upsert(ctx context.Context, cfg model.AdminConfig) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO admin_configs (admin_id, push_notifications, auto_reports, auto_backups, security_alerts)
		 VALUES (?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE
			push_notifications=VALUES(push_notifications),
			auto_reports=VALUES(auto_reports),
			auto_backups=VALUES(auto_backups),
			security_alerts=VALUES(security_alerts)`,
		cfg.AdminID, cfg.PushNotifications, cfg.AutoReports, cfg.AutoBackups, cfg.SecurityAlerts)
	return err
}
