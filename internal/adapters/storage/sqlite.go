// Package storage persists the device inventory, scan history and audit
// trail in SQLite through GORM.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/ports"
)

// SQLiteAdapter implements ports.Storage using GORM and SQLite.
type SQLiteAdapter struct {
	db *gorm.DB
}

// DeviceModel is the GORM model for devices. Collection fields are stored as
// JSON text columns.
type DeviceModel struct {
	ID         string `gorm:"primaryKey"`
	Hostname   string
	DeviceName string
	Type       string `gorm:"index"`
	Status     string `gorm:"index"`
	PrimaryIP  string `gorm:"index"`
	PrimaryMAC string

	Manufacturer string
	Model        string
	OSJSON       string `gorm:"column:operating_system"`

	InterfacesJSON      string `gorm:"column:interfaces"`
	OpenPortsJSON       string `gorm:"column:open_ports"`
	ServicesJSON        string `gorm:"column:services"`
	ProtocolsJSON       string `gorm:"column:protocols"`
	VulnerabilitiesJSON string `gorm:"column:vulnerabilities"`

	SecurityScore    float64
	LastSecurityScan *time.Time
	FirstSeen        time.Time `gorm:"index"`
	LastSeen         time.Time
	LastUpdated      time.Time
	ScanCount        int

	TagsJSON         string `gorm:"column:tags"`
	Notes            string
	CustomFieldsJSON string `gorm:"column:custom_fields"`

	AutomationTriggered   bool
	AutomationActionsJSON string `gorm:"column:automation_actions"`
}

// ScanModel is the GORM model for scan records.
type ScanModel struct {
	ID         string `gorm:"primaryKey"`
	Target     string
	Type       string `gorm:"index"`
	PortsJSON  string `gorm:"column:ports"`
	Timeout    int
	Aggressive bool

	State       string    `gorm:"index"`
	StartedAt   time.Time `gorm:"index"`
	CompletedAt *time.Time
	Error       string

	DevicesFound         int
	VulnerabilitiesFound int
	ResultsJSON          string `gorm:"column:results"`
}

// AuditLogModel is the GORM model for audit entries.
type AuditLogModel struct {
	ID        uint   `gorm:"primaryKey"`
	Actor     string `gorm:"index"`
	Action    string `gorm:"index"`
	Target    string
	Details   string
	IPAddress string
	Timestamp time.Time `gorm:"index"`
}

// NewSQLiteAdapter initializes the database and migrates schema.
func NewSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := db.Use(tracing.NewPlugin()); err != nil {
		return nil, fmt.Errorf("register tracing plugin: %w", err)
	}

	// Auto Migrate
	if err := db.AutoMigrate(&DeviceModel{}, &ScanModel{}, &AuditLogModel{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	// Composite index for the inventory list ordering
	db.Exec("CREATE INDEX IF NOT EXISTS idx_devices_first_seen_id ON device_models(first_seen, id)")

	return &SQLiteAdapter{db: db}, nil
}

// SaveDevicesBatch upserts multiple devices in a single transaction.
func (a *SQLiteAdapter) SaveDevicesBatch(ctx context.Context, devices []domain.Device) error {
	if len(devices) == 0 {
		return nil
	}

	models := make([]DeviceModel, 0, len(devices))
	for _, d := range devices {
		m, err := toDeviceModel(d)
		if err != nil {
			return fmt.Errorf("encode device %s: %w", d.ID, err)
		}
		models = append(models, m)
	}

	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			UpdateAll: true,
		}).CreateInBatches(models, 100).Error
	})
}

// DeleteDevices removes devices by id. Unknown ids are ignored.
func (a *SQLiteAdapter) DeleteDevices(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return a.db.WithContext(ctx).Where("id IN ?", ids).Delete(&DeviceModel{}).Error
}

// LoadDevices returns every stored device, oldest first.
func (a *SQLiteAdapter) LoadDevices(ctx context.Context) ([]domain.Device, error) {
	var models []DeviceModel
	if err := a.db.WithContext(ctx).Order("first_seen asc, id asc").Find(&models).Error; err != nil {
		return nil, err
	}

	devices := make([]domain.Device, 0, len(models))
	for _, m := range models {
		d, err := toDeviceDomain(m)
		if err != nil {
			return nil, fmt.Errorf("decode device %s: %w", m.ID, err)
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// GetDevice retrieves a single stored device.
func (a *SQLiteAdapter) GetDevice(ctx context.Context, id string) (domain.Device, error) {
	var model DeviceModel
	if err := a.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Device{}, domain.NewNotFoundError("device", id)
		}
		return domain.Device{}, err
	}
	return toDeviceDomain(model)
}

func (a *SQLiteAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ensure interface compliance
var _ ports.Storage = (*SQLiteAdapter)(nil)
