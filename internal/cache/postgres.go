package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type configRow struct {
	Name      string `gorm:"primaryKey"`
	Data      string `gorm:"not null"`
	UpdatedAt time.Time
}

func (configRow) TableName() string { return "config" }

// PostgresCache is the same config table as SQLiteCache, reached through gorm.
type PostgresCache struct {
	db *gorm.DB
}

var _ ListCache = (*PostgresCache)(nil)

func NewPostgresCache(ctx context.Context, dsn string) (*PostgresCache, error) {
	if dsn == "" {
		return nil, fmt.Errorf("missing DSN")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	sdb, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sdb.SetConnMaxLifetime(30 * time.Minute)
	sdb.SetMaxOpenConns(10)
	sdb.SetMaxIdleConns(5)
	if err := sdb.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	if err := gdb.WithContext(ctx).AutoMigrate(&configRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate config table: %w", err)
	}
	return &PostgresCache{db: gdb}, nil
}

func (pc *PostgresCache) Ready(ctx context.Context) error {
	sdb, err := pc.db.DB()
	if err != nil {
		return err
	}
	return sdb.PingContext(ctx)
}

func (pc *PostgresCache) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	var row configRow
	err := pc.db.WithContext(ctx).First(&row, "name = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return io.NopCloser(strings.NewReader(row.Data)), nil
}

func (pc *PostgresCache) Exists(ctx context.Context, key string) (bool, error) {
	var count int64
	if err := pc.db.WithContext(ctx).Model(&configRow{}).Where("name = ?", key).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (pc *PostgresCache) Put(ctx context.Context, key, value string, opts PutOptions) error {
	row := configRow{Name: key, Data: value, UpdatedAt: time.Now()}
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}
	if opts.Condition == PutIfNoneMatch {
		onConflict = clause.OnConflict{DoNothing: true}
	}

	res := pc.db.WithContext(ctx).Clauses(onConflict).Create(&row)
	if res.Error != nil {
		return fmt.Errorf("failed to write %s: %w", key, res.Error)
	}
	if opts.Condition == PutIfNoneMatch && res.RowsAffected == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (pc *PostgresCache) List(ctx context.Context, prefix string, _ string) ([]string, error) {
	var names []string
	err := pc.db.WithContext(ctx).Model(&configRow{}).
		Where("starts_with(name, ?)", prefix).
		Order("name").
		Pluck("name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list config: %w", err)
	}
	for i := range names {
		names[i] = strings.TrimPrefix(names[i], prefix)
	}
	return names, nil
}
