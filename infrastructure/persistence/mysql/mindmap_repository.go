package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/onokeee/mindmap/application/ports"
	"github.com/onokeee/mindmap/domain/core/aggregates"
	"github.com/onokeee/mindmap/domain/core/valueobjects"
	"github.com/onokeee/mindmap/infrastructure/persistence"
	pkgerrors "github.com/onokeee/mindmap/pkg/errors"
)

// MindMapRow is the mind_maps table. The (user_id, name) index keeps names
// unique per user.
type MindMapRow struct {
	ID        string `gorm:"primaryKey;type:char(36)"`
	UserID    string `gorm:"type:varchar(128);not null;uniqueIndex:idx_user_name,priority:1;index:idx_user_updated,priority:1"`
	Name      string `gorm:"type:varchar(255);not null;uniqueIndex:idx_user_name,priority:2"`
	Data      []byte `gorm:"type:longblob;not null"`
	NodeCount int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index:idx_user_updated,priority:2"`
	Version   int       `gorm:"not null;default:1"`
}

// TableName overrides the default table name
func (MindMapRow) TableName() string {
	return "mind_maps"
}

func fromRecord(rec persistence.Record) MindMapRow {
	return MindMapRow{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Name:      rec.Name,
		Data:      rec.Data,
		NodeCount: rec.NodeCount,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		Version:   rec.Version,
	}
}

func (row MindMapRow) toRecord() persistence.Record {
	return persistence.Record{
		ID:        row.ID,
		UserID:    row.UserID,
		Name:      row.Name,
		Data:      row.Data,
		NodeCount: row.NodeCount,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
		Version:   row.Version,
	}
}

// Open connects to MySQL. Driver errors are translated so duplicate keys
// surface as gorm.ErrDuplicatedKey.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mysql: %w", err)
	}
	return db, nil
}

// MindMapRepository stores maps in MySQL through gorm
type MindMapRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ ports.MindMapRepository = (*MindMapRepository)(nil)

// NewMindMapRepository creates a new MindMapRepository
func NewMindMapRepository(db *gorm.DB, logger *zap.Logger) *MindMapRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MindMapRepository{db: db, logger: logger}
}

// Migrate creates or updates the mind_maps table
func (r *MindMapRepository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&MindMapRow{})
}

// Save creates or overwrites a map with an optimistic version check
func (r *MindMapRepository) Save(ctx context.Context, m *aggregates.MindMap) error {
	rec, err := persistence.ToRecord(m)
	if err != nil {
		return err
	}
	row := fromRecord(rec)

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&MindMapRow{}).
			Where("user_id = ? AND name = ? AND id <> ?", row.UserID, row.Name, row.ID).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return pkgerrors.NewConflictError(fmt.Sprintf("a map named %q already exists", row.Name))
		}

		if row.Version == 1 {
			return tx.Create(&row).Error
		}

		result := tx.Model(&MindMapRow{}).
			Where("id = ? AND user_id = ? AND version = ?", row.ID, row.UserID, row.Version-1).
			Updates(map[string]interface{}{
				"name":       row.Name,
				"data":       row.Data,
				"node_count": row.NodeCount,
				"updated_at": row.UpdatedAt,
				"version":    row.Version,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return r.missingOrStale(tx, row)
		}
		return nil
	})

	if err != nil {
		return translateError("save", row, err)
	}
	return nil
}

func (r *MindMapRepository) missingOrStale(tx *gorm.DB, row MindMapRow) error {
	var count int64
	if err := tx.Model(&MindMapRow{}).
		Where("id = ? AND user_id = ?", row.ID, row.UserID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return pkgerrors.NewNotFoundError("mindmap")
	}
	return pkgerrors.NewConflictError(fmt.Sprintf("map %s was modified concurrently", row.ID))
}

// GetByID retrieves one of the user's maps
func (r *MindMapRepository) GetByID(ctx context.Context, userID string, id valueobjects.MapID) (*aggregates.MindMap, error) {
	var row MindMapRow
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id.String(), userID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.NewNotFoundError("mindmap")
	}
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get", err)
	}
	return row.toRecord().ToMindMap()
}

// ListByUser returns the user's map summaries, most recently updated first
func (r *MindMapRepository) ListByUser(ctx context.Context, userID string) ([]aggregates.MindMapSummary, error) {
	var rows []MindMapRow
	err := r.db.WithContext(ctx).
		Select("id", "name", "node_count", "updated_at").
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list", err)
	}

	summaries := make([]aggregates.MindMapSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, row.toRecord().Summary())
	}
	return summaries, nil
}

// Delete removes one of the user's maps
func (r *MindMapRepository) Delete(ctx context.Context, userID string, id valueobjects.MapID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id.String(), userID).
		Delete(&MindMapRow{})
	if result.Error != nil {
		return pkgerrors.NewDatabaseError("delete", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrors.NewNotFoundError("mindmap")
	}
	return nil
}

func translateError(operation string, row MindMapRow, err error) error {
	if pkgerrors.GetAppError(err) != nil {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// the primary key or the (user_id, name) index; a concurrent save won
		return pkgerrors.NewConflictError(
			fmt.Sprintf("map %s or name %q is already taken", row.ID, row.Name)).WithCause(err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return pkgerrors.NewDatabaseError(operation, err)
}
