package jobs

import (
	"log/slog"
	"time"

	"gorm.io/gorm"

	"navlens/internal/config"
	"navlens/internal/database"
	"navlens/internal/events"
)

// RetentionJob removes collected events older than the configured
// retention window. Sessions are kept: they hold no timestamped browsing
// history, only the resolved client profile.
type RetentionJob struct {
	dbManager *database.DBManager
	logger    *slog.Logger
	cfg       *config.Config
}

func NewRetentionJob(dbManager *database.DBManager, logger *slog.Logger, cfg *config.Config) *RetentionJob {
	return &RetentionJob{
		dbManager: dbManager,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run deletes expired rows from every event table in batches so long
// deletes do not hold the write lock.
func (j *RetentionJob) Run() error {
	retentionDays := j.cfg.EventRetentionDays
	if retentionDays <= 0 {
		j.logger.Debug("Event retention disabled")
		return nil
	}

	db := j.dbManager.GetConnection()
	cutoffDate := time.Now().UTC().AddDate(0, 0, -retentionDays)

	j.logger.Info("Starting event retention cleanup",
		slog.Int("retention_days", retentionDays),
		slog.Time("cutoff_date", cutoffDate))

	tables := []struct {
		name  string
		model interface{}
	}{
		{"views", &events.View{}},
		{"vitals", &events.Vital{}},
		{"error_events", &events.ErrorEvent{}},
	}

	for _, table := range tables {
		deleted, err := j.deleteExpired(db, table.model, cutoffDate)
		if err != nil {
			j.logger.Error("Failed to delete expired events",
				slog.String("table", table.name),
				slog.Any("error", err))
			return err
		}
		if deleted > 0 {
			j.logger.Info("Cleaned up expired events",
				slog.String("table", table.name),
				slog.Int64("deleted_count", deleted))
		}
	}
	return nil
}

func (j *RetentionJob) deleteExpired(db *gorm.DB, model interface{}, cutoff time.Time) (int64, error) {
	batchSize := 1000
	totalDeleted := int64(0)

	for {
		result := db.Where("timestamp < ?", cutoff).
			Limit(batchSize).
			Delete(model)
		if result.Error != nil {
			return totalDeleted, result.Error
		}

		totalDeleted += result.RowsAffected
		if result.RowsAffected < int64(batchSize) {
			return totalDeleted, nil
		}

		// Small delay between batches to prevent database lock contention
		time.Sleep(100 * time.Millisecond)
	}
}
