// Package archiver moves released allocations into the archive table so the
// active tables stay small. It runs as a background loop next to the HTTP
// server.
package archiver

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"fleet_allocator/internal/models"
)

type Archiver struct {
	db       *gorm.DB
	interval time.Duration
}

func New(db *gorm.DB, interval time.Duration) *Archiver {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Archiver{db: db, interval: interval}
}

// Run sweeps on a ticker until ctx is cancelled. Always returns ctx.Err();
// sweep failures are logged and retried on the next tick.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			moved, err := a.sweep()
			if err != nil {
				logrus.WithError(err).Error("Allocation archive sweep failed.")
				continue
			}
			if moved > 0 {
				logrus.WithField("archived", moved).Info("Released allocations archived.")
			}
		}
	}
}

// sweep copies each released allocation into the archive and soft-deletes
// the original. The existence check makes a replayed copy a no-op, so a
// sweep interrupted between copy and delete heals itself.
func (a *Archiver) sweep() (int, error) {
	var released []models.Allocation
	if err := a.db.Where("released_at IS NOT NULL").Find(&released).Error; err != nil {
		return 0, err
	}

	moved := 0
	for _, allocation := range released {
		archived := models.ArchivedAllocation{
			AllocationID:       allocation.ID,
			Reference:          allocation.Reference,
			VehicleID:          allocation.VehicleID,
			UnitID:             allocation.UnitID,
			DriverID:           allocation.DriverID,
			AgentID:            allocation.AgentID,
			RequestedProcesses: allocation.RequestedProcesses,
			CompletedProcesses: allocation.CompletedProcesses,
			ReleasedAt:         allocation.ReleasedAt,
			ReleasedBy:         allocation.ReleasedBy,
			ArchivedAt:         time.Now().UTC(),
		}

		err := a.db.Transaction(func(tx *gorm.DB) error {
			var existing int64
			if err := tx.Model(&models.ArchivedAllocation{}).
				Where("allocation_id = ?", allocation.ID).
				Count(&existing).Error; err != nil {
				return err
			}
			if existing == 0 {
				if err := tx.Create(&archived).Error; err != nil {
					return err
				}
			}
			return tx.Delete(&models.Allocation{}, allocation.ID).Error
		})
		if err != nil {
			logrus.WithError(err).WithField("allocation_id", allocation.ID).Error("Failed to archive allocation.")
			continue
		}
		moved++
	}
	return moved, nil
}
