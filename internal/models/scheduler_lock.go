package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// SchedulerLock marks one run of a scheduled job as claimed so that several
// server instances sharing a database do not run it twice.
type SchedulerLock struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LockName  string    `gorm:"uniqueIndex:idx_lock_name_key;size:100;not null" json:"lock_name"`
	LockKey   string    `gorm:"uniqueIndex:idx_lock_name_key;size:100;not null" json:"lock_key"`
	LockedBy  string    `gorm:"size:100" json:"locked_by"`
	LockedAt  time.Time `json:"locked_at"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}

func (SchedulerLock) TableName() string { return "scheduler_locks" }

// TryAcquireLock claims (name, key) for holder. It returns false without an
// error when another holder already owns an unexpired claim.
func TryAcquireLock(db *gorm.DB, name, key, holder string, ttl time.Duration, now time.Time) (bool, error) {
	// expired claims are reusable
	if err := db.Where("lock_name = ? AND lock_key = ? AND expires_at < ?", name, key, now).
		Delete(&SchedulerLock{}).Error; err != nil {
		return false, err
	}

	lock := SchedulerLock{
		LockName:  name,
		LockKey:   key,
		LockedBy:  holder,
		LockedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.Create(&lock).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PruneLocks removes claims that expired before now.
func PruneLocks(db *gorm.DB, now time.Time) (int64, error) {
	res := db.Where("expires_at < ?", now).Delete(&SchedulerLock{})
	return res.RowsAffected, res.Error
}
