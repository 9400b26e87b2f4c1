package blockchain

import "time"

const (
	defaultBulkBatchSize       = 500
	defaultBulkIndexSize       = 1000
	defaultForkResyncWindow    = 100
	defaultProgressEvery       = 1000
	defaultRecoveryBackoff     = 60 * time.Second
	defaultRecoveryMaxAttempts = 5
	defaultMembersLockTimeout  = 10 * time.Second

	modeSingle = "single"
	modeBulk   = "bulk"
)

// Settings tunes block synchronization.
type Settings struct {
	// BulkEnable fetches pages of blocks instead of one block per request.
	BulkEnable bool
	// BulkBatchSize is the number of blocks requested per page.
	BulkBatchSize int
	// BulkIndexSize caps the number of blocks per store write.
	BulkIndexSize int
	// ForkResyncWindow is the backward step used while looking for a common ancestor.
	ForkResyncWindow uint64
	// ProgressEvery is the number of blocks between progress reports in single mode.
	ProgressEvery int
	// UpdateCurrentEveryPage moves "current" after every bulk page instead of only
	// when a page contains the target block.
	UpdateCurrentEveryPage bool
	RecoveryBackoff        time.Duration
	RecoveryMaxAttempts    int
	MembersLockTimeout     time.Duration
}

// DefaultSettings returns the production defaults.
func DefaultSettings() Settings {
	return Settings{
		BulkEnable:          true,
		BulkBatchSize:       defaultBulkBatchSize,
		BulkIndexSize:       defaultBulkIndexSize,
		ForkResyncWindow:    defaultForkResyncWindow,
		ProgressEvery:       defaultProgressEvery,
		RecoveryBackoff:     defaultRecoveryBackoff,
		RecoveryMaxAttempts: defaultRecoveryMaxAttempts,
		MembersLockTimeout:  defaultMembersLockTimeout,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.BulkBatchSize <= 0 {
		s.BulkBatchSize = d.BulkBatchSize
	}
	if s.BulkIndexSize <= 0 {
		s.BulkIndexSize = d.BulkIndexSize
	}
	if s.ForkResyncWindow == 0 {
		s.ForkResyncWindow = d.ForkResyncWindow
	}
	if s.ProgressEvery <= 0 {
		s.ProgressEvery = d.ProgressEvery
	}
	if s.RecoveryMaxAttempts <= 0 {
		s.RecoveryMaxAttempts = d.RecoveryMaxAttempts
	}
	if s.MembersLockTimeout <= 0 {
		s.MembersLockTimeout = d.MembersLockTimeout
	}
	return s
}
