package config

// NewDefaultDocument returns a fresh Document populated with TimeLocker's
// default values, ported in meaning from the Python original's
// configuration_defaults.py (see SPEC_FULL.md's supplemented-features note).
func NewDefaultDocument() *Document {
	return &Document{
		SchemaVersion: SchemaVersion,
		General: GeneralSection{
			LogLevel:  "info",
			LogFormat: "json",
		},
		Backup: BackupSection{
			MaxRetries:           3,
			RetryDelaySeconds:    1.0,
			BackoffMultiplier:    2.0,
			MaxConcurrentBackups: 2,
			VerifyAfterBackup:    false,
			CompressionLevel:     "auto",
			ExcludeCaches:        true,
		},
		Restore: RestoreSection{
			VerifyAfterRestore:         true,
			CreateTargetDirectory:      true,
			ConflictResolution:         "prompt",
			StrictVerificationTimeout:  false,
			CheckReadDataTimeoutSeconds: 300,
		},
		Security: SecuritySection{
			RequireEncryptedRepository: false,
			AutoLockTimeoutSeconds:     1800,
			MaxUnlockAttempts:          5,
			LockoutSeconds:             300,
		},
		UI: UISection{
			Color:   true,
			Spinner: true,
			DateFmt: "2006-01-02 15:04:05",
		},
		Notifications: NotificationsSection{
			Enabled: false,
		},
		Monitoring: MonitoringSection{
			Enabled:             true,
			StatusRetentionDays: 30,
		},
		Repositories:  map[string]RepositoryDescriptor{},
		BackupTargets: map[string]BackupTargetDescriptor{},
	}
}
