package repository

// InitState is the local-repository initialization state machine
// (spec.md §4.6).
type InitState string

const (
	StateAbsentParent    InitState = "absent_parent"
	StateEmptyDir        InitState = "empty_dir"
	StateDirWithConfig   InitState = "dir_with_config"
	StateDirWithoutConfig InitState = "dir_without_config"
)

// HealthReport is the structured health check spec.md §4.6 requires in
// place of a single boolean.
type HealthReport struct {
	DirectoryExists       bool `json:"directory_exists"`
	DirectoryWritable     bool `json:"directory_writable"`
	RepositoryInitialized bool `json:"repository_initialized"`
	PasswordAvailable     bool `json:"password_available"`
	EngineAccessible      bool `json:"engine_accessible"`
}

// CheckReport is the parsed result of the engine's integrity check.
type CheckReport struct {
	Clean     bool     `json:"clean"`
	Errors    []string `json:"errors,omitempty"`
	ReadData  bool     `json:"read_data"`
}

// StatsReport mirrors the engine's `stats --json` output.
type StatsReport struct {
	TotalSize      uint64 `json:"total_size"`
	TotalFileCount uint64 `json:"total_file_count"`
	TotalBlobCount uint64 `json:"total_blob_count"`
}

// ForgetReport summarizes a retention-policy application.
type ForgetReport struct {
	KeptSnapshotIDs    []string `json:"kept_snapshot_ids"`
	RemovedSnapshotIDs []string `json:"removed_snapshot_ids"`
	Pruned             bool     `json:"pruned"`
	DryRun             bool     `json:"dry_run"`
}
