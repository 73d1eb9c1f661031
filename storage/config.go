package storage

// BadgerConfig controls the history database.
type BadgerConfig struct {
	DataDir        string
	DisableLogging bool
	InMemory       bool
	SyncWrites     bool
	GCInterval     int64 // in seconds, 0 to disable
}

// DefaultConfig returns the standard history database configuration.
func DefaultConfig(dataDir string) BadgerConfig {
	return BadgerConfig{
		DataDir:        dataDir,
		DisableLogging: true,
		InMemory:       false,
		SyncWrites:     true,
		GCInterval:     3600, // 1 hour
	}
}
