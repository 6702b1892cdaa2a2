package linkcore

import "errors"

// Backend names a concrete Allocator implementation a Group can be built
// against.
type Backend string

// Supported backend names.
const (
	BackendMemory Backend = "memory"
	BackendSQLite Backend = "sqlite"
)

// Config holds the knobs that select and parametrize a Group's storage
// and cascade behavior.
type Config struct {
	// Backend selects the Allocator implementation. DefaultConfig sets it
	// to BackendMemory; Validate rejects an empty value with
	// ErrBackendEmpty.
	Backend Backend `json:"backend" yaml:"backend"`

	// SQLitePath is the database file path used when Backend is
	// BackendSQLite.
	SQLitePath string `json:"sqlite_path" yaml:"sqlite_path"`

	// DataDir overrides the directory the sqlite backend's database file
	// is placed under when SQLitePath is not set explicitly. It sits
	// between the --data-dir flag and the LINKCORE_DATA_DIR environment
	// variable in internal/paths's resolution precedence.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// NodeThreshold is a leaf-size threshold setting. Validate requires
	// it to be positive; leaf allocation does not read it, and leaves
	// grow by doubling their capacity regardless of its value.
	NodeThreshold int `json:"node_threshold" yaml:"node_threshold"`

	// TrackLinkNullifications selects whether cascades record nullified
	// weak links in the CascadeNotification they deliver.
	TrackLinkNullifications bool `json:"track_link_nullifications" yaml:"track_link_nullifications"`
}

// DefaultConfig returns a Config with the in-memory backend and sensible
// defaults for a freshly created Group.
func DefaultConfig() Config {
	return Config{
		Backend:                 BackendMemory,
		NodeThreshold:           1000,
		TrackLinkNullifications: true,
	}
}

// Config validation errors.
var (
	ErrBackendEmpty         = errors.New("linkcore: backend must not be empty")
	ErrBackendUnknown       = errors.New("linkcore: unknown backend")
	ErrSQLitePathRequired   = errors.New("linkcore: sqlite_path is required for the sqlite backend")
	ErrNodeThresholdInvalid = errors.New("linkcore: node_threshold must be positive")
)

var knownBackends = map[Backend]bool{
	BackendMemory: true,
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Backend == BackendSQLite && c.SQLitePath == "" {
		return ErrSQLitePathRequired
	}
	if c.NodeThreshold <= 0 {
		return ErrNodeThresholdInvalid
	}
	return nil
}
