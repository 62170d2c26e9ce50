package store

// Config collects the settings for every backend the store can open
type Config struct {
	AppName string

	PG PGConfig
}

// PGConfig holds postgres connectivity plus the SQL tracing knobs
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int
}
