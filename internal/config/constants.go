package config

// Default paths for databases
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./librarian.db"
)

// Env files loaded (if present) before reading the environment.
var DefaultEnvFiles = []string{".env", "config.env"}
