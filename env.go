package statecache

import (
	"os"
	"path/filepath"
	"strings"
)

// Environment variables read by the cache.
const (
	// EnvCachePath names the directory that holds the cache file.
	// Empty means the working directory.
	EnvCachePath = "GOGPU_STATE_CACHE_PATH"

	// EnvCacheEnable disables persistence when set to "0" or "false".
	EnvCacheEnable = "GOGPU_STATE_CACHE"

	// EnvLogLevel selects the level of NewLogger.
	EnvLogLevel = "GOGPU_LOG_LEVEL"
)

// FileExtension is appended to the executable name to form the cache file name.
const FileExtension = ".pipeline-cache"

// defaultBaseName is used when the executable name is unknown.
const defaultBaseName = "gogpu"

// Environment provides read-only access to process configuration.
type Environment interface {
	// Getenv returns the value of an environment variable, or "".
	Getenv(key string) string

	// Executable returns the path of the running executable, or "".
	Executable() string
}

// OSEnvironment returns the Environment of the current process.
func OSEnvironment() Environment {
	return osEnvironment{}
}

type osEnvironment struct{}

func (osEnvironment) Getenv(key string) string {
	return os.Getenv(key)
}

func (osEnvironment) Executable() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return exe
}

// CachePath returns the cache file path for env: the directory from
// GOGPU_STATE_CACHE_PATH joined with the executable base name, its extension
// replaced by FileExtension.
func CachePath(env Environment) string {
	base := filepath.Base(env.Executable())
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = defaultBaseName
	}
	return filepath.Join(env.Getenv(EnvCachePath), base+FileExtension)
}

// persistenceEnabled reports whether GOGPU_STATE_CACHE allows a cache file.
func persistenceEnabled(env Environment) bool {
	switch strings.ToLower(strings.TrimSpace(env.Getenv(EnvCacheEnable))) {
	case "0", "false":
		return false
	default:
		return true
	}
}
