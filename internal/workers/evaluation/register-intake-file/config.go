// internal/workers/evaluation/register-intake-file/config.go
package registerintakefile

import "time"

// Config bounds one job execution. A registration is one blob write and one
// insert, so the ceiling stays tight.
type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
