// internal/workers/evaluation/process-evaluation/config.go
package processevaluation

import "time"

// Config bounds one job execution. Pipeline runs include several external
// service calls, so the ceiling is generous.
type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 5 * time.Minute,
	}
}
