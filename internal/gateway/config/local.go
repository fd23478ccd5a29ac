package config

import (
	"os"
	"strings"
)

// localConfig is the developer profile: verbose logs and plain-HTTP MinIO
// credentials matching the compose defaults when an endpoint is given.
func localConfig() Config {
	cfg := defaults()
	cfg.LogLevel = "debug"
	cfg.Render.UseSSL = false
	cfg.Render.AccessKey = firstNonEmpty(strings.TrimSpace(os.Getenv("MINIO_ROOT_USER")), "luxespace")
	cfg.Render.SecretKey = firstNonEmpty(strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD")), "luxespace123")
	return cfg
}
