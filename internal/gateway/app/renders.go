package app

import (
	"fmt"

	"go.uber.org/zap"

	"luxespace/internal/gateway/config"
	"luxespace/internal/gateway/repository/render"
)

// chooseRenderStore uses object storage when configured and inline data URLs
// otherwise.
func chooseRenderStore(cfg *config.Config, log *zap.Logger) (render.Store, error) {
	if !cfg.Render.Enabled {
		log.Info("render store: inline data urls")
		return render.InlineStore{}, nil
	}
	s3Cfg := render.S3Config{
		Endpoint:  cfg.Render.Endpoint,
		Region:    cfg.Render.Region,
		AccessKey: cfg.Render.AccessKey,
		SecretKey: cfg.Render.SecretKey,
		Bucket:    cfg.Render.Bucket,
		UseSSL:    cfg.Render.UseSSL,
		URLExpiry: cfg.Render.URLExpiry,
	}
	store, err := render.NewS3Store(s3Cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize render s3 store: %w", err)
	}
	log.Info("render store: s3", zap.String("bucket", s3Cfg.Bucket), zap.String("endpoint", s3Cfg.Endpoint))
	return store, nil
}
