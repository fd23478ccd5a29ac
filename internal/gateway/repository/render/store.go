package render

import (
	"context"
	"strconv"
	"strings"

	"luxespace/internal/design"
)

// Store turns a rendered option image into a URL a browser can load.
type Store interface {
	Publish(ctx context.Context, key string, img *design.RenderedImage) (string, error)
}

// Key names the image of option idx within one analysis result.
func Key(sessionID, resultID string, idx int) string {
	return strings.TrimSpace(sessionID) + "/" + strings.TrimSpace(resultID) + "/option-" + strconv.Itoa(idx)
}

// InlineStore keeps nothing and embeds the image as a data URL.
type InlineStore struct{}

func (InlineStore) Publish(_ context.Context, _ string, img *design.RenderedImage) (string, error) {
	return img.DataURL(), nil
}
