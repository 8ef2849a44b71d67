package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
	"github.com/yungbote/neurobridge-publish/internal/platform/moderation"
)

func wireGate(log *logger.Logger, cfg Config) (moderation.Gate, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.ModerationMode)) {
	case "", ModerationHTTP:
		return moderation.NewClient(log, moderation.ClientConfig{
			URL:            cfg.ModerationURL,
			APIKey:         cfg.ModerationAPIKey,
			MaxRetries:     cfg.ModerationMaxRetries,
			Timeout:        10 * time.Second,
			InitialBackoff: 250 * time.Millisecond,
			MaxBackoff:     2 * time.Second,
		})
	case ModerationStatic:
		status := publishing.ParseModerationStatus(cfg.ModerationStaticStatus)
		log.Warn("MODERATION_MODE=static; every submission gets the same verdict", "status", status)
		return moderation.NewStaticGate(status), nil
	default:
		return nil, fmt.Errorf("unsupported MODERATION_MODE %q", cfg.ModerationMode)
	}
}
