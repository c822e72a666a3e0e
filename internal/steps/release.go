package steps

import (
	"context"
	"fmt"

	"github.com/packwright/packwright/internal/pipeline"
	"github.com/packwright/packwright/pkg/logger"
)

// PublishReleaseHandler creates (or reuses) the release for the pipeline's
// tag and attaches the downloaded artifacts as assets. The release is named
// and tagged after the pushed tag.
type PublishReleaseHandler struct {
	services *Services
}

func (h *PublishReleaseHandler) Handle(ctx context.Context, session *Session, step pipeline.Step) error {
	if h.services.Release == nil {
		return fmt.Errorf("release client not configured: repository and access token are required")
	}
	if h.services.Tag == "" {
		return fmt.Errorf("no tag to release")
	}

	files := session.Downloads
	if len(files) == 0 {
		return fmt.Errorf("publish-release step has no assets: run download-artifact first")
	}

	body := session.Expand(step.With["body"])
	draft := step.With["draft"] == "true"
	prerelease := step.With["prerelease"] == "true"

	release, err := h.services.Release.EnsureRelease(ctx, h.services.Tag, body, draft, prerelease)
	if err != nil {
		return err
	}

	for _, file := range files {
		if _, err := h.services.Release.UploadAsset(ctx, release.ID, file); err != nil {
			return err
		}
	}

	logger.NewLogger("release").WithFields(logger.Fields{
		"tag":    release.TagName,
		"assets": len(files),
		"url":    release.HTMLURL,
	}).Info("Release published")
	return nil
}
