package style

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sparklit/sparkwall/internal/identity"
	"github.com/sparklit/sparkwall/internal/models"
)

// ImageGenerator produces a banner image for a prompt. Implemented by the
// Gemini client; the returned ext is the file extension for storage.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (data []byte, ext string, err error)
}

// BannerUploader stores a generated banner and returns its public URL.
type BannerUploader interface {
	UploadBanner(ctx context.Context, userID string, data []byte, ext string) (string, error)
}

// Styler runs the full banner-generation flow: quota pre-check, generation,
// upload, then the atomic quota increment. One flow per profile at a time,
// enforced by the manager's Redis lease.
type Styler struct {
	manager *Manager
	gen     ImageGenerator
	bucket  BannerUploader
	logger  *slog.Logger

	mu    sync.Mutex
	flows map[string]*Flow
}

func NewStyler(manager *Manager, gen ImageGenerator, bucket BannerUploader, logger *slog.Logger) *Styler {
	return &Styler{
		manager: manager,
		gen:     gen,
		bucket:  bucket,
		logger:  logger,
		flows:   make(map[string]*Flow),
	}
}

// Flow returns the styling state machine for a profile, creating it in the
// idle state on first use.
func (s *Styler) Flow(profileID string) *Flow {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flows[profileID]
	if !ok {
		f = NewFlow()
		s.flows[profileID] = f
	}
	return f
}

// GenerateBanner generates, stores and records a new banner for the calling
// identity's profile. On any failure the quota counter is untouched.
func (s *Styler) GenerateBanner(ctx context.Context, ident identity.Identity, prompt string) (string, error) {
	if ident.ID == "" {
		return "", models.ErrUnauthenticated
	}
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: styling prompt", models.ErrEmptyContent)
	}

	ok, err := s.manager.CanGenerate(ctx, ident.ID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", models.ErrQuotaExceeded
	}

	if err := s.manager.AcquireLease(ctx, ident.ID); err != nil {
		return "", err
	}
	defer s.manager.ReleaseLease(ctx, ident.ID)

	flow := s.Flow(ident.ID)
	switch flow.State() {
	case StateIdle, StateError:
		if err := flow.OpenPrompt(); err != nil {
			return "", err
		}
	}
	if err := flow.BeginGeneration(); err != nil {
		return "", err
	}

	url, err := s.generate(ctx, ident.ID, prompt)
	if ferr := flow.FinishGeneration(err == nil); ferr != nil {
		s.logger.Error("Styling flow out of sync", "error", ferr, "user_id", ident.ID)
	}
	s.releaseFlow(ident.ID)
	return url, err
}

// DismissFlow closes a profile's styling panel or clears its displayed error.
func (s *Styler) DismissFlow(profileID string) error {
	flow := s.Flow(profileID)
	if err := flow.Dismiss(); err != nil {
		return err
	}
	s.releaseFlow(profileID)
	return nil
}

// releaseFlow drops a profile's flow once it settles back to idle, so the map
// only holds profiles with a panel open or an error on display.
func (s *Styler) releaseFlow(profileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.flows[profileID]; ok && f.State() == StateIdle {
		delete(s.flows, profileID)
	}
}

func (s *Styler) generate(ctx context.Context, profileID, prompt string) (string, error) {
	data, ext, err := s.gen.GenerateImage(ctx, prompt)
	if err != nil {
		s.logger.Error("AI generation failed", "error", err, "user_id", profileID)
		return "", err
	}

	url, err := s.bucket.UploadBanner(ctx, profileID, data, ext)
	if err != nil {
		s.logger.Error("Banner upload failed", "error", err, "user_id", profileID)
		return "", err
	}

	if _, err := s.manager.RecordGeneration(ctx, profileID, url); err != nil {
		return "", err
	}

	s.logger.Info("Banner generated", "user_id", profileID, "url", url)
	return url, nil
}
