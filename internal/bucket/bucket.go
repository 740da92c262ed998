package bucket

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	storage "github.com/supabase-community/storage-go"

	"github.com/sparklit/sparkwall/internal/models"
)

// Store uploads files to the Supabase storage buckets and resolves their
// public URLs. Paths follow the {userId}/{timestamp}.{ext} convention.
type Store struct {
	client        *storage.Client
	pictureBucket string
	bannerBucket  string
	cacheControl  string
	logger        *slog.Logger

	// now is swapped in tests to pin upload paths.
	now func() time.Time
}

func NewStore(supabaseURL, apiKey, pictureBucket, bannerBucket, cacheControl string, logger *slog.Logger) *Store {
	client := storage.NewClient(supabaseURL+"/storage/v1", apiKey, nil)
	return &Store{
		client:        client,
		pictureBucket: pictureBucket,
		bannerBucket:  bannerBucket,
		cacheControl:  cacheControl,
		logger:        logger,
		now:           time.Now,
	}
}

// UploadProfilePicture stores a profile picture and returns its public URL.
func (s *Store) UploadProfilePicture(ctx context.Context, userID string, data []byte, ext string) (string, error) {
	return s.upload(s.pictureBucket, userID, data, ext)
}

// UploadBanner stores a generated banner and returns its public URL.
func (s *Store) UploadBanner(ctx context.Context, userID string, data []byte, ext string) (string, error) {
	return s.upload(s.bannerBucket, userID, data, ext)
}

func (s *Store) upload(bucketID, userID string, data []byte, ext string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: file data", models.ErrEmptyContent)
	}
	if ext == "" {
		ext = "png"
	}

	path := fmt.Sprintf("%s/%d.%s", userID, s.now().UnixMilli(), ext)

	upsert := false
	_, err := s.client.UploadFile(bucketID, path, bytes.NewReader(data), storage.FileOptions{
		CacheControl: &s.cacheControl,
		Upsert:       &upsert,
	})
	if err != nil {
		s.logger.Error("Upload failed", "error", err, "bucket", bucketID, "path", path)
		return "", fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}

	resp := s.client.GetPublicUrl(bucketID, path)
	s.logger.Info("File uploaded", "bucket", bucketID, "path", path)
	return resp.SignedURL, nil
}
