// Package sparkwall is a profile and connection-graph service for a social
// writing community: profiles, sparks (follows), posts, wall comments and a
// metered AI banner-styling flow. Auth, row storage, object storage and
// generation are delegated to external collaborators; this package wires the
// stores together and keeps the social-graph and quota rules consistent.
package sparkwall

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sparklit/sparkwall/internal/bucket"
	"github.com/sparklit/sparkwall/internal/config"
	"github.com/sparklit/sparkwall/internal/connection"
	"github.com/sparklit/sparkwall/internal/content"
	"github.com/sparklit/sparkwall/internal/events"
	"github.com/sparklit/sparkwall/internal/genai"
	"github.com/sparklit/sparkwall/internal/identity"
	"github.com/sparklit/sparkwall/internal/models"
	"github.com/sparklit/sparkwall/internal/pkg/supabase"
	"github.com/sparklit/sparkwall/internal/profile"
	"github.com/sparklit/sparkwall/internal/style"
	"github.com/sparklit/sparkwall/pkg/database"
	"github.com/sparklit/sparkwall/pkg/kafka"
)

// App bundles the service components. Construct one with New and share it;
// every component is safe for concurrent use.
type App struct {
	Identity *identity.Gateway
	Profiles *profile.Store
	Graph    *connection.Graph
	Content  *content.Store
	Quota    *style.Manager
	Styler   *style.Styler
	Buckets  *bucket.Store
	Events   *events.Publisher

	db     *database.Clients
	gen    *genai.Client
	logger *slog.Logger
}

// New wires the full service from configuration: Postgres + Redis clients,
// the Supabase auth and storage collaborators, the Gemini client and the
// Kafka event producer.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := database.NewClients(cfg.Database.URL, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database clients: %w", err)
	}
	if err := db.CreateSchema(); err != nil {
		return nil, err
	}

	authClient, err := supabase.NewAuthClient(cfg.Supabase.URL, cfg.Supabase.AnonKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrAuthUnavailable, err)
	}

	gen, err := genai.NewClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.TextModel, cfg.Gemini.ImageModel)
	if err != nil {
		return nil, err
	}

	producer, err := kafka.NewProducer(cfg.Kafka.Broker, cfg.Kafka.RetryMax, cfg.Kafka.RetryBackoff)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	buckets := bucket.NewStore(cfg.Supabase.URL, cfg.Supabase.AnonKey,
		cfg.Storage.PictureBucket, cfg.Storage.BannerBucket, cfg.Storage.CacheControl, logger)
	quota := style.NewManager(db.DB, db.Redis, logger)

	return &App{
		Identity: identity.NewGateway(authClient, cfg.Supabase.JWTSecret, logger),
		Profiles: profile.NewStore(db.DB, db.Redis, logger),
		Graph:    connection.NewGraph(db.DB, logger),
		Content:  content.NewStore(db.DB, logger),
		Quota:    quota,
		Styler:   style.NewStyler(quota, gen, buckets, logger),
		Buckets:  buckets,
		Events:   events.NewPublisher(producer, cfg.Kafka.Topic, logger),
		db:       db,
		gen:      gen,
		logger:   logger,
	}, nil
}

// Close releases the database and generation clients.
func (a *App) Close() error {
	if a.gen != nil {
		a.gen.Close()
	}
	if a.db != nil {
		return a.db.DB.Close()
	}
	return nil
}

// SetUpProfile uploads the optional profile picture and creates the profile
// row for the calling identity.
func (a *App) SetUpProfile(ctx context.Context, ident identity.Identity, displayName, shortBio string, picture []byte, pictureExt string) (*models.Profile, error) {
	pictureURL := ""
	if len(picture) > 0 {
		url, err := a.Buckets.UploadProfilePicture(ctx, ident.ID, picture, pictureExt)
		if err != nil {
			return nil, err
		}
		pictureURL = url
	}
	return a.Profiles.Create(ctx, ident, displayName, shortBio, pictureURL)
}

// AddSpark creates the connection and announces it. Event delivery is best
// effort; the connection is already durable when publishing fails.
func (a *App) AddSpark(ctx context.Context, ident identity.Identity, targetID string) (*models.Connection, error) {
	conn, err := a.Graph.RequestSpark(ctx, ident, targetID)
	if err != nil {
		return nil, err
	}
	if err := a.Events.SparkCreated(ident.ID, conn.Other(ident.ID)); err != nil {
		a.logger.Error("Failed to publish spark event", "error", err)
	}
	return conn, nil
}

// SharePost creates a post and announces it.
func (a *App) SharePost(ctx context.Context, ident identity.Identity, text string) (*models.Post, error) {
	post, err := a.Content.CreatePost(ctx, ident, text)
	if err != nil {
		return nil, err
	}
	if err := a.Events.PostCreated(ident.ID, post.ID); err != nil {
		a.logger.Error("Failed to publish post event", "error", err)
	}
	return post, nil
}

// PostComment writes a comment on a wall and announces it to the wall owner.
func (a *App) PostComment(ctx context.Context, ident identity.Identity, wallOwnerID, text string) (*models.Comment, error) {
	comment, err := a.Content.CreateComment(ctx, ident, wallOwnerID, text)
	if err != nil {
		return nil, err
	}
	if err := a.Events.CommentCreated(ident.ID, wallOwnerID, comment.ID); err != nil {
		a.logger.Error("Failed to publish comment event", "error", err)
	}
	return comment, nil
}
