package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

// Event types emitted on the notification topic.
const (
	TypeSparkCreated   = "spark.created"
	TypePostCreated    = "post.created"
	TypeCommentCreated = "comment.created"
)

// Event is the envelope published for every social action. SubjectID is the
// profile the action lands on (spark target, wall owner); for posts it is
// the author.
type Event struct {
	Type      string    `json:"type"`
	ActorID   string    `json:"actor_id"`
	SubjectID string    `json:"subject_id"`
	ObjectID  string    `json:"object_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Publisher sends domain events to Kafka so a notification pipeline can pick
// them up.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

func NewPublisher(producer sarama.SyncProducer, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{producer: producer, topic: topic, logger: logger}
}

// Publish sends one event, keyed by the subject so one profile's
// notifications stay ordered.
func (p *Publisher) Publish(ev Event) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.SubjectID),
		Value: sarama.ByteEncoder(payload),
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", ev.Type, err)
	}

	p.logger.Info("Event published", "type", ev.Type, "actor", ev.ActorID, "subject", ev.SubjectID)
	return nil
}

// SparkCreated announces a new connection between initiator and target.
func (p *Publisher) SparkCreated(initiatorID, targetID string) error {
	return p.Publish(Event{Type: TypeSparkCreated, ActorID: initiatorID, SubjectID: targetID})
}

// PostCreated announces a new post by authorID.
func (p *Publisher) PostCreated(authorID string, postID int) error {
	return p.Publish(Event{
		Type:      TypePostCreated,
		ActorID:   authorID,
		SubjectID: authorID,
		ObjectID:  fmt.Sprintf("%d", postID),
	})
}

// CommentCreated announces a new comment on wallOwnerID's wall.
func (p *Publisher) CommentCreated(authorID, wallOwnerID string, commentID int) error {
	return p.Publish(Event{
		Type:      TypeCommentCreated,
		ActorID:   authorID,
		SubjectID: wallOwnerID,
		ObjectID:  fmt.Sprintf("%d", commentID),
	})
}
