// Package events publishes article lifecycle events to Kafka. The stream is
// strictly optional: when no brokers are configured the publisher is nil and
// every call is a no-op, and publish failures never block the pipeline.
package events

import (
	"encoding/json"
	"log"
	"time"

	"github.com/IBM/sarama"

	"glasswire/types"
)

// ArticleEvent is the message emitted when an article is saved.
type ArticleEvent struct {
	Type      string       `json:"type"`
	ArticleID string       `json:"articleId"`
	Source    types.Source `json:"source"`
	Title     string       `json:"title"`
	Timestamp time.Time    `json:"timestamp"`
}

const (
	EventArticleSaved       = "article.saved"
	EventArticleTransformed = "article.transformed"
)

// Publisher wraps a sarama sync producer for one topic.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewPublisher connects to the brokers. Returns nil, nil when brokers is
// empty so callers can treat the event stream as disabled.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, saramaConfig)
	if err != nil {
		return nil, err
	}
	log.Printf("[Events] ✅ Kafka producer connected (topic: %s)", topic)
	return &Publisher{producer: producer, topic: topic}, nil
}

// ArticleSaved emits an event for a stored article. Safe on a nil publisher.
// Failures are logged and swallowed.
func (p *Publisher) ArticleSaved(eventType string, article *types.Article) {
	if p == nil {
		return
	}
	event := ArticleEvent{
		Type:      eventType,
		ArticleID: article.ID,
		Source:    article.Source,
		Title:     article.DisplayTitle(),
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[Events] Failed to marshal event for %s: %v", article.ID, err)
		return
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(article.ID),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		log.Printf("[Events] Failed to publish %s for %s: %v", eventType, article.ID, err)
	}
}

// Close shuts the producer down. Safe on a nil publisher.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	log.Println("[Events] Closing Kafka producer...")
	return p.producer.Close()
}
