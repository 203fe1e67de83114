// Package push fans notifications out to stored web-push subscriptions.
// Delivery is fire-and-forget: transient failures are logged without retry,
// and endpoints that report themselves gone are pruned from storage.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	webpush "github.com/SherClockHolmes/webpush-go"

	"glasswire/config"
	"glasswire/storage"
	"glasswire/types"
)

// Notification is the payload delivered to the service worker.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon,omitempty"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// TestResult summarizes a test broadcast.
type TestResult struct {
	Sent   int      `json:"sent"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors,omitempty"`
}

// Transport delivers one encrypted payload to one endpoint and reports the
// HTTP status. Split out so tests can fake delivery.
type Transport interface {
	Send(ctx context.Context, sub *types.Subscription, payload []byte) (int, error)
}

type webpushTransport struct {
	opts webpush.Options
}

func (t *webpushTransport) Send(ctx context.Context, sub *types.Subscription, payload []byte) (int, error) {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}, &t.opts)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// Service broadcasts notifications to all stored subscriptions.
type Service struct {
	subs      *storage.SubscriptionRepo
	transport Transport
}

// New creates the push service. Returns nil when the VAPID key pair is not
// configured; callers treat a nil service as push disabled.
func New(cfg *config.Config, subs *storage.SubscriptionRepo) *Service {
	if cfg.VAPIDPublicKey == "" || cfg.VAPIDPrivateKey == "" {
		return nil
	}
	return &Service{
		subs: subs,
		transport: &webpushTransport{opts: webpush.Options{
			Subscriber:      cfg.VAPIDSubject,
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
			TTL:             config.PushTTL,
		}},
	}
}

// NewWithTransport wires a custom delivery transport.
func NewWithTransport(subs *storage.SubscriptionRepo, transport Transport) *Service {
	return &Service{subs: subs, transport: transport}
}

// Broadcast sends the notification to every subscription in parallel and
// returns how many deliveries succeeded. Endpoints answering 404 or 410 are
// deleted; other failures are logged and the subscription kept.
func (s *Service) Broadcast(ctx context.Context, n *Notification) (int, error) {
	subs, err := s.subs.FindAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return 0, nil
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal notification: %w", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	sent := 0
	for key, sub := range subs {
		wg.Add(1)
		go func(key string, sub *types.Subscription) {
			defer wg.Done()
			status, sendErr := s.transport.Send(ctx, sub, payload)
			switch {
			case sendErr != nil:
				log.Printf("[Push] Delivery to %s failed: %v", key, sendErr)
			case status == http.StatusNotFound || status == http.StatusGone:
				log.Printf("[Push] Endpoint %s is gone (status %d), pruning", key, status)
				if delErr := s.subs.Delete(ctx, key); delErr != nil {
					log.Printf("[Push] Failed to prune %s: %v", key, delErr)
				}
			case status >= 400:
				log.Printf("[Push] Endpoint %s rejected delivery with status %d", key, status)
			default:
				mu.Lock()
				sent++
				mu.Unlock()
			}
		}(key, sub)
	}
	wg.Wait()

	log.Printf("[Push] Broadcast complete: %d/%d delivered", sent, len(subs))
	return sent, nil
}

// NotifyNewArticles announces a completed crawl with the batch size and the
// newest article's title. An empty batch is a no-op.
func (s *Service) NotifyNewArticles(ctx context.Context, articles []*types.Article) {
	if len(articles) == 0 {
		return
	}
	top := articles[0]
	body := top.DisplayTitle()
	if len(articles) > 1 {
		body = fmt.Sprintf("%s (and %d more)", top.DisplayTitle(), len(articles)-1)
	}
	if _, err := s.Broadcast(ctx, &Notification{
		Title: "Fresh news just dropped",
		Body:  body,
		Tag:   "new-articles",
		URL:   "/article/" + top.ID,
	}); err != nil {
		log.Printf("[Push] New-article broadcast failed: %v", err)
	}
}

// SendTest broadcasts a test notification and reports per-endpoint outcomes.
// Empty title or body fall back to defaults.
func (s *Service) SendTest(ctx context.Context, title, body string) (*TestResult, error) {
	subs, err := s.subs.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}

	if title == "" {
		title = "Test notification"
	}
	if body == "" {
		body = "Push delivery is working"
	}

	result := &TestResult{}
	payload, err := json.Marshal(&Notification{
		Title: title,
		Body:  body,
		Tag:   "test",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification: %w", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for key, sub := range subs {
		wg.Add(1)
		go func(key string, sub *types.Subscription) {
			defer wg.Done()
			status, sendErr := s.transport.Send(ctx, sub, payload)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case sendErr != nil:
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", key, sendErr))
			case status == http.StatusNotFound || status == http.StatusGone:
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("%s: endpoint gone (status %d)", key, status))
				_ = s.subs.Delete(ctx, key)
			case status >= 400:
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("%s: status %d", key, status))
			default:
				result.Sent++
			}
		}(key, sub)
	}
	wg.Wait()
	return result, nil
}
