// Package notification delivers "a slot freed up" web pushes to
// subscribers watching a location. Delivery is asynchronous through a
// small worker pool so that booking transitions never wait on push
// endpoints.
package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"parkease-backend/internal/model"
)

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the real Sender backed by the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool fans location IDs out to worker goroutines that notify
// every subscription watching that location.
type WorkerPool struct {
	size    int
	jobs    chan int64
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan int64, size),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	for {
		select {
		case locationID := <-wp.jobs:
			wp.notifyLocationWatchers(ctx, locationID)
		case <-ctx.Done():
			log.Printf("notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a freed-slot event for a location. It never blocks
// the caller: when the queue is full the event is dropped, since a
// later release will trigger the same message.
func (wp *WorkerPool) Dispatch(locationID int64) {
	select {
	case wp.jobs <- locationID:
	default:
		log.Printf("notification queue full, dropping event for location %d", locationID)
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan int64 {
	return wp.jobs
}

func (wp *WorkerPool) notifyLocationWatchers(ctx context.Context, locationID int64) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_location_mapping slm ON slm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("slm.location_id = ?", locationID).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("Error fetching subscriptions for location %d: %v", locationID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	var loc model.Location
	label := fmt.Sprintf("location %d", locationID)
	if err := wp.db.WithContext(ctx).Select("name").First(&loc, locationID).Error; err != nil {
		log.Printf("Error fetching location %d: %v", locationID, err)
	} else if loc.Name != "" {
		label = loc.Name
	}

	message := fmt.Sprintf("A parking slot just freed up at %s!", label)
	for _, sub := range subscriptions {
		wp.send(ctx, sub, []byte(message))
	}
}

func (wp *WorkerPool) send(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Push services answer 410 for subscriptions that no longer exist.
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription %s is expired. Deleting.", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
