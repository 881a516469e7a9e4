package notification

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	appdb "parkease-backend/internal/db"
	"parkease-backend/internal/model"
)

// mockSender records every push it is asked to send and answers with a
// configurable status code per endpoint.
type mockSender struct {
	mu       sync.Mutex
	sent     []sentPush
	statuses map[string]int
}

type sentPush struct {
	endpoint string
	payload  string
}

func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentPush{endpoint: sub.Endpoint, payload: string(payload)})
	status := http.StatusCreated
	if s, ok := m.statuses[sub.Endpoint]; ok {
		status = s
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader("")),
	}, nil
}

func (m *mockSender) pushes() []sentPush {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentPush(nil), m.sent...)
}

func newWorkerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, appdb.Migrate(db))
	return db
}

func seedWatchedLocation(t *testing.T, db *gorm.DB, code, name string, endpoints ...string) *model.Location {
	t.Helper()
	loc := &model.Location{
		LocationCode: code,
		Name:         name,
		Address:      "1 Somewhere",
		Pricing:      model.DefaultPricing(),
		IsActive:     true,
	}
	require.NoError(t, db.Create(loc).Error)
	for _, ep := range endpoints {
		sub := &model.PushSubscription{
			Endpoint:  ep,
			P256DH:    "p256dh-key",
			Auth:      "auth-key",
			Locations: []*model.Location{loc},
		}
		require.NoError(t, db.Create(sub).Error)
	}
	return loc
}

func TestWorkerPool_NotifyLocationWatchers(t *testing.T) {
	db := newWorkerDB(t)
	watched := seedWatchedLocation(t, db, "CEN-01", "Central Parking",
		"https://push.example.com/sub-1", "https://push.example.com/sub-2")
	unwatched := seedWatchedLocation(t, db, "STN-02", "Station Parking")

	sender := &mockSender{}
	wp := NewWorkerPool(2, db, &webpush.Options{})
	wp.sender = sender

	wp.notifyLocationWatchers(context.Background(), watched.ID)

	pushes := sender.pushes()
	require.Len(t, pushes, 2)
	endpoints := []string{pushes[0].endpoint, pushes[1].endpoint}
	assert.ElementsMatch(t, []string{"https://push.example.com/sub-1", "https://push.example.com/sub-2"}, endpoints)
	assert.Equal(t, "A parking slot just freed up at Central Parking!", pushes[0].payload)

	// A location nobody watches sends nothing.
	wp.notifyLocationWatchers(context.Background(), unwatched.ID)
	assert.Len(t, sender.pushes(), 2)
}

func TestWorkerPool_ExpiredSubscriptionIsDeleted(t *testing.T) {
	db := newWorkerDB(t)
	loc := seedWatchedLocation(t, db, "CEN-01", "Central Parking",
		"https://push.example.com/gone", "https://push.example.com/alive")

	sender := &mockSender{statuses: map[string]int{
		"https://push.example.com/gone": http.StatusGone,
	}}
	wp := NewWorkerPool(2, db, &webpush.Options{})
	wp.sender = sender

	wp.notifyLocationWatchers(context.Background(), loc.ID)

	var count int64
	require.NoError(t, db.Model(&model.PushSubscription{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var remaining model.PushSubscription
	require.NoError(t, db.First(&remaining).Error)
	assert.Equal(t, "https://push.example.com/alive", remaining.Endpoint)
}

func TestWorkerPool_DispatchNeverBlocks(t *testing.T) {
	db := newWorkerDB(t)
	wp := NewWorkerPool(1, db, &webpush.Options{})

	// No workers running; the buffered queue takes one event and the
	// rest are dropped without blocking.
	wp.Dispatch(1)
	wp.Dispatch(2)
	wp.Dispatch(3)

	assert.Len(t, wp.Jobs(), 1)
	assert.Equal(t, int64(1), <-wp.Jobs())
}
