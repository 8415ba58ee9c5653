package services

import (
	"testing"
	"time"

	"github.com/ArunGarimella04/Guardian-AI/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionFeedPublishFansOutToAllSubscribers(t *testing.T) {
	feed := NewSessionFeedService(testConfig())

	subA := feed.Subscribe("em-1")
	subB := feed.Subscribe("em-1")
	defer feed.Unsubscribe(subA)
	defer feed.Unsubscribe(subB)

	loc := &models.Location{Latitude: 12.97, Longitude: 77.59}
	require.NoError(t, feed.Publish("em-1", FeedEvent{Type: FeedEventLocationUpdated, Location: loc}))

	for _, sub := range []*FeedSubscription{subA, subB} {
		select {
		case event := <-sub.Events():
			assert.Equal(t, FeedEventLocationUpdated, event.Type)
			assert.Equal(t, "em-1", event.EmergencyID)
			require.NotNil(t, event.Location)
			assert.Equal(t, 12.97, event.Location.Latitude)
			assert.NotZero(t, event.Timestamp)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestSessionFeedIsolatesSessions(t *testing.T) {
	feed := NewSessionFeedService(testConfig())

	subOther := feed.Subscribe("em-other")
	defer feed.Unsubscribe(subOther)

	require.NoError(t, feed.Publish("em-1", FeedEvent{Type: FeedEventLocationUpdated}))

	select {
	case event := <-subOther.Events():
		t.Fatalf("subscriber of another session received event %v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSessionFeedDoesNotReplayHistory(t *testing.T) {
	feed := NewSessionFeedService(testConfig())

	// 订阅前发布的事件不应被投递
	require.NoError(t, feed.Publish("em-1", FeedEvent{Type: FeedEventLocationUpdated}))

	sub := feed.Subscribe("em-1")
	defer feed.Unsubscribe(sub)

	select {
	case event := <-sub.Events():
		t.Fatalf("received replayed event %v", event)
	case <-time.After(50 * time.Millisecond):
	}

	// 订阅之后的事件正常投递
	require.NoError(t, feed.Publish("em-1", FeedEvent{Type: FeedEventCancelled}))
	select {
	case event := <-sub.Events():
		assert.Equal(t, FeedEventCancelled, event.Type)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive new event")
	}
}

func TestSessionFeedDropsEventsForSlowSubscriber(t *testing.T) {
	feed := NewSessionFeedService(testConfig())

	slow := feed.Subscribe("em-1")
	defer feed.Unsubscribe(slow)
	healthy := feed.Subscribe("em-1")
	defer feed.Unsubscribe(healthy)

	// 填满慢订阅者的缓冲区之后继续发布，发布方不能阻塞
	total := feedSubscriptionBuffer + 10
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < total; i++ {
			_ = feed.Publish("em-1", FeedEvent{Type: FeedEventLocationUpdated})
			// 健康订阅者持续消费
			select {
			case <-healthy.Events():
			case <-time.After(time.Second):
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publisher blocked on slow subscriber")
	}

	// 慢订阅者最多收到缓冲区容量的事件，其余被丢弃
	received := 0
	for {
		select {
		case <-slow.Events():
			received++
			continue
		default:
		}
		break
	}
	assert.LessOrEqual(t, received, feedSubscriptionBuffer)
	assert.Greater(t, received, 0)
}

func TestSessionFeedUnsubscribeCleansUp(t *testing.T) {
	feed := NewSessionFeedService(testConfig())

	sub := feed.Subscribe("em-1")
	require.Equal(t, 1, feed.SubscriberCount("em-1"))

	feed.Unsubscribe(sub)
	assert.Equal(t, 0, feed.SubscriberCount("em-1"))

	// 通道应已关闭
	_, open := <-sub.Events()
	assert.False(t, open)

	// 重复取消订阅是安全的
	feed.Unsubscribe(sub)
}

func TestSessionFeedPublishWithoutSubscribersSucceeds(t *testing.T) {
	feed := NewSessionFeedService(testConfig())
	assert.NoError(t, feed.Publish("em-none", FeedEvent{Type: FeedEventLocationUpdated}))
}
