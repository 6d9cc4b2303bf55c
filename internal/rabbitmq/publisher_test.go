package rabbitmq

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/access-engine/internal/lib/milestone"
	"github.com/magabrotheeeer/access-engine/internal/models"
)

func TestReminderPublisher_Routing(t *testing.T) {
	ctx := context.Background()
	rmqContainer, cleanup := SetupRabbitMQContainer(ctx, t)
	defer cleanup()

	amqpURI, err := GetAmqpURI(ctx, rmqContainer)
	require.NoError(t, err)

	conn, err := Connect(amqpURI, 3, time.Second)
	require.NoError(t, err)
	defer func() {
		if err := conn.Close(); err != nil {
			t.Errorf("failed to close connection: %v", err)
		}
	}()

	ch, err := SetupChannel(conn, NotificationsExchange, GetNotificationQueues())
	require.NoError(t, err)
	defer func() {
		if err := ch.Close(); err != nil {
			t.Errorf("failed to close channel: %v", err)
		}
	}()

	publisher := NewReminderPublisher(ch)

	expiresAt := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)
	upcoming := &models.Reminder{
		UserUID:   "user-1",
		Label:     "Alice",
		Email:     "alice@example.com",
		Milestone: string(milestone.UpcomingThreeDays),
		ExpiresAt: expiresAt,
	}
	expired := &models.Reminder{
		UserUID:   "user-2",
		Label:     "Bob",
		Email:     "bob@example.com",
		Milestone: string(milestone.Expired),
		ExpiresAt: time.Now().Add(-time.Hour).UTC().Truncate(time.Second),
	}

	require.NoError(t, publisher.Publish(upcoming))
	require.NoError(t, publisher.Publish(expired))

	readOne := func(queue string) models.Reminder {
		deliveries, err := ch.Consume(queue, "", true, false, false, false, nil)
		require.NoError(t, err)
		select {
		case d := <-deliveries:
			var got models.Reminder
			require.NoError(t, json.Unmarshal(d.Body, &got))
			assert.Equal(t, "application/json", d.ContentType)
			return got
		case <-time.After(5 * time.Second):
			t.Fatalf("timeout waiting for message in %s", queue)
			return models.Reminder{}
		}
	}

	gotUpcoming := readOne("notifications.upcoming")
	assert.Equal(t, upcoming.UserUID, gotUpcoming.UserUID)
	assert.Equal(t, upcoming.Milestone, gotUpcoming.Milestone)

	gotExpired := readOne("notifications.expired")
	assert.Equal(t, expired.UserUID, gotExpired.UserUID)
	assert.Equal(t, expired.Milestone, gotExpired.Milestone)
}
