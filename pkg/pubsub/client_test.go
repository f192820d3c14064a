package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/mealflow-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	require.Equal(t, "projects/mealflow/topics/orders", topicResourceName("mealflow", " orders "))
	require.Equal(t, "projects/other/topics/orders", topicResourceName("mealflow", "projects/other/topics/orders"))
	require.Empty(t, topicResourceName("", "orders"))
	require.Empty(t, topicResourceName("mealflow", ""))
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{OrdersTopic: "orders"}, nil)
	require.ErrorIs(t, err, errProjectIDRequired)

	_, err = NewClient(context.Background(), config.GCPConfig{ProjectID: "mealflow"}, config.PubSubConfig{}, nil)
	require.ErrorIs(t, err, errNoTopic)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	require.Nil(t, c.Publisher("orders"))
	require.Nil(t, c.OrdersPublisher())
	require.Error(t, c.Ping(context.Background()))
	require.NoError(t, c.Close())
}
