package redis

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})
	return mr, client
}

func TestPublishJSONToStream_RoundTrip(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()
	stream := "fleet:events:stream"

	require.NoError(t, CreateConsumerGroup(ctx, client, stream, "fleet-view-group", "0"))

	payload := map[string]string{"type": "vehicle_created", "vehicle_id": "veh-1"}
	id, err := PublishJSONToStream(ctx, client, stream, payload)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs, err := ReadFromStream(ctx, client, stream, "fleet-view-group", "consumer-1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	data, ok := msgs[0].Values["data"].(string)
	require.True(t, ok)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(data), &decoded))
	assert.Equal(t, "vehicle_created", decoded["type"])
	assert.Equal(t, "veh-1", decoded["vehicle_id"])

	// ack so the message leaves the pending list
	require.NoError(t, client.XAck(ctx, stream, "fleet-view-group", msgs[0].ID).Err())
}

func TestCreateConsumerGroup_AlreadyExists(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, CreateConsumerGroup(ctx, client, "fleet:events:stream", "g1", "0"))
	// second create must be a no-op, not an error
	require.NoError(t, CreateConsumerGroup(ctx, client, "fleet:events:stream", "g1", "0"))
}
