package pubsub

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newTestClient(t *testing.T) *pubsub.Client {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(context.Background(), "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	return client
}

func TestNewRequiresExistingTopic(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	_, err := New(context.Background(), client, Config{TopicID: "missing"}, nil)
	assert.Error(t, err)
}

func TestEnqueueDequeueRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	topic, err := client.CreateTopic(ctx, "keys")
	require.NoError(t, err)
	_, err = client.CreateSubscription(ctx, "keys-sub", pubsub.SubscriptionConfig{Topic: topic})
	require.NoError(t, err)

	q, err := New(ctx, client, Config{TopicID: "keys", SubscriptionID: "keys-sub"}, nil)
	require.NoError(t, err)

	recvCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	q.Start(recvCtx)

	require.NoError(t, q.Enqueue(ctx, "example.com/page"))

	dequeueCtx, dequeueCancel := context.WithTimeout(ctx, 10*time.Second)
	defer dequeueCancel()
	key, err := q.Dequeue(dequeueCtx)
	require.NoError(t, err)
	assert.Equal(t, "example.com/page", key)
}

func TestEnqueueSurfacesPublishFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	topic, err := client.CreateTopic(ctx, "keys")
	require.NoError(t, err)

	q, err := New(ctx, client, Config{TopicID: "keys"}, nil)
	require.NoError(t, err)

	// A topic deleted after startup must fail the publish, not vanish.
	require.NoError(t, topic.Delete(ctx))
	err = q.Enqueue(ctx, "example.com/page")
	assert.Error(t, err)
}
