package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestConnectRedis(t *testing.T) {
	server := miniredis.RunT(t)

	client, err := ConnectRedis(context.Background(), "redis://"+server.Addr(), "portal-test", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "portal:ping", "pong", 0).Err())
	server.CheckGet(t, "portal:ping", "pong")
}

func TestConnectRedisRejectsBadInput(t *testing.T) {
	_, err := ConnectRedis(context.Background(), "", "portal-test", zerolog.Nop())
	require.Error(t, err)

	_, err = ConnectRedis(context.Background(), "://nope", "portal-test", zerolog.Nop())
	require.Error(t, err)
}

func TestConnectNATSRequiresURL(t *testing.T) {
	_, err := ConnectNATS("", "portal", zerolog.Nop())
	require.Error(t, err)
}
