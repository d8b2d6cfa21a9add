package notifications

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeChannels(t *testing.T) {
	assert.Equal(t, []string{"normal"}, NormalizeChannels(nil))
	assert.Equal(t, []string{"normal"}, NormalizeChannels([]string{"sms", " "}))
	assert.Equal(t, []string{"popup", "line"}, NormalizeChannels([]string{" Popup", "LINE", "popup", "email"}))
}

func TestEnqueueUsesRedisQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := &Service{redis: rc, useRedis: true}

	err := s.EnqueueOrCreate([]uint{3, 4}, WithData("Booking accepted", "See you Monday", TypeSuccess,
		map[string]uint{"booking_id": 12}, "popup"))
	require.NoError(t, err)

	items, err := rc.LRange(context.Background(), redisListKey, 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, items, 1)

	var q queuedNotification
	require.NoError(t, json.Unmarshal([]byte(items[0]), &q))
	assert.Equal(t, []uint{3, 4}, q.UserIDs)
	assert.Equal(t, "Booking accepted", q.Title)
	assert.Equal(t, []string{"popup"}, q.Channels)
	assert.False(t, q.CreatedAt.IsZero())
}

func TestEnqueueRequiresRecipients(t *testing.T) {
	s := &Service{}
	assert.Error(t, s.EnqueueOrCreate(nil, New("x", "y", TypeInfo)))
}

func TestResolveAudiencePrefersExplicitIDs(t *testing.T) {
	s := &Service{}
	ids, err := s.ResolveAudience(Audience{UserIDs: []uint{7}, Role: "Tutor"})
	require.NoError(t, err)
	assert.Equal(t, []uint{7}, ids)

	_, err = s.ResolveAudience(Audience{})
	assert.Error(t, err)
}
