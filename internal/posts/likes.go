package posts

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Likes tracks which accounts liked which posts.
type Likes interface {
	Toggle(ctx context.Context, postID, accountID int64) (LikeResult, error)
	Count(ctx context.Context, postID int64) (int64, error)
	Has(ctx context.Context, postID, accountID int64) (bool, error)
	Clear(ctx context.Context, postID int64) error
}

// toggleScript removes the member when present and adds it otherwise, then
// returns {liked, count} in one round trip.
var toggleScript = redis.NewScript(`
if redis.call("SREM", KEYS[1], ARGV[1]) == 1 then
	return {0, redis.call("SCARD", KEYS[1])}
end
redis.call("SADD", KEYS[1], ARGV[1])
return {1, redis.call("SCARD", KEYS[1])}
`)

// RedisLikes stores one Redis set of account ids per post.
type RedisLikes struct {
	client *redis.Client
	prefix string
}

// NewRedisLikes constructs a Redis-backed like store.
func NewRedisLikes(client *redis.Client, prefix string) *RedisLikes {
	if prefix == "" {
		prefix = "postboard"
	}
	return &RedisLikes{client: client, prefix: prefix}
}

func (l *RedisLikes) key(postID int64) string {
	return l.prefix + ":post:" + strconv.FormatInt(postID, 10) + ":likes"
}

// Toggle implements Likes.
func (l *RedisLikes) Toggle(ctx context.Context, postID, accountID int64) (LikeResult, error) {
	res, err := toggleScript.Run(ctx, l.client, []string{l.key(postID)}, strconv.FormatInt(accountID, 10)).Int64Slice()
	if err != nil {
		return LikeResult{}, fmt.Errorf("posts: toggle like: %w", err)
	}
	if len(res) != 2 {
		return LikeResult{}, fmt.Errorf("posts: toggle like: unexpected reply %v", res)
	}
	return LikeResult{Liked: res[0] == 1, LikeCount: res[1]}, nil
}

// Count implements Likes.
func (l *RedisLikes) Count(ctx context.Context, postID int64) (int64, error) {
	n, err := l.client.SCard(ctx, l.key(postID)).Result()
	if err != nil {
		return 0, fmt.Errorf("posts: count likes: %w", err)
	}
	return n, nil
}

// Has implements Likes.
func (l *RedisLikes) Has(ctx context.Context, postID, accountID int64) (bool, error) {
	ok, err := l.client.SIsMember(ctx, l.key(postID), strconv.FormatInt(accountID, 10)).Result()
	if err != nil {
		return false, fmt.Errorf("posts: check like: %w", err)
	}
	return ok, nil
}

// Clear implements Likes.
func (l *RedisLikes) Clear(ctx context.Context, postID int64) error {
	if err := l.client.Del(ctx, l.key(postID)).Err(); err != nil {
		return fmt.Errorf("posts: clear likes: %w", err)
	}
	return nil
}

var _ Likes = (*RedisLikes)(nil)
