package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	customerrors "github.com/axellelanca/linkshortener/internal/errors"
	"github.com/axellelanca/linkshortener/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Each link lives in the hash {prefix}link:{code}; {prefix}links:by_created is a
// sorted set of codes scored by creation time in microseconds.
//
// The scripts run atomically on the server, which gives per-record atomicity
// without client-side locks.
var (
	createLinkScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], 'id', ARGV[1], 'code', ARGV[2], 'url', ARGV[3], 'clicks', 0, 'last_clicked_at', '', 'created_at', ARGV[4])
redis.call('ZADD', KEYS[2], ARGV[5], ARGV[2])
return 1
`)

	incrementClickScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('HINCRBY', KEYS[1], 'clicks', 1)
redis.call('HSET', KEYS[1], 'last_clicked_at', ARGV[1])
return 1
`)

	deleteLinkScript = redis.NewScript(`
local removed = redis.call('DEL', KEYS[1])
redis.call('ZREM', KEYS[2], ARGV[1])
return removed
`)
)

// RedisLinkRepository stores links in Redis.
type RedisLinkRepository struct {
	client    redis.UniversalClient
	keyPrefix string
	now       func() time.Time
}

func NewRedisLinkRepository(client redis.UniversalClient, keyPrefix string) *RedisLinkRepository {
	return &RedisLinkRepository{
		client:    client,
		keyPrefix: keyPrefix,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (r *RedisLinkRepository) linkKey(code string) string {
	return r.keyPrefix + "link:" + code
}

func (r *RedisLinkRepository) indexKey() string {
	return r.keyPrefix + "links:by_created"
}

func (r *RedisLinkRepository) CreateLink(ctx context.Context, code, url string) (*models.Link, error) {
	link := &models.Link{
		ID:        uuid.NewString(),
		Code:      code,
		URL:       url,
		CreatedAt: r.now(),
	}

	created, err := createLinkScript.Run(ctx, r.client,
		[]string{r.linkKey(code), r.indexKey()},
		link.ID, code, url, link.CreatedAt.Format(time.RFC3339Nano), link.CreatedAt.UnixMicro(),
	).Int()
	if err != nil {
		return nil, fmt.Errorf("failed to create link: %w", err)
	}
	if created == 0 {
		return nil, fmt.Errorf("%w: %s", customerrors.ErrDuplicateCode, code)
	}
	return link, nil
}

func (r *RedisLinkRepository) GetLinkByCode(ctx context.Context, code string) (*models.Link, error) {
	fields, err := r.client.HGetAll(ctx, r.linkKey(code)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get link %s: %w", code, err)
	}
	if len(fields) == 0 {
		return nil, customerrors.ErrLinkNotFound
	}
	return decodeLink(fields)
}

// ListLinks reads the creation index newest first. Codes deleted between the
// index read and the hash read are skipped.
func (r *RedisLinkRepository) ListLinks(ctx context.Context) ([]models.Link, error) {
	codes, err := r.client.ZRevRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve all links: %w", err)
	}

	links := make([]models.Link, 0, len(codes))
	if len(codes) == 0 {
		return links, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(codes))
	for i, code := range codes {
		cmds[i] = pipe.HGetAll(ctx, r.linkKey(code))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to retrieve all links: %w", err)
	}

	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		link, err := decodeLink(fields)
		if err != nil {
			return nil, err
		}
		links = append(links, *link)
	}
	return links, nil
}

func (r *RedisLinkRepository) DeleteLink(ctx context.Context, code string) error {
	removed, err := deleteLinkScript.Run(ctx, r.client,
		[]string{r.linkKey(code), r.indexKey()}, code,
	).Int()
	if err != nil {
		return fmt.Errorf("failed to delete link %s: %w", code, err)
	}
	if removed == 0 {
		return customerrors.ErrLinkNotFound
	}
	return nil
}

func (r *RedisLinkRepository) IncrementClick(ctx context.Context, code string) error {
	updated, err := incrementClickScript.Run(ctx, r.client,
		[]string{r.linkKey(code)}, r.now().Format(time.RFC3339Nano),
	).Int()
	if err != nil {
		return fmt.Errorf("failed to increment clicks for %s: %w", code, err)
	}
	if updated == 0 {
		return customerrors.ErrLinkNotFound
	}
	return nil
}

func (r *RedisLinkRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func decodeLink(fields map[string]string) (*models.Link, error) {
	link := &models.Link{
		ID:   fields["id"],
		Code: fields["code"],
		URL:  fields["url"],
	}

	clicks, err := strconv.ParseInt(fields["clicks"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt clicks for %s: %w", link.Code, err)
	}
	link.Clicks = clicks

	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("corrupt created_at for %s: %w", link.Code, err)
	}
	link.CreatedAt = createdAt

	if raw := fields["last_clicked_at"]; raw != "" {
		lastClickedAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt last_clicked_at for %s: %w", link.Code, err)
		}
		link.LastClickedAt = &lastClickedAt
	}

	if link.Code == "" {
		return nil, errors.New("corrupt link record: missing code")
	}
	return link, nil
}
