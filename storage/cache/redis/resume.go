package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/tulia/core"
	"github.com/trezcool/tulia/core/emotion"
)

const (
	defaultPrefix = "tulia:resume"
	// DefaultResumeTTL bounds how long an unread resume signal survives (e.g. the page was closed).
	DefaultResumeTTL = 24 * time.Hour
)

// ResumeStore keeps one `#module-<n>` fragment per child under "<prefix>:<child_id>".
type ResumeStore struct {
	client    redis.Cmdable
	prefix    string
	ttl       time.Duration
	maxModule int
}

var _ emotion.ResumeStore = (*ResumeStore)(nil)

func NewResumeStore(client redis.Cmdable, maxModule int, ttl time.Duration) *ResumeStore {
	if maxModule <= 0 {
		maxModule = emotion.DefaultModulesPerLevel
	}
	if ttl <= 0 {
		ttl = DefaultResumeTTL
	}
	return &ResumeStore{client: client, prefix: defaultPrefix, ttl: ttl, maxModule: maxModule}
}

// NewClient connects to the configured redis & pings it.
func NewClient(ctx context.Context, conf core.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Address,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func (rs *ResumeStore) key(childID string) string {
	return fmt.Sprintf("%s:%s", rs.prefix, childID)
}

func (rs *ResumeStore) Put(ctx context.Context, childID string, moduleID int) error {
	err := rs.client.Set(ctx, rs.key(childID), emotion.FormatResumeFragment(moduleID), rs.ttl).Err()
	return errors.Wrap(err, "setting resume signal")
}

// Take atomically reads & deletes the signal. Invalid signals are dropped without error.
func (rs *ResumeStore) Take(ctx context.Context, childID string) (int, bool, error) {
	fragment, err := rs.client.GetDel(ctx, rs.key(childID)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, "taking resume signal")
	}
	id, ok := emotion.ParseResumeFragment(fragment, rs.maxModule)
	return id, ok, nil
}
