package analytics

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"

	"discovery-workers/internal/common/aws"
)

// RedisSink counts queries per kind in sorted sets.
type RedisSink struct {
	client redis.Cmdable
	prefix string
}

func NewRedisSink(client redis.Cmdable, prefix string) *RedisSink {
	return &RedisSink{client: client, prefix: prefix}
}

func (s *RedisSink) key(kind string) string {
	return s.prefix + kind
}

func (s *RedisSink) Record(ctx context.Context, ev Event) error {
	return s.client.ZIncrBy(ctx, s.key(ev.Kind), 1, strings.ToLower(ev.Query)).Err()
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// PopularQueries returns the n most frequent queries of kind.
func (s *RedisSink) PopularQueries(ctx context.Context, kind string, n int) ([]QueryCount, error) {
	if n <= 0 {
		n = 10
	}
	zs, err := s.client.ZRevRangeWithScores(ctx, s.key(kind), 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]QueryCount, 0, len(zs))
	for _, z := range zs {
		q, _ := z.Member.(string)
		out = append(out, QueryCount{Query: q, Count: int64(z.Score)})
	}
	return out, nil
}

// SNSSink forwards events to an SNS topic.
type SNSSink struct {
	client *aws.SNSClient
}

func NewSNSSink(client *aws.SNSClient) *SNSSink {
	return &SNSSink{client: client}
}

func (s *SNSSink) Record(ctx context.Context, ev Event) error {
	_, err := s.client.PublishEvent(ctx, ev.Kind+".query", ev)
	return err
}
