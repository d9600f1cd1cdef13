package shipping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// RuleSource provides the shipping rules matching a zone and weight,
// cheapest first.
type RuleSource interface {
	Matching(ctx context.Context, zone Zone, weight decimal.Decimal) ([]Rule, error)
	Invalidate(ctx context.Context, zones ...Zone) error
}

// DBSource reads the rules straight from the database.
type DBSource struct {
	db sqlx.ExtContext
}

func NewDBSource(db sqlx.ExtContext) *DBSource {
	return &DBSource{db: db}
}

func (s *DBSource) Matching(ctx context.Context, zone Zone, weight decimal.Decimal) ([]Rule, error) {
	return QueryMatching(ctx, s.db, zone, weight)
}

func (s *DBSource) Invalidate(ctx context.Context, zones ...Zone) error {
	return nil
}

// CachedSource keeps the rules of each zone in redis. Concurrent misses for
// the same zone share a single database read. A redis outage degrades to
// database reads.
type CachedSource struct {
	client *redis.Client
	db     sqlx.ExtContext
	ttl    time.Duration
	log    logrus.FieldLogger
	group  singleflight.Group
}

func NewCachedSource(client *redis.Client, db sqlx.ExtContext, ttl time.Duration, log logrus.FieldLogger) *CachedSource {
	return &CachedSource{
		client: client,
		db:     db,
		ttl:    ttl,
		log:    log,
	}
}

func (s *CachedSource) Matching(ctx context.Context, zone Zone, weight decimal.Decimal) ([]Rule, error) {
	rules, err := s.zoneRules(ctx, zone)
	if err != nil {
		return nil, err
	}
	return Filter(rules, zone, weight), nil
}

func (s *CachedSource) Invalidate(ctx context.Context, zones ...Zone) error {
	if len(zones) == 0 {
		return nil
	}

	keys := make([]string, 0, len(zones))
	for _, z := range zones {
		keys = append(keys, cacheKey(z))
	}

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (s *CachedSource) zoneRules(ctx context.Context, zone Zone) ([]Rule, error) {
	key := cacheKey(zone)

	data, err := s.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var rules []Rule
		if err := json.Unmarshal(data, &rules); err == nil {
			return rules, nil
		}
		s.log.WithField("key", key).Warn("discarding undecodable cached shipping rules")
	case !errors.Is(err, redis.Nil):
		s.log.WithField("key", key).Warnf("redis get failed: %v", err)
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		rules, err := QueryByZone(ctx, s.db, zone)
		if err != nil {
			return nil, err
		}

		b, err := json.Marshal(rules)
		if err != nil {
			return nil, fmt.Errorf("marshal shipping rules failed: %w", err)
		}

		if err := s.client.Set(ctx, key, b, s.ttl).Err(); err != nil {
			s.log.WithField("key", key).Warnf("redis set failed: %v", err)
		}
		return rules, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]Rule), nil
}

func cacheKey(zone Zone) string {
	return fmt.Sprintf("shipping:rules:%s", zone)
}
