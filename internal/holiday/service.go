package holiday

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/meridian-hcm/meridian/internal/shared"
)

// Loader abstracts the holiday store for the service.
type Loader interface {
	LoadYear(ctx context.Context, companyID int64, year int) (Set, error)
}

// Service resolves effective holiday sets with a Redis read-through cache.
// Concurrent loads for the same company and year collapse into one query.
type Service struct {
	loader Loader
	cache  *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewService constructs a Service. The cache client may be nil, in which case
// every call hits the store.
func NewService(loader Loader, cache *redis.Client, ttl time.Duration) *Service {
	return &Service{loader: loader, cache: cache, ttl: ttl}
}

// SetForYears returns the union of active holidays across the inclusive year range.
func (s *Service) SetForYears(ctx context.Context, companyID int64, fromYear, toYear int) (Set, error) {
	if fromYear > toYear {
		return nil, errors.New("holiday: year range inverted")
	}
	merged := make(Set)
	for year := fromYear; year <= toYear; year++ {
		set, err := s.yearSet(ctx, companyID, year)
		if err != nil {
			return nil, err
		}
		merged = merged.Union(set)
	}
	return merged, nil
}

// Invalidate drops the cached set for a company and year after holiday data changes.
func (s *Service) Invalidate(ctx context.Context, companyID int64, year int) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, shared.HolidayCacheKey(companyID, year)).Err()
}

func (s *Service) yearSet(ctx context.Context, companyID int64, year int) (Set, error) {
	key := shared.HolidayCacheKey(companyID, year)

	if s.cache != nil {
		raw, err := s.cache.Get(ctx, key).Bytes()
		if err == nil {
			var dates []string
			if err := json.Unmarshal(raw, &dates); err == nil {
				return SetFromDates(dates), nil
			}
		} else if !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("holiday: cache get %s: %w", key, err)
		}
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		set, err := s.loader.LoadYear(ctx, companyID, year)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if payload, err := json.Marshal(set.Dates()); err == nil {
				if err := s.cache.Set(ctx, key, payload, s.ttl).Err(); err != nil {
					return nil, fmt.Errorf("holiday: cache set %s: %w", key, err)
				}
			}
		}
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Set), nil
}
