package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Nakib00/asps-dashboard-api/internal/models"
)

type reportGateway interface {
	FetchReport(ctx context.Context, session models.Session, name string, query url.Values) (json.RawMessage, error)
}

// ReportService proxies read-only aggregate reports from the upstream API
// with a redis read-through cache. Reports are never edited client-side, so
// a short TTL cache is safe.
type ReportService struct {
	gateway reportGateway
	redis   *redis.Client
	ttl     time.Duration
	metrics *MetricsService
	logger  *zap.Logger
}

// NewReportService constructs the service. A nil redis client disables
// caching.
func NewReportService(gateway reportGateway, redisClient *redis.Client, ttl time.Duration, metrics *MetricsService, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{gateway: gateway, redis: redisClient, ttl: ttl, metrics: metrics, logger: logger}
}

// Fetch returns the named report, serving from cache when fresh. The second
// return reports whether the payload came from cache.
func (s *ReportService) Fetch(ctx context.Context, session models.Session, name string, query url.Values) (json.RawMessage, bool, error) {
	key := s.cacheKey(session, name, query)

	if s.redis != nil {
		cached, err := s.redis.Get(ctx, key).Bytes()
		if err == nil {
			s.metrics.RecordCacheLookup(true)
			return cached, true, nil
		}
		if err != redis.Nil {
			s.logger.Warn("report_cache_read_failed", zap.String("report", name), zap.Error(err))
		}
		s.metrics.RecordCacheLookup(false)
	}

	payload, err := s.gateway.FetchReport(ctx, session, name, query)
	if err != nil {
		return nil, false, err
	}

	if s.redis != nil && s.ttl > 0 {
		if err := s.redis.Set(ctx, key, []byte(payload), s.ttl).Err(); err != nil {
			s.logger.Warn("report_cache_write_failed", zap.String("report", name), zap.Error(err))
		}
	}

	return payload, false, nil
}

// cacheKey scopes cached reports by center and role so one user's aggregate
// never leaks into another's.
func (s *ReportService) cacheKey(session models.Session, name string, query url.Values) string {
	sum := sha256.Sum256([]byte(query.Encode()))
	return fmt.Sprintf("reports:%s:%s:%s:%s", session.CenterID, session.Role, name, hex.EncodeToString(sum[:8]))
}
