// Package security provides request-level rate limiting and abuse
// protection for the HTTP surface, distinct from the per-feed collection
// throttling in internal/infrastructure/ratelimit.
package security

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aetim/core/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitType represents different types of rate limits.
type RateLimitType string

const (
	RateLimitGlobal    RateLimitType = "global"
	RateLimitPerIP     RateLimitType = "per_ip"
	RateLimitPerSubj   RateLimitType = "per_subject"
	RateLimitAuth      RateLimitType = "auth"
	RateLimitCollector RateLimitType = "collector_trigger"
)

// RateLimitConfig defines rate limit configuration.
type RateLimitConfig struct {
	Type           RateLimitType
	Requests       int
	Window         time.Duration
	BlockDuration  time.Duration
	SkipSuccessful bool
	SkipPaths      []string
}

// RateLimitService provides rate limiting capabilities over the HTTP API.
type RateLimitService struct {
	logger      *zap.Logger
	redisClient *redis.Client
	configs     map[RateLimitType]RateLimitConfig
}

// NewRateLimitService creates a new rate limiting service.
func NewRateLimitService(logger *zap.Logger, redisClient *redis.Client) *RateLimitService {
	service := &RateLimitService{
		logger:      logger,
		redisClient: redisClient,
		configs:     make(map[RateLimitType]RateLimitConfig),
	}

	service.initializeDefaultConfigs()

	return service
}

func (r *RateLimitService) initializeDefaultConfigs() {
	r.configs[RateLimitGlobal] = RateLimitConfig{
		Type:          RateLimitGlobal,
		Requests:      1000,
		Window:        time.Minute,
		BlockDuration: 5 * time.Minute,
		SkipPaths:     []string{"/health", "/metrics", "/ready"},
	}

	r.configs[RateLimitPerIP] = RateLimitConfig{
		Type:          RateLimitPerIP,
		Requests:      60,
		Window:        time.Minute,
		BlockDuration: 15 * time.Minute,
		SkipPaths:     []string{"/health", "/metrics", "/ready"},
	}

	r.configs[RateLimitPerSubj] = RateLimitConfig{
		Type:           RateLimitPerSubj,
		Requests:       120,
		Window:         time.Minute,
		BlockDuration:  10 * time.Minute,
		SkipSuccessful: true,
	}

	r.configs[RateLimitAuth] = RateLimitConfig{
		Type:          RateLimitAuth,
		Requests:      5,
		Window:        time.Minute,
		BlockDuration: 30 * time.Minute,
	}

	// The analyst-triggered "collect now" endpoint hits the upstream feed
	// directly, so it gets a much tighter ceiling than ordinary reads.
	r.configs[RateLimitCollector] = RateLimitConfig{
		Type:          RateLimitCollector,
		Requests:      6,
		Window:        time.Minute,
		BlockDuration: 10 * time.Minute,
	}
}

// RateLimitMiddleware creates rate limiting middleware for the given type.
func (r *RateLimitService) RateLimitMiddleware(limitType RateLimitType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			config, exists := r.configs[limitType]
			if !exists {
				r.logger.Warn("rate limit config not found", zap.String("type", string(limitType)))
				next.ServeHTTP(w, req)
				return
			}

			for _, skipPath := range config.SkipPaths {
				if req.URL.Path == skipPath {
					next.ServeHTTP(w, req)
					return
				}
			}

			subjectID := shared.SubjectIDFromContext(req.Context())
			key := r.generateRateLimitKey(req, limitType, subjectID)

			if blocked, err := r.isBlocked(key); err == nil && blocked {
				r.handleRateLimitExceeded(w, req, config)
				return
			}

			allowed, remaining, resetTime, err := r.checkRateLimit(key, config)
			if err != nil {
				r.logger.Error("rate limit check failed", zap.Error(err))
				next.ServeHTTP(w, req)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.Requests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

			if !allowed {
				if config.BlockDuration > 0 {
					r.blockKey(key, config.BlockDuration)
				}
				r.handleRateLimitExceeded(w, req, config)
				return
			}

			ww := &rateLimitResponseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, req)

			if !config.SkipSuccessful || ww.status >= 400 {
				r.recordRequest(key, config)
			}
		})
	}
}

type rateLimitResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *rateLimitResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (r *RateLimitService) generateRateLimitKey(req *http.Request, limitType RateLimitType, subjectID string) string {
	switch limitType {
	case RateLimitGlobal:
		return "rate_limit:global"
	case RateLimitPerIP:
		return fmt.Sprintf("rate_limit:ip:%s", req.RemoteAddr)
	case RateLimitPerSubj:
		if subjectID == "" {
			return fmt.Sprintf("rate_limit:ip:%s", req.RemoteAddr)
		}
		return fmt.Sprintf("rate_limit:subject:%s", subjectID)
	case RateLimitAuth:
		return fmt.Sprintf("rate_limit:auth:%s", req.RemoteAddr)
	case RateLimitCollector:
		if subjectID == "" {
			return fmt.Sprintf("rate_limit:collector:ip:%s", req.RemoteAddr)
		}
		return fmt.Sprintf("rate_limit:collector:subject:%s", subjectID)
	default:
		return fmt.Sprintf("rate_limit:unknown:%s", req.RemoteAddr)
	}
}

func (r *RateLimitService) checkRateLimit(key string, config RateLimitConfig) (bool, int, time.Time, error) {
	ctx := context.Background()
	now := time.Now()
	windowStart := now.Add(-config.Window)

	pipe := r.redisClient.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d", now.UnixNano()),
	})
	pipe.Expire(ctx, key, config.Window*2)

	results, err := pipe.Exec(ctx)
	if err != nil {
		return false, 0, now, fmt.Errorf("rate limit check failed: %w", err)
	}

	count := results[1].(*redis.IntCmd).Val()

	allowed := count <= int64(config.Requests)
	remaining := config.Requests - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return allowed, remaining, now.Add(config.Window), nil
}

func (r *RateLimitService) recordRequest(key string, config RateLimitConfig) {
	ctx := context.Background()
	now := time.Now()

	r.redisClient.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d", now.UnixNano()),
	})
	r.redisClient.Expire(ctx, key, config.Window*2)
}

func (r *RateLimitService) blockKey(key string, duration time.Duration) {
	ctx := context.Background()
	r.redisClient.Set(ctx, fmt.Sprintf("%s:blocked", key), "1", duration)
}

func (r *RateLimitService) isBlocked(key string) (bool, error) {
	ctx := context.Background()
	exists, err := r.redisClient.Exists(ctx, fmt.Sprintf("%s:blocked", key)).Result()
	return exists > 0, err
}

func (r *RateLimitService) handleRateLimitExceeded(w http.ResponseWriter, req *http.Request, config RateLimitConfig) {
	subjectID := shared.SubjectIDFromContext(req.Context())
	r.logger.Warn("rate limit exceeded",
		zap.String("ip", req.RemoteAddr),
		zap.String("subject_id", subjectID),
		zap.String("path", req.URL.Path),
		zap.String("type", string(config.Type)),
	)

	w.Header().Set("Retry-After", strconv.Itoa(int(config.BlockDuration.Seconds())))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	fmt.Fprintf(w, `{"error":"rate limit exceeded","retry_after":%f}`, config.BlockDuration.Seconds())
}

// DDoSProtectionMiddleware throttles rapid-fire requests and flags
// scripted clients hitting the API directly rather than through the UI.
func (r *RateLimitService) DDoSProtectionMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ip := req.RemoteAddr

			rapidFireKey := fmt.Sprintf("rapid_fire:%s", ip)
			rapidFireCount, err := r.redisClient.Incr(context.Background(), rapidFireKey).Result()
			if err == nil {
				r.redisClient.Expire(context.Background(), rapidFireKey, 10*time.Second)

				if rapidFireCount > 20 {
					r.blockKey(fmt.Sprintf("rate_limit:ip:%s", ip), time.Hour)

					r.logger.Warn("rate limit protection triggered: rapid fire",
						zap.String("ip", ip),
						zap.Int64("count", rapidFireCount),
					)

					writeJSONError(w, http.StatusTooManyRequests, "too many requests")
					return
				}
			}

			userAgent := req.UserAgent()
			if r.isSuspiciousUserAgent(userAgent) {
				r.logger.Warn("suspicious user agent detected",
					zap.String("ip", ip),
					zap.String("user_agent", userAgent),
				)

				suspiciousKey := fmt.Sprintf("rate_limit:suspicious:%s", ip)
				allowed, _, _, _ := r.checkRateLimit(suspiciousKey, RateLimitConfig{
					Requests: 10,
					Window:   time.Minute,
				})

				if !allowed {
					writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
					return
				}
			}

			next.ServeHTTP(w, req)
		})
	}
}

func (r *RateLimitService) isSuspiciousUserAgent(userAgent string) bool {
	suspiciousPatterns := []string{
		"masscan", "nmap", "sqlmap", "nikto", "burp",
	}

	userAgentLower := strings.ToLower(userAgent)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(userAgentLower, pattern) {
			return true
		}
	}

	return false
}

// ClearRateLimit clears rate limit state for a specific key, for
// operator-initiated unblocks.
func (r *RateLimitService) ClearRateLimit(limitType RateLimitType, identifier string) error {
	key := fmt.Sprintf("rate_limit:%s:%s", limitType, identifier)
	blockKey := fmt.Sprintf("%s:blocked", key)

	ctx := context.Background()

	pipe := r.redisClient.TxPipeline()
	pipe.Del(ctx, key)
	pipe.Del(ctx, blockKey)

	_, err := pipe.Exec(ctx)
	return err
}
