package api

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/Freeeeeet/thesis_tracker/internal/service"
	"github.com/gofiber/fiber/v2"
	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const actorKey = "actor"

var (
	httpRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of http request",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status_code"},
	)
)

// AuthMiddleware проверяет bearer JWT; роль и id пользователя берутся из claims sub и role
func AuthMiddleware(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return writeError(c, fiber.StatusUnauthorized, codeUnauthorized, "Missing authorization header")
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return writeError(c, fiber.StatusUnauthorized, codeUnauthorized, "Invalid authorization header format")
		}

		actor, err := parseActor(parts[1], secret)
		if err != nil {
			if errors.Is(err, jwtv5.ErrTokenExpired) {
				return writeError(c, fiber.StatusUnauthorized, codeUnauthorized, "Token has expired")
			}
			return writeError(c, fiber.StatusUnauthorized, codeUnauthorized, "Invalid token")
		}

		c.Locals(actorKey, actor)
		return c.Next()
	}
}

func parseActor(tokenString string, secret []byte) (service.Actor, error) {
	claims := jwtv5.MapClaims{}
	_, err := jwtv5.ParseWithClaims(tokenString, claims, func(t *jwtv5.Token) (any, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return service.Actor{}, err
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return service.Actor{}, errors.New("user id not found in token claims")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return service.Actor{}, fmt.Errorf("invalid user id format in token: %w", err)
	}

	roleStr, _ := claims["role"].(string)
	role, err := model.ParseRole(roleStr)
	if err != nil {
		return service.Actor{}, err
	}

	return service.Actor{UserID: userID, Role: role}, nil
}

// actorFrom достаёт пользователя, положенного AuthMiddleware
func actorFrom(c *fiber.Ctx) service.Actor {
	actor, _ := c.Locals(actorKey).(service.Actor)
	return actor
}

func PrometheusMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start).Seconds()
		statusCode := c.Response().StatusCode()

		if err != nil {
			var e *fiber.Error
			if errors.As(err, &e) {
				statusCode = e.Code
			} else {
				statusCode = fiber.StatusInternalServerError
			}
		}

		method := c.Method()
		path := c.Route().Path
		statusStr := fmt.Sprintf("%d", statusCode)

		httpRequestTotal.WithLabelValues(method, path, statusStr).Inc()
		httpRequestDuration.WithLabelValues(method, path, statusStr).Observe(duration)

		return err
	}
}

// rateLimiterStore лимитеры по пользователю
type rateLimiterStore struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perMin   int
}

func (s *rateLimiterStore) getLimiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, exists := s.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.perMin)), s.perMin)
		s.limiters[key] = limiter
	}
	return limiter
}

// RateLimitMiddleware ограничивает частоту запросов пользователя (по JWT, иначе по IP)
func RateLimitMiddleware(perMinute int, logger *zap.Logger) fiber.Handler {
	if perMinute <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	store := &rateLimiterStore{limiters: make(map[string]*rate.Limiter), perMin: perMinute}

	return func(c *fiber.Ctx) error {
		key := c.IP()
		if actor := actorFrom(c); actor.UserID != uuid.Nil {
			key = actor.UserID.String()
		}

		if !store.getLimiter(key).Allow() {
			logger.Warn("Rate limit exceeded", zap.String("key", key), zap.String("path", c.Path()))
			return writeError(c, fiber.StatusTooManyRequests, codeRateLimited, "Rate limit exceeded. Try again later.")
		}
		return c.Next()
	}
}
