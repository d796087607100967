// Package ratelimit provides rate limiting for booking creation.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

// realClock implements Clock using the system time.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Config holds rate limit configuration.
type Config struct {
	// CreateCooldown is the minimum time between booking attempts per user.
	CreateCooldown time.Duration
	// CreateMaxPerHour caps booking attempts per user per hour.
	CreateMaxPerHour int
	// CreateMaxIPPerHour caps booking attempts per IP per hour.
	CreateMaxIPPerHour int

	// Clock for testing (nil uses real time)
	Clock Clock
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() *Config {
	return &Config{
		CreateCooldown:     2 * time.Second,
		CreateMaxPerHour:   30,
		CreateMaxIPPerHour: 120,
	}
}

// LimitResult contains the result of a rate limit check.
type LimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Reason     string // For logging
}

// entry tracks request counts and timestamps.
type entry struct {
	count   int
	firstAt time.Time // First request in window
	lastAt  time.Time // Most recent request (for cooldown)
}

// Limiter implements per-user and per-IP rate limiting for booking creation.
type Limiter struct {
	config *Config
	clock  Clock
	mu     sync.RWMutex
	// Keyed by hash of user id or IP
	createByUser map[string]*entry
	createByIP   map[string]*entry

	// Cleanup goroutine management
	cleanupCtx    context.Context
	cleanupCancel context.CancelFunc
	cleanupOnce   sync.Once
	cleanupWg     sync.WaitGroup
}

// New creates a new rate limiter with the given config.
func New(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Limiter{
		config:        cfg,
		clock:         clock,
		createByUser:  make(map[string]*entry),
		createByIP:    make(map[string]*entry),
		cleanupCtx:    ctx,
		cleanupCancel: cancel,
	}
}

// Close stops the cleanup goroutine and releases resources.
func (l *Limiter) Close() {
	l.cleanupCancel()
	l.cleanupWg.Wait()
}

// CheckCreate checks if a booking creation attempt is allowed.
// Does NOT record the attempt - call RecordCreate after the request validates.
func (l *Limiter) CheckCreate(userID int64, ip string) LimitResult {
	l.startCleanup()
	now := l.clock.Now()
	userKey := l.hashKey("create:user:", strconv.FormatInt(userID, 10))
	ipKey := l.hashKey("create:ip:", ip)

	l.mu.RLock()
	defer l.mu.RUnlock()

	// Check per-user cooldown
	if e := l.createByUser[userKey]; e != nil {
		elapsed := now.Sub(e.lastAt)
		if elapsed < l.config.CreateCooldown {
			remaining := l.config.CreateCooldown - elapsed
			return LimitResult{
				Allowed:    false,
				RetryAfter: remaining,
				Reason:     "cooldown",
			}
		}

		// Check hourly limit
		if now.Sub(e.firstAt) < time.Hour && e.count >= l.config.CreateMaxPerHour {
			return LimitResult{
				Allowed:    false,
				RetryAfter: time.Hour - now.Sub(e.firstAt),
				Reason:     "hourly_limit",
			}
		}
	}

	// Check per-IP hourly limit
	if e := l.createByIP[ipKey]; e != nil {
		if now.Sub(e.firstAt) < time.Hour && e.count >= l.config.CreateMaxIPPerHour {
			return LimitResult{
				Allowed:    false,
				RetryAfter: time.Hour - now.Sub(e.firstAt),
				Reason:     "ip_hourly_limit",
			}
		}
	}

	return LimitResult{Allowed: true}
}

// RecordCreate records a booking creation attempt. Call this AFTER the request
// passes validation so malformed requests do not consume the budget.
func (l *Limiter) RecordCreate(userID int64, ip string) {
	now := l.clock.Now()
	userKey := l.hashKey("create:user:", strconv.FormatInt(userID, 10))
	ipKey := l.hashKey("create:ip:", ip)

	l.mu.Lock()
	defer l.mu.Unlock()

	// Update user entry
	e := l.createByUser[userKey]
	if e == nil || now.Sub(e.firstAt) >= time.Hour {
		l.createByUser[userKey] = &entry{count: 1, firstAt: now, lastAt: now}
	} else {
		e.count++
		e.lastAt = now
	}

	// Update IP entry
	e = l.createByIP[ipKey]
	if e == nil || now.Sub(e.firstAt) >= time.Hour {
		l.createByIP[ipKey] = &entry{count: 1, firstAt: now, lastAt: now}
	} else {
		e.count++
		e.lastAt = now
	}
}

func (l *Limiter) hashKey(prefix, value string) string {
	hash := sha256.Sum256([]byte(value))
	return prefix + hex.EncodeToString(hash[:8])
}

func (l *Limiter) startCleanup() {
	l.cleanupOnce.Do(func() {
		l.cleanupWg.Add(1)
		go func() {
			defer l.cleanupWg.Done()
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-l.cleanupCtx.Done():
					return
				case <-ticker.C:
					l.cleanup()
				}
			}
		}()
	})
}

func (l *Limiter) cleanup() {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	// Entries idle for over an hour can no longer affect any check
	for k, e := range l.createByUser {
		if now.Sub(e.lastAt) > time.Hour {
			delete(l.createByUser, k)
		}
	}
	for k, e := range l.createByIP {
		if now.Sub(e.lastAt) > time.Hour {
			delete(l.createByIP, k)
		}
	}
}

// GetClientIP extracts the client IP from a request.
// When trustProxy is true, uses the rightmost IP from X-Forwarded-For (added by your proxy).
// When trustProxy is false, ignores X-Forwarded-For entirely (prevents spoofing).
func GetClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// Use RIGHTMOST IP - this is the one your proxy added, not user-supplied
			parts := strings.Split(xff, ",")
			for i := len(parts) - 1; i >= 0; i-- {
				ip := strings.TrimSpace(parts[i])
				// Skip private/internal IPs to find the real client
				if ip != "" && !isPrivateIP(ip) {
					return ip
				}
			}
			// All IPs are private, use the last one
			return strings.TrimSpace(parts[len(parts)-1])
		}

		// Check X-Real-IP (set by nginx)
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	// Fall back to RemoteAddr (direct connection or untrusted proxy)
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr might not have a port (e.g., Unix socket or malformed)
		// Try to parse as IP directly, otherwise return as-is
		if parsed := net.ParseIP(r.RemoteAddr); parsed != nil {
			return r.RemoteAddr
		}
		// Last resort: strip anything after last colon that looks like a port
		if idx := strings.LastIndex(r.RemoteAddr, ":"); idx != -1 {
			candidate := r.RemoteAddr[:idx]
			if net.ParseIP(candidate) != nil {
				return candidate
			}
		}
		return r.RemoteAddr
	}
	return ip
}

// privateNetworks holds parsed CIDR ranges for private/reserved IPs.
// Parsed once at package init for efficiency.
var privateNetworks []*net.IPNet

func init() {
	privateRanges := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"::1/128",
		"fc00::/7",
		"fe80::/10", // Link-local
	}
	for _, cidr := range privateRanges {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic("invalid private CIDR: " + cidr)
		}
		privateNetworks = append(privateNetworks, network)
	}
}

// isPrivateIP checks if an IP is in a private/reserved range.
// Handles both IPv4 and IPv4-mapped IPv6 addresses (e.g., ::ffff:192.168.1.1).
func isPrivateIP(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}

	// Convert IPv4-mapped IPv6 to IPv4 for consistent matching
	// e.g., ::ffff:192.168.1.1 -> 192.168.1.1
	if ipv4 := ip.To4(); ipv4 != nil {
		ip = ipv4
	}

	for _, network := range privateNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// LogRateLimitExceeded logs a rate limit event.
func LogRateLimitExceeded(userID int64, ip, reason string) {
	log.Warn().
		Str("event", "rate_limit_exceeded").
		Int64("user_id", userID).
		Str("ip", ip).
		Str("reason", reason).
		Msg("Booking rate limit exceeded")
}
