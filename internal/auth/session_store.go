package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/justbuildstuff-dev/Fitness-App-sub005/pkg"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultSessionTTL = 24 * 7 * time.Hour
	sessionKeyPrefix  = "fitness-analytics-session||"
	tokensSetKey      = "fitness-analytics-sessions"
	tokenLength       = 35
)

var ErrSessionExpired = fmt.Errorf("%w: session expired", ErrInvalidToken)

// SessionStore keeps opaque session tokens in redis. A session value is
// "<created at unix>|<user id>".
type SessionStore struct {
	redisClient redis.Cmdable
	ttl         time.Duration
	now         func() time.Time
	// ability to inject random string generator func for tokens (for unit and dev testing)
	RandStringFunc func(s int) (string, error)
}

func NewSessionStore(ttl time.Duration, redisClient redis.Cmdable) *SessionStore {
	return &SessionStore{
		redisClient:    redisClient,
		ttl:            ttl,
		now:            time.Now,
		RandStringFunc: pkg.GenerateRandomString,
	}
}

// Create opens a session for userID and returns its token.
func (s *SessionStore) Create(ctx context.Context, userID string, createdAt time.Time) (string, error) {
	if err := RequireUserID(userID); err != nil {
		return "", err
	}

	token, err := s.RandStringFunc(tokenLength)
	if err != nil {
		return "", err
	}

	sessionKey := sessionKeyPrefix + token
	if err := s.redisClient.Set(ctx, sessionKey, encodeSession(userID, createdAt), 0).Err(); err != nil {
		return "", err
	}

	// add token to list of sessions
	if err := s.redisClient.SAdd(ctx, tokensSetKey, token).Err(); err != nil {
		return "", err
	}

	return token, nil
}

// Revoke deletes the session. Reports false if there was none.
func (s *SessionStore) Revoke(ctx context.Context, token string) (bool, error) {
	sessionKey := sessionKeyPrefix + token
	deleted, err := s.redisClient.Del(ctx, sessionKey).Result()
	if err != nil {
		return false, err
	}

	// remove token from the list of sessions
	if err := s.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
		return false, err
	}

	return deleted > 0, nil
}

func (s *SessionStore) UserIDForToken(ctx context.Context, token string) (string, error) {
	sessionVal, err := s.redisClient.Get(ctx, sessionKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", fmt.Errorf("get session: %w", err)
	}

	createdAt, userID, err := decodeSession(sessionVal)
	if err != nil {
		return "", err
	}
	if s.now().Sub(createdAt) > s.ttl {
		return "", ErrSessionExpired
	}

	return userID, nil
}

// ScanAndClean will run through all sessions, check the TTL, and clean them if old
func (s *SessionStore) ScanAndClean(ctx context.Context) {
	sessionTokens, err := s.redisClient.SMembers(ctx, tokensSetKey).Result()
	if err != nil {
		log.Errorf("!!! session store, scan and clean, get sessions: %s", err)
		return
	}
	if len(sessionTokens) == 0 {
		log.Debugln("=> session store, scan and clean abort, no sessions")
		return
	}

	log.Debugf("=> session store, scan and clean [%d sessions] start ...", len(sessionTokens))
	var toRemove []string
	for _, token := range sessionTokens {
		sessionVal, err := s.redisClient.Get(ctx, sessionKeyPrefix+token).Result()
		if errors.Is(err, redis.Nil) {
			// key gone, only the set member is left
			toRemove = append(toRemove, token)
			continue
		}
		if err != nil {
			log.Errorf("=> session store, scan and clean token %s: %s", token, err)
			continue
		}

		createdAt, _, err := decodeSession(sessionVal)
		if err != nil {
			log.Errorf("=> session store, scan and clean token %s: %s", token, err)
			toRemove = append(toRemove, token)
			continue
		}

		if s.now().Sub(createdAt) > s.ttl {
			toRemove = append(toRemove, token)
		}
	}

	for _, token := range toRemove {
		if err := s.redisClient.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
			log.Errorf("=> session store, clean token %s: %s", token, err)
			continue
		}
		if err := s.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
			log.Errorf("=> session store, clean token %s: %s", token, err)
			continue
		}
	}
	log.Debugf("=> session store, cleaned %d sessions", len(toRemove))
}

func encodeSession(userID string, createdAt time.Time) string {
	return strconv.FormatInt(createdAt.Unix(), 10) + "|" + userID
}

func decodeSession(val string) (time.Time, string, error) {
	createdAtStr, userID, found := strings.Cut(val, "|")
	if !found || userID == "" {
		return time.Time{}, "", fmt.Errorf("%w: malformed session", ErrInvalidToken)
	}
	createdAtUnix, err := strconv.ParseInt(createdAtStr, 10, 64)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: malformed session: %w", ErrInvalidToken, err)
	}
	return time.Unix(createdAtUnix, 0), userID, nil
}
