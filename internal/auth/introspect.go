package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"mumble/internal/observability"
)

// introspectionCacheTTL bounds how long a positive introspection result is
// reused before the provider is asked again.
const introspectionCacheTTL = 6 * time.Hour

// Introspector validates opaque access tokens against an OIDC provider's
// RFC 7662 introspection endpoint. Positive results are cached in Redis,
// keyed by a hash of the token, so repeated requests with the same token
// do not hit the provider on every call.
type Introspector struct {
	issuer       string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	cache        *redis.Client

	mu       sync.Mutex
	endpoint string
}

// NewIntrospector returns an Introspector for the given issuer. The cache
// client may be nil, in which case every request is introspected remotely.
func NewIntrospector(issuer, clientID, clientSecret string, cache *redis.Client) *Introspector {
	return &Introspector{
		issuer:       strings.TrimSuffix(issuer, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		cache:        cache,
	}
}

type oidcDiscovery struct {
	IntrospectionEndpoint string `json:"introspection_endpoint"`
}

type introspectionResult struct {
	Active    bool   `json:"active"`
	Subject   string `json:"sub"`
	Username  string `json:"preferred_username"`
	GivenName string `json:"given_name"`
	Family    string `json:"family_name"`
	Expiry    int64  `json:"exp"`
}

// introspectionEndpoint resolves the endpoint from the issuer's discovery
// document, caching the result for the lifetime of the Introspector.
func (i *Introspector) introspectionEndpoint(ctx context.Context) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.endpoint != "" {
		return i.endpoint, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, i.issuer+"/.well-known/openid-configuration", nil)
	if err != nil {
		return "", fmt.Errorf("failed to build discovery request: %w", err)
	}
	resp, err := i.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("oidc discovery failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oidc discovery returned status %d", resp.StatusCode)
	}

	var doc oidcDiscovery
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&doc); err != nil {
		return "", fmt.Errorf("failed to decode discovery document: %w", err)
	}
	if doc.IntrospectionEndpoint == "" {
		return "", fmt.Errorf("issuer %s does not advertise an introspection endpoint", i.issuer)
	}

	i.endpoint = doc.IntrospectionEndpoint
	return i.endpoint, nil
}

// Verify introspects the token and returns the identity it belongs to.
func (i *Introspector) Verify(ctx context.Context, token string) (*Identity, error) {
	cacheKey := "introspect:" + hashToken(token)

	if i.cache != nil {
		if cached, err := i.cache.Get(ctx, cacheKey).Bytes(); err == nil {
			var res introspectionResult
			if err := json.Unmarshal(cached, &res); err == nil && res.Active {
				observability.IntrospectionCacheHits.WithLabelValues("hit").Inc()
				return identityFromResult(&res)
			}
		} else if err != redis.Nil {
			observability.RedisErrorRate.WithLabelValues("introspection_get").Inc()
		}
		observability.IntrospectionCacheHits.WithLabelValues("miss").Inc()
	}

	res, err := i.introspect(ctx, token)
	if err != nil {
		return nil, err
	}
	if !res.Active {
		return nil, ErrInvalidToken
	}

	if i.cache != nil {
		ttl := introspectionCacheTTL
		if res.Expiry > 0 {
			if until := time.Until(time.Unix(res.Expiry, 0)); until < ttl {
				ttl = until
			}
		}
		if ttl > 0 {
			if payload, err := json.Marshal(res); err == nil {
				if err := i.cache.Set(ctx, cacheKey, payload, ttl).Err(); err != nil {
					observability.RedisErrorRate.WithLabelValues("introspection_set").Inc()
				}
			}
		}
	}

	return identityFromResult(res)
}

func (i *Introspector) introspect(ctx context.Context, token string) (*introspectionResult, error) {
	endpoint, err := i.introspectionEndpoint(ctx)
	if err != nil {
		return nil, err
	}

	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build introspection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(i.clientID, i.clientSecret)

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token introspection failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token introspection returned status %d", resp.StatusCode)
	}

	var res introspectionResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&res); err != nil {
		return nil, fmt.Errorf("failed to decode introspection response: %w", err)
	}
	return &res, nil
}

func identityFromResult(res *introspectionResult) (*Identity, error) {
	if res.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{
		Subject:   res.Subject,
		Username:  res.Username,
		Firstname: res.GivenName,
		Lastname:  res.Family,
	}, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
