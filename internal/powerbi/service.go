package powerbi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"

	"github.com/nikhilbhutani/reportportal/internal/cache"
	"github.com/nikhilbhutani/reportportal/internal/config"
)

const (
	accessTokenKey       = "powerbi_access_token"
	embedConfigKeyPrefix = "pbi_embed_config_"

	// Shorter than the provider's one hour so a cached token is never
	// handed out right before it expires.
	accessTokenTTL = 3300 * time.Second
	embedConfigTTL = 3600 * time.Second

	// The embed token is reported as expiring well before the cached
	// config is evicted; the front end refreshes with ?refresh before then.
	embedTokenLifetime = 45 * time.Minute

	malformedHost = "api-api.powerbi.com"
	canonicalHost = "app.powerbi.com"
)

// Cache is the subset of the credential cache the service needs. Get must
// return cache.ErrMiss for absent or expired keys.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Service issues embed configurations for the configured report. It hides
// the token exchange and the two reporting API calls behind a per-viewer
// cache.
type Service struct {
	cfg        config.PowerBIConfig
	cache      Cache
	httpClient *http.Client
	oauth      *clientcredentials.Config
	metrics    *Metrics
	group      singleflight.Group
	now        func() time.Time
}

func NewService(cfg config.PowerBIConfig, c Cache, metrics *Metrics) *Service {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	authority := strings.TrimRight(cfg.AuthorityURL, "/")
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	return &Service{
		cfg:        cfg,
		cache:      c,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		oauth: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     fmt.Sprintf("%s/%s/oauth2/v2.0/token", authority, cfg.TenantID),
			Scopes:       []string{cfg.Scope},
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		metrics: metrics,
		now:     time.Now,
	}
}

// GetAccessToken returns the service principal's bearer token, exchanging
// client credentials at most once per cache window.
func (s *Service) GetAccessToken(ctx context.Context) (string, error) {
	var token string
	err := s.cache.Get(ctx, accessTokenKey, &token)
	if err == nil && token != "" {
		s.metrics.lookup("access_token", true)
		return token, nil
	}
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		slog.Warn("credential cache read failed", "key", accessTokenKey, "error", err)
	}
	s.metrics.lookup("access_token", false)

	v, err := s.shared(ctx, accessTokenKey, func(ctx context.Context) (interface{}, error) {
		token, err := s.exchangeClientCredentials(ctx)
		if err != nil {
			return "", err
		}
		if err := s.cache.Set(ctx, accessTokenKey, token, accessTokenTTL); err != nil {
			slog.Warn("credential cache write failed", "key", accessTokenKey, "error", err)
		}
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// shared runs fn once per key for all concurrent callers. fn runs detached
// from any single caller's cancellation, bounded by the HTTP client
// timeout; a caller whose ctx ends stops waiting without failing the others.
func (s *Service) shared(ctx context.Context, key string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return fn(detached)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) exchangeClientCredentials(ctx context.Context) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	tok, err := s.oauth.Token(ctx)
	s.metrics.upstream("token", err)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			status := 0
			if re.Response != nil {
				status = re.Response.StatusCode
			}
			return "", newExternalError(ErrUpstreamAuth, status, re.Body, err)
		}
		return "", newExternalError(ErrUpstreamAuth, 0, nil, err)
	}
	if tok.AccessToken == "" {
		return "", newExternalError(ErrUpstreamAuth, 0, nil, errors.New("empty access token"))
	}
	return tok.AccessToken, nil
}

// GetEmbedConfig returns the embed configuration for viewer, serving it from
// the cache unless opts.ForceRefresh is set. Concurrent misses for the same
// viewer share one upstream round trip.
func (s *Service) GetEmbedConfig(ctx context.Context, viewer Viewer, opts EmbedOptions) (*EmbedConfig, error) {
	key := viewer.CacheKey()

	if opts.ForceRefresh {
		if err := s.cache.Delete(ctx, key); err != nil {
			slog.Warn("credential cache evict failed", "key", key, "error", err)
		}
		// Do not join a fetch that started before the eviction.
		s.group.Forget(key)
	} else {
		var cached EmbedConfig
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			s.metrics.lookup("embed_config", true)
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			slog.Warn("credential cache read failed", "key", key, "error", err)
		}
	}
	s.metrics.lookup("embed_config", false)

	v, err := s.shared(ctx, key, func(ctx context.Context) (interface{}, error) {
		ec, err := s.buildEmbedConfig(ctx, opts)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, key, ec, embedConfigTTL); err != nil {
			slog.Warn("credential cache write failed", "key", key, "error", err)
		}
		return ec, nil
	})
	if err != nil {
		return nil, err
	}

	ec := *v.(*EmbedConfig)
	return &ec, nil
}

func (s *Service) buildEmbedConfig(ctx context.Context, opts EmbedOptions) (*EmbedConfig, error) {
	accessToken, err := s.GetAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var report reportMetadata
	if err := s.call(ctx, http.MethodGet, s.reportURL(""), accessToken, nil, &report, "report", ErrUpstreamMetadata); err != nil {
		return nil, err
	}
	if report.EmbedURL == "" || report.DatasetID == "" {
		return nil, newExternalError(ErrUpstreamMetadata, 0, nil, errors.New("response missing embedUrl or datasetId"))
	}

	req := generateTokenRequest{
		AccessLevel: "view",
		DatasetID:   report.DatasetID,
	}
	if identity := s.rlsIdentity(opts, report.DatasetID); identity != nil {
		req.Identities = []RLSIdentity{*identity}
	}

	var generated generateTokenResponse
	if err := s.call(ctx, http.MethodPost, s.reportURL("/GenerateToken"), accessToken, req, &generated, "generate_token", ErrUpstreamTokenGeneration); err != nil {
		return nil, err
	}
	if generated.Token == "" {
		return nil, newExternalError(ErrUpstreamTokenGeneration, 0, nil, errors.New("response missing token"))
	}

	// Millisecond precision keeps Expiration an exact offset of CachedAt
	// after a round trip through the cache.
	now := s.now().UTC().Truncate(time.Millisecond)

	return &EmbedConfig{
		AccessToken: generated.Token,
		EmbedURL:    NormalizeEmbedURL(report.EmbedURL),
		ReportID:    s.cfg.ReportID,
		TokenType:   TokenTypeEmbed,
		Expiration:  now.Add(embedTokenLifetime).UnixMilli(),
		CachedAt:    now,
		IsAvailable: true,
	}, nil
}

// rlsIdentity builds the effective identity for the token request, or nil
// when either the username or the roles are unavailable. Explicit options
// take precedence over the configured defaults.
func (s *Service) rlsIdentity(opts EmbedOptions, datasetID string) *RLSIdentity {
	username := opts.Username
	if username == "" {
		username = s.cfg.RLSUsername
	}
	roles := opts.Roles
	if roles == nil {
		roles = s.cfg.RLSRoles
	}
	if username == "" || len(roles) == 0 {
		return nil
	}
	return &RLSIdentity{
		Username: username,
		Roles:    append([]string(nil), roles...),
		Datasets: []string{datasetID},
	}
}

// CheckAPIStatus reports whether the workspace is reachable with the
// current credentials. Every failure reads as false.
func (s *Service) CheckAPIStatus(ctx context.Context) bool {
	accessToken, err := s.GetAccessToken(ctx)
	if err != nil {
		slog.Debug("power bi status check: token unavailable", "error", err)
		return false
	}
	u := fmt.Sprintf("%s/groups/%s", s.cfg.APIURL, url.PathEscape(s.cfg.WorkspaceID))
	if err := s.call(ctx, http.MethodGet, u, accessToken, nil, nil, "workspace", ErrUpstreamMetadata); err != nil {
		slog.Debug("power bi status check failed", "error", err)
		return false
	}
	return true
}

// GetReportPages lists the pages of the configured report. Page lists are
// informational, so failures degrade to an empty list.
func (s *Service) GetReportPages(ctx context.Context) []ReportPage {
	pages := []ReportPage{}

	accessToken, err := s.GetAccessToken(ctx)
	if err != nil {
		slog.Warn("report pages unavailable", "error", err)
		return pages
	}

	var resp pagesResponse
	if err := s.call(ctx, http.MethodGet, s.reportURL("/pages"), accessToken, nil, &resp, "pages", ErrUpstreamMetadata); err != nil {
		slog.Warn("report pages unavailable", "error", err)
		return pages
	}
	if resp.Value != nil {
		pages = resp.Value
	}
	return pages
}

// NormalizeEmbedURL rewrites the malformed api-api.powerbi.com host that the
// API sometimes returns to app.powerbi.com. Other URLs pass through.
func NormalizeEmbedURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || !strings.EqualFold(u.Host, malformedHost) {
		return raw
	}
	u.Host = canonicalHost
	return u.String()
}

func (s *Service) reportURL(suffix string) string {
	return fmt.Sprintf("%s/groups/%s/reports/%s%s",
		s.cfg.APIURL, url.PathEscape(s.cfg.WorkspaceID), url.PathEscape(s.cfg.ReportID), suffix)
}

// call performs one authenticated JSON request against the reporting API.
// Any failure, including a non-2xx status, is returned as an
// *ExternalServiceError tagged with stage.
func (s *Service) call(ctx context.Context, method, u, accessToken string, in, out interface{}, endpoint string, stage error) (err error) {
	defer func() { s.metrics.upstream(endpoint, err) }()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return newExternalError(stage, 0, nil, fmt.Errorf("marshal request: %w", err))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return newExternalError(stage, 0, nil, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return newExternalError(stage, 0, nil, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return newExternalError(stage, resp.StatusCode, nil, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newExternalError(stage, resp.StatusCode, respBody, nil)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return newExternalError(stage, resp.StatusCode, respBody, fmt.Errorf("decode response: %w", err))
		}
	}
	return nil
}
