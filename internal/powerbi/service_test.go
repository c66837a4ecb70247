package powerbi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/reportportal/internal/cache"
	"github.com/nikhilbhutani/reportportal/internal/config"
)

const (
	testTenant    = "tenant-1"
	testWorkspace = "ws-1"
	testReport    = "report-1"
	testDataset   = "dataset-1"
)

// fakePowerBI emulates the identity provider and the reporting API.
type fakePowerBI struct {
	server *httptest.Server

	tokenCalls    atomic.Int32
	reportCalls   atomic.Int32
	generateCalls atomic.Int32
	pagesCalls    atomic.Int32

	mu             sync.Mutex
	tokenStatus    int
	reportStatus   int
	generateStatus int
	pagesStatus    int
	embedURL       string
	reportGate     chan struct{}
	tokenGate      chan struct{}
	lastTokenForm  url.Values
	lastGenerate   generateTokenRequest
}

func newFakePowerBI(t *testing.T) *fakePowerBI {
	t.Helper()
	f := &fakePowerBI{embedURL: "https://app.powerbi.com/reportEmbed?reportId=" + testReport}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /"+testTenant+"/oauth2/v2.0/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		_ = r.ParseForm()
		f.mu.Lock()
		f.lastTokenForm = r.PostForm
		status, gate := f.tokenStatus, f.tokenGate
		f.mu.Unlock()
		if gate != nil {
			<-gate
		}
		if status != 0 {
			writeTestJSON(w, status, map[string]string{"error": "invalid_client"})
			return
		}
		writeTestJSON(w, http.StatusOK, map[string]interface{}{
			"access_token": "aad-token",
			"token_type":   "Bearer",
			"expires_in":   3599,
		})
	})
	mux.HandleFunc("GET /v1.0/myorg/groups/"+testWorkspace, func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, map[string]string{"id": testWorkspace})
	})
	mux.HandleFunc("GET /v1.0/myorg/groups/"+testWorkspace+"/reports/"+testReport, func(w http.ResponseWriter, r *http.Request) {
		f.reportCalls.Add(1)
		f.mu.Lock()
		status, embedURL, gate := f.reportStatus, f.embedURL, f.reportGate
		f.mu.Unlock()
		if gate != nil {
			<-gate
		}
		if r.Header.Get("Authorization") != "Bearer aad-token" {
			writeTestJSON(w, http.StatusUnauthorized, map[string]string{"error": "bad token"})
			return
		}
		if status != 0 {
			writeTestJSON(w, status, map[string]string{"error": "report not found"})
			return
		}
		writeTestJSON(w, http.StatusOK, map[string]string{
			"id":        testReport,
			"embedUrl":  embedURL,
			"datasetId": testDataset,
		})
	})
	mux.HandleFunc("POST /v1.0/myorg/groups/"+testWorkspace+"/reports/"+testReport+"/GenerateToken", func(w http.ResponseWriter, r *http.Request) {
		n := f.generateCalls.Add(1)
		var req generateTokenRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.lastGenerate = req
		status := f.generateStatus
		f.mu.Unlock()
		if status != 0 {
			writeTestJSON(w, status, map[string]string{"error": "identity required"})
			return
		}
		writeTestJSON(w, http.StatusOK, map[string]string{"token": "embed-token-" + string(rune('0'+n))})
	})
	mux.HandleFunc("GET /v1.0/myorg/groups/"+testWorkspace+"/reports/"+testReport+"/pages", func(w http.ResponseWriter, r *http.Request) {
		f.pagesCalls.Add(1)
		f.mu.Lock()
		status := f.pagesStatus
		f.mu.Unlock()
		if status != 0 {
			writeTestJSON(w, status, map[string]string{"error": "boom"})
			return
		}
		writeTestJSON(w, http.StatusOK, map[string]interface{}{
			"value": []ReportPage{
				{Name: "ReportSection1", DisplayName: "Overview", Order: 0},
				{Name: "ReportSection2", DisplayName: "Sales", Order: 1},
			},
		})
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakePowerBI) set(fn func(f *fakePowerBI)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakePowerBI) generateRequest() generateTokenRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastGenerate
}

func writeTestJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func setupService(t *testing.T, mutate ...func(*config.PowerBIConfig)) (*Service, *fakePowerBI, *miniredis.Miniredis) {
	t.Helper()
	fake := newFakePowerBI(t)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := config.PowerBIConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TenantID:     testTenant,
		WorkspaceID:  testWorkspace,
		ReportID:     testReport,
		RLSUsername:  "default-user",
		RLSRoles:     []string{"Viewer", "Sales"},
		AuthorityURL: fake.server.URL,
		APIURL:       fake.server.URL + "/v1.0/myorg",
		Scope:        "https://analysis.windows.net/powerbi/api/.default",
	}
	for _, m := range mutate {
		m(&cfg)
	}

	return NewService(cfg, cache.NewCache(client), nil), fake, mr
}

func TestGetAccessToken(t *testing.T) {
	svc, fake, mr := setupService(t)
	ctx := context.Background()

	t.Run("exchanges client credentials", func(t *testing.T) {
		token, err := svc.GetAccessToken(ctx)
		require.NoError(t, err)
		assert.Equal(t, "aad-token", token)

		fake.mu.Lock()
		form := fake.lastTokenForm
		fake.mu.Unlock()
		assert.Equal(t, "client_credentials", form.Get("grant_type"))
		assert.Equal(t, "client-id", form.Get("client_id"))
		assert.Equal(t, "client-secret", form.Get("client_secret"))
		assert.Equal(t, "https://analysis.windows.net/powerbi/api/.default", form.Get("scope"))
	})

	t.Run("served from cache within ttl", func(t *testing.T) {
		_, err := svc.GetAccessToken(ctx)
		require.NoError(t, err)
		assert.Equal(t, int32(1), fake.tokenCalls.Load())
		assert.Equal(t, accessTokenTTL, mr.TTL(accessTokenKey))
	})

	t.Run("renewed after ttl", func(t *testing.T) {
		mr.FastForward(accessTokenTTL)
		_, err := svc.GetAccessToken(ctx)
		require.NoError(t, err)
		assert.Equal(t, int32(2), fake.tokenCalls.Load())
	})
}

func TestGetAccessToken_Failure(t *testing.T) {
	svc, fake, mr := setupService(t)
	fake.set(func(f *fakePowerBI) { f.tokenStatus = http.StatusUnauthorized })

	_, err := svc.GetAccessToken(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamAuth)

	var extErr *ExternalServiceError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, http.StatusUnauthorized, extErr.StatusCode)
	assert.Contains(t, extErr.Body, "invalid_client")
	assert.False(t, mr.Exists(accessTokenKey), "failed exchange must not be cached")
}

func TestGetEmbedConfig_CachedPerViewer(t *testing.T) {
	svc, fake, _ := setupService(t)
	ctx := context.Background()
	viewer := UserViewer(uuid.New())

	first, err := svc.GetEmbedConfig(ctx, viewer, EmbedOptions{})
	require.NoError(t, err)
	second, err := svc.GetEmbedConfig(ctx, viewer, EmbedOptions{})
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(firstJSON), string(secondJSON))
	assert.Equal(t, string(firstJSON), string(secondJSON))

	assert.Equal(t, int32(1), fake.reportCalls.Load())
	assert.Equal(t, int32(1), fake.generateCalls.Load())
	assert.Equal(t, int32(1), fake.tokenCalls.Load())

	assert.True(t, first.IsAvailable)
	assert.Equal(t, testReport, first.ReportID)
	assert.Equal(t, TokenTypeEmbed, first.TokenType)
	assert.Equal(t, "embed-token-1", first.AccessToken)
}

func TestGetEmbedConfig_ForceRefresh(t *testing.T) {
	svc, fake, _ := setupService(t)
	ctx := context.Background()
	viewer := UserViewer(uuid.New())

	first, err := svc.GetEmbedConfig(ctx, viewer, EmbedOptions{})
	require.NoError(t, err)

	refreshed, err := svc.GetEmbedConfig(ctx, viewer, EmbedOptions{ForceRefresh: true})
	require.NoError(t, err)

	assert.Equal(t, int32(2), fake.reportCalls.Load())
	assert.Equal(t, int32(2), fake.generateCalls.Load())
	assert.NotEqual(t, first.AccessToken, refreshed.AccessToken)

	// The refreshed config replaces the cached one.
	again, err := svc.GetEmbedConfig(ctx, viewer, EmbedOptions{})
	require.NoError(t, err)
	assert.Equal(t, refreshed.AccessToken, again.AccessToken)
	assert.Equal(t, int32(2), fake.generateCalls.Load())
}

func TestGetEmbedConfig_IndependentViewers(t *testing.T) {
	svc, fake, mr := setupService(t)
	ctx := context.Background()

	alice := UserViewer(uuid.New())
	bob := UserViewer(uuid.New())
	guest := Guest()

	assert.NotEqual(t, alice.CacheKey(), bob.CacheKey())
	assert.NotEqual(t, alice.CacheKey(), guest.CacheKey())
	assert.Equal(t, "pbi_embed_config_guest", guest.CacheKey())

	_, err := svc.GetEmbedConfig(ctx, alice, EmbedOptions{})
	require.NoError(t, err)

	mr.FastForward(30 * time.Minute)

	_, err = svc.GetEmbedConfig(ctx, bob, EmbedOptions{})
	require.NoError(t, err)
	_, err = svc.GetEmbedConfig(ctx, guest, EmbedOptions{})
	require.NoError(t, err)
	assert.Equal(t, int32(3), fake.generateCalls.Load())

	// Alice's entry expires first; Bob's and the guest's are still fresh.
	mr.FastForward(31 * time.Minute)
	assert.False(t, mr.Exists(alice.CacheKey()))
	assert.True(t, mr.Exists(bob.CacheKey()))
	assert.True(t, mr.Exists(guest.CacheKey()))

	_, err = svc.GetEmbedConfig(ctx, bob, EmbedOptions{})
	require.NoError(t, err)
	assert.Equal(t, int32(3), fake.generateCalls.Load())

	_, err = svc.GetEmbedConfig(ctx, alice, EmbedOptions{})
	require.NoError(t, err)
	assert.Equal(t, int32(4), fake.generateCalls.Load())
}

func TestGetEmbedConfig_Expiration(t *testing.T) {
	svc, _, mr := setupService(t)
	fixed := time.Date(2026, 3, 14, 9, 30, 15, 123456789, time.UTC)
	svc.now = func() time.Time { return fixed }

	ec, err := svc.GetEmbedConfig(context.Background(), Guest(), EmbedOptions{})
	require.NoError(t, err)

	cachedAt := fixed.Truncate(time.Millisecond)
	assert.True(t, cachedAt.Equal(ec.CachedAt))
	assert.Equal(t, cachedAt.Add(45*time.Minute).UnixMilli(), ec.Expiration)
	assert.Equal(t, embedConfigTTL, mr.TTL(Guest().CacheKey()))

	cached, err := svc.GetEmbedConfig(context.Background(), Guest(), EmbedOptions{})
	require.NoError(t, err)
	assert.Equal(t, cached.CachedAt.Add(embedTokenLifetime).UnixMilli(), cached.Expiration)
}

func TestGetEmbedConfig_NormalizesEmbedURL(t *testing.T) {
	svc, fake, _ := setupService(t)
	fake.set(func(f *fakePowerBI) {
		f.embedURL = "https://api-api.powerbi.com/reportEmbed?reportId=" + testReport
	})

	ec, err := svc.GetEmbedConfig(context.Background(), Guest(), EmbedOptions{})
	require.NoError(t, err)
	assert.Equal(t, "https://app.powerbi.com/reportEmbed?reportId="+testReport, ec.EmbedURL)
}

func TestNormalizeEmbedURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"malformed host", "https://api-api.powerbi.com/reportEmbed?x=1", "https://app.powerbi.com/reportEmbed?x=1"},
		{"canonical host", "https://app.powerbi.com/reportEmbed?x=1", "https://app.powerbi.com/reportEmbed?x=1"},
		{"sovereign cloud", "https://app.powerbigov.us/reportEmbed?x=1", "https://app.powerbigov.us/reportEmbed?x=1"},
		{"lookalike host", "https://api-api.powerbi.com.example.org/reportEmbed", "https://api-api.powerbi.com.example.org/reportEmbed"},
		{"unparseable", "://bad url", "://bad url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeEmbedURL(tt.in))
		})
	}
}

func TestRLSIdentity(t *testing.T) {
	tests := []struct {
		name        string
		defaultUser string
		defaultRole []string
		opts        EmbedOptions
		want        *RLSIdentity
	}{
		{
			name:        "defaults",
			defaultUser: "svc-user",
			defaultRole: []string{"Viewer"},
			want:        &RLSIdentity{Username: "svc-user", Roles: []string{"Viewer"}, Datasets: []string{testDataset}},
		},
		{
			name:        "explicit args win",
			defaultUser: "svc-user",
			defaultRole: []string{"Viewer"},
			opts:        EmbedOptions{Username: "alice@example.com", Roles: []string{"Sales", "EMEA"}},
			want:        &RLSIdentity{Username: "alice@example.com", Roles: []string{"Sales", "EMEA"}, Datasets: []string{testDataset}},
		},
		{
			name: "username without roles",
			opts: EmbedOptions{Username: "alice@example.com"},
		},
		{
			name: "roles without username",
			opts: EmbedOptions{Roles: []string{"Sales"}},
		},
		{
			name:        "explicit empty roles disable identity",
			defaultUser: "svc-user",
			defaultRole: []string{"Viewer"},
			opts:        EmbedOptions{Roles: []string{}},
		},
		{
			name: "nothing configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(config.PowerBIConfig{
				RLSUsername: tt.defaultUser,
				RLSRoles:    tt.defaultRole,
			}, nil, nil)
			assert.Equal(t, tt.want, svc.rlsIdentity(tt.opts, testDataset))
		})
	}
}

func TestGetEmbedConfig_TokenRequestBody(t *testing.T) {
	t.Run("with identity", func(t *testing.T) {
		svc, fake, _ := setupService(t)
		_, err := svc.GetEmbedConfig(context.Background(), Guest(), EmbedOptions{})
		require.NoError(t, err)

		req := fake.generateRequest()
		assert.Equal(t, "view", req.AccessLevel)
		assert.Equal(t, testDataset, req.DatasetID)
		require.Len(t, req.Identities, 1)
		assert.Equal(t, "default-user", req.Identities[0].Username)
		assert.Equal(t, []string{"Viewer", "Sales"}, req.Identities[0].Roles)
		assert.Equal(t, []string{testDataset}, req.Identities[0].Datasets)
	})

	t.Run("without identity", func(t *testing.T) {
		svc, fake, _ := setupService(t, func(c *config.PowerBIConfig) {
			c.RLSRoles = nil
		})
		_, err := svc.GetEmbedConfig(context.Background(), Guest(), EmbedOptions{Username: "alice@example.com"})
		require.NoError(t, err)

		req := fake.generateRequest()
		assert.Equal(t, testDataset, req.DatasetID)
		assert.Empty(t, req.Identities)
	})
}

func TestGetEmbedConfig_UpstreamFailures(t *testing.T) {
	tests := []struct {
		name    string
		breakFn func(f *fakePowerBI)
		stage   error
		body    string
	}{
		{"token exchange", func(f *fakePowerBI) { f.tokenStatus = http.StatusBadRequest }, ErrUpstreamAuth, "invalid_client"},
		{"report metadata", func(f *fakePowerBI) { f.reportStatus = http.StatusNotFound }, ErrUpstreamMetadata, "report not found"},
		{"token generation", func(f *fakePowerBI) { f.generateStatus = http.StatusBadRequest }, ErrUpstreamTokenGeneration, "identity required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, fake, mr := setupService(t)
			fake.set(tt.breakFn)

			ec, err := svc.GetEmbedConfig(context.Background(), Guest(), EmbedOptions{})
			require.Error(t, err)
			assert.Nil(t, ec)
			assert.ErrorIs(t, err, tt.stage)

			var extErr *ExternalServiceError
			require.ErrorAs(t, err, &extErr)
			assert.Contains(t, extErr.Body, tt.body)
			assert.Contains(t, err.Error(), tt.body)
			assert.False(t, mr.Exists(Guest().CacheKey()), "failures must not be cached")

			unavailable := Unavailable(err)
			assert.False(t, unavailable.IsAvailable)
			assert.Equal(t, err.Error(), unavailable.Error)
		})
	}
}

func TestGetEmbedConfig_RecoversAfterFailure(t *testing.T) {
	svc, fake, _ := setupService(t)
	ctx := context.Background()
	fake.set(func(f *fakePowerBI) { f.generateStatus = http.StatusInternalServerError })

	_, err := svc.GetEmbedConfig(ctx, Guest(), EmbedOptions{})
	require.Error(t, err)

	fake.set(func(f *fakePowerBI) { f.generateStatus = 0 })
	ec, err := svc.GetEmbedConfig(ctx, Guest(), EmbedOptions{})
	require.NoError(t, err)
	assert.True(t, ec.IsAvailable)
}

func TestGetEmbedConfig_CoalescesConcurrentMisses(t *testing.T) {
	svc, fake, _ := setupService(t)
	gate := make(chan struct{})
	fake.set(func(f *fakePowerBI) { f.reportGate = gate })

	// Warm the access token so every goroutine goes straight to the
	// embed config fetch.
	_, err := svc.GetAccessToken(context.Background())
	require.NoError(t, err)

	viewer := UserViewer(uuid.New())
	const callers = 8

	var wg sync.WaitGroup
	results := make([]*EmbedConfig, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.GetEmbedConfig(context.Background(), viewer, EmbedOptions{})
		}(i)
	}

	time.Sleep(200 * time.Millisecond)
	close(gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].AccessToken, results[i].AccessToken)
	}
	assert.Equal(t, int32(1), fake.reportCalls.Load())
	assert.Equal(t, int32(1), fake.generateCalls.Load())
}

func TestGetEmbedConfig_CancelledCallerDoesNotFailOthers(t *testing.T) {
	svc, fake, _ := setupService(t)
	gate := make(chan struct{})
	fake.set(func(f *fakePowerBI) { f.reportGate = gate })

	_, err := svc.GetAccessToken(context.Background())
	require.NoError(t, err)

	viewer := UserViewer(uuid.New())
	leaderCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	leaderErr := make(chan error, 1)
	go func() {
		_, err := svc.GetEmbedConfig(leaderCtx, viewer, EmbedOptions{})
		leaderErr <- err
	}()
	require.Eventually(t, func() bool { return fake.reportCalls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	type result struct {
		ec  *EmbedConfig
		err error
	}
	follower := make(chan result, 1)
	go func() {
		ec, err := svc.GetEmbedConfig(context.Background(), viewer, EmbedOptions{})
		follower <- result{ec, err}
	}()
	time.Sleep(100 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	close(gate)
	res := <-follower
	require.NoError(t, res.err)
	assert.True(t, res.ec.IsAvailable)
	assert.Equal(t, int32(1), fake.reportCalls.Load())
	assert.Equal(t, int32(1), fake.generateCalls.Load())
}

func TestGetAccessToken_CancelledCallerDoesNotFailOthers(t *testing.T) {
	svc, fake, _ := setupService(t)
	gate := make(chan struct{})
	fake.set(func(f *fakePowerBI) { f.tokenGate = gate })

	ctxA, cancel := context.WithCancel(context.Background())
	defer cancel()

	errA := make(chan error, 1)
	go func() {
		_, err := svc.GetEmbedConfig(ctxA, UserViewer(uuid.New()), EmbedOptions{})
		errA <- err
	}()
	require.Eventually(t, func() bool { return fake.tokenCalls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	type result struct {
		ec  *EmbedConfig
		err error
	}
	viewerB := make(chan result, 1)
	go func() {
		ec, err := svc.GetEmbedConfig(context.Background(), UserViewer(uuid.New()), EmbedOptions{})
		viewerB <- result{ec, err}
	}()
	time.Sleep(100 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(gate)
	res := <-viewerB
	require.NoError(t, res.err)
	assert.True(t, res.ec.IsAvailable)
	assert.Equal(t, int32(1), fake.tokenCalls.Load())
}

func TestGetReportPages(t *testing.T) {
	t.Run("lists pages", func(t *testing.T) {
		svc, _, _ := setupService(t)
		pages := svc.GetReportPages(context.Background())
		require.Len(t, pages, 2)
		assert.Equal(t, "Overview", pages[0].DisplayName)
		assert.Equal(t, "ReportSection2", pages[1].Name)
	})

	t.Run("upstream failure yields empty list", func(t *testing.T) {
		svc, fake, _ := setupService(t)
		fake.set(func(f *fakePowerBI) { f.pagesStatus = http.StatusInternalServerError })

		pages := svc.GetReportPages(context.Background())
		assert.NotNil(t, pages)
		assert.Empty(t, pages)
		assert.Equal(t, int32(1), fake.pagesCalls.Load())
	})

	t.Run("token failure yields empty list", func(t *testing.T) {
		svc, fake, _ := setupService(t)
		fake.set(func(f *fakePowerBI) { f.tokenStatus = http.StatusUnauthorized })

		pages := svc.GetReportPages(context.Background())
		assert.NotNil(t, pages)
		assert.Empty(t, pages)
		assert.Equal(t, int32(0), fake.pagesCalls.Load())
	})
}

func TestCheckAPIStatus(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		svc, _, _ := setupService(t)
		assert.True(t, svc.CheckAPIStatus(context.Background()))
	})

	t.Run("auth failure", func(t *testing.T) {
		svc, fake, _ := setupService(t)
		fake.set(func(f *fakePowerBI) { f.tokenStatus = http.StatusUnauthorized })
		assert.False(t, svc.CheckAPIStatus(context.Background()))
	})

	t.Run("unknown workspace", func(t *testing.T) {
		svc, _, _ := setupService(t, func(c *config.PowerBIConfig) { c.WorkspaceID = "missing" })
		assert.False(t, svc.CheckAPIStatus(context.Background()))
	})
}
