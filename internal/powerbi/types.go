package powerbi

import (
	"time"

	"github.com/google/uuid"
)

// TokenTypeEmbed is the token type the Power BI JavaScript client expects
// for embed tokens (models.TokenType.Embed).
const TokenTypeEmbed = 1

// EmbedConfig is everything the front end needs to render the report.
// AccessToken is the report-scoped embed token, never the service
// principal's access token.
type EmbedConfig struct {
	AccessToken string    `json:"accessToken,omitempty"`
	EmbedURL    string    `json:"embedUrl,omitempty"`
	ReportID    string    `json:"id,omitempty"`
	TokenType   int       `json:"tokenType,omitempty"`
	Expiration  int64     `json:"expiration,omitempty"`
	CachedAt    time.Time `json:"cached_at,omitzero"`
	IsAvailable bool      `json:"is_available"`
	Error       string    `json:"error,omitempty"`
}

// Unavailable is the view state rendered when the embed flow failed.
func Unavailable(err error) *EmbedConfig {
	return &EmbedConfig{IsAvailable: false, Error: err.Error()}
}

// Viewer identifies who the embed config is issued for. The zero value is
// the anonymous guest.
type Viewer struct {
	UserID string
}

func Guest() Viewer {
	return Viewer{}
}

func UserViewer(id uuid.UUID) Viewer {
	return Viewer{UserID: id.String()}
}

// CacheKey scopes cached embed configs per viewer, since the RLS identity
// baked into the token can differ between viewers.
func (v Viewer) CacheKey() string {
	if v.UserID == "" {
		return embedConfigKeyPrefix + "guest"
	}
	return embedConfigKeyPrefix + v.UserID
}

// EmbedOptions override the configured RLS defaults for one request.
// A nil Roles falls back to the configured roles; an empty non-nil Roles
// disables the identity block.
type EmbedOptions struct {
	Username     string
	Roles        []string
	ForceRefresh bool
}

type ReportPage struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Order       int    `json:"order"`
}

type reportMetadata struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	EmbedURL  string `json:"embedUrl"`
	DatasetID string `json:"datasetId"`
}

// RLSIdentity is the effective identity passed to GenerateToken so the
// dataset applies row-level security for this viewer.
type RLSIdentity struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	Datasets []string `json:"datasets"`
}

type generateTokenRequest struct {
	AccessLevel string        `json:"accessLevel"`
	DatasetID   string        `json:"datasetId"`
	Identities  []RLSIdentity `json:"identities,omitempty"`
}

type generateTokenResponse struct {
	Token   string `json:"token"`
	TokenID string `json:"tokenId"`
}

type pagesResponse struct {
	Value []ReportPage `json:"value"`
}
