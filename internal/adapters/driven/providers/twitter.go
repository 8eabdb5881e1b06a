package providers

import (
	"context"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/neurasense/connect/internal/core/domain"
	"github.com/neurasense/connect/internal/core/ports/driven"
)

const twitterAPIBaseURL = "https://api.twitter.com"

var twitterEndpoint = oauth2.Endpoint{
	AuthURL:  "https://twitter.com/i/oauth2/authorize",
	TokenURL: "https://api.twitter.com/2/oauth2/token",
}

// TwitterScopes are the fixed scopes requested from Twitter.
func TwitterScopes() []string {
	return []string{"tweet.read", "users.read", "offline.access"}
}

var (
	_ driven.OAuthProvider  = (*Twitter)(nil)
	_ driven.ProfileFetcher = (*Twitter)(nil)
)

// Twitter implements the Twitter OAuth 2.0 authorization-code grant with PKCE.
type Twitter struct {
	*base
}

// NewTwitter creates a Twitter provider.
func NewTwitter(cfg Config, opts ...Option) (*Twitter, error) {
	b, err := newBase(domain.ProviderTwitter, cfg, twitterEndpoint, twitterAPIBaseURL, TwitterScopes(), opts)
	if err != nil {
		return nil, err
	}
	return &Twitter{base: b}, nil
}

type twitterMe struct {
	Data struct {
		ID            string           `json:"id"`
		Name          string           `json:"name"`
		Username      string           `json:"username"`
		Description   string           `json:"description"`
		CreatedAt     string           `json:"created_at"`
		PublicMetrics map[string]int64 `json:"public_metrics"`
	} `json:"data"`
}

// FetchProfile reads /2/users/me with creation date, bio and public metrics.
func (t *Twitter) FetchProfile(ctx context.Context, token *driven.OAuthToken) (*domain.Profile, error) {
	q := url.Values{"user.fields": {"created_at,description,public_metrics"}}

	var me twitterMe
	if err := t.getJSON(ctx, token, "/2/users/me?"+q.Encode(), &me); err != nil {
		return nil, err
	}

	p := &domain.Profile{
		ProviderUserID: me.Data.ID,
		Username:       me.Data.Username,
		DisplayName:    me.Data.Name,
		Description:    me.Data.Description,
		Metrics:        me.Data.PublicMetrics,
	}
	if ts, err := time.Parse(time.RFC3339, me.Data.CreatedAt); err == nil {
		ts = ts.UTC()
		p.AccountCreatedAt = &ts
	}
	return p, nil
}
