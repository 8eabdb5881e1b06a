package providers

import (
	"context"
	"time"

	"golang.org/x/oauth2"

	"github.com/neurasense/connect/internal/core/domain"
	"github.com/neurasense/connect/internal/core/ports/driven"
)

const redditAPIBaseURL = "https://oauth.reddit.com"

var redditEndpoint = oauth2.Endpoint{
	AuthURL:  "https://www.reddit.com/api/v1/authorize",
	TokenURL: "https://www.reddit.com/api/v1/access_token",
}

// RedditScopes are the fixed scopes requested from Reddit.
func RedditScopes() []string {
	return []string{"identity", "read", "history"}
}

var (
	_ driven.OAuthProvider  = (*Reddit)(nil)
	_ driven.ProfileFetcher = (*Reddit)(nil)
)

// Reddit implements the Reddit authorization-code grant. It asks for a
// permanent grant so a refresh token is issued.
type Reddit struct {
	*base
}

// NewReddit creates a Reddit provider.
func NewReddit(cfg Config, opts ...Option) (*Reddit, error) {
	b, err := newBase(domain.ProviderReddit, cfg, redditEndpoint, redditAPIBaseURL, RedditScopes(), opts)
	if err != nil {
		return nil, err
	}
	b.authParams = []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("duration", "permanent")}
	return &Reddit{base: b}, nil
}

type redditMe struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	CreatedUTC   float64 `json:"created_utc"`
	LinkKarma    int64   `json:"link_karma"`
	CommentKarma int64   `json:"comment_karma"`
	TotalKarma   int64   `json:"total_karma"`
}

// FetchProfile reads the account name from /api/v1/me.
func (r *Reddit) FetchProfile(ctx context.Context, token *driven.OAuthToken) (*domain.Profile, error) {
	var me redditMe
	if err := r.getJSON(ctx, token, "/api/v1/me", &me); err != nil {
		return nil, err
	}

	p := &domain.Profile{
		ProviderUserID: me.ID,
		Username:       me.Name,
		Metrics: map[string]int64{
			"link_karma":    me.LinkKarma,
			"comment_karma": me.CommentKarma,
			"total_karma":   me.TotalKarma,
		},
	}
	if me.CreatedUTC > 0 {
		created := time.Unix(int64(me.CreatedUTC), 0).UTC()
		p.AccountCreatedAt = &created
	}
	return p, nil
}
