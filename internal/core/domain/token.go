package domain

import "time"

// TokenRecord is the persisted credential bundle proving a user has connected
// a provider. Its existence is the only "connected" signal.
type TokenRecord struct {
	UserID   string   `json:"user_id"`
	Provider Provider `json:"provider"`

	// OAuth2 fields
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	TokenType    string     `json:"token_type,omitempty"`
	Scope        string     `json:"scope,omitempty"`
	ExpiresIn    int64      `json:"expires_in,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`

	Profile *Profile `json:"profile,omitempty"`

	ConnectedAt time.Time `json:"connected_at"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Profile holds the provider account fields captured from the provider's
// "who am I" endpoint.
type Profile struct {
	ProviderUserID   string           `json:"provider_user_id,omitempty"`
	Username         string           `json:"username,omitempty"`
	DisplayName      string           `json:"display_name,omitempty"`
	Description      string           `json:"description,omitempty"`
	AccountCreatedAt *time.Time       `json:"account_created_at,omitempty"`
	Metrics          map[string]int64 `json:"metrics,omitempty"`
}

// Merge applies update onto r with upsert-merge semantics: non-zero fields in
// update overwrite, zero fields keep the stored value. ConnectedAt keeps the
// earliest non-zero value.
func (r *TokenRecord) Merge(update *TokenRecord) {
	if update == nil {
		return
	}
	if update.UserID != "" {
		r.UserID = update.UserID
	}
	if update.Provider != "" {
		r.Provider = update.Provider
	}
	if update.AccessToken != "" {
		r.AccessToken = update.AccessToken
	}
	if update.RefreshToken != "" {
		r.RefreshToken = update.RefreshToken
	}
	if update.TokenType != "" {
		r.TokenType = update.TokenType
	}
	if update.Scope != "" {
		r.Scope = update.Scope
	}
	if update.ExpiresIn != 0 {
		r.ExpiresIn = update.ExpiresIn
	}
	if update.ExpiresAt != nil {
		r.ExpiresAt = update.ExpiresAt
	}
	if update.Profile != nil {
		if r.Profile == nil {
			r.Profile = &Profile{}
		}
		r.Profile.merge(update.Profile)
	}
	if r.ConnectedAt.IsZero() || (!update.ConnectedAt.IsZero() && update.ConnectedAt.Before(r.ConnectedAt)) {
		r.ConnectedAt = update.ConnectedAt
	}
	if !update.FetchedAt.IsZero() {
		r.FetchedAt = update.FetchedAt
	}
}

func (p *Profile) merge(update *Profile) {
	if update.ProviderUserID != "" {
		p.ProviderUserID = update.ProviderUserID
	}
	if update.Username != "" {
		p.Username = update.Username
	}
	if update.DisplayName != "" {
		p.DisplayName = update.DisplayName
	}
	if update.Description != "" {
		p.Description = update.Description
	}
	if update.AccountCreatedAt != nil {
		p.AccountCreatedAt = update.AccountCreatedAt
	}
	if len(update.Metrics) > 0 {
		p.Metrics = make(map[string]int64, len(update.Metrics))
		for k, v := range update.Metrics {
			p.Metrics[k] = v
		}
	}
}

// TokenRecordSummary provides a safe view without token values
type TokenRecordSummary struct {
	Provider    Provider   `json:"provider" example:"reddit"`
	Username    string     `json:"username,omitempty" example:"u_alice"`
	HasRefresh  bool       `json:"has_refresh_token"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ConnectedAt time.Time  `json:"connected_at"`
	FetchedAt   time.Time  `json:"fetched_at"`
}

// ToSummary converts a TokenRecord to TokenRecordSummary
func (r *TokenRecord) ToSummary() *TokenRecordSummary {
	s := &TokenRecordSummary{
		Provider:    r.Provider,
		HasRefresh:  r.RefreshToken != "",
		ExpiresAt:   r.ExpiresAt,
		ConnectedAt: r.ConnectedAt,
		FetchedAt:   r.FetchedAt,
	}
	if r.Profile != nil {
		s.Username = r.Profile.Username
	}
	return s
}
