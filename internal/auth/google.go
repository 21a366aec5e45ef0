package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleProfile is the subset of the OpenID userinfo response we use
type GoogleProfile struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// GoogleVerifier resolves a Google OAuth access token to a profile by
// calling the userinfo endpoint. Google rejects invalid or expired
// tokens there, so a 200 response is the verification.
type GoogleVerifier struct {
	client *http.Client
	url    string
}

// NewGoogleVerifier creates a verifier with a bounded request timeout
func NewGoogleVerifier() *GoogleVerifier {
	return &GoogleVerifier{
		client: &http.Client{Timeout: 10 * time.Second},
		url:    googleUserInfoURL,
	}
}

// Verify exchanges an access token for the holder's profile
func (v *GoogleVerifier) Verify(ctx context.Context, accessToken string) (*GoogleProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo request rejected: status %d", resp.StatusCode)
	}

	var profile GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}

	if profile.Email == "" {
		return nil, fmt.Errorf("userinfo response missing email")
	}

	return &profile, nil
}
