package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RemoteVerifier delegates token validation to the auth service. Used when
// the signing secret is not shared with this service.
type RemoteVerifier struct {
	baseURL string
	client  *http.Client
}

func NewRemoteVerifier(baseURL string) *RemoteVerifier {
	return &RemoteVerifier{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type validateTokenResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error"`
	User  struct {
		UserID   json.Number `json:"userId"`
		Email    string      `json:"email"`
		Username string      `json:"username"`
	} `json:"user"`
}

func (v *RemoteVerifier) Verify(ctx context.Context, tokenString string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/api/auth/validate-token", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build validate-token request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tokenString)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token validation request failed: %w", err)
	}
	defer resp.Body.Close()

	var body validateTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil && resp.StatusCode == http.StatusOK {
		return nil, fmt.Errorf("failed to decode validate-token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !body.Valid {
		if body.Error == "Token expired" {
			return nil, ErrTokenExpired
		}
		if body.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrTokenInvalid, body.Error)
		}
		return nil, ErrTokenInvalid
	}

	return &Identity{
		Subject: body.User.UserID.String(),
		Name:    body.User.Username,
		Email:   body.User.Email,
	}, nil
}
