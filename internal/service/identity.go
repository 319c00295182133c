package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Identity is the identity provider's view of the current user.
type Identity struct {
	UserID        string `json:"userId"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
}

// IdentityClient talks to the identity provider over HTTP with the caller's
// bearer token.
type IdentityClient struct {
	client *http.Client
	logger *zap.Logger
}

func NewIdentityClient(logger *zap.Logger) *IdentityClient {
	return &IdentityClient{
		client: &http.Client{},
		logger: logger,
	}
}

// CurrentUser fetches the identity and email-verification state behind a
// bearer token.
func (c *IdentityClient) CurrentUser(ctx context.Context, bearer string) (*Identity, error) {
	identityURL := viper.GetString("identity.base_url")

	httpReq, err := http.NewRequestWithContext(ctx, "GET", identityURL+"/me", nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create HTTP request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send HTTP request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("identity provider returned non-200 status: %d, body: %s", resp.StatusCode, string(body))
	}

	var identity Identity
	if err := json.Unmarshal(body, &identity); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal response JSON")
	}
	return &identity, nil
}

// Logout revokes the bearer token.
func (c *IdentityClient) Logout(ctx context.Context, bearer string) error {
	identityURL := viper.GetString("identity.base_url")

	httpReq, err := http.NewRequestWithContext(ctx, "POST", identityURL+"/logout", nil)
	if err != nil {
		return errors.Wrap(err, "failed to create HTTP request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return errors.Wrap(err, "failed to send HTTP request")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return errors.Errorf("identity provider returned non-200 status: %d", resp.StatusCode)
	}
	return nil
}
