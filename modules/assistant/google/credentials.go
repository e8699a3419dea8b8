package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
)

// storedCredentials matches the JSON layout written by google-oauthlib-tool:
// a client identity plus a long-lived refresh token.
type storedCredentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
	TokenURI     string `json:"token_uri"`
	Scopes       []string
}

const defaultTokenURI = "https://oauth2.googleapis.com/token"

// loadTokenSource reads the credentials file and returns an auto-refreshing
// token source. Access tokens are minted lazily on first use and cached
// until expiry.
func loadTokenSource(ctx context.Context, path string) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("google: read credentials: %w", err)
	}

	var creds storedCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("google: parse credentials: %w", err)
	}
	if creds.ClientID == "" || creds.ClientSecret == "" || creds.RefreshToken == "" {
		return nil, fmt.Errorf("google: credentials file %s is missing client_id, client_secret or refresh_token", path)
	}
	if creds.TokenURI == "" {
		creds.TokenURI = defaultTokenURI
	}

	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL: creds.TokenURI,
		},
	}

	token := &oauth2.Token{RefreshToken: creds.RefreshToken}
	return conf.TokenSource(ctx, token), nil
}
