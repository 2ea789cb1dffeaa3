package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"vehicle-data-service/pkg/logger"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// MOTOAuth handles client-credentials authentication with the MOT history API
type MOTOAuth struct {
	config *clientcredentials.Config
	logger logger.Logger
}

// NewMOTOAuth creates a new MOT OAuth handler
func NewMOTOAuth(clientID, clientSecret, tokenURL, scope string, logger logger.Logger) *MOTOAuth {
	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	if scope != "" {
		config.Scopes = []string{scope}
	}

	return &MOTOAuth{
		config: config,
		logger: logger,
	}
}

// GetTokenSource returns a caching token source that refreshes on expiry
func (o *MOTOAuth) GetTokenSource(ctx context.Context) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, o.config.TokenSource(ctx))
}

// HTTPClient returns a client that attaches a bearer token to every request
func (o *MOTOAuth) HTTPClient(ctx context.Context) *http.Client {
	return oauth2.NewClient(ctx, o.GetTokenSource(ctx))
}

// FetchToken requests a token directly, for diagnostics
func (o *MOTOAuth) FetchToken(ctx context.Context) (*oauth2.Token, error) {
	token, err := o.config.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch MOT token: %w", err)
	}
	o.logger.Info("MOT token obtained", "expiry", token.Expiry)
	return token, nil
}

// TokenToJSON converts a token to JSON
func (o *MOTOAuth) TokenToJSON(token *oauth2.Token) (string, error) {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
