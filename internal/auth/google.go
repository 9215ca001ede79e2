package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const userinfoEndpoint = "https://openidconnect.googleapis.com/v1/userinfo"

var (
	// ErrProviderUnavailable indica provedor OAuth não configurado.
	ErrProviderUnavailable = errors.New("provedor google não configurado")
)

// GoogleIdentity é o que o provedor devolve após uma autenticação bem sucedida.
// O campo HostedDomain corresponde ao hint `hd` do Google Workspace.
type GoogleIdentity struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Picture      string `json:"picture"`
	HostedDomain string `json:"hd"`
}

// GoogleProvider encapsula o fluxo authorization-code do Google.
type GoogleProvider struct {
	cfg    *oauth2.Config
	client *http.Client
}

// NewGoogleProvider monta o provedor; devolve nil quando não configurado,
// permitindo subir a API sem OAuth em ambientes de desenvolvimento.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil
	}
	return &GoogleProvider{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

// LoginURL devolve a URL de consentimento para o state informado.
func (p *GoogleProvider) LoginURL(state string) string {
	return p.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange troca o code por tokens e busca a identidade no userinfo.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*GoogleIdentity, error) {
	token, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google exchange: %w", err)
	}

	client := p.client
	if client == nil {
		client = p.cfg.Client(ctx, token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userinfoEndpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google userinfo: status %d", resp.StatusCode)
	}

	var identity GoogleIdentity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, err
	}

	identity.Email = strings.ToLower(strings.TrimSpace(identity.Email))
	identity.HostedDomain = strings.ToLower(strings.TrimSpace(identity.HostedDomain))
	if identity.Email == "" {
		return nil, errors.New("google userinfo sem email")
	}

	return &identity, nil
}
