// Package credential supplies bearer tokens for the build and analytics
// backends.
package credential

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"pipeline-agent/src/provider"
)

// Audiences requested by the adapters.
const (
	AzdoAudience  = "499b84ac-1321-427f-aa17-267ca6975798/.default"
	KustoAudience = "https://kusto.kusto.windows.net/.default"
)

// DefaultAuthority is the Microsoft identity platform host.
const DefaultAuthority = "https://login.microsoftonline.com"

// TokenProvider returns a bearer token for the given audience (scope).
type TokenProvider interface {
	Token(ctx context.Context, audience string) (string, error)
}

// Static returns the same token for every audience.
type Static struct {
	source oauth2.TokenSource
}

// NewStatic wraps a pre-acquired bearer token.
func NewStatic(token string) *Static {
	return &Static{source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})}
}

func (s *Static) Token(ctx context.Context, audience string) (string, error) {
	tok, err := s.source.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %w", provider.ErrAuthFailed, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: static token is empty", provider.ErrAuthFailed)
	}
	return tok.AccessToken, nil
}

// ClientCredentials exchanges an app registration secret for a token.
type ClientCredentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	Authority    string
	HTTPClient   *http.Client
}

func (c *ClientCredentials) tokenURL() string {
	authority := c.Authority
	if authority == "" {
		authority = DefaultAuthority
	}
	return fmt.Sprintf("%s/%s/oauth2/v2.0/token", strings.TrimRight(authority, "/"), c.TenantID)
}

func (c *ClientCredentials) Token(ctx context.Context, audience string) (string, error) {
	cfg := clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.tokenURL(),
		Scopes:       []string{audience},
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	if c.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.HTTPClient)
	}

	tok, err := cfg.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: client credentials for %s: %w", provider.ErrAuthFailed, audience, err)
	}
	return tok.AccessToken, nil
}

// AzureCLI asks a signed-in `az` installation for a token.
type AzureCLI struct {
	// Path defaults to "az".
	Path string
}

func (a *AzureCLI) Token(ctx context.Context, audience string) (string, error) {
	path := a.Path
	if path == "" {
		path = "az"
	}

	out, err := exec.CommandContext(ctx, path, "account", "get-access-token", "--scope", audience, "--output", "json").Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("%w: az account get-access-token: %s", provider.ErrAuthFailed, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("%w: az account get-access-token: %w", provider.ErrAuthFailed, err)
	}
	return parseCLIToken(out)
}

func parseCLIToken(out []byte) (string, error) {
	if !gjson.ValidBytes(out) {
		return "", fmt.Errorf("%w: az returned invalid JSON", provider.ErrAuthFailed)
	}
	token := gjson.GetBytes(out, "accessToken").String()
	if token == "" {
		return "", fmt.Errorf("%w: az output has no accessToken", provider.ErrAuthFailed)
	}
	return token, nil
}

// Chain tries each provider in turn and returns the first token obtained.
type Chain []TokenProvider

func (c Chain) Token(ctx context.Context, audience string) (string, error) {
	var errs []error
	for _, p := range c {
		token, err := p.Token(ctx, audience)
		if err == nil {
			return token, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("%w: no credential providers configured", provider.ErrAuthFailed)
	}
	return "", errors.Join(errs...)
}

// Options selects which providers FromOptions assembles.
type Options struct {
	Token        string
	TenantID     string
	ClientID     string
	ClientSecret string
	Authority    string
}

// FromOptions returns a static provider when a token is set, client
// credentials when an app registration is set, and the Azure CLI otherwise.
func FromOptions(opts Options) TokenProvider {
	if opts.Token != "" {
		return NewStatic(opts.Token)
	}

	var chain Chain
	if opts.TenantID != "" && opts.ClientID != "" && opts.ClientSecret != "" {
		chain = append(chain, &ClientCredentials{
			TenantID:     opts.TenantID,
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Authority:    opts.Authority,
		})
	}
	return append(chain, &AzureCLI{})
}
