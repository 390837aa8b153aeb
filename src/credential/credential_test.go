package credential

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline-agent/src/provider"
)

func TestStatic_Token(t *testing.T) {
	token, err := NewStatic("abc").Token(context.Background(), AzdoAudience)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	_, err = NewStatic("").Token(context.Background(), AzdoAudience)
	assert.ErrorIs(t, err, provider.ErrAuthFailed)
}

func TestClientCredentials_Token(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tenant-1/oauth2/v2.0/token" {
			http.NotFound(w, r)
			return
		}
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "app", r.PostForm.Get("client_id"))
		assert.Equal(t, "secret", r.PostForm.Get("client_secret"))
		assert.Equal(t, KustoAudience, r.PostForm.Get("scope"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"kusto-token","token_type":"Bearer","expires_in":3600}`))
	}))
	defer server.Close()

	cc := &ClientCredentials{
		TenantID:     "tenant-1",
		ClientID:     "app",
		ClientSecret: "secret",
		Authority:    server.URL,
		HTTPClient:   server.Client(),
	}

	token, err := cc.Token(context.Background(), KustoAudience)
	require.NoError(t, err)
	assert.Equal(t, "kusto-token", token)
}

func TestClientCredentials_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer server.Close()

	cc := &ClientCredentials{TenantID: "t", ClientID: "app", ClientSecret: "bad", Authority: server.URL}

	_, err := cc.Token(context.Background(), AzdoAudience)
	assert.ErrorIs(t, err, provider.ErrAuthFailed)
}

func TestParseCLIToken(t *testing.T) {
	token, err := parseCLIToken([]byte(`{"accessToken":"cli-token","expiresOn":"2026-01-01 00:00:00.000000","tokenType":"Bearer"}`))
	require.NoError(t, err)
	assert.Equal(t, "cli-token", token)

	_, err = parseCLIToken([]byte(`{"tokenType":"Bearer"}`))
	assert.ErrorIs(t, err, provider.ErrAuthFailed)

	_, err = parseCLIToken([]byte(`not json`))
	assert.ErrorIs(t, err, provider.ErrAuthFailed)
}

type fakeProvider struct {
	token string
	err   error
	calls int
}

func (f *fakeProvider) Token(ctx context.Context, audience string) (string, error) {
	f.calls++
	return f.token, f.err
}

func TestChain_Token(t *testing.T) {
	failing := &fakeProvider{err: errors.New("nope")}
	working := &fakeProvider{token: "second"}
	unused := &fakeProvider{token: "third"}

	token, err := Chain{failing, working, unused}.Token(context.Background(), AzdoAudience)
	require.NoError(t, err)
	assert.Equal(t, "second", token)
	assert.Equal(t, 0, unused.calls)

	_, err = Chain{}.Token(context.Background(), AzdoAudience)
	assert.ErrorIs(t, err, provider.ErrAuthFailed)
}

func TestFromOptions(t *testing.T) {
	assert.IsType(t, &Static{}, FromOptions(Options{Token: "x"}))

	chain, ok := FromOptions(Options{TenantID: "t", ClientID: "c", ClientSecret: "s"}).(Chain)
	require.True(t, ok)
	require.Len(t, chain, 2)
	assert.IsType(t, &ClientCredentials{}, chain[0])
	assert.IsType(t, &AzureCLI{}, chain[1])

	chain, ok = FromOptions(Options{}).(Chain)
	require.True(t, ok)
	assert.Len(t, chain, 1)
}
