// Package oidc implements the authorization-code login against the
// configured OpenID Connect issuer.
package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// Config describes the client registration at the issuer.
type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Claims is the verified identity of a finished login.
type Claims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Provider talks to the issuer. Discovery runs on first use and is cached
// until it succeeds.
type Provider struct {
	cfg    Config
	client *http.Client

	mu         sync.Mutex
	issuer     string
	provider   *gooidc.Provider
	oauth      *oauth2.Config
	verifier   *gooidc.IDTokenVerifier
	endSession string
}

func NewProvider(cfg Config, client *http.Client) *Provider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	cfg.IssuerURL = strings.TrimSpace(cfg.IssuerURL)
	return &Provider{cfg: cfg, client: client}
}

// Configured reports whether an issuer and client id are set.
func (p *Provider) Configured() bool {
	return p != nil && p.cfg.IssuerURL != "" && p.cfg.ClientID != ""
}

// issuerCandidates tries the configured URL first. Issuers such as Auth0
// publish their identifier with a trailing slash that operators often leave out.
func (p *Provider) issuerCandidates() []string {
	issuer := p.cfg.IssuerURL
	if strings.HasSuffix(issuer, "/") {
		return []string{issuer, strings.TrimRight(issuer, "/")}
	}
	return []string{issuer, issuer + "/"}
}

func (p *Provider) discover(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.provider != nil {
		return nil
	}
	if !p.Configured() {
		return errors.New("oidc: issuer or client id missing")
	}

	ctx = gooidc.ClientContext(ctx, p.client)
	var firstErr error
	for _, issuer := range p.issuerCandidates() {
		provider, err := gooidc.NewProvider(ctx, issuer)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		var extra struct {
			EndSession string `json:"end_session_endpoint"`
		}
		_ = provider.Claims(&extra)

		p.issuer = issuer
		p.provider = provider
		p.endSession = extra.EndSession
		p.verifier = provider.Verifier(&gooidc.Config{ClientID: p.cfg.ClientID})
		p.oauth = &oauth2.Config{
			ClientID:     p.cfg.ClientID,
			ClientSecret: p.cfg.ClientSecret,
			RedirectURL:  p.cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{gooidc.ScopeOpenID, "email", "profile"},
		}
		return nil
	}
	return fmt.Errorf("discovery: %w", firstErr)
}

// AuthCodeURL returns the issuer URL the browser is sent to for login. The
// nonce comes back inside the ID token.
func (p *Provider) AuthCodeURL(ctx context.Context, state, nonce string) (string, error) {
	if err := p.discover(ctx); err != nil {
		return "", err
	}
	return p.oauth.AuthCodeURL(state, gooidc.Nonce(nonce)), nil
}

// Exchange trades the authorization code for tokens and returns the claims
// of the verified ID token. The email is read from userinfo when the ID
// token leaves it out.
func (p *Provider) Exchange(ctx context.Context, code, nonce string) (*Claims, error) {
	if err := p.discover(ctx); err != nil {
		return nil, err
	}
	ctx = gooidc.ClientContext(ctx, p.client)

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("token exchange: no id_token in response")
	}
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	if nonce == "" || idToken.Nonce != nonce {
		return nil, errors.New("verify id token: nonce mismatch")
	}

	var claims Claims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("id token claims: %w", err)
	}
	if claims.Email == "" {
		info, err := p.provider.UserInfo(ctx, oauth2.StaticTokenSource(token))
		if err != nil {
			return nil, fmt.Errorf("userinfo: %w", err)
		}
		if info.Subject != idToken.Subject {
			return nil, errors.New("userinfo: subject does not match id token")
		}
		if err := info.Claims(&claims); err != nil {
			return nil, fmt.Errorf("userinfo claims: %w", err)
		}
	}
	claims.Subject = idToken.Subject
	if claims.Email == "" {
		return nil, errors.New("login: provider reported no email")
	}
	return &claims, nil
}

// LogoutURL returns where to send the browser to end the provider session.
// Issuers without an end_session_endpoint get the Auth0 logout path.
func (p *Provider) LogoutURL(ctx context.Context, returnTo string) string {
	issuer := p.cfg.IssuerURL
	if err := p.discover(ctx); err == nil {
		p.mu.Lock()
		issuer = p.issuer
		endSession := p.endSession
		p.mu.Unlock()
		if endSession != "" {
			params := url.Values{
				"client_id":                {p.cfg.ClientID},
				"post_logout_redirect_uri": {returnTo},
			}
			return endSession + "?" + params.Encode()
		}
	}
	params := url.Values{
		"client_id": {p.cfg.ClientID},
		"returnTo":  {returnTo},
	}
	return strings.TrimRight(issuer, "/") + "/v2/logout?" + params.Encode()
}
