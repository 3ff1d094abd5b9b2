package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"antigravity-gateway/internal/credential"
	apperrors "antigravity-gateway/internal/errors"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// codeAssistEndpoint is where project resolution's load-assist fallback is
// attempted, mirroring the upstream Gemini client's base URL.
const codeAssistEndpoint = "https://cloudcode-pa.googleapis.com/v1internal:loadCodeAssist"

// Client is the narrow OAuth surface the Credential Pool depends on.
// It wraps Manager's flows but speaks in credential.Credential terms and
// carries the spec's terminal-vs-transient refresh distinction.
type Client struct {
	manager    *Manager
	httpClient *http.Client
}

// NewClient builds a Client against the fixed first-party client id/secret
// the upstream expects (intentional: not user-configurable per credential).
func NewClient(clientID, clientSecret, redirectURI string, opts ...ManagerOption) *Client {
	return &Client{
		manager:    NewManager(clientID, clientSecret, redirectURI, opts...),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// BuildAuthUrl returns a Google OAuth2 consent URL carrying state and the
// fixed scope set, requesting offline access.
func (c *Client) BuildAuthUrl(redirectURI, state string) (string, error) {
	if redirectURI != "" {
		c.manager.redirectURI = redirectURI
	}
	authURL, _, err := c.manager.StartAuthFlow("")
	if err != nil {
		return "", apperrors.AuthExchangeFailed("build auth url: " + err.Error())
	}
	if state != "" {
		u, err := url.Parse(authURL)
		if err == nil {
			q := u.Query()
			q.Set("state", state)
			u.RawQuery = q.Encode()
			authURL = u.String()
		}
	}
	return authURL, nil
}

// ExchangeCode trades an authorization code for tokens. Upstream
// failures wrap as AuthExchangeFailed.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*credential.Credential, error) {
	data := url.Values{
		"client_id":     {c.manager.clientID},
		"client_secret": {c.manager.clientSecret},
		"code":          {code},
		"redirect_uri":  {firstNonEmpty(redirectURI, c.manager.redirectURI)},
		"grant_type":    {"authorization_code"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.manager.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, apperrors.AuthExchangeFailed("build exchange request: " + err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.AuthExchangeFailed("exchange code: " + err.Error())
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.AuthExchangeFailed(fmt.Sprintf("upstream exchange failed (%d): %s", resp.StatusCode, string(body)))
	}

	var tok TokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, apperrors.AuthExchangeFailed("decode token response: " + err.Error())
	}

	now := time.Now()
	return &credential.Credential{
		RefreshToken: tok.RefreshToken,
		AccessToken:  tok.AccessToken,
		ExpiresIn:    int64(tok.ExpiresIn),
		IssuedAt:     now.UnixMilli(),
		Enabled:      true,
		CreatedAt:    now,
	}, nil
}

// RefreshResult carries Refresh's outcome plus whether the failure is
// terminal for the credential (caller should disable it) or transient.
type RefreshResult struct {
	Credential *credential.Credential
	Terminal   bool
}

// Refresh exchanges the credential's refresh_token for a new access token
//. Status 400/403 from upstream is terminal; anything else is
// transient and safe to retry with the next candidate.
func (c *Client) Refresh(ctx context.Context, cred *credential.Credential) (*credential.Credential, error) {
	if cred == nil || cred.RefreshToken == "" {
		return nil, apperrors.AuthInvalid("credential has no refresh_token", true)
	}
	data := url.Values{
		"client_id":     {c.manager.clientID},
		"client_secret": {c.manager.clientSecret},
		"refresh_token": {cred.RefreshToken},
		"grant_type":    {"refresh_token"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.manager.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, apperrors.UpstreamTransient("build refresh request: " + err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.UpstreamTransient("refresh request: " + err.Error())
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusForbidden {
		return nil, apperrors.UpstreamTerminalForCredential(fmt.Sprintf("refresh rejected (%d): %s", resp.StatusCode, string(body)))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.UpstreamTransient(fmt.Sprintf("refresh failed (%d): %s", resp.StatusCode, string(body)))
	}

	var tok TokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, apperrors.UpstreamTransient("decode refresh response: " + err.Error())
	}

	out := cred.Clone()
	out.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		out.RefreshToken = tok.RefreshToken
	}
	if tok.ExpiresIn > 0 {
		out.ExpiresIn = int64(tok.ExpiresIn)
	}
	out.IssuedAt = time.Now().UnixMilli()
	return out, nil
}

// ResolveProjectId resolves the project id for a freshly acquired access
// token: Resource-Manager list first, then the Code Assist "load-assist"
// lookup, then (if allowRandom) a UUID-derived synthetic id.
func (c *Client) ResolveProjectId(ctx context.Context, accessToken string, allowRandom bool) (string, error) {
	if projects, err := c.manager.GetUserProjects(ctx, accessToken); err == nil {
		for _, p := range projects {
			if p.ProjectID != "" {
				return p.ProjectID, nil
			}
		}
	} else {
		log.WithError(err).Debug("resource-manager project lookup failed, trying load-assist")
	}

	if projectID, err := c.loadAssistProjectID(ctx, accessToken); err == nil && projectID != "" {
		return projectID, nil
	}

	if allowRandom {
		return "synthetic-" + uuid.New().String(), nil
	}
	return "", apperrors.ProjectIDMissing("could not resolve project_id via resource-manager or load-assist")
}

func (c *Client) loadAssistProjectID(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, codeAssistEndpoint, strings.NewReader("{}"))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("load-assist status %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		CloudaicompanionProject string `json:"cloudaicompanionProject"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.CloudaicompanionProject, nil
}

// FetchUserEmail is best-effort; failure is non-fatal.
func (c *Client) FetchUserEmail(ctx context.Context, accessToken string) string {
	email, err := c.manager.GetUserEmail(ctx, accessToken)
	if err != nil {
		log.WithError(err).Debug("fetch user email failed, continuing without it")
		return ""
	}
	return email
}
