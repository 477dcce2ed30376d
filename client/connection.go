package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-bankconnect/core"
	"github.com/goliatone/go-bankconnect/transport"
)

// Connection is an application-scoped client. It speaks the OAuth surface of
// the API with Basic authentication built from the client credentials and
// form-urlencoded bodies. One request at a time.
type Connection struct {
	clientID     string
	clientSecret string
	redirectURI  string
	config       core.Config
	channel      core.Channel
	logger       core.Logger
}

// TokenCredentials is the payload of a successful token exchange. Expires is
// the access token lifetime in seconds.
type TokenCredentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Expires      int    `json:"expires,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

type CreateUserOptions struct {
	Language       string
	SendNewsletter bool
}

type CreateUserResult struct {
	RecoveryPassword string `json:"recovery_password"`
}

func NewConnection(clientID string, clientSecret string, opts ...Option) (*Connection, error) {
	clientID = strings.TrimSpace(clientID)
	clientSecret = strings.TrimSpace(clientSecret)
	if clientID == "" || clientSecret == "" {
		return nil, errInvalidArgument("client: connection requires client id and secret")
	}

	s := buildSettings(opts)
	if err := s.resolve("Connection", "bankconnect.connection"); err != nil {
		return nil, err
	}

	return &Connection{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  strings.TrimSpace(s.redirectURI),
		config:       s.config,
		channel:      s.channel,
		logger:       s.logger,
	}, nil
}

// QueryAPI sends one POST to the OAuth surface. The form is url-encoded when
// present; the body is empty otherwise.
func (c *Connection) QueryAPI(ctx context.Context, path string, form url.Values) (json.RawMessage, error) {
	if c == nil || c.channel == nil {
		return nil, errInvalidArgument("client: connection is not initialized")
	}

	var body []byte
	headers := map[string]string{
		"Authorization": "Basic " + c.basicCredentials(),
		"Content-Type":  "application/x-www-form-urlencoded",
	}
	if len(form) > 0 {
		body = []byte(form.Encode())
	}

	return transport.Execute(ctx, c.channel, core.TransportRequest{
		Method:  "POST",
		Path:    path,
		Headers: headers,
		Body:    body,
	})
}

// LoginURL builds the browser URL that starts the login process. State is
// echoed back to the redirect target and should be used to authenticate that
// call. No network traffic.
func (c *Connection) LoginURL(state string, scope string) string {
	if c == nil {
		return ""
	}
	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", c.clientID)
	params.Set("state", state)
	if scope = strings.TrimSpace(scope); scope != "" {
		params.Set("scope", scope)
	}
	if c.redirectURI != "" {
		params.Set("redirect_uri", c.redirectURI)
	}
	return c.config.BaseURL() + "/auth/code?" + params.Encode()
}

// ObtainAccessToken exchanges an authorization code or a refresh token for
// access credentials. Authorization codes start with "O" and refresh tokens
// with "R"; anything else is sent as-is and rejected by the server.
func (c *Connection) ObtainAccessToken(ctx context.Context, token string, scope string) (*TokenCredentials, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errInvalidArgument("client: token is required")
	}

	form := url.Values{}
	switch token[0] {
	case 'O':
		form.Set("grant_type", "authorization_code")
		form.Set("code", token)
		if c != nil && c.redirectURI != "" {
			form.Set("redirect_uri", c.redirectURI)
		}
	case 'R':
		form.Set("grant_type", "refresh_token")
		form.Set("refresh_token", token)
		if scope = strings.TrimSpace(scope); scope != "" {
			form.Set("scope", scope)
		}
	}

	raw, err := c.QueryAPI(ctx, "/auth/token", form)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var credentials TokenCredentials
	if err := json.Unmarshal(raw, &credentials); err != nil {
		return nil, errInvalidArgument("client: decode token response: " + err.Error())
	}
	return &credentials, nil
}

// RevokeToken invalidates an access or refresh token with immediate effect.
func (c *Connection) RevokeToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errInvalidArgument("client: token is required")
	}
	params := url.Values{}
	params.Set("token", token)
	_, err := c.QueryAPI(ctx, "/auth/revoke?"+params.Encode(), nil)
	return err
}

// CreateUser registers a new account and returns its recovery password.
func (c *Connection) CreateUser(ctx context.Context, name string, email string, password string, opts CreateUserOptions) (*CreateUserResult, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, errInvalidArgument("client: name, email, and password are required")
	}

	form := url.Values{}
	form.Set("name", name)
	form.Set("email", email)
	form.Set("password", password)
	if language := strings.TrimSpace(opts.Language); language != "" {
		form.Set("language", language)
	}
	if opts.SendNewsletter {
		form.Set("send_newsletter", strconv.FormatBool(true))
	}

	raw, err := c.QueryAPI(ctx, "/auth/user", form)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var result CreateUserResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, errInvalidArgument("client: decode create user response: " + err.Error())
	}
	return &result, nil
}

func (c *Connection) basicCredentials() string {
	return base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
}
