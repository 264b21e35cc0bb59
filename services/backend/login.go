package backend

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

const tokenPath = "/token"

// tokenResponse mirrors the backend's OAuth2 token payload.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// ExchangeToken performs the form-encoded credential exchange against the
// token endpoint. It stands in for a real identity provider: the admin email
// travels in the `username` field and the placeholder secret in `password`.
//
// Unlike the JSON calls it never attaches a bearer header (it precedes having
// any credential) and it is never retried.
func (c *Client) ExchangeToken(ctx context.Context, email, secret string) (string, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", secret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Wrap(err, "building token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Detail: errorDetail(data, resp.StatusCode)}
	}

	var token tokenResponse
	if err = json.Unmarshal(data, &token); err != nil {
		return "", errors.Wrap(err, "decoding token response")
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return "", errors.New("token response is missing access_token")
	}
	return token.AccessToken, nil
}
