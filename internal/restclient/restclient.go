// Package restclient is a small fasthttp-backed Discord REST client: just
// enough surface for the bridge to resolve the gateway URL and post
// channel messages. It does not attempt to be a general-purpose Discord
// REST binding.
package restclient

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
)

const apiBase = "https://discord.com/api/v10"

// Client is a thin, token-bound wrapper over a fasthttp.Client.
type Client struct {
	token string
	http  *fasthttp.Client
}

// New returns a Client authenticated as a bot with token.
func New(token string) *Client {
	return &Client{
		token: token,
		http: &fasthttp.Client{
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

type gatewayResponse struct {
	URL string `json:"url"`
}

// GatewayURL fetches the recommended gateway websocket URL from
// GET /gateway/bot.
func (c *Client) GatewayURL() (string, error) {
	req := fasthttp.AcquireRequest()
	res := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(res)

	req.SetRequestURI(apiBase + "/gateway/bot")
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Authorization", "Bot "+c.token)

	if err := c.http.Do(req, res); err != nil {
		return "", fmt.Errorf("restclient: gateway url: %w", err)
	}
	if res.StatusCode() != fasthttp.StatusOK {
		return "", fmt.Errorf("restclient: gateway url: unexpected status %d", res.StatusCode())
	}

	var body gatewayResponse
	if err := json.Unmarshal(res.Body(), &body); err != nil {
		return "", fmt.Errorf("restclient: gateway url: %w", err)
	}
	if body.URL == "" {
		return "", fmt.Errorf("restclient: gateway url: empty url in response")
	}
	return body.URL, nil
}

type sendMessageBody struct {
	Content string `json:"content"`
}

// SendMessage posts a plain-text message to a channel via
// POST /channels/{id}/messages.
func (c *Client) SendMessage(channelID, content string) error {
	payload, err := json.Marshal(sendMessageBody{Content: content})
	if err != nil {
		return fmt.Errorf("restclient: send message: %w", err)
	}

	req := fasthttp.AcquireRequest()
	res := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(res)

	req.SetRequestURI(fmt.Sprintf("%s/channels/%s/messages", apiBase, channelID))
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	if err := c.http.Do(req, res); err != nil {
		return fmt.Errorf("restclient: send message: %w", err)
	}
	if res.StatusCode() >= 300 {
		return fmt.Errorf("restclient: send message: unexpected status %d: %s", res.StatusCode(), res.Body())
	}
	return nil
}
