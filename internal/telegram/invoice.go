package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxResponseBytes caps how much of a Bot API reply is relayed back.
const maxResponseBytes = 64 << 10

// InvoiceRequest carries the web app's fields for createInvoiceLink. Prices is
// the JSON array of labeled prices exactly as the client built it.
type InvoiceRequest struct {
	Description string
	Payload     string
	Prices      string
}

// Response is the raw Bot API reply, relayed to the web app untouched.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

type InvoiceOptions struct {
	APIURL        string
	BotToken      string
	ProviderToken string
	Currency      string
	Title         string
	PhotoURL      string
	Timeout       time.Duration
}

// InvoiceClient calls the Bot API createInvoiceLink method. The bot library
// in use predates the method, so the call is made directly.
type InvoiceClient struct {
	opts   InvoiceOptions
	client *http.Client
}

func NewInvoiceClient(opts InvoiceOptions) *InvoiceClient {
	if opts.APIURL == "" {
		opts.APIURL = "https://api.telegram.org"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &InvoiceClient{
		opts: InvoiceOptions{
			APIURL:        strings.TrimRight(opts.APIURL, "/"),
			BotToken:      strings.TrimSpace(opts.BotToken),
			ProviderToken: strings.TrimSpace(opts.ProviderToken),
			Currency:      opts.Currency,
			Title:         opts.Title,
			PhotoURL:      opts.PhotoURL,
		},
		client: &http.Client{
			Timeout: opts.Timeout,
		},
	}
}

func (c *InvoiceClient) CreateInvoiceLink(ctx context.Context, in InvoiceRequest) (*Response, error) {
	if c.opts.BotToken == "" || c.opts.ProviderToken == "" {
		return nil, fmt.Errorf("invoice client not configured")
	}

	payload := map[string]any{
		"title":             c.opts.Title,
		"description":       in.Description,
		"payload":           in.Payload,
		"provider_token":    c.opts.ProviderToken,
		"currency":          c.opts.Currency,
		"prices":            json.RawMessage(in.Prices),
		"need_name":         true,
		"need_phone_number": true,
	}
	if c.opts.PhotoURL != "" {
		payload["photo_url"] = c.opts.PhotoURL
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode invoice request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/createInvoiceLink", c.opts.APIURL, c.opts.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram createInvoiceLink: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read createInvoiceLink response: %w", err)
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        respBody,
	}, nil
}
