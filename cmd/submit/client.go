package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Textos exibidos ao usuário, por tipo de resposta do gateway.
const (
	msgModerationDefault = "Message violates content guidelines"
	msgRateLimitDefault  = "Rate limit exceeded. Anonymous users can post 5 messages per hour."
	msgDatabaseDefault   = "Failed to save message to database."
	msgConfiguration     = "Service configuration error. Please try again later."
	msgServer            = "Server error occurred. Please try again."
	msgThrottled         = "Too many requests. Please slow down."
	msgBusy              = "Server is busy. Please try again."
	msgGenericFailure    = "Failed to submit message. Please try again."
	msgUnexpected        = "Unexpected response format from server. Please try again."
	msgNetwork           = "Network error. Please check your connection and try again."
	msgTimeout           = "Request timed out. Please try again."
)

type submission struct {
	Message      string  `json:"message"`
	AuthorName   *string `json:"author_name"`
	AuthorAvatar *string `json:"author_avatar"`
	IsAnonymous  bool    `json:"is_anonymous"`
	IPAddress    *string `json:"ip_address"`
	UserID       *string `json:"user_id"`
}

type entry struct {
	ID         string    `json:"id"`
	Message    string    `json:"message"`
	AuthorName *string   `json:"author_name"`
	CreatedAt  time.Time `json:"created_at"`
}

type gatewayResponse struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Type    string          `json:"type"`
}

// result é o que a CLI mostra: OK com a entrada criada, ou uma mensagem de erro.
type result struct {
	OK      bool
	Entry   *entry
	Entries []entry
	Message string
}

type client struct {
	baseURL string
	token   string
	http    *http.Client
}

func (c *client) submit(ctx context.Context, s submission) result {
	body, err := json.Marshal(s)
	if err != nil {
		return result{Message: fmt.Sprintf("Error: %v", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/entries", bytes.NewReader(body))
	if err != nil {
		return result{Message: fmt.Sprintf("Error: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transportResult(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return transportResult(err)
	}
	return renderSubmission(raw)
}

func (c *client) list(ctx context.Context, limit int) result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/entries?limit=%d", c.baseURL, limit), nil)
	if err != nil {
		return result{Message: fmt.Sprintf("Error: %v", err)}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return transportResult(err)
	}
	defer resp.Body.Close()

	var gr gatewayResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&gr); err != nil || gr.Success == nil {
		return result{Message: msgUnexpected}
	}
	if !*gr.Success {
		return result{Message: failureMessage(gr)}
	}
	var entries []entry
	if err := json.Unmarshal(gr.Data, &entries); err != nil {
		return result{Message: msgUnexpected}
	}
	return result{OK: true, Entries: entries}
}

// transportResult classifica falhas anteriores a qualquer corpo de resposta.
func transportResult(err error) result {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return result{Message: msgTimeout}
	}
	return result{Message: msgNetwork}
}

func renderSubmission(raw []byte) result {
	var gr gatewayResponse
	if err := json.Unmarshal(raw, &gr); err != nil || gr.Success == nil {
		return result{Message: msgUnexpected}
	}
	if !*gr.Success {
		return result{Message: failureMessage(gr)}
	}

	var e entry
	if err := json.Unmarshal(gr.Data, &e); err != nil || e.ID == "" {
		return result{Message: msgUnexpected}
	}
	return result{OK: true, Entry: &e}
}

func failureMessage(gr gatewayResponse) string {
	switch gr.Type {
	case "moderation_failed":
		return orDefault(gr.Error, msgModerationDefault)
	case "rate_limit_exceeded":
		return orDefault(gr.Error, msgRateLimitDefault)
	case "database_error":
		return orDefault(gr.Error, msgDatabaseDefault)
	case "configuration_error":
		return msgConfiguration
	case "server_error":
		return msgServer
	case "throttled":
		return msgThrottled
	case "server_busy":
		return msgBusy
	default:
		return orDefault(gr.Error, msgGenericFailure)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
