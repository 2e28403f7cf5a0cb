package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"guestbook-gateway/guestbook/domain"

	"github.com/tidwall/gjson"
)

const (
	DefaultModerationURL     = "https://api.openai.com/v1/moderations"
	DefaultModerationTimeout = 5 * time.Second

	maxModerationBody = 1 << 20
)

var errMalformedModeration = errors.New("malformed moderation response")

// ModerationClient implementa domain.Classifier sobre a API de moderação da OpenAI.
//
// Política: mensagem vazia ou longa demais é reprovada sem chamada de rede.
// Qualquer falha do upstream (status não-2xx, erro de rede, timeout, corpo
// malformado) aprova a mensagem (fail open) e gera log de diagnóstico.
type ModerationClient struct {
	apiKey     string
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

type ModerationOption func(*ModerationClient)

func WithModerationURL(u string) ModerationOption {
	return func(c *ModerationClient) {
		if u = strings.TrimSpace(u); u != "" {
			c.endpoint = u
		}
	}
}

func WithModerationTimeout(d time.Duration) ModerationOption {
	return func(c *ModerationClient) { c.timeout = d }
}

func WithModerationHTTPClient(hc *http.Client) ModerationOption {
	return func(c *ModerationClient) { c.httpClient = hc }
}

func WithModerationLogger(l *slog.Logger) ModerationOption {
	return func(c *ModerationClient) { c.logger = l }
}

func NewModerationClient(apiKey string, opts ...ModerationOption) *ModerationClient {
	c := &ModerationClient{
		apiKey:     apiKey,
		endpoint:   DefaultModerationURL,
		timeout:    DefaultModerationTimeout,
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify implementa domain.Classifier. Nunca devolve erro.
func (c *ModerationClient) Classify(ctx context.Context, text string) domain.Verdict {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.Deny("Message cannot be empty")
	}
	if utf8.RuneCountInString(trimmed) > domain.MaxMessageLength {
		return domain.Deny("Message is too long (max 500 characters)")
	}

	flagged, categories, err := c.moderate(ctx, trimmed)
	if err != nil {
		c.logger.WarnContext(ctx, "moderation upstream failed, allowing message", "error", err)
		return domain.Allow()
	}
	if !flagged {
		return domain.Allow()
	}

	reason := "Content violates guidelines"
	if len(categories) > 0 {
		reason += ": " + strings.Join(categories, ", ")
	}
	return domain.Deny(reason, categories...)
}

type moderationRequest struct {
	Input string `json:"input"`
}

func (c *ModerationClient) moderate(ctx context.Context, text string) (bool, []string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(moderationRequest{Input: text})
	if err != nil {
		return false, nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, nil, fmt.Errorf("call moderation api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxModerationBody))
		return false, nil, fmt.Errorf("moderation api status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxModerationBody))
	if err != nil {
		return false, nil, fmt.Errorf("read response: %w", err)
	}
	return parseModeration(raw)
}

// parseModeration lê results[0]; as categorias saem na ordem em que aparecem no corpo.
func parseModeration(raw []byte) (bool, []string, error) {
	if !gjson.ValidBytes(raw) {
		return false, nil, errMalformedModeration
	}

	result := gjson.GetBytes(raw, "results.0")
	if !result.IsObject() {
		return false, nil, fmt.Errorf("%w: no results", errMalformedModeration)
	}

	flagged := result.Get("flagged")
	if flagged.Type != gjson.True && flagged.Type != gjson.False {
		return false, nil, fmt.Errorf("%w: flagged is not a boolean", errMalformedModeration)
	}
	if !flagged.Bool() {
		return false, nil, nil
	}

	cats := result.Get("categories")
	if !cats.IsObject() {
		return false, nil, fmt.Errorf("%w: categories missing", errMalformedModeration)
	}

	var violated []string
	cats.ForEach(func(name, value gjson.Result) bool {
		if value.Type == gjson.True {
			violated = append(violated, name.String())
		}
		return true
	})
	return true, violated, nil
}
