package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/smlier739/copytrip-backend-sub000/internal/domain"
	"github.com/smlier739/copytrip-backend-sub000/internal/repository/ports"
)

const (
	DefaultModel   = openai.GPT4oMini
	defaultTimeout = 90 * time.Second
	maxAttempts    = 2
)

var ErrEmptyCompletion = errors.New("openai: empty completion")

const systemPrompt = `Du er en norsk reiseplanlegger. Svar kun med ett JSON-objekt på formen
{"title": string, "description": string,
 "stops": [{"name": string, "day": number, "location": string, "description": string, "lat": number, "lng": number,
            "hotels": [{"name": string, "location": string, "price_per_night": number, "url": string}],
            "experiences": [{"name": string, "location": string, "description": string, "url": string}]}],
 "packing_list": [{"category": "Klær"|"Toalettsaker"|"Elektronikk"|"Annet", "items": [string]}]}
Bruk kun ekte steder fra episoden. Ikke finn på lenker; utelat "url" hvis du er usikker.`

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Generator produces canonical episode trips with the OpenAI chat completions API.
type Generator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	backoff time.Duration
}

var _ ports.TripGenerator = (*Generator)(nil)

func NewGenerator(cfg Config) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Generator{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		timeout: timeout,
		backoff: 2 * time.Second,
	}
}

func (g *Generator) GenerateEpisodeTrip(ctx context.Context, episode domain.Episode) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: episodePrompt(episode)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.4,
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		content, err := g.complete(ctx, req)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if ctx.Err() != nil || attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(g.backoff * time.Duration(attempt)):
		}
	}
	return "", fmt.Errorf("generate trip for episode %s: %w", episode.ID, lastErr)
}

func (g *Generator) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(attemptCtx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

func episodePrompt(episode domain.Episode) string {
	var b strings.Builder
	b.WriteString("Lag en reise basert på denne podkastepisoden.\n")
	if episode.Name != "" {
		fmt.Fprintf(&b, "Tittel: %s\n", episode.Name)
	}
	if episode.ExternalURL != "" {
		fmt.Fprintf(&b, "Lenke: %s\n", episode.ExternalURL)
	}
	if episode.Description != "" {
		fmt.Fprintf(&b, "Beskrivelse: %s\n", episode.Description)
	}
	return b.String()
}
