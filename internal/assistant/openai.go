package assistant

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// OpenAI talks to an OpenAI-compatible API for embeddings and chat
// completions.
type OpenAI struct {
	baseURL        string
	key            string
	embeddingModel string
	chatModel      string
	client         *http.Client
}

func NewOpenAI(baseURL, key, embeddingModel, chatModel string, timeout time.Duration) *OpenAI {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAI{
		baseURL:        strings.TrimRight(baseURL, "/"),
		key:            key,
		embeddingModel: embeddingModel,
		chatModel:      chatModel,
		client:         &http.Client{Timeout: timeout},
	}
}

func (o *OpenAI) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + o.key}
}

func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	raw, err := postJSON(ctx, o.client, "openai", o.baseURL+"/v1/embeddings", o.headers(), map[string]any{
		"model": o.embeddingModel,
		"input": text,
	})
	if err != nil {
		return nil, err
	}
	values := gjson.GetBytes(raw, "data.0.embedding").Array()
	if len(values) == 0 {
		return nil, fmt.Errorf("openai: embedding missing from response")
	}
	vec := make([]float32, len(values))
	for i, v := range values {
		vec[i] = float32(v.Float())
	}
	return vec, nil
}

func (o *OpenAI) Complete(ctx context.Context, messages []Message) (string, error) {
	raw, err := postJSON(ctx, o.client, "openai", o.baseURL+"/v1/chat/completions", o.headers(), map[string]any{
		"model":       o.chatModel,
		"messages":    messages,
		"temperature": 0.2,
	})
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(raw, "choices.0.message.content").String(), nil
}
