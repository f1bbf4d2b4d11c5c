package assistant

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Pinecone queries a Pinecone-compatible index. Passages are read from
// metadata.text of each match.
type Pinecone struct {
	host      string
	key       string
	namespace string
	client    *http.Client
}

func NewPinecone(host, key, namespace string, timeout time.Duration) *Pinecone {
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Pinecone{
		host:      strings.TrimRight(host, "/"),
		key:       key,
		namespace: namespace,
		client:    &http.Client{Timeout: timeout},
	}
}

func (p *Pinecone) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	body := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"includeMetadata": true,
	}
	if p.namespace != "" {
		body["namespace"] = p.namespace
	}
	raw, err := postJSON(ctx, p.client, "pinecone", p.host+"/query", map[string]string{"Api-Key": p.key}, body)
	if err != nil {
		return nil, err
	}
	results := gjson.GetBytes(raw, "matches").Array()
	matches := make([]Match, 0, len(results))
	for _, m := range results {
		matches = append(matches, Match{
			ID:    m.Get("id").String(),
			Score: m.Get("score").Float(),
			Text:  m.Get("metadata.text").String(),
		})
	}
	return matches, nil
}
