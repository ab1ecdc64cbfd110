// Package insight writes a short narrative summary of a model report using
// OpenAI's chat API.
package insight

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/yatrik/fleetml/internal/models"
)

const systemPrompt = `You are an analyst for a public bus operator. Given the evaluation of one
machine learning model trained on the fleet's own data, write two or three plain sentences for
depot managers: what the model predicts, how well it did on held-out data, and one practical
caution. Do not invent numbers that are not in the input.`

// Generator produces report insights.
type Generator struct {
	client openai.Client
	model  string
}

// NewGenerator creates a generator authenticated by OPENAI_API_KEY.
func NewGenerator(opts ...option.RequestOption) (*Generator, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &Generator{
		client: client,
		model:  openai.ChatModelGPT4oMini,
	}, nil
}

// Generate returns a short narrative for the report.
func (g *Generator) Generate(ctx context.Context, r models.ModelReport) (string, error) {
	log.Printf("insight: generating for %s", r.ModelName)

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(Prompt(r)),
		},
		MaxCompletionTokens: openai.Int(200),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion returned")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("empty completion returned")
	}
	return text, nil
}

// Prompt renders the parts of a report the narrative is based on.
func Prompt(r models.ModelReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Model: %s (%s)\n", r.Metrics.ModelType, r.ModelName)
	fmt.Fprintf(&b, "Task: %s\n", r.Metrics.Description)
	fmt.Fprintf(&b, "Rows: %d\n", r.Metrics.Records)
	writeMetrics(&b, "Train metrics", r.Metrics.TrainMetrics)
	writeMetrics(&b, "Test metrics", r.Metrics.TestMetrics)
	if len(r.Metrics.FeatureImportance) > 0 {
		writeMetrics(&b, "Feature importance", r.Metrics.FeatureImportance)
	}
	if len(r.Metrics.ClassDistribution) > 0 {
		keys := make([]string, 0, len(r.Metrics.ClassDistribution))
		for k := range r.Metrics.ClassDistribution {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("Class distribution:")
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%d", k, r.Metrics.ClassDistribution[k])
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeMetrics(b *strings.Builder, title string, m map[string]float64) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b.WriteString(title + ":")
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%.4f", k, m[k])
	}
	b.WriteString("\n")
}
