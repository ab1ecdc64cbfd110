package insight

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/v3/option"

	"github.com/yatrik/fleetml/internal/models"
)

func sampleReport() models.ModelReport {
	return models.ModelReport{
		ModelName: "dt_delay_prediction",
		Metrics: models.ReportMetrics{
			ModelType:         "Decision Tree Classifier",
			Description:       "Trip delay prediction",
			Records:           240,
			TrainMetrics:      models.MetricSet{"Accuracy": 0.91},
			TestMetrics:       models.MetricSet{"Accuracy": 0.82, "F1_Score": 0.7},
			FeatureImportance: map[string]float64{"route_length": 0.6},
			ClassDistribution: map[string]int{"on_time": 180, "delayed": 60},
		},
	}
}

func TestPrompt(t *testing.T) {
	p := Prompt(sampleReport())
	for _, want := range []string{
		"Decision Tree Classifier",
		"Rows: 240",
		"Test metrics: Accuracy=0.8200 F1_Score=0.7000",
		"Class distribution: delayed=60 on_time=180",
		"route_length=0.6000",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestNewGenerator_RequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewGenerator(); err == nil {
		t.Error("expected error without OPENAI_API_KEY")
	}
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  Delays are predictable.  "}}]}`)
	}))
	defer srv.Close()

	t.Setenv("OPENAI_API_KEY", "test-key")
	g, err := NewGenerator(option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	got, err := g.Generate(context.Background(), sampleReport())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "Delays are predictable." {
		t.Errorf("Generate = %q", got)
	}
}
