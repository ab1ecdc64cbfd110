package chart

import (
	"bytes"
	"image/png"
	"testing"
	"time"
)

func TestChartsProducePNG(t *testing.T) {
	tests := []struct {
		name   string
		render func() ([]byte, error)
	}{
		{"bar", func() ([]byte, error) {
			return Bar("Feature Importance", []string{"route_length", "shift_hours"}, []float64{0.7, 0.3})
		}},
		{"heatmap", func() ([]byte, error) {
			return Heatmap("Confusion Matrix", []string{"High", "Low"}, [][]int{{3, 1}, {0, 4}})
		}},
		{"scatter", func() ([]byte, error) {
			return Scatter("Predicted vs Actual", "Actual", "Predicted", []Point{{1, 1.2, 0}, {2, 1.9, 0}, {3, 3.3, 1}}, []string{"rows"}, true)
		}},
		{"lines", func() ([]byte, error) {
			return Lines("Loss", "Epoch", "MSE", []Series{{"Training Loss", []float64{0.4, 0.2, 0.1}}, {"Validation Loss", []float64{0.5, 0.3, 0.25}}})
		}},
		{"placeholder", func() ([]byte, error) { return Placeholder("Training", "Using fallback model") }},
		{"empty bar", func() ([]byte, error) { return Bar("Nothing", nil, nil) }},
		{"single point", func() ([]byte, error) { return Scatter("One", "x", "y", []Point{{1, 1, 0}}, nil, false) }},
		{"uniform confusion", func() ([]byte, error) {
			return Heatmap("Confusion Matrix", []string{"High", "Low", "Medium"}, [][]int{{2, 2, 2}, {2, 2, 2}, {2, 2, 2}})
		}},
		{"single class heatmap", func() ([]byte, error) { return Heatmap("Confusion Matrix", []string{"High"}, [][]int{{0}}) }},
		{"empty lines", func() ([]byte, error) { return Lines("Loss", "Epoch", "MSE", []Series{{"Training Loss", nil}}) }},
		{"classes with legend", func() ([]byte, error) {
			return Scatter("PCA", "PC1", "PC2", []Point{{0, 1, 0}, {1, 0, 1}, {-1, 0.5, 1}}, []string{"optimized", "needs_optimization"}, false)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.render()
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			img, err := png.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if b := img.Bounds(); b.Dx() != Width || b.Dy() != Height {
				t.Errorf("size = %v, want %dx%d", b, Width, Height)
			}
		})
	}
}

func TestDataURIRoundTrip(t *testing.T) {
	data, err := Placeholder("t", "m")
	if err != nil {
		t.Fatal(err)
	}
	uri := DataURI(data)
	got, err := DecodeDataURI(uri)
	if err != nil {
		t.Fatalf("DecodeDataURI: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("round trip changed bytes")
	}
	if _, err := DecodeDataURI("data:text/plain;base64,aGk="); err == nil {
		t.Error("expected error for non-png uri")
	}
}

func TestCache(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("dt_delay_prediction", "r1", []byte("png"))

	if _, ok := c.Get("dt_delay_prediction", "r1"); !ok {
		t.Error("expected hit")
	}
	if _, ok := c.Get("dt_delay_prediction", "r2"); ok {
		t.Error("expected miss for a newer report")
	}

	expired := NewCache(-time.Second)
	expired.Set("k", "r1", []byte("png"))
	if _, ok := expired.Get("k", "r1"); ok {
		t.Error("expected miss after expiry")
	}
}
