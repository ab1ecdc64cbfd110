package chart

import (
	"fmt"
	"image/color"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const noData = "No data to plot"

// Bar draws a horizontal bar per label, largest value at the top.
func Bar(title string, labels []string, values []float64) ([]byte, error) {
	if len(labels) == 0 {
		return Placeholder(title, noData)
	}
	type bar struct {
		label string
		value float64
	}
	bars := make([]bar, len(labels))
	for i := range labels {
		bars[i] = bar{labels[i], values[i]}
	}
	// Ascending, since category 0 sits at the bottom of the axis.
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].value < bars[j].value })

	vals := make(plotter.Values, len(bars))
	ticks := make([]plot.Tick, len(bars))
	annotations := plotter.XYLabels{XYs: make(plotter.XYs, len(bars)), Labels: make([]string, len(bars))}
	for i, b := range bars {
		vals[i] = b.value
		ticks[i] = plot.Tick{Value: float64(i), Label: b.label}
		annotations.XYs[i] = plotter.XY{X: b.value, Y: float64(i)}
		annotations.Labels[i] = formatValue(b.value)
	}

	p := newPlot(title, "", "")
	width := vg.Points(math.Min(24, 240/float64(len(bars))))
	bc, err := plotter.NewBarChart(vals, width)
	if err != nil {
		return nil, fmt.Errorf("bar chart: %w", err)
	}
	bc.Horizontal = true
	bc.Color = palette[0]
	bc.LineStyle.Width = 0
	p.Add(bc)

	lbl, err := plotter.NewLabels(annotations)
	if err != nil {
		return nil, fmt.Errorf("bar labels: %w", err)
	}
	lbl.Offset = vg.Point{X: vg.Points(4)}
	for i := range lbl.TextStyle {
		lbl.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(lbl)

	p.X.Min = math.Min(p.X.Min, 0)
	p.X.Max *= 1.15
	p.Y.Tick.Marker = plot.ConstantTicks(ticks)
	p.Y.Tick.Length = 0
	return encode(p)
}

// confusionGrid adapts a confusion matrix to plotter.GridXYZ. Grid row 0 is
// the bottom of the plot, so true-class rows are flipped to read top down.
type confusionGrid struct {
	counts [][]int
}

func (g confusionGrid) Dims() (c, r int) { return len(g.counts), len(g.counts) }
func (g confusionGrid) Z(c, r int) float64 {
	return float64(g.counts[len(g.counts)-1-r][c])
}
func (g confusionGrid) X(c int) float64 { return float64(c) }
func (g confusionGrid) Y(r int) float64 { return float64(r) }

// blues is a light-to-dark sequential palette.
type blues int

func (b blues) Colors() []color.Color {
	n := int(b)
	cols := make([]color.Color, n)
	for i := range cols {
		shade := 1 - float64(i)/float64(n-1)
		cols[i] = color.RGBA{
			R: uint8(8 + shade*(239-8)),
			G: uint8(81 + shade*(243-81)),
			B: uint8(156 + shade*(255-156)),
			A: 255,
		}
	}
	return cols
}

// Heatmap draws a labelled confusion matrix, rows are true classes and
// columns predicted classes.
func Heatmap(title string, labels []string, counts [][]int) ([]byte, error) {
	n := len(labels)
	if n == 0 {
		return Placeholder(title, noData)
	}
	maxCount := 1
	for _, row := range counts {
		for _, v := range row {
			maxCount = max(maxCount, v)
		}
	}

	grid := confusionGrid{counts: counts}
	h := plotter.NewHeatMap(grid, blues(32))
	h.Min, h.Max = 0, float64(maxCount)

	cells := plotter.XYLabels{}
	for c := 0; c < n; c++ {
		for r := 0; r < n; r++ {
			cells.XYs = append(cells.XYs, plotter.XY{X: float64(c), Y: float64(r)})
			cells.Labels = append(cells.Labels, strconv.Itoa(int(grid.Z(c, r))))
		}
	}
	lbl, err := plotter.NewLabels(cells)
	if err != nil {
		return nil, fmt.Errorf("heatmap labels: %w", err)
	}
	for i, xy := range cells.XYs {
		lbl.TextStyle[i].XAlign = draw.XCenter
		lbl.TextStyle[i].YAlign = draw.YCenter
		lbl.TextStyle[i].Color = ink
		if grid.Z(int(xy.X), int(xy.Y))/float64(maxCount) > 0.5 {
			lbl.TextStyle[i].Color = color.White
		}
	}

	xTicks := make([]plot.Tick, n)
	yTicks := make([]plot.Tick, n)
	for i, label := range labels {
		xTicks[i] = plot.Tick{Value: float64(i), Label: label}
		yTicks[i] = plot.Tick{Value: float64(n - 1 - i), Label: label}
	}

	p := newPlot(title, "Predicted", "Actual")
	p.Add(h, lbl)
	p.X.Tick.Marker = plot.ConstantTicks(xTicks)
	p.Y.Tick.Marker = plot.ConstantTicks(yTicks)
	p.X.Padding, p.Y.Padding = 0, 0
	return encode(p)
}

// Point is a scatter point; Class selects the palette colour.
type Point struct {
	X, Y  float64
	Class int
}

// Scatter plots points. With identity set, a y = x reference line is drawn,
// which suits predicted-versus-actual plots.
func Scatter(title, xLabel, yLabel string, points []Point, legend []string, identity bool) ([]byte, error) {
	if len(points) == 0 {
		return Placeholder(title, noData)
	}
	p := newPlot(title, xLabel, yLabel)

	byClass := map[int]plotter.XYs{}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, pt := range points {
		byClass[pt.Class] = append(byClass[pt.Class], plotter.XY{X: pt.X, Y: pt.Y})
		lo = math.Min(lo, math.Min(pt.X, pt.Y))
		hi = math.Max(hi, math.Max(pt.X, pt.Y))
	}

	if identity {
		ref, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
		if err != nil {
			return nil, fmt.Errorf("identity line: %w", err)
		}
		ref.Color = palette[3]
		ref.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(ref)
	}

	classes := make([]int, 0, len(byClass))
	for class := range byClass {
		classes = append(classes, class)
	}
	sort.Ints(classes)
	for _, class := range classes {
		s, err := plotter.NewScatter(byClass[class])
		if err != nil {
			return nil, fmt.Errorf("scatter: %w", err)
		}
		s.GlyphStyle = draw.GlyphStyle{
			Color:  palette[class%len(palette)],
			Radius: vg.Points(2.5),
			Shape:  draw.CircleGlyph{},
		}
		p.Add(s)
		if class >= 0 && class < len(legend) && legend[class] != "" {
			p.Legend.Add(legend[class], s)
		}
	}
	p.Legend.Top = true
	return encode(p)
}

// Series is one named line of a line chart.
type Series struct {
	Name   string
	Values []float64
}

// Lines plots each series against its index, starting at 1.
func Lines(title, xLabel, yLabel string, series []Series) ([]byte, error) {
	p := newPlot(title, xLabel, yLabel)
	drawn := 0
	for si, s := range series {
		if len(s.Values) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(s.Values))
		for i, v := range s.Values {
			xys[i] = plotter.XY{X: float64(i + 1), Y: v}
		}
		l, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("line %q: %w", s.Name, err)
		}
		l.Color = palette[si%len(palette)]
		l.Width = vg.Points(1.5)
		p.Add(l)
		if s.Name != "" {
			p.Legend.Add(s.Name, l)
		}
		drawn++
	}
	if drawn == 0 {
		return Placeholder(title, noData)
	}
	p.Legend.Top = true
	return encode(p)
}

func formatValue(v float64) string {
	switch {
	case v == 0:
		return "0"
	case math.Abs(v) >= 1000:
		return strconv.FormatFloat(v, 'f', 0, 64)
	case math.Abs(v) >= 10:
		return strconv.FormatFloat(v, 'f', 1, 64)
	default:
		return strconv.FormatFloat(v, 'f', 3, 64)
	}
}
