package sim

import (
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"

	pes "github.com/milosgajdos/go-pes"
)

// Grid evaluates the 1-D objective o on n equally spaced points spanning
// [xMin, xMax] and returns an n x 2 matrix with the grid points in the
// first column and the objective values in the second.
// It returns error if o is not one dimensional, n is smaller than 2 or the
// interval is not strictly ordered.
func Grid(o pes.Objective, xMin, xMax float64, n int) (*mat.Dense, error) {
	if o == nil || o.Dims() != 1 {
		return nil, fmt.Errorf("invalid objective supplied: %v", o)
	}

	if n < 2 {
		return nil, fmt.Errorf("invalid grid size: %d", n)
	}

	if xMin >= xMax {
		return nil, fmt.Errorf("invalid interval: %v >= %v", xMin, xMax)
	}

	g := mat.NewDense(n, 2, nil)
	step := (xMax - xMin) / float64(n-1)
	for i := 0; i < n; i++ {
		x := xMin + float64(i)*step
		g.Set(i, 0, x)
		g.Set(i, 1, o.Func([]float64{x}))
	}

	return g, nil
}

// NewHistPlot creates new histogram plot of the max-value samples: every
// entry of the samples matrix is pooled into a single histogram.
// It returns error if the plot fails to be created. This can be due to either of the following conditions:
// * the supplied samples matrix is nil or empty
// * gonum plot fails to be created
func NewHistPlot(samples *mat.Dense) (*plot.Plot, error) {
	if samples == nil || samples.IsEmpty() {
		return nil, fmt.Errorf("invalid data supplied")
	}

	rows, cols := samples.Dims()
	vals := make(plotter.Values, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			vals = append(vals, samples.At(i, j))
		}
	}

	p := plot.New()

	p.Title.Text = "Sampled maxima"
	p.X.Label.Text = "max value"
	p.Y.Label.Text = "count"

	h, err := plotter.NewHist(vals, 16)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram: %v", err)
	}
	h.FillColor = color.RGBA{R: 255, B: 128, A: 255}

	p.Add(h)

	return p, nil
}

// NewFuncPlot creates new plot of posterior function draws: every curve is
// an n x 2 matrix as returned by Grid.
// It returns error if the plot fails to be created. This can be due to either of the following conditions:
// * no curves are supplied or either of them is nil
// * either of the supplied curves does not have exactly 2 columns
// * gonum plot fails to be created
func NewFuncPlot(curves []*mat.Dense) (*plot.Plot, error) {
	if len(curves) == 0 {
		return nil, fmt.Errorf("invalid data supplied")
	}

	p := plot.New()

	p.Title.Text = "Posterior draws"
	p.X.Label.Text = "X"
	p.Y.Label.Text = "f(X)"

	legend := plot.NewLegend()
	legend.Top = true
	p.Legend = legend

	for i, c := range curves {
		if c == nil {
			return nil, fmt.Errorf("invalid data supplied")
		}
		if _, cols := c.Dims(); cols != 2 {
			return nil, fmt.Errorf("invalid data dimensions")
		}

		line, err := plotter.NewLine(makePoints(c))
		if err != nil {
			return nil, fmt.Errorf("failed to create line: %v", err)
		}
		line.LineStyle.Color = color.RGBA{R: uint8(40 * i), G: 128, B: uint8(255 - 30*i), A: 255}
		line.LineStyle.Dashes = plotutil.Dashes(i % 3)

		p.Add(line)
		p.Legend.Add(fmt.Sprintf("draw %d", i), line)
	}

	return p, nil
}

func makePoints(m *mat.Dense) plotter.XYs {
	r, _ := m.Dims()
	pts := make(plotter.XYs, r)
	for i := 0; i < r; i++ {
		pts[i].X = m.At(i, 0)
		pts[i].Y = m.At(i, 1)
	}

	return pts
}
