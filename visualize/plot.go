// Package visualize renders the 2-D figures embedded in the example posts:
// cluster scatters, outlier overlays, precision-recall curves and
// predicted-versus-true plots. All renderers write PNG files.
package visualize

import (
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/mlcookbook/metrics"
	"github.com/YuminosukeSato/mlcookbook/pkg/errors"
)

// Default figure size for all posts.
const (
	figWidth  = 6 * vg.Inch
	figHeight = 4.5 * vg.Inch
)

// noiseColor marks DBSCAN noise points (label -1).
var noiseColor = color.RGBA{R: 128, G: 128, B: 128, A: 255}

// ScatterClusters renders samples colored by cluster label, projected onto
// two feature columns. Centroid markers are drawn when centers is non-nil,
// and noise points (label -1) are drawn in gray.
func ScatterClusters(X mat.Matrix, labels []int, centers [][]float64, featX, featY int, xLabel, yLabel, title, path string) error {
	rows, cols := X.Dims()
	if len(labels) != rows {
		return errors.NewDimensionError("visualize.ScatterClusters", rows, len(labels), 0)
	}
	if featX < 0 || featX >= cols || featY < 0 || featY >= cols {
		return errors.NewValueError("visualize.ScatterClusters",
			fmt.Sprintf("feature indices (%d, %d) out of range for %d columns", featX, featY, cols))
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	byCluster := make(map[int]plotter.XYs)
	for i := 0; i < rows; i++ {
		byCluster[labels[i]] = append(byCluster[labels[i]], plotter.XY{
			X: X.At(i, featX),
			Y: X.At(i, featY),
		})
	}

	// Iterate clusters in label order so colors are stable across runs.
	maxLabel := -1
	for label := range byCluster {
		if label > maxLabel {
			maxLabel = label
		}
	}
	for label := -1; label <= maxLabel; label++ {
		pts, ok := byCluster[label]
		if !ok {
			continue
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return errors.Wrap(err, "building scatter")
		}
		if label < 0 {
			s.GlyphStyle.Color = noiseColor
			s.GlyphStyle.Shape = draw.CrossGlyph{}
			p.Legend.Add("noise", s)
		} else {
			s.GlyphStyle.Color = plotutil.Color(label)
			p.Legend.Add(fmt.Sprintf("cluster %d", label), s)
		}
		p.Add(s)
	}

	if centers != nil {
		pts := make(plotter.XYs, len(centers))
		for c, center := range centers {
			pts[c] = plotter.XY{X: center[featX], Y: center[featY]}
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return errors.Wrap(err, "building centroid scatter")
		}
		s.GlyphStyle.Color = color.Black
		s.GlyphStyle.Shape = draw.PyramidGlyph{}
		s.GlyphStyle.Radius = vg.Points(5)
		p.Legend.Add("centroids", s)
		p.Add(s)
	}

	return save(p, path)
}

// ScatterOutliers renders all samples projected onto two feature columns
// with flagged outliers highlighted in red.
func ScatterOutliers(X mat.Matrix, flags []bool, featX, featY int, xLabel, yLabel, title, path string) error {
	rows, cols := X.Dims()
	if len(flags) != rows {
		return errors.NewDimensionError("visualize.ScatterOutliers", rows, len(flags), 0)
	}
	if featX < 0 || featX >= cols || featY < 0 || featY >= cols {
		return errors.NewValueError("visualize.ScatterOutliers",
			fmt.Sprintf("feature indices (%d, %d) out of range for %d columns", featX, featY, cols))
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	var inliers, outliers plotter.XYs
	for i := 0; i < rows; i++ {
		pt := plotter.XY{X: X.At(i, featX), Y: X.At(i, featY)}
		if flags[i] {
			outliers = append(outliers, pt)
		} else {
			inliers = append(inliers, pt)
		}
	}

	in, err := plotter.NewScatter(inliers)
	if err != nil {
		return errors.Wrap(err, "building inlier scatter")
	}
	in.GlyphStyle.Color = plotutil.Color(0)
	p.Add(in)
	p.Legend.Add("inliers", in)

	if len(outliers) > 0 {
		out, err := plotter.NewScatter(outliers)
		if err != nil {
			return errors.Wrap(err, "building outlier scatter")
		}
		out.GlyphStyle.Color = color.RGBA{R: 220, A: 255}
		out.GlyphStyle.Shape = draw.CircleGlyph{}
		out.GlyphStyle.Radius = vg.Points(4)
		p.Add(out)
		p.Legend.Add("outliers", out)
	}

	return save(p, path)
}

// PlotPRCurve renders a precision-recall curve with the average precision in
// the title.
func PlotPRCurve(pr *metrics.PRCurve, title, path string) error {
	if pr == nil || len(pr.Precision) == 0 {
		return errors.NewValueError("visualize.PlotPRCurve", "empty curve")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (AP=%.3f)", title, pr.AUC())
	p.X.Label.Text = "recall"
	p.Y.Label.Text = "precision"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1.05

	pts := make(plotter.XYs, len(pr.Precision))
	for i := range pr.Precision {
		pts[i] = plotter.XY{X: pr.Recall[i], Y: pr.Precision[i]}
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrap(err, "building PR line")
	}
	line.LineStyle.Width = vg.Points(1.5)
	line.LineStyle.Color = plotutil.Color(0)
	p.Add(line)

	return save(p, path)
}

// PlotPredictedVsTrue renders a predicted-versus-true scatter with the
// identity diagonal, the standard regression diagnostic.
func PlotPredictedVsTrue(yTrue, yPred *mat.VecDense, title, path string) error {
	if yTrue.Len() != yPred.Len() {
		return errors.NewDimensionError("visualize.PlotPredictedVsTrue", yTrue.Len(), yPred.Len(), 0)
	}
	if yTrue.Len() == 0 {
		return errors.NewValueError("visualize.PlotPredictedVsTrue", "empty vectors")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "true value"
	p.Y.Label.Text = "predicted value"

	pts := make(plotter.XYs, yTrue.Len())
	lo, hi := yTrue.AtVec(0), yTrue.AtVec(0)
	for i := 0; i < yTrue.Len(); i++ {
		tv, pv := yTrue.AtVec(i), yPred.AtVec(i)
		pts[i] = plotter.XY{X: tv, Y: pv}
		for _, v := range []float64{tv, pv} {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}

	s, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "building scatter")
	}
	s.GlyphStyle.Color = plotutil.Color(0)
	p.Add(s)

	diag, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return errors.Wrap(err, "building diagonal")
	}
	diag.LineStyle.Color = color.Gray{Y: 128}
	diag.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(diag)
	p.Legend.Add("y = x", diag)

	return save(p, path)
}

// PlotKSweep renders a metric (inertia or silhouette) as a function of the
// number of clusters, the elbow-method diagnostic.
func PlotKSweep(ks []int, values []float64, yLabel, title, path string) error {
	if len(ks) != len(values) {
		return errors.NewDimensionError("visualize.PlotKSweep", len(ks), len(values), 0)
	}
	if len(ks) == 0 {
		return errors.NewValueError("visualize.PlotKSweep", "empty sweep")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "number of clusters k"
	p.Y.Label.Text = yLabel

	pts := make(plotter.XYs, len(ks))
	for i, k := range ks {
		pts[i] = plotter.XY{X: float64(k), Y: values[i]}
	}

	line, scatter, err := plotter.NewLinePoints(pts)
	if err != nil {
		return errors.Wrap(err, "building sweep line")
	}
	line.LineStyle.Color = plotutil.Color(0)
	scatter.GlyphStyle.Color = plotutil.Color(0)
	p.Add(line, scatter)

	return save(p, path)
}

func save(p *plot.Plot, path string) error {
	if err := p.Save(figWidth, figHeight, path); err != nil {
		return errors.Wrapf(err, "saving plot to %s", path)
	}
	return nil
}
