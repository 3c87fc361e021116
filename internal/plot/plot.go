// Package plot renders diagnostic charts of stage results with gonum/plot.
package plot

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/peregrine-sdr/peregrine/internal/navigation"
	"github.com/peregrine-sdr/peregrine/pkg/core"
)

var (
	acquiredColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	missedColor   = color.RGBA{R: 190, G: 190, B: 190, A: 255}
	accentColor   = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Plotter writes PNG charts into a directory. File names start with a
// prefix, usually the base name of the sample file.
type Plotter struct {
	dir    string
	prefix string
	width  vg.Length
	height vg.Length
}

func New(dir, prefix string) *Plotter {
	return &Plotter{dir: dir, prefix: prefix, width: 10 * vg.Inch, height: 5 * vg.Inch}
}

// Init creates the output directory.
func (p *Plotter) Init() error {
	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return fmt.Errorf("failed to create plot directory: %w", err)
	}
	return nil
}

func (p *Plotter) path(name string) string {
	return filepath.Join(p.dir, fmt.Sprintf("%s.%s.png", p.prefix, name))
}

// Acquisition draws the per-PRN acquisition metric as bars with the
// detection threshold overlaid.
func (p *Plotter) Acquisition(results []core.AcquisitionResult, threshold float64) (string, error) {
	if len(results) == 0 {
		return "", errors.New("no acquisition results to plot")
	}

	acquired := make(plotter.Values, len(results))
	missed := make(plotter.Values, len(results))
	labels := make([]string, len(results))
	for i, r := range results {
		if r.Status == core.Acquired {
			acquired[i] = r.SNR
		} else {
			missed[i] = r.SNR
		}
		labels[i] = strconv.Itoa(r.PRN)
	}

	pl := plot.New()
	pl.Title.Text = "Acquisition"
	pl.X.Label.Text = "PRN"
	pl.Y.Label.Text = "Acquisition metric"

	w := vg.Points(8)
	for _, set := range []struct {
		vals  plotter.Values
		color color.Color
		label string
	}{
		{acquired, acquiredColor, "acquired"},
		{missed, missedColor, "not acquired"},
	} {
		bars, err := plotter.NewBarChart(set.vals, w)
		if err != nil {
			return "", err
		}
		bars.Color = set.color
		bars.LineStyle.Width = 0
		pl.Add(bars)
		pl.Legend.Add(set.label, bars)
	}

	th := plotter.NewFunction(func(float64) float64 { return threshold })
	th.Color = accentColor
	th.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	pl.Add(th)
	pl.Legend.Add("threshold", th)

	pl.NominalX(labels...)
	pl.Legend.Top = true

	file := p.path("acq_snr")
	if err := pl.Save(p.width, p.height, file); err != nil {
		return "", fmt.Errorf("save acquisition plot: %w", err)
	}
	return file, nil
}

// Tracking draws, per channel, the prompt I/Q constellation and the C/N0
// history. It returns the files written.
func (p *Plotter) Tracking(state core.TrackState) ([]string, error) {
	var files []string
	for _, ch := range state.Channels {
		if ch.Len() == 0 {
			continue
		}
		iq, err := p.constellation(ch)
		if err != nil {
			return files, fmt.Errorf("PRN %d: %w", ch.PRN, err)
		}
		files = append(files, iq)

		cn0, err := p.cn0(ch)
		if err != nil {
			return files, fmt.Errorf("PRN %d: %w", ch.PRN, err)
		}
		files = append(files, cn0)
	}
	return files, nil
}

func (p *Plotter) constellation(ch core.ChannelState) (string, error) {
	pts := make(plotter.XYs, ch.Len())
	for i := range pts {
		pts[i] = plotter.XY{X: ch.IP[i], Y: ch.QP[i]}
	}

	pl := plot.New()
	pl.Title.Text = fmt.Sprintf("PRN %d prompt correlator", ch.PRN)
	pl.X.Label.Text = "I"
	pl.Y.Label.Text = "Q"

	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return "", err
	}
	sc.GlyphStyle.Radius = vg.Points(1)
	sc.GlyphStyle.Color = acquiredColor
	pl.Add(sc, plotter.NewGrid())

	file := p.path(fmt.Sprintf("prn%02d_iq", ch.PRN))
	if err := pl.Save(6*vg.Inch, 6*vg.Inch, file); err != nil {
		return "", fmt.Errorf("save constellation plot: %w", err)
	}
	return file, nil
}

func (p *Plotter) cn0(ch core.ChannelState) (string, error) {
	cn0 := make(plotter.XYs, ch.Len())
	lock := make(plotter.XYs, ch.Len())
	for i := range cn0 {
		cn0[i] = plotter.XY{X: float64(i), Y: ch.CN0[i]}
		lock[i] = plotter.XY{X: float64(i), Y: ch.PLLLock[i] * 50}
	}

	pl := plot.New()
	pl.Title.Text = fmt.Sprintf("PRN %d loop health", ch.PRN)
	pl.X.Label.Text = "Time (ms)"
	pl.Y.Label.Text = "C/N0 (dB-Hz)"

	l, err := plotter.NewLine(cn0)
	if err != nil {
		return "", err
	}
	l.Color = acquiredColor
	l.Width = vg.Points(1)

	ll, err := plotter.NewLine(lock)
	if err != nil {
		return "", err
	}
	ll.Color = accentColor
	ll.Width = vg.Points(0.5)

	pl.Add(l, ll)
	pl.Legend.Add("C/N0", l)
	pl.Legend.Add("PLL lock x50", ll)
	pl.Legend.Top = true
	pl.Legend.Left = false

	file := p.path(fmt.Sprintf("prn%02d_cn0", ch.PRN))
	if err := pl.Save(p.width, p.height, file); err != nil {
		return "", fmt.Errorf("save C/N0 plot: %w", err)
	}
	return file, nil
}

// Navigation draws the horizontal track in metres relative to the first
// solution.
func (p *Plotter) Navigation(sols []core.NavigationSolution) (string, error) {
	if len(sols) == 0 {
		return "", errors.New("no navigation solutions to plot")
	}
	origin := sols[0]
	pts := make(plotter.XYs, len(sols))
	for i, s := range sols {
		var d [3]float64
		for k := range d {
			d[k] = s.ECEF[k] - origin.ECEF[k]
		}
		ned := navigation.ECEFToNED(d, origin.Position)
		pts[i] = plotter.XY{X: ned.East, Y: ned.North}
	}

	pl := plot.New()
	pl.Title.Text = "Receiver track"
	pl.X.Label.Text = "East (m)"
	pl.Y.Label.Text = "North (m)"

	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return "", err
	}
	sc.GlyphStyle.Radius = vg.Points(1.5)
	sc.GlyphStyle.Color = acquiredColor
	pl.Add(sc, plotter.NewGrid())

	file := p.path("nav_track")
	if err := pl.Save(6*vg.Inch, 6*vg.Inch, file); err != nil {
		return "", fmt.Errorf("save navigation plot: %w", err)
	}
	return file, nil
}
