package plot

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peregrine-sdr/peregrine/internal/navigation"
	"github.com/peregrine-sdr/peregrine/pkg/core"
)

func newPlotter(t *testing.T) *Plotter {
	t.Helper()
	p := New(filepath.Join(t.TempDir(), "plots"), "capture.bin")
	require.NoError(t, p.Init())
	return p
}

func TestAcquisition(t *testing.T) {
	p := newPlotter(t)
	file, err := p.Acquisition([]core.AcquisitionResult{
		{PRN: 1, Status: core.Acquired, SNR: 31},
		{PRN: 2, Status: core.NotAcquired, SNR: 4},
		{PRN: 3, Status: core.Acquired, SNR: 22},
	}, 20)
	require.NoError(t, err)
	assert.Equal(t, "capture.bin.acq_snr.png", filepath.Base(file))
	assert.FileExists(t, file)
}

func TestAcquisition_Empty(t *testing.T) {
	_, err := newPlotter(t).Acquisition(nil, 20)
	assert.Error(t, err)
}

func TestTracking(t *testing.T) {
	p := newPlotter(t)
	ch := core.NewChannelState(5, 30, 50)
	for i := range 50 {
		sign := 1.0
		if i%20 < 10 {
			sign = -1
		}
		ch.Append(core.TrackEpoch{IP: sign * 1000, QP: float64(i%7) - 3, CN0: 44 + float64(i%3), PLLLock: 0.95})
	}
	empty := core.NewChannelState(9, 25, 0)

	files, err := p.Tracking(core.TrackState{Channels: []core.ChannelState{ch, empty}})
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "capture.bin.prn05_iq.png", filepath.Base(files[0]))
	assert.Equal(t, "capture.bin.prn05_cn0.png", filepath.Base(files[1]))
	for _, f := range files {
		assert.FileExists(t, f)
	}
}

func TestNavigation(t *testing.T) {
	p := newPlotter(t)
	origin := core.LLH{Lat: 45, Lon: 10, Height: 200}
	var sols []core.NavigationSolution
	for i := range 10 {
		pos := core.LLH{Lat: origin.Lat + float64(i)*1e-6, Lon: origin.Lon + math.Sin(float64(i))*1e-6, Height: 200}
		sols = append(sols, core.NavigationSolution{Position: pos, ECEF: navigation.LLHToECEF(pos)})
	}
	file, err := p.Navigation(sols)
	require.NoError(t, err)
	assert.FileExists(t, file)

	_, err = p.Navigation(nil)
	assert.Error(t, err)
}
