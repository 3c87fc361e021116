package tracking

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peregrine-sdr/peregrine/internal/cacode"
	"github.com/peregrine-sdr/peregrine/pkg/core"
)

const (
	testDoppler = 1500.0
	testOffset  = 1400 // samples to the first code period
)

func testParams() core.RunParameters {
	return core.RunParameters{
		IF:             1.0e6,
		SamplingFreq:   4.092e6,
		ChippingRate:   1.023e6,
		CodeLength:     1023,
		SamplesPerCode: 4092,
	}
}

func testConfig() Config {
	return Config{DLLBandwidth: 2, PLLBandwidth: 25, FLLBandwidth: 10, CorrelatorSpacing: 0.5}
}

// codeRate is the received chipping rate including code Doppler.
func codeRate(p core.RunParameters) float64 {
	return p.ChippingRate * (1 + testDoppler/L1)
}

// synth returns ms+5 milliseconds of a PRN 5 signal whose first code period
// starts at testOffset, with navigation bits flipping every 20 ms.
func synth(p core.RunParameters, ms int) []int8 {
	n := int(p.SamplingFreq * 1e-3 * float64(ms+5))
	cr := codeRate(p)
	code := cacode.MustGenerate(5)
	chips := cacode.Sample(code, cr, p.SamplingFreq, n, -testOffset*cr/p.SamplingFreq)

	rng := rand.New(rand.NewPCG(3, 5))
	out := make([]int8, n)
	for i := range out {
		t := float64(i) / p.SamplingFreq
		bit := 1.0
		if int(math.Floor(float64(i-testOffset)/p.SamplingFreq*1000))/20%2 != 0 {
			bit = -1
		}
		v := 4*bit*chips[i]*math.Cos(2*math.Pi*(p.IF+testDoppler)*t+0.7) + 4*rng.NormFloat64()
		out[i] = int8(math.Max(-127, math.Min(127, math.Round(v))))
	}
	return out
}

func candidate(p core.RunParameters) core.AcquisitionResult {
	return core.AcquisitionResult{
		PRN:         5,
		Status:      core.Acquired,
		SNR:         30,
		CarrierFreq: p.IF + testDoppler + 15,
		CodePhase:   testOffset * p.ChippingRate / p.SamplingFreq,
	}
}

func TestTrack_LocksOnSignal(t *testing.T) {
	p := testParams()
	const ms = 400
	samples := synth(p, ms)

	state, err := New(testConfig(), nil).Track(context.Background(), p, samples, []core.AcquisitionResult{candidate(p)}, ms)
	require.NoError(t, err)
	require.Len(t, state.Channels, 1)
	assert.Equal(t, ms, state.MsTracked)
	assert.Equal(t, p.SamplingFreq, state.SamplingFreq)

	ch := state.Channels[0]
	assert.Equal(t, 5, ch.PRN)
	assert.Equal(t, 30.0, ch.AcqSNR)
	require.Equal(t, ms, ch.Len())

	mean := 0.0
	for _, f := range ch.CarrierFreq[ms-100:] {
		mean += f
	}
	mean /= 100
	assert.InDelta(t, p.IF+testDoppler, mean, 3)

	period := float64(p.CodeLength) / codeRate(p) * p.SamplingFreq
	for k := 200; k < ms; k += 25 {
		want := testOffset + float64(k)*period
		assert.InDelta(t, want, ch.CodeStart[k], 1, "epoch %d", k)
	}

	last := ch.Epoch(ms - 1)
	assert.Greater(t, last.PLLLock, 0.8)
	assert.Greater(t, last.CN0, 35.0)
	assert.LessOrEqual(t, last.CN0, maxCN0)
	assert.Greater(t, math.Abs(last.IP), 5*math.Abs(last.QP))

	for i := 1; i < ms; i++ {
		require.Greater(t, ch.CodeStart[i], ch.CodeStart[i-1])
		require.False(t, math.IsNaN(ch.CN0[i]) || math.IsInf(ch.CN0[i], 0))
	}
}

func TestTrack_StopsAtWindowEnd(t *testing.T) {
	p := testParams()
	samples := synth(p, 50)

	state, err := New(testConfig(), nil).Track(context.Background(), p, samples, []core.AcquisitionResult{candidate(p)}, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1000, state.MsTracked)
	n := state.Channels[0].Len()
	assert.Greater(t, n, 40)
	assert.Less(t, n, 60)
}

func TestTrack_KeepsCandidateOrder(t *testing.T) {
	p := testParams()
	samples := synth(p, 20)
	c1 := candidate(p)
	c2 := candidate(p)
	c2.PRN = 12
	c3 := candidate(p)
	c3.PRN = 1

	state, err := New(testConfig(), nil).Track(context.Background(), p, samples, []core.AcquisitionResult{c2, c1, c3}, 10)
	require.NoError(t, err)
	assert.Equal(t, []int{12, 5, 1}, state.PRNs())
}

func TestTrack_NoSamples(t *testing.T) {
	p := testParams()
	_, err := New(testConfig(), nil).Track(context.Background(), p, make([]int8, 100), []core.AcquisitionResult{candidate(p)}, 10)
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestTrack_NoCandidates(t *testing.T) {
	p := testParams()
	state, err := New(testConfig(), nil).Track(context.Background(), p, make([]int8, 100), nil, 10)
	require.NoError(t, err)
	assert.Empty(t, state.Channels)
}

func TestTrack_InvalidPRN(t *testing.T) {
	p := testParams()
	c := candidate(p)
	c.PRN = 0
	_, err := New(testConfig(), nil).Track(context.Background(), p, synth(p, 5), []core.AcquisitionResult{c}, 1)
	assert.Error(t, err)
}

func TestTrack_Cancelled(t *testing.T) {
	p := testParams()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(testConfig(), nil).Track(ctx, p, synth(p, 5), []core.AcquisitionResult{candidate(p)}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
