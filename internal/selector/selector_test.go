package selector

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peregrine-sdr/peregrine/pkg/core"
)

func res(prn int, st core.AcqStatus, snr float64) core.AcquisitionResult {
	return core.AcquisitionResult{PRN: prn, Status: st, SNR: snr}
}

func prns(rs []core.AcquisitionResult) []int {
	out := make([]int, len(rs))
	for i, r := range rs {
		out[i] = r.PRN
	}
	return out
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name string
		in   []core.AcquisitionResult
		want []int
	}{
		{
			name: "filters and orders",
			in: []core.AcquisitionResult{
				res(1, core.Acquired, 8.0),
				res(2, core.NotAcquired, 30.0),
				res(3, core.Acquired, 12.5),
			},
			want: []int{3, 1},
		},
		{
			name: "ties keep input order",
			in: []core.AcquisitionResult{
				res(4, core.Acquired, 10),
				res(5, core.Acquired, 20),
				res(6, core.Acquired, 10),
				res(7, core.Acquired, 10),
			},
			want: []int{5, 4, 6, 7},
		},
		{
			name: "single",
			in:   []core.AcquisitionResult{res(9, core.Acquired, 1)},
			want: []int{9},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, prns(got))
		})
	}
}

func TestSelect_NoCandidates(t *testing.T) {
	for _, in := range [][]core.AcquisitionResult{
		nil,
		{},
		{res(1, core.NotAcquired, 50), res(2, core.NotAcquired, 3)},
	} {
		got, err := Select(in)
		assert.ErrorIs(t, err, ErrNoCandidates)
		assert.Nil(t, got)
	}
}

func TestSelect_DoesNotModifyInput(t *testing.T) {
	in := []core.AcquisitionResult{res(1, core.Acquired, 1), res(2, core.Acquired, 2)}
	_, err := Select(in)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, prns(in))
}

func TestSelect_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for iter := 0; iter < 200; iter++ {
		n := rng.IntN(33)
		in := make([]core.AcquisitionResult, n)
		acquired := 0
		for i := range in {
			st := core.NotAcquired
			if rng.IntN(2) == 0 {
				st = core.Acquired
				acquired++
			}
			// coarse SNRs so ties are common
			in[i] = res(i+1, st, float64(rng.IntN(5)))
		}

		got, err := Select(in)
		if acquired == 0 {
			assert.ErrorIs(t, err, ErrNoCandidates)
			continue
		}
		require.NoError(t, err)
		assert.Len(t, got, acquired)
		assert.LessOrEqual(t, len(got), len(in))

		for i, r := range got {
			assert.Equal(t, core.Acquired, r.Status)
			if i == 0 {
				continue
			}
			prev := got[i-1]
			assert.GreaterOrEqual(t, prev.SNR, r.SNR)
			if prev.SNR == r.SNR {
				// PRN doubles as input position
				assert.Less(t, prev.PRN, r.PRN)
			}
		}
	}
}
