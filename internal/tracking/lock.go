package tracking

import "math"

// lockWindow is the number of prompt correlations the lock indicators and
// the C/N0 estimate are averaged over.
const lockWindow = 20

// maxCN0 bounds the estimate so a noise free input still yields a finite value.
const maxCN0 = 100.0

// lockDetector keeps a sliding window of prompt correlations.
type lockDetector struct {
	i, q [lockWindow]float64
	n    int
	next int
	cn0  float64
}

func (d *lockDetector) add(i, q float64) {
	d.i[d.next] = i
	d.q[d.next] = q
	d.next = (d.next + 1) % lockWindow
	if d.n < lockWindow {
		d.n++
	}
}

// pllLock returns the mean of cos(2*phase error) over the window: close to
// one when the carrier is phase locked, around zero otherwise.
func (d *lockDetector) pllLock() float64 {
	if d.n == 0 {
		return 0
	}
	sum := 0.0
	for k := 0; k < d.n; k++ {
		p := d.i[k]*d.i[k] + d.q[k]*d.q[k]
		if p > 0 {
			sum += (d.i[k]*d.i[k] - d.q[k]*d.q[k]) / p
		}
	}
	return sum / float64(d.n)
}

// cn0Estimate uses the signal to noise variance method on the in-phase arm,
// in dB-Hz for an integration time of t seconds. The previous value is kept
// when the window does not support an estimate.
func (d *lockDetector) cn0Estimate(t float64) float64 {
	if d.n < 2 {
		return d.cn0
	}
	absI, total := 0.0, 0.0
	for k := 0; k < d.n; k++ {
		absI += math.Abs(d.i[k])
		total += d.i[k]*d.i[k] + d.q[k]*d.q[k]
	}
	absI /= float64(d.n)
	total /= float64(d.n)

	signal := absI * absI
	noise := total - signal
	switch {
	case signal <= 0:
		return d.cn0
	case noise <= 0:
		d.cn0 = maxCN0
	default:
		d.cn0 = math.Min(maxCN0, math.Max(0, 10*math.Log10(signal/noise/t)))
	}
	return d.cn0
}
