package core

// TrackEpoch is one millisecond of loop state for a single channel.
type TrackEpoch struct {
	CarrierPhase float64 // cycles, accumulated
	CarrierFreq  float64 // Hz
	CodePhase    float64 // chips, residual at the start of the period
	CodeFreq     float64 // chips/s
	CodeStart    float64 // sample index within the window where the period starts
	IE, IP, IL   float64
	QE, QP, QL   float64
	PLLLock      float64 // cos(2*phase error) estimate, 1 = locked
	CN0          float64 // dB-Hz
}

// ChannelState is the per-millisecond history of one tracked satellite.
// Fields are stored column-wise; index i of every slice belongs to the same
// millisecond.
type ChannelState struct {
	PRN          int       `json:"prn"`
	AcqSNR       float64   `json:"acqSnr"`
	CarrierPhase []float64 `json:"carrierPhase"`
	CarrierFreq  []float64 `json:"carrierFreq"`
	CodePhase    []float64 `json:"codePhase"`
	CodeFreq     []float64 `json:"codeFreq"`
	CodeStart    []float64 `json:"codeStart"`
	IE           []float64 `json:"ie"`
	IP           []float64 `json:"ip"`
	IL           []float64 `json:"il"`
	QE           []float64 `json:"qe"`
	QP           []float64 `json:"qp"`
	QL           []float64 `json:"ql"`
	PLLLock      []float64 `json:"pllLock"`
	CN0          []float64 `json:"cn0"`
}

// NewChannelState allocates a channel with room for n epochs.
func NewChannelState(prn int, acqSNR float64, n int) ChannelState {
	mk := func() []float64 { return make([]float64, 0, n) }
	return ChannelState{
		PRN:          prn,
		AcqSNR:       acqSNR,
		CarrierPhase: mk(),
		CarrierFreq:  mk(),
		CodePhase:    mk(),
		CodeFreq:     mk(),
		CodeStart:    mk(),
		IE:           mk(),
		IP:           mk(),
		IL:           mk(),
		QE:           mk(),
		QP:           mk(),
		QL:           mk(),
		PLLLock:      mk(),
		CN0:          mk(),
	}
}

// Append records one epoch.
func (c *ChannelState) Append(e TrackEpoch) {
	c.CarrierPhase = append(c.CarrierPhase, e.CarrierPhase)
	c.CarrierFreq = append(c.CarrierFreq, e.CarrierFreq)
	c.CodePhase = append(c.CodePhase, e.CodePhase)
	c.CodeFreq = append(c.CodeFreq, e.CodeFreq)
	c.CodeStart = append(c.CodeStart, e.CodeStart)
	c.IE = append(c.IE, e.IE)
	c.IP = append(c.IP, e.IP)
	c.IL = append(c.IL, e.IL)
	c.QE = append(c.QE, e.QE)
	c.QP = append(c.QP, e.QP)
	c.QL = append(c.QL, e.QL)
	c.PLLLock = append(c.PLLLock, e.PLLLock)
	c.CN0 = append(c.CN0, e.CN0)
}

// Len returns the number of recorded epochs.
func (c ChannelState) Len() int {
	return len(c.IP)
}

// Epoch returns the loop state of millisecond i.
func (c ChannelState) Epoch(i int) TrackEpoch {
	return TrackEpoch{
		CarrierPhase: c.CarrierPhase[i],
		CarrierFreq:  c.CarrierFreq[i],
		CodePhase:    c.CodePhase[i],
		CodeFreq:     c.CodeFreq[i],
		CodeStart:    c.CodeStart[i],
		IE:           c.IE[i],
		IP:           c.IP[i],
		IL:           c.IL[i],
		QE:           c.QE[i],
		QP:           c.QP[i],
		QL:           c.QL[i],
		PLLLock:      c.PLLLock[i],
		CN0:          c.CN0[i],
	}
}

// TrackState is the aggregate tracking output, channels ordered by
// selection rank.
type TrackState struct {
	SamplingFreq float64        `json:"samplingFreq"`
	MsTracked    int            `json:"msTracked"`
	Channels     []ChannelState `json:"channels"`
}

// PRNs lists the tracked satellites in channel order.
func (t TrackState) PRNs() []int {
	prns := make([]int, len(t.Channels))
	for i, ch := range t.Channels {
		prns[i] = ch.PRN
	}
	return prns
}
