package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcqStatus_JSON(t *testing.T) {
	r := AcquisitionResult{PRN: 7, Status: Acquired, SNR: 12.5}
	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"status":"A"`)

	var back AcquisitionResult
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, r, back)
}

func TestAcqStatus_RejectsUnknownTag(t *testing.T) {
	var r AcquisitionResult
	err := json.Unmarshal([]byte(`{"prn":1,"status":"X"}`), &r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid acquisition status")
}

func TestChannelState_AppendAndEpoch(t *testing.T) {
	ch := NewChannelState(3, 20, 2)
	ch.Append(TrackEpoch{IP: 1, QP: -1, CodeStart: 0})
	ch.Append(TrackEpoch{IP: 2, QP: -2, CodeStart: 16368})

	require.Equal(t, 2, ch.Len())
	e := ch.Epoch(1)
	assert.Equal(t, 2.0, e.IP)
	assert.Equal(t, -2.0, e.QP)
	assert.Equal(t, 16368.0, e.CodeStart)
}

func TestGPSTime_AddRollsWeek(t *testing.T) {
	tm := GPSTime{Week: 1700, TOW: 604799.5}
	next := tm.Add(1)
	assert.Equal(t, 1701, next.Week)
	assert.InDelta(t, 0.5, next.TOW, 1e-9)
	assert.InDelta(t, 1.0, next.Sub(tm), 1e-9)

	prev := GPSTime{Week: 1701, TOW: 0.25}.Add(-0.5)
	assert.Equal(t, 1700, prev.Week)
	assert.InDelta(t, 604799.75, prev.TOW, 1e-9)
}

func TestGPSTime_UTC(t *testing.T) {
	tm := GPSTime{Week: 0, TOW: 18}
	assert.Equal(t, time.Date(1980, time.January, 6, 0, 0, 0, 0, time.UTC), tm.UTC())
}

func TestGPSTime_UTCRoundsFraction(t *testing.T) {
	tm := GPSTime{Week: 1724, TOW: 120000.2}
	assert.Equal(t, 200000000, tm.UTC().Nanosecond())

	tm = GPSTime{Week: 1724, TOW: 120000.6}
	assert.Equal(t, 600000000, tm.UTC().Nanosecond())
}

func TestAcquisitionResult_String(t *testing.T) {
	r := AcquisitionResult{PRN: 7, Status: Acquired, SNR: 25.5, CarrierFreq: 1.0025e6, CodePhase: 512.25}
	s := r.String()
	assert.Contains(t, s, "PRN  7")
	assert.Contains(t, s, "carrier  1002500.0 Hz")
	assert.Contains(t, s, "code phase  512.25 chips")
	assert.NotContains(t, s, "Doppler")
}

func TestRecords_PreservesOrder(t *testing.T) {
	sols := []NavigationSolution{
		{Time: GPSTime{Week: 1, TOW: 1}, Position: LLH{Lat: 1}},
		{Time: GPSTime{Week: 1, TOW: 2}, Position: LLH{Lat: 2}},
	}
	recs := Records(sols)
	require.Len(t, recs, 2)
	assert.Equal(t, 1.0, recs[0].Time.TOW)
	assert.Equal(t, 2.0, recs[1].Position.Lat)
}
