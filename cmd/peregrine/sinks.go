package main

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/peregrine-sdr/peregrine/internal/config"
	"github.com/peregrine-sdr/peregrine/internal/geo"
	"github.com/peregrine-sdr/peregrine/internal/influx"
	"github.com/peregrine-sdr/peregrine/internal/pipeline"
	"github.com/peregrine-sdr/peregrine/internal/plot"
	"github.com/peregrine-sdr/peregrine/internal/run"
)

// sinks writes the optional outputs of a finished run. Every failure is
// logged at ERROR and swallowed.
type sinks struct {
	export    config.ExportConfig
	influx    config.InfluxConfig
	threshold float64
	log       *slog.Logger
	infraLog  zerolog.Logger
}

func (s *sinks) write(ctx context.Context, res *pipeline.Result, rc *run.Context) {
	if len(res.Solutions) > 0 {
		s.writeTrack(res)
		s.writeInflux(ctx, res, rc)
	}
	if s.export.PlotDir != "" {
		s.writePlots(res)
	}
}

func (s *sinks) writeTrack(res *pipeline.Result) {
	if !s.export.GeoJSON {
		return
	}
	path := res.Params.SourcePath + ".nav_track.geojson"
	err := geo.WriteGeoJSON(path, res.Solutions)
	switch {
	case errors.Is(err, geo.ErrTooFewPoints):
		s.log.Info("Not enough solutions for a track export", "solutions", len(res.Solutions))
	case err != nil:
		s.log.Error("Failed to write navigation track", "path", path, "error", err)
	default:
		attrs := []any{"path", path}
		if ls, err := geo.WebMercatorTrack(res.Solutions); err == nil {
			attrs = append(attrs, "mercatorLength", ls.Length())
		}
		s.log.Info("Wrote navigation track", attrs...)
	}
}

func (s *sinks) writeInflux(ctx context.Context, res *pipeline.Result, rc *run.Context) {
	if !s.influx.Enabled {
		return
	}
	m := influx.NewManager(influx.Config{
		Enabled:    true,
		URL:        s.influx.URL,
		Token:      s.influx.Token,
		Org:        s.influx.Org,
		Bucket:     s.influx.Bucket,
		BackupPath: s.influx.BackupPath,
	}, s.infraLog)
	defer func() {
		if err := m.Close(); err != nil {
			s.log.Error("Failed to close InfluxDB export", "error", err)
		}
	}()

	if err := m.Connect(ctx); err != nil {
		s.log.Error("Failed to connect to InfluxDB", "error", err)
		return
	}
	tags := map[string]string{
		"source": filepath.Base(res.Params.SourcePath),
		"run_id": rc.ID.String(),
	}
	if err := m.WriteSolutions(res.Solutions, tags); err != nil {
		s.log.Error("Failed to export navigation solutions", "error", err)
		return
	}
	s.log.Info("Exported navigation solutions", "points", len(res.Solutions), "live", m.IsValid)
}

func (s *sinks) writePlots(res *pipeline.Result) {
	p := plot.New(s.export.PlotDir, filepath.Base(res.Params.SourcePath))
	if err := p.Init(); err != nil {
		s.log.Error("Failed to prepare plot directory", "error", err)
		return
	}

	var files []string
	if len(res.Acquisition) > 0 {
		f, err := p.Acquisition(res.Acquisition, s.threshold)
		if err != nil {
			s.log.Error("Failed to plot acquisition", "error", err)
		} else {
			files = append(files, f)
		}
	}

	fs, err := p.Tracking(res.Tracking)
	files = append(files, fs...)
	if err != nil {
		s.log.Error("Failed to plot tracking", "error", err)
	}

	if len(res.Solutions) > 0 {
		f, err := p.Navigation(res.Solutions)
		if err != nil {
			s.log.Error("Failed to plot navigation", "error", err)
		} else {
			files = append(files, f)
		}
	}
	s.log.Info("Wrote diagnostic plots", "dir", s.export.PlotDir, "count", len(files))
}
