// Package influx exports navigation solutions to InfluxDB. When the server
// is unreachable, points go to a gzip line-protocol backup file instead.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/peregrine-sdr/peregrine/pkg/core"
)

// Measurement is the measurement name of solution points.
const Measurement = "navigation"

// ErrDisabled is returned by Connect when export is switched off.
var ErrDisabled = errors.New("influx export is disabled")

// Config holds the server coordinates.
type Config struct {
	Enabled       bool
	URL           string
	Token         string
	Org           string
	Bucket        string
	BackupPath    string
	RetentionDays int
}

// Manager handles the InfluxDB connection and writes.
type Manager struct {
	Client       influxdb2.Client
	Writer       influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	Logger       zerolog.Logger

	cfg        Config
	backupFile *os.File
}

// NewManager creates a new InfluxDB manager.
func NewManager(cfg Config, log zerolog.Logger) *Manager {
	if cfg.Bucket == "" {
		cfg.Bucket = Measurement
	}
	if cfg.RetentionDays == 0 {
		cfg.RetentionDays = 90
	}
	return &Manager{cfg: cfg, Logger: log}
}

// Connect establishes a connection to InfluxDB, falling back to the backup
// file when the server does not answer a ping.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(
		m.cfg.URL,
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	running, err := m.Client.Ping(ctx)
	m.IsValid = err == nil && running

	if !m.IsValid {
		if m.cfg.BackupPath == "" {
			return fmt.Errorf("influxDB at %s unreachable and no backup path configured: %v", m.cfg.URL, err)
		}
		if m.BackupWriter == nil {
			m.Logger.Info().Str("backupPath", m.cfg.BackupPath).
				Msg("Failed to initialize InfluxDB client, writing to backup file")

			file, err := os.OpenFile(m.cfg.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("error creating backup file: %w", err)
			}
			m.backupFile = file
			m.BackupWriter = gzip.NewWriter(file)
		}
		m.Logger.Warn().Msg("InfluxDB client failed to initialize, using backup writer")
		return nil
	}

	if err := m.setupOrganizationAndBucket(ctx); err != nil {
		return err
	}
	m.createWriter()
	m.Logger.Info().Str("url", m.cfg.URL).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) setupOrganizationAndBucket(ctx context.Context) error {
	orgName := m.cfg.Org

	org, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		org, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	bucket := m.cfg.Bucket
	if _, err := m.Client.BucketsAPI().FindBucketByName(ctx, bucket); err != nil {
		m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, org, bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: int64(60 * 60 * 24 * m.cfg.RetentionDays),
		})
		if err != nil {
			m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
			return err
		}
	}
	return nil
}

func (m *Manager) createWriter() {
	m.Writer = m.Client.WriteAPI(m.cfg.Org, m.cfg.Bucket)

	errorsCh := m.Writer.Errors()
	go func() {
		for writeErr := range errorsCh {
			m.Logger.Error().Err(writeErr).Str("bucket", m.cfg.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}()
}

// SolutionPoint converts one solution. Tags identify the run the point
// belongs to.
func SolutionPoint(s core.NavigationSolution, tags map[string]string) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement(Measurement).
		SetTime(s.Time.UTC()).
		AddField("lat", s.Position.Lat).
		AddField("lon", s.Position.Lon).
		AddField("height", s.Position.Height).
		AddField("vN", s.Velocity.North).
		AddField("vE", s.Velocity.East).
		AddField("vD", s.Velocity.Down).
		AddField("clockBias", s.ClockBias).
		AddField("gdop", s.GDOP).
		AddField("sats", len(s.PRNs)).
		AddField("tow", s.Time.TOW)
	p.AddTag("week", fmt.Sprint(s.Time.Week))
	for k, v := range tags {
		p.AddTag(k, v)
	}
	// line protocol wants tags in key order
	p.SortTags()
	return p
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(point *influxdb2_write.Point) error {
	if m.IsValid {
		m.Writer.WritePoint(point)
		return nil
	}
	if m.BackupWriter == nil {
		return errors.New("influxDB client not initialized and backup writer not available")
	}
	line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	if _, err := m.BackupWriter.Write([]byte(line)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// WriteSolutions writes every solution in order.
func (m *Manager) WriteSolutions(sols []core.NavigationSolution, tags map[string]string) error {
	for i, s := range sols {
		if err := m.WritePoint(SolutionPoint(s, tags)); err != nil {
			return fmt.Errorf("solution %d: %w", i, err)
		}
	}
	m.Logger.Debug().Int("points", len(sols)).Bool("live", m.IsValid).Msg("Navigation solutions exported")
	return nil
}

// Close flushes pending points and releases the client and backup file.
func (m *Manager) Close() error {
	if m.Writer != nil {
		m.Writer.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}
	var errs []error
	if m.BackupWriter != nil {
		errs = append(errs, m.BackupWriter.Close())
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
	}
	return errors.Join(errs...)
}
