package config

import (
	"fmt"
	"time"

	"github.com/peregrine-sdr/peregrine/pkg/core"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "peregrine.cfg.json"

// CheckpointConfig selects and tunes the checkpoint backend.
type CheckpointConfig struct {
	Store      string `json:"store" mapstructure:"store"`
	Dir        string `json:"dir" mapstructure:"dir"`
	Compress   bool   `json:"compress" mapstructure:"compress"`
	Validation string `json:"validation" mapstructure:"validation"`
	SQLitePath string `json:"sqlitePath" mapstructure:"sqlitePath"`
	// MemoryExport is the snapshot file of the memory store. Empty keeps
	// results in process only.
	MemoryExport string `json:"memoryExport" mapstructure:"memoryExport"`
}

// DBConfig holds the Postgres connection settings.
type DBConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// AcquisitionConfig tunes the acquisition engine.
type AcquisitionConfig struct {
	PRNs        []int
	Threshold   float64
	Bandwidth   float64
	Step        float64
	NonCoherent int
	FineFreq    bool
}

// TrackingConfig tunes the tracking loops.
type TrackingConfig struct {
	DLLBandwidth      float64
	PLLBandwidth      float64
	FLLBandwidth      float64
	CorrelatorSpacing float64
}

// NavigationConfig tunes the navigation solver.
type NavigationConfig struct {
	SolutionPeriodMs int
	MinSatellites    int
	ElevationMaskDeg float64
}

// InfluxConfig holds InfluxDB export settings.
type InfluxConfig struct {
	Enabled    bool
	URL        string
	Token      string
	Org        string
	Bucket     string
	BackupPath string
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// GraylogConfig holds GELF log shipping settings.
type GraylogConfig struct {
	Enabled bool
	Address string
}

// ExportConfig controls the optional post-navigation outputs.
type ExportConfig struct {
	GeoJSON bool
	PlotDir string
}

// SetDefaults registers every default value. Load calls it; tests that
// never touch a config file call it directly.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./peregrine-logs")

	viper.SetDefault("receiver.if", 4.092e6)
	viper.SetDefault("receiver.samplingFreq", 16.368e6)
	viper.SetDefault("receiver.chippingRate", 1.023e6)
	viper.SetDefault("receiver.codeLength", 1023)
	viper.SetDefault("receiver.msToProcess", 37000)
	viper.SetDefault("receiver.skipBytes", 1000+16368*87)
	viper.SetDefault("receiver.fileFormat", "int8")

	viper.SetDefault("acquisition.prns", defaultPRNs())
	viper.SetDefault("acquisition.threshold", 20.0)
	viper.SetDefault("acquisition.bandwidth", 7000.0)
	viper.SetDefault("acquisition.step", 500.0)
	viper.SetDefault("acquisition.nonCoherent", 4)
	viper.SetDefault("acquisition.fineFreq", true)

	viper.SetDefault("tracking.dllBandwidth", 2.0)
	viper.SetDefault("tracking.pllBandwidth", 25.0)
	viper.SetDefault("tracking.fllBandwidth", 10.0)
	viper.SetDefault("tracking.correlatorSpacing", 0.5)

	viper.SetDefault("navigation.solutionPeriodMs", 200)
	viper.SetDefault("navigation.minSatellites", 4)
	viper.SetDefault("navigation.elevationMaskDeg", 0.0)

	viper.SetDefault("checkpoint.store", "file")
	viper.SetDefault("checkpoint.dir", "")
	viper.SetDefault("checkpoint.compress", true)
	viper.SetDefault("checkpoint.validation", "off")
	viper.SetDefault("checkpoint.sqlitePath", "./peregrine.db")
	viper.SetDefault("checkpoint.memoryExport", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "peregrine")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "peregrine")
	viper.SetDefault("influx.bucket", "navigation")
	viper.SetDefault("influx.backupPath", "")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "peregrine")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("export.geojson", true)
	viper.SetDefault("plot.dir", "")
}

func defaultPRNs() []int {
	prns := make([]int, 32)
	for i := range prns {
		prns[i] = i + 1
	}
	return prns
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetStatic returns the static receiver configuration the parameter
// deriver is constructed with.
func GetStatic() core.Static {
	return core.Static{
		IF:            viper.GetFloat64("receiver.if"),
		SamplingFreq:  viper.GetFloat64("receiver.samplingFreq"),
		ChippingRate:  viper.GetFloat64("receiver.chippingRate"),
		CodeLength:    viper.GetInt("receiver.codeLength"),
		MsToProcess:   viper.GetInt("receiver.msToProcess"),
		SkipBytes:     viper.GetInt64("receiver.skipBytes"),
		DefaultFormat: viper.GetString("receiver.fileFormat"),
	}
}

// GetCheckpointConfig returns the checkpoint backend settings.
func GetCheckpointConfig() CheckpointConfig {
	return CheckpointConfig{
		Store:        viper.GetString("checkpoint.store"),
		Dir:          viper.GetString("checkpoint.dir"),
		Compress:     viper.GetBool("checkpoint.compress"),
		Validation:   viper.GetString("checkpoint.validation"),
		SQLitePath:   viper.GetString("checkpoint.sqlitePath"),
		MemoryExport: viper.GetString("checkpoint.memoryExport"),
	}
}

// GetDBConfig returns the Postgres connection settings.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetAcquisitionConfig returns the acquisition engine settings.
func GetAcquisitionConfig() AcquisitionConfig {
	return AcquisitionConfig{
		PRNs:        viper.GetIntSlice("acquisition.prns"),
		Threshold:   viper.GetFloat64("acquisition.threshold"),
		Bandwidth:   viper.GetFloat64("acquisition.bandwidth"),
		Step:        viper.GetFloat64("acquisition.step"),
		NonCoherent: viper.GetInt("acquisition.nonCoherent"),
		FineFreq:    viper.GetBool("acquisition.fineFreq"),
	}
}

// GetTrackingConfig returns the tracking loop settings.
func GetTrackingConfig() TrackingConfig {
	return TrackingConfig{
		DLLBandwidth:      viper.GetFloat64("tracking.dllBandwidth"),
		PLLBandwidth:      viper.GetFloat64("tracking.pllBandwidth"),
		FLLBandwidth:      viper.GetFloat64("tracking.fllBandwidth"),
		CorrelatorSpacing: viper.GetFloat64("tracking.correlatorSpacing"),
	}
}

// GetNavigationConfig returns the navigation solver settings.
func GetNavigationConfig() NavigationConfig {
	return NavigationConfig{
		SolutionPeriodMs: viper.GetInt("navigation.solutionPeriodMs"),
		MinSatellites:    viper.GetInt("navigation.minSatellites"),
		ElevationMaskDeg: viper.GetFloat64("navigation.elevationMaskDeg"),
	}
}

// GetInfluxConfig returns the InfluxDB export settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled: viper.GetBool("influx.enabled"),
		URL: fmt.Sprintf("%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetGraylogConfig returns the GELF shipping settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetExportConfig returns the post-navigation export settings.
func GetExportConfig() ExportConfig {
	return ExportConfig{
		GeoJSON: viper.GetBool("export.geojson"),
		PlotDir: viper.GetString("plot.dir"),
	}
}
