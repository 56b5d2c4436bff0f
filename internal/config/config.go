package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/ocean-sample-etl/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all extraction settings, populated from environment variables.
type Config struct {
	MITgcmFile      string
	ClimatologyFile string
	DensityFile     string
	OutputDir       string
	DataNamePrefix  string

	Run domain.RunConfig

	TrainValSplitRatio float64
	ValTestSplitRatio  float64
	SubsampleRate      int
	DataEndIndex       int
	ShuffleSeed        int64
	Wrap               domain.WrapLimits

	NormalizeStrict bool
	SaveArrays      bool
	PlotHistograms  bool
	FrameCacheSize  int

	LogLevel        string
	LogFormat       string
	LogFile         string
	HTTPAddr        string
	PushgatewayURL  string
	ShutdownTimeout time.Duration

	KafkaBrokers     []string
	KafkaNotifyTopic string
}

// DataName is the artefact tag, e.g.
// "alpha.001_3dLatLonDepUVBolSalEtaDnsPolyDeg1_Step1_PredictDelT".
func (c *Config) DataName() string {
	return c.DataNamePrefix + "_" + c.Run.DataName() + "_PredictDelT"
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	p := &parser{}
	cfg := &Config{
		MITgcmFile:      os.Getenv("MITGCM_FILE"),
		ClimatologyFile: os.Getenv("CLIMATOLOGY_FILE"),
		DensityFile:     os.Getenv("DENSITY_FILE"),
		OutputDir:       sharedcfg.EnvOrDefault("OUTPUT_DIR", "outputs"),
		DataNamePrefix:  sharedcfg.EnvOrDefault("DATA_NAME_PREFIX", "alpha.001"),

		Run: domain.RunConfig{
			Dimension:  p.intVar("RUN_DIMENSION", 3),
			Sal:        p.boolVar("RUN_SAL", true),
			Current:    p.boolVar("RUN_CURRENT", true),
			BolusVel:   p.boolVar("RUN_BOLUS_VEL", true),
			Density:    p.boolVar("RUN_DENSITY", true),
			Eta:        p.boolVar("RUN_ETA", true),
			Lat:        p.boolVar("RUN_LAT", true),
			Lon:        p.boolVar("RUN_LON", true),
			Dep:        p.boolVar("RUN_DEP", true),
			PolyDegree: p.intVar("RUN_POLY_DEGREE", 1),
			StepSize:   p.intVar("RUN_STEP_SIZE", 1),
		},

		TrainValSplitRatio: p.floatVar("TRAINVAL_SPLIT_RATIO", 0.7),
		ValTestSplitRatio:  p.floatVar("VALTEST_SPLIT_RATIO", 0.9),
		SubsampleRate:      p.intVar("SUBSAMPLE_RATE", 200),
		DataEndIndex:       p.intVar("DATA_END_INDEX", 7200),
		ShuffleSeed:        int64(p.intVar("SHUFFLE_SEED", 5)),
		Wrap: domain.WrapLimits{
			YUpper: p.intVar("WRAP_Y_UPPER", domain.DefaultWrapLimits.YUpper),
			ZUpper: p.intVar("WRAP_Z_UPPER", domain.DefaultWrapLimits.ZUpper),
		},

		NormalizeStrict: p.boolVar("NORMALIZE_STRICT", false),
		SaveArrays:      p.boolVar("SAVE_ARRAYS", false),
		PlotHistograms:  p.boolVar("PLOT_HISTOGRAMS", false),
		FrameCacheSize:  p.intVar("FRAME_CACHE_SIZE", 2),

		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		LogFile:         os.Getenv("LOG_FILE"),
		HTTPAddr:        httpAddr(),
		PushgatewayURL:  os.Getenv("PUSHGATEWAY_URL"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaNotifyTopic: os.Getenv("KAFKA_NOTIFY_TOPIC"),
	}
	if p.err != nil {
		return nil, p.err
	}

	if cfg.MITgcmFile == "" {
		return nil, errors.New("MITGCM_FILE is required")
	}
	if cfg.ClimatologyFile == "" {
		return nil, errors.New("CLIMATOLOGY_FILE is required")
	}
	if cfg.Run.Density && cfg.DensityFile == "" {
		return nil, errors.New("DENSITY_FILE is required when RUN_DENSITY is true")
	}
	if err := cfg.Run.Validate(); err != nil {
		return nil, fmt.Errorf("RUN_DIMENSION/RUN_POLY_DEGREE/RUN_STEP_SIZE: %w", err)
	}
	if cfg.SubsampleRate < 1 {
		return nil, errors.New("SUBSAMPLE_RATE must be at least 1")
	}
	if cfg.DataEndIndex < 1 {
		return nil, errors.New("DATA_END_INDEX must be positive")
	}
	if cfg.TrainValSplitRatio <= 0 || cfg.TrainValSplitRatio > cfg.ValTestSplitRatio || cfg.ValTestSplitRatio > 1 {
		return nil, errors.New("TRAINVAL_SPLIT_RATIO and VALTEST_SPLIT_RATIO must satisfy 0 < train <= val <= 1")
	}
	if cfg.FrameCacheSize < 1 {
		return nil, errors.New("FRAME_CACHE_SIZE must be at least 1")
	}
	if cfg.KafkaNotifyTopic != "" && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_NOTIFY_TOPIC is set")
	}

	return cfg, nil
}

// parser reads typed variables and keeps the first error.
type parser struct {
	err error
}

func (p *parser) intVar(name string, def int) int {
	s := os.Getenv(name)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.fail(fmt.Errorf("invalid %s: %w", name, err))
		return def
	}
	return n
}

func (p *parser) floatVar(name string, def float64) float64 {
	s := os.Getenv(name)
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.fail(fmt.Errorf("invalid %s: %w", name, err))
		return def
	}
	return f
}

func (p *parser) boolVar(name string, def bool) bool {
	s := os.Getenv(name)
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		p.fail(fmt.Errorf("invalid %s: %w", name, err))
		return def
	}
	return b
}

func (p *parser) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

// httpAddr keeps an explicitly empty HTTP_ADDR, which disables the server.
func httpAddr() string {
	if v, ok := os.LookupEnv("HTTP_ADDR"); ok {
		return v
	}
	return ":8080"
}
