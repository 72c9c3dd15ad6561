// Package config loads static process configuration from environment variables and an optional .env file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/LdDl/refdist-go/refdist"
	"github.com/LdDl/refdist-go/report"
	"github.com/LdDl/refdist-go/vision"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Config holds every tunable of the process. It is immutable after start
type Config struct {
	// Detection
	MinContourArea float64 `validate:"gte=0"`     // Blobs must have area strictly above this, px^2
	KernelSize     int     `validate:"min=1,odd"` // Morphology structuring element side

	// Tracking
	MatchRadius float64 `validate:"gt=0"` // Re-detection radius of the reference, px

	// Calibration
	ReferenceWidthCm float64 `validate:"gt=0"`
	BlurKernel       int     `validate:"min=1,odd"`
	Threshold        float64 `validate:"gte=0,lte=255"`
	MinCardArea      float64 `validate:"gte=0"`
	EpsilonRatio     float64 `validate:"gt=0,lt=1"`

	// Frame source: camera index or path/URL of a video
	Source     string `validate:"required"`
	ShowWindow bool
	WindowName string

	// Command surface, empty disables HTTP
	HTTPAddr string

	// Report sinks
	ReportJSON    string // Path of JSON lines file, "-" for stdout
	ReportCSV     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int `validate:"gte=0"`
	RedisChannel  string
	RedisTTL      time.Duration `validate:"gte=0"`

	// Logging
	LogLevel string `validate:"oneof=trace debug info warn error"`
	LogFile  string
}

// Default returns configuration with default thresholds
func Default() Config {
	calib := vision.DefaultCalibratorConfig()
	return Config{
		MinContourArea:   vision.DefaultMinContourArea,
		KernelSize:       vision.DefaultKernelSize,
		MatchRadius:      refdist.DefaultMatchRadius,
		ReferenceWidthCm: calib.ReferenceWidthCm,
		BlurKernel:       calib.BlurKernel,
		Threshold:        float64(calib.Threshold),
		MinCardArea:      calib.MinCardArea,
		EpsilonRatio:     calib.EpsilonRatio,
		Source:           "0",
		ShowWindow:       true,
		WindowName:       "Object Distance Tracker",
		RedisChannel:     report.DefaultRedisChannel,
		RedisTTL:         time.Minute,
		LogLevel:         "info",
	}
}

// Load reads .env files (missing files are ignored) and REFDIST_* variables on top of defaults, then validates result
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(errors.Cause(err)) {
			return Config{}, errors.Wrapf(err, "can't load %s", file)
		}
	}
	cfg := Default()
	if err := cfg.fromEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type lookupFunc func(key string) (string, bool)

func (cfg *Config) fromEnv(lookup lookupFunc) error {
	p := parser{lookup: lookup}
	p.getFloat("REFDIST_MIN_CONTOUR_AREA", &cfg.MinContourArea)
	p.getInt("REFDIST_KERNEL_SIZE", &cfg.KernelSize)
	p.getFloat("REFDIST_MATCH_RADIUS", &cfg.MatchRadius)
	p.getFloat("REFDIST_REFERENCE_WIDTH_CM", &cfg.ReferenceWidthCm)
	p.getInt("REFDIST_BLUR_KERNEL", &cfg.BlurKernel)
	p.getFloat("REFDIST_THRESHOLD", &cfg.Threshold)
	p.getFloat("REFDIST_MIN_CARD_AREA", &cfg.MinCardArea)
	p.getFloat("REFDIST_EPSILON_RATIO", &cfg.EpsilonRatio)
	p.getString("REFDIST_SOURCE", &cfg.Source)
	p.getBool("REFDIST_SHOW_WINDOW", &cfg.ShowWindow)
	p.getString("REFDIST_WINDOW_NAME", &cfg.WindowName)
	p.getString("REFDIST_HTTP_ADDR", &cfg.HTTPAddr)
	p.getString("REFDIST_REPORT_JSON", &cfg.ReportJSON)
	p.getString("REFDIST_REPORT_CSV", &cfg.ReportCSV)
	p.getString("REFDIST_REDIS_ADDR", &cfg.RedisAddr)
	p.getString("REFDIST_REDIS_PASSWORD", &cfg.RedisPassword)
	p.getInt("REFDIST_REDIS_DB", &cfg.RedisDB)
	p.getString("REFDIST_REDIS_CHANNEL", &cfg.RedisChannel)
	p.getDuration("REFDIST_REDIS_TTL", &cfg.RedisTTL)
	p.getString("REFDIST_LOG_LEVEL", &cfg.LogLevel)
	p.getString("REFDIST_LOG_FILE", &cfg.LogFile)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	return p.err
}

// Validate checks value ranges
func (cfg Config) Validate() error {
	validate := validator.New()
	if err := validate.RegisterValidation("odd", validateOdd); err != nil {
		return errors.Wrap(err, "can't register validator")
	}
	if err := validate.Struct(cfg); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}

func validateOdd(fl validator.FieldLevel) bool {
	return fl.Field().Int()%2 == 1
}

// CalibratorConfig extracts calibration settings
func (cfg Config) CalibratorConfig() vision.CalibratorConfig {
	return vision.CalibratorConfig{
		ReferenceWidthCm: cfg.ReferenceWidthCm,
		BlurKernel:       cfg.BlurKernel,
		Threshold:        float32(cfg.Threshold),
		MinCardArea:      cfg.MinCardArea,
		EpsilonRatio:     cfg.EpsilonRatio,
	}
}

// Detector builds detector over the default color table
func (cfg Config) Detector() *vision.Detector {
	return vision.NewDetector(
		refdist.DefaultColorTable(),
		vision.NewSegmenter(cfg.KernelSize),
		vision.NewContourExtractor(cfg.MinContourArea),
	)
}

// CameraIndex returns numeric camera index if Source is one
func (cfg Config) CameraIndex() (int, bool) {
	idx, err := strconv.Atoi(cfg.Source)
	if err != nil {
		return 0, false
	}
	return idx, true
}

// parser collects the first conversion error
type parser struct {
	lookup lookupFunc
	err    error
}

func (p *parser) value(key string) (string, bool) {
	if p.err != nil {
		return "", false
	}
	v, ok := p.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (p *parser) getString(key string, dst *string) {
	if v, ok := p.value(key); ok {
		*dst = v
	}
}

func (p *parser) getFloat(key string, dst *float64) {
	if v, ok := p.value(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			p.err = errors.Wrapf(err, "can't parse %s", key)
			return
		}
		*dst = f
	}
}

func (p *parser) getInt(key string, dst *int) {
	if v, ok := p.value(key); ok {
		i, err := strconv.Atoi(v)
		if err != nil {
			p.err = errors.Wrapf(err, "can't parse %s", key)
			return
		}
		*dst = i
	}
}

func (p *parser) getBool(key string, dst *bool) {
	if v, ok := p.value(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			p.err = errors.Wrapf(err, "can't parse %s", key)
			return
		}
		*dst = b
	}
}

func (p *parser) getDuration(key string, dst *time.Duration) {
	if v, ok := p.value(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			p.err = errors.Wrapf(err, "can't parse %s", key)
			return
		}
		*dst = d
	}
}
