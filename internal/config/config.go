package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// RateLimit is a per-host token-bucket budget.
type RateLimit struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

// DataSourceConfig is one collection agent's fetchable endpoint set: a
// list of URL templates (placeholders `{station}`, `{date}`, `{hour}`
// expanded per-agent) and the station/region identifiers it iterates
// over.
type DataSourceConfig struct {
	URLTemplates []string `yaml:"url_templates"`
	Stations     []string `yaml:"stations"`
}

// ShoreScale is the Hawaiian-scale conversion factor applied for one
// shore: face_height_ft = swell_height_ft * Multiplier + PeriodBonus *
// max(0, period_s - PeriodBonusRef).
type ShoreScale struct {
	Multiplier     float64 `yaml:"multiplier"`
	PeriodBonus    float64 `yaml:"period_bonus"`
	PeriodBonusRef float64 `yaml:"period_bonus_ref_seconds"`
}

// Config holds all service settings. Defaults are applied first, then an
// optional YAML file (CONFIG_FILE) is merged over them, then environment
// variables win over both since they are read last.
type Config struct {
	LogLevel        string
	LogFormat       string
	HTTPAddr        string
	ShutdownTimeout time.Duration
	DataRoot        string

	MaxConcurrent int
	FetchTimeout  time.Duration
	DBConnTimeout time.Duration
	RateLimits    map[string]RateLimit

	MaxArchiveMemberBytes int64
	MaxArchiveTotalBytes  int64
	MaxCompressionRatio   float64

	TokenBudget             int
	WarnThreshold           float64
	EnableBudgetEnforcement bool

	DBPath                string
	LookbackDays          int
	MinSamples            int
	OutlierThresholdFt    float64
	EnableAdaptivePrompts bool

	AllowedDataDomains []string

	ShoreScales map[string]ShoreScale

	DataSources map[string]DataSourceConfig
}

// defaults returns the built-in baseline before any YAML/env overrides.
func defaults() Config {
	return Config{
		LogLevel:        "info",
		LogFormat:       "json",
		HTTPAddr:        ":8080",
		ShutdownTimeout: 10 * time.Second,
		DataRoot:        "./data",

		MaxConcurrent: 10,
		FetchTimeout:  30 * time.Second,
		DBConnTimeout: 60 * time.Second,
		RateLimits:    map[string]RateLimit{},

		MaxArchiveMemberBytes: 100 * 1024 * 1024,
		MaxArchiveTotalBytes:  1024 * 1024 * 1024,
		MaxCompressionRatio:   100,

		TokenBudget:             0,
		WarnThreshold:           0.8,
		EnableBudgetEnforcement: false,

		DBPath:                "./data/validation.db",
		LookbackDays:          14,
		MinSamples:            10,
		OutlierThresholdFt:    10,
		EnableAdaptivePrompts: true,

		AllowedDataDomains: nil,

		ShoreScales: map[string]ShoreScale{
			"north": {Multiplier: 1.35, PeriodBonus: 0.10, PeriodBonusRef: 12},
			"south": {Multiplier: 1.00, PeriodBonus: 0, PeriodBonusRef: 12},
			"east":  {Multiplier: 0.55, PeriodBonus: 0, PeriodBonusRef: 12},
			"west":  {Multiplier: 0.90, PeriodBonus: 0.05, PeriodBonusRef: 12},
		},

		DataSources: defaultDataSources(),
	}
}

// defaultDataSources lists the upstream endpoints enumerated in the
// external-interfaces surface: NDBC realtime text/spectra, CDIP THREDDS
// NetCDF with an NDBC-text fallback, PacIOOS ERDDAP gridded wave-model
// CSV, NOAA ERDDAP altimetry, SPC upper-air analysis GIFs, and the
// simple-shaped agents (weather/tides/tropical/chart/satellite/
// climatology).
func defaultDataSources() map[string]DataSourceConfig {
	return map[string]DataSourceConfig{
		"buoy": {
			URLTemplates: []string{
				"https://www.ndbc.noaa.gov/data/realtime2/{station}.txt",
				"https://www.ndbc.noaa.gov/data/realtime2/{station}.spec",
				"https://www.ndbc.noaa.gov/data/realtime2/{station}.data_spec",
			},
			Stations: []string{"51201", "51202", "51203", "51205", "51206", "51207", "51208", "51210", "51211"},
		},
		"cdip": {
			URLTemplates: []string{
				"https://thredds.cdip.ucsd.edu/thredds/fileServer/cdip/realtime/{station}p1_rt.nc",
			},
			Stations: []string{"098", "106", "165", "225"},
		},
		"wavemodel": {
			URLTemplates: []string{
				"https://pae-paha.pacioos.hawaii.edu/erddap/griddap/ww3_hawaii.csv?Thgt,Tper,Tdir[(latest)][(18):(23)][(199):(206)]",
				"https://pae-paha.pacioos.hawaii.edu/erddap/griddap/ww3_global.csv?Thgt,Tper,Tdir[(latest)][(18):(23)][(199):(206)]",
			},
		},
		"altimetry": {
			URLTemplates: []string{
				"https://coastwatch.pfeg.noaa.gov/erddap/griddap/jasonAltimetry.graph?wave_height[(latest)][(18):(23)][(199):(206)]&.draw=surface",
				"https://coastwatch.pfeg.noaa.gov/erddap/files/jasonAltimetry/latest.zip",
			},
		},
		"upperair": {
			URLTemplates: []string{
				"https://www.spc.noaa.gov/obswx/maps/250_{date}_00.gif",
				"https://www.spc.noaa.gov/obswx/maps/500_{date}_00.gif",
			},
		},
		"weather": {
			URLTemplates: []string{"https://forecast.weather.gov/MapClick.php?lat={lat}&lon={lon}&FcstType=json"},
		},
		"tides": {
			URLTemplates: []string{"https://api.tidesandcurrents.noaa.gov/api/prod/datagetter?station={station}&product=predictions&datum=MLLW&time_zone=gmt&units=english&format=json"},
			Stations:     []string{"1612340", "1611400"},
		},
		"tropical": {
			URLTemplates: []string{"https://www.nhc.noaa.gov/CurrentStorms.json"},
		},
		"chart": {
			URLTemplates: []string{"https://ocean.weather.gov/P_sfc_full_ocean_color.png"},
		},
		"satellite": {
			URLTemplates: []string{"https://www.star.nesdis.noaa.gov/GOES/sector_band.php?sat=G18&sector=hi&band=GEOCOLOR&length=24"},
		},
		"climatology": {
			URLTemplates: []string{"https://www.ndbc.noaa.gov/data/climatic/{station}.txt"},
			Stations:     []string{"51201", "51202"},
		},
	}
}

// Load builds a Config from defaults, an optional YAML file named by
// CONFIG_FILE, and environment variables, in that override order.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		fileCfg, err := loadYAML(path)
		if err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
		if err := mergo.Merge(&cfg, fileCfg, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge config file: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadYAML(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.HTTPAddr = envOrDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.DataRoot = envOrDefault("DATA_ROOT", cfg.DataRoot)
	cfg.DBPath = envOrDefault("VALIDATION_DB_PATH", cfg.DBPath)

	if v, ok, err := envDuration("SHUTDOWN_TIMEOUT"); err != nil {
		return err
	} else if ok {
		cfg.ShutdownTimeout = v
	}
	if v, ok, err := envDuration("FETCH_TIMEOUT"); err != nil {
		return err
	} else if ok {
		cfg.FetchTimeout = v
	}
	if v, ok, err := envDuration("DB_CONN_TIMEOUT"); err != nil {
		return err
	} else if ok {
		cfg.DBConnTimeout = v
	}

	if v, ok, err := envInt("MAX_CONCURRENT"); err != nil {
		return err
	} else if ok {
		cfg.MaxConcurrent = v
	}
	if v, ok, err := envInt64("SECURITY_MAX_ARCHIVE_MEMBER_BYTES"); err != nil {
		return err
	} else if ok {
		cfg.MaxArchiveMemberBytes = v
	}
	if v, ok, err := envInt64("SECURITY_MAX_ARCHIVE_TOTAL_BYTES"); err != nil {
		return err
	} else if ok {
		cfg.MaxArchiveTotalBytes = v
	}
	if v, ok, err := envFloat("SECURITY_MAX_COMPRESSION_RATIO"); err != nil {
		return err
	} else if ok {
		cfg.MaxCompressionRatio = v
	}

	if v, ok, err := envInt("FORECAST_TOKEN_BUDGET"); err != nil {
		return err
	} else if ok {
		cfg.TokenBudget = v
	}
	if v, ok, err := envFloat("FORECAST_WARN_THRESHOLD"); err != nil {
		return err
	} else if ok {
		cfg.WarnThreshold = v
	}
	if v := os.Getenv("FORECAST_ENABLE_BUDGET_ENFORCEMENT"); v != "" {
		cfg.EnableBudgetEnforcement = v == "true"
	}

	if v, ok, err := envInt("VALIDATION_LOOKBACK_DAYS"); err != nil {
		return err
	} else if ok {
		cfg.LookbackDays = v
	}
	if v, ok, err := envInt("VALIDATION_MIN_SAMPLES"); err != nil {
		return err
	} else if ok {
		cfg.MinSamples = v
	}
	if v, ok, err := envFloat("VALIDATION_OUTLIER_THRESHOLD_FT"); err != nil {
		return err
	} else if ok {
		cfg.OutlierThresholdFt = v
	}
	if v := os.Getenv("VALIDATION_ENABLE_ADAPTIVE_PROMPTS"); v != "" {
		cfg.EnableAdaptivePrompts = v == "true"
	}

	if v := os.Getenv("SECURITY_ALLOWED_DATA_DOMAINS"); v != "" {
		cfg.AllowedDataDomains = parseList(v)
	}

	return nil
}

func validate(cfg *Config) error {
	if cfg.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}
	if cfg.FetchTimeout <= 0 {
		return errors.New("FETCH_TIMEOUT must be positive")
	}
	if cfg.MaxConcurrent <= 0 {
		return errors.New("MAX_CONCURRENT must be positive")
	}
	if cfg.MaxArchiveMemberBytes <= 0 || cfg.MaxArchiveTotalBytes <= 0 {
		return errors.New("archive size limits must be positive")
	}
	if cfg.MaxCompressionRatio <= 0 {
		return errors.New("SECURITY_MAX_COMPRESSION_RATIO must be positive")
	}
	if cfg.LookbackDays <= 0 {
		return errors.New("VALIDATION_LOOKBACK_DAYS must be positive")
	}
	if cfg.MinSamples <= 0 {
		return errors.New("VALIDATION_MIN_SAMPLES must be positive")
	}
	if cfg.DBPath == "" {
		return errors.New("VALIDATION_DB_PATH is required")
	}
	if cfg.EnableBudgetEnforcement && cfg.TokenBudget <= 0 {
		return errors.New("FORECAST_ENABLE_BUDGET_ENFORCEMENT is true but FORECAST_TOKEN_BUDGET is not set")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string) (time.Duration, bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return 0, false, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, true, nil
}

func envInt(key string) (int, bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, true, nil
}

func envInt64(key string) (int64, bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, true, nil
}

func envFloat(key string) (float64, bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, true, nil
}

func parseList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
