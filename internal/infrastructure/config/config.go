package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/davidleathers/nanp-dialplan/internal/domain/values"
)

// DefaultPath is read when no config file is named explicitly
const DefaultPath = "configs/dialplan.yaml"

// EnvPrefix marks environment overrides: NANP_HOME_NPA -> home.npa,
// NANP_DIALING_PLANS__913__PRESET -> dialing.plans.913.preset
const EnvPrefix = "NANP_"

type Config struct {
	Environment string `koanf:"environment"`

	Home         HomeConfig         `koanf:"home"`
	Dialing      DialingConfig      `koanf:"dialing"`
	Normalize    NormalizeConfig    `koanf:"normalize"`
	Source       SourceConfig       `koanf:"source"`
	Redis        RedisConfig        `koanf:"redis"`
	Database     DatabaseConfig     `koanf:"database"`
	Provisioning ProvisioningConfig `koanf:"provisioning"`
	Telemetry    TelemetryConfig    `koanf:"telemetry"`
	Metrics      MetricsConfig      `koanf:"metrics"`
}

type HomeConfig struct {
	NPA string `koanf:"npa" validate:"omitempty,npa"`
	NXX string `koanf:"nxx" validate:"omitempty,nxx"`
}

type DialingConfig struct {
	Preset      string                        `koanf:"preset" validate:"oneof=standard hnpa10d"`
	MaxPatterns int                           `koanf:"max_patterns" validate:"gte=1"`
	MultiRange  bool                          `koanf:"multi_range"`
	Sequential  bool                          `koanf:"sequential"`
	Categories  map[string]CategoryPlanConfig `koanf:"categories" validate:"dive,keys,oneof=hnpa_local fnpa_local hnpa_toll fnpa_toll,endkeys"`
	Plans       map[string]PlanConfig         `koanf:"plans" validate:"dive,keys,npa,endkeys"`
}

// PlanConfig overrides the dialing plan for one home NPA
type PlanConfig struct {
	Preset     string                        `koanf:"preset" validate:"omitempty,oneof=standard hnpa10d"`
	Categories map[string]CategoryPlanConfig `koanf:"categories" validate:"dive,keys,oneof=hnpa_local fnpa_local hnpa_toll fnpa_toll,endkeys"`
}

type CategoryPlanConfig struct {
	Strip   int    `koanf:"strip" validate:"gte=0,lte=10"`
	Prepend string `koanf:"prepend"`
	Result  string `koanf:"result" validate:"oneof=7D 10D 1+10D 10+10D"`
}

type NormalizeConfig struct {
	SkipMalformed bool `koanf:"skip_malformed"`
}

type SourceConfig struct {
	Kind              string        `koanf:"kind" validate:"oneof=http file"`
	BaseURL           string        `koanf:"base_url" validate:"omitempty,url"`
	File              string        `koanf:"file"`
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gt=0"`
	Burst             int           `koanf:"burst" validate:"gte=1"`
	MaxRetries        int           `koanf:"max_retries" validate:"gte=0,lte=10"`
	RetryBackoff      time.Duration `koanf:"retry_backoff"`
	TollNPAs          []string      `koanf:"toll_npas" validate:"dive,npa"`
	CacheTTL          time.Duration `koanf:"cache_ttl"`
	UserAgent         string        `koanf:"user_agent"`
}

type RedisConfig struct {
	Enabled  bool   `koanf:"enabled"`
	URL      string `koanf:"url"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxConns        int32         `koanf:"max_conns" validate:"gte=1"`
	MinConns        int32         `koanf:"min_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type ProvisioningConfig struct {
	Sink        string `koanf:"sink" validate:"oneof=writer store"`
	Dialect     string `koanf:"dialect" validate:"oneof=ucm ios"`
	Format      string `koanf:"format" validate:"oneof=text json patterns"`
	Partition   string `koanf:"partition" validate:"required"`
	PatternKind string `koanf:"pattern_kind" validate:"oneof=transformation route"`
	RouteList   string `koanf:"route_list" validate:"required"`
	ReadOnly    bool   `koanf:"read_only"`
}

type TelemetryConfig struct {
	LogLevel       string  `koanf:"log_level" validate:"oneof=debug info warn warning error"`
	TracingEnabled bool    `koanf:"tracing_enabled"`
	MetricsEnabled bool    `koanf:"metrics_enabled"`
	Endpoint       string  `koanf:"endpoint"`
	ServiceName    string  `koanf:"service_name"`
	SampleRate     float64 `koanf:"sample_rate" validate:"gte=0,lte=1"`
}

type MetricsConfig struct {
	PushgatewayURL string `koanf:"pushgateway_url" validate:"omitempty,url"`
	Job            string `koanf:"job"`
}

// Defaults returns the configuration used when nothing else is set
func Defaults() *Config {
	return &Config{
		Environment: "development",
		Dialing: DialingConfig{
			Preset:      "standard",
			MaxPatterns: 5000,
		},
		Source: SourceConfig{
			Kind:              "http",
			BaseURL:           "https://www.localcallingguide.com",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 2,
			Burst:             1,
			MaxRetries:        3,
			RetryBackoff:      500 * time.Millisecond,
			CacheTTL:          24 * time.Hour,
			UserAgent:         "nanp-dialplan",
		},
		Database: DatabaseConfig{
			MaxConns:        4,
			MinConns:        0,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Provisioning: ProvisioningConfig{
			Sink:        "writer",
			Dialect:     "ucm",
			Format:      "text",
			Partition:   "local{npa}{nxx}",
			PatternKind: "transformation",
			RouteList:   "local{npa}{nxx}",
		},
		Telemetry: TelemetryConfig{
			LogLevel:    "info",
			ServiceName: "nanp-dialplan",
			SampleRate:  1,
		},
		Metrics: MetricsConfig{
			Job: "nanp_dialplan",
		},
	}
}

// Load reads the configuration like Read and validates the result
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read layers defaults, then the YAML file at path (optional when path is DefaultPath or
// empty), then NANP_ environment variables. The result is not validated, so callers can
// apply further overrides before calling Validate.
func Read(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	explicit := path != "" && path != DefaultPath
	if path == "" {
		path = DefaultPath
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// envKey maps NANP_SECTION_SOME_KEY to section.some_key; a double underscore nests further
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, rest, ok := strings.Cut(s, "_")
	if !ok {
		return section
	}
	return section + "." + strings.ReplaceAll(rest, "__", ".")
}

// Validate checks the configuration against its struct tags, including every category
// override, then the cross-field rules
func (c *Config) Validate() error {
	v := newValidator()
	if err := v.Struct(c); err != nil {
		return invalid("", err)
	}

	// map values are not reached by the keys-only dive on the map fields
	if err := validateCategories(v, "dialing.categories", c.Dialing.Categories); err != nil {
		return err
	}
	for _, npa := range sortedKeys(c.Dialing.Plans) {
		if err := validateCategories(v, "dialing.plans."+npa+".categories", c.Dialing.Plans[npa].Categories); err != nil {
			return err
		}
	}

	switch {
	case c.Source.Kind == "http" && c.Source.BaseURL == "":
		return fmt.Errorf("invalid configuration: source.base_url is required for http sources")
	case c.Source.Kind == "file" && c.Source.File == "":
		return fmt.Errorf("invalid configuration: source.file is required for file sources")
	case c.Redis.Enabled && c.Redis.URL == "":
		return fmt.Errorf("invalid configuration: redis.url is required when redis is enabled")
	case c.Provisioning.Sink == "store" && c.Database.URL == "":
		return fmt.Errorf("invalid configuration: database.url is required for the store sink")
	case c.Provisioning.PatternKind == "route" && c.Provisioning.Dialect != "ucm":
		return fmt.Errorf("invalid configuration: route patterns require the ucm dialect")
	}
	return nil
}

func validateCategories(v *validator.Validate, path string, categories map[string]CategoryPlanConfig) error {
	for _, key := range sortedKeys(categories) {
		if err := v.Struct(categories[key]); err != nil {
			return invalid(path+"."+key+": ", err)
		}
	}
	return nil
}

func invalid(prefix string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %s%w", prefix, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s%s failed %q (value %v)", prefix, fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("npa", validateCode)
	v.RegisterValidation("nxx", validateCode)
	return v
}

// validateCode accepts a 3-digit NANP code with a leading 2-9
func validateCode(fl validator.FieldLevel) bool {
	return values.IsValidCode(fl.Field().String())
}
