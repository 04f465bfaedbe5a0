// internal/config/config.go
//
// One validated configuration per run. Values come from defaults, then an
// optional YAML file, then command-line overrides applied by the caller.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Defaults for the run surface.
const (
	DefaultThreads      = 16
	DefaultEValue       = 1e-4
	DefaultLevelsUp     = 1
	DefaultThreshold    = 0.5
	DefaultSearchBinary = "diamond"
	DefaultCacheSize    = 65536
	DefaultStageTimeout = 48 * time.Hour
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	_ = validate.RegisterValidation("anchor", validateAnchor)
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// anchor is empty, "auto", or a taxid/label without whitespace.
func validateAnchor(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "" || !strings.ContainsAny(s, " \t\n")
}

// Run holds everything one pipeline run needs.
type Run struct {
	OutDir         string   `yaml:"out_dir" validate:"required"`
	Sequences      string   `yaml:"sequences" validate:"omitempty,file"`
	Tree           string   `yaml:"tree" validate:"required,file"`
	Correspondence string   `yaml:"correspondence" validate:"omitempty,file"`
	FirstHits      []string `yaml:"first_hits" validate:"dive,file"`
	SecondHits     []string `yaml:"second_hits" validate:"dive,file"`

	TargetDB        string   `yaml:"target_db"`
	ComprehensiveDB string   `yaml:"comprehensive_db"`
	SearchBinary    string   `yaml:"search_binary" validate:"required"`
	SearchArgs      []string `yaml:"search_args"`

	Threads   int     `yaml:"threads" validate:"gte=1,lte=4096"`
	EValue    float64 `yaml:"evalue" validate:"gt=0"`
	LevelsUp  int     `yaml:"levels_up" validate:"gte=0"`
	Threshold float64 `yaml:"threshold" validate:"gt=0,lte=1"`
	Mode      string  `yaml:"mode" validate:"oneof=species_percentage node_activation"`
	Weighting string  `yaml:"weighting" validate:"oneof=count presence bitscore"`
	Anchor    string  `yaml:"anchor" validate:"anchor"`
	CacheSize int     `yaml:"cache_size" validate:"gte=0"`

	StageTimeout time.Duration `yaml:"stage_timeout" validate:"gt=0"`
	Checkpoint   string        `yaml:"checkpoint_dir"`
	Resume       bool          `yaml:"resume"`
	SQLite       string        `yaml:"sqlite"`
	MetricsFile  string        `yaml:"metrics_file"`

	Output    string `yaml:"output" validate:"oneof=tsv json jsonl"`
	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=auto text json"`
	Quiet     bool   `yaml:"quiet"`
}

// Defaults returns a Run with every default applied.
func Defaults() Run {
	return Run{
		SearchBinary: DefaultSearchBinary,
		Threads:      DefaultThreads,
		EValue:       DefaultEValue,
		LevelsUp:     DefaultLevelsUp,
		Threshold:    DefaultThreshold,
		Mode:         "species_percentage",
		Weighting:    "count",
		CacheSize:    DefaultCacheSize,
		StageTimeout: DefaultStageTimeout,
		Output:       "tsv",
		LogLevel:     "info",
		LogFormat:    "auto",
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
func Load(path string) (Run, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field constraints and the cross-field rules a run needs.
func (c *Run) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if len(c.FirstHits) == 0 && (c.Sequences == "" || c.TargetDB == "") {
		return fmt.Errorf("%w: first_hits or sequences+target_db is required", ErrInvalid)
	}
	if len(c.SecondHits) == 0 && (c.Sequences == "" || c.ComprehensiveDB == "") {
		return fmt.Errorf("%w: second_hits or sequences+comprehensive_db is required", ErrInvalid)
	}
	if c.Mode == "node_activation" && c.Anchor == "" {
		return fmt.Errorf("%w: mode node_activation needs an anchor", ErrInvalid)
	}
	if c.Resume && c.Checkpoint == "" {
		return fmt.Errorf("%w: resume needs checkpoint_dir", ErrInvalid)
	}
	return nil
}
