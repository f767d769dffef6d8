// Package config loads adjointmc settings with viper.
//
// Lengths are in mm and energies in MeV.
package config

import (
	"fmt"
	"io"
	"math"
	"runtime"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/lukaszgryglicki/adjointmc/internal/adjoint"
)

// EnvPrefix prefixes every environment override, e.g. ADJOINTMC_RUN_EVENTS.
const EnvPrefix = "ADJOINTMC"

// Source kinds accepted by SourceConfig.Kind.
const (
	SourceNone           = "none"
	SourceSphere         = "sphere"
	SourceSphereOnVolume = "sphere_on_volume"
	SourceVolume         = "volume"
)

type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Run       RunConfig       `mapstructure:"run" yaml:"run"`
	Transport TransportConfig `mapstructure:"transport" yaml:"transport"`
	Geometry  GeometryConfig  `mapstructure:"geometry" yaml:"geometry"`
	Adjoint   AdjointConfig   `mapstructure:"adjoint" yaml:"adjoint"`
	Tally     TallyConfig     `mapstructure:"tally" yaml:"tally"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
}

// RunConfig sizes a run. Events are per adjoint primary type; zero workers
// runs sequentially.
type RunConfig struct {
	Events   int   `mapstructure:"events" yaml:"events"`
	Workers  int   `mapstructure:"workers" yaml:"workers"`
	Seed     int64 `mapstructure:"seed" yaml:"seed"`
	TrackLog bool  `mapstructure:"track_log" yaml:"track_log"`
}

type TransportConfig struct {
	MaxSteps      int     `mapstructure:"max_steps" yaml:"max_steps"`
	MeanFreePath  float64 `mapstructure:"mean_free_path" yaml:"mean_free_path"`
	MaxStepLength float64 `mapstructure:"max_step_length" yaml:"max_step_length"`
	AdjointGain   float64 `mapstructure:"adjoint_gain" yaml:"adjoint_gain"`
	ForwardLoss   float64 `mapstructure:"forward_loss" yaml:"forward_loss"`
	ForwardCut    float64 `mapstructure:"forward_cut" yaml:"forward_cut"`
}

type Vec3 struct {
	X float64 `mapstructure:"x" yaml:"x"`
	Y float64 `mapstructure:"y" yaml:"y"`
	Z float64 `mapstructure:"z" yaml:"z"`
}

func (v Vec3) finite() bool {
	return !math.IsNaN(v.X+v.Y+v.Z) && !math.IsInf(v.X+v.Y+v.Z, 0)
}

type GeometryConfig struct {
	WorldName string         `mapstructure:"world_name" yaml:"world_name"`
	WorldHalf Vec3           `mapstructure:"world_half" yaml:"world_half"`
	Volumes   []VolumeConfig `mapstructure:"volumes" yaml:"volumes"`
}

// VolumeConfig is a box (Half) or a ball (Radius) placed inside the world.
type VolumeConfig struct {
	Name   string  `mapstructure:"name" yaml:"name"`
	Shape  string  `mapstructure:"shape" yaml:"shape"`
	Center Vec3    `mapstructure:"center" yaml:"center"`
	Half   Vec3    `mapstructure:"half" yaml:"half,omitempty"`
	Radius float64 `mapstructure:"radius" yaml:"radius,omitempty"`
}

// SourceConfig places the adjoint or the external source.
type SourceConfig struct {
	Kind   string  `mapstructure:"kind" yaml:"kind"`
	Radius float64 `mapstructure:"radius" yaml:"radius,omitempty"`
	Center Vec3    `mapstructure:"center" yaml:"center"`
	Volume string  `mapstructure:"volume" yaml:"volume,omitempty"`
}

type IonConfig struct {
	Adjoint string `mapstructure:"adjoint" yaml:"adjoint"`
	Forward string `mapstructure:"forward" yaml:"forward"`
}

type WeightConfig struct {
	Particle string  `mapstructure:"particle" yaml:"particle"`
	Weight   float64 `mapstructure:"weight" yaml:"weight"`
}

type AdjointConfig struct {
	Primaries         []string       `mapstructure:"primaries" yaml:"primaries"`
	Ion               IonConfig      `mapstructure:"ion" yaml:"ion"`
	Weights           []WeightConfig `mapstructure:"weights" yaml:"weights,omitempty"`
	GammasPerEvent    int            `mapstructure:"gammas_per_event" yaml:"gammas_per_event"`
	ElectronsPerEvent int            `mapstructure:"electrons_per_event" yaml:"electrons_per_event"`
	FwdGammasPerEvent int            `mapstructure:"fwd_gammas_per_event" yaml:"fwd_gammas_per_event"`
	Emin              float64        `mapstructure:"emin" yaml:"emin"`
	Emax              float64        `mapstructure:"emax" yaml:"emax"`
	Spectrum          string         `mapstructure:"spectrum" yaml:"spectrum"`
	Angular           string         `mapstructure:"angular" yaml:"angular"`
	AdjointSource     SourceConfig   `mapstructure:"adjoint_source" yaml:"adjoint_source"`
	ExternalSource    SourceConfig   `mapstructure:"external_source" yaml:"external_source"`
	// ExtEmax kills adjoint tracks above it; zero means no limit.
	ExtEmax float64 `mapstructure:"ext_emax" yaml:"ext_emax"`
}

// TallyConfig bins record weights by kinetic energy per nucleon.
type TallyConfig struct {
	Bins   int     `mapstructure:"bins" yaml:"bins"`
	Emin   float64 `mapstructure:"emin" yaml:"emin"`
	Emax   float64 `mapstructure:"emax" yaml:"emax"`
	RawOut string  `mapstructure:"raw_out" yaml:"raw_out,omitempty"`
}

type OutputConfig struct {
	DB   string `mapstructure:"db" yaml:"db"`
	Save bool   `mapstructure:"save" yaml:"save"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration parameter.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "adjointmc")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Run --
	v.SetDefault("run.events", 1000)
	v.SetDefault("run.workers", runtime.NumCPU())
	v.SetDefault("run.seed", 1)
	v.SetDefault("run.track_log", false)

	// -- Transport --
	v.SetDefault("transport.max_steps", 10000)
	v.SetDefault("transport.mean_free_path", 50.0)
	v.SetDefault("transport.max_step_length", 100.0)
	v.SetDefault("transport.adjoint_gain", 0.2)
	v.SetDefault("transport.forward_loss", 0.2)
	v.SetDefault("transport.forward_cut", 1e-3)

	// -- Geometry --
	v.SetDefault("geometry.world_name", "world")
	v.SetDefault("geometry.world_half.x", 1000.0)
	v.SetDefault("geometry.world_half.y", 1000.0)
	v.SetDefault("geometry.world_half.z", 1000.0)
	v.SetDefault("geometry.volumes", []map[string]any{{
		"name":   "detector",
		"shape":  "box",
		"center": map[string]any{"x": 0.0, "y": 0.0, "z": 0.0},
		"half":   map[string]any{"x": 10.0, "y": 10.0, "z": 10.0},
	}})

	// -- Adjoint --
	v.SetDefault("adjoint.primaries", []string{"e-", "gamma"})
	v.SetDefault("adjoint.gammas_per_event", 1)
	v.SetDefault("adjoint.electrons_per_event", 1)
	v.SetDefault("adjoint.fwd_gammas_per_event", 0)
	v.SetDefault("adjoint.emin", 0.01)
	v.SetDefault("adjoint.emax", 10.0)
	v.SetDefault("adjoint.spectrum", "log")
	v.SetDefault("adjoint.angular", "cosine")
	v.SetDefault("adjoint.adjoint_source.kind", SourceVolume)
	v.SetDefault("adjoint.adjoint_source.volume", "detector")
	v.SetDefault("adjoint.external_source.kind", SourceSphere)
	v.SetDefault("adjoint.external_source.radius", 500.0)
	v.SetDefault("adjoint.external_source.center.x", 0.0)
	v.SetDefault("adjoint.external_source.center.y", 0.0)
	v.SetDefault("adjoint.external_source.center.z", 0.0)
	v.SetDefault("adjoint.ext_emax", 0.0)

	// -- Tally --
	v.SetDefault("tally.bins", 40)
	v.SetDefault("tally.emin", 1e-3)
	v.SetDefault("tally.emax", 1e4)
	v.SetDefault("tally.raw_out", "")

	// -- Output / Metrics --
	v.SetDefault("output.db", "adjointmc.db")
	v.SetDefault("output.save", false)
	v.SetDefault("metrics.addr", "")
}

// NewConfigFromViper creates a validated configuration from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// BindEnv wires ADJOINTMC_* variables into v.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Run.Events < 0 {
		return fmt.Errorf("run.events must be >= 0")
	}
	if c.Run.Workers < 0 {
		return fmt.Errorf("run.workers must be >= 0")
	}
	if err := c.Transport.Validate(); err != nil {
		return fmt.Errorf("transport configuration invalid: %w", err)
	}
	if err := c.Geometry.Validate(); err != nil {
		return fmt.Errorf("geometry configuration invalid: %w", err)
	}
	if err := c.Adjoint.Validate(); err != nil {
		return fmt.Errorf("adjoint configuration invalid: %w", err)
	}
	if c.Tally.Bins < 1 || !(c.Tally.Emin > 0) || !(c.Tally.Emax > c.Tally.Emin) || math.IsInf(c.Tally.Emax, 0) {
		return fmt.Errorf("tally needs bins >= 1 and 0 < emin < emax")
	}
	if c.Output.Save && c.Output.DB == "" {
		return fmt.Errorf("output.db is required when output.save is set")
	}
	return nil
}

func (t *TransportConfig) Validate() error {
	if t.MaxSteps < 1 {
		return fmt.Errorf("max_steps must be >= 1")
	}
	if !(t.MeanFreePath > 0) || !(t.MaxStepLength > 0) {
		return fmt.Errorf("mean_free_path and max_step_length must be > 0")
	}
	if t.AdjointGain < 0 || t.ForwardLoss < 0 || t.ForwardLoss >= 1 || t.ForwardCut < 0 {
		return fmt.Errorf("adjoint_gain, forward_loss and forward_cut out of range")
	}
	return nil
}

func (g *GeometryConfig) Validate() error {
	if g.WorldName == "" {
		return fmt.Errorf("world_name is required")
	}
	if !(g.WorldHalf.X > 0 && g.WorldHalf.Y > 0 && g.WorldHalf.Z > 0) || !g.WorldHalf.finite() {
		return fmt.Errorf("world_half must be positive")
	}
	seen := map[string]bool{g.WorldName: true}
	for i, vol := range g.Volumes {
		if vol.Name == "" {
			return fmt.Errorf("volumes[%d]: name is required", i)
		}
		if seen[vol.Name] {
			return fmt.Errorf("volumes[%d]: duplicate name %q", i, vol.Name)
		}
		seen[vol.Name] = true
		if !vol.Center.finite() {
			return fmt.Errorf("volume %q: center must be finite", vol.Name)
		}
		switch vol.Shape {
		case "box":
			if !(vol.Half.X > 0 && vol.Half.Y > 0 && vol.Half.Z > 0) {
				return fmt.Errorf("volume %q: half must be positive", vol.Name)
			}
		case "ball":
			if !(vol.Radius > 0) {
				return fmt.Errorf("volume %q: radius must be positive", vol.Name)
			}
		default:
			return fmt.Errorf("volume %q: unknown shape %q", vol.Name, vol.Shape)
		}
	}
	return nil
}

func (s *SourceConfig) validate(field string, optional bool) error {
	switch s.Kind {
	case SourceNone, "":
		if !optional {
			return fmt.Errorf("%s.kind is required", field)
		}
	case SourceSphere:
		if !(s.Radius > 0) || !s.Center.finite() {
			return fmt.Errorf("%s: sphere needs a positive radius and a finite center", field)
		}
	case SourceSphereOnVolume:
		if !(s.Radius > 0) || s.Volume == "" {
			return fmt.Errorf("%s: sphere_on_volume needs a positive radius and a volume", field)
		}
	case SourceVolume:
		if s.Volume == "" {
			return fmt.Errorf("%s: volume is required", field)
		}
	default:
		return fmt.Errorf("%s: unknown kind %q", field, s.Kind)
	}
	return nil
}

func (a *AdjointConfig) Validate() error {
	if len(a.Primaries) == 0 && a.Ion.Adjoint == "" {
		return fmt.Errorf("at least one primary is required")
	}
	if (a.Ion.Adjoint == "") != (a.Ion.Forward == "") {
		return fmt.Errorf("ion.adjoint and ion.forward go together")
	}
	if !(a.Emin > 0) || !(a.Emax >= a.Emin) || math.IsInf(a.Emax, 0) {
		return fmt.Errorf("need 0 < emin <= emax, got [%g, %g]", a.Emin, a.Emax)
	}
	if a.GammasPerEvent < 1 || a.ElectronsPerEvent < 1 || a.FwdGammasPerEvent < 0 {
		return fmt.Errorf("per-event counts out of range")
	}
	for _, w := range a.Weights {
		if w.Particle == "" || w.Weight < 0 || math.IsNaN(w.Weight) || math.IsInf(w.Weight, 0) {
			return fmt.Errorf("bad weight for %q", w.Particle)
		}
	}
	if _, err := adjoint.ParseSpectrum(a.Spectrum); err != nil {
		return err
	}
	if _, err := adjoint.ParseAngularPolicy(a.Angular); err != nil {
		return err
	}
	if a.ExtEmax < 0 {
		return fmt.Errorf("ext_emax must be >= 0")
	}
	if err := a.AdjointSource.validate("adjoint_source", false); err != nil {
		return err
	}
	return a.ExternalSource.validate("external_source", true)
}

// Dump writes the configuration as YAML.
func (c *Config) Dump(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
