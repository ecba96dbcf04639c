package app

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/CodeVermA/fluid-simulation/internal/fluid"
)

// KVList collects repeatable key=value flags.
type KVList []string

func (l *KVList) String() string {
	return strings.Join(*l, ",")
}

func (l *KVList) Set(value string) error {
	if !strings.Contains(value, "=") {
		return fmt.Errorf("override %q is not in key=value form", value)
	}
	*l = append(*l, value)
	return nil
}

// Map returns the overrides as a map; later entries win.
func (l KVList) Map() map[string]string {
	m := make(map[string]string, len(l))
	for _, kv := range l {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		m[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return m
}

// Config represents the command-line parameters for the application.
type Config struct {
	Width    int
	Height   int
	Backend  string
	Walls    string
	Scale    int
	TPS      int
	Seed     int64
	Splats   int
	HUD      bool
	HUDWidth int

	Overrides KVList
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	def := fluid.DefaultConfig()
	return &Config{
		Width:    def.Width,
		Height:   def.Height,
		Backend:  def.Backend,
		Walls:    def.Walls.String(),
		Scale:    5,
		TPS:      60,
		Seed:     def.Seed,
		Splats:   6,
		HUD:      true,
		HUDWidth: 260,
	}
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.IntVar(&c.Width, "w", c.Width, "grid width in cells")
	fs.IntVar(&c.Height, "h", c.Height, "grid height in cells")
	fs.StringVar(&c.Backend, "backend", c.Backend, fmt.Sprintf("execution backend %v", fluid.Backends()))
	fs.StringVar(&c.Walls, "walls", c.Walls, "solid domain edges: all, none or a list of top,bottom,left,right")
	fs.IntVar(&c.Scale, "scale", c.Scale, "pixel scale multiplier")
	fs.IntVar(&c.TPS, "tps", c.TPS, "ticks per second")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "seed for random splats")
	fs.IntVar(&c.Splats, "splats", c.Splats, "random splats injected on start and reset")
	fs.BoolVar(&c.HUD, "hud", c.HUD, "show the parameter panel")
	fs.IntVar(&c.HUDWidth, "hud-width", c.HUDWidth, "parameter panel width in pixels")
	fs.Var(&c.Overrides, "set", "solver override in key=value form (repeatable)")
}

// FluidConfig builds the solver configuration. Explicit flags take precedence
// over -set overrides of the same key.
func (c *Config) FluidConfig() (fluid.Config, error) {
	m := c.Overrides.Map()
	m["w"] = strconv.Itoa(c.Width)
	m["h"] = strconv.Itoa(c.Height)
	m["backend"] = c.Backend
	m["seed"] = strconv.FormatInt(c.Seed, 10)
	walls, err := fluid.ParseWalls(c.Walls)
	if err != nil {
		return fluid.Config{}, err
	}
	cfg := fluid.FromMap(m)
	cfg.Walls = walls
	if c.Width <= 0 || c.Height <= 0 {
		cfg.Width, cfg.Height = c.Width, c.Height
	}
	if c.Scale <= 0 {
		return fluid.Config{}, fmt.Errorf("%w: scale %d", fluid.ErrInvalidConfig, c.Scale)
	}
	return cfg, cfg.Validate()
}
