package cli

import (
	stderrors "errors"
	"io/fs"
	"net/url"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/metaxime/pathview/internal/server"
	"github.com/metaxime/pathview/pkg/errors"
	"github.com/metaxime/pathview/pkg/pipeline"
)

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Config is the TOML configuration file. Every section is optional.
type Config struct {
	Backend   BackendConfig   `toml:"backend"`
	Server    ServerConfig    `toml:"server"`
	Cache     CacheConfig     `toml:"cache"`
	Layout    LayoutConfig    `toml:"layout"`
	Viewport  ViewportConfig  `toml:"viewport"`
	Structure StructureConfig `toml:"structure"`
}

type BackendConfig struct {
	URL     string   `toml:"url"`
	Timeout Duration `toml:"timeout"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
	// TileConcurrency bounds parallel job detail fetches on the index page.
	TileConcurrency int `toml:"tile_concurrency"`
}

type CacheConfig struct {
	// Backend is file, redis or none.
	Backend       string `toml:"backend"`
	Dir           string `toml:"dir"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

type LayoutConfig struct {
	Engine         string  `toml:"engine"`
	NodeSeparation float64 `toml:"node_separation"`
	RankSeparation float64 `toml:"rank_separation"`
}

type ViewportConfig struct {
	Width        float64 `toml:"width"`
	Height       float64 `toml:"height"`
	Margin       float64 `toml:"margin"`
	MaxScale     float64 `toml:"max_scale"`
	TransitionMs int     `toml:"transition_ms"`
}

type StructureConfig struct {
	Theme             string   `toml:"theme"`
	ExplicitHydrogens []string `toml:"explicit_hydrogens"`
}

// Duration is a time.Duration written as a Go duration string ("30s").
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			URL:     "http://localhost:8000/",
			Timeout: Duration{30 * time.Second},
		},
		Server: ServerConfig{Addr: server.DefaultAddr, TileConcurrency: 4},
		Cache: CacheConfig{
			Backend:   CacheFile,
			RedisAddr: "localhost:6379",
		},
		Layout: LayoutConfig{Engine: pipeline.DefaultEngine},
		Viewport: ViewportConfig{
			Width:        pipeline.DefaultWidth,
			Height:       pipeline.DefaultHeight,
			TransitionMs: pipeline.DefaultTransitionMs,
		},
		Structure: StructureConfig{Theme: pipeline.DefaultTheme},
	}
}

// LoadConfig decodes path over the defaults. A missing file is only an
// error when the path was given explicitly. Unknown keys are logged.
func LoadConfig(path string, explicit bool, logger *log.Logger) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if stderrors.Is(err, fs.ErrNotExist) && !explicit {
		return DefaultConfig(), nil
	}
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	if logger != nil {
		for _, key := range md.Undecoded() {
			logger.Warn("unknown config key", "file", path, "key", key.String())
		}
		logger.Debug("loaded config", "file", path)
	}
	return cfg, nil
}

// Validate reports the first invalid setting as INVALID_CONFIG.
func (c Config) Validate() error {
	u, err := url.Parse(c.Backend.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "backend.url %q is not an absolute http(s) URL", c.Backend.URL)
	}
	if c.Backend.Timeout.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "backend.timeout must not be negative")
	}
	if c.Server.TileConcurrency < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "server.tile_concurrency must not be negative")
	}
	switch c.Cache.Backend {
	case CacheFile, CacheRedis, CacheNone:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "cache.backend %q (must be one of: file, redis, none)", c.Cache.Backend)
	}
	if c.Cache.Backend == CacheRedis && c.Cache.RedisAddr == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.redis_addr is required for the redis cache")
	}
	opts := c.RenderOptions()
	if err := opts.ValidateForRender(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "diagram settings")
	}
	return nil
}

// RenderOptions returns the diagram options of the layout, viewport and
// structure sections.
func (c Config) RenderOptions() pipeline.Options {
	return pipeline.Options{
		Engine:            c.Layout.Engine,
		NodeSeparation:    c.Layout.NodeSeparation,
		RankSeparation:    c.Layout.RankSeparation,
		Width:             c.Viewport.Width,
		Height:            c.Viewport.Height,
		Margin:            c.Viewport.Margin,
		MaxScale:          c.Viewport.MaxScale,
		TransitionMs:      c.Viewport.TransitionMs,
		Theme:             c.Structure.Theme,
		ExplicitHydrogens: c.Structure.ExplicitHydrogens,
	}
}
