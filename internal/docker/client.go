package docker

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/docker/docker/client"
	"go.uber.org/zap"

	"github.com/rusenback/erpmon/internal/stats"
)

// Config describes how to reach the engine.
type Config struct {
	Host      string
	TLSVerify bool
	CertPath  string

	// Timeout bounds the initial ping and one-shot requests.
	Timeout time.Duration
	// StatsTimeout bounds a single stats read.
	StatsTimeout time.Duration

	// Platform overrides the engine-reported OS type as the normalizer hint.
	Platform stats.Platform
}

// DefaultConfig returns the local engine endpoint for the current OS.
func DefaultConfig() Config {
	cfg := Config{
		Host:         "unix:///var/run/docker.sock",
		Timeout:      30 * time.Second,
		StatsTimeout: 5 * time.Second,
	}
	if runtime.GOOS == "windows" {
		cfg.Host = "npipe:////./pipe/docker_engine"
	}
	return cfg
}

// Client talks to one engine. Streams started from it live until their
// cancel func is called.
type Client struct {
	cli          *client.Client
	ctx          context.Context
	platform     stats.Platform
	timeout      time.Duration
	statsTimeout time.Duration
	logger       *zap.Logger
}

// NewClient connects to the engine and pings it. A platform left unknown
// in cfg is taken from the engine's OS type.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.StatsTimeout <= 0 {
		cfg.StatsTimeout = DefaultConfig().StatsTimeout
	}

	opts := []client.Opt{client.WithHost(cfg.Host), client.WithAPIVersionNegotiation()}
	if cfg.TLSVerify {
		opts = append(opts, client.WithTLSClientConfig(
			filepath.Join(cfg.CertPath, "ca.pem"),
			filepath.Join(cfg.CertPath, "cert.pem"),
			filepath.Join(cfg.CertPath, "key.pem"),
		))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("create engine client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	ping, err := cli.Ping(pingCtx)
	if err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("ping engine: %w", err)
	}

	c := &Client{
		cli:          cli,
		ctx:          context.Background(),
		platform:     cfg.Platform,
		timeout:      cfg.Timeout,
		statsTimeout: cfg.StatsTimeout,
		logger:       logger,
	}
	if c.platform == stats.PlatformUnknown {
		c.platform = stats.ParsePlatform(ping.OSType)
	}

	logger.Info("connected to container engine",
		zap.String("host", cfg.Host),
		zap.String("api_version", ping.APIVersion),
		zap.String("platform", string(c.platform)))
	return c, nil
}

// Platform returns the hint passed to the stats normalizer.
func (c *Client) Platform() stats.Platform {
	return c.platform
}

// Close sulkee yhteyden
func (c *Client) Close() error {
	if c.cli == nil {
		return nil
	}
	return c.cli.Close()
}
