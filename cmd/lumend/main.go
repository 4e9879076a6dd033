package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lumen-signage/lumen/internal/adapters/mqttserver"
	"github.com/lumen-signage/lumen/internal/assets"
	"github.com/lumen-signage/lumen/internal/backend"
	"github.com/lumen-signage/lumen/internal/lumend"
	embeddedmqtt "github.com/lumen-signage/lumen/internal/modules/embedded_mqtt"
	mediaserver "github.com/lumen-signage/lumen/internal/modules/media_server"
	"github.com/lumen-signage/lumen/internal/modules/player"
	"github.com/lumen-signage/lumen/pkg/signage"
)

const (
	defaultImagePipeline = "uridecodebin uri={url} ! imagefreeze ! videoconvert ! autovideosink"
	defaultVideoPipeline = "playbin uri={url}"
)

func main() {
	var (
		configPath  string
		backendURL  string
		logLevel    string
		logFormat   string
		logOutput   string
		printConfig bool
		dryRun      bool
		moduleOnly  string
	)

	defaultConfig, err := lumend.DefaultConfigPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	flag.StringVar(&configPath, "config", defaultConfig, "config file path")
	flag.StringVar(&backendURL, "backend", "", "backend URL override")
	flag.StringVar(&logLevel, "log-level", "", "log level override")
	flag.StringVar(&logFormat, "log-format", "", "log format override (json|console)")
	flag.StringVar(&logOutput, "log-output", "", "log output override (stdout|stderr|path)")
	flag.StringVar(&moduleOnly, "module", "", "limit to a single module")
	flag.BoolVar(&printConfig, "print-config", false, "print resolved config and exit")
	flag.BoolVar(&dryRun, "dry-run", false, "validate config and exit")
	flag.Parse()

	cfg, err := lumend.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := applyDefaults(&cfg, backendURL, logLevel, logFormat, logOutput); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if printConfig {
		fmt.Fprintf(os.Stdout,
			"asset_root=%s state_dir=%s backend=%s log_level=%s log_format=%s modules=%v\n",
			cfg.Server.AssetRoot,
			cfg.Server.StateDir,
			cfg.Modules.Player.BackendURL,
			cfg.Server.LogLevel,
			cfg.Server.LogFormat,
			enabledModules(cfg),
		)
		return
	}
	if dryRun {
		return
	}

	logger := lumend.NewLogger(lumend.LogConfig{
		Level:  cfg.Server.LogLevel,
		Format: cfg.Server.LogFormat,
		Output: cfg.Server.LogOutput,
	})
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("lumend starting",
		zap.String("asset_root", cfg.Server.AssetRoot),
		zap.String("state_dir", cfg.Server.StateDir),
		zap.Strings("modules", enabledModules(cfg)),
	)

	modules, err := buildModules(cfg, logger, moduleOnly)
	if err != nil {
		logger.Error("failed to build modules", zap.Error(err))
		os.Exit(1)
	}

	supervisor := lumend.Supervisor{Logger: logger}
	if err := supervisor.Run(ctx, modules); err != nil {
		logger.Error("supervisor error", zap.Error(err))
		os.Exit(1)
	}
}

func applyDefaults(cfg *lumend.Config, backendURL string, logLevel string, logFormat string, logOutput string) error {
	if backendURL != "" {
		cfg.Modules.Player.BackendURL = backendURL
	}
	if logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.Server.LogFormat = logFormat
	}
	if logOutput != "" {
		cfg.Server.LogOutput = logOutput
	}

	if cfg.Server.AssetRoot == "" {
		root, err := lumend.DefaultAssetRoot()
		if err != nil {
			return err
		}
		cfg.Server.AssetRoot = root
	}
	if cfg.Server.StateDir == "" {
		dir, err := lumend.DefaultStateDir()
		if err != nil {
			return err
		}
		cfg.Server.StateDir = dir
	}
	if cfg.Modules.Player.CacheDir == "" {
		cfg.Modules.Player.CacheDir = filepath.Join(cfg.Server.StateDir, "cache")
	}
	if cfg.Modules.Player.TopicBase == "" {
		cfg.Modules.Player.TopicBase = signage.BaseTopic
	}
	if cfg.Modules.Player.Broker == "" && cfg.Modules.EmbeddedMQTT.Enabled {
		listen := cfg.Modules.EmbeddedMQTT.Listen
		if listen == "" {
			listen = "127.0.0.1:1883"
		}
		cfg.Modules.Player.Broker = embeddedmqtt.BrokerURL(listen)
	}
	return nil
}

func buildModules(cfg lumend.Config, logger *zap.Logger, moduleOnly string) ([]lumend.ModuleRunner, error) {
	modules := []lumend.ModuleRunner{}

	var broker *embeddedmqtt.Module
	if cfg.Modules.EmbeddedMQTT.Enabled && (moduleOnly == "" || moduleOnly == "embedded_mqtt") {
		mod, err := embeddedmqtt.NewModule(logger, embeddedmqtt.Config{
			Listen:         cfg.Modules.EmbeddedMQTT.Listen,
			AllowAnonymous: cfg.Modules.EmbeddedMQTT.AllowAnonymous,
			Username:       cfg.Modules.EmbeddedMQTT.Username,
			Password:       cfg.Modules.EmbeddedMQTT.Password,
			TopicBase:      cfg.Modules.Player.TopicBase,
		})
		if err != nil {
			return nil, err
		}
		broker = mod
		modules = append(modules, lumend.ModuleRunner{Name: "embedded_mqtt", Run: mod.Run})
	}

	if cfg.Modules.MediaServer.Enabled && (moduleOnly == "" || moduleOnly == "media_server") {
		store, err := assets.NewStore(logger, cfg.Server.AssetRoot)
		if err != nil {
			return nil, err
		}
		mod, err := mediaserver.NewModule(logger, store, mediaserver.Config{
			Listen: cfg.Modules.MediaServer.Listen,
		})
		if err != nil {
			return nil, err
		}
		modules = append(modules, lumend.ModuleRunner{Name: "media_server", Run: mod.Run})
	}

	if cfg.Modules.Player.Enabled && (moduleOnly == "" || moduleOnly == "player") {
		mod, err := buildPlayer(cfg, logger, broker)
		if err != nil {
			return nil, err
		}
		modules = append(modules, lumend.ModuleRunner{Name: "player", Run: mod.Run})
	}

	if len(modules) == 0 {
		return nil, errors.New("no modules enabled")
	}
	return modules, nil
}

func buildPlayer(cfg lumend.Config, logger *zap.Logger, broker *embeddedmqtt.Module) (*player.Module, error) {
	playerCfg := cfg.Modules.Player

	var feed backend.Feed
	if playerCfg.Broker != "" {
		client, err := mqttserver.NewClient(mqttserver.Options{
			BrokerURL: playerCfg.Broker,
			ClientID:  fmt.Sprintf("lumend-%d", time.Now().UnixNano()),
			Username:  playerCfg.BrokerUser,
			Password:  playerCfg.BrokerPass,
			Timeout:   2 * time.Second,
			Logger:    logger,
		})
		if err != nil {
			// Polling still covers us when the feed is down.
			logger.Warn("change feed connection failed, polling only", zap.Error(err))
		} else {
			feed = &backend.MQTTFeed{Client: client}
		}
	}

	api, err := backend.NewClient(backend.Options{
		BaseURL:   playerCfg.BackendURL,
		APIKey:    playerCfg.APIKey,
		Logger:    logger,
		Feed:      feed,
		TopicBase: playerCfg.TopicBase,
	})
	if err != nil {
		return nil, err
	}

	driver, gstDriver := newDriver(cfg, logger)

	localBase := playerCfg.LocalBaseURL
	if localBase == "" {
		listen := cfg.Modules.MediaServer.Listen
		if listen == "" {
			listen = mediaserver.DefaultListen
		}
		localBase = "http://" + listenAddr(listen)
	}

	hostname := playerCfg.Hostname
	if hostname == "" {
		hostname, _ = os.Hostname()
		if cfg.Modules.MediaServer.Enabled {
			// A co-located media server makes this a local context.
			hostname = "localhost"
		}
	}

	mod, err := player.NewModule(logger, api, driver, nil, player.Config{
		StateDir:     cfg.Server.StateDir,
		CacheDir:     playerCfg.CacheDir,
		PollInterval: time.Duration(playerCfg.PollIntervalMS) * time.Millisecond,
		LocalBaseURL: localBase,
		Hostname:     hostname,
	})
	if err != nil {
		return nil, err
	}

	if gstDriver != nil {
		gstDriver.OnEnded = mod.Engine().VideoEnded
	}
	if broker != nil {
		identity := mod.Identity()
		screen := signage.Screen{
			ID:          identity.DeviceID,
			Name:        "TV-" + identity.PairingCode,
			PairingCode: identity.PairingCode,
		}
		if err := broker.AnnounceScreen(screen); err != nil {
			logger.Warn("presence announce failed", zap.Error(err))
		}
	}
	return mod, nil
}

// newDriver prefers the GStreamer surface and falls back to the logging
// driver on builds without it.
func newDriver(cfg lumend.Config, logger *zap.Logger) (player.Driver, *player.GstDriver) {
	imagePipe := cfg.Modules.Player.ImagePipeline
	if imagePipe == "" {
		imagePipe = defaultImagePipeline
	}
	videoPipe := cfg.Modules.Player.VideoPipeline
	if videoPipe == "" {
		videoPipe = defaultVideoPipeline
	}
	crossfade := time.Duration(cfg.Modules.Player.CrossfadeMS) * time.Millisecond

	gstDriver, err := player.NewGstDriver(imagePipe, videoPipe, crossfade)
	if err != nil {
		logger.Warn("gstreamer unavailable, logging playback only", zap.Error(err))
		return player.LogDriver{Log: logger}, nil
	}
	return gstDriver, gstDriver
}

func listenAddr(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

func enabledModules(cfg lumend.Config) []string {
	out := []string{}
	if cfg.Modules.EmbeddedMQTT.Enabled {
		out = append(out, "embedded_mqtt")
	}
	if cfg.Modules.MediaServer.Enabled {
		out = append(out, "media_server")
	}
	if cfg.Modules.Player.Enabled {
		out = append(out, "player")
	}
	return out
}
