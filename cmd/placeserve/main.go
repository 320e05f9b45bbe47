/*
Package main runs the placeserve district search server and its CLI.

PlaceServe answers place-name queries against an offline gazetteer of Korean
administrative districts (시/도, 시/군/구, 읍/면/동). Queries match short names,
full names and Hangul initial consonants (chosung), ranked by a fixed tier table.
It runs as a MessagePack IPC server for front ends, or as an interactive CLI.

# Usage

Start the server with the dataset from config:

	placeserve

Use another dataset and enable debug logging:

	placeserve -data /path/to/korea_districts.bin -d

Try queries by hand, sigungu only:

	placeserve -c -limit 5 -levels sigungu

Convert a dataset to another format (by extension) and exit:

	placeserve -data districts.json -export districts.db

# Datasets

JSON, YAML, msgpack (.bin) and SQLite (.db, .sqlite) files are accepted. Every
row is validated on load and duplicate ids are rejected.

# Configuration

Runtime configuration lives in a TOML file that is created with defaults when
missing:

	[server]
	max_limit = 64
	default_limit = 20
	max_query = 60
	highlight = true

	[gazetteer]
	path = "data/korea_districts.json"

	[cache]
	enabled = true
	size = 512
	ttl_seconds = 300

A .env file next to the working directory may set PLACESERVE_DATA,
PLACESERVE_CONFIG, PLACESERVE_LOG_LEVEL, PLACESERVE_METRICS_ADDR and
PLACESERVE_CACHE_SIZE. Flags win over the environment, which wins over the file.

# Metrics

When -metrics (or [metrics] addr) is set, prometheus counters are served on
http://addr/metrics.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bastiangx/placeserve/internal/cli"
	"github.com/bastiangx/placeserve/internal/logger"
	"github.com/bastiangx/placeserve/internal/metrics"
	"github.com/bastiangx/placeserve/internal/utils"
	"github.com/bastiangx/placeserve/pkg/config"
	"github.com/bastiangx/placeserve/pkg/gazetteer"
	"github.com/bastiangx/placeserve/pkg/search"
	"github.com/bastiangx/placeserve/pkg/server"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const (
	Version = "0.3.0"
	AppName = "placeserve"
	gh      = "https://github.com/bastiangx/placeserve"
)

// sigHandler cancels ctx on SIGINT/SIGTERM and exits.
func sigHandler(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		cancel()
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main only wires packages together; the logic lives in them.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigHandler(cancel)

	config.LoadEnv(".env")
	defaultConfig := config.DefaultConfig()

	showVersion := flag.Bool("version", false, "Show current version")
	dataPath := flag.String("data", "", "Dataset file or directory (default from config)")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing queries")
	limit := flag.Int("limit", 0, fmt.Sprintf("Number of results in CLI mode (default %d)", defaultConfig.CLI.DefaultLimit))
	levels := flag.String("levels", "", "Comma separated levels to keep: sido,sigungu,eupmyeondong")
	configPathFlag := flag.String("config", "", "Path to config.toml")
	exportPath := flag.String("export", "", "Write the loaded dataset to this path and exit")
	metricsAddr := flag.String("metrics", "", "Serve prometheus metrics on this address, e.g. :9090")
	resetConfig := flag.Bool("reset-config", false, "Rewrite the default config file and exit")

	flag.Parse()
	logger.Setup(os.Getenv(config.EnvLogLevel), *debugMode)

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *resetConfig {
		if err := config.RebuildConfigFile(); err != nil {
			log.Fatalf("Failed to rebuild config: %v", err)
		}
		log.Printf("Config rewritten at %s", config.GetActiveConfigPath(""))
		os.Exit(0)
	}

	appConfig, configPath, err := config.LoadConfigWithPriority(*configPathFlag)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	appConfig.ApplyEnv()
	if *dataPath != "" {
		appConfig.Gazetteer.Path = *dataPath
	}
	if *metricsAddr != "" {
		appConfig.Metrics.Addr = *metricsAddr
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(configPath))

	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}
	resolvedData, err := pathResolver.GetDataPath(appConfig.Gazetteer.Path)
	if err != nil {
		log.Fatalf("Failed to resolve dataset: %v", err)
	}

	g, err := gazetteer.Load(resolvedData)
	if err != nil {
		log.Fatalf("Failed to load gazetteer: %v", err)
	}
	metrics.DistrictsLoaded.Set(float64(g.Len()))
	log.Debugf("Loaded %d districts from %s", g.Len(), resolvedData)

	if *exportPath != "" {
		if err := g.Export(*exportPath); err != nil {
			log.Fatalf("Export failed: %v", err)
		}
		log.Printf("Exported %s districts to %s", utils.FormatWithCommas(g.Len()), *exportPath)
		return
	}

	var opts []search.SearcherOption
	if appConfig.Cache.Enabled {
		opts = append(opts,
			search.WithCache(appConfig.Cache.Size, appConfig.Cache.TTL()),
			search.WithCacheObserver(metrics.ObserveCache))
	}
	searcher := search.NewSearcher(g, opts...)

	if addr := appConfig.Metrics.Addr; addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr); err != nil {
				log.Errorf("Metrics server stopped: %v", err)
			}
		}()
	}

	if *cliMode {
		levelNames := *levels
		if levelNames == "" && len(appConfig.CLI.Levels) > 0 {
			levelNames = strings.Join(appConfig.CLI.Levels, ",")
		}
		levelFilter, err := cli.ParseLevels(levelNames)
		if err != nil {
			log.Fatalf("Invalid -levels: %v", err)
		}
		cliLimit := *limit
		if cliLimit < 1 {
			cliLimit = appConfig.CLI.DefaultLimit
		}
		log.Debug("CLI info:", "limit", cliLimit, "levels", levelNames)

		inputHandler := cli.NewInputHandler(searcher, cliLimit, appConfig.Server.MaxQuery, levelFilter)
		if err := inputHandler.Start(); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	showStartupInfo(resolvedData, g.Stats())
	srv := server.NewServer(searcher, appConfig, configPath)
	if err := srv.Start(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

func printVersion() {
	l := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	l.SetStyles(styles)

	l.Print("")
	l.Print("[ PlaceServe ] Offline Korean district search")
	l.Print("", "version", Version)
	l.Print("")
	l.Print("use -h or --help to see available options")
	l.Print("Github Repo", "gh", gh)
	l.Print("")
	for _, f := range gazetteer.ListSupportedFormats() {
		l.Print(f.Description, "ext", strings.Join(f.Extensions, " "))
	}
	if pr, err := utils.NewPathResolver(); err == nil {
		for k, v := range pr.GetRuntimeInfo() {
			l.Print(k, "value", v)
		}
	}
}

// showStartupInfo goes to stderr; stdout belongs to the IPC stream.
func showStartupInfo(dataPath string, stats gazetteer.Stats) {
	current := log.GetLevel()
	log.SetLevel(log.InfoLevel)
	defer log.SetLevel(current)

	log.Infof("%s %s, pid [ %d ]", AppName, Version, os.Getpid())
	log.Infof("dataset: ( %s )", dataPath)
	log.Info("districts",
		"sido", stats.Sido,
		"sigungu", stats.Sigungu,
		"eupmyeondong", stats.Eupmyeondong,
		"total", utils.FormatWithCommas(stats.Total))
	log.Info("status: ready")
}
