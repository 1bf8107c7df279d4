// Command tecnoter runs the tecnoter.io node: a retro BBS-style terminal
// for the site's posts, served over SSH, telnet and the web, or on the
// local console.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/stlalpha/tecnoter/internal/ansi"
	"github.com/stlalpha/tecnoter/internal/config"
	"github.com/stlalpha/tecnoter/internal/console"
	"github.com/stlalpha/tecnoter/internal/content"
	"github.com/stlalpha/tecnoter/internal/history"
	"github.com/stlalpha/tecnoter/internal/logging"
	"github.com/stlalpha/tecnoter/internal/node"
	"github.com/stlalpha/tecnoter/internal/scheduler"
	"github.com/stlalpha/tecnoter/internal/session"
	"github.com/stlalpha/tecnoter/internal/sshserver"
	"github.com/stlalpha/tecnoter/internal/telnetserver"
	"github.com/stlalpha/tecnoter/internal/webserver"
)

var (
	configDir      = flag.String("config", "configs", "Configuration directory")
	dataDir        = flag.String("data", "data", "Data directory for history, logs and event history")
	outputModeFlag = flag.String("output-mode", "auto", "Terminal output mode: auto (default), utf8, cp437")
	localMode      = flag.Bool("local", false, "Run a single session on this terminal instead of listening")
	openSlug       = flag.String("open", "", "Post slug to open after login (with --local)")
	debugFlag      = flag.Bool("debug", false, "Enable debug logging")
)

// closer is a running listener.
type closer interface {
	Close() error
}

func main() {
	flag.Parse()

	outputMode, err := ansi.ParseOutputMode(*outputModeFlag)
	if err != nil {
		log.Fatalf("FATAL: Invalid --output-mode value '%s'. Must be 'auto', 'utf8', or 'cp437'.", *outputModeFlag)
	}
	logging.DebugEnabled = *debugFlag || os.Getenv("DEBUG") == "1"

	// The local session owns the terminal, so its log goes to the file only.
	logPath := filepath.Join(*dataDir, "logs", "tecnoter.log")
	if logFile, err := logging.SetupFile(logPath, !*localMode); err != nil {
		log.Printf("WARN: Failed to open log file %s: %v. Logging to stderr.", logPath, err)
	} else {
		defer logFile.Close()
	}
	log.Printf("INFO: Starting tecnoter node (output mode %s)", outputMode)

	serverCfg, err := config.LoadServerConfig(*configDir)
	if err != nil {
		log.Fatalf("FATAL: Failed to load server configuration: %v", err)
	}
	board, err := config.LoadBoardConfig(*configDir)
	if err != nil {
		log.Fatalf("FATAL: Failed to load board content: %v", err)
	}
	if serverCfg.Debug {
		logging.DebugEnabled = true
	}
	holder := config.NewHolder(config.Runtime{Server: serverCfg, Board: board})

	monitor := &content.HostMonitor{}
	client := content.NewClient(serverCfg.ContentBaseURL, serverCfg.ContentTimeout())
	library := content.NewLibrary(client, monitor.SystemInfo)

	svc := &node.Services{
		Config:     holder,
		Library:    library,
		Client:     client,
		History:    history.NewStore(filepath.Join(*dataDir, "history"), serverCfg.HistoryCap),
		Registry:   session.NewRegistry(),
		Host:       monitor,
		OutputMode: outputMode,
		ArtDir:     config.ResolvePath(*configDir, serverCfg.ArtDir),
		Debug:      *debugFlag,
	}
	svc.Primary = node.LoadEngine(config.ResolvePath(*configDir, serverCfg.EngineScript), svc.Env())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := library.Refresh(ctx); err != nil {
			log.Printf("WARN: Initial content load failed, sessions start without posts: %v", err)
		}
	}()

	sched := newScheduler(serverCfg, library, monitor)
	go sched.Start(ctx)

	if watcher, err := NewConfigWatcher(*configDir, holder, *debugFlag); err != nil {
		log.Printf("WARN: Config hot reload disabled: %v", err)
	} else {
		defer watcher.Stop()
	}

	if *localMode {
		err := console.Run(ctx, svc, os.Stdin, os.Stdout, *openSlug)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("FATAL: Local session failed: %v", err)
		}
		log.Println("INFO: Local session ended.")
		return
	}

	servers := startServers(serverCfg, svc)
	if len(servers) == 0 {
		log.Fatalf("FATAL: No transports enabled. Enable ssh, telnet or web in config.json, or use --local.")
	}

	<-ctx.Done()
	log.Println("INFO: Shutting down...")
	for _, s := range servers {
		if err := s.Close(); err != nil {
			log.Printf("WARN: Error closing listener: %v", err)
		}
	}
	log.Println("INFO: tecnoter node shut down.")
}

func newScheduler(cfg config.ServerConfig, library *content.Library, monitor *content.HostMonitor) *scheduler.Scheduler {
	eventsCfg, err := config.LoadEventsConfig(*configDir)
	if err != nil {
		log.Printf("ERROR: Using default events: %v", err)
	}
	if err != nil || (!eventsCfg.Enabled && len(eventsCfg.Events) == 0) {
		eventsCfg = scheduler.DefaultEvents(cfg.RefreshSchedule)
	}
	sched := scheduler.NewScheduler(eventsCfg, filepath.Join(*dataDir, "event_history.json"))
	sched.Register(scheduler.JobContentRefresh, library.Refresh)
	sched.Register(scheduler.JobHostSample, func(context.Context) error {
		monitor.Sample()
		return nil
	})
	return sched
}

// startServers starts every enabled transport. A transport that fails to
// start is fatal.
func startServers(cfg config.ServerConfig, svc *node.Services) []closer {
	var servers []closer

	if cfg.SSHEnabled {
		keyPath := config.ResolvePath(*configDir, cfg.HostKeyPath)
		if err := sshserver.EnsureHostKey(keyPath); err != nil {
			log.Fatalf("FATAL: %v", err)
		}
		srv, err := sshserver.NewServer(sshserver.Config{
			HostKeyPath:         keyPath,
			Host:                cfg.SSHHost,
			Port:                cfg.SSHPort,
			LegacySSHAlgorithms: cfg.LegacySSHAlgorithms,
			Runner:              svc,
		})
		if err != nil {
			log.Fatalf("FATAL: Failed to configure SSH server: %v", err)
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				log.Fatalf("FATAL: SSH server failed: %v", err)
			}
		}()
		servers = append(servers, srv)
	}

	if cfg.TelnetEnabled {
		srv, err := telnetserver.NewServer(telnetserver.Config{
			Host:   cfg.TelnetHost,
			Port:   cfg.TelnetPort,
			Runner: svc,
		})
		if err != nil {
			log.Fatalf("FATAL: Failed to configure telnet server: %v", err)
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				log.Fatalf("FATAL: Telnet server failed: %v", err)
			}
		}()
		servers = append(servers, srv)
	}

	if cfg.WebEnabled {
		srv, err := webserver.NewServer(webserver.Config{
			Host:   cfg.WebHost,
			Port:   cfg.WebPort,
			Runner: svc,
		})
		if err != nil {
			log.Fatalf("FATAL: Failed to configure web server: %v", err)
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				log.Fatalf("FATAL: Web server failed: %v", err)
			}
		}()
		servers = append(servers, srv)
	}

	return servers
}
