// Command pwired is the daemon entrypoint: it parses its CLI arguments,
// wires a core.Core to a D-Bus connection and an epoll main loop, starts
// Prometheus instrumentation, optionally bootstraps a static graph, and
// runs until told to shut down. Grounded on cli/cli.go's go-arg parser
// setup and lib/main.go's Main struct (Program/Version, Init/Run split,
// log flag setup) and the root main.go's signal-based shutdown.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/godbus/dbus/v5"

	"github.com/pwired/pwired/bus"
	"github.com/pwired/pwired/core"
	"github.com/pwired/pwired/graphdef"
	"github.com/pwired/pwired/mainloop"
	"github.com/pwired/pwired/metrics"
)

// set at compile time via -ldflags
var (
	version = "dev"
	program = "pwired"
)

// Args is the CLI parsing structure, in the shape cli/cli.go's RunArgs
// uses: one struct, go-arg tags, optional env var fallbacks.
type Args struct {
	Graph       string `arg:"--graph,env:PWIRED_GRAPH" help:"YAML static graph to bootstrap at startup"`
	Sema        int    `arg:"--sema" default:"0" help:"bound on concurrently in-flight create_node/create_link calls; 0 for a large default"`
	SystemBus   bool   `arg:"--system-bus" help:"connect to the D-Bus system bus instead of the session bus"`
	Prometheus  bool   `arg:"--prometheus" help:"start a prometheus metrics instance"`
	MetricsAddr string `arg:"--metrics-listen" help:"prometheus instance bind specification"`
}

func (Args) Version() string {
	return fmt.Sprintf("%s %s", program, version)
}

// Main mirrors lib.Main's shape: a struct carrying parsed configuration,
// initialized then run.
type Main struct {
	Args Args

	core    *core.Core
	metrics *metrics.Metrics
	loop    *mainloop.EpollLoop
	b       *bus.Bus
	conn    *dbus.Conn

	exit chan error
}

// Init validates args and allocates the exit channel, the way
// lib.Main.Init does.
func (m *Main) Init() error {
	if program == "" || version == "" {
		return fmt.Errorf("program was not compiled correctly")
	}
	m.exit = make(chan error)
	return nil
}

// Exit triggers a safe shutdown; it is attached to the ^C/SIGTERM handler
// in main(), the way lib.Main.Exit is documented to be used.
func (m *Main) Exit(err error) {
	m.exit <- err
}

// Run wires every component together and blocks until Exit is called.
func (m *Main) Run() error {
	log.SetFlags(log.LstdFlags | log.Lshortfile - log.Ldate)
	log.Printf("This is: %s, version: %s", program, version)

	m.core = core.New(nil, m.Args.Sema)

	m.metrics = &metrics.Metrics{Listen: m.Args.MetricsAddr}
	if m.Args.Prometheus {
		if err := m.metrics.Init(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		if err := m.metrics.Start(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		log.Printf("Metrics: listening on %s", m.metrics.Listen)
	}
	m.wireMetrics()

	loop, err := mainloop.NewEpollLoop()
	if err != nil {
		return fmt.Errorf("mainloop: %w", err)
	}
	m.loop = loop

	conn, err := connectBus(m.Args.SystemBus)
	if err != nil {
		return fmt.Errorf("bus: %w", err)
	}
	m.conn = conn
	m.b = bus.New(conn, m.core)
	if err := m.b.Export(); err != nil {
		return fmt.Errorf("bus: %w", err)
	}
	log.Printf("Bus: exported Core at %s", bus.CoreObjectPath)

	if m.Args.Graph != "" {
		cfg, err := graphdef.ParseFile(m.Args.Graph)
		if err != nil {
			return fmt.Errorf("graphdef: %w", err)
		}
		owner := m.core.NewClient()
		if err := cfg.Build(m.core, owner); err != nil {
			return fmt.Errorf("graphdef: %w", err)
		}
		log.Printf("Graph: bootstrapped %q", cfg.Graph)
	}

	go func() {
		if err := m.loop.Run(); err != nil {
			log.Printf("mainloop: %v", err)
		}
	}()

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Printf("systemd: notify failed: %v", err)
	} else if ok {
		log.Println("systemd: notified ready")
	}

	log.Println("Running...")
	err = <-m.exit
	log.Println("Shutting down...")

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if shutdownErr := m.core.Destroy(); shutdownErr != nil {
		log.Printf("core: shutdown error: %v", shutdownErr)
	}
	_ = m.loop.Close()
	if m.Args.Prometheus {
		_ = m.metrics.Stop()
	}
	_ = m.conn.Close()

	log.Println("Goodbye!")
	return err
}

// wireMetrics connects the core's OnGlobalAdded/OnGlobalRemoved signals to
// the metrics gauge, the way yamlgraph/graph event hooks feed
// prometheus.go in the teacher. Safe to call even when metrics were never
// Init'd: Init is always called above when --prometheus is passed, and
// without it wireMetrics returns early and connects nothing.
func (m *Main) wireMetrics() {
	if !m.Args.Prometheus {
		return
	}
	m.core.OnGlobalAdded.Connect(func(g *core.Global) {
		typeName, _ := m.core.Types.Lookup(g.Type)
		m.metrics.GlobalAdded(typeName)
	})
	m.core.OnGlobalRemoved.Connect(func(g *core.Global) {
		typeName, _ := m.core.Types.Lookup(g.Type)
		m.metrics.GlobalRemoved(typeName)
	})
}

func connectBus(system bool) (*dbus.Conn, error) {
	if system {
		return dbus.ConnectSystemBus()
	}
	return dbus.ConnectSessionBus()
}

func waitForSignal(m *Main) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt)
	signal.Notify(signals, syscall.SIGTERM)
	sig := <-signals
	if sig == os.Interrupt {
		fmt.Println()
		log.Println("Interrupted by ^C")
	} else {
		log.Println("Interrupted by signal")
	}
	m.Exit(nil)
}

func main() {
	var args Args
	parser, err := arg.NewParser(arg.Config{Program: program}, &args)
	if err != nil {
		log.Fatalf("cli config error: %v", err)
	}
	if err := parser.Parse(os.Args[1:]); err == arg.ErrHelp {
		parser.WriteHelp(os.Stdout)
		return
	} else if err == arg.ErrVersion {
		fmt.Println(args.Version())
		return
	} else if err != nil {
		parser.Fail(err.Error())
		return
	}

	m := &Main{Args: args}
	if err := m.Init(); err != nil {
		log.Fatalf("init error: %v", err)
	}

	go waitForSignal(m)

	if err := m.Run(); err != nil {
		log.Fatalf("run error: %v", err)
	}
}
