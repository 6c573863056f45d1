// Command warren runs a persistent world: a checkpointable interpreter
// behind a Connect RPC surface and a line-oriented TCP listener. On start
// it restores the latest checkpoint; while running it checkpoints on a
// timer and once more on shutdown.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/warren/checkpoint"
	"github.com/chazu/warren/config"
	"github.com/chazu/warren/interp"
	"github.com/chazu/warren/world"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	configDir := flag.String("config", ".", "directory to search for warren.toml")
	dbPath := flag.String("db", "", "checkpoint database path (overrides config)")
	listen := flag.String("listen", "", "RPC listen address (overrides config)")
	telnet := flag.String("telnet", "", "user listen address (overrides config)")
	verbosity := flag.Int("v", 0, "log verbosity")
	flag.Parse()

	commonlog.Configure(*verbosity, nil)
	log := world.NewLogger("warren")

	cfg, err := config.FindAndLoad(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warren: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.Checkpoint.Path = *dbPath
	}
	if *listen != "" {
		cfg.World.Listen = *listen
	}
	if *telnet != "" {
		cfg.World.TelnetAddr = *telnet
	}

	store, err := checkpoint.Open(cfg.Checkpoint.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warren: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	i := interp.New(interp.WithLogger(log))

	if id, records, err := store.Latest(); err == nil {
		if rerr := i.Restore(records); rerr != nil {
			fmt.Fprintf(os.Stderr, "warren: restoring checkpoint %d: %v\n", id, rerr)
			os.Exit(1)
		}
		log.Infof("restored checkpoint %d (%d records)", id, len(records))
	} else if !errors.Is(err, checkpoint.ErrNoCheckpoint) {
		fmt.Fprintf(os.Stderr, "warren: %v\n", err)
		os.Exit(1)
	}

	server := world.NewServer(i, cfg.World.StepBudget, store)
	defer server.Stop()

	listener, err := world.NewListener(server.Worker(), cfg.World.TelnetAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warren: %v\n", err)
		os.Exit(1)
	}
	defer listener.Close()
	log.Infof("world %q listening on %s (rpc) and %s (users)",
		cfg.World.Name, cfg.World.Listen, listener.Addr())

	interval, err := time.ParseDuration(cfg.Checkpoint.Interval)
	if err != nil || interval <= 0 {
		interval = 30 * time.Second
	}
	stopCheckpoints := startCheckpointLoop(server.Worker(), store, log, interval, cfg.Checkpoint.Keep)
	defer stopCheckpoints()

	go func() {
		if err := server.ListenAndServe(cfg.World.Listen); err != nil {
			log.Errorf("rpc server: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	if id, err := takeCheckpoint(server.Worker(), store); err != nil {
		log.Errorf("final checkpoint: %v", err)
	} else {
		log.Infof("final checkpoint %d", id)
	}
}

// startCheckpointLoop checkpoints the world on a timer.
func startCheckpointLoop(w *world.Worker, store *checkpoint.Store, log *world.CommonLogger, interval time.Duration, keep int) (stop func()) {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				id, err := takeCheckpoint(w, store)
				if err != nil {
					log.Errorf("checkpoint: %v", err)
					continue
				}
				log.Infof("checkpoint %d", id)
				if err := store.Prune(keep); err != nil {
					log.Errorf("prune: %v", err)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}

// takeCheckpoint snapshots on the worker goroutine and stores the result.
func takeCheckpoint(w *world.Worker, store *checkpoint.Store) (int64, error) {
	result, err := w.Do(func(i *interp.Interpreter) interface{} {
		return i.Snapshot()
	})
	if err != nil {
		return 0, err
	}
	return store.Put(result.([]interp.Record))
}
