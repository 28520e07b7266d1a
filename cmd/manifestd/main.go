// Copyright (C) 2020-2026, the manifestation-node authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Command manifestd runs a manifestation-node gossip node.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/tdespenza/manifestation-node/bridge"
	"github.com/tdespenza/manifestation-node/identity"
	"github.com/tdespenza/manifestation-node/internal/applog"
	"github.com/tdespenza/manifestation-node/internal/nodeconfig"
	"github.com/tdespenza/manifestation-node/internal/obsmetrics"
	"github.com/tdespenza/manifestation-node/manifest"
	"github.com/tdespenza/manifestation-node/p2pnode"
	"github.com/tdespenza/manifestation-node/stats"
)

var (
	dataDirFlag = &cli.StringFlag{
		Name:  "data-dir",
		Usage: "directory holding the application identity, transport key, and statistics cache",
	}
	listenAddrFlag = &cli.StringFlag{
		Name:  "listen",
		Usage: "multiaddr to listen on",
		Value: p2pnode.DefaultListenAddr,
	}
	bootstrapFlag = &cli.StringSliceFlag{
		Name:  "bootstrap",
		Usage: "bootstrap peer multiaddr, may be repeated; defaults to the built-in peer list",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "debug, info, warn, or error",
		Value: "info",
	}
	metricsAddrFlag = &cli.StringFlag{
		Name:  "metrics-addr",
		Usage: "address to serve /metrics on; empty disables the metrics server",
		Value: "127.0.0.1:9595",
	}
	controlAddrFlag = &cli.StringFlag{
		Name:  "control-addr",
		Usage: "address to serve the host bridge's publish/peers HTTP endpoints on; empty disables it",
	}
	sharingEnabledFlag = &cli.BoolFlag{
		Name:  "share",
		Usage: "start with manifestation sharing already opted in",
	}
)

// loadConfig resolves a Config by reading <data_dir>/config.json for
// defaults, then layering CLI flags on top — flags always win. The
// data dir itself must be known before the file can be found, so a
// --data-dir flag (or its built-in default) is resolved first.
func loadConfig(ctx *cli.Context) (*nodeconfig.Config, error) {
	dataDir := ctx.String(dataDirFlag.Name)

	b := nodeconfig.NewBuilder()
	if dataDir != "" {
		b = b.WithDataDir(dataDir)
	}
	probe, err := b.Build()
	if err != nil {
		return nil, err
	}
	b = nodeconfig.NewBuilder().FromFile(probe.ConfigFilePath())
	if dataDir != "" {
		b = b.WithDataDir(dataDir)
	}

	// NewBuilder already seeded ListenAddr/LogLevel with valid
	// defaults before FromFile ran, so the config is always complete
	// at this point — flags only need to apply when the user actually
	// set them, preserving "flags win" without clobbering the file.
	if ctx.IsSet(listenAddrFlag.Name) {
		b = b.WithListenAddr(ctx.String(listenAddrFlag.Name))
	}
	if ctx.IsSet(logLevelFlag.Name) {
		b = b.WithLogLevel(ctx.String(logLevelFlag.Name))
	}
	if ctx.IsSet(metricsAddrFlag.Name) {
		b = b.WithMetricsAddr(ctx.String(metricsAddrFlag.Name))
	}
	if ctx.IsSet(sharingEnabledFlag.Name) {
		b = b.WithSharingEnabled(ctx.Bool(sharingEnabledFlag.Name))
	}
	if peers := ctx.StringSlice(bootstrapFlag.Name); len(peers) > 0 {
		b = b.WithBootstrapPeers(peers)
	}
	return b.Build()
}

var commandRun = &cli.Command{
	Name:  "run",
	Usage: "run the gossip node until interrupted",
	Flags: []cli.Flag{dataDirFlag, listenAddrFlag, bootstrapFlag, logLevelFlag, metricsAddrFlag, controlAddrFlag, sharingEnabledFlag},
	Action: func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		return runNode(ctx.Context, cfg, ctx.String(controlAddrFlag.Name))
	},
}

var commandIdentity = &cli.Command{
	Name:  "identity",
	Usage: "print the application identity's public key, creating one if absent",
	Flags: []cli.Flag{dataDirFlag},
	Action: func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		id, err := identity.LoadOrCreate(cfg.IdentityPath())
		if err != nil {
			return fmt.Errorf("load identity: %w", err)
		}
		fmt.Println(id.PublicKeyB64())
		return nil
	},
}

func main() {
	app := &cli.App{
		Name:  "manifestd",
		Usage: "a privacy-preserving peer-to-peer manifestation gossip node",
		Commands: []*cli.Command{
			commandRun,
			commandIdentity,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "manifestd:", err)
		os.Exit(1)
	}
}

func runNode(parent context.Context, cfg *nodeconfig.Config, controlAddr string) error {
	log := applog.New(cfg.LogLevel)
	defer log.Sync() //nolint:errcheck

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	transportKey, err := p2pnode.LoadOrGenerateTransportKey(cfg.TransportKeyPath())
	if err != nil {
		return fmt.Errorf("load transport key: %w", err)
	}
	appIdentity, err := identity.LoadOrCreate(cfg.IdentityPath())
	if err != nil {
		return fmt.Errorf("load application identity: %w", err)
	}
	log.Infow("application identity ready", "public_key", appIdentity.PublicKeyB64())

	registry := prometheus.NewRegistry()
	metrics, err := obsmetrics.New(registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	if cfg.MetricsAddr != "" {
		startMetricsServer(ctx, log, cfg.MetricsAddr, registry)
	}

	commands := make(chan p2pnode.Command, 16)
	node, err := p2pnode.New(ctx, log, transportKey, commands, cfg.CachePath(), cfg.BootstrapMultiaddrs(), metrics)
	if err != nil {
		return fmt.Errorf("construct node: %w", err)
	}

	// The node always binds DefaultListenAddr; any other configured
	// address is bound in addition once the run loop starts.
	if cfg.ListenAddr != p2pnode.DefaultListenAddr {
		listenReply := make(chan error, 1)
		commands <- p2pnode.Command{StartListening: &p2pnode.StartListening{Addr: cfg.ListenAddr, Reply: listenReply}}
		go func() {
			if err := <-listenReply; err != nil {
				log.Errorw("listen failed", "addr", cfg.ListenAddr, "error", err)
			}
		}()
	}

	b := bridge.New(log, commands)
	b.SetSharing(cfg.SharingEnabled)
	if controlAddr != "" {
		startControlServer(ctx, log, controlAddr, b, appIdentity)
	}

	updates := make(chan stats.Update, 16)
	go drainUpdates(ctx, log, updates)

	node.Run(ctx, updates)
	log.Infow("node stopped", "state", node.State())
	return nil
}

func drainUpdates(ctx context.Context, log *zap.SugaredLogger, updates <-chan stats.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			log.Debugw("stats snapshot", "total_manifestations", u.TotalManifestations, "peer_count", u.PeerCount)
		}
	}
}

func startMetricsServer(ctx context.Context, log *zap.SugaredLogger, addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", obsmetrics.Handler(registry))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("metrics server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
}

// startControlServer exposes the host bridge to a local, trusted
// caller (a UI shell, a sibling process) over plain HTTP: POST
// /publish to sign and gossip a manifest.Result if sharing is
// enabled, GET /peers for the connected peer list.
func startControlServer(ctx context.Context, log *zap.SugaredLogger, addr string, b *bridge.Bridge, id *identity.Identity) {
	mux := http.NewServeMux()

	mux.HandleFunc("/publish", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var payload manifest.Result
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		cid, err := b.Publish(r.Context(), payload, id)
		if err != nil {
			if errors.Is(err, bridge.ErrNotAuthorized) {
				http.Error(w, err.Error(), http.StatusForbidden)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"cid": cid})
	})

	mux.HandleFunc("/peers", func(w http.ResponseWriter, r *http.Request) {
		peers, err := b.GetPeers(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(peers)
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("control server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
}
