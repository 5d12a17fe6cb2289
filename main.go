package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"peerball/arena"
	"peerball/config"
	"peerball/logging"
	"peerball/protocol"
	"peerball/server"
	"peerball/session"
	"peerball/terminal"
	"peerball/transport"
)

// peerball runs either the websocket relay (no -relay URL) or a participant
// connected to one.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.BindFlags(flag.CommandLine)
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// a participant owns the terminal, so it never logs to stderr
	if err := logging.InitLogger(logging.Options{
		FilePath: cfg.LogFile,
		Level:    cfg.LogLevel,
		Console:  cfg.LogConsole && (cfg.RelayMode() || cfg.Headless),
	}); err != nil {
		panic(err)
	}
	defer logging.SyncLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RelayMode() {
		err = runRelay(ctx, cfg)
	} else {
		err = runParticipant(ctx, cfg)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Log.Errorw("exit", "err", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runRelay(ctx context.Context, cfg config.Config) error {
	rm := server.NewRoomManager(server.SimConfig{
		DelayMinMs: cfg.SimDelayMinMs,
		DelayMaxMs: cfg.SimDelayMaxMs,
		DropProb:   cfg.SimDropProb,
	})
	defer rm.Close()
	_ = rm.GetOrCreateRoom(server.DefaultRoom)

	srv := &http.Server{Addr: cfg.Addr, Handler: server.NewRouter(rm)}
	logging.Log.Infof("relay listening on %s; participants use -relay ws://localhost%s/ws", cfg.Addr, cfg.Addr)
	return serve(ctx, srv)
}

// serve runs srv until ctx is done, then shuts it down.
func serve(ctx context.Context, srv *http.Server) error {
	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logging.Log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	return ctx.Err()
}

func runParticipant(ctx context.Context, cfg config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	codec, err := protocol.CodecByName(cfg.Codec)
	if err != nil {
		return err
	}
	client, err := transport.Dial(ctx, transport.Options{
		URL:    cfg.RelayURL,
		Room:   cfg.Room,
		PeerID: cfg.PeerID,
		Codec:  codec,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	field := arena.Classic()
	ctrl := session.New(client, session.Options{
		Arena:           field,
		Name:            cfg.Name,
		ScoreLimit:      cfg.ScoreLimit,
		PhysicsHz:       cfg.PhysicsHz,
		ForceHz:         cfg.ForceHz,
		SyncHz:          cfg.SyncHz,
		StrictSnapshots: cfg.Strict,
	})
	go ctrl.Run(ctx)

	relayDone := make(chan error, 1)
	go func() {
		relayDone <- client.Run(ctx, ctrl)
		cancel()
	}()

	if cfg.AdminAddr != "" {
		admin := &http.Server{Addr: cfg.AdminAddr, Handler: server.NewParticipantRouter(ctrl)}
		go func() {
			if err := serve(ctx, admin); err != nil && !errors.Is(err, context.Canceled) {
				logging.Log.Warnw("participant admin stopped", "err", err)
			}
		}()
	}

	if cfg.Join != "" {
		if err := ctrl.Join(cfg.Join); err != nil {
			return fmt.Errorf("join %s: %w", cfg.Join, err)
		}
	}
	logging.Log.Infow("participant ready", "peer", client.ID(), "room", client.Room(), "join", cfg.Join)

	if cfg.Headless {
		fmt.Printf("peer id %s in room %s\n", client.ID(), client.Room())
		<-ctx.Done()
	} else if err := runTerminal(ctx, ctrl, field, cfg); err != nil {
		return err
	}

	cancel()
	select {
	case err := <-relayDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	case <-time.After(time.Second):
	}
	return nil
}

func runTerminal(ctx context.Context, ctrl *session.Controller, field *arena.Arena, cfg config.Config) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()
	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorReset).Foreground(tcell.ColorReset))

	ui := terminal.New(screen, ctrl, terminal.Options{
		Arena:      field,
		HoldWindow: cfg.HoldWindow,
		InputHz:    cfg.ForceHz,
	})
	if err := ui.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
