package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wansing/docflow/auth"
	"github.com/wansing/docflow/backend"
	"github.com/wansing/docflow/logger"
	"github.com/wansing/docflow/util"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON backend and document previews over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var (
	acceptAs    string
	acceptEvery time.Duration
)

func init() {
	// Your reverse proxy must not strip the prefix. So if you're using nginx, the "proxy_pass" value should not end with a slash.
	serveCmd.Flags().String("base", "", "strip off this `prefix` from every HTTP request and prepend it to every redirect")
	serveCmd.Flags().String("listen", "", "serve HTTP at this `ip:port`")
	serveCmd.Flags().StringVar(&acceptAs, "accept-due-as", "", "accept due scheduled requests periodically as this `user`")
	serveCmd.Flags().DurationVar(&acceptEvery, "accept-due-every", time.Minute, "interval of accepting due requests")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	sessionStore, err := a.sessionStore()
	if err != nil {
		return err
	}

	var b = &backend.Backend{
		Auth:     a.auth,
		Store:    a.store,
		Manager:  a.manager,
		DocTypes: a.docTypes,
		Events:   a.events,
		Sessions: backend.NewSessionManager(sessionStore, a.cfg.Server.Base),
		Gatherer: a.registry,
		Log:      logger.Component(a.log, "backend"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var scheduler sync.WaitGroup
	if acceptAs != "" {
		user, err := a.user(acceptAs)
		if err != nil {
			return err
		}
		scheduler.Add(1)
		go func() {
			defer scheduler.Done()
			a.acceptLoop(ctx, user, acceptEvery)
		}()
	}

	// listener and listen

	sigintChannel := make(chan os.Signal, 1)

	listener, err := net.Listen("tcp", a.cfg.Server.Listen)
	if err != nil {
		return err
	}

	a.log.Info().Str("addr", a.cfg.Server.Listen).Str("base", a.cfg.Server.Base).Msg("listening")

	httpSrv := &http.Server{
		Handler:      util.Based(a.cfg.Server.Base, b.Handler()),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := httpSrv.Serve(listener); err != nil {

			// don't panic, we want a graceful shutdown
			if err != http.ErrServerClosed {
				a.log.Error().Err(err).Msg("error listening")
			}

			// ensure graceful shutdown
			sigintChannel <- os.Interrupt
		}
	}()

	// graceful shutdown

	signal.Notify(sigintChannel, os.Interrupt, syscall.SIGTERM) // SIGINT (Interrupt) or SIGTERM
	<-sigintChannel

	a.log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("shutdown")
	}

	cancel()
	scheduler.Wait()
	return nil
}

func (a *app) acceptLoop(ctx context.Context, user auth.User, every time.Duration) {
	var ticker = time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			accepted, err := a.manager.AcceptDue(ctx, now, user)
			if err != nil {
				a.log.Warn().Err(err).Msg("accepting due requests")
			}
			if len(accepted) > 0 {
				a.log.Info().Int("count", len(accepted)).Msg("accepted due requests")
			}
		}
	}
}
