package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/voicetask/internal/api"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Run:   runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (overrides $VOICETASK_ADDR)")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	addrFlag, _ := cmd.Flags().GetString("addr")

	e, err := openEnv()
	if err != nil {
		exitErr("setup", err)
	}
	defer e.close()

	addr := e.cfg.Server.Addr
	if addrFlag != "" {
		addr = addrFlag
	}

	srv := api.NewServer(addr, e.cfg.Server.AuthToken, e.store, e.parser, e.ops, e.logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		exitErr("serve", err)
	case <-sigCh:
		e.logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			exitErr("shutdown", err)
		}
	}
}
