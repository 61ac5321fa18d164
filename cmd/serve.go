package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/parley-chat/parley/internal/devserver"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bundled chat server",
	RunE:  runServer,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 3000, "port to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServer(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", servePort),
		Handler: devserver.New().Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("chat server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	log.Info().Msg("chat server stopped")
	return nil
}
