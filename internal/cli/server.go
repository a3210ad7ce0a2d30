package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	transport "quiz-pipeline-service/internal/transport/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the HTTP server and the event consumer.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP API and the preference consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := loadComponents(ctx, configPath)
	if err != nil {
		return err
	}
	defer c.Close()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = c.cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	consumer, err := c.newConsumer()
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(transport.API{
			Quizzes:         c.quizzes,
			Recommendations: c.recommender,
			Preferences:     c.aggregator,
			Completions:     c.publisher,
			Logger:          c.logger,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The in-process broker drops events nobody is subscribed to yet.
		select {
		case <-consumer.Running():
		case <-gctx.Done():
			return nil
		}
		c.logger.Info().Str("addr", server.Addr).Msg("starting quiz pipeline service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return consumer.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		c.logger.Info().Msg("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return errors.Join(server.Shutdown(shutdownCtx), consumer.Close())
	})
	return g.Wait()
}
