package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"quiz-pipeline-service/internal/infra/broker"

	"github.com/spf13/cobra"
)

// NewConsumeCmd runs only the preference consumer, for scaling it apart from the API.
func NewConsumeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Run the preference aggregator consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsumer(cmd.Context(), *configPath)
		},
	}
}

func runConsumer(ctx context.Context, configPath string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := loadComponents(ctx, configPath)
	if err != nil {
		return err
	}
	defer c.Close()

	if c.cfg.Broker.Driver == "" || c.cfg.Broker.Driver == broker.DriverGoChannel {
		return errors.New("consume needs a shared broker; set broker.driver to nats or use start")
	}

	consumer, err := c.newConsumer()
	if err != nil {
		return err
	}
	c.logger.Info().Str("driver", c.cfg.Broker.Driver).Msg("consumer starting")
	return consumer.Run(ctx)
}
