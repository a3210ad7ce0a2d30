package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewReplayCmd re-publishes stored dead letters.
func NewReplayCmd(configPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "replay-dead-letters",
		Short: "Re-publish events that exhausted their publish retries",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadComponents(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer c.Close()

			n, err := c.publisher.ReplayDeadLetters(cmd.Context(), limit)
			fmt.Fprintf(cmd.OutOrStdout(), "replayed %d dead letters\n", n)
			return err
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum letters to replay (0 = all)")
	return cmd
}
