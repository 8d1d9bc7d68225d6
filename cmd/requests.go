package cmd

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/spigell/care-matcher/internal/input"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "List the care requests of the requests file",
	Run: func(cmd *cobra.Command, _ []string) {
		format := strings.ToLower(strings.TrimSpace(cmd.Flag("output").Value.String()))
		if err := validateOutput(format); err != nil {
			log.Fatal(err)
		}

		path := viper.GetString("data.requests")
		if flag := cmd.Flag("requests"); flag.Changed {
			path = flag.Value.String()
		}

		raws, err := newLoader(&DataConfig{TokenFile: viper.GetString("data.token-file")}, zap.NewNop()).
			Requests(context.Background(), path)
		if err != nil {
			log.Fatalf("loading requests: %s", err)
		}

		if err := writeRequests(os.Stdout, format, input.Summaries(raws)); err != nil {
			log.Fatalf("writing requests: %s", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(requestsCmd)

	requestsCmd.Flags().String("requests", "", "requests file or URL (default from data.requests)")
	requestsCmd.Flags().StringP("output", "o", outputTable, "output format: table or json")
}
