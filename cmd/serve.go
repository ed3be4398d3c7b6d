package cmd

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/km-arc/go-bootstrap/framework/routing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the application over HTTP",
	Long:  "Boot every provider and serve HTTP on APP_PORT until interrupted, then tear the container down.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootApplication()
		if err != nil {
			return err
		}

		a.Router().Get("/", func(w http.ResponseWriter, r *http.Request) {
			routing.NewResponse(w).Success(map[string]any{
				"app":     a.Config().App.Name,
				"version": a.Version(),
			})
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return a.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
