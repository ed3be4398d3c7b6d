package cmd

import (
	"github.com/spf13/cobra"

	"github.com/km-arc/go-bootstrap/framework/app"
)

var (
	envFiles  []string
	configDir string
)

// newApplication builds the application for a command, can be replaced in tests
var newApplication = func(opts ...app.Option) (*app.Application, error) {
	return app.New(opts...)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Run and inspect a container-driven Go application",
	Long: "bootstrap serves the HTTP application assembled by the IoC container " +
		"and inspects the container's bindings and dependency plans.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env", []string{".env"}, "dotenv files to load")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "config", "directory of YAML config files")
}

// Execute runs the root command. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

// bootApplication builds and boots the application from the persistent flags.
func bootApplication() (*app.Application, error) {
	a, err := newApplication(app.WithEnvFiles(envFiles...), app.WithConfigDir(configDir))
	if err != nil {
		return nil, err
	}
	if err := a.Boot(); err != nil {
		return nil, err
	}
	return a, nil
}
