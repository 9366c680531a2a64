package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yz4230/sitehost/cmd/site"
	"github.com/yz4230/sitehost/internal/config"
)

var rootFlags struct {
	verbose    bool
	configFile string
}

var rootCmd = &cobra.Command{
	Use:   "sitehost",
	Short: "Build and publish template sites for paid orders",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		if rootFlags.verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
		if rootFlags.configFile != "" {
			viper.SetConfigFile(rootFlags.configFile)
		}
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	config.Setup(viper.GetViper())

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&rootFlags.verbose, "verbose", "v", false, "Enable verbose output")
	flags.StringVarP(&rootFlags.configFile, "config", "c", "", "Config file (yaml, toml or json)")
	flags.StringP("root", "r", "./templates", "Templates root holding sources/ and builds/")
	flags.String("database", "sitehost.db", "Database url or sqlite path")
	flags.String("bucket", "", "S3 bucket receiving the sites")
	lo.Must0(viper.BindPFlag("templates.root", flags.Lookup("root")))
	lo.Must0(viper.BindPFlag("database.url", flags.Lookup("database")))
	lo.Must0(viper.BindPFlag("aws.bucket", flags.Lookup("bucket")))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(site.SiteCmd)
}
