// Package cmd contains the CLI setup and commands exposed to the user
package cmd

import (
	"fmt"
	"os"

	"github.com/parley-chat/parley/configs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var ConfigFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Terminal client for websocket chat rooms",
	Long:  ``,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// deferring this allows user to override config path with cli option
	cobra.OnInitialize(func() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.InfoLevel)

		configs.InitConfig(ConfigFile)
		if viper.GetBool("debug") {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
	})

	configDir := configs.GetConfigDir()
	defaultConfigFilePath := fmt.Sprintf("%s/parley.toml", configDir)
	rootCmd.PersistentFlags().StringVar(&ConfigFile, "config", defaultConfigFilePath, "config file")

	rootCmd.PersistentFlags().String("chat-server", "", "Chat Server Address")
	rootCmd.PersistentFlags().Bool("debug", false, "Print debugging information")

	// expose to application via viper
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("servers.chat-origin", rootCmd.PersistentFlags().Lookup("chat-server"))
}
