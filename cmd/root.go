package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/nsyszr/msgbroker/config"
	"github.com/nsyszr/msgbroker/pkg/cmd/cli"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string
var c = new(config.Config)
var cmdHandler = cli.NewHandler(c)

var (
	Version   = "dev-master"
	BuildTime = "undefined"
	GitHash   = "undefined"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "msgbroker",
	Short: "Topic based message broker with scheduled delivery",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(cmd.UsageString())
		os.Exit(2)
	},
}

// Execute runs the msgbroker and is called by main.main()
func Execute() {
	c.BuildTime = BuildTime
	c.BuildVersion = Version
	c.BuildHash = GitHash

	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.msgbroker.yml)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// enable ability to specify config file via flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			path := filepath.Join(home, ".msgbroker.yml")
			if _, err := os.Stat(path); err != nil {
				if f, err := os.Create(path); err == nil {
					f.Close()
				}
			}
		}

		viper.SetConfigType("yaml")
		viper.SetConfigName(".msgbroker") // name of config file (without extension)
		viper.AddConfigPath("$HOME")      // adding home directory as first search path
	}
	viper.AutomaticEnv() // read in environment variables that match

	setDefaults()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf(`Config file not found because "%s"`, err)
		fmt.Println("")
	}

	if err := viper.Unmarshal(c); err != nil {
		log.Fatal(fmt.Sprintf("Could not read config because %s.", err))
	}
}

func setDefaults() {
	viper.BindEnv("PORT")
	viper.SetDefault("PORT", 3000)

	viper.BindEnv("HOST")
	viper.SetDefault("HOST", "0.0.0.0")

	viper.BindEnv("LOG_LEVEL")
	viper.SetDefault("LOG_LEVEL", "info")

	viper.BindEnv("LOG_FORMAT")
	viper.SetDefault("LOG_FORMAT", "text")

	viper.BindEnv("STORAGE_ENABLED")
	viper.SetDefault("STORAGE_ENABLED", true)

	viper.BindEnv("STORAGE_DRIVER")
	viper.SetDefault("STORAGE_DRIVER", "file")

	viper.BindEnv("DATA_DIR")
	viper.SetDefault("DATA_DIR", "./data")

	viper.BindEnv("DATABASE_URL")
	viper.SetDefault("DATABASE_URL", "")

	viper.BindEnv("AUTO_SAVE_INTERVAL")
	viper.SetDefault("AUTO_SAVE_INTERVAL", "5m")

	viper.BindEnv("HISTORY_WINDOW")
	viper.SetDefault("HISTORY_WINDOW", "168h")

	viper.BindEnv("OUTBOX_SIZE")
	viper.SetDefault("OUTBOX_SIZE", 100)

	viper.BindEnv("NATS_URL")
	viper.SetDefault("NATS_URL", "")

	viper.SetDefault("USERS", []config.User{})
}
