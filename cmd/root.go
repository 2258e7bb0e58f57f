package cmd

import (
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/m1k1o/go-mediapipe/internal/config"
)

const (
	defCfgPath = "/etc/mediapipe/"
	envPrefix  = "MEDIAPIPE"
)

var rootCmd = &cobra.Command{
	Use:     "mediapipe",
	Short:   "Media packaging pipeline and HLS delivery gateway.",
	Long:    `Transcode videos to an HLS rendition ladder, publish them to object storage and serve them through a fault tolerant HLS gateway.`,
	Version: "1.0.0",
}

// called with the fresh config after preflight and on every config file change
var onConfigLoad []func()

func init() {
	var cfgFile string
	logging := &config.Logging{}

	cobra.OnInitialize(func() {
		searchPaths := []string{"."}
		if runtime.GOOS == "linux" {
			searchPaths = append([]string{defCfgPath}, searchPaths...)
		}

		if err := config.Load(cfgFile, envPrefix, searchPaths...); err != nil {
			log.Fatal().Err(err).Str("config", cfgFile).Msg("unable to load configuration")
		}

		logging.Set()
		initLogging(logging)

		if file := viper.ConfigFileUsed(); file != "" {
			viper.OnConfigChange(func(e fsnotify.Event) {
				log.Info().Str("config", e.Name).Msg("config file changed")

				// only the level can change without reopening outputs
				logging.Set()
				zerolog.SetGlobalLevel(logging.Level)

				for _, loadConfig := range onConfigLoad {
					loadConfig()
				}
			})
			viper.WatchConfig()

			log.Info().Str("config", file).Msg("preflight complete with config file")
		} else {
			log.Warn().Msg("preflight complete without config file")
		}

		for _, loadConfig := range onConfigLoad {
			loadConfig()
		}
	})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "configuration file path")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	if err := logging.Init(rootCmd); err != nil {
		log.Panic().Err(err).Msg("unable to register log flags")
	}
}

func Execute() error {
	return rootCmd.Execute()
}

func initLogging(logging *config.Logging) {
	output, file := logging.Output(os.Stderr)
	if file != nil {
		go rotateOnHangup(file)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(logging.Level)
	log.Logger = log.Output(output)

	log.Info().
		Str("level", logging.Level.String()).
		Bool("console", logging.Console).
		Bool("json", logging.JSON).
		Str("file", logging.File).
		Msg("logging configured")
}

func rotateOnHangup(file *lumberjack.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGHUP)

	for range c {
		if err := file.Rotate(); err != nil {
			log.Warn().Err(err).Msg("unable to rotate log file")
		}
	}
}
