package config

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logging is shared by every command and re-applied on config reload.
type Logging struct {
	Level   zerolog.Level
	Console bool
	JSON    bool // json lines instead of console formatting

	File       string // enables file logging
	MaxAge     int    // days
	MaxSize    int    // megabytes
	MaxBackups int
}

func (Logging) Init(cmd *cobra.Command) error {
	cmd.PersistentFlags().String("log.level", zerolog.InfoLevel.String(), "log level: trace, debug, info, warn or error")
	if err := viper.BindPFlag("log.level", cmd.PersistentFlags().Lookup("log.level")); err != nil {
		return err
	}

	cmd.PersistentFlags().Bool("log.console", true, "log to stderr")
	if err := viper.BindPFlag("log.console", cmd.PersistentFlags().Lookup("log.console")); err != nil {
		return err
	}

	cmd.PersistentFlags().Bool("log.json", false, "write stderr logs as json lines")
	if err := viper.BindPFlag("log.json", cmd.PersistentFlags().Lookup("log.json")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("log.file", "", "also log to this file, rotated on SIGHUP")
	if err := viper.BindPFlag("log.file", cmd.PersistentFlags().Lookup("log.file")); err != nil {
		return err
	}

	cmd.PersistentFlags().Int("log.maxage", 0, "days to keep rotated log files")
	if err := viper.BindPFlag("log.maxage", cmd.PersistentFlags().Lookup("log.maxage")); err != nil {
		return err
	}

	cmd.PersistentFlags().Int("log.maxsize", 100, "megabytes before the log file is rotated")
	if err := viper.BindPFlag("log.maxsize", cmd.PersistentFlags().Lookup("log.maxsize")); err != nil {
		return err
	}

	cmd.PersistentFlags().Int("log.maxbackups", 0, "rotated log files to keep")
	if err := viper.BindPFlag("log.maxbackups", cmd.PersistentFlags().Lookup("log.maxbackups")); err != nil {
		return err
	}

	return nil
}

// Set falls back to info on an unknown level.
func (c *Logging) Set() {
	level, err := zerolog.ParseLevel(viper.GetString("log.level"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	c.Level = level
	c.Console = viper.GetBool("log.console")
	c.JSON = viper.GetBool("log.json")
	c.File = viper.GetString("log.file")
	c.MaxAge = viper.GetInt("log.maxage")
	c.MaxSize = viper.GetInt("log.maxsize")
	c.MaxBackups = viper.GetInt("log.maxbackups")
}

// Output builds the log destination. The returned file logger is nil
// unless file logging is enabled.
func (c *Logging) Output(stderr io.Writer) (io.Writer, *lumberjack.Logger) {
	if stderr == nil {
		stderr = os.Stderr
	}

	var writers []io.Writer
	if c.Console {
		if c.JSON {
			writers = append(writers, stderr)
		} else {
			writers = append(writers, zerolog.ConsoleWriter{Out: stderr})
		}
	}

	var file *lumberjack.Logger
	if c.File != "" {
		file = &lumberjack.Logger{
			Filename:   c.File,
			MaxAge:     c.MaxAge,
			MaxSize:    c.MaxSize,
			MaxBackups: c.MaxBackups,
		}
		writers = append(writers, file)
	}

	return io.MultiWriter(writers...), file
}
