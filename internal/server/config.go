package server

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type Config struct {
	Bind    string
	SSLCert string
	SSLKey  string
	Proxy   bool // trust X-Forwarded-For and X-Real-IP
	Debug   bool // mount /metrics and /debug/pprof
}

func (Config) Init(cmd *cobra.Command) error {
	cmd.PersistentFlags().String("bind", "127.0.0.1:8080", "address/port/socket of the gateway")
	if err := viper.BindPFlag("bind", cmd.PersistentFlags().Lookup("bind")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("sslcert", "", "path to the SSL cert")
	if err := viper.BindPFlag("sslcert", cmd.PersistentFlags().Lookup("sslcert")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("sslkey", "", "path to the SSL key")
	if err := viper.BindPFlag("sslkey", cmd.PersistentFlags().Lookup("sslkey")); err != nil {
		return err
	}

	cmd.PersistentFlags().Bool("proxy", false, "gateway runs behind a reverse proxy or CDN")
	if err := viper.BindPFlag("proxy", cmd.PersistentFlags().Lookup("proxy")); err != nil {
		return err
	}

	cmd.PersistentFlags().Bool("debug", false, "expose prometheus metrics at /metrics and profiling at /debug/pprof")
	if err := viper.BindPFlag("debug", cmd.PersistentFlags().Lookup("debug")); err != nil {
		return err
	}

	return nil
}

func (c *Config) Set() {
	c.Bind = viper.GetString("bind")
	c.SSLCert = viper.GetString("sslcert")
	c.SSLKey = viper.GetString("sslkey")
	c.Proxy = viper.GetBool("proxy")
	c.Debug = viper.GetBool("debug")

	if (c.SSLCert == "") != (c.SSLKey == "") {
		log.Warn().Msg("both sslcert and sslkey are needed for TLS, serving plain http")
	}
}

// TLS reports whether the gateway serves https.
func (c *Config) TLS() bool {
	return c.SSLCert != "" && c.SSLKey != ""
}
