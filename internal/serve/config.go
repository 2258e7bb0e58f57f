package serve

import (
	"github.com/spf13/cobra"

	"github.com/m1k1o/go-mediapipe/internal/config"
	"github.com/m1k1o/go-mediapipe/internal/server"
)

type Config struct {
	Server  server.Config
	Gateway config.Gateway
}

func (c *Config) Init(cmd *cobra.Command) error {
	if err := c.Server.Init(cmd); err != nil {
		return err
	}
	return c.Gateway.Init(cmd)
}

func (c *Config) Set() {
	c.Server.Set()
	c.Gateway.Set()
}
