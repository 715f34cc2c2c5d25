package main

import (
	"os"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

type config struct {
	Packs struct {
		// Paths are searched in order, so earlier packs override later ones.
		Paths []string `toml:"paths"`
	} `toml:"packs"`
	Output struct {
		Dir       string `toml:"dir"`
		AtlasSize int    `toml:"atlas_size"`
		CellSize  int    `toml:"cell_size"`
	} `toml:"output"`
	Serve struct {
		Addr    string `toml:"addr"`
		Workers int    `toml:"workers"`
	} `toml:"serve"`
	Fetch struct {
		Version string `toml:"version"`
	} `toml:"fetch"`
}

func defaultConfig() config {
	c := config{}
	c.Fetch.Version = "1.18.2"
	c.Packs.Paths = []string{"minecraft-" + c.Fetch.Version + ".jar"}
	c.Output.Dir = "out"
	c.Output.AtlasSize = 512
	c.Output.CellSize = 16
	c.Serve.Addr = "127.0.0.1:9999"
	c.Serve.Workers = 2
	return c
}

func (c *config) validate() error {
	if len(c.Packs.Paths) == 0 {
		return errors.New("packs.paths must name at least one pack")
	}
	if c.Output.CellSize <= 0 || c.Output.AtlasSize < c.Output.CellSize {
		return errors.Errorf("atlas_size %d must hold at least one %d pixel cell", c.Output.AtlasSize, c.Output.CellSize)
	}
	if c.Output.AtlasSize%c.Output.CellSize != 0 {
		return errors.Errorf("atlas_size %d is not a multiple of cell_size %d", c.Output.AtlasSize, c.Output.CellSize)
	}
	if c.Serve.Workers < 1 {
		c.Serve.Workers = 1
	}
	return nil
}

// readConfig reads the configuration from path, or writes the defaults
// there if it does not exist yet.
func readConfig(path string) (config, error) {
	c := defaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		data, err := toml.Marshal(c)
		if err != nil {
			return c, errors.Wrap(err, "failed encoding default config")
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return c, errors.Wrap(err, "failed creating config")
		}
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c, errors.Wrap(err, "error reading config")
	}
	if err := toml.Unmarshal(data, &c); err != nil {
		return c, errors.Wrapf(err, "error decoding %s", path)
	}
	return c, c.validate()
}
