package cmd

import (
	"fmt"
	"time"

	"github.com/reelcore/reelcore/key"
	"github.com/reelcore/reelcore/media"
	"github.com/reelcore/reelcore/media/mpv"
	"github.com/reelcore/reelcore/media/sim"
	"github.com/spf13/viper"
)

const (
	backendSim = "sim"
	backendMpv = "mpv"
)

var availableBackends = []string{backendSim, backendMpv}

// simConfig is the automatic simulated decoder tuned by the sim.* keys.
func simConfig() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.Bandwidth = viper.GetFloat64(key.SimBandwidth)
	cfg.LoadLatency = time.Duration(viper.GetInt(key.SimLoadLatency)) * time.Millisecond
	cfg.Duration = viper.GetFloat64(key.SimDuration)
	cfg.FailPattern = viper.GetString(key.SimFailPattern)
	return cfg
}

// newFactory builds the decoder factory selected by player.backend.
func newFactory() (media.Factory, error) {
	switch backend := viper.GetString(key.PlayerBackend); backend {
	case backendSim:
		return sim.NewPool(simConfig()).Factory, nil
	case backendMpv:
		path := viper.GetString(key.PlayerMpvPath)
		if err := checkDependency(path); err != nil {
			return nil, err
		}
		return mpv.Factory(mpv.Config{
			Path:         path,
			PollInterval: time.Duration(viper.GetInt(key.BufferPollInterval)) * time.Millisecond,
		}), nil
	default:
		return nil, fmt.Errorf("unknown player backend %q, available options are: %v", backend, availableBackends)
	}
}
