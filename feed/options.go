package feed

import (
	"time"

	"github.com/reelcore/reelcore/audio"
	"github.com/reelcore/reelcore/key"
	"github.com/reelcore/reelcore/media"
	"github.com/reelcore/reelcore/rate"
	"github.com/spf13/viper"
)

// OptionsFromConfig reads the feed tuning from the loaded configuration.
func OptionsFromConfig(factory media.Factory, session audio.Session) Options {
	return Options{
		Factory: factory,
		Session: session,
		Gate: rate.Gate{
			Level4MinAhead: viper.GetFloat64(key.RateLevel4MinBuffer),
			Level3MinAhead: viper.GetFloat64(key.RateLevel3MinBuffer),
		},
		DragStep:    viper.GetFloat64(key.RateDragStep),
		LoadTimeout: seconds(viper.GetFloat64(key.PlayerLoadTimeout)),
		Loop:        viper.GetBool(key.PlayerLoop),
	}
}

func seconds(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}
