package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"

	"github.com/reelcore/reelcore/color"
	"github.com/reelcore/reelcore/constant"
	"github.com/reelcore/reelcore/key"
	"github.com/reelcore/reelcore/style"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Field is one configuration key with its default and help text.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty renders the field for `reelcore config info`.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable overriding this field.
func (f *Field) Env() string {
	env := strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
	prefix := strings.ToUpper(constant.Reelcore + "_")
	if strings.HasPrefix(env, prefix) {
		return env
	}
	return prefix + env
}

// MarshalJSON includes the current value next to the default.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        f.TypeName(),
	})
}

// TypeName names the type of the default value.
func (f *Field) TypeName() string {
	switch f.Value.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case float64:
		return "float"
	case bool:
		return "bool"
	case []string:
		return "[]string"
	default:
		return "unknown"
	}
}

// Default holds every known field by key.
var Default = make(map[string]Field)

// EnvExposed lists the keys bound to environment variables.
var EnvExposed []string

func register(k string, v any, desc string) {
	if _, exists := Default[k]; exists {
		panic("duplicate config key: " + k)
	}
	Default[k] = Field{Key: k, Value: v, Description: desc}
	EnvExposed = append(EnvExposed, k)
}

func init() {
	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")
	register(key.CliColored, true, "Enable colored CLI output")
	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, kaomoji, plain, squares, nerd (nerd-font required)")

	register(key.PlayerBackend, "sim", "Decoder behind every card.\nAvailable options are: sim, mpv")
	register(key.PlayerLoop, true, "Restart a video from the beginning when it ends")
	register(key.PlayerLoadTimeout, 15.0, "Seconds a load may take before the card fails. 0 waits forever")
	register(key.PlayerMpvPath, "mpv", "Path to the mpv executable")

	register(key.BufferPollInterval, 500, "Milliseconds between two buffer samples of the mpv backend")

	register(key.RateDragStep, 60.0, "Upward drag distance that adds one fast-forward level")
	register(key.RateLevel4MinBuffer, 6.0, "Seconds buffered ahead required for the 4x level")
	register(key.RateLevel3MinBuffer, 3.5, "Seconds buffered ahead required for the 3x level")

	register(key.SimBandwidth, 3.0, "Media seconds the simulated network buffers per second")
	register(key.SimLoadLatency, 300, "Milliseconds a simulated load takes")
	register(key.SimDuration, 15.0, "Duration in seconds of every simulated video")
	register(key.SimFailPattern, "broken", "Simulated loads of URLs containing this text fail")

	register(key.FeedContinueOnStart, false, "Reopen the last feed position when the terminal feed starts")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":    style.Faint,
	"bold":     style.Bold,
	"purple":   style.Fg(color.Purple),
	"blue":     style.Fg(color.Blue),
	"cyan":     style.Fg(color.Cyan),
	"value":    func(k string) any { return viper.Get(k) },
	"typename": func(v any) string { return reflect.TypeOf(v).String() },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			b := strconv.FormatBool(value)
			if value {
				return style.Fg(color.Green)(b)
			}
			return style.Fg(color.Red)(b)
		case string:
			return style.Fg(color.Yellow)(value)
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint .Description }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl (value .Key) }}
{{ blue "Default:" }} {{ hl (.Value) }}
{{ blue "Type:" }}    {{ typename .Value }}`))
