// Package icon provides a flexible multi-variant rendering engine for UI symbols and feedback indicators.
//
// Icons can be displayed as emoji, nerd-font glyphs, plain ASCII, kaomoji,
// or Unicode squares depending on user preference.
package icon

import (
	"github.com/reelcore/reelcore/key"
	"github.com/spf13/viper"
)

// Visual Variant Constants - these define the supported aesthetic styles for icon rendering.
const (
	emoji   = "emoji"
	nerd    = "nerd"
	plain   = "plain"
	kaomoji = "kaomoji"
	squares = "squares"
)

// AvailableVariants returns a slice of all registered icon style identifiers.
func AvailableVariants() []string {
	return []string{emoji, nerd, plain, kaomoji, squares}
}

// Icon identifies a symbol of the interface.
type Icon int

const (
	Playing Icon = iota
	Paused
	Loading
	Ready
	Stalled
	Fail
	Success
	Fast
	Muted
	Active
	Lua
	Config
	Progress
)

// iconDef encapsulates the visual representations of a single UI symbol across all supported variants.
type iconDef struct {
	emoji   string
	nerd    string
	plain   string
	kaomoji string
	squares string
}

var icons = map[Icon]*iconDef{
	Playing: {
		emoji:   "▶️",
		nerd:    "",
		plain:   ">",
		kaomoji: "(ノ^_^)ノ",
		squares: "▶",
	},
	Paused: {
		emoji:   "⏸️",
		nerd:    "",
		plain:   "||",
		kaomoji: "(-_-)zzz",
		squares: "◼",
	},
	Loading: {
		emoji:   "⏳",
		nerd:    "",
		plain:   "...",
		kaomoji: "(・・ )?",
		squares: "◌",
	},
	Ready: {
		emoji:   "🎬",
		nerd:    "",
		plain:   "o",
		kaomoji: "(๑•̀ㅂ•́)و",
		squares: "◻",
	},
	Stalled: {
		emoji:   "🐢",
		nerd:    "",
		plain:   "~",
		kaomoji: "(；一_一)",
		squares: "▒",
	},
	Fail: {
		emoji:   "💀",
		nerd:    "",
		plain:   "X",
		kaomoji: "(╯°□°）╯︵ ┻━┻",
		squares: "▣",
	},
	Success: {
		emoji:   "🎉",
		nerd:    "",
		plain:   "Success",
		kaomoji: "(ﾉ◕ヮ◕)ﾉ*:･ﾟ✧",
		squares: "▢",
	},
	Fast: {
		emoji:   "⏩",
		nerd:    "",
		plain:   ">>",
		kaomoji: "ε=ε=┌( >_<)┘",
		squares: "▶▶",
	},
	Muted: {
		emoji:   "🔇",
		nerd:    "",
		plain:   "(muted)",
		kaomoji: "(｀ε´)",
		squares: "▫",
	},
	Active: {
		emoji:   "👉",
		nerd:    "",
		plain:   "*",
		kaomoji: "(☞ﾟヮﾟ)☞",
		squares: "■",
	},
	Lua: {
		emoji:   "🌙",
		nerd:    "",
		plain:   "Lua",
		kaomoji: "☽",
		squares: "◐",
	},
	Config: {
		emoji:   "⚙️",
		nerd:    "",
		plain:   "Config",
		kaomoji: "(￣ー￣)ゞ",
		squares: "▦",
	},
	Progress: {
		emoji:   "👀",
		nerd:    "",
		plain:   "@",
		kaomoji: "(⊙_⊙)",
		squares: "▪",
	},
}

// Get retrieves the visual representation for the receiver Def based on the global icons variant configuration.
func (d *iconDef) Get() string {
	switch viper.GetString(key.IconsVariant) {
	case emoji:
		return d.emoji
	case nerd:
		return d.nerd
	case plain:
		return d.plain
	case kaomoji:
		return d.kaomoji
	case squares:
		return d.squares
	default:
		return ""
	}
}

// Get returns the rendered string for a specified Icon identifier from the global registry.
func Get(i Icon) string {
	return icons[i].Get()
}
