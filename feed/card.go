package feed

import (
	"fmt"

	"github.com/reelcore/reelcore/handle"
	"github.com/reelcore/reelcore/media"
)

// Card is the observable state of one registered card.
type Card struct {
	ID      media.VideoID `json:"id" jsonschema:"description=Video identifier of the card"`
	URL     string        `json:"url" jsonschema:"description=Media URL the player was prepared with"`
	Title   string        `json:"title,omitempty" jsonschema:"description=Title reported by the decoder"`
	State   string        `json:"state" jsonschema:"enum=idle,enum=loading,enum=ready,enum=playing,enum=paused,enum=stalled,enum=failed"`
	Active  bool          `json:"active" jsonschema:"description=Whether this card is the one allowed to play"`
	Pending bool          `json:"pending" jsonschema:"description=Whether the card plays as soon as loading completes"`
	Visible float64       `json:"visible" jsonschema:"minimum=0,maximum=1,description=Last reported visible fraction"`

	Duration      float64 `json:"duration" jsonschema:"description=Media duration in seconds, 0 until loaded"`
	BufferedAhead float64 `json:"buffered_ahead" jsonschema:"description=Seconds buffered past the playhead"`
	Stalled       bool    `json:"stalled" jsonschema:"description=Playback is waiting for data"`

	SpeedLevel int     `json:"speed_level" jsonschema:"minimum=1,maximum=4,description=Fast-forward level shown to the user"`
	SpeedLabel string  `json:"speed_label" jsonschema:"example=2x"`
	Rate       float32 `json:"rate" jsonschema:"description=Playback rate actually applied"`

	Muted       bool   `json:"muted"`
	AudioDenied bool   `json:"audio_denied" jsonschema:"description=The audio session could not be activated for this card"`
	Failure     string `json:"failure,omitempty" jsonschema:"description=Why the last load or playback failed"`
}

// IsPlaying reports whether id is playing right now.
func (f *Feed) IsPlaying(id media.VideoID) bool {
	var playing bool
	_ = f.read(func() {
		if h, ok := f.reg.Lookup(id); ok {
			playing = h.State() == handle.Playing
		}
	})
	return playing
}

// IsStalled reports whether id is stalled or about to.
func (f *Feed) IsStalled(id media.VideoID) bool {
	var stalled bool
	_ = f.read(func() {
		if h, ok := f.reg.Lookup(id); ok {
			stalled = h.IsStalled()
		}
	})
	return stalled
}

// CurrentSpeedLevel is the level the press gesture asks for on id, 1 when not pressed.
// The applied rate may be lower, see EffectiveRate.
func (f *Feed) CurrentSpeedLevel(id media.VideoID) int {
	level := handle.MinLevel
	_ = f.read(func() {
		level = f.speedLevel(id)
	})
	return level
}

func (f *Feed) speedLevel(id media.VideoID) int {
	if cur, ok := f.pressed.Get(); ok && cur == id {
		return f.press.Level()
	}
	return handle.MinLevel
}

// EffectiveRate is the playback rate applied to id.
func (f *Feed) EffectiveRate(id media.VideoID) float32 {
	r := handle.RateFor(handle.MinLevel)
	_ = f.read(func() {
		if h, ok := f.reg.Lookup(id); ok {
			r = h.Rate()
		}
	})
	return r
}

// Active returns the card currently allowed to play.
func (f *Feed) Active() (media.VideoID, bool) {
	var (
		id media.VideoID
		ok bool
	)
	_ = f.read(func() {
		id, ok = f.reg.Active().Get()
	})
	return id, ok
}

// Snapshot returns every registered card ordered by id.
func (f *Feed) Snapshot() []Card {
	var cards []Card
	_ = f.read(func() {
		ids := f.reg.IDs()
		cards = make([]Card, 0, len(ids))
		for _, id := range ids {
			cards = append(cards, f.card(id))
		}
	})
	return cards
}

// Card returns the state of one card.
func (f *Feed) Card(id media.VideoID) (Card, bool) {
	var (
		card  Card
		found bool
	)
	_ = f.read(func() {
		if _, found = f.reg.Lookup(id); found {
			card = f.card(id)
		}
	})
	return card, found
}

func (f *Feed) card(id media.VideoID) Card {
	h, _ := f.reg.Lookup(id)
	active, _ := f.reg.Active().Get()
	pending, _ := f.reg.Pending().Get()
	visible, _ := f.vis.Percentage(id)
	level := f.speedLevel(id)

	card := Card{
		ID:            id,
		URL:           h.URL(),
		State:         h.State().String(),
		Active:        active == id && f.reg.Active().IsPresent(),
		Pending:       pending == id && f.reg.Pending().IsPresent(),
		Visible:       visible,
		BufferedAhead: h.BufferedAhead(),
		Stalled:       h.IsStalled(),
		SpeedLevel:    level,
		SpeedLabel:    fmt.Sprintf("%dx", level),
		Rate:          h.Rate(),
		Muted:         h.Muted(),
		AudioDenied:   f.reg.AudioDenied(id) != nil,
	}

	if meta, ok := h.Metadata().Get(); ok {
		card.Duration = meta.Duration
		card.Title = meta.Title
	}
	if err := h.Failure(); err != nil {
		card.Failure = err.Error()
	}

	return card
}
