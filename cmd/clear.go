package cmd

import (
	"fmt"

	"github.com/reelcore/reelcore/icon"
	"github.com/reelcore/reelcore/session"
	"github.com/reelcore/reelcore/util"
	"github.com/reelcore/reelcore/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

// clearTarget is something `reelcore clear` can remove.
type clearTarget struct {
	name     string
	argLong  string
	argShort mo.Option[string]
	clear    func() error
}

var clearTargets = []clearTarget{
	{"saved position", "session", mo.Some("s"), session.Forget},
	{"logs directory", "logs", mo.Some("l"), func() error { return util.Delete(where.Logs()) }},
	{"cache directory", "cache", mo.Some("c"), func() error { return util.Delete(where.Cache()) }},
}

func init() {
	rootCmd.AddCommand(clearCmd)

	for _, target := range clearTargets {
		help := fmt.Sprintf("clear %s", target.name)
		if target.argShort.IsPresent() {
			clearCmd.Flags().BoolP(target.argLong, target.argShort.MustGet(), false, help)
		} else {
			clearCmd.Flags().Bool(target.argLong, false, help)
		}
	}
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the saved position, logs or cache",
	Run: func(cmd *cobra.Command, args []string) {
		var anyCleared bool

		for _, target := range clearTargets {
			if !lo.Must(cmd.Flags().GetBool(target.argLong)) {
				continue
			}

			anyCleared = true
			e := util.PrintErasable(fmt.Sprintf("%s Clearing %s...", icon.Get(icon.Progress), target.name))
			err := target.clear()
			e()
			handleErr(err)
			fmt.Printf("%s %s cleared\n", icon.Get(icon.Success), util.Capitalize(target.name))
		}

		if !anyCleared {
			handleErr(cmd.Help())
		}
	},
}
