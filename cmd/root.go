// Package cmd implements the reelcore command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/reelcore/reelcore/audio"
	"github.com/reelcore/reelcore/color"
	"github.com/reelcore/reelcore/constant"
	"github.com/reelcore/reelcore/feed"
	"github.com/reelcore/reelcore/icon"
	"github.com/reelcore/reelcore/key"
	"github.com/reelcore/reelcore/log"
	"github.com/reelcore/reelcore/style"
	"github.com/reelcore/reelcore/tui"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// demoCards is the length of the simulated feed opened without arguments.
const demoCards = 20

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.PersistentFlags().StringP("icons", "I", "", "Set the visual icon variant (e.g., nerd, emoji, squares)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("icons", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return icon.AvailableVariants(), cobra.ShellCompDirectiveDefault
	}))
	lo.Must0(viper.BindPFlag(key.IconsVariant, rootCmd.PersistentFlags().Lookup("icons")))

	rootCmd.PersistentFlags().StringP("backend", "B", "", "Decoder behind every card (sim, mpv)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("backend", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return availableBackends, cobra.ShellCompDirectiveDefault
	}))
	lo.Must0(viper.BindPFlag(key.PlayerBackend, rootCmd.PersistentFlags().Lookup("backend")))

	rootCmd.Flags().BoolP("continue", "c", false, "Reopen the feed where it was left")
	rootCmd.Flags().IntP("cards", "n", demoCards, "Number of simulated cards when no URL is given")
}

// rootCmd opens the terminal feed over the given URLs, or over a simulated catalogue.
var rootCmd = &cobra.Command{
	Use:   constant.Reelcore + " [url...]",
	Short: "Short-video feed playback core with a terminal feed",
	Long: constant.AsciiArtLogo + "\n" +
		style.New().Italic(true).Foreground(color.HiRed).Render("    - Short-video feed playback core with a terminal feed"),
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.Run(versionCmd, args)
			return
		}

		factory, err := newFactory()
		handleErr(err)

		catalogue := tui.FromURLs(args)
		if len(args) == 0 {
			catalogue = tui.Demo(lo.Must(cmd.Flags().GetInt("cards")))
		}

		options := &tui.Options{
			Continue:  lo.Must(cmd.Flags().GetBool("continue")) || viper.GetBool(key.FeedContinueOnStart),
			DragStep:  viper.GetFloat64(key.RateDragStep),
			Catalogue: catalogue,
		}

		f := feed.New(feed.OptionsFromConfig(factory, audio.LogSession{}))
		handleErr(runWithFeed(cmd.Context(), f, func() error {
			return tui.Run(f, options)
		}))
	},
}

// runWithFeed runs the feed loop next to host and stops it once host returns.
func runWithFeed(ctx context.Context, f *feed.Feed, host func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return f.Run(ctx)
	})
	g.Go(func() error {
		defer cancel()
		return host()
	})

	return g.Wait()
}

// Execute initializes child command routing and processes the CLI entry point.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func handleErr(err error) {
	if err != nil {
		log.Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", icon.Get(icon.Fail), strings.Trim(err.Error(), " \n"))
		os.Exit(1)
	}
}
