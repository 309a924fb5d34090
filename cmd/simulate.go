package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/reelcore/reelcore/audio"
	"github.com/reelcore/reelcore/constant"
	"github.com/reelcore/reelcore/feed"
	"github.com/reelcore/reelcore/filesystem"
	"github.com/reelcore/reelcore/icon"
	"github.com/reelcore/reelcore/key"
	"github.com/reelcore/reelcore/media/sim"
	"github.com/reelcore/reelcore/scenario"
	"github.com/reelcore/reelcore/style"
	"github.com/reelcore/reelcore/util"
	"github.com/reelcore/reelcore/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.SetOut(os.Stdout)

	simulateCmd.Flags().StringP("new", "N", "", "Scaffold a new scenario with this name in the scenarios directory")
	simulateCmd.Flags().BoolP("journal", "j", false, "Print every decoder operation after the run")
}

var simulateCmd = &cobra.Command{
	Use:   "simulate [script.lua]",
	Short: "Run a Lua scenario against the simulated decoder",
	Long: `Run a Lua scenario against a feed backed by the manual simulated decoder.
Scripts are looked up as given first, then in the scenarios directory.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if name := lo.Must(cmd.Flags().GetString("new")); name != "" {
			path, err := scaffoldScenario(name)
			handleErr(err)
			cmd.Println(path)
			return
		}

		if len(args) == 0 {
			handleErr(cmd.Help())
			return
		}

		path, err := resolveScenario(args[0])
		handleErr(err)

		journal := sim.NewJournal()
		stub := &audio.StubSession{}
		pool := sim.NewPool(sim.Config{
			Manual:   true,
			Duration: viper.GetFloat64(key.SimDuration),
			Journal:  journal,
		})

		f := feed.New(feed.OptionsFromConfig(pool.Factory, stub))
		runner := scenario.New(f, scenario.Options{
			Pool:    pool,
			Journal: journal,
			Session: stub,
			Out:     cmd.OutOrStdout(),
		})

		ctx := cmd.Context()
		handleErr(runWithFeed(ctx, f, func() error {
			return runner.RunFile(ctx, path)
		}))

		if lo.Must(cmd.Flags().GetBool("journal")) {
			for _, op := range journal.Ops() {
				cmd.Println(style.Faint(op))
			}
		}

		cmd.Printf(
			"%s %s passed, %s\n",
			style.Fg(style.SuccessColor)(icon.Get(icon.Success)),
			style.Bold(util.FileStem(path)),
			util.Quantify(pool.Created(), "decoder", "decoders"),
		)
	},
}

// resolveScenario finds name as a path, then in the scenarios directory with or without its extension.
func resolveScenario(name string) (string, error) {
	candidates := []string{name, filepath.Join(where.Scenarios(), name)}
	if filepath.Ext(name) == "" {
		candidates = append(candidates, filepath.Join(where.Scenarios(), name+".lua"))
	}

	for _, path := range candidates {
		if ok, _ := filesystem.API().Exists(path); ok {
			return path, nil
		}
	}
	return "", fmt.Errorf("scenario %s not found", name)
}

func scaffoldScenario(name string) (string, error) {
	author := "Anonymous"
	if usr, err := user.Current(); err == nil {
		author = usr.Username
	}

	tmpl, err := template.New("scenario").Funcs(template.FuncMap{
		"repeat": strings.Repeat,
		"plus":   func(a, b int) int { return a + b },
	}).Parse(constant.ScenarioTemplate)
	if err != nil {
		return "", err
	}

	target := filepath.Join(where.Scenarios(), util.SanitizeFilename(name)+".lua")
	if exists, _ := filesystem.API().Exists(target); exists {
		return "", errors.New(target + " already exists")
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, struct{ Name, Author string }{name, author}); err != nil {
		return "", err
	}

	return target, filesystem.API().WriteFile(target, []byte(b.String()), 0o644)
}
