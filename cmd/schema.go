package cmd

import (
	"encoding/json"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/reelcore/reelcore/feed"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.SetOut(os.Stdout)
}

// schemaCmd prints the JSON schema of the card state exposed to hosts.
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the observable card state",
	Run: func(cmd *cobra.Command, args []string) {
		reflector := &jsonschema.Reflector{DoNotReference: true}

		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		handleErr(encoder.Encode(reflector.Reflect(&feed.Card{})))
	},
}
