// Package main is the entry point of reelcore.
package main

import (
	"github.com/reelcore/reelcore/cmd"
	"github.com/reelcore/reelcore/config"
	"github.com/reelcore/reelcore/log"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	cmd.Execute()
}
