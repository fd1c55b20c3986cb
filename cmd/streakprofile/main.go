// Command streakprofile extracts streak velocities from digitised
// microfluidics images, fits the parabolic flow profile and plots it.
package main

import (
	"os"

	"github.com/apex/log"

	"github.com/banshee-data/streak.profile/internal/fsutil"
)

func main() {
	root := newRootCommand(&app{fsys: fsutil.OSFileSystem{}})
	if err := root.Execute(); err != nil {
		log.WithError(err).Error("streakprofile failed")
		os.Exit(1)
	}
}
