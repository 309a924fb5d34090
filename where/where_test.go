package where

import (
	"path/filepath"
	"testing"

	"github.com/reelcore/reelcore/filesystem"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestPaths(t *testing.T) {
	Convey("Directories are created on demand", t, func() {
		for _, dir := range []string{Config(), Cache(), Logs(), Scenarios()} {
			So(dir, ShouldNotBeEmpty)
			So(lo.Must(filesystem.API().IsDir(dir)), ShouldBeTrue)
		}
	})

	Convey("The session file lives in the cache", t, func() {
		So(filepath.Dir(Session()), ShouldEqual, Cache())
	})

	Convey("The config directory can be overridden", t, func() {
		t.Setenv(EnvConfigPath, "/custom/reelcore")
		So(Config(), ShouldEqual, "/custom/reelcore")
		So(Logs(), ShouldEqual, filepath.Join("/custom/reelcore", "logs"))
	})
}
