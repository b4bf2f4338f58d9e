package cli

import (
	"os"
	"testing"

	"github.com/omnicli/omni/pkg/constants"
)

func TestOmnipathDirs_EnvOnlyWithoutConfigLists(t *testing.T) {
	app := testAppContext(t, "")
	t.Setenv(constants.EnvOmniPath, "/from/env")

	dirs := omnipathDirs(app.Config)
	if len(dirs) != 1 || dirs[0] != "/from/env" {
		t.Errorf("omnipathDirs = %v, want [/from/env]", dirs)
	}
}

func TestOmnipathDirs_EmptyWithoutEnv(t *testing.T) {
	os.Unsetenv(constants.EnvOmniPath)
	app := testAppContext(t, "")

	if dirs := omnipathDirs(app.Config); len(dirs) != 0 {
		t.Errorf("omnipathDirs = %v, want empty", dirs)
	}
}
