package cli

import (
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	git "github.com/go-git/go-git/v5"

	"github.com/omnicli/omni/pkg/console"
)

// applyUserConfigSuggestions implements up's lifecycle step 7: diff the
// workdir's suggest_config block against the user's global configuration
// and, per top-level key absent there, offer to add it (§4.3). mode is one
// of "yes" (apply without asking), "ask" (prompt per key), or "no" (skip,
// the --update-user-config default).
func applyUserConfigSuggestions(app *appContext, mode string) error {
	if mode == "no" {
		return nil
	}
	suggestions := app.Config.WorkdirSuggestions()
	raw, ok := suggestions["suggest_config"]
	suggested, ok2 := raw.(map[string]any)
	if !ok || !ok2 || len(suggested) == 0 {
		return nil
	}

	path, err := globalConfigPath()
	if err != nil {
		return err
	}
	existing, err := readYAMLFile(path)
	if err != nil {
		return err
	}

	changed := false
	for key, value := range suggested {
		if _, present := existing[key]; present {
			continue
		}
		apply := mode == "yes"
		if !apply && mode != "no" {
			apply, err = console.ConfirmAction(
				"Add suggested config key \""+key+"\" to your global configuration?", "Yes", "No",
			)
			if err != nil {
				return err
			}
		}
		if apply {
			existing[key] = value
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return writeYAMLFile(path, existing)
}

// applyCloneSuggestions offers to clone each repository named under the
// workdir's suggest_clone block (short-form "org/repo" or "host:org/repo"
// entries) to its canonical worktree path.
func applyCloneSuggestions(app *appContext, mode string) error {
	if mode == "no" {
		return nil
	}
	suggestions := app.Config.WorkdirSuggestions()
	raw, ok := suggestions["suggest_clone"]
	list, ok2 := raw.([]any)
	if !ok || !ok2 {
		return nil
	}

	for _, item := range list {
		repo, ok := item.(string)
		if !ok || repo == "" {
			continue
		}
		id, err := resolveCloneTarget(repo, app)
		if err != nil {
			continue
		}
		dest := cloneDestination(app, id, false)
		if _, err := os.Stat(dest); err == nil {
			continue
		}

		apply := mode == "yes"
		if !apply {
			apply, err = console.ConfirmAction("Clone suggested repository "+id.String()+"?", "Yes", "No")
			if err != nil {
				return err
			}
		}
		if !apply {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		url := "https://" + id.Host + "/" + id.Org + "/" + id.Repo + ".git"
		if _, err := git.PlainClone(dest, false, &git.CloneOptions{URL: url}); err != nil {
			return err
		}
	}
	return nil
}

func globalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".omni.yaml"), nil
}

func readYAMLFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func writeYAMLFile(path string, content map[string]any) error {
	data, err := yaml.Marshal(content)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
