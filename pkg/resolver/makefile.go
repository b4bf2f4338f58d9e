package resolver

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	makeTargetPattern   = regexp.MustCompile(`^([a-zA-Z0-9_.-]+):`)
	makeHelpPattern     = regexp.MustCompile(`##\s*(.*)$`)
	makeCategoryPattern = regexp.MustCompile(`##@\s*(.*)$`)
)

// walkMakefiles discovers Makefile targets by walking upward from workdir
// to repoRoot (or home if outside a repo), extracting targets annotated
// with a trailing "## help text" on the rule line, and tracking the most
// recent "##@ category" header seen above each rule (§4.2).
func walkMakefiles(workdir, repoRoot, home string) []Record {
	stop := repoRoot
	if stop == "" {
		stop = home
	}

	var records []Record
	seen := map[string]bool{}
	dir := workdir
	for {
		for _, name := range []string{"Makefile", "makefile", "GNUmakefile"} {
			path := filepath.Join(dir, name)
			if seen[path] {
				continue
			}
			seen[path] = true
			records = append(records, parseMakefile(path)...)
		}
		if dir == stop || dir == "/" || dir == "" {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return records
}

func parseMakefile(path string) []Record {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var records []Record
	category := ""
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()

		if m := makeCategoryPattern.FindStringSubmatch(line); m != nil {
			category = strings.TrimSpace(m[1])
			continue
		}

		targetMatch := makeTargetPattern.FindStringSubmatch(line)
		if targetMatch == nil {
			continue
		}
		helpMatch := makeHelpPattern.FindStringSubmatch(line)
		if helpMatch == nil {
			continue // only targets carrying a "## help" comment are exposed
		}

		records = append(records, Record{
			NamePath: []string{targetMatch[1]},
			Source:   SourceMakefile,
			Run:      "make " + targetMatch[1],
			Metadata: Metadata{
				Help:     strings.TrimSpace(helpMatch[1]),
				Category: category,
			},
		})
	}
	return records
}
