package loader

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ardnew/mung"
)

// PathEnv names the environment variable holding additional partial
// directories, separated by [os.PathListSeparator].
const PathEnv = "STACHE_PATH"

// SearchPath returns dirs followed by the directories listed in [PathEnv].
// Entries that are not existing directories are dropped, and each directory
// appears once.
func SearchPath(dirs ...string) []string {
	// mung emits prefix items last-first.
	prefix := slices.Clone(dirs)
	slices.Reverse(prefix)

	list := mung.Make(
		mung.WithSubjectItems(filepath.SplitList(os.Getenv(PathEnv))...),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(prefix...),
		mung.WithFilter(isDir),
	).String()

	var out []string

	seen := map[string]bool{}

	for _, d := range filepath.SplitList(list) {
		d = strings.TrimSpace(d)
		if d == "" || seen[d] || !isDir(d) {
			continue
		}

		seen[d] = true

		out = append(out, d)
	}

	return out
}

func isDir(path string) bool {
	fi, err := os.Stat(path)

	return err == nil && fi.IsDir()
}
