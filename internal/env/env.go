// Package env captures details about the ATG driver's ambient
// environment.
package env

import "os"

// ATGRoot is the root directory under which per-environment scratch
// directories are created when --atg_work_dir is not given.
var ATGRoot = findATGRoot()

func findATGRoot() string {
	if v := os.Getenv("ATGROOT"); v != "" {
		return v
	}
	return os.ExpandEnv("$HOME/.atgdriver") // default
}
