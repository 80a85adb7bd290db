package version

import (
	"fmt"
	"runtime"
	"strings"
)

// Set at build time via -ldflags "-X github.com/robert0714/scm-ldap-plugin/internal/version.Version=..."
var (
	App       string = "scm-ldap-plugin"
	Version   string
	GitCommit string
	BuildTime string
)

// String returns the multi-line version report
func String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s version %s\n", App, effectiveVersion())
	if GitCommit != "" {
		fmt.Fprintf(&b, "Git commit: %s\n", shortCommit())
	}
	if BuildTime != "" {
		fmt.Fprintf(&b, "Build time: %s\n", BuildTime)
	}
	fmt.Fprintf(&b, "Go version: %s\n", runtime.Version())
	fmt.Fprintf(&b, "Built for: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	return b.String()
}

// PrintVersion prints the version information to stdout
func PrintVersion() {
	fmt.Print(String())
}

func shortCommit() string {
	if len(GitCommit) > 7 {
		return GitCommit[:7]
	}
	return GitCommit
}

func effectiveVersion() string {
	if Version != "" {
		return Version
	}
	return "dev"
}
