package version

import (
	"fmt"
	"runtime"

	goversion "github.com/hashicorp/go-version"
)

var (
	// Version is the version of the CLI
	Version = "0.1.0"
	// BuildDate is the build date
	BuildDate = "unknown"
	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

// Info holds version information
type Info struct {
	Version   string `json:"version"`
	BuildDate string `json:"buildDate"`
	GitCommit string `json:"gitCommit"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// Get returns version information
func Get() Info {
	return Info{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns a formatted version string
func (i Info) String() string {
	return fmt.Sprintf("lift version %s (%s %s)", i.Version, i.Platform, i.GoVersion)
}

// FullString returns a detailed version string
func (i Info) FullString() string {
	return fmt.Sprintf(`lift version %s
Build Date: %s
Git Commit: %s
Platform: %s
Go Version: %s`, i.Version, i.BuildDate, i.GitCommit, i.Platform, i.GoVersion)
}

// Check verifies that the running version satisfies constraint, e.g.
// ">= 0.1, < 1.0". An empty constraint always passes.
func Check(constraint string) error {
	return check(Version, constraint)
}

func check(current, constraint string) error {
	if constraint == "" {
		return nil
	}
	c, err := goversion.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid required_version %q: %w", constraint, err)
	}
	v, err := goversion.NewVersion(current)
	if err != nil {
		return fmt.Errorf("invalid version format: %w", err)
	}
	if !c.Check(v) {
		return fmt.Errorf("lift %s does not satisfy required_version %q", current, constraint)
	}
	return nil
}
