// Package version holds build metadata, set at link time with
// -ldflags "-X github.com/cfoust/voxphys/pkg/version.Version=...".
package version

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func String() string {
	return Version + " (commit " + GitCommit + ")"
}
