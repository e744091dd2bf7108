package version

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	unknown = "unknown"
	product = "oss-credentials"
)

// set by -ldflags "-X github.com/aliyun/oss-credentials/pkg/version.gitVersion=..."
var (
	gitVersion = "v0.0.0-master+$Format:%H$"
	gitCommit  = "$Format:%H$"
	buildDate  = "1970-01-01T00:00:00Z"
)

var (
	// Version is the one line form printed by the cli.
	Version string
	// UA is sent with every outbound credential request.
	UA string
)

func init() {
	info := Get()
	Version = info.String()
	UA = info.UserAgent(os.Args[0])
}

// Info describes the running build.
type Info struct {
	GitVersion string
	GitCommit  string
	BuildDate  string
	GoVersion  string
	Platform   string
}

func Get() Info {
	return Info{
		GitVersion: gitVersion,
		GitCommit:  gitCommit,
		BuildDate:  buildDate,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s (%s) %s %s", product, adjustVersion(i.GitVersion), i.Platform, i.GitCommit, i.BuildDate)
}

// UserAgent in the form `cmd/v1.2.3 (linux/amd64) oss-credentials/abcdef0`.
func (i Info) UserAgent(cmd string) string {
	return fmt.Sprintf("%s/%s (%s) %s/%s", adjustCommand(cmd), adjustVersion(i.GitVersion), i.Platform, product, adjustCommit(i.GitCommit))
}

// adjustVersion drops the pre-release suffix of major.minor.patch-suffix.
func adjustVersion(v string) string {
	if v == "" {
		return unknown
	}
	return strings.SplitN(v, "-", 2)[0]
}

func adjustCommand(p string) string {
	if p == "" {
		return unknown
	}
	return filepath.Base(p)
}

// adjustCommit keeps the short hash.
func adjustCommit(c string) string {
	if c == "" {
		return unknown
	}
	if len(c) > 7 {
		return c[:7]
	}
	return c
}
