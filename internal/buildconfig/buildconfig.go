package buildconfig

// Set at link time:
//
//	go build -ldflags "-X github.com/Harshitk-cp/epistemic/internal/buildconfig.version=v1.2.0 \
//	    -X github.com/Harshitk-cp/epistemic/internal/buildconfig.commit=$(git rev-parse --short HEAD)"
var (
	version = "dev"
	commit  = "unknown"
)

// Info identifies the running binary on /health and in `ledgerctl version`.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

func Version() string {
	return version
}

func Commit() string {
	return commit
}

func Current() Info {
	return Info{Version: version, Commit: commit}
}
