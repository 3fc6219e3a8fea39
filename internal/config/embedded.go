package config

// Values injected at build time via ldflags.
//
// Build with:
//
//	go build -ldflags "-X 'github.com/serialgrab/serialgrab/internal/config.EmbeddedTMDBKey=xxx' \
//	                   -X 'github.com/serialgrab/serialgrab/internal/config.Version=v1.2.3'"
var (
	EmbeddedTMDBKey string
	Version         = "dev"
)
