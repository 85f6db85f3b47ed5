package types

// Version is overwritten at build time with -ldflags "-X github.com/m-mizutani/slipguard/pkg/domain/types.Version=x.y.z"
var Version = "dev"

// AppName is used for the CLI name, the env var prefix and the HTTP user agent
const AppName = "slipguard"
