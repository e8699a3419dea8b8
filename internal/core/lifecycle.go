package core

import (
	"context"

	"gopkg.in/yaml.v3"
)

// Configurable receives the module's raw YAML section before Provision.
// Decoding only; anything needing the AppContext waits for Provision.
type Configurable interface {
	Configure(node *yaml.Node) error
}

// Provisioner runs after Configure on every module. This is where defaults
// are applied, credentials loaded, and services registered on the
// AppContext so other modules can find them.
type Provisioner interface {
	Provision(ctx *AppContext) error
}

// Validator checks that the configuration is complete. Runs after
// Provision and must be side-effect free; a validation error aborts
// startup before anything connects to the outside world.
type Validator interface {
	Validate() error
}

// Starter begins background work: the update poller, the gRPC channel,
// the HTTP listener. Runs only after every module has provisioned and
// validated.
type Starter interface {
	Start() error
}

// Stopper releases resources on shutdown, in reverse start order, bounded
// by ctx.
type Stopper interface {
	Stop(ctx context.Context) error
}

// Reloader applies a new configuration in place on SIGHUP.
type Reloader interface {
	Reload(ctx *AppContext) error
}
