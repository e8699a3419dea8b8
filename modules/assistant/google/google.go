// Package google implements the Assistant backend over the Google Assistant
// Service gRPC API (embedded/v1alpha2). Queries go out as text; replies come
// back as supplemental display text plus, optionally, synthesized speech.
package google

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
	embedded "google.golang.org/genproto/googleapis/assistant/embedded/v1alpha2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	grpcoauth "google.golang.org/grpc/credentials/oauth"
	"gopkg.in/yaml.v3"

	"github.com/Simonx22/telegram-assistant/internal/assistant"
	"github.com/Simonx22/telegram-assistant/internal/core"
)

// ModuleID is the registry identifier for the Google Assistant backend.
const ModuleID = "assistant.google"

// ServiceName is the name the module registers itself under in the
// AppContext service registry.
const ServiceName = "assistant.google"

func init() {
	core.RegisterModule(new(Google))
}

// Google is the Google Assistant Service backend module.
type Google struct {
	cfg    Config
	logger *slog.Logger

	tokens oauth2.TokenSource
	conn   *grpc.ClientConn
	client embedded.EmbeddedAssistantClient
}

// Interface guards.
var (
	_ core.Module             = (*Google)(nil)
	_ core.Configurable       = (*Google)(nil)
	_ core.Provisioner        = (*Google)(nil)
	_ core.Validator          = (*Google)(nil)
	_ core.Starter            = (*Google)(nil)
	_ core.Stopper            = (*Google)(nil)
	_ assistant.Assistant     = (*Google)(nil)
	_ assistant.HealthChecker = (*Google)(nil)
)

// ModuleInfo implements core.Module.
func (g *Google) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  ModuleID,
		New: func() core.Module { return new(Google) },
	}
}

// Configure implements core.Configurable.
func (g *Google) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.cfg); err != nil {
		return fmt.Errorf("google: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner. Credentials are loaded here so a
// missing or malformed credentials file fails startup instead of the first
// query.
func (g *Google) Provision(ctx *core.AppContext) error {
	g.cfg.applyDefaults(ctx.DataDir)
	g.logger = ctx.Logger

	if err := g.cfg.validate(); err != nil {
		return err
	}

	ts, err := loadTokenSource(context.Background(), g.cfg.CredentialsPath)
	if err != nil {
		return err
	}
	g.tokens = ts

	ctx.RegisterService(ServiceName, g)
	return nil
}

// Validate implements core.Validator.
func (g *Google) Validate() error {
	return g.cfg.validate()
}

// Start implements core.Starter. The gRPC connection is lazy; no network
// traffic happens until the first Assist call.
func (g *Google) Start() error {
	conn, err := grpc.NewClient(g.cfg.Endpoint,
		grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{})),
		grpc.WithPerRPCCredentials(grpcoauth.TokenSource{TokenSource: g.tokens}),
	)
	if err != nil {
		return fmt.Errorf("google: create client: %w", err)
	}
	g.conn = conn
	g.client = embedded.NewEmbeddedAssistantClient(conn)

	g.logger.Info("assistant backend ready",
		"endpoint", g.cfg.Endpoint,
		"language", g.cfg.Language,
		"send_audio", g.cfg.SendAudio)
	return nil
}

// Stop implements core.Stopper.
func (g *Google) Stop(ctx context.Context) error {
	if g.conn != nil {
		return g.conn.Close()
	}
	return nil
}

// HealthCheck implements assistant.HealthChecker by forcing a token refresh
// when the cached access token has expired. A rejected refresh token is the
// most common way this deployment breaks.
func (g *Google) HealthCheck(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		_, err := g.tokens.Token()
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %v", assistant.ErrUnauthenticated, err)
		}
		return nil
	}
}
