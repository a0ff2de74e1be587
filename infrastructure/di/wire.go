//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/onokeee/mindmap/infrastructure/config"
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(ProviderSet, wire.Struct(new(Container), "*"))
	return nil, nil, nil // Wire will replace this
}
