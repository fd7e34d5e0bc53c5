// Package graph projects completed money movements into a graph database so
// that flows between accounts can be followed hop by hop.
package graph

import (
	"context"
	"errors"
)

// Client is the subset of a graph driver the projector needs.
type Client interface {
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) error
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

var ErrMissingURI = errors.New("graph URI is required")
