package assets

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cd-Crypton/anistream/pkg/config"
	"github.com/cd-Crypton/anistream/pkg/proxy/types"
)

// Backend names accepted in assets.backend.
const (
	BackendDir    = "dir"
	BackendOrigin = "origin"
	BackendNone   = "none"
)

// Provider serves the static site. Fetch receives the original inbound
// request and returns the full response, error statuses included. An error
// return means no response could be produced at all.
type Provider interface {
	Fetch(ctx context.Context, r *http.Request) (*types.Response, error)
}

// Checker is implemented by providers that can report whether they are able
// to serve. It backs the readiness endpoint.
type Checker interface {
	Check(ctx context.Context) error
}

// New builds the provider selected by cfg. The "none" backend returns a nil
// Provider and no error; the router then answers static requests with 500.
func New(cfg config.AssetsConfig, client *http.Client) (Provider, error) {
	switch cfg.Backend {
	case BackendDir, "":
		p, err := NewDirProvider(cfg.Dir, cfg.Index)
		if err != nil {
			return nil, err
		}
		return p, nil
	case BackendOrigin:
		p, err := NewOriginProvider(cfg.OriginURL, client)
		if err != nil {
			return nil, err
		}
		return p, nil
	case BackendNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown assets backend %q", cfg.Backend)
	}
}
