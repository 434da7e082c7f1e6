// Package gpu models the graphics objects the presentation bridge hands
// across threads: a display connection, rendering contexts that can share
// resources, and the texture object a paint cycle binds frames into.
// The actual backend is pluggable; a software backend ships in-tree.
package gpu

import "fmt"

// Handle is an opaque, platform-specific context handle.
type Handle any

// Platform abstracts context creation and sharing for one display
// connection.
type Platform interface {
	// Name identifies the backend, for logs and error messages.
	Name() string

	// CreateContext creates a new context sharing resources with share.
	// A nil share creates a root context.
	CreateContext(share Handle) (Handle, error)

	// Activate makes the context current (or releases it) on the calling
	// thread.
	Activate(h Handle, active bool) error
}

// softwareHandle is a context handle for the in-process software backend.
// Contexts created from the same root belong to one share group.
type softwareHandle struct {
	shareGroup *struct{}
	active     bool
}

type softwarePlatform struct{}

// Software returns the in-process software rendering platform. Contexts
// are plain share-group tokens; Activate only tracks currency.
func Software() Platform {
	return softwarePlatform{}
}

func (softwarePlatform) Name() string { return "software" }

func (softwarePlatform) CreateContext(share Handle) (Handle, error) {
	if share == nil {
		return &softwareHandle{shareGroup: &struct{}{}}, nil
	}
	sh, ok := share.(*softwareHandle)
	if !ok {
		return nil, fmt.Errorf("gpu: share context %T is not a software context", share)
	}
	return &softwareHandle{shareGroup: sh.shareGroup}, nil
}

func (softwarePlatform) Activate(h Handle, active bool) error {
	sh, ok := h.(*softwareHandle)
	if !ok {
		return fmt.Errorf("gpu: cannot activate %T on the software platform", h)
	}
	sh.active = active
	return nil
}
