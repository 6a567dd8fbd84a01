package di

import (
	"github.com/google/uuid"
)

type (
	Env       string
	Container struct {
		objects    map[ObjectKey]any
		onShutdown []func()
		Env        Env
	}
	ObjectKey uuid.UUID
)

const (
	EnvProd Env = "prod"
	EnvTest Env = "test"
)

func NewKey() ObjectKey {
	return ObjectKey(uuid.New())
}

func NewContainer(env Env) *Container {
	return &Container{
		Env:     env,
		objects: make(map[ObjectKey]any),
	}
}

func (c *Container) RegisterOnShutdown(fn func()) {
	c.onShutdown = append(c.onShutdown, fn)
}

// Shutdown runs registered shutdown hooks in reverse registration order.
func (c *Container) Shutdown() {
	for i := len(c.onShutdown) - 1; i >= 0; i-- {
		c.onShutdown[i]()
	}
	c.onShutdown = nil
}
