package modkit

// Option mutates build configuration for a module
type Option func(*BuildCfg)

// BuildCfg is the wiring state modules read after applying options
type BuildCfg struct {
	Name  string
	Ports any
}

// Build applies opts over a zero BuildCfg
func Build(opts ...Option) BuildCfg {
	var c BuildCfg
	for _, o := range opts {
		o(&c)
	}
	return c
}

// WithName sets a module name used in logs and registry
func WithName(name string) Option {
	return func(c *BuildCfg) { c.Name = name }
}

// WithPorts injects cross module ports declared by another module
// the concrete type is owned by the importing module
func WithPorts[T any](p T) Option {
	return func(c *BuildCfg) { c.Ports = p }
}
