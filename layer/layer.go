// Package layer holds the declared architecture: the eight layers, their
// package patterns and allowed libraries, and the structural constraints each
// layer imposes on the classes it contains.
package layer

// Name identifies a layer.
type Name string

const (
	SharedKernel Name = "shared-kernel"
	Domain       Name = "domain"
	Command      Name = "command"
	Query        Name = "query"
	Handler      Name = "handler"
	InputPort    Name = "input-port"
	OutputPort   Name = "output-port"
	Adapter      Name = "adapter"
)

// All lists the layers in evaluation order.
var All = []Name{SharedKernel, Domain, Command, Query, Handler, InputPort, OutputPort, Adapter}

// DefaultLibraries are the packages every layer may depend on unless
// configured otherwise.
var DefaultLibraries = []string{"java..", "javax..", "lombok..", "io.vavr..", "org.apache.commons.."}

// DefaultsPolicy controls how DefaultLibraries are merged into a layer's
// allowlist.
type DefaultsPolicy string

const (
	// PolicyAlways unions the defaults into every allowlist.
	PolicyAlways DefaultsPolicy = "always"
	// PolicyLegacy appends the defaults only when the layer declares a
	// non-empty custom allowlist.
	PolicyLegacy DefaultsPolicy = "legacy"
)

// Packages is the configuration of one layer.
type Packages struct {
	Packages         []string `yaml:"packages" json:"packages"`
	AllowedLibraries []string `yaml:"allowed_libraries,omitempty" json:"allowed_libraries,omitempty"`
}

// Config is the architecture section of the configuration file. A nil
// layer entry means the layer was not configured.
type Config struct {
	DefaultsPolicy   DefaultsPolicy `yaml:"defaults_policy,omitempty" json:"defaults_policy,omitempty"`
	DefaultLibraries []string       `yaml:"default_libraries,omitempty" json:"default_libraries,omitempty"`

	SharedKernel *Packages `yaml:"shared_kernel" json:"shared_kernel"`
	Domain       *Packages `yaml:"domain" json:"domain"`
	Command      *Packages `yaml:"command" json:"command"`
	Query        *Packages `yaml:"query" json:"query"`
	Handler      *Packages `yaml:"handler" json:"handler"`
	InputPorts   *Packages `yaml:"input_ports" json:"input_ports"`
	OutputPorts  *Packages `yaml:"output_ports" json:"output_ports"`
	Adapters     *Packages `yaml:"adapters" json:"adapters"`
}

// For returns the configured entry for the named layer, or nil.
func (c *Config) For(name Name) *Packages {
	switch name {
	case SharedKernel:
		return c.SharedKernel
	case Domain:
		return c.Domain
	case Command:
		return c.Command
	case Query:
		return c.Query
	case Handler:
		return c.Handler
	case InputPort:
		return c.InputPorts
	case OutputPort:
		return c.OutputPorts
	case Adapter:
		return c.Adapters
	}
	return nil
}

// Layer is a configured layer with its effective dependency allowlist.
type Layer struct {
	Name     Name
	Packages []string
	// AllowedLibraries is the custom allowlist as configured; nil when absent.
	AllowedLibraries []string
	// Allowed is the effective allowlist used by dependency rules.
	Allowed     []string
	Constraints Constraints
}
