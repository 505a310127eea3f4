package model

// Plugin describes this plugin as registered with the Qiita server and
// mirrored into the deployment registry.
type Plugin struct {
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Description string    `json:"description"`
	Commands    []Command `json:"commands"`
}

// Command is one processing command the plugin offers (e.g. "Shogun v1.0.8").
type Command struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Parameters  map[string]ParameterSpec `json:"parameters"`
	DefaultSets []ParameterSet           `json:"default_parameter_sets,omitempty"`
}

// ParameterSpec declares one command parameter: its wire type, default
// value, and, for choice parameters, the allowed values.
type ParameterSpec struct {
	Type     string   `json:"type"` // "string", "integer", "boolean", "choice"
	Default  string   `json:"default,omitempty"`
	Choices  []string `json:"choices,omitempty"`
	Required bool     `json:"required,omitempty"`
}

// ParameterSet is a named bundle of default parameter values offered in the
// Qiita UI.
type ParameterSet struct {
	Name   string     `json:"name"`
	Values Parameters `json:"values"`
}

// CommandNames lists the plugin's command names in declaration order.
func (p Plugin) CommandNames() []string {
	names := make([]string, 0, len(p.Commands))
	for _, c := range p.Commands {
		names = append(names, c.Name)
	}
	return names
}
