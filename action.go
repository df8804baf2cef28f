package ministore

import "fmt"

// Action is a tagged request to change state: a Type discriminant and an
// optional Payload.
//
// Store is generic over its action type, so applications are free to use
// their own. Action is provided for the common case and for consumers that
// decode actions from JSON or YAML.
type Action struct {
	Type    string `json:"type" yaml:"type"`
	Payload any    `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// String returns the type, followed by the payload when one is set.
func (a Action) String() string {
	if a.Payload == nil {
		return a.Type
	}
	return fmt.Sprintf("%s(%v)", a.Type, a.Payload)
}
