package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/ministore"
)

// Script is a list of actions to replay against a store.
//
//	actions:
//	  - type: INCREMENT
//	  - type: UPDATE_USER_NAME
//	    payload: ${USER:-Alice}
//	  - type: SET_COUNTER
//	    payload: 5
type Script struct {
	Actions []ministore.Action `yaml:"actions"`
}

// LoadScript reads and parses an action script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script file: %w", err)
	}
	return ParseScript(data)
}

// ParseScript parses YAML action script data.
//
// Every action needs a type. String payloads support environment variable
// substitution.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(s.Actions) == 0 {
		return nil, fmt.Errorf("script must contain at least one action")
	}

	for i := range s.Actions {
		a := &s.Actions[i]
		if a.Type == "" {
			return nil, fmt.Errorf("actions[%d]: type is required", i)
		}
		if str, ok := a.Payload.(string); ok {
			expanded, err := expandEnvVars(str)
			if err != nil {
				return nil, fmt.Errorf("actions[%d] (%s): payload: %w", i, a.Type, err)
			}
			a.Payload = expanded
		}
	}

	return &s, nil
}
