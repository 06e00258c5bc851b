package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by stores when a canvas or stroke does not exist.
var ErrNotFound = errors.New("not found")

// ConfigurationError reports a template or tool lacking a required attribute.
// It is fatal to that single registration only.
type ConfigurationError struct {
	Subject   string
	Attribute string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s is missing required attribute %q", e.Subject, e.Attribute)
}
