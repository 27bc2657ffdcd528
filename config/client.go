package config

import (
	"time"

	"github.com/mitchellh/mapstructure"
)

// ClientOptions are the settings a client may send in initializationOptions
// or workspace/didChangeConfiguration. Unset fields keep the server value.
type ClientOptions struct {
	Locale string `json:"locale" mapstructure:"locale"`
	// DiagnosticsDelay is in milliseconds.
	DiagnosticsDelay *int     `json:"diagnosticsDelay" mapstructure:"diagnosticsDelay"`
	ViewPaths        []string `json:"viewPaths" mapstructure:"viewPaths"`
	LoadWorkspace    *bool    `json:"loadWorkspace" mapstructure:"loadWorkspace"`
	Watch            *bool    `json:"watch" mapstructure:"watch"`
}

// DecodeClientOptions accepts the options either at the top level or
// nested under a "blase" section, as editors send their settings.
func DecodeClientOptions(src any) (res ClientOptions, err error) {
	if src == nil {
		return
	}

	if m, ok := src.(map[string]any); ok {
		if section, has := m["blase"]; has {
			src = section
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &res,
	})

	if err != nil {
		return
	}

	err = decoder.Decode(src)

	return
}

// With returns a copy of c with the client options applied.
func (c Config) With(options ClientOptions) (Config, error) {
	if options.Locale != "" {
		c.Locale = options.Locale
	}

	if options.DiagnosticsDelay != nil {
		c.DiagnosticsDelay = time.Duration(*options.DiagnosticsDelay) * time.Millisecond
	}

	if options.ViewPaths != nil {
		c.ViewPaths = options.ViewPaths
	}

	if options.LoadWorkspace != nil {
		c.LoadWorkspace = *options.LoadWorkspace
	}

	if options.Watch != nil {
		c.Watch = *options.Watch
	}

	if err := c.Validate(); err != nil {
		return c, err
	}

	return c, nil
}
