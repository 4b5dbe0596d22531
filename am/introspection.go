package am

import (
	"os"
	"sort"
	"strings"

	"github.com/teranos/mangasync/errors"
)

// Layer names one level of the configuration cascade.
type Layer string

const (
	LayerDefault Layer = "default"
	LayerSystem  Layer = "system"
	LayerUser    Layer = "user"
	LayerProject Layer = "project"
	LayerEnv     Layer = "env"
)

// Rank orders layers by precedence; a higher rank overrides a lower one.
func (l Layer) Rank() int {
	switch l {
	case LayerSystem:
		return 1
	case LayerUser:
		return 2
	case LayerProject:
		return 3
	case LayerEnv:
		return 4
	default:
		return 0
	}
}

// Origin is the layer that supplied a value and the file or variable
// it came from.
type Origin struct {
	Layer Layer  `json:"layer"`
	Path  string `json:"path,omitempty"`
}

var defaultOrigin = Origin{Layer: LayerDefault, Path: "built-in"}

// Setting is one effective key.
type Setting struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
	Origin
}

// Report lists every effective key, sorted, with its origin.
type Report struct {
	File     string    `json:"file"`
	Settings []Setting `json:"settings"`
}

// Explain loads the configuration and reports where each key came from.
func Explain() (*Report, error) {
	if _, err := Load(); err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	v := GetViper()

	keys := v.AllKeys()
	sort.Strings(keys)

	report := &Report{File: v.ConfigFileUsed(), Settings: make([]Setting, 0, len(keys))}
	for _, key := range keys {
		report.Settings = append(report.Settings, Setting{Key: key, Value: v.Get(key), Origin: originOf(key)})
	}
	return report, nil
}

func originOf(key string) Origin {
	if env := EnvKey(key); os.Getenv(env) != "" {
		return Origin{Layer: LayerEnv, Path: env}
	}
	if o, ok := keyOrigins[key]; ok {
		return o
	}
	return defaultOrigin
}

// EnvKey returns the environment variable that overrides key.
func EnvKey(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
