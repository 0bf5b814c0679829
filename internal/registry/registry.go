package registry

import (
	"fmt"
	"strings"

	"github.com/diagnosis/roomstay/pkg/config"
)

type Service string

const (
	Users        Service = "users"
	Search       Service = "search"
	Hotels       Service = "hotels"
	Reservations Service = "reservations"
)

// Known lists every backend the client can talk to.
var Known = []Service{Users, Search, Hotels, Reservations}

// ConfigError reports a service name the registry cannot resolve. It signals a
// programming or deployment mistake, never a user-facing condition.
type ConfigError struct {
	Service Service
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("registry: cannot resolve service %q: %s", string(e.Service), e.Reason)
}

// Registry is a fixed name to base-address lookup. It never mutates after New.
type Registry struct {
	bases map[Service]string
}

func New(bases map[Service]string) *Registry {
	r := &Registry{bases: make(map[Service]string, len(Known))}
	for _, s := range Known {
		if base, ok := bases[s]; ok {
			r.bases[s] = strings.TrimRight(base, "/")
		}
	}
	return r
}

func FromConfig(cfg config.ServicesConfig) *Registry {
	return New(map[Service]string{
		Users:        cfg.Users,
		Search:       cfg.Search,
		Hotels:       cfg.Hotels,
		Reservations: cfg.Reservations,
	})
}

func (r *Registry) Resolve(name Service) (string, error) {
	base, ok := r.bases[name]
	if !ok {
		if !isKnown(name) {
			return "", &ConfigError{Service: name, Reason: "unknown service"}
		}
		return "", &ConfigError{Service: name, Reason: "no address configured"}
	}
	if base == "" {
		return "", &ConfigError{Service: name, Reason: "no address configured"}
	}
	return base, nil
}

func isKnown(name Service) bool {
	for _, s := range Known {
		if s == name {
			return true
		}
	}
	return false
}
