package registry

import (
	"errors"
	"testing"

	"github.com/diagnosis/roomstay/pkg/config"
)

func TestResolve_KnownServices(t *testing.T) {
	r := FromConfig(config.ServicesConfig{
		Users:        "http://localhost:8080",
		Search:       "http://localhost:8082/",
		Hotels:       "http://localhost:8081",
		Reservations: "http://localhost:8086",
	})

	tests := []struct {
		service Service
		want    string
	}{
		{Users, "http://localhost:8080"},
		{Search, "http://localhost:8082"},
		{Hotels, "http://localhost:8081"},
		{Reservations, "http://localhost:8086"},
	}

	for _, tt := range tests {
		t.Run(string(tt.service), func(t *testing.T) {
			got, err := r.Resolve(tt.service)
			if err != nil {
				t.Fatalf("resolve %s: %v", tt.service, err)
			}
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestResolve_UnknownServiceIsConfigError(t *testing.T) {
	r := New(map[Service]string{Users: "http://localhost:8080"})

	for _, name := range []Service{"payments", "", "USERS", "hotel"} {
		_, err := r.Resolve(name)
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("resolve %q: expected ConfigError, got %v", name, err)
		}
		if cfgErr.Service != name {
			t.Fatalf("expected error to name %q, got %q", name, cfgErr.Service)
		}
	}
}

func TestResolve_KnownButUnconfigured(t *testing.T) {
	r := New(map[Service]string{Users: "http://localhost:8080", Search: ""})

	for _, name := range []Service{Search, Hotels} {
		_, err := r.Resolve(name)
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("resolve %q: expected ConfigError, got %v", name, err)
		}
	}
}
