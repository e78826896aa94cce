package mongodb

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestProperty_ClosedRegistryRejectsEverything(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 20
	properties := gopter.NewProperties(params)

	properties.Property("closed registry always fails ping and registration", prop.ForAll(
		func(name string) bool {
			r := NewRegistry(&mockLogger{})
			_ = r.Close()
			err := r.RegisterClient(context.Background(), name, ClientConfig{URI: "mongodb://localhost"})
			return errors.Is(r.Ping(context.Background()), ErrClosed) && errors.Is(err, ErrClosed)
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}

func TestProperty_ParseHostsKeepsValidPorts(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("host:port survives normalization", prop.ForAll(
		func(host string, port int) bool {
			address := fmt.Sprintf("%s:%d", host, port)
			hosts, err := ParseHosts("main", []string{address})
			return err == nil && len(hosts) == 1 && hosts[0] == address
		},
		gen.Identifier(),
		gen.IntRange(1, 65535),
	))

	properties.TestingRun(t)
}
