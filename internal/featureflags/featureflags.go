package featureflags

import (
	"context"
	"fmt"
	"sync"

	"github.com/rollout/rox-go/v5/server"
)

// Flags is the registered rollout container.
type Flags struct {
	// Offline blocks every route except the health probes.
	Offline server.RoxFlag
	// LogLevel is pushed into the levelled logger while the service runs.
	LogLevel server.RoxString
	// PromoPriceAuthoritative makes the promotional price the displayed
	// price in contact messages when one is set.
	PromoPriceAuthoritative server.RoxFlag
}

const namespace = "showcase"

// DefaultLogLevel is the LogLevel flag value before rollout overrides it.
const DefaultLogLevel = "info"

var (
	mu     sync.Mutex
	rox    *server.Rox
	values = newFlags()
)

func newFlags() *Flags {
	return &Flags{
		Offline:                 server.NewRoxFlag(false),
		LogLevel:                server.NewRoxString(DefaultLogLevel, []string{"debug", "info", "warn", "error"}),
		PromoPriceAuthoritative: server.NewRoxFlag(true),
	}
}

// Values returns the flag container. Until Init succeeds every flag reports
// its default.
func Values() *Flags {
	return values
}

// Init registers the container and waits for the first rollout fetch.
// An empty apiKey leaves the defaults in place.
func Init(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("rollout api key not set, using flag defaults")
	}

	mu.Lock()
	defer mu.Unlock()
	if rox != nil {
		return nil
	}

	r := server.NewRox()
	r.Register(namespace, values)
	options := server.NewRoxOptions(server.RoxOptionsBuilder{})

	select {
	case <-r.Setup(apiKey, options):
		rox = r
		return nil
	case <-ctx.Done():
		r.Shutdown()
		return fmt.Errorf("rollout setup: %w", ctx.Err())
	}
}

// Shutdown stops the rollout client if one was started.
func Shutdown() {
	mu.Lock()
	defer mu.Unlock()
	if rox != nil {
		rox.Shutdown()
		rox = nil
	}
}
