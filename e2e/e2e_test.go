package e2e

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/cucumber/godog"
	"github.com/cucumber/godog/colors"
	"github.com/go-chi/chi/v5"

	"nomen/internal/user/handler"
	"nomen/internal/user/migrate"
	"nomen/internal/user/service"
	"nomen/internal/user/store"
)

var opts = godog.Options{
	Output: colors.Colored(os.Stdout),
	Format: "pretty",
	Paths:  []string{"features"},
}

func init() {
	godog.BindCommandLineFlags("godog.", &opts)
}

func TestFeatures(t *testing.T) {
	flag.Parse()
	opts.TestingT = t

	srv := httptest.NewServer(newRouter())
	defer srv.Close()

	suite := godog.TestSuite{
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			initializeScenario(sc, srv.URL)
		},
		Options: &opts,
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

// newRouter assembles a fresh stack over an in-memory store, mirroring the
// server wiring without the process lifecycle around it.
func newRouter() chi.Router {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	mem := store.NewInMemory()
	svc := service.New(mem, migrate.New(mem), service.WithLogger(logger))
	h := handler.New(svc, logger)

	r := chi.NewRouter()
	h.Register(r)
	return r
}

func initializeScenario(sc *godog.ScenarioContext, baseURL string) {
	tc := NewTestContext(baseURL)

	sc.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc = NewTestContext(baseURL)
		return ctx, nil
	})

	sc.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if err != nil {
			fmt.Printf("Scenario failed: %s\nLast Response: %s\n", sc.Name, string(tc.LastResponseBody))
		}
		return ctx, nil
	})

	RegisterSteps(sc, tc)
}
