package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productload/internal/runner"
	"productload/internal/scenario"
)

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "[----]", progressBar(0, 4))
	assert.Equal(t, "[██--]", progressBar(0.5, 4))
	assert.Equal(t, "[████]", progressBar(1.7, 4))
	assert.Equal(t, "[----]", progressBar(-1, 4))
}

func TestRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	cfg := runner.DefaultConfig()
	cfg.Host = srv.URL
	cfg.Users = 2
	cfg.SpawnRate = 50
	cfg.RunTime = 700 * time.Millisecond

	r := runner.NewRunner(cfg, func(rnd scenario.Rand) (scenario.Scenario, error) {
		u := scenario.NewProductUser(scenario.NewRandomIDs(1, 500, rnd))
		u.Wait = scenario.Constant(time.Millisecond)
		return u, nil
	}, nil)

	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), r, &out))

	s := out.String()
	assert.Contains(t, s, "Host       : "+srv.URL)
	assert.Contains(t, s, "LOAD TEST RESULTS")
	assert.Contains(t, s, "/products/[id]")
	assert.Contains(t, s, "OK: ")
	assert.Contains(t, s, "HTTP 500 Internal Server Error")
}

func TestRunInvalidConfig(t *testing.T) {
	cfg := runner.DefaultConfig()
	cfg.Host = ""
	r := runner.NewRunner(cfg, scenario.NewProductFactory(), nil)

	var out bytes.Buffer
	assert.Error(t, Run(context.Background(), r, &out))
}
