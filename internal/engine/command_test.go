package engine

import (
	"testing"
	"time"
	"tmssync/internal/config"
)

func TestBuildReproducibilityCommand(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "defaults",
			mutate: func(c *config.Config) {},
			want:   "tmssync run",
		},
		{
			name: "github backend with packages",
			mutate: func(c *config.Config) {
				c.Run.Packages = []string{"./api/...", "./web"}
				c.Run.GoTestArgs = []string{"-run=TestLogin", "-tags=integration slow"}
				c.TMS.Backend = config.BackendGitHub
				c.TMS.Repo = "acme/qa"
				c.TMS.DryRun = true
				c.Runtime.SyncConcurrency = 8
			},
			want: "tmssync run --go-test-arg -run=TestLogin --go-test-arg '-tags=integration slow' --tms-backend github --tms-repo acme/qa --dry-run --sync-concurrency 8 ./api/... ./web",
		},
		{
			name: "replay into catalog",
			mutate: func(c *config.Config) {
				c.Run.Inputs = []string{"events.json", "-"}
				c.TMS.Backend = config.BackendFile
				c.TMS.File = "qa/cases.yaml"
				c.Report.ResultsDir = ""
				c.Runtime.Timeout = 5 * time.Minute
				c.Runtime.SyncTimeout = 90 * time.Second
			},
			want: "tmssync replay --results-dir '' --tms-backend file --tms-file qa/cases.yaml --timeout 5m0s --sync-timeout 1m30s events.json -",
		},
		{
			name: "sqlite with quotes",
			mutate: func(c *config.Config) {
				c.TMS.Backend = config.BackendSQLite
				c.TMS.Database = "it's.db"
			},
			want: `tmssync run --tms-backend sqlite --tms-db 'it'\''s.db'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New()
			tt.mutate(cfg)
			if got := buildReproducibilityCommand(cfg); got != tt.want {
				t.Fatalf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}
