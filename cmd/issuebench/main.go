// Command issuebench drives a configured benchmark run against a
// GitHub-shaped GraphQL v4 endpoint: it enumerates every issue (and its
// labels) of a set of owners' repositories using one of the two
// pipeline variants, reporting phase timings and a final summary.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/saturnines/issuebench/pkg/auth"
	"github.com/saturnines/issuebench/pkg/batch"
	"github.com/saturnines/issuebench/pkg/client"
	"github.com/saturnines/issuebench/pkg/config"
	"github.com/saturnines/issuebench/pkg/gql"
	"github.com/saturnines/issuebench/pkg/machine"
	"github.com/saturnines/issuebench/pkg/pipeline"
	"github.com/saturnines/issuebench/pkg/queries"
	"github.com/saturnines/issuebench/pkg/store"
)

type cli struct {
	Config    string `arg:"" help:"Path to the benchmark YAML config." type:"existingfile"`
	Verbose   bool   `help:"Increase log verbosity to debug." short:"v"`
	StorePath string `help:"Override the config's incremental store path." optional:""`
}

func main() {
	_ = godotenv.Load()

	var c cli
	kong.Parse(&c,
		kong.Name("issuebench"),
		kong.Description("Batched-GraphQL issue enumeration benchmark."),
	)

	logger := log.New(os.Stderr)
	if c.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if err := run(c, logger); err != nil {
		logger.Fatal("run failed", "err", err)
	}
}

func run(c cli, logger *log.Logger) error {
	loader := config.NewLoader(nil)
	cfg, err := loader.Load(c.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.StorePath != "" {
		cfg.StorePath = c.StorePath
	}

	var authHandler auth.Handler
	if cfg.TokenEnv != "" {
		token := os.Getenv(cfg.TokenEnv)
		if token == "" {
			return fmt.Errorf("environment variable %s is unset", cfg.TokenEnv)
		}
		authHandler = auth.NewBearerAuth(token)
	}

	baseTransport := http.DefaultTransport
	if cfg.RetryConfig != nil {
		baseTransport = client.NewRetryTransport(baseTransport, cfg.RetryConfig)
	}
	httpClient := &http.Client{Transport: baseTransport, Timeout: 2 * time.Minute}

	transport := client.NewHTTPTransport(cfg.Endpoint, httpClient, nil, authHandler)
	driver := client.NewDriver(transport, logger)

	params := pipeline.Parameters{
		BatchSize:     cfg.BatchSize,
		PageSize:      cfg.PageSize,
		LabelPageSize: cfg.LabelPageSize,
	}
	sink := logSink{logger: logger}

	ctx := context.Background()

	var (
		outputs []pipeline.Output
		runErr  error
	)
	switch cfg.Variant {
	case config.VariantThin:
		m := pipeline.NewOrgsThenIssues(cfg.Owners, params, sink)
		outputs, runErr = client.Run[pipeline.Output](ctx, driver, machine.QueryMachine[pipeline.Output](m))
	default:
		m := pipeline.NewOrgsWithIssues(cfg.Owners, params, sink)
		outputs, runErr = client.Run[pipeline.Output](ctx, driver, machine.QueryMachine[pipeline.Output](m))
	}
	if runErr != nil {
		return fmt.Errorf("run pipeline: %w", runErr)
	}

	var issues []queries.Issue
	var report pipeline.FetchReport
	for _, out := range outputs {
		switch out.Kind {
		case pipeline.OutputIssues:
			issues = append(issues, out.Issues...)
		case pipeline.OutputReport:
			report = out.Report
		}
	}

	logger.Info("run complete",
		"repositories", report.Repositories,
		"open_issues", report.OpenIssues,
		"issues_collected", len(issues),
		"extra_labels", report.ExtraLabels,
	)

	if cfg.StorePath != "" {
		if err := updateStore(ctx, cfg, transport, logger); err != nil {
			return fmt.Errorf("update store: %w", err)
		}
	}
	return nil
}

// updateStore runs its own repository/issue listing — independent of the
// benchmark pipeline above — against the store's own Paginators, and
// folds the results into the persisted database at cfg.StorePath. This
// mirrors the diff rule in full: repositories are reconciled first
// (so a dropped-to-zero open-issue count can bulk-close stored issues
// before any fresh issue listing arrives), then the issues of each
// repository with a non-zero open-issue count are paginated from its
// last stored cursor.
func updateStore(ctx context.Context, cfg *config.BenchmarkConfig, transport client.Transport, logger *log.Logger) error {
	db, err := store.LoadFile(cfg.StorePath)
	if err != nil {
		return err
	}

	repoInputs := make([]batch.KeyedPaginator[string, store.Ided[store.RepoDetails]], 0, len(cfg.Owners))
	for _, owner := range cfg.Owners {
		repoInputs = append(repoInputs, batch.KeyedPaginator[string, store.Ided[store.RepoDetails]]{
			Key:       owner,
			Paginator: store.GetOwnerRepos{Owner: owner, PageSize: cfg.PageSize},
		})
	}
	repoResults, err := client.BatchPaginate(ctx, transport, batch.New(repoInputs, cfg.BatchSize))
	if err != nil {
		return fmt.Errorf("fetch repositories: %w", err)
	}

	var fresh []store.Ided[store.RepoDetails]
	for _, r := range repoResults {
		fresh = append(fresh, r.Items...)
	}
	repoDiff := db.UpdateRepositories(fresh)
	logger.Info("store repositories updated", "diff", repoDiff.String())

	issueInputs := make([]batch.KeyedPaginator[gql.ID, store.Ided[store.Issue]], 0, len(fresh))
	for _, entry := range fresh {
		if db.OpenIssueCount(entry.ID) == 0 {
			continue
		}
		cursor := db.IssueCursor(entry.ID)
		issueInputs = append(issueInputs, batch.KeyedPaginator[gql.ID, store.Ided[store.Issue]]{
			Key: entry.ID,
			Paginator: store.GetIssues{
				RepoID:        entry.ID,
				Cursor:        cursor,
				PageSize:      cfg.PageSize,
				IncludeClosed: cursor != nil,
			},
		})
	}
	issueResults, err := client.BatchPaginate(ctx, transport, batch.New(issueInputs, cfg.BatchSize))
	if err != nil {
		return fmt.Errorf("fetch issues: %w", err)
	}

	var issueDiff store.IssueDiff
	for _, r := range issueResults {
		db.SetIssueCursor(r.Key, r.EndCursor)
		for _, entry := range r.Items {
			d := db.UpdateIssue(r.Key, entry.ID, entry.Data)
			issueDiff.Add(d)
		}
	}
	logger.Info("store issues updated", "diff", issueDiff.String())

	return db.DumpFile(cfg.StorePath)
}

// logSink adapts pipeline.EventSink onto a *log.Logger, logging one line
// per phase transition.
type logSink struct {
	logger *log.Logger
}

func (s logSink) OnEvent(t pipeline.Transition) {
	s.logger.Info(t.Kind.String(),
		"repositories", t.Repositories,
		"open_issues", t.OpenIssues,
		"extra_issues", t.ExtraIssues,
		"extra_labels", t.ExtraLabels,
		"elapsed", t.Elapsed,
	)
}

func (s logSink) OnDone() {
	s.logger.Info("done")
}
