package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ysun/jobmatch/internal/ai"
	"github.com/ysun/jobmatch/internal/ai/gemini"
	"github.com/ysun/jobmatch/internal/linkedin"
	"github.com/ysun/jobmatch/internal/logger"
	"github.com/ysun/jobmatch/internal/pipeline"
	"github.com/ysun/jobmatch/internal/secrets"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptLoginDone  = "I finished logging in"
	PromptLoginAbort = "Abort the run"

	pollInterval = 500 * time.Millisecond
)

var loginPrompt = promptui.Select{
	Label: "A browser window is open on the LinkedIn login page. Finish logging in, then continue",
	Items: []string{PromptLoginDone, PromptLoginAbort},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the job search pipeline and print the ranked report",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("work-dir", "w", ".", "directory for run artifacts (resume_data.json lives here)")
	runCmd.Flags().StringP("cookies-file", "c", "", "path to the LinkedIn cookie snapshot. Default is linkedin_cookies.json in the work dir.")

	viper.BindPFlag("work-dir", runCmd.Flags().Lookup("work-dir"))
	viper.BindPFlag("cookies-file", runCmd.Flags().Lookup("cookies-file"))
}

// run is the main command for the cli.
func run(_ *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting jobmatch", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logger.Fatal("config is required")
	}
	if config.Search == nil || config.Search.Keywords == "" {
		logger.Fatal("search keywords are required under the search section")
	}

	workDir := viper.GetString("work-dir")
	if config.WorkDir != "" {
		workDir = config.WorkDir
	}
	cookiesFile := viper.GetString("cookies-file")
	if cookiesFile == "" {
		cookiesFile = workDir + "/linkedin_cookies.json"
	}

	scorer, err := newScorer(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal(
			"building the scorer",
			zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY_FILE environment variable or the 'ai.gemini.api-key-file' key in the configuration file"),
		)
	}

	browser := linkedin.NewChromeBrowser(ctx, logger)
	defer browser.Close()

	session := linkedin.NewSessionManager(browser, cookiesFile, config.LoginTimeout, logger)
	client := linkedin.NewClient(logger, session)
	if config.UserAgent != "" {
		client.UserAgent = config.UserAgent
	}

	pipeCfg := pipeline.DefaultConfig()
	if config.Pipeline != nil {
		pipeCfg = *config.Pipeline
	}

	p := pipeline.New(pipeCfg, pipeline.Deps{
		Source: client,
		Auth:   session,
		Scorer: scorer,
		Store:  pipeline.NewStore(workDir, logger),
		Logger: logger,
	})

	logger.Info("starting the search", zap.String("keywords", config.Search.Keywords))

	if err := p.Start(config.Search); err != nil {
		logger.Fatal("starting the pipeline", zap.Error(err))
	}

	if err := poll(p, session, logger); err != nil {
		logger.Fatal("pipeline run aborted", zap.Error(err))
	}

	report, err := p.Results()
	if errors.Is(err, pipeline.ErrNotReady) {
		logger.Info("exiting", zap.String("reason", "no report produced"))
		return
	}
	if err != nil {
		logger.Fatal("reading results", zap.Error(err))
	}

	fmt.Println(report.Summary())
	logger.Info("report written",
		zap.String("work_dir", workDir),
		zap.Int("ranked", len(report.Ranked)),
		zap.Int("unscored", len(report.Unscored)),
	)
}

// loginPrompter tracks whether the current authentication episode has been
// prompted. Leaving the Authenticating state arms it again, so a later
// session expiry that needs another manual login prompts afresh.
type loginPrompter struct {
	prompted bool
}

func (l *loginPrompter) shouldPrompt(state linkedin.SessionState) bool {
	if state != linkedin.Authenticating {
		l.prompted = false
		return false
	}
	if l.prompted {
		return false
	}
	l.prompted = true
	return true
}

// poll drives the status loop: it surfaces stage transitions, handles the
// manual-login prompt, and returns when the run reaches a terminal stage.
func poll(p *pipeline.Pipeline, session *linkedin.SessionManager, logger *zap.Logger) error {
	var lastSeq uint64
	var prompter loginPrompter

	for {
		snap := p.Status()

		if snap.Seq != lastSeq {
			lastSeq = snap.Seq
			logger.Info("pipeline status",
				zap.String("stage", snap.StageName),
				zap.Uint64("seq", snap.Seq),
				zap.Int("current", snap.Current),
				zap.Int("total", snap.Total),
			)
		}

		if snap.Stage.Terminal() {
			if snap.Stage == pipeline.Failed {
				logger.Warn("run finished with failure", zap.String("reason", snap.Reason))
			}
			return nil
		}

		if prompter.shouldPrompt(session.State()) {
			_, action, err := loginPrompt.Run()
			if err != nil {
				return fmt.Errorf("login prompt: %w", err)
			}
			if action == PromptLoginAbort {
				p.Cancel()
				continue
			}
			session.CompleteLogin()
		}

		time.Sleep(pollInterval)
	}
}

func newScorer(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Scorer, error) {
	if cfg == nil || cfg.Gemini == nil {
		return nil, fmt.Errorf("gemini configuration is required under the ai section")
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, err
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, logger.WithScorerFields(log, "gemini", cfg.Gemini.Model))
	if err != nil {
		return nil, err
	}

	scorerLogger := logger.WithScorerFields(log, "gemini", generator.Model())

	return gemini.NewScorer(generator, scorerLogger, cfg.Gemini.MaxLogLength), nil
}
