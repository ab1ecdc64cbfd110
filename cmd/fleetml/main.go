package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	"go.mongodb.org/mongo-driver/mongo"
	_ "modernc.org/sqlite"

	"github.com/yatrik/fleetml/internal/api"
	"github.com/yatrik/fleetml/internal/archive"
	"github.com/yatrik/fleetml/internal/config"
	"github.com/yatrik/fleetml/internal/insight"
	"github.com/yatrik/fleetml/internal/pipeline"
	"github.com/yatrik/fleetml/internal/source"
	"github.com/yatrik/fleetml/internal/store"
)

// Globals are the flags shared by every subcommand.
type Globals struct {
	MongoURI    string `name:"mongo-uri" env:"MONGO_URI" default:"mongodb://localhost:27017" help:"ERP MongoDB connection string."`
	DBName      string `name:"db-name" env:"DB_NAME" default:"yatrik" help:"ERP database name."`
	SQLitePath  string `name:"sqlite" env:"SQLITE_PATH" default:"data/fleetml.db" help:"SQLite database for the run audit and the sqlite report store."`
	ReportStore string `name:"report-store" env:"REPORT_STORE" enum:"mongo,sqlite" default:"mongo" help:"Where reports are kept (mongo or sqlite)."`

	Seed         int64   `env:"RANDOM_SEED" default:"42" help:"Seed for train/test splits and network initialisation."`
	TestFraction float64 `name:"test-fraction" env:"TEST_SIZE" default:"0.2" help:"Share of rows held out for testing."`
	Neural       bool    `env:"NEURAL_ENABLED" default:"true" negatable:"" help:"Train the neural crew load model (ridge regression otherwise)."`
	NeuralEpochs int     `name:"neural-epochs" env:"NEURAL_EPOCHS" default:"100" help:"Maximum training epochs for the neural model."`

	Insights  bool   `env:"INSIGHTS_ENABLED" help:"Attach an OpenAI-written summary to each report."`
	OpenAIKey string `name:"openai-key" env:"OPENAI_API_KEY" help:"OpenAI API key used for insights."`

	FTPAddr     string `name:"ftp-addr" env:"FTP_ADDR" help:"Archive reports to this FTP server (host:port)."`
	FTPUser     string `name:"ftp-user" env:"FTP_USER" help:"FTP user."`
	FTPPassword string `name:"ftp-password" env:"FTP_PASSWORD" help:"FTP password."`
	FTPDir      string `name:"ftp-dir" env:"FTP_DIR" default:"/fleetml" help:"FTP directory for archived reports."`
}

func (g *Globals) config() (config.Config, error) {
	cfg := config.Default()
	cfg.MongoURI = g.MongoURI
	cfg.DBName = g.DBName
	cfg.RandomSeed = g.Seed
	cfg.TestFraction = g.TestFraction
	cfg.NeuralEnabled = g.Neural
	cfg.NeuralEpochs = g.NeuralEpochs
	return cfg, cfg.Validate()
}

// openSQLite opens and migrates the local database.
func (g *Globals) openSQLite() (*store.Store, func(), error) {
	if dir := filepath.Dir(g.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", g.SQLitePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return st, func() { db.Close() }, nil
}

// app is everything a command needs to run pipelines or read reports.
type app struct {
	cfg     config.Config
	sqlite  *store.Store
	reports store.ReportStore
	runner  *pipeline.Runner
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (g *Globals) open(ctx context.Context) (*app, error) {
	cfg, err := g.config()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}

	st, closeDB, err := g.openSQLite()
	if err != nil {
		return nil, err
	}
	a.sqlite = st
	a.closers = append(a.closers, closeDB)

	client, err := source.Connect(ctx, cfg.MongoURI)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, func() { client.Disconnect(context.Background()) })
	db := client.Database(cfg.DBName)
	log.Printf("connected to %s", cfg.DBName)

	a.reports = g.reportStore(db, st, cfg)
	a.runner = pipeline.NewRunner(source.NewMongo(db, cfg), a.reports, cfg)
	a.runner.SetRunRecorder(st)

	if g.Insights {
		if g.OpenAIKey != "" && os.Getenv("OPENAI_API_KEY") == "" {
			os.Setenv("OPENAI_API_KEY", g.OpenAIKey)
		}
		if gen, err := insight.NewGenerator(); err != nil {
			log.Printf("Insights disabled: %v", err)
		} else {
			a.runner.SetInsightGenerator(gen)
		}
	}
	if g.FTPAddr != "" {
		a.runner.SetArchiver(archive.NewFTP(archive.Config{
			Addr:     g.FTPAddr,
			User:     g.FTPUser,
			Password: g.FTPPassword,
			Dir:      g.FTPDir,
		}))
		log.Printf("archiving reports to ftp://%s%s", g.FTPAddr, g.FTPDir)
	}
	return a, nil
}

func (g *Globals) reportStore(db *mongo.Database, st *store.Store, cfg config.Config) store.ReportStore {
	if g.ReportStore == "sqlite" {
		return st
	}
	return store.NewMongoReports(db, cfg.ReportsCollection)
}

type ServeCmd struct {
	Port        string        `env:"PY_SERVICE_PORT" default:"5000" help:"HTTP port."`
	Schedule    time.Duration `env:"SCHEDULE_INTERVAL" default:"0s" help:"Retrain all models on this interval (0 disables)."`
	KeepReports int           `name:"keep-reports" env:"KEEP_REPORTS" default:"0" help:"After each scheduled cycle keep only this many sqlite reports per model (0 keeps all)."`
	CORSOrigins []string      `name:"cors-origins" env:"CORS_ORIGINS" help:"Allowed CORS origins (default all)."`
}

func (c *ServeCmd) Run(g *Globals) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if c.Schedule > 0 {
		scheduler := pipeline.NewScheduler(a.runner, c.Schedule)
		if g.ReportStore == "sqlite" {
			scheduler.SetPruning(a.sqlite, c.KeepReports)
		}
		go scheduler.Run(ctx)
	} else {
		log.Println("scheduled retraining disabled")
	}

	server := api.NewServer(a.runner, a.reports, c.Port)
	server.SetRunLister(a.sqlite)
	server.SetAllowedOrigins(c.CORSOrigins)
	log.Printf("%d models available", len(pipeline.Registry))
	return server.Run(ctx)
}

type RunCmd struct {
	Model string `arg:"" help:"Model key (see 'models')."`
}

func (c *RunCmd) Run(g *Globals) error {
	if _, ok := pipeline.Lookup(c.Model); !ok {
		return fmt.Errorf("unknown model %q, available: %v", c.Model, pipeline.Keys())
	}
	ctx := context.Background()
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.runner.RunOne(ctx, c.Model, "cli")
	if err != nil {
		return err
	}
	return printJSON(report)
}

type RunAllCmd struct{}

func (c *RunAllCmd) Run(g *Globals) error {
	ctx := context.Background()
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	summary := a.runner.RunAll(ctx, "cli")
	for _, p := range pipeline.Registry {
		if r, ok := summary.Results[p.Key]; ok {
			fmt.Printf("%-24s ok     %s\n", p.Key, r.ReportID)
		} else {
			fmt.Printf("%-24s failed %s\n", p.Key, summary.Errors[p.Key])
		}
	}
	if len(summary.Errors) > 0 {
		return fmt.Errorf("%d of %d models failed", len(summary.Errors), len(pipeline.Registry))
	}
	return nil
}

type ReportCmd struct {
	Latest ReportLatestCmd `cmd:"" default:"withargs" help:"Print the newest report of a model."`
	Stats  ReportStatsCmd  `cmd:"" help:"Show sqlite report store statistics."`
	Prune  ReportPruneCmd  `cmd:"" help:"Delete old sqlite reports."`
}

type ReportLatestCmd struct {
	Model string `arg:"" help:"Model key."`
}

func (c *ReportLatestCmd) Run(g *Globals) error {
	ctx := context.Background()
	cfg, err := g.config()
	if err != nil {
		return err
	}

	var reports store.ReportStore
	if g.ReportStore == "sqlite" {
		st, closeDB, err := g.openSQLite()
		if err != nil {
			return err
		}
		defer closeDB()
		reports = st
	} else {
		client, err := source.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())
		reports = store.NewMongoReports(client.Database(cfg.DBName), cfg.ReportsCollection)
	}

	report, err := reports.LatestReport(ctx, c.Model)
	if err != nil {
		return err
	}
	if report == nil {
		return fmt.Errorf("no reports found for model %q", c.Model)
	}
	report.Metrics.Visualization = fmt.Sprintf("<%d bytes>", len(report.Metrics.Visualization))
	return printJSON(report)
}

type ReportStatsCmd struct{}

func (c *ReportStatsCmd) Run(g *Globals) error {
	st, closeDB, err := g.openSQLite()
	if err != nil {
		return err
	}
	defer closeDB()

	stats, err := st.ReportStats(context.Background())
	if err != nil {
		return err
	}
	return printJSON(stats)
}

type ReportPruneCmd struct {
	Keep int `default:"10" help:"Reports to keep per model."`
}

func (c *ReportPruneCmd) Run(g *Globals) error {
	if c.Keep < 1 {
		return fmt.Errorf("--keep must be at least 1")
	}
	st, closeDB, err := g.openSQLite()
	if err != nil {
		return err
	}
	defer closeDB()

	removed, err := st.PruneReports(context.Background(), c.Keep)
	if err != nil {
		return err
	}
	fmt.Printf("removed %d reports\n", removed)
	return nil
}

type ModelsCmd struct{}

func (c *ModelsCmd) Run() error {
	for _, p := range pipeline.Registry {
		fmt.Printf("%-24s %s\n", p.Key, p.Name)
	}
	return nil
}

type CLI struct {
	Globals

	EnvFile kongdotenv.ENVFileConfig `name:"env-file" default:".env" help:"Path to .env file."`

	Serve  ServeCmd  `cmd:"" help:"Run the HTTP service."`
	Run    RunCmd    `cmd:"" help:"Train one model and store its report."`
	RunAll RunAllCmd `cmd:"" name:"run-all" help:"Train every model in turn."`
	Report ReportCmd `cmd:"" help:"Inspect stored reports."`
	Models ModelsCmd `cmd:"" help:"List model keys."`
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("fleetml"),
		kong.Description("YATRIK fleet analytics: trains the fleet models and serves their reports."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}
