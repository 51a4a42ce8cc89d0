package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shunichi-ikebuchi/paylog/pkg/bot"
	"github.com/shunichi-ikebuchi/paylog/pkg/config"
	"github.com/shunichi-ikebuchi/paylog/pkg/db"
	"github.com/shunichi-ikebuchi/paylog/pkg/engine"
	"github.com/shunichi-ikebuchi/paylog/pkg/interpreter"
	"github.com/shunichi-ikebuchi/paylog/pkg/ledger"
	"github.com/shunichi-ikebuchi/paylog/pkg/pathutil"
	"github.com/shunichi-ikebuchi/paylog/pkg/prefs"
	"github.com/shunichi-ikebuchi/paylog/pkg/sheets"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg    *config.Config
	paths  *pathutil.PathResolver
	conn   *db.Connection // nil unless the ledger is SQLite
	prefs  *prefs.BoltStore
	engine *engine.Engine
	bot    *bot.Bot
}

// openApp loads configuration and opens the ledger, the preference store
// and the interpreter.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(getConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	paths := pathutil.New(pathutil.Config{
		DataDir:      cfg.Storage.DataDir,
		LedgerDBPath: cfg.Storage.LedgerDB,
		PrefsDBPath:  cfg.Storage.PrefsDB,
		ExportDir:    cfg.Storage.ExportDir,
		KeywordsFile: cfg.Storage.KeywordsFile,
	})
	if err := paths.EnsureDir(paths.GetDataDir()); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, paths: paths}
	store, err := a.openLedger(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	prefsPath := paths.GetPrefsDBPath()
	if err := paths.EnsureParentDir(prefsPath); err != nil {
		a.Close()
		return nil, err
	}
	slog.Debug("Opening preference store", "path", prefsPath)
	a.prefs, err = prefs.OpenBoltStore(prefsPath)
	if err != nil {
		a.Close()
		return nil, err
	}

	interp, err := newInterpreter(cfg, paths)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.engine = engine.New(store)
	a.bot = bot.New(a.engine, interp, a.prefs)
	return a, nil
}

func (a *app) openLedger(ctx context.Context) (ledger.RowStore, error) {
	switch a.cfg.Storage.Backend {
	case config.BackendSheets:
		if err := a.cfg.Validate([]string{"sheets", "spreadsheetId"}); err != nil {
			return nil, err
		}
		creds, err := a.cfg.Sheets.CredentialsJSON()
		if err != nil {
			return nil, err
		}
		slog.Info("Using Google Sheets ledger", "spreadsheet_id", a.cfg.Sheets.SpreadsheetID)
		store, err := sheets.New(ctx, sheets.Config{
			SpreadsheetID:   a.cfg.Sheets.SpreadsheetID,
			CredentialsJSON: creds,
		})
		if err != nil {
			return nil, err
		}
		return store, nil

	case config.BackendMemory:
		slog.Warn("Using in-memory ledger; nothing will be saved")
		return ledger.NewMemoryStore(), nil

	default:
		dbPath := a.paths.GetLedgerDBPath()
		slog.Debug("Opening database", "path", dbPath)
		conn, err := db.Open(dbPath)
		if err != nil {
			return nil, err
		}
		a.conn = conn
		return db.NewRowStore(conn), nil
	}
}

func newInterpreter(cfg *config.Config, paths *pathutil.PathResolver) (*interpreter.Interpreter, error) {
	keywords := interpreter.DefaultKeywords()
	if file := paths.GetKeywordsFile(); file != "" {
		var err error
		keywords, err = interpreter.LoadKeywords(file)
		if err != nil {
			return nil, err
		}
		slog.Info("Loaded keyword table", "path", file)
	}

	return interpreter.New(interpreter.Config{
		Primary:          interpreter.Provider(cfg.AI.Primary),
		GoogleAPIKey:     cfg.AI.GoogleAPIKey,
		GroqAPIKey:       cfg.AI.GroqAPIKey,
		OpenRouterAPIKey: cfg.AI.OpenRouterAPIKey,
		MinInterval:      cfg.AI.MinInterval,
		Timeout:          cfg.AI.Timeout,
		Keywords:         keywords,
	})
}

// Close releases the stores that were opened.
func (a *app) Close() {
	var errs []error
	if a.prefs != nil {
		errs = append(errs, a.prefs.Close())
	}
	if a.conn != nil {
		errs = append(errs, a.conn.Close())
	}
	if err := errors.Join(errs...); err != nil {
		slog.Error("Failed to close stores", "error", err)
	}
}
