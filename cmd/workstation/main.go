package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/jscyril/multitrack/internal/audio"
	"github.com/jscyril/multitrack/internal/config"
	"github.com/jscyril/multitrack/internal/effects"
	"github.com/jscyril/multitrack/internal/library"
	"github.com/jscyril/multitrack/internal/logging"
	"github.com/jscyril/multitrack/internal/project"
	"github.com/jscyril/multitrack/internal/recording"
	"github.com/jscyril/multitrack/internal/session"
	"github.com/jscyril/multitrack/internal/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type flags struct {
	configPath string
	envFile    string
	store      string
	projectID  string
	name       string
	export     string
	input      string
	list       bool
}

func parseFlags() (flags, []string) {
	var f flags
	flag.StringVar(&f.configPath, "config", config.GetConfigPath(), "path to the config file")
	flag.StringVar(&f.envFile, "env", ".env", "optional .env file with DAW_* overrides")
	flag.StringVar(&f.store, "store", "", "project store: file, sqlite or postgres")
	flag.StringVar(&f.projectID, "project", "", "id of a saved project to open")
	flag.StringVar(&f.name, "name", "untitled", "project name used when saving")
	flag.StringVar(&f.export, "export", "", "render the mixdown to this WAV file and exit")
	flag.StringVar(&f.input, "input", "", "WAV file fed to track recordings as live input")
	flag.BoolVar(&f.list, "list", false, "list saved projects and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [audio files or directories...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	return f, flag.Args()
}

func run() error {
	f, paths := parseFlags()

	cfg, err := config.Load(f.configPath, f.envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if f.store != "" {
		cfg.ProjectStore = f.store
		cfg.Resolve()
	}

	for _, dir := range []string{cfg.DataDir, cfg.RecordingsDir, cfg.ExportDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
	}

	headless := f.export != "" || f.list
	logFile := cfg.LogFile
	if logFile == "" && !headless {
		// stderr belongs to the terminal UI
		logFile = filepath.Join(cfg.DataDir, "multitrack.log")
	}
	logger, logCloser, err := logging.Open(cfg.LogLevel, logFile)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open project store: %w", err)
	}
	defer closeStore()

	if f.list {
		return listProjects(ctx, store, os.Stdout)
	}

	sr := beep.SampleRate(cfg.SampleRate)
	engine := audio.NewEngine(sr)
	if !headless {
		if err := engine.Start(ctx, time.Duration(cfg.BufferMS)*time.Millisecond); err != nil {
			return fmt.Errorf("start audio: %w", err)
		}
	}

	presets, err := effects.LoadPresets(cfg.PresetsPath)
	if err != nil {
		return err
	}

	input, closeInput, err := openInput(f.input, sr)
	if err != nil {
		return err
	}
	defer closeInput.Close()

	sess := session.New(session.Options{
		Engine:        engine,
		Presets:       presets,
		Input:         input,
		PoolSize:      cfg.PoolSize,
		RecordingsDir: cfg.RecordingsDir,
		Logger:        logger,
	})
	sess.Start(ctx)

	saver := &projectSaver{store: store, sess: sess, name: f.name}
	if f.projectID != "" {
		p, err := store.Load(ctx, f.projectID)
		if err != nil {
			return fmt.Errorf("open project: %w", err)
		}
		saver.adopt(p)
		if err := sess.Restore(ctx, p); err != nil {
			logger.Warn("project restored with errors", "project", p.ID, "err", err)
		}
	}

	if err := importPaths(ctx, sess, paths, logger); err != nil {
		logger.Warn("import finished with errors", "err", err)
	}

	if f.export != "" {
		mix, err := sess.ExportFile(ctx, f.export)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		fmt.Printf("Exported %d tracks (%s, peak %.2f) to %s\n", len(mix.Tracks), mix.Duration().Round(time.Millisecond), mix.Peak, f.export)
		return nil
	}

	err = ui.Run(sess, ui.Options{
		Presets:   presets.Names(),
		ExportDir: cfg.ExportDir,
		Keys:      cfg.KeyBindings,
		Save:      saver.save,
	})
	if err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

// openStore opens the configured project store and returns its release func
func openStore(ctx context.Context, cfg *config.Config) (project.Store, func(), error) {
	switch cfg.ProjectStore {
	case config.StoreFile:
		return project.NewFileStore(cfg.ProjectsDir), func() {}, nil
	case config.StoreSQLite:
		s, err := project.OpenSQLite(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case config.StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, nil, errors.New("postgres store needs DAW_DATABASE_URL")
		}
		s, err := project.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown project store %q", cfg.ProjectStore)
	}
}

func listProjects(ctx context.Context, store project.Store, w io.Writer) error {
	summaries, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No saved projects")
		return nil
	}
	for _, s := range summaries {
		fmt.Fprintf(w, "%s  %-24s %2d tracks  %s\n", s.ID, s.Name, s.Tracks, s.UpdatedAt.Format(time.DateTime))
	}
	return nil
}

// importPaths adds one track per audio file found under paths
func importPaths(ctx context.Context, sess *session.Session, paths []string, logger *slog.Logger) error {
	if len(paths) == 0 {
		return nil
	}
	samples, scanErr := library.NewScanner(4).Collect(ctx, paths)
	errs := []error{scanErr}
	for _, sample := range samples {
		t, err := sess.AddTrack(sample.Name())
		if err != nil {
			return errors.Join(append(errs, err)...)
		}
		if err := sess.ImportFile(ctx, t.ID, sample.Path); err != nil {
			errs = append(errs, err)
			continue
		}
		logger.Info("imported", "track", t.ID, "path", sample.Path)
	}
	return errors.Join(errs...)
}

// openInput decodes a WAV file to stand in for a capture device. No path
// leaves recordings without input.
func openInput(path string, sr beep.SampleRate) (recording.Input, io.Closer, error) {
	if path == "" {
		return recording.NoInput{}, io.NopCloser(nil), nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	streamer, format, err := wav.Decode(file)
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("decode input: %w", err)
	}
	var s beep.Streamer = streamer
	if format.SampleRate != sr {
		s = beep.Resample(4, format.SampleRate, sr, streamer)
	}
	return recording.FromStreamer(s), streamer, nil
}

// projectSaver keeps saving into the same project once it has an id
type projectSaver struct {
	mu      sync.Mutex
	store   project.Store
	sess    *session.Session
	name    string
	id      string
	created time.Time
}

func (p *projectSaver) adopt(doc *project.Project) {
	p.id = doc.ID
	p.name = doc.Name
	p.created = doc.CreatedAt
}

func (p *projectSaver) save(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	doc, err := p.sess.Project(p.name)
	if err != nil {
		return err
	}
	if p.id != "" {
		doc.ID = p.id
		doc.CreatedAt = p.created
	}
	if err := p.store.Save(ctx, doc); err != nil {
		return err
	}
	p.adopt(doc)
	return nil
}
