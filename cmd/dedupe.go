package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/gmx/internal/formatter"
	"github.com/desertthunder/gmx/internal/models"
	"github.com/desertthunder/gmx/internal/shared"
	"github.com/desertthunder/gmx/internal/tasks"
	"github.com/urfave/cli/v3"
)

type dedupeOpts struct {
	user      string
	password  string
	library   bool
	playlist  bool
	dryRun    bool
	report    string
	noHistory bool
}

// parseDedupeOpts reads the root flags, failing with [shared.ErrUsage] when credentials or a pass are missing.
func parseDedupeOpts(cmd *cli.Command) (dedupeOpts, error) {
	opts := dedupeOpts{
		user:      cmd.String("user"),
		password:  cmd.String("password"),
		library:   cmd.Bool("library"),
		playlist:  cmd.Bool("playlist"),
		dryRun:    cmd.Bool("dry-run"),
		report:    cmd.String("report"),
		noHistory: cmd.Bool("no-history"),
	}

	switch {
	case opts.user == "":
		return opts, fmt.Errorf("%w: user is required", shared.ErrUsage)
	case opts.password == "":
		return opts, fmt.Errorf("%w: password is required", shared.ErrUsage)
	case !opts.library && !opts.playlist:
		return opts, fmt.Errorf("%w: one of --library or --playlist is required", shared.ErrUsage)
	}

	return opts, nil
}

// Dedupe logs in and runs the playlist pass, then the library pass, as requested.
//
// Usage problems print help and succeed. A failed login prints a message and returns [shared.ErrAuthFailed].
func (r *Runner) Dedupe(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	opts, err := parseDedupeOpts(cmd)
	if err != nil {
		r.logger.Debug("invalid usage", "error", err)
		return cli.ShowRootCommandHelp(cmd)
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	client := r.musicClient(config)
	deviceID := shared.DeviceID(config.Service.DeviceID)
	r.logger.Debug("logging in", "user", opts.user, "service", client.Name(), "device", deviceID)

	loggedIn, err := client.Login(ctx, opts.user, opts.password, deviceID)
	if err != nil {
		r.logger.Error("login request failed", "error", err)
	}
	if err != nil || !loggedIn {
		r.writePlain("%s\n", formatter.Failure("Failed to login to Google Play Music"))
		return fmt.Errorf("%w: %s", shared.ErrAuthFailed, opts.user)
	}

	engineOpts := tasks.EngineOpts{
		Client:  client,
		Logger:  r.logger,
		User:    opts.user,
		Workers: config.Dedupe.Workers,
		DryRun:  opts.dryRun,
	}

	if !opts.noHistory {
		store, closeStore, err := r.runStore(config)
		if err != nil {
			r.logger.Warn("run history disabled", "error", err)
		} else {
			defer closeStore()
			engineOpts.Recorder = store
		}
	}

	engine := tasks.NewDedupeEngine(engineOpts)
	runs := []*models.Run{}

	if opts.playlist {
		run, err := r.dedupePlaylists(ctx, engine, opts)
		if run != nil {
			runs = append(runs, run)
		}
		if err != nil {
			r.writeRemovalReport(opts.report, runs)
			return err
		}
	}

	if opts.library {
		run, err := r.dedupeLibrary(ctx, engine, opts)
		if run != nil {
			runs = append(runs, run)
		}
		if err != nil {
			r.writeRemovalReport(opts.report, runs)
			return err
		}
	}

	r.writeRemovalReport(opts.report, runs)
	return nil
}

func (r *Runner) dedupePlaylists(ctx context.Context, engine tasks.Deduplicator, opts dedupeOpts) (*models.Run, error) {
	r.writePlain("\n%s", formatter.Header("Playlists"))

	progressCh, wait := r.progress(opts.dryRun)
	result, err := engine.Playlists(ctx, progressCh)
	wait()

	if result == nil {
		return nil, err
	}

	if reportErr := formatter.WritePlaylistSummary(r.output, result); reportErr != nil && err == nil {
		err = reportErr
	}
	return result.Run, err
}

func (r *Runner) dedupeLibrary(ctx context.Context, engine tasks.Deduplicator, opts dedupeOpts) (*models.Run, error) {
	r.writePlain("\n%s", formatter.Header("Library"))

	progressCh, wait := r.progress(opts.dryRun)
	result, err := engine.Library(ctx, progressCh)
	wait()

	if result == nil {
		return nil, err
	}

	if reportErr := formatter.WriteLibraryReport(r.output, result, opts.dryRun); reportErr != nil && err == nil {
		err = reportErr
	}
	return result.Run, err
}

// progress starts a goroutine printing fetch updates and each playlist scan as it arrives.
// Other phases are logged at debug level.
//
// The returned func closes the channel and waits for the goroutine to drain it.
func (r *Runner) progress(dryRun bool) (chan tasks.ProgressUpdate, func()) {
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchPlaylists, tasks.FetchSongs:
				r.writePlain("%s\n\n", update.Message)
			case tasks.ScanPlaylist:
				playlist, ok := update.Data.(tasks.PlaylistResult)
				if !ok {
					r.writePlain("%s\n", update.Message)
					continue
				}
				if err := formatter.WritePlaylistScan(r.output, update.Step, update.Total, playlist, dryRun); err != nil {
					r.logger.Warn("failed to write playlist scan", "playlist", playlist.Name, "error", err)
				}
			default:
				r.logger.Debug(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
			}
		}
	}()

	return progressCh, func() {
		close(progressCh)
		<-done
	}
}

// writeRemovalReport writes the CSV report when --report was given. Failures are logged.
func (r *Runner) writeRemovalReport(path string, runs []*models.Run) {
	if path == "" {
		return
	}

	if err := formatter.WriteRemovalReport(path, runs...); err != nil {
		r.logger.Error("failed to write removal report", "path", path, "error", err)
		return
	}
	r.writePlain("\nWrote removal report to %s\n", path)
}

// Init writes the example configuration file. An existing file is left untouched.
func (r *Runner) Init(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if path == "" {
		return fmt.Errorf("%w: config path is empty", shared.ErrInvalidArgument)
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Debug("config file created", "path", path)
	return r.writePlain("Wrote configuration to %s\n", path)
}

// History lists recorded runs, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	store, closeStore, err := r.runStore(config)
	if err != nil {
		return err
	}
	defer closeStore()

	runs, err := store.List(int(cmd.Int("limit")))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if cmd.Bool("json") {
		if runs == nil {
			runs = []*models.Run{}
		}
		return r.writeJSON(runs, cmd.Bool("pretty"))
	}

	r.writePlain("%s", formatter.Header("Run History"))
	return formatter.WriteHistory(r.output, runs)
}
