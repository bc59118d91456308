package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/Alia5/rawpad/driver/dryrun"
	"github.com/Alia5/rawpad/driver/viiper"
	"github.com/Alia5/rawpad/engine"
	"github.com/Alia5/rawpad/internal/config"
	"github.com/Alia5/rawpad/internal/configpaths"
	"github.com/Alia5/rawpad/internal/log"
	"github.com/Alia5/rawpad/internal/tray"
	"github.com/Alia5/rawpad/internal/util"
	"github.com/Alia5/rawpad/publisher"
	"github.com/Alia5/rawpad/rawinput"
)

// ViiperConfig selects and authenticates the VIIPER server.
type ViiperConfig struct {
	Addr        string        `help:"VIIPER API address" default:"localhost:3242" env:"RAWPAD_VIIPER_ADDR"`
	Password    string        `help:"VIIPER API password (defaults to the local server's key file)" env:"RAWPAD_VIIPER_PASSWORD"`
	AskPassword bool          `help:"Prompt for the VIIPER API password"`
	KeyFile     string        `help:"Read the VIIPER API password from this file" env:"RAWPAD_VIIPER_KEY_FILE"`
	Bus         uint32        `help:"Bus to attach to; 0 reuses the first bus or creates one" default:"0" env:"RAWPAD_VIIPER_BUS"`
	Timeout     time.Duration `help:"Management and stream I/O timeout" default:"5s" env:"RAWPAD_VIIPER_TIMEOUT"`
}

// Run translates mouse input until interrupted or exited from the tray.
type Run struct {
	Driver  string       `help:"Controller driver" enum:"viiper,none" default:"viiper" env:"RAWPAD_DRIVER"`
	Viiper  ViiperConfig `embed:"" prefix:"viiper."`
	Profile string       `help:"Mapping profile (json, yaml or toml); created with defaults if missing" env:"RAWPAD_PROFILE"`
	Tray    string       `help:"Show a tray icon (auto: only on Windows)" enum:"auto,on,off" default:"auto" env:"RAWPAD_TRAY"`
}

// Run is called by Kong when the run command is executed.
func (r *Run) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	source := rawinput.NewSource(rawinput.Options{Logger: logger, Tap: rawLogger})
	return r.Execute(ctx, logger, rawLogger, source)
}

// Execute runs one session against source until ctx is done.
func (r *Run) Execute(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger, source rawinput.Source) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	profile, err := r.loadProfile(logger)
	if err != nil {
		return err
	}
	cfg, err := profile.EngineConfig()
	if err != nil {
		return fmt.Errorf("profile %q: %w", profile.Name, err)
	}

	driver, err := r.driver(logger, rawLogger)
	if err != nil {
		return err
	}

	observers := engine.Observers{engine.LogObserver{Logger: logger}}
	var t *tray.Tray
	if r.trayEnabled() {
		t = tray.New(nil, tray.ShutdownFunc(cancel), logger)
		observers = append(observers, t)
	}

	eng, err := engine.New(cfg, driver, source,
		engine.WithLogger(logger),
		engine.WithObserver(observers),
	)
	if err != nil {
		return err
	}

	if t != nil {
		t.SetController(eng)
		go t.Run(tray.Icon())
		defer t.Quit()
		if util.IsRunFromGUI() {
			go func() {
				time.Sleep(250 * time.Millisecond)
				util.HideConsoleWindow()
			}()
		}
	}

	logger.Info("starting", "profile", profile.Name, "driver", r.Driver)
	if err := eng.Run(ctx); err != nil {
		if util.IsRunFromGUI() {
			fmt.Println("Press any key to exit...")
			b := make([]byte, 1)
			_, _ = os.Stdin.Read(b)
		}
		return err
	}
	return nil
}

func (r *Run) loadProfile(logger *slog.Logger) (config.Profile, error) {
	path := r.Profile
	if path == "" {
		p, err := configpaths.DefaultProfilePath()
		if err != nil {
			return config.Profile{}, fmt.Errorf("resolve profile path: %w", err)
		}
		path = p
	}
	profile, err := config.NewStore(path, logger).Load()
	if errors.Is(err, config.ErrConfigLoad) {
		logger.Warn("using default profile", "error", err)
	} else if err != nil {
		return profile, err
	}
	return profile, nil
}

func (r *Run) driver(logger *slog.Logger, rawLogger log.RawLogger) (publisher.Driver, error) {
	switch r.Driver {
	case "none":
		return dryrun.New(logger, rawLogger), nil
	case "viiper", "":
	default:
		return nil, fmt.Errorf("unknown driver %q", r.Driver)
	}

	password, err := r.Viiper.password(logger)
	if err != nil {
		return nil, err
	}
	return viiper.New(viiper.Config{
		Addr:      r.Viiper.Addr,
		Password:  password,
		BusID:     r.Viiper.Bus,
		IOTimeout: r.Viiper.Timeout,
		Logger:    logger,
		Raw:       rawLogger,
	}), nil
}

func (r *Run) trayEnabled() bool {
	switch r.Tray {
	case "on":
		return true
	case "off":
		return false
	}
	return runtime.GOOS == "windows"
}

// password resolves, in order: prompt, flag, explicit key file, the local
// VIIPER server's key file. An empty result means no authentication.
func (v ViiperConfig) password(logger *slog.Logger) (string, error) {
	if v.AskPassword {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return "", errors.New("--viiper.ask-password needs an interactive terminal")
		}
		fmt.Fprint(os.Stderr, "VIIPER password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	if v.Password != "" {
		return v.Password, nil
	}

	explicit := v.KeyFile != ""
	path := v.KeyFile
	if !explicit {
		p, err := configpaths.ViiperKeyFile()
		if err != nil {
			return "", nil
		}
		path = p
	}
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		logger.Debug("using VIIPER key file", "path", path)
		return strings.TrimSpace(string(b)), nil
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		return "", nil
	default:
		return "", fmt.Errorf("read key file: %w", err)
	}
}
