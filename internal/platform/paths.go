// Package platform resolves TimeLocker's configuration, data, cache, and
// runtime directories for the current platform and privilege context.
//
// Precedence (spec.md §4.1):
//
//	elevated process -> system-wide locations
//	user process      -> XDG directories
//	project overlay    -> ./.timelocker/config.json always takes precedence
//	                      over whichever of the above supplied the user/system
//	                      config, when the overlay file exists.
package platform

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
)

// Dirs holds the resolved set of directories TimeLocker uses.
type Dirs struct {
	// ConfigDir holds config.json, config_backups/, security/ and status/;
	// the CLI keeps the credential vault in its vault/ subdirectory.
	ConfigDir string
	// DataDir is resolved (TIMELOCKER_DATA_DIR overrides the default on
	// Unix) and created by Resolve; no component in this module stores
	// files there.
	DataDir string
	// CacheDir is resolved and created by Resolve; no component in this
	// module stores files there (the engine version probe and the snapshot
	// list cache are held in memory).
	CacheDir string
	// RuntimeDir is resolved and created by Resolve when available; no
	// component in this module stores files there. Empty when
	// XDG_RUNTIME_DIR is unset, and always empty for an elevated process.
	RuntimeDir string
	// Elevated reports whether the resolver detected an elevated/admin process.
	Elevated bool
	// ProjectOverlay is the path to ./.timelocker/config.json, set only if it exists.
	ProjectOverlay string
}

// Resolver derives Dirs from the OS environment. It is cheap to construct
// and holds no state beyond the environment lookup function, so tests can
// substitute a fake environment.
type Resolver struct {
	// Getenv defaults to os.Getenv; tests may override it.
	Getenv func(string) string
	// Logger receives warnings when a directory cannot be created; directory
	// creation failures are never fatal (spec.md §4.1).
	Logger *slog.Logger
}

// NewResolver returns a Resolver wired to the real OS environment.
func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{Getenv: os.Getenv, Logger: logger}
}

// Resolve computes Dirs for the current process and ensures each directory
// exists (0700 on POSIX). A creation failure is logged as a warning and the
// directory is still returned — callers attempting to use it will surface
// their own I/O error at the point of use.
func (r *Resolver) Resolve() Dirs {
	elevated := r.isElevated()

	var d Dirs
	if elevated {
		d = r.systemDirs()
	} else {
		d = r.userDirs()
	}
	d.Elevated = elevated

	if overlay := r.projectOverlayPath(); overlay != "" {
		if _, err := os.Stat(overlay); err == nil {
			d.ProjectOverlay = overlay
		}
	}

	for _, dir := range []string{d.ConfigDir, d.DataDir, d.CacheDir} {
		r.ensureDir(dir)
	}
	if d.RuntimeDir != "" {
		r.ensureDir(d.RuntimeDir)
	}

	return d
}

func (r *Resolver) ensureDir(dir string) {
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		if r.Logger != nil {
			r.Logger.Warn("could not create directory", "path", dir, "error", err)
		}
	}
}

func (r *Resolver) projectOverlayPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(cwd, ".timelocker", "config.json")
}

func (r *Resolver) systemDirs() Dirs {
	if runtime.GOOS == "windows" {
		programData := r.getenv("PROGRAMDATA", `C:\ProgramData`)
		return Dirs{
			ConfigDir: filepath.Join(programData, "timelocker"),
			DataDir:   filepath.Join(programData, "timelocker", "data"),
			CacheDir:  filepath.Join(programData, "timelocker", "cache"),
		}
	}
	return Dirs{
		ConfigDir: "/etc/timelocker",
		DataDir:   r.getenv("TIMELOCKER_DATA_DIR", "/var/lib/timelocker"),
		CacheDir:  "/var/cache/timelocker",
	}
}

func (r *Resolver) userDirs() Dirs {
	home, _ := os.UserHomeDir()

	configHome := r.getenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	cacheHome := r.getenv("XDG_CACHE_HOME", filepath.Join(home, ".cache"))
	runtimeDir := r.getenv("XDG_RUNTIME_DIR", "")

	dataDir := r.getenv("TIMELOCKER_DATA_DIR", filepath.Join(configHome, "timelocker", "data"))

	d := Dirs{
		ConfigDir: filepath.Join(configHome, "timelocker"),
		DataDir:   dataDir,
		CacheDir:  filepath.Join(cacheHome, "timelocker"),
	}
	if runtimeDir != "" {
		d.RuntimeDir = filepath.Join(runtimeDir, "timelocker")
	}
	return d
}

func (r *Resolver) getenv(key, fallback string) string {
	if v := r.Getenv(key); v != "" {
		return v
	}
	return fallback
}
