package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/dshills/bly/internal/app"
	"github.com/dshills/bly/internal/config"
	"github.com/dshills/bly/internal/dispatcher/hook"
	"github.com/dshills/bly/internal/logging"
	"github.com/dshills/bly/internal/plugin"
	"github.com/dshills/bly/internal/plugin/lua"
)

// pluginFlags selects the plugins a command loads.
type pluginFlags struct {
	Files []string
	Names []string
}

func (p *pluginFlags) bind(fs *pflag.FlagSet) {
	fs.StringSliceVarP(&p.Files, "plugin", "p", nil, "Lua plugin file or directory to load (repeatable)")
	fs.StringSliceVarP(&p.Names, "use", "u", nil, "plugin name to find in the plugin paths (repeatable)")
}

// session is a started app with its plugins loaded.
type session struct {
	cfg     *config.Config
	log     *logging.Logger
	app     *app.App
	reg     *plugin.Registry
	scripts []*lua.Script
	// history is nil when cfg.History is zero.
	history *hook.HistoryHook
}

// loadConfig reads the config file and environment and applies flag
// overrides.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return nil, err
	}
	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}
	if flags.Debug {
		cfg.LogLevel = "debug"
	}
	if flags.LogFormat != "" {
		cfg.LogFormat = flags.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// withMetrics turns dispatcher metrics on regardless of the config.
func withMetrics(c *config.Config) { c.Metrics = true }

// newSession builds the app, registers the selected plugins and starts it.
// Logs go to logOut. Each override is applied to the loaded config.
func newSession(flags *globalFlags, plugins *pluginFlags, logOut io.Writer, overrides ...func(*config.Config)) (*session, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(cfg)
	}

	terminal := false
	if f, ok := logOut.(*os.File); ok {
		terminal = term.IsTerminal(int(f.Fd()))
	}
	log := logging.New(cfg.Logging(logOut, terminal))

	dcfg := cfg.Dispatcher(log)
	a := app.New(app.Options{Dispatcher: &dcfg, Logger: log, Audit: cfg.Audit})
	s := &session{
		cfg: cfg,
		log: log,
		app: a,
		reg: plugin.NewRegistry(a, log),
	}
	if cfg.History > 0 {
		s.history = hook.NewHistoryHook(cfg.History)
		a.Hooks().Register(s.history)
	}

	infos, err := s.resolvePlugins(plugins)
	if err != nil {
		return nil, err
	}
	if err := s.register(infos); err != nil {
		s.Close()
		return nil, err
	}

	a.Start()
	if err := s.reg.AfterErr(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// resolvePlugins turns config and flag entries into plugin infos. Files
// come first, then names looked up in the plugin paths.
func (s *session) resolvePlugins(p *pluginFlags) ([]*plugin.PluginInfo, error) {
	var infos []*plugin.PluginInfo

	files := append(append([]string{}, s.cfg.Plugins...), p.Files...)
	for _, f := range files {
		st, err := os.Stat(f)
		if err != nil {
			return nil, fmt.Errorf("plugin %s: %w", f, err)
		}
		if st.IsDir() {
			infos = append(infos, plugin.Inspect(filepath.Base(f), f))
		} else {
			infos = append(infos, plugin.SingleFile(f))
		}
	}

	if len(p.Names) > 0 {
		loader := newLoader(s.cfg)
		for _, name := range p.Names {
			info, err := loader.FindPlugin(name)
			if err != nil {
				return nil, err
			}
			infos = append(infos, info)
		}
	}
	return infos, nil
}

func (s *session) register(infos []*plugin.PluginInfo) error {
	if len(infos) == 0 {
		return nil
	}

	regs := make([]plugin.Registration, 0, len(infos))
	for _, info := range infos {
		sc, err := lua.FromInfo(info,
			lua.WithLogger(s.log.WithComponent("lua").With("plugin", info.Name)),
			lua.WithCallTimeout(s.cfg.LuaCallTimeout),
		)
		if err != nil {
			return err
		}
		s.scripts = append(s.scripts, sc)
		regs = append(regs, plugin.Use(sc.Plugin()))
	}

	var doneErr error
	if err := s.reg.Register(regs, func(err error) { doneErr = err }); err != nil {
		return err
	}
	return doneErr
}

// Close releases the Lua states.
func (s *session) Close() {
	for _, sc := range s.scripts {
		if err := sc.Close(); err != nil {
			s.log.Warn("close plugin", "error", err)
		}
	}
}

// newLoader returns a loader over the configured paths, or the default
// paths when none are configured.
func newLoader(cfg *config.Config) *plugin.Loader {
	if len(cfg.PluginPaths) > 0 {
		return plugin.NewLoader(plugin.WithPaths(cfg.PluginPaths...))
	}
	return plugin.NewLoader()
}
