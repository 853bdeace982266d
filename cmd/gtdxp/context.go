package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/nhle/gtdxp-os/internal/auth"
	"github.com/nhle/gtdxp-os/internal/credential"
	"github.com/nhle/gtdxp-os/internal/logging"
	"github.com/nhle/gtdxp-os/internal/model"
	"github.com/nhle/gtdxp-os/internal/session"
	"github.com/nhle/gtdxp-os/internal/store"
)

// openVault opens the keyring. Tests swap in an in-memory one.
var openVault = credential.Open

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *model.AppConfig
	configPath string
	configErr  error

	logger *logging.Logger
	vault  *credential.Vault
	store  *store.SQLiteStore
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*model.AppConfig, error) {
	c.configOnce.Do(func() {
		path := model.DefaultConfigPath()
		if c.configFlag != nil && strings.TrimSpace(*c.configFlag) != "" {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := model.LoadConfig(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Log.Level = strings.TrimSpace(*c.logLevelFlag)
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

// ensureLogger opens the log file configured for the client.
func (c *commandContext) ensureLogger() (*logging.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Path:   cfg.Log.Path,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	c.logger = logger
	return logger, nil
}

func (c *commandContext) ensureVault() (*credential.Vault, error) {
	if c.vault != nil {
		return c.vault, nil
	}
	v, err := openVault()
	if err != nil {
		return nil, err
	}
	c.vault = v
	return v, nil
}

func (c *commandContext) ensureStore() (*store.SQLiteStore, error) {
	if c.store != nil {
		return c.store, nil
	}
	s, err := store.NewSQLiteStore(store.DefaultPath(model.DefaultStateDir()))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	c.store = s
	return s, nil
}

// anonKey returns the configured anon key, falling back to the keyring.
func (c *commandContext) anonKey(cfg *model.AppConfig) string {
	if cfg.Auth.AnonKey != "" {
		return cfg.Auth.AnonKey
	}
	v, err := c.ensureVault()
	if err != nil {
		return ""
	}
	key, err := v.Get(credential.KeyAnonKey)
	if err != nil {
		return ""
	}
	return key
}

// sessionManager builds the provider client and a manager whose session
// is persisted in the keyring. A keyring that cannot be opened leaves the
// session in memory.
func (c *commandContext) sessionManager() (*session.Manager, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}

	cfg.Auth.AnonKey = c.anonKey(cfg)
	client := auth.NewClient(cfg.Auth.URL, cfg.Auth.AnonKey, auth.WithLogger(logger.Logger))

	var persister session.Persister
	if v, err := c.ensureVault(); err != nil {
		logger.Warn("keyring unavailable, session will not be remembered", "error", err)
	} else {
		persister = v
	}
	return session.NewManager(client, persister), nil
}

// requireAuth fails when the provider is not configured.
func (c *commandContext) requireAuth() (*session.Manager, error) {
	mgr, err := c.sessionManager()
	if err != nil {
		return nil, err
	}
	if !c.config.AuthConfigured() {
		return nil, fmt.Errorf("%w: set auth.url in %s and run `gtdxp auth set-key`", model.ErrAuthNotConfigured, c.configPath)
	}
	return mgr, nil
}

func (c *commandContext) close() error {
	var errs []error
	if c.store != nil {
		errs = append(errs, c.store.Close())
		c.store = nil
	}
	if c.logger != nil {
		errs = append(errs, c.logger.Close())
		c.logger = nil
	}
	return errors.Join(errs...)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
