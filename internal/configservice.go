package internal

import (
	"encoding/json"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	"github.com/quickcourt/quickcourt/internal/ctxhelper"
	"github.com/quickcourt/quickcourt/internal/log"
	"github.com/quickcourt/quickcourt/internal/models"
	"golang.org/x/net/context"
)

// ConfigService manages the application's configuration file. Values can be overridden
// through the environment - the environment wins over the file
type ConfigService interface {
	// Load loads the application config from its default file location
	Load(ctx context.Context) error
	// LoadFromFile loads the configuration from the given JSON file and returns it
	LoadFromFile(ctx context.Context, filename string) error
	// Write writes the current application configuration to the default file name
	Write(ctx context.Context) error
	// WriteToFile writes the current application configuration to a JSON file
	WriteToFile(ctx context.Context, filename string) error
	// GetConfig retuns the current application configuration
	GetConfig(ctx context.Context) models.AppConfig
}

// -- ConfigService implementation -------------------------------------------------------------------------------------

type configService struct {
	configFilename string
	config         *models.AppConfig
}

// NewConfigService creates a new configuration service instance with the given default file name
func NewConfigService(configFilename string) ConfigService {
	return &configService{
		configFilename: configFilename,
	}
}

// Load loads the application config from its default file location
func (s *configService) Load(ctx context.Context) error {
	return s.LoadFromFile(ctx, s.configFilename)
}

// LoadFromFile loads the configuration from the given JSON file and applies the
// environment overrides on top of it
func (s *configService) LoadFromFile(ctx context.Context, filename string) error {
	logger := ctxhelper.Logger(ctx)
	logger.WithField(log.FldFile, filename).Info("Loading configuration file")
	conf, err := models.GetDefaultConfig()
	if err != nil {
		return errors.Wrap(err, "LoadFromFile: Failed to create default config")
	}
	f, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "LoadFromFile: cannot load configuration file")
	}
	defer f.Close()
	if err = json.NewDecoder(f).Decode(&conf); err != nil {
		return errors.Wrap(err, "LoadFromFile: Failed to decode configuration file")
	}
	if err = env.Parse(conf); err != nil {
		return errors.Wrap(err, "LoadFromFile: Failed to apply environment overrides")
	}
	s.config = conf
	return nil
}

// Write writes the current application configuration to the default file name
func (s *configService) Write(ctx context.Context) error {
	return s.WriteToFile(ctx, s.configFilename)
}

// WriteToFile writes the current application configuration to a JSON file
func (s *configService) WriteToFile(ctx context.Context, filename string) error {
	logger := ctxhelper.Logger(ctx)
	logger.WithField(log.FldFile, filename).Info("Writing configuration file")
	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "WriteToFile: Cannot open configuration file '%s' to write to", filename)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "    ")
	conf := s.GetConfig(ctx)
	if err := enc.Encode(&conf); err != nil {
		return errors.Wrap(err, "WriteToFile: Failed to serialize configuration data")
	}
	return nil
}

// GetConfig retuns the current application configuration
func (s *configService) GetConfig(ctx context.Context) models.AppConfig {
	var ret models.AppConfig
	if s.config != nil {
		ret = *s.config
	} else {
		if tmp, err := models.GetDefaultConfig(); err == nil {
			// Even without a config file the environment overrides apply
			if err := env.Parse(tmp); err != nil {
				ctxhelper.Logger(ctx).WithError(err).Error("Failed to apply environment overrides")
			}
			ret = *tmp
		}
	}
	return ret
}
