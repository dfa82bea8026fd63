package models

import (
	"path"

	"github.com/kardianos/osext"
)

// AppConfig is the application's main configuration structure. Values from the JSON
// config file can be overridden through the environment (see the env tags)
type AppConfig struct {
	// The directory where QuickCourt stores its event database - defaults to the /data
	// subdirectory of the folder the executable resides in
	DataDir string `json:"dataDir" env:"QUICKCOURT_DATA_DIR"`
	// The IP address to listen at - including the port number
	ListenAddress string `json:"listenAddress" env:"QUICKCOURT_LISTEN_ADDR"`
	// The credentials for the administrative account created on startup
	DefaultUser *DefaultUserConfig `json:"defaultUser"`
}

// The DefaultUserConfig struct configures the default user that can log in
// In a later version, this will be replaced by a full user management
type DefaultUserConfig struct {
	Name      string `json:"name" env:"QUICKCOURT_ADMIN_USER"`
	Password  string `json:"password" env:"QUICKCOURT_ADMIN_PASSWORD"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// GetDefaultConfig returns the default configuration values for the application
func GetDefaultConfig() (*AppConfig, error) {
	execDir, err := osext.ExecutableFolder()
	if err != nil {
		return nil, err
	}
	return &AppConfig{
		DataDir: path.Join(execDir, "data"),
		DefaultUser: &DefaultUserConfig{
			Name:      "admin",
			Password:  "changeme",
			FirstName: "Court",
			LastName:  "Admin",
		},
		ListenAddress: ":5001",
	}, nil
}
