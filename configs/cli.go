// Package configs contains the logic to obtain app configuration from a file or the environment
package configs

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	_ "embed" // used to embed the default application config file.

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

//go:embed parley.toml
var defaultConfigFile []byte

// InitConfig initializes the app config with Viper from the environment, a specified file, or a default file.
func InitConfig(file string) {
	if file == "" {
		panic("dev error, InitConfig should always be passed a valid config filepath")
	}
	viper.SetConfigName("parley")
	viper.SetConfigType("toml")

	// allow env vars to override config file
	viper.SetEnvPrefix("parley")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
	viper.SetConfigFile(file)

	// if config file does not exist, create it with the embedded default config
	if _, err := os.Stat(file); err != nil {
		log.Debug().Msgf("config file not found (%s)", file)
		if err := viper.ReadConfig(bytes.NewBuffer(defaultConfigFile)); err != nil {
			log.Fatal().Msg(fmt.Errorf("error reading default embedded config file: %w", err).Error())
		}
		log.Debug().Msgf("writing new config file (%s)", file)
		if err := os.WriteFile(file, defaultConfigFile, 0o600); err != nil {
			log.Fatal().Msgf("error writing default config: %v", err)
		}
		return
	}

	if err := viper.ReadInConfig(); err != nil {
		log.Fatal().Msg(fmt.Errorf("error reading config file: %w", err).Error())
	}
}

// GetConfigDir obtains the configuration directory in a cross-platform manner,
// always respecting the XDG_CONFIG_HOME env var, using standard defaults on all OS's,
// but overriding to ~/.config on macOS
func GetConfigDir() string {
	var xdgConfigHome string
	if runtime.GOOS == "darwin" && os.Getenv("XDG_CONFIG_HOME") == "" {
		home, _ := os.UserHomeDir()
		xdgConfigHome = filepath.Join(home, ".config") // override for mac
	} else {
		xdgConfigHome = xdg.ConfigHome
	}

	appConfigDir := filepath.Join(xdgConfigHome, "parley")
	if err := os.MkdirAll(appConfigDir, 0o750); err != nil {
		log.Fatal().Msgf("error creating application config directory (%s): %v", appConfigDir, err)
	}
	return appConfigDir
}

// PersistNickname updates the config file with the nickname used for this
// session, so the next session can reuse it. Callers must not pass
// guest-style names.
func PersistNickname(filename, nickname string) error {
	return updateConfigFile(filename, func(config map[string]any) {
		user, ok := config["user"].(map[string]any)
		if !ok {
			user = make(map[string]any)
			config["user"] = user
		}
		user["nickname"] = nickname
	})
}

// ClearPersistedNickname removes the stored nickname, used when the user
// leaves a room.
func ClearPersistedNickname(filename string) error {
	return updateConfigFile(filename, func(config map[string]any) {
		if user, ok := config["user"].(map[string]any); ok {
			user["nickname"] = ""
		}
	})
}

// updateConfigFile loads the entire config file, applies mutate, and writes
// it back.
func updateConfigFile(filename string, mutate func(map[string]any)) error {
	var config map[string]any

	data, err := os.ReadFile(filename)
	if err != nil {
		return errors.New("config file not found! developer error")
	}

	if err := toml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("unmarshaling error: %w", err)
	}
	mutate(config)

	data, err = toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling error: %w", err)
	}
	return os.WriteFile(filename, data, 0o644)
}
