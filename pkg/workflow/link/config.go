// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

package link

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Store backends selectable via configuration.
const (
	BackendMemory = "memory"
	BackendMySQL  = "mysql"
)

// StoreConfig selects and configures the link store backend.
type StoreConfig struct {
	// Backend is "memory" or "mysql". Defaults to "memory".
	Backend string `mapstructure:"backend"`

	// MySQL configures the mysql backend. Required when Backend is "mysql".
	MySQL MySQLConfig `mapstructure:"mysql"`
}

// Validate checks if the configuration is valid.
func (c *StoreConfig) Validate() error {
	switch c.Backend {
	case BackendMemory:
		return nil
	case BackendMySQL:
		if c.MySQL.DSN == "" {
			return fmt.Errorf("mysql backend requires a dsn")
		}
		return nil
	default:
		return fmt.Errorf("unknown link store backend %q", c.Backend)
	}
}

// LoadStoreConfig reads the link store configuration from the given file
// (optional) and the environment. Environment variables use the ATELIER
// prefix with underscores, e.g. ATELIER_LINKSTORE_BACKEND=mysql and
// ATELIER_LINKSTORE_MYSQL_DSN=... override file values.
func LoadStoreConfig(configFile string) (*StoreConfig, error) {
	v := viper.New()

	v.SetDefault("linkstore.backend", BackendMemory)
	v.SetDefault("linkstore.mysql.max_open_conns", 10)
	v.SetDefault("linkstore.mysql.max_idle_conns", 5)

	v.SetEnvPrefix("ATELIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read link store config %s: %w", configFile, err)
		}
	}

	// Read keys individually: viper resolves defaults, file values, and env
	// overrides through Get, which UnmarshalKey does not do reliably.
	config := &StoreConfig{
		Backend: v.GetString("linkstore.backend"),
		MySQL: MySQLConfig{
			DSN:          v.GetString("linkstore.mysql.dsn"),
			MaxOpenConns: v.GetInt("linkstore.mysql.max_open_conns"),
			MaxIdleConns: v.GetInt("linkstore.mysql.max_idle_conns"),
		},
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid link store config: %w", err)
	}
	return config, nil
}

// NewStoreFromConfig constructs the store the configuration selects.
func NewStoreFromConfig(config *StoreConfig) (Store, error) {
	if config == nil {
		config = &StoreConfig{Backend: BackendMemory}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendMySQL:
		db, err := OpenMySQL(&config.MySQL)
		if err != nil {
			return nil, err
		}
		return NewGormStore(db), nil
	default:
		return nil, fmt.Errorf("unknown link store backend %q", config.Backend)
	}
}
