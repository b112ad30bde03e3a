// Package app loads the bot configuration and wires the services into the
// Telegram runtime.
package app

import (
	"errors"
	"fmt"
	"strings"

	coreconfig "github.com/m3rciful/orderbot/core/config"
	coredatabase "github.com/m3rciful/orderbot/core/database"
	"github.com/m3rciful/orderbot/internal/catalog"
	"github.com/m3rciful/orderbot/internal/notify"
)

// OrdersConfig locates the group chat and its topics.
type OrdersConfig struct {
	GroupChatID int64          `yaml:"group_chat_id" envconfig:"GROUP_CHAT_ID"`
	Threads     notify.Threads `yaml:"threads"`
	// KitchenCategoryLimit is the category id below which items without a
	// source belong to the kitchen.
	KitchenCategoryLimit int `yaml:"kitchen_category_limit" envconfig:"KITCHEN_CATEGORY_LIMIT"`
	// Subcategories fixes the reply keyboard of each lane. Lanes left out
	// list the sub-categories found in the catalog.
	Subcategories map[catalog.Lane][]string `yaml:"subcategories" ignored:"true"`
}

// CatalogConfig points at the JSON catalog files.
type CatalogConfig struct {
	Dir string `yaml:"dir" envconfig:"DATA_DIR"`
}

// DatabaseConfig enables the order journal.
type DatabaseConfig struct {
	Enabled             bool `yaml:"enabled" envconfig:"DB_ENABLED"`
	coredatabase.Config `yaml:",inline"`
	MigrationsDir       string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
	// JournalBuffer bounds the transitions waiting to be written.
	JournalBuffer int `yaml:"journal_buffer" envconfig:"DB_JOURNAL_BUFFER"`
}

// Config is the full bot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Orders   OrdersConfig   `yaml:"orders"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Database DatabaseConfig `yaml:"database"`
}

// CoreConfig exposes the embedded core section.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

const (
	defaultDataDir       = "data"
	defaultMigrationsDir = "migrations"
)

// LoadConfig reads path, applies environment overrides and validates the
// result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.LoadInto(path, &cfg); err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	if c.Orders.GroupChatID == 0 {
		return errors.New("orders.group_chat_id is required")
	}
	threads := []struct {
		name string
		id   int
	}{
		{"kitchen", c.Orders.Threads.Kitchen},
		{"bar", c.Orders.Threads.Bar},
		{"manager", c.Orders.Threads.Manager},
		{"dispatcher", c.Orders.Threads.Dispatcher},
		{"processing", c.Orders.Threads.Processing},
		{"completed", c.Orders.Threads.Completed},
	}
	for _, th := range threads {
		if th.id <= 0 {
			return fmt.Errorf("orders.threads.%s must be > 0", th.name)
		}
	}
	if c.Orders.Threads.Admin < 0 {
		return errors.New("orders.threads.admin must be >= 0")
	}
	if c.Orders.KitchenCategoryLimit <= 0 {
		c.Orders.KitchenCategoryLimit = catalog.DefaultKitchenThreshold
	}

	subs := make(map[catalog.Lane][]string, len(c.Orders.Subcategories))
	for lane, names := range c.Orders.Subcategories {
		key := catalog.Lane(strings.ToLower(strings.TrimSpace(string(lane))))
		if key != catalog.LaneKitchen && key != catalog.LaneBar {
			return fmt.Errorf("invalid orders.subcategories lane %q; allowed: kitchen, bar", lane)
		}
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				subs[key] = append(subs[key], n)
			}
		}
	}
	c.Orders.Subcategories = subs

	c.Catalog.Dir = strings.TrimSpace(c.Catalog.Dir)
	if c.Catalog.Dir == "" {
		c.Catalog.Dir = defaultDataDir
	}

	if !c.Database.Enabled {
		return nil
	}
	if c.Database.Host == "" || c.Database.Name == "" {
		return errors.New("database.host and database.name are required when database.enabled is true")
	}
	if c.Database.Port == "" {
		c.Database.Port = "5432"
	}
	if c.Database.MigrationsDir == "" {
		c.Database.MigrationsDir = defaultMigrationsDir
	}
	return nil
}

// DatabaseSettings returns the connection settings, or nil when the journal
// is disabled.
func (c *Config) DatabaseSettings() *coredatabase.Config {
	if !c.Database.Enabled {
		return nil
	}
	db := c.Database.Config
	return &db
}
