// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/cardinalhq/tracemap/internal/catalog"
	"github.com/cardinalhq/tracemap/internal/filestore"
	"github.com/cardinalhq/tracemap/internal/period"
	"github.com/cardinalhq/tracemap/internal/pipeline"
	"github.com/cardinalhq/tracemap/internal/publish"
	"github.com/cardinalhq/tracemap/internal/reducer"
)

// Config aggregates configuration for the application.
// Each field is owned by its respective package.
type Config struct {
	Product      string                   `mapstructure:"product"`
	Source       SourceConfig             `mapstructure:"source"`
	Destinations []filestore.Location     `mapstructure:"destinations"`
	FTP          filestore.FTPCredentials `mapstructure:"ftp"`
	Ledger       LedgerConfig             `mapstructure:"ledger"`
	Policy       reducer.Policy           `mapstructure:"policy"`
	Schedule     ScheduleConfig           `mapstructure:"schedule"`
	Server       ServerConfig             `mapstructure:"server"`
	Workers      int                      `mapstructure:"workers"`
	IOTimeout    time.Duration            `mapstructure:"io_timeout"`
	// Snapshot overrides the product's dated-copy policy when set.
	Snapshot string `mapstructure:"snapshot"`
}

// SourceConfig is where uploads are read from and how they are laid out.
type SourceConfig struct {
	filestore.Location `mapstructure:",squash"`
	Catalog            catalog.Config `mapstructure:",squash"`
}

type LedgerBackend string

const (
	LedgerMemory   LedgerBackend = "memory"
	LedgerSQLite   LedgerBackend = "sqlite"
	LedgerPostgres LedgerBackend = "postgres"
)

type LedgerConfig struct {
	Backend LedgerBackend `mapstructure:"backend"`
	// Path is the sqlite database file.
	Path string `mapstructure:"path"`
	// URL is the Postgres connection string. When empty it is assembled
	// from LEDGER_DB_* variables.
	URL string `mapstructure:"url"`
	// Lock takes a per-period lease before running. Postgres only.
	Lock bool `mapstructure:"lock"`
}

type ScheduleConfig struct {
	Timezone    string `mapstructure:"timezone"`
	CutoverHour int    `mapstructure:"cutover_hour"`
	CatchUpDays int    `mapstructure:"catch_up_days"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Product: pipeline.DailyTracks.Name,
		Source: SourceConfig{
			Location: filestore.Location{Kind: filestore.KindFTP},
			Catalog:  catalog.Config{Layout: catalog.LayoutModTime},
		},
		Ledger: LedgerConfig{Backend: LedgerSQLite, Path: "tracemap-ledger.db"},
		Policy: reducer.DefaultPolicy(),
		Schedule: ScheduleConfig{
			Timezone:    "Europe/Paris",
			CutoverHour: 17,
			CatchUpDays: 15,
		},
		Server:    ServerConfig{Port: 8080},
		Workers:   1,
		IOTimeout: 2 * time.Minute,
	}
}

// legacyEnv maps keys to the variable names older deployments set.
var legacyEnv = map[string]string{
	"ftp.server":   "FTP_SERVER_NAME",
	"ftp.login":    "FTP_LOGIN",
	"ftp.password": "FTP_PASSWORD",
}

// Load reads configuration from files and environment variables.
// Environment variables use the prefix "TRACEMAP" and the dot character
// in keys is replaced by an underscore. For example, "schedule.timezone"
// becomes "TRACEMAP_SCHEDULE_TIMEZONE".
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit configuration file. An empty path
// searches for config.yaml in the working directory and /app/config.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/app/config")
	}
	v.SetEnvPrefix("TRACEMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)
	for key, env := range legacyEnv {
		_ = v.BindEnv(key, "TRACEMAP_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: read config: %w", pipeline.ErrConfiguration, err)
		}
	}

	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		stringToLocationHook,
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, fmt.Errorf("%w: %w", pipeline.ErrConfiguration, err)
	}
	return cfg, nil
}

// stringToLocationHook decodes the compact "kind:root" form.
func stringToLocationHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(filestore.Location{}) {
		return data, nil
	}
	return filestore.ParseLocation(data.(string))
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		name, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" && opts != "squash" {
			name = strings.ToLower(f.Name)
		}
		key := parts
		if name != "" {
			key = append(append([]string{}, parts...), name)
		}
		if f.Type.Kind() == reflect.Struct && f.Type != reflect.TypeOf(time.Time{}) {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}

// Validate checks everything that can be checked before any I/O.
func (c *Config) Validate() error {
	var errs []error
	if _, err := pipeline.LookupProduct(c.Product); err != nil {
		errs = append(errs, err)
	}
	if err := checkLocation("source", c.Source.Location, c.FTP); err != nil {
		errs = append(errs, err)
	}
	if c.Source.Catalog.Layout != catalog.LayoutModTime && c.Source.Catalog.Layout != catalog.LayoutPrefix {
		errs = append(errs, fmt.Errorf("unknown source layout %q", c.Source.Catalog.Layout))
	}
	if len(c.Destinations) == 0 {
		errs = append(errs, errors.New("no destinations configured"))
	}
	for i, d := range c.Destinations {
		if err := checkLocation(fmt.Sprintf("destinations[%d]", i), d, c.FTP); err != nil {
			errs = append(errs, err)
		}
	}
	switch c.Ledger.Backend {
	case LedgerMemory, LedgerPostgres:
	case LedgerSQLite:
		if c.Ledger.Path == "" {
			errs = append(errs, errors.New("sqlite ledger needs a path"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ledger backend %q", c.Ledger.Backend))
	}
	if c.Ledger.Lock && c.Ledger.Backend != LedgerPostgres {
		errs = append(errs, errors.New("ledger.lock requires the postgres backend"))
	}
	if err := c.Policy.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Schedule.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.Schedule.CutoverHour < 0 || c.Schedule.CutoverHour > 23 {
		errs = append(errs, fmt.Errorf("cutover_hour must be within 0-23, got %d", c.Schedule.CutoverHour))
	}
	if c.Schedule.CatchUpDays < 0 {
		errs = append(errs, fmt.Errorf("catch_up_days must not be negative, got %d", c.Schedule.CatchUpDays))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.IOTimeout < 0 {
		errs = append(errs, fmt.Errorf("io_timeout must not be negative, got %s", c.IOTimeout))
	}
	if c.Snapshot != "" {
		if _, err := publish.ParseSnapshotPolicy(c.Snapshot); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", pipeline.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

func checkLocation(what string, loc filestore.Location, ftp filestore.FTPCredentials) error {
	switch loc.Kind {
	case filestore.KindFTP:
		if ftp.Server == "" {
			return fmt.Errorf("%s: ftp needs FTP_SERVER_NAME", what)
		}
	case filestore.KindLocal:
		if loc.Root == "" {
			return fmt.Errorf("%s: local location needs a root", what)
		}
	case filestore.KindBucket:
		if loc.Profile == "" {
			return fmt.Errorf("%s: bucket location needs a storage profile", what)
		}
	default:
		return fmt.Errorf("%s: %w %q", what, filestore.ErrUnknownKind, loc.Kind)
	}
	return nil
}

// Location resolves the schedule's timezone.
func (s ScheduleConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// ResolveProduct looks up name, or the configured product when name is
// empty, and applies the snapshot override.
func (c *Config) ResolveProduct(name string) (pipeline.Product, error) {
	if name == "" {
		name = c.Product
	}
	p, err := pipeline.LookupProduct(name)
	if err != nil {
		return pipeline.Product{}, err
	}
	if c.Snapshot != "" {
		sp, err := publish.ParseSnapshotPolicy(c.Snapshot)
		if err != nil {
			return pipeline.Product{}, fmt.Errorf("%w: %w", pipeline.ErrConfiguration, err)
		}
		p.Snapshot = sp
	}
	return p, nil
}

// TargetPeriod parses s for the product, or picks the default period at
// now when s is empty.
func (c *Config) TargetPeriod(p pipeline.Product, s string, now time.Time) (period.Period, error) {
	loc, err := c.Schedule.Location()
	if err != nil {
		return period.Period{}, fmt.Errorf("%w: %w", pipeline.ErrConfiguration, err)
	}
	if s == "" {
		return period.Default(p.Kind, now.In(loc), c.Schedule.CutoverHour), nil
	}
	t, err := period.Parse(p.Kind, s, loc)
	if err != nil {
		return period.Period{}, fmt.Errorf("%w: %w", pipeline.ErrConfiguration, err)
	}
	return t, nil
}
