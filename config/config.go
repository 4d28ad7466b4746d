package config

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/BlobEmoji/Artemis/model"
)

const (
	dayLayout            = "2006-01-02"
	defaultMaxFetchBytes = 64 << 20
)

// Config is the loaded, validated configuration. It is read-only after Load.
type Config = model.Config

// Load reads the configuration file at path (or ./config.yaml when empty),
// applies ARTEMIS_* environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix("ARTEMIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		dayToString,
	))
	if err := v.Unmarshal(&cfg, hooks); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := normalize(&cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "./data")
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "./data/artemis.db")
	v.SetDefault("discord.embed_color", 0xF2B252)
	v.SetDefault("event.name", "Drawfest")
	v.SetDefault("event.slug", "drawfest")
	v.SetDefault("event.timezone", "UTC")
	v.SetDefault("event.days_per_prompt", 1)
	v.SetDefault("event.role_requirement", 1)
	v.SetDefault("mirror.max_attachment_bytes", 8<<20)
	v.SetDefault("mirror.max_fetch_bytes", defaultMaxFetchBytes)
	v.SetDefault("mirror.request_timeout", 30*time.Second)
	v.SetDefault("statistics.request_timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Keys without a default are invisible to AutomaticEnv during Unmarshal.
	for _, key := range []string{
		"token",
		"discord.guild_id", "discord.submission_channel_id", "discord.queue_channel_id",
		"discord.gallery_channel_id", "discord.event_role_id",
		"mirror.backend", "mirror.endpoint", "mirror.authorization",
		"mirror.supabase_url", "mirror.supabase_key", "mirror.bucket",
		"statistics.endpoint", "statistics.authorization",
		"http.addr",
	} {
		v.SetDefault(key, "")
	}
}

func normalize(cfg *Config) error {
	cfg.Token = strings.TrimSpace(cfg.Token)
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	cfg.Mirror.Backend = strings.ToLower(strings.TrimSpace(cfg.Mirror.Backend))
	cfg.Statistics.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.Statistics.Endpoint), "/")

	loc, err := time.LoadLocation(cfg.Event.TimeZone)
	if err != nil {
		return fmt.Errorf("event.timezone: %w", err)
	}
	cfg.Event.Location = loc

	if cfg.Event.StartDay, err = parseDay("event.start_day", cfg.Event.Start, loc); err != nil {
		return err
	}
	if cfg.Event.EndDay, err = parseDay("event.end_day", cfg.Event.End, loc); err != nil {
		return err
	}
	return nil
}

func parseDay(field, value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%s is required", field)
	}
	day, err := time.ParseInLocation(dayLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", field, err)
	}
	return day, nil
}

// Validate checks the invariants the rest of the bot relies on.
func Validate(cfg *Config) error {
	var errs []error
	required := map[string]string{
		"discord.guild_id":              cfg.Discord.GuildID,
		"discord.submission_channel_id": cfg.Discord.SubmissionChannelID,
		"discord.queue_channel_id":      cfg.Discord.QueueChannelID,
		"discord.gallery_channel_id":    cfg.Discord.GalleryChannelID,
		"discord.event_role_id":         cfg.Discord.EventRoleID,
	}
	for _, field := range slices.Sorted(maps.Keys(required)) {
		if strings.TrimSpace(required[field]) == "" {
			errs = append(errs, fmt.Errorf("%s is required", field))
		}
	}

	ev := cfg.Event
	if len(ev.Prompts) == 0 {
		errs = append(errs, errors.New("event.prompts must not be empty"))
	}
	if ev.DaysPerPrompt <= 0 {
		errs = append(errs, errors.New("event.days_per_prompt must be positive"))
	}
	if ev.RoleRequirement <= 0 {
		errs = append(errs, errors.New("event.role_requirement must be positive"))
	}
	if ev.EndDay.Before(ev.StartDay) {
		errs = append(errs, errors.New("event.end_day must not be before event.start_day"))
	}

	switch cfg.Database.Driver {
	case "sqlite3", "pgx":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported (sqlite3, pgx)", cfg.Database.Driver))
	}

	switch cfg.Mirror.Backend {
	case "":
	case "cdn":
		if cfg.Mirror.Endpoint == "" {
			errs = append(errs, errors.New("mirror.endpoint is required for the cdn backend"))
		}
	case "supabase":
		if cfg.Mirror.SupabaseURL == "" || cfg.Mirror.Bucket == "" {
			errs = append(errs, errors.New("mirror.supabase_url and mirror.bucket are required for the supabase backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("mirror.backend %q is not supported (cdn, supabase)", cfg.Mirror.Backend))
	}

	return errors.Join(errs...)
}

// dayToString lets unquoted YAML dates (decoded as time.Time) land in the
// string day fields.
func dayToString(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if t, ok := data.(time.Time); ok && to.Kind() == reflect.String {
		return t.Format(dayLayout), nil
	}
	return data, nil
}
