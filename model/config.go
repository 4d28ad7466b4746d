package model

import "time"

// Config mirrors the top level of config.yaml.
type Config struct {
	Token      string     `mapstructure:"token"`
	DataDir    string     `mapstructure:"data_dir"`
	Database   Database   `mapstructure:"database"`
	Discord    Discord    `mapstructure:"discord"`
	Event      Event      `mapstructure:"event"`
	Mirror     Mirror     `mapstructure:"mirror"`
	Statistics Statistics `mapstructure:"statistics"`
	HTTP       HTTP       `mapstructure:"http"`
	Log        Log        `mapstructure:"log"`
}

// Database is the "database" section.
type Database struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Discord is the "discord" section.
type Discord struct {
	GuildID             string `mapstructure:"guild_id"`
	SubmissionChannelID string `mapstructure:"submission_channel_id"`
	QueueChannelID      string `mapstructure:"queue_channel_id"`
	GalleryChannelID    string `mapstructure:"gallery_channel_id"`
	EventRoleID         string `mapstructure:"event_role_id"`
	EmbedColor          int    `mapstructure:"embed_color"`
}

// Event is the "event" section. StartDay, EndDay and Location are filled in by
// config.Load from the raw strings.
type Event struct {
	Name            string   `mapstructure:"name"`
	Slug            string   `mapstructure:"slug"`
	Start           string   `mapstructure:"start_day"`
	End             string   `mapstructure:"end_day"`
	TimeZone        string   `mapstructure:"timezone"`
	DaysPerPrompt   int      `mapstructure:"days_per_prompt"`
	RoleRequirement int      `mapstructure:"role_requirement"`
	Prompts         []string `mapstructure:"prompts"`

	StartDay time.Time      `mapstructure:"-"`
	EndDay   time.Time      `mapstructure:"-"`
	Location *time.Location `mapstructure:"-"`
}

// Mirror is the "mirror" section.
type Mirror struct {
	Backend            string        `mapstructure:"backend"`
	Endpoint           string        `mapstructure:"endpoint"`
	Authorization      string        `mapstructure:"authorization"`
	SupabaseURL        string        `mapstructure:"supabase_url"`
	SupabaseKey        string        `mapstructure:"supabase_key"`
	Bucket             string        `mapstructure:"bucket"`
	MaxAttachmentBytes int64         `mapstructure:"max_attachment_bytes"`
	MaxFetchBytes      int64         `mapstructure:"max_fetch_bytes"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
}

// Statistics is the "statistics" section.
type Statistics struct {
	Endpoint       string        `mapstructure:"endpoint"`
	Authorization  string        `mapstructure:"authorization"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// HTTP is the "http" section. An empty Addr disables the ops server.
type HTTP struct {
	Addr string `mapstructure:"addr"`
}

// Log is the "log" section.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
