package config

// DatabaseConfig selects the SQL sink
type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"omitempty,oneof=sqlite pgx"`
	DSN    string `yaml:"dsn" validate:"required_with=Driver"`
}

// OutputConfig describes where the transformed feed goes
type OutputConfig struct {
	Path     string         `yaml:"path"` // .zip for GTFS, .gob for a snapshot
	Database DatabaseConfig `yaml:"database"`
}

// LoggingConfig contains logger settings
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// S3Config contains object storage settings for s3:// locations
type S3Config struct {
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint" validate:"omitempty,url"`
	PathStyle       bool   `yaml:"pathStyle"`
	AccessKeyID     string `yaml:"accessKeyID" validate:"required_with=SecretAccessKey"`
	SecretAccessKey string `yaml:"secretAccessKey" validate:"required_with=AccessKeyID"`
}

// MetricsConfig contains metrics export settings
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Input           string        `yaml:"input"`
	Output          OutputConfig  `yaml:"output"`
	DefaultAgencyID string        `yaml:"defaultAgencyID"`
	Strategies      []string      `yaml:"strategies" validate:"dive,required"`
	Logging         LoggingConfig `yaml:"logging"`
	S3              S3Config      `yaml:"s3"`
	Metrics         MetricsConfig `yaml:"metrics"`
}
