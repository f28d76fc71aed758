// Package config handles application configuration loading and validation.
//
// Configuration is loaded from gtfs-transformer.yml (or config.yml) and
// validated using struct tags. Unset fields take defaults: the compact_ids
// strategy, info level text logs and the us-east-1 S3 region.
package config
