// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// After the file is read, DASH_* environment variables override individual
// fields (DASH_FEED_URL, DASH_HTTP_PORT, DASH_ARCHIVE_DB_PASSWORD, ...), and a
// .env file, when present, is loaded into the environment first.
package config
