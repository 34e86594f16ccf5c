// Package config defines the pipeline configuration surface and its
// YAML/environment loader.
package config

import (
	"time"

	"github.com/conveyor-ci/conveyor/domain"
	"github.com/conveyor-ci/conveyor/errors"
)

// Config is the root configuration for a conveyor pipeline.
type Config struct {
	// Checks configure the validation stage.
	Checks []CheckConfig `koanf:"checks"`

	// Exports configure the export stage.
	Exports []ExportConfig `koanf:"exports"`

	// PostProcess optionally configures the post-process stage.
	PostProcess *ToolConfig `koanf:"post_process"`

	// Artifacts selects and configures the artifact store backend.
	Artifacts ArtifactsConfig `koanf:"artifacts"`

	// Tags configures tag labeling and allocation.
	Tags TagsConfig `koanf:"tags"`

	// Publisher configures the release backend.
	Publisher PublisherConfig `koanf:"publisher"`

	// Images optionally configures the preview image host.
	Images ImagesConfig `koanf:"images"`

	// Logging configures structured log output.
	Logging LoggingConfig `koanf:"logging"`

	// ToolTimeout bounds each external tool invocation. Zero disables
	// the bound.
	ToolTimeout time.Duration `koanf:"tool_timeout"`
}

// ToolConfig describes one external tool invocation.
type ToolConfig struct {
	Name    string   `koanf:"name"`
	Program string   `koanf:"program"`
	Args    []string `koanf:"args"`
	Outputs []string `koanf:"outputs"`
}

// Invocation converts the tool configuration to its domain form.
func (t ToolConfig) Invocation() domain.ToolInvocation {
	return domain.ToolInvocation{
		Name:    t.Name,
		Program: t.Program,
		Args:    t.Args,
		Outputs: t.Outputs,
	}
}

// CheckConfig describes one validation check.
type CheckConfig struct {
	Tool ToolConfig `koanf:"tool"`

	// Kind selects the report parser (drc, unconnected, parity).
	Kind string `koanf:"kind"`

	// JSON switches the check to the structured JSON report format.
	JSON bool `koanf:"json"`
}

// ExportConfig describes one export job.
type ExportConfig struct {
	Tool ToolConfig `koanf:"tool"`

	// Category names the artifact category the outputs are stored under.
	Category string `koanf:"category"`
}

// ArtifactsConfig selects the artifact store backend.
type ArtifactsConfig struct {
	// Backend is "local" or "s3".
	Backend string `koanf:"backend"`

	// Root is the base directory for the local backend.
	Root string `koanf:"root"`

	// S3 configures the s3 backend.
	S3 S3Config `koanf:"s3"`
}

// S3Config holds the S3-compatible object store settings.
type S3Config struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	UseSSL    bool   `koanf:"use_ssl"`
	Bucket    string `koanf:"bucket"`
	Prefix    string `koanf:"prefix"`
}

// TagsConfig configures tag labeling and allocation.
type TagsConfig struct {
	// Prefix is the label prefix ("ci-build-").
	Prefix string `koanf:"prefix"`

	// Width is the zero-padded suffix width.
	Width int `koanf:"width"`

	// Retries bounds re-allocation after a lost reservation race.
	Retries int `koanf:"retries"`

	// Repo is the path of the git repository that holds tag history.
	// Empty selects the in-process store.
	Repo string `koanf:"repo"`
}

// PublisherConfig configures the GitHub release backend.
type PublisherConfig struct {
	Owner      string `koanf:"owner"`
	Repo       string `koanf:"repo"`
	Token      string `koanf:"token"`
	Draft      bool   `koanf:"draft"`
	Prerelease bool   `koanf:"prerelease"`
}

// ImagesConfig configures the preview image host. An empty endpoint
// disables image hosting.
type ImagesConfig struct {
	Endpoint string `koanf:"endpoint"`
	Token    string `koanf:"token"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `koanf:"level"`

	// Format is console or json.
	Format string `koanf:"format"`
}

// Validate checks the configuration for contradictions that would only
// surface mid-run otherwise.
func (c *Config) Validate() error {
	const op = "config.Validate"

	if len(c.Checks) == 0 {
		return errors.New(errors.CodeInvalidConfig, op, "at least one validation check is required")
	}
	for _, check := range c.Checks {
		if check.Tool.Program == "" {
			return errors.Newf(errors.CodeInvalidConfig, op,
				"check %q has no program", check.Tool.Name)
		}
	}
	for _, export := range c.Exports {
		if export.Tool.Program == "" {
			return errors.Newf(errors.CodeInvalidConfig, op,
				"export %q has no program", export.Tool.Name)
		}
		if export.Category == "" {
			return errors.Newf(errors.CodeInvalidConfig, op,
				"export %q has no category", export.Tool.Name)
		}
	}
	if c.PostProcess != nil && c.PostProcess.Program == "" {
		return errors.New(errors.CodeInvalidConfig, op, "post_process has no program")
	}

	switch c.Artifacts.Backend {
	case "local":
	case "s3":
		if c.Artifacts.S3.Endpoint == "" || c.Artifacts.S3.Bucket == "" {
			return errors.New(errors.CodeInvalidConfig, op,
				"s3 backend requires endpoint and bucket")
		}
	default:
		return errors.Newf(errors.CodeInvalidConfig, op,
			"unknown artifact backend %q", c.Artifacts.Backend)
	}

	if c.Tags.Width < 1 {
		return errors.Newf(errors.CodeInvalidConfig, op,
			"tag width %d is out of range", c.Tags.Width)
	}
	if c.Publisher.Owner == "" || c.Publisher.Repo == "" {
		return errors.New(errors.CodeInvalidConfig, op, "publisher requires owner and repo")
	}
	return nil
}
