package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conveyor-ci/conveyor/config"
	"github.com/conveyor-ci/conveyor/errors"
)

const minimalYAML = `
checks:
  - tool:
      name: drc
      program: kibot
      args: ["run_drc", "--rev", "{LONG_SHA}"]
    kind: drc
publisher:
  owner: acme
  repo: widget-board
`

func TestLoadBytesMinimal(t *testing.T) {
	cfg, err := config.LoadBytes([]byte(minimalYAML))
	require.NoError(t, err)

	require.Len(t, cfg.Checks, 1)
	assert.Equal(t, "drc", cfg.Checks[0].Tool.Name)
	assert.Equal(t, "kibot", cfg.Checks[0].Tool.Program)
	assert.Equal(t, "drc", cfg.Checks[0].Kind)

	// defaults fill everything the file left out
	assert.Equal(t, "local", cfg.Artifacts.Backend)
	assert.NotEmpty(t, cfg.Artifacts.Root)
	assert.Equal(t, "ci-build-", cfg.Tags.Prefix)
	assert.Equal(t, 4, cfg.Tags.Width)
	assert.Equal(t, 3, cfg.Tags.Retries)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadBytesFull(t *testing.T) {
	cfg, err := config.LoadBytes([]byte(`
checks:
  - tool: {name: drc, program: kibot}
    kind: drc
  - tool: {name: parity, program: kibot}
    kind: parity
    json: true
exports:
  - tool:
      name: gerbers
      program: kibot
      outputs: ["out/gerbers.zip"]
    category: fabrication
post_process:
  name: panelize
  program: kikit
artifacts:
  backend: s3
  s3:
    endpoint: minio.internal:9000
    bucket: conveyor
    prefix: boards
tags:
  prefix: rel-
  width: 5
publisher:
  owner: acme
  repo: widget-board
  draft: true
images:
  endpoint: https://img.example.com/upload
logging:
  level: debug
  format: json
`))
	require.NoError(t, err)

	assert.True(t, cfg.Checks[1].JSON)
	assert.Equal(t, "fabrication", cfg.Exports[0].Category)
	require.NotNil(t, cfg.PostProcess)
	assert.Equal(t, "kikit", cfg.PostProcess.Program)
	assert.Equal(t, "s3", cfg.Artifacts.Backend)
	assert.Equal(t, "conveyor", cfg.Artifacts.S3.Bucket)
	assert.Equal(t, "rel-", cfg.Tags.Prefix)
	assert.Equal(t, 5, cfg.Tags.Width)
	assert.True(t, cfg.Publisher.Draft)
	assert.Equal(t, "https://img.example.com/upload", cfg.Images.Endpoint)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("CONVEYOR_TAGS_PREFIX", "nightly-")
	t.Setenv("CONVEYOR_PUBLISHER_TOKEN", "ghp_secret")
	t.Setenv("CONVEYOR_LOGGING_LEVEL", "warn")

	cfg, err := config.LoadBytes([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "nightly-", cfg.Tags.Prefix)
	assert.Equal(t, "ghp_secret", cfg.Publisher.Token)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "no checks",
			yaml: `
publisher: {owner: acme, repo: widget-board}
`,
		},
		{
			name: "check without program",
			yaml: `
checks:
  - tool: {name: drc}
    kind: drc
publisher: {owner: acme, repo: widget-board}
`,
		},
		{
			name: "export without category",
			yaml: minimalYAML + `
exports:
  - tool: {name: gerbers, program: kibot}
`,
		},
		{
			name: "unknown artifact backend",
			yaml: minimalYAML + `
artifacts: {backend: ftp}
`,
		},
		{
			name: "s3 without endpoint",
			yaml: minimalYAML + `
artifacts: {backend: s3}
`,
		},
		{
			name: "publisher without repo",
			yaml: `
checks:
  - tool: {name: drc, program: kibot}
    kind: drc
publisher: {owner: acme}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadBytes([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.CodeInvalidConfig))
		})
	}
}

func TestInvocationConversion(t *testing.T) {
	tool := config.ToolConfig{
		Name:    "gerbers",
		Program: "kibot",
		Args:    []string{"export", "--rev", "{SHORT_SHA}"},
		Outputs: []string{"out/gerbers.zip"},
	}
	inv := tool.Invocation()
	assert.Equal(t, "gerbers", inv.Name)
	assert.Equal(t, []string{"export", "--rev", "{SHORT_SHA}"}, inv.Args)
	assert.Equal(t, []string{"out/gerbers.zip"}, inv.Outputs)
}
