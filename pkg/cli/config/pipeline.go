package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	domainConfig "github.com/secmon-lab/askemail/pkg/domain/model/config"
	"github.com/urfave/cli/v3"
)

// Pipeline holds CLI flags for the pipeline budgets and the reply identity.
// An optional TOML file can override the budgets and replace the supported
// attachment type set; explicit flags win over the file.
type Pipeline struct {
	configPath         string
	maxAttachmentBytes int
	maxRepliesPerDay   int
	fromAddress        string
	fromName           string
}

// pipelineFile is the TOML representation of the pipeline configuration
type pipelineFile struct {
	MaxAttachmentBytes int      `toml:"max_attachment_bytes"`
	MaxRepliesPerDay   int      `toml:"max_replies_per_day"`
	SupportedMIMETypes []string `toml:"supported_mime_types"`
}

// Flags returns CLI flags for pipeline configuration
func (p *Pipeline) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "Path to a TOML file overriding budgets and supported attachment types",
			Sources:     cli.EnvVars("ASKEMAIL_CONFIG"),
			Destination: &p.configPath,
		},
		&cli.IntFlag{
			Name:        "max-attachment-bytes",
			Usage:       "Per-email attachment size budget in bytes",
			Value:       domainConfig.DefaultMaxAttachmentBytes,
			Sources:     cli.EnvVars("ASKEMAIL_MAX_ATTACHMENT_BYTES"),
			Destination: &p.maxAttachmentBytes,
		},
		&cli.IntFlag{
			Name:        "max-replies-per-day",
			Usage:       "Maximum replies per sender per UTC day",
			Value:       domainConfig.DefaultMaxRepliesPerDay,
			Sources:     cli.EnvVars("ASKEMAIL_MAX_REPLIES_PER_DAY"),
			Destination: &p.maxRepliesPerDay,
		},
		&cli.StringFlag{
			Name:        "from-address",
			Usage:       "Address the replies are sent from",
			Required:    true,
			Sources:     cli.EnvVars("ASKEMAIL_FROM_ADDRESS"),
			Destination: &p.fromAddress,
		},
		&cli.StringFlag{
			Name:        "from-name",
			Usage:       "Display name the replies are sent from",
			Value:       "AskEmail",
			Sources:     cli.EnvVars("ASKEMAIL_FROM_NAME"),
			Destination: &p.fromName,
		},
	}
}

// Configure builds the immutable pipeline configuration threaded through
// every invocation.
func (p *Pipeline) Configure(c *cli.Command) (*domainConfig.Pipeline, error) {
	cfg := domainConfig.NewPipeline()

	if p.configPath != "" {
		data, err := os.ReadFile(p.configPath)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read config file", goerr.V("path", p.configPath))
		}

		var file pipelineFile
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, goerr.Wrap(err, "failed to parse config file", goerr.V("path", p.configPath))
		}

		if file.MaxAttachmentBytes > 0 {
			cfg.MaxAttachmentBytes = file.MaxAttachmentBytes
		}
		if file.MaxRepliesPerDay > 0 {
			cfg.MaxRepliesPerDay = int64(file.MaxRepliesPerDay)
		}
		if len(file.SupportedMIMETypes) > 0 {
			supported := make(map[string]bool, len(file.SupportedMIMETypes))
			for _, t := range file.SupportedMIMETypes {
				supported[t] = true
			}
			cfg.SupportedMIMETypes = supported
		}
	}

	if p.configPath == "" || c.IsSet("max-attachment-bytes") {
		cfg.MaxAttachmentBytes = p.maxAttachmentBytes
	}
	if p.configPath == "" || c.IsSet("max-replies-per-day") {
		cfg.MaxRepliesPerDay = int64(p.maxRepliesPerDay)
	}

	cfg.FromAddress = p.fromAddress
	cfg.FromName = p.fromName

	if cfg.MaxAttachmentBytes <= 0 {
		return nil, goerr.New("max-attachment-bytes must be positive", goerr.V("value", cfg.MaxAttachmentBytes))
	}
	if cfg.MaxRepliesPerDay <= 0 {
		return nil, goerr.New("max-replies-per-day must be positive", goerr.V("value", cfg.MaxRepliesPerDay))
	}

	return cfg, nil
}
