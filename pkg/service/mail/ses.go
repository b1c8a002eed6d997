package mail

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/m-mizutani/goerr/v2"
)

// SendEmailAPI is the SES v2 operation used by SESTransport. Tests supply a
// mock implementation via NewSESWithClient.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESConfig holds the credentials for the SES transport. Presence of these
// credentials is what selects SES as the active transport.
type SESConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string `masq:"secret"`
}

// Configured reports whether SES credentials are present.
func (x SESConfig) Configured() bool {
	return x.Region != "" && x.AccessKeyID != "" && x.SecretAccessKey != ""
}

// SESTransport delivers raw messages via the AWS SES v2 API. A failed send
// is final for the current invocation; no retry happens here.
type SESTransport struct {
	client SendEmailAPI
}

// NewSES builds an SESTransport from the given credentials.
func NewSES(ctx context.Context, cfg SESConfig) (*SESTransport, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load AWS config")
	}

	return &SESTransport{client: sesv2.NewFromConfig(awsCfg)}, nil
}

// NewSESWithClient builds an SESTransport with a custom client, for testing.
func NewSESWithClient(client SendEmailAPI) *SESTransport {
	return &SESTransport{client: client}
}

func (x *SESTransport) Send(ctx context.Context, raw []byte, from, to string) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Content: &sestypes.EmailContent{
			Raw: &sestypes.RawMessage{
				Data: raw,
			},
		},
	}

	if _, err := x.client.SendEmail(ctx, input); err != nil {
		return goerr.Wrap(err, "failed to send via SES", goerr.V("to", to))
	}
	return nil
}

func (x *SESTransport) Name() string {
	return "ses"
}
