package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/richxcame/account-onboarding/pkg/config"
)

type awsBackend struct {
	client *secretsmanager.Client
}

func newAWSBackend(ctx context.Context, cfg config.SecretsConfig) (*awsBackend, error) {
	if cfg.AWSRegion == "" {
		return nil, errors.New("secrets: aws needs AWS_REGION")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if cfg.AWSProfile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.AWSProfile))
	}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		static := credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, "")
		opts = append(opts, awsconfig.WithCredentialsProvider(aws.NewCredentialsCache(static)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("secrets: load aws config: %w", err)
	}

	client := secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		if cfg.AWSEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpoint)
		}
	})
	return &awsBackend{client: client}, nil
}

func (a *awsBackend) Name() Provider { return ProviderAWS }

func (a *awsBackend) Close() error { return nil }

func (a *awsBackend) Fetch(ctx context.Context, ref Reference) (Secret, error) {
	input := &secretsmanager.GetSecretValueInput{SecretId: aws.String(ref.Path)}
	if ref.Version != "" {
		input.VersionId = aws.String(ref.Version)
	}

	out, err := a.client.GetSecretValue(ctx, input)
	if err != nil {
		return Secret{}, fmt.Errorf("secrets: aws read %s: %w", ref.Path, err)
	}

	secret := Secret{Data: decodePayload([]byte(aws.ToString(out.SecretString)))}
	secret.Version = aws.ToString(out.VersionId)
	if out.CreatedDate != nil {
		secret.UpdatedAt = *out.CreatedDate
	}
	return secret, nil
}
