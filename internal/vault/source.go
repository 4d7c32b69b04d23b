package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/joho/godotenv"
)

// EnvSource reads credentials from the process environment, falling back
// to values parsed from .env files.
type EnvSource struct {
	dotenv map[string]string
	getenv func(string) string
}

// NewEnvSource parses the given .env files. Files that do not exist are
// skipped; earlier files win over later ones.
func NewEnvSource(files ...string) (*EnvSource, error) {
	vals := make(map[string]string)
	for _, f := range files {
		m, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		for k, v := range m {
			if _, seen := vals[k]; !seen {
				vals[k] = v
			}
		}
	}
	return &EnvSource{dotenv: vals, getenv: os.Getenv}, nil
}

func (s *EnvSource) Lookup(_ context.Context, name string) (string, bool, error) {
	if v := s.getenv(name); v != "" {
		return v, true, nil
	}
	v, ok := s.dotenv[name]
	return v, ok && v != "", nil
}

type secretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerSource reads credentials stored as plain-string secrets
// named prefix+name.
type SecretsManagerSource struct {
	client secretsAPI
	prefix string
	log    *slog.Logger
}

func NewSecretsManagerSource(client secretsAPI, prefix string, logger *slog.Logger) *SecretsManagerSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &SecretsManagerSource{client: client, prefix: prefix, log: logger}
}

func (s *SecretsManagerSource) Lookup(ctx context.Context, name string) (string, bool, error) {
	secretID := s.prefix + name
	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		var notFound *smtypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			s.log.DebugContext(ctx, "Secret not found", "secret_id", secretID)
			return "", false, nil
		}
		return "", false, fmt.Errorf("get secret %s: %w", secretID, err)
	}
	if result.SecretString == nil {
		return "", false, nil
	}
	s.log.InfoContext(ctx, "Loaded secret", "secret_id", secretID)
	return *result.SecretString, true, nil
}
