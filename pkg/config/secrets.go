package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	gax "github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// secretAccessor is satisfied by the Secret Manager client.
type secretAccessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

// managedSecrets lists the settings that may be overridden from Secret Manager.
var managedSecrets = []string{"db_password", "jwt_secret", "salt"}

func applySecrets(ctx context.Context, cfg *Config) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("create secret manager client: %w", err)
	}
	defer client.Close() //nolint:errcheck

	return overrideFromSecrets(ctx, client, cfg)
}

func overrideFromSecrets(ctx context.Context, client secretAccessor, cfg *Config) error {
	for _, key := range managedSecrets {
		value, err := readSecret(ctx, client, cfg.ProjectID, cfg.Prefix, key)
		if err != nil {
			return err
		}
		if value == "" {
			continue
		}
		switch key {
		case "db_password":
			cfg.Database.Password = value
		case "jwt_secret":
			cfg.JWT.Secret = value
		case "salt":
			cfg.Salt = value
		}
	}
	return nil
}

// SecretName builds the fully qualified name of the latest version of a secret.
func SecretName(projectID, prefix, key string) string {
	id := key
	if prefix != "" {
		id = prefix + "_" + key
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", projectID, id)
}

func readSecret(ctx context.Context, client secretAccessor, projectID, prefix, key string) (string, error) {
	resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: SecretName(projectID, prefix, key),
	})
	if status.Code(err) == codes.NotFound {
		// missing secret keeps the value from the environment
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("access secret %s: %w", key, err)
	}
	if resp.GetPayload() == nil {
		return "", nil
	}
	return strings.TrimSpace(string(resp.GetPayload().GetData())), nil
}
