package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// ErrEmptySecret is returned when a credential source yields an empty key
var ErrEmptySecret = errors.New("API key is empty")

// Provider supplies the geolocation API key of a run
type Provider interface {
	// APIKey returns the key, or an error if it cannot be obtained
	APIKey(ctx context.Context) (string, error)

	// Close releases the underlying client
	Close() error
}

// StaticProvider returns a key fixed at construction (environment, flag)
type StaticProvider struct {
	key string
}

// NewStaticProvider creates a provider for a known key
func NewStaticProvider(key string) *StaticProvider {
	return &StaticProvider{key: key}
}

// APIKey implements the Provider interface
func (p *StaticProvider) APIKey(ctx context.Context) (string, error) {
	key := strings.TrimSpace(p.key)
	if key == "" {
		return "", ErrEmptySecret
	}
	return key, nil
}

// Close implements the Provider interface
func (p *StaticProvider) Close() error {
	return nil
}

// SecretVersionName builds the resource name of a secret version
// Example: projects/my-project/secrets/ipgeolocation-api-key/versions/latest
func SecretVersionName(project, secret, version string) string {
	if version == "" {
		version = "latest"
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", project, secret, version)
}

// accessFunc fetches the raw payload of a secret version
type accessFunc func(ctx context.Context, name string) ([]byte, error)

// SecretManagerProvider reads the key from Google Secret Manager
// The secret is read on every call, so a rotated key is picked up by the next run
type SecretManagerProvider struct {
	client *secretmanager.Client
	name   string
	access accessFunc
}

// NewSecretManagerProvider creates a provider using Application Default Credentials
//
// Parameters:
//   - project: GCP project ID
//   - secret: secret name (e.g., "ipgeolocation-api-key")
//   - version: secret version ("latest" when empty)
func NewSecretManagerProvider(ctx context.Context, project, secret, version string) (*SecretManagerProvider, error) {
	if project == "" || secret == "" {
		return nil, fmt.Errorf("secret manager requires a project and a secret name")
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}

	p := &SecretManagerProvider{
		client: client,
		name:   SecretVersionName(project, secret, version),
	}
	p.access = p.accessVersion

	return p, nil
}

func (p *SecretManagerProvider) accessVersion(ctx context.Context, name string) ([]byte, error) {
	resp, err := p.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		return nil, err
	}
	return resp.GetPayload().GetData(), nil
}

// APIKey implements the Provider interface
func (p *SecretManagerProvider) APIKey(ctx context.Context) (string, error) {
	data, err := p.access(ctx, p.name)
	if err != nil {
		return "", fmt.Errorf("failed to access secret %s: %w", p.name, err)
	}

	// Secrets created with `echo` carry a trailing newline
	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", fmt.Errorf("secret %s: %w", p.name, ErrEmptySecret)
	}

	return key, nil
}

// Name returns the secret version resource name
func (p *SecretManagerProvider) Name() string {
	return p.name
}

// Close closes the Secret Manager client
func (p *SecretManagerProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
