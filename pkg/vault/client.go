// Package vault implements the SecretProvider against Vault's HTTP API,
// authenticating via AppRole with a root-token fallback.
package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	stackbak "github.com/stackmeld/stackbak/pkg"
)

const (
	rootTokenFilename = "root-token"
	defaultAuthRole   = "management"
	requestTimeout    = 10 * time.Second
)

// Client reads per-service credentials from Vault's KV v2 store. All
// failures (not found, unauthorized, unreachable) are reported wrapped in
// stackbak.ErrSourceUnavailable so the orchestrator degrades the affected
// source to "skipped" instead of aborting the run.
type Client struct {
	http      *resty.Client
	configDir string
	authRole  string

	// token is cached for the lifetime of the client, one login per run.
	token string
}

var _ stackbak.SecretProvider = (*Client)(nil)

// New returns a Client for the Vault at address. configDir holds the
// approle credential files (approles/<role>/role-id, secret-id) and the
// root-token fallback.
func New(address string, configDir string) *Client {
	return &Client{
		http:      resty.New().SetBaseURL(address).SetTimeout(requestTimeout),
		configDir: configDir,
		authRole:  defaultAuthRole,
	}
}

type loginResponse struct {
	Auth struct {
		ClientToken string `json:"client_token"`
	} `json:"auth"`
}

type kvResponse struct {
	Data struct {
		Data map[string]string `json:"data"`
	} `json:"data"`
}

// GetSecret reads one field of the KV v2 secret at secret/data/<service>.
func (c *Client) GetSecret(service string, field string) (string, error) {
	token, err := c.clientToken()
	if err != nil {
		return "", fmt.Errorf("%w: vault auth: %v", stackbak.ErrSourceUnavailable, err)
	}

	var out kvResponse
	resp, err := c.http.R().
		SetHeader("X-Vault-Token", token).
		SetResult(&out).
		Get("/v1/secret/data/" + service)
	if err != nil {
		return "", fmt.Errorf("%w: vault unreachable: %v", stackbak.ErrSourceUnavailable, err)
	}
	switch {
	case resp.StatusCode() == 404:
		return "", fmt.Errorf("%w: no secret for service %q", stackbak.ErrSourceUnavailable, service)
	case resp.StatusCode() == 403:
		return "", fmt.Errorf("%w: unauthorized for service %q", stackbak.ErrSourceUnavailable, service)
	case resp.IsError():
		return "", fmt.Errorf("%w: vault returned %d for service %q", stackbak.ErrSourceUnavailable, resp.StatusCode(), service)
	}

	value, ok := out.Data.Data[field]
	if !ok || value == "" {
		return "", fmt.Errorf("%w: secret for %q has no field %q", stackbak.ErrSourceUnavailable, service, field)
	}
	return value, nil
}

func (c *Client) clientToken() (string, error) {
	if c.token != "" {
		return c.token, nil
	}

	if token, err := c.appRoleLogin(); err == nil {
		c.token = token
		return token, nil
	}

	// Fallback for stacks that never provisioned approles.
	raw, err := os.ReadFile(filepath.Join(c.configDir, rootTokenFilename))
	if err != nil {
		return "", fmt.Errorf("no approle credentials and no root token: %v", err)
	}
	c.token = strings.TrimSpace(string(raw))
	return c.token, nil
}

func (c *Client) appRoleLogin() (string, error) {
	approleDir := filepath.Join(c.configDir, "approles", c.authRole)
	roleID, err := readCredentialFile(filepath.Join(approleDir, "role-id"))
	if err != nil {
		return "", err
	}
	secretID, err := readCredentialFile(filepath.Join(approleDir, "secret-id"))
	if err != nil {
		return "", err
	}

	var out loginResponse
	resp, err := c.http.R().
		SetBody(map[string]string{"role_id": roleID, "secret_id": secretID}).
		SetResult(&out).
		Post("/v1/auth/approle/login")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("approle login returned %d", resp.StatusCode())
	}
	if out.Auth.ClientToken == "" {
		return "", fmt.Errorf("approle login returned no token")
	}
	return out.Auth.ClientToken, nil
}

func readCredentialFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
