package config

import (
	"fmt"
	"strings"
)

// AuthConfig holds the static API keys. The admin key grants the admin role,
// the public key grants the user role.
type AuthConfig struct {
	AdminKey  string `koanf:"adminkey"`
	PublicKey string `koanf:"publickey"`
}

// String returns a string representation of the auth configuration with keys masked.
func (c *AuthConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Auth ---\n")
	b.WriteString(fmt.Sprintf("  adminkey: %s\n", maskSecret(c.AdminKey)))
	b.WriteString(fmt.Sprintf("  publickey: %s\n", maskSecret(c.PublicKey)))
	return b.String()
}

func (c *AuthConfig) Validate() error {
	if c.AdminKey == "" {
		return fmt.Errorf("auth.adminkey is not configured")
	}
	if c.PublicKey == "" {
		return fmt.Errorf("auth.publickey is not configured")
	}
	if c.AdminKey == c.PublicKey {
		return fmt.Errorf("auth.adminkey and auth.publickey must differ")
	}
	return nil
}
