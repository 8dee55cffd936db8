package vault

import (
	"fmt"

	"curator-go/internal/config"
	"curator-go/internal/curator"
)

// NewVaultFromConfig creates an ArchiveVault implementation based on the
// vault config type. Type "none" returns nil: exports then stay on local
// disk only.
func NewVaultFromConfig(cfg config.VaultConfig) (curator.ArchiveVault, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryVault(cfg.Name), nil
	case "filesystem":
		if cfg.FSVaultRoot == "" {
			return nil, fmt.Errorf("filesystem vault requires fs_vault_root to be set")
		}
		return NewFileSystemVault(cfg.Name, cfg.FSVaultRoot)
	case "s3":
		return NewS3Vault(cfg)
	default:
		return nil, fmt.Errorf("unknown vault type: %s", cfg.Type)
	}
}
