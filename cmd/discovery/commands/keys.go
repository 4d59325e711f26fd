package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/scopeworks/discovery/auth"
	"github.com/scopeworks/discovery/errors"
)

// KeysCmd groups API key management operations.
var KeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys",
	Long: `keys — Manage API keys for the HTTP surface

The raw secret is printed exactly once at creation; only its hash is stored.

Examples:
  discovery keys create agent-1              # Key that never expires
  discovery keys create ci --expires 720h    # Key expiring in 30 days
  discovery keys ls                          # List registered keys
  discovery keys revoke <key-id>             # Deactivate a key`,
}

var keysCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Register a new API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysCreate,
}

var keysRevokeCmd = &cobra.Command{
	Use:   "revoke <key-id>",
	Short: "Deactivate an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysRevoke,
}

var keysLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List registered API keys",
	RunE:  runKeysLs,
}

var keysExpiresFlag time.Duration

func init() {
	keysCreateCmd.Flags().DurationVar(&keysExpiresFlag, "expires", 0, "Key lifetime (0 means never expires)")

	KeysCmd.AddCommand(keysCreateCmd)
	KeysCmd.AddCommand(keysRevokeCmd)
	KeysCmd.AddCommand(keysLsCmd)
}

func runKeysCreate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return errors.Wrap(err, "load configuration")
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	var expiresAt *time.Time
	if keysExpiresFlag > 0 {
		t := time.Now().Add(keysExpiresFlag)
		expiresAt = &t
	}

	key, secret, err := auth.NewStore(database).Create(context.Background(), args[0], expiresAt)
	if err != nil {
		return errors.Wrap(err, "create key")
	}

	fmt.Printf("Key created: %s (%s)\n", key.Name, key.ID)
	if key.ExpiresAt != nil {
		fmt.Printf("Expires:     %s\n", key.ExpiresAt.Format(time.RFC3339))
	}
	fmt.Printf("\nSecret (shown once, store it now):\n%s\n", secret)
	return nil
}

func runKeysRevoke(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return errors.Wrap(err, "load configuration")
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := auth.NewStore(database).Revoke(context.Background(), args[0]); err != nil {
		return errors.Wrap(err, "revoke key")
	}
	fmt.Printf("Key revoked: %s\n", args[0])
	return nil
}

func runKeysLs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return errors.Wrap(err, "load configuration")
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	keys, err := auth.NewStore(database).List(context.Background())
	if err != nil {
		return errors.Wrap(err, "list keys")
	}
	if len(keys) == 0 {
		fmt.Println("No keys registered")
		return nil
	}

	for _, key := range keys {
		state := "active"
		if !key.IsActive {
			state = "revoked"
		} else if key.ExpiresAt != nil && key.ExpiresAt.Before(time.Now()) {
			state = "expired"
		}
		expires := "never"
		if key.ExpiresAt != nil {
			expires = key.ExpiresAt.Format(time.RFC3339)
		}
		fmt.Printf("%s  %-20s %-8s created=%s expires=%s\n",
			key.ID, key.Name, state, key.CreatedAt.Format("2006-01-02"), expires)
	}
	return nil
}
