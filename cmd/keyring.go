package cmd

import (
	"errors"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nicolad/nomadically.work/internal/secrets"
)

var keyringCmd = &cobra.Command{
	Use:   "keyring",
	Short: "Manage API keys stored in the OS keyring",
}

var keyringSetCmd = &cobra.Command{
	Use:   "set [ACCOUNT]",
	Short: "Store an API key in the OS keyring (default account is gemini)",
	Args:  cobra.MaximumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		logger, config := setup()

		account := config.AI.Gemini.KeyringAccount
		if len(args) == 1 {
			account = args[0]
		}

		secretPrompt := promptui.Prompt{
			Label: "API key for " + account,
			Mask:  '*',
			Validate: func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("key is empty")
				}
				return nil
			},
		}
		secret, err := secretPrompt.Run()
		if err != nil {
			logger.Fatal("reading the key", zap.Error(err))
		}

		if err := secrets.Store(account, secret); err != nil {
			logger.Fatal("storing the key", zap.Error(err))
		}
		logger.Info("key stored", zap.String("service", secrets.KeyringService), zap.String("account", account))
	},
}

func init() {
	keyringCmd.AddCommand(keyringSetCmd)
	rootCmd.AddCommand(keyringCmd)
}
