package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/streamgrab/streamgrab/internal/config"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print the auth token used by the streamgrab server",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := ensureAuthToken()
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

// ensureAuthToken returns the server token, creating it on first use.
func ensureAuthToken() (string, error) {
	path := filepath.Join(config.GetAppDir(), "token")
	if data, err := os.ReadFile(path); err == nil {
		if token := strings.TrimSpace(string(data)); token != "" {
			return token, nil
		}
	}

	token := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("failed to write token file: %w", err)
	}
	return token, nil
}
