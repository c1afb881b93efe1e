package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/youmna-rabie/mcp-relay/internal/config"
	"github.com/youmna-rabie/mcp-relay/internal/signature"
)

var signSecret string

func init() {
	signCmd.Flags().StringVar(&signSecret, "secret", "", "signing secret (defaults to the configured MCP secret)")
	rootCmd.AddCommand(signCmd)
}

var signCmd = &cobra.Command{
	Use:   "sign [file]",
	Short: "Print the MCP-Signature header value for a payload",
	Long:  "Reads a payload from file, or stdin when no file is given, and prints the signature MCP would send for it.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  signPayload,
}

func signPayload(cmd *cobra.Command, args []string) error {
	secret := signSecret
	if secret == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		secret = cfg.MCP.SigningSecret
	}
	if secret == "" {
		return fmt.Errorf("no signing secret: pass --secret or set MCP_SIGNING_SECRET")
	}

	body, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	sig, err := signature.Compute(body, secret)
	if err != nil {
		return fmt.Errorf("signing payload: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", signature.Header, sig)
	return nil
}

// readInput returns the named file's bytes, or stdin when args is empty. The
// bytes are returned untouched since signatures cover them exactly.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		body, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return body, nil
	}
	body, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", args[0], err)
	}
	return body, nil
}
