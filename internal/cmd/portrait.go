package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pippora/pippora/internal/ailink/encode"
	"github.com/pippora/pippora/internal/observability"
	"github.com/pippora/pippora/internal/output"
	"github.com/pippora/pippora/internal/portrait"
)

var portraitCmd = &cobra.Command{
	Use:   "portrait",
	Short: "Generate a Renaissance portrait from a pet photo",
	Long: `Generate a single portrait from a local image file, running the same
pipeline as the HTTP API: validation, rate limits, analysis, painting,
mailing-list registration and history.`,
	Example: `  pippora portrait --email owner@example.com --image rex.jpg
  pippora portrait --email owner@example.com --image rex.png --output-format markdown --out rex.md`,
	RunE: runPortrait,
}

func init() {
	rootCmd.AddCommand(portraitCmd)

	portraitCmd.Flags().String("email", "", "Owner email address (required)")
	portraitCmd.Flags().String("image", "", "Path to a PNG, JPEG, GIF or WebP pet photo (required)")
	portraitCmd.Flags().String("ip", "", "Client address to account the request against")
	addOutputFlags(portraitCmd, "table|json|markdown")
}

func runPortrait(cmd *cobra.Command, _ []string) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}

	email, _ := cmd.Flags().GetString("email")
	imagePath, _ := cmd.Flags().GetString("image")
	ip, _ := cmd.Flags().GetString("ip")
	if strings.TrimSpace(email) == "" || strings.TrimSpace(imagePath) == "" {
		return errors.New("--email and --image are required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	raw, err := readImageFile(imagePath, cfg.Portrait.MaxImageBytes)
	if err != nil {
		return err
	}

	svc, err := buildServices(cmd.Context(), cfg, observability.CLILogger)
	if err != nil {
		return err
	}
	defer svc.close()

	result, err := svc.portraits.Generate(cmd.Context(), portrait.Request{
		Email:    email,
		PetImage: encode.EncodeBase64String(raw),
		ClientIP: ip,
	})
	if err != nil {
		return err
	}

	rendered, err := output.NewFormatter(format).FormatPortrait(result)
	if err != nil {
		return err
	}
	return writeOutput(cmd, "portrait", format, rendered)
}

func readImageFile(path string, maxBytes int) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = portrait.DefaultMaxImageBytes
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > int64(maxBytes) {
		return nil, fmt.Errorf("%s is %d bytes; limit is %d", path, info.Size(), maxBytes)
	}
	return os.ReadFile(path)
}
