/*
Copyright © 2025 Ken'ichiro Oyama <k1lowxb@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/k1LoW/postshot"
	"github.com/k1LoW/postshot/config"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "check the environment for rendering cards",
	Long:  `check the environment for rendering cards.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		green := color.New(color.FgGreen)
		red := color.New(color.FgRed)
		yellow := color.New(color.FgYellow)
		bold := color.New(color.Bold)

		allOK := true

		// 1. Check configuration file
		cmd.Print("🔧 Checking configuration file ... ")
		cfg, err := config.Load(profile)
		if err != nil {
			red.Println("✗ CONFIG ERROR")
			cmd.Printf("   Error loading config: %v\n", err)
			return nil
		}
		if p, ok := config.Path(profile); ok {
			green.Println("✓ OK")
			cmd.Printf("   Configuration file: %s\n", p)
		} else {
			yellow.Println("⚠️ NOT FOUND")
			cmd.Println("   Using defaults")
		}
		if _, err := cfg.TimeoutDuration(); err != nil {
			red.Printf("   %v\n", err)
			allOK = false
		}
		if _, err := cfg.Location(); err != nil {
			red.Printf("   %v\n", err)
			allOK = false
		}

		// 2. Check credentials
		cmd.Print("🔐 Checking credentials ... ")
		if _, err := postshot.AuthorizedClient(ctx, credentials(cfg), 0, nil); err != nil {
			red.Println("✗ NOT CONFIGURED")
			cmd.Printf("   %v\n", err)
			cmd.Printf("   Set api.token or api.clientID/api.clientSecret, or save a token as %s\n", cfg.API.TokenFile)
			allOK = false
		} else {
			green.Println("✓ OK")
		}

		// 3. Check text rendering oracle
		cmd.Printf("🖼  Checking %s oracle ... ", cfg.Oracle.Type)
		if err := checkOracle(ctx, cfg); err != nil {
			red.Println("✗ FAILED")
			cmd.Printf("   %v\n", err)
			allOK = false
		} else {
			green.Println("✓ OK")
		}

		// Final message
		cmd.Println()
		if allOK {
			bold.Printf("🎉 ")
			green.Print("All checks passed! You are ready to use postshot")
			bold.Println(".")
		} else {
			red.Println("⚠️  Setup is incomplete.")
			cmd.Println("\nPlease fix the issues above to use postshot properly.")
		}
		return nil
	},
}

func checkOracle(ctx context.Context, cfg *config.Config) error {
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return err
	}
	r, err := newRenderer(cfg, timeout, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel()})))
	if err != nil {
		return err
	}
	_, err = r.RenderText(ctx, postshot.TextRequest{Text: postshot.AppName, Size: 13, Color: "000000", Fill: "ffffff", Background: "ffffff"})
	return err
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
