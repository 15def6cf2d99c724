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
	"fmt"

	"github.com/fatih/color"
	"github.com/k1LoW/postshot"
	"github.com/spf13/cobra"
)

var compareCmd = &cobra.Command{
	Use:   "compare [PNG_FILE] [PNG_FILE]",
	Short: "compare two rendered cards",
	Long:  `compare two rendered cards. It exits with an error when they are not equivalent.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := postshot.NewImageFromFile(args[0])
		if err != nil {
			return err
		}
		b, err := postshot.NewImageFromFile(args[1])
		if err != nil {
			return err
		}
		if !a.Equivalent(b) {
			cmd.Println(color.RedString("✗ different"))
			return fmt.Errorf("%s and %s are not equivalent", args[0], args[1])
		}
		cmd.Println(color.GreenString("✓ equivalent"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
}
