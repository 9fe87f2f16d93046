package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/parley-chat/parley/internal/parser"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract a JSON object from model output",
	Long: `Extract the first JSON object embedded in free-form model output.

Reads from the given file, or stdin when no file is given. Malformed
JSON is repaired where possible; hopeless input falls back to
line-level key/value recovery. Prints the recovered object as JSON.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data []byte
		var err error
		if len(args) == 1 {
			data, err = os.ReadFile(args[0])
		} else {
			data, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			return err
		}

		obj := parser.ExtractObject(string(data))
		if obj == nil || obj.Len() == 0 {
			return fmt.Errorf("no JSON object found in input")
		}

		out, err := obj.MarshalJSON()
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
