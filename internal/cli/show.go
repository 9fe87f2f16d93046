package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/parley-chat/parley/internal/display"
)

var showCmd = &cobra.Command{
	Use:   "show <chat-id>",
	Short: "Show a saved conversation",
	Long:  `Display the full transcript of a saved conversation.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		backend, err := openBackend(cfg)
		if err != nil {
			return err
		}
		defer backend.Close()

		sess, err := backend.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		term := display.NewTerminal(os.Stdout)
		term.Transcript(sess.ChatID, sess.Messages)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
