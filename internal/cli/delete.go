package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var deleteAll bool

var deleteCmd = &cobra.Command{
	Use:   "delete [chat-id]",
	Short: "Delete a saved conversation",
	Long: `Delete a saved conversation by ID, or every conversation with --all.

Deletion asks for confirmation unless --yes is given.`,
	Args: cobra.MaximumNArgs(1),
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

		ctx := cmd.Context()
		assumeYes, _ := cmd.Flags().GetBool("yes")

		if deleteAll {
			ids, err := backend.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list chats: %w", err)
			}
			if len(ids) == 0 {
				fmt.Println("No chats to delete.")
				return nil
			}
			if !assumeYes && !confirm(fmt.Sprintf("Delete all %d chats?", len(ids))) {
				return nil
			}
			for _, id := range ids {
				if err := backend.Delete(ctx, id); err != nil {
					return fmt.Errorf("failed to delete %s: %w", id, err)
				}
			}
			fmt.Printf("Deleted %d chats.\n", len(ids))
			return nil
		}

		if len(args) == 0 {
			return fmt.Errorf("a chat ID is required unless --all is given")
		}
		id := args[0]
		if !assumeYes && !confirm(fmt.Sprintf("Delete chat %s?", id)) {
			return nil
		}
		if err := backend.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete %s: %w", id, err)
		}
		fmt.Printf("Deleted chat %s.\n", id)
		return nil
	},
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func init() {
	deleteCmd.Flags().BoolVar(&deleteAll, "all", false, "Delete every saved chat")
	deleteCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(deleteCmd)
}
