package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/parley-chat/parley/pkg/session"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("212"))

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved conversations",
	Long:  `List all saved conversations, oldest first.`,
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
		ids, err := backend.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list chats: %w", err)
		}
		if len(ids) == 0 {
			fmt.Println("No saved chats.")
			return nil
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("Saved chats (%d)", len(ids))))

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, id := range ids {
			created, messages := chatSummary(ctx, backend, id)
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				idStyle.Render(id),
				dateStyle.Render(created),
				countStyle.Render(messages),
			)
		}
		return w.Flush()
	},
}

func chatSummary(ctx context.Context, backend session.Backend, id string) (created, messages string) {
	if ts, err := session.ParseID(id); err == nil {
		created = ts.Format(time.DateTime)
	}
	sess, err := backend.Load(ctx, id)
	if err != nil {
		return created, "?"
	}
	return created, fmt.Sprintf("%d messages", len(sess.Messages))
}

func init() {
	rootCmd.AddCommand(listCmd)
}
