package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/parley-chat/parley/internal/controller"
	"github.com/parley-chat/parley/internal/display"
	"github.com/parley-chat/parley/internal/generator"
	"github.com/parley-chat/parley/internal/observability"
	"github.com/parley-chat/parley/pkg/config"
	"github.com/parley-chat/parley/pkg/session"
	"github.com/parley-chat/parley/pkg/stream"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Start an interactive conversation with streaming output.

Slash commands inside the session:
  /new          Start a new conversation
  /prev         Go to the previous conversation
  /next         Go to the next conversation
  /list         List saved conversations
  /delete       Delete the current conversation
  /delete-all   Delete all conversations
  /file <path>  Attach a file to the next message
  /quit         Exit

Ctrl-C interrupts a response in flight; partial output is kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := observability.InitFromEnv(); err != nil {
		log.Printf("tracing init failed: %v", err)
	}
	defer observability.Shutdown(context.Background())

	backend, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	store := session.NewStore(backend)
	store.NewSession()

	if cfg.Retention.MaxAgeDays > 0 {
		sweeper := session.NewSweeper(backend, time.Duration(cfg.Retention.MaxAgeDays)*24*time.Hour)
		sweeper.OnSweep(observability.RecordSweptSessions)
		if err := sweeper.Start(cfg.Retention.Schedule); err != nil {
			return fmt.Errorf("failed to start retention sweeper: %w", err)
		}
		defer sweeper.Stop()
	}

	registry := generator.NewRegistry()
	if err := registerGenerators(ctx, cfg, registry); err != nil {
		return err
	}

	term := display.NewTerminal(os.Stdout)
	sink := stream.NewBatchedSink(term, cfg.Stream.FlushInterval())

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit/60), 1)
	}

	ctrl := controller.New(store, registry, term, sink, controller.Options{
		Provider:     cfg.Provider,
		Model:        cfg.Model,
		SystemPrompt: cfg.SystemPrompt,
		Limiter:      limiter,
	})

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: observability.MetricsHandler()}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT)
	defer signal.Stop(sigs)
	go func() {
		for range sigs {
			ctrl.Interrupt()
		}
	}()

	replErr := repl(gctx, ctrl, term)
	stop()

	// Save anything unsaved before exit.
	if len(store.Messages()) > 0 {
		if _, err := store.SaveCurrent(context.Background()); err != nil && !errors.Is(err, session.ErrEmptySession) {
			log.Printf("failed to save chat on exit: %v", err)
		}
	}

	if err := g.Wait(); err != nil && replErr == nil {
		replErr = err
	}
	return replErr
}

func registerGenerators(ctx context.Context, cfg *config.Config, registry *generator.Registry) error {
	if cfg.OpenAIKey != "" {
		registry.Register(generator.NewOpenAIGenerator(cfg.OpenAIKey, cfg.OpenAIBaseURL))
	}
	if cfg.GeminiKey != "" {
		gem, err := generator.NewGeminiGenerator(ctx, cfg.GeminiKey)
		if err != nil {
			return err
		}
		registry.Register(gem)
	}
	if !registry.Has(cfg.Provider) {
		return fmt.Errorf("no credentials configured for provider %s", cfg.Provider)
	}
	return nil
}

func repl(ctx context.Context, ctrl *controller.Controller, term *display.Terminal) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	term.Status(fmt.Sprintf("parley %s — %s/%s (type /quit to exit)", version, ctrl.Provider(), ctrl.Model()))

	var pendingFiles []string
	for {
		if ctx.Err() != nil {
			return nil
		}

		input, err := line.Prompt("> ")
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		trimmed := strings.TrimSpace(input)
		if trimmed == "" && len(pendingFiles) == 0 {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(trimmed, "/") {
			if quit := handleCommand(ctx, ctrl, term, trimmed, &pendingFiles); quit {
				return nil
			}
			continue
		}

		if err := ctrl.Send(ctx, trimmed, pendingFiles); err != nil {
			term.Error(err)
		}
		pendingFiles = nil
	}
}

// handleCommand dispatches a slash command. Returns true to exit.
func handleCommand(ctx context.Context, ctrl *controller.Controller, term *display.Terminal, cmd string, pendingFiles *[]string) bool {
	name, arg, _ := strings.Cut(cmd, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return true
	case "/new":
		ctrl.NewChat(ctx)
	case "/prev":
		ctrl.Navigate(ctx, session.Older)
	case "/next":
		ctrl.Navigate(ctx, session.Newer)
	case "/list":
		ids := ctrl.ListChats(ctx)
		if len(ids) == 0 {
			term.Status("No saved chats.")
			break
		}
		for _, id := range ids {
			term.Status(id)
		}
	case "/delete":
		ctrl.DeleteCurrent(ctx)
	case "/delete-all":
		ctrl.DeleteAll(ctx)
	case "/file":
		if arg == "" {
			term.Status("Usage: /file <path>")
			break
		}
		if _, err := os.Stat(arg); err != nil {
			term.Error(fmt.Errorf("cannot attach %s: %w", arg, err))
			break
		}
		*pendingFiles = append(*pendingFiles, arg)
		term.Status(fmt.Sprintf("Attached: %s", arg))
	case "/load":
		if arg == "" {
			term.Status("Usage: /load <chat-id>")
			break
		}
		if err := ctrl.LoadChat(ctx, arg); err != nil {
			term.Error(err)
		}
	default:
		term.Status(fmt.Sprintf("Unknown command: %s", name))
	}
	return false
}
