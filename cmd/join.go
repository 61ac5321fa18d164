package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/parley-chat/parley/configs"
	"github.com/parley-chat/parley/internal/identity"
	"github.com/parley-chat/parley/internal/protocol"
	"github.com/parley-chat/parley/internal/session"
)

var joinCmd = &cobra.Command{
	Use:   "join [room]",
	Short: "Join a chat room",
	Args:  cobra.MaximumNArgs(1),
	PreRunE: func(_ *cobra.Command, _ []string) error {
		if len(viper.GetString("servers.chat-origin")) == 0 {
			return fmt.Errorf("chat server address not found. ensure it is present in %s", ConfigFile)
		}
		return nil
	},
	RunE: joinRoom,
}

func init() {
	joinCmd.Flags().String("nickname", "", "nickname to use instead of the stored one")
	_ = viper.BindPFlag("user.nickname", joinCmd.Flags().Lookup("nickname"))
	rootCmd.AddCommand(joinCmd)
}

func joinRoom(_ *cobra.Command, args []string) error {
	var room string
	if len(args) > 0 {
		room = args[0]
	}

	id, err := identity.Resolve(viper.GetString("user.nickname"), room)
	if err != nil {
		return err
	}

	cfg := session.Config{
		Origin:          viper.GetString("servers.chat-origin"),
		TypingChannel:   session.TypingChannel(viper.GetString("chat.typing-channel")),
		HistoryCapacity: viper.GetInt("chat.history-capacity"),
		NicknameMatch:   identity.MatchMode(viper.GetString("chat.nickname-match")),
		TypingDebounce:  viper.GetDuration("chat.typing-debounce"),
	}

	events := session.Events{
		OnMessage: func(msg protocol.Frame) {
			fmt.Printf("[%s] %s\n", msg.From.Nickname, msg.Content)
		},
		OnTyping: func(clients []string) {
			if len(clients) > 0 {
				fmt.Printf("(%s typing...)\n", strings.Join(clients, ", "))
			}
		},
		OnStateChange: func(s session.State) {
			log.Info().Msgf("connection %s", s)
		},
	}
	bell := func() {
		fmt.Print("\a")
	}

	mgr := session.NewManager(cfg, id, events, bell)

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mgr.Connect(ctx); err != nil {
		if errors.Is(err, identity.ErrNicknameTaken) {
			return fmt.Errorf("nickname %q is already in use in room %q", id.Nickname, id.Room)
		}
		return err
	}

	if !id.Guest() {
		if err := configs.PersistNickname(ConfigFile, id.Nickname); err != nil {
			log.Warn().Err(err).Msg("could not persist nickname")
		}
	}
	fmt.Printf("joined %s as %s (%s)\n", id.Room, id.Nickname, mgr.Location())

	prompt(ctx, mgr)

	mgr.Disconnect()
	if err := configs.ClearPersistedNickname(ConfigFile); err != nil {
		log.Warn().Err(err).Msg("could not clear persisted nickname")
	}
	return nil
}

// prompt reads stdin lines until EOF, /quit, or the context is
// cancelled. Lines are sent as chat messages; a few slash commands poke
// at session state.
func prompt(ctx context.Context, mgr *session.Manager) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			switch {
			case line == "/quit":
				return
			case line == "/who":
				for _, entry := range mgr.Roster() {
					fmt.Println(entry.Nickname)
				}
			case line == "/away":
				mgr.Notifier.SetVisible(false)
				fmt.Println(mgr.Notifier.Title())
			case line == "/back":
				mgr.Notifier.SetVisible(true)
				fmt.Println(mgr.Notifier.Title())
			case strings.TrimSpace(line) == "":
			default:
				if err := mgr.Send(line); err != nil {
					log.Warn().Err(err).Msg("message not delivered")
				}
			}
		}
	}
}
