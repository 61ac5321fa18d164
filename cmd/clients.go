package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/parley-chat/parley/internal/identity"
	"github.com/parley-chat/parley/internal/roster"
)

var clientsCmd = &cobra.Command{
	Use:   "clients [room]",
	Short: "List who is connected to a room",
	Args:  cobra.MaximumNArgs(1),
	PreRunE: func(_ *cobra.Command, _ []string) error {
		if len(viper.GetString("servers.chat-origin")) == 0 {
			return fmt.Errorf("chat server address not found. ensure it is present in %s", ConfigFile)
		}
		return nil
	},
	RunE: listClients,
}

func init() {
	rootCmd.AddCommand(clientsCmd)
}

func listClients(cmd *cobra.Command, args []string) error {
	var room string
	if len(args) > 0 {
		room = args[0]
	}
	room = identity.Slugify(room)
	if room == "" {
		room = identity.DefaultRoom
	}

	client := roster.NewClient(viper.GetString("servers.chat-origin"))
	entries, err := roster.Fetch(cmd.Context(), client, room)
	if err != nil {
		return fmt.Errorf("could not fetch roster for %q: %w", room, err)
	}

	fmt.Printf("%s: %d connected\n", room, len(entries))
	for _, entry := range entries {
		fmt.Println(entry.Nickname)
	}
	return nil
}
