// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chats.go - The "loom chats" command: list, show, search, and delete
// saved chat transcripts.
package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/halcyonforge/loom/internal/config"
	"github.com/halcyonforge/loom/internal/model"
	"github.com/halcyonforge/loom/internal/storage"
	"github.com/halcyonforge/loom/internal/util"
)

// HandleChats dispatches chats subcommands.
func HandleChats(cfg *config.Config, parser *ArgParser) error {
	dataDir, err := cfg.DataDir()
	if err != nil {
		return err
	}
	store, err := storage.NewChatStore(filepath.Join(dataDir, "chats"))
	if err != nil {
		return fmt.Errorf("open chat store: %w", err)
	}
	defer store.Close()

	switch parser.Subcommand() {
	case "", "list", "ls", "l":
		return chatsList(store)
	case "show":
		id := parser.Positional(1)
		if id == "" {
			return NewUsageError("chats show", "missing chat id")
		}
		return chatsShow(store, id)
	case "search":
		query := parser.JoinPositionalsFrom(1)
		if query == "" {
			return NewUsageError("chats search", "missing search query")
		}
		return chatsSearch(store, query)
	case "delete", "rm":
		id := parser.Positional(1)
		if id == "" {
			return NewUsageError("chats delete", "missing chat id")
		}
		if !parser.BoolFlag("confirm") {
			return NewUsageError("chats delete", "destructive operation requires --confirm")
		}
		if err := store.Delete(id); err != nil {
			return err
		}
		fmt.Printf("%s deleted chat %s\n", SuccessStyle.Render("[OK]"), id)
		return nil
	default:
		return NewUsageError("chats", "unknown subcommand %q", parser.Subcommand())
	}
}

func chatsList(store *storage.ChatStore) error {
	metas, err := store.List()
	if err != nil {
		return err
	}
	printChatTable(metas)
	return nil
}

func chatsSearch(store *storage.ChatStore, query string) error {
	metas, err := store.Search(query)
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println(DimStyle.Render("[No matching chats]"))
		return nil
	}
	printChatTable(metas)
	return nil
}

func printChatTable(metas []storage.ChatMeta) {
	if len(metas) == 0 {
		fmt.Println(DimStyle.Render("[No saved chats]"))
		return
	}

	fmt.Println()
	fmt.Printf("%s %s %s %s\n",
		TitleStyle.Render(util.PadRight("ID", 26)),
		TitleStyle.Render(util.PadRight("CHARACTER", 16)),
		TitleStyle.Render(util.PadRight("MESSAGES", 9)),
		TitleStyle.Render("UPDATED"))
	fmt.Println(RenderSeparator(70))
	for _, meta := range metas {
		fmt.Printf("%s %s %s %s\n",
			ValueStyle.Render(util.PadRight(meta.ID, 26)),
			ValueStyle.Render(util.PadRight(util.TruncateWidth(meta.Character, 16), 16)),
			ValueStyle.Render(util.PadRight(util.IntToStr(meta.MessageCount), 9)),
			DimStyle.Render(meta.UpdatedAt.Format("2006-01-02 15:04")))
	}
	fmt.Println()
}

func chatsShow(store *storage.ChatStore, id string) error {
	msgs, err := store.Load(id)
	if err != nil {
		return err
	}

	width := GetTerminalWidth()
	fmt.Println()
	fmt.Println(TitleStyle.Render("Chat " + id))
	fmt.Println(RenderSeparator(width))
	for _, msg := range msgs {
		label := string(msg.Role)
		switch msg.Role {
		case model.RoleUser:
			label = InfoStyle.Render("You")
		case model.RoleAssistant:
			label = SuccessStyle.Render("AI")
		case model.RoleSystem:
			label = WarningStyle.Render("System")
		}
		if msg.Name != "" {
			label += DimStyle.Render(" (" + msg.Name + ")")
		}

		meta := msg.Timestamp.Format("15:04:05")
		if msg.Source != "" {
			meta += " · " + msg.Source
		}

		fmt.Printf("%s %s\n", label, DimStyle.Render(meta))
		fmt.Println(WrapText(strings.TrimSpace(msg.Content), width))
		fmt.Println()
	}
	return nil
}
