// Command viewer renders a read-only snapshot of the relay's store as
// tables: accounts, conversations and per-conversation messages.
package main

import (
	"chat-relay/domain"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
}

func main() {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// BypassLockGuard allows opening while the server holds the lock.
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	printUsers(db)
	printConversations(db)
	printMessages(db)
}

func printUsers(db *badger.DB) {
	color.Bold.Println("\nUsers")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name", "Email", "Online", "Status"})

	forEachJSON(db, "user:", func(user domain.User) {
		table.Append([]string{
			shortID(user.ID), user.Name, user.Email,
			fmt.Sprintf("%t", user.Online), user.StatusLine,
		})
	})
	table.Render()
}

func printConversations(db *badger.DB) {
	color.Bold.Println("\nConversations")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Participants", "Updated", "Messages", "Unread"})

	forEachJSON(db, "conv:", func(conv domain.Conversation) {
		total, unread := 0, 0
		forEachJSON(db, "msg:"+conv.ID+":", func(msg domain.Message) {
			total++
			if msg.Status.Pending() {
				unread++
			}
		})
		table.Append([]string{
			shortID(conv.ID),
			shortID(conv.ParticipantA) + " / " + shortID(conv.ParticipantB),
			conv.UpdatedAt.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d", total),
			fmt.Sprintf("%d", unread),
		})
	})
	table.Render()
}

func printMessages(db *badger.DB) {
	color.Bold.Println("\nMessages")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Conversation", "Sender", "Content", "Status", "Created"})

	forEachJSON(db, "msg:", func(msg domain.Message) {
		table.Append([]string{
			shortID(msg.ConversationID),
			shortID(msg.Sender),
			truncate(msg.Content, 40),
			string(msg.Status),
			msg.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	})
	table.Render()
}

func forEachJSON[T any](db *badger.DB, prefix string, fn func(T)) {
	err := db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = []byte(prefix)
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(options.Prefix); it.ValidForPrefix(options.Prefix); it.Next() {
			var value T
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &value)
			})
			if err != nil {
				return err
			}
			fn(value)
		}
		return nil
	})
	if err != nil {
		color.Red.Printf("scan %q failed: %v\n", prefix, err)
	}
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
