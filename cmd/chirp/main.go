package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/tweide/chirp/internal/client"
	"github.com/tweide/chirp/internal/model/chat"
)

// chirp is a line-oriented client: log in, pick a peer, type messages.
// Incoming pushes for the selected peer are printed as they arrive.
func main() {
	server := flag.String("server", "http://localhost:5001", "chirpd base URL")
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	signup := flag.String("signup", "", "create an account with this display name first")
	flag.Parse()

	_ = godotenv.Load()

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: chirp -email you@example.com -password secret [-signup \"Full Name\"]")
		os.Exit(1)
	}

	if err := run(*server, *email, *password, *signup); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(server, email, password, signupName string) error {
	api, err := client.NewHTTPClient(strings.TrimRight(server, "/") + "/api")
	if err != nil {
		return err
	}

	notify := client.LogNotifier{}
	presence := client.NewPresenceTracker()
	conns := client.NewConnManager(client.WSConnector(server), presence)
	session := client.NewAuthSession(api, conns, notify)
	conversations := client.NewConversationStore(api, conns, notify)

	ctx := context.Background()

	if signupName != "" {
		session.SignUp(ctx, chat.SignupRequest{FullName: signupName, Email: email, Password: password})
	} else {
		session.LogIn(ctx, chat.LoginRequest{Email: email, Password: password})
	}

	self, ok := session.User()
	if !ok {
		return fmt.Errorf("authentication failed")
	}
	fmt.Printf("logged in as %s <%s>\n", self.FullName, self.Email)

	conversations.LoadContacts(ctx)
	contacts := conversations.Contacts()
	if len(contacts) == 0 {
		fmt.Println("nobody else is registered yet; waiting won't help, bring a friend")
		session.LogOut(ctx)
		return nil
	}

	for i, c := range contacts {
		marker := " "
		if presence.IsOnline(c.ID) {
			marker = "*"
		}
		fmt.Printf("%s [%d] %s <%s>\n", marker, i, c.FullName, c.Email)
	}
	peer := pickPeer(contacts)

	conversations.SelectPeer(&peer)
	conversations.Watch(func(msg chat.Message) {
		printMessage(self.ID, peer, msg)
	})
	conversations.LoadMessages(ctx, peer.ID)
	if err := conversations.Subscribe(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	for _, msg := range conversations.Messages() {
		printMessage(self.ID, peer, msg)
	}

	fmt.Printf("chatting with %s; type a message, ctrl-d to quit\n", peer.FullName)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if err := conversations.SendMessage(ctx, chat.SendRequest{Text: text}); err != nil {
			log.Printf("send failed: %v", err)
		}
	}

	conversations.Unsubscribe()
	conversations.SelectPeer(nil)
	session.LogOut(ctx)
	return scanner.Err()
}

func pickPeer(contacts []chat.User) chat.User {
	fmt.Print("peer number: ")
	var idx int
	if _, err := fmt.Scanln(&idx); err != nil || idx < 0 || idx >= len(contacts) {
		idx = 0
	}
	return contacts[idx]
}

func printMessage(selfID string, peer chat.User, msg chat.Message) {
	who := peer.FullName
	if msg.SenderID == selfID {
		who = "me"
	}
	body := msg.Text
	if body == "" && msg.Image != "" {
		body = "[image]"
	}
	fmt.Printf("%s %s: %s\n", msg.CreatedAt.Local().Format("15:04"), who, body)
}
