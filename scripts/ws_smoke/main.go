package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/vovakirdan/docflow-server/internal/client"
	"github.com/vovakirdan/docflow-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

// run joins the caller's room, uploads a file and waits for both of its events.
func run() error {
	server := flag.String("server", "http://localhost:8080", "server base URL")
	email := flag.String("email", "smoke@example.com", "account email")
	password := flag.String("password", "smoke-password", "account password")
	register := flag.Bool("register", false, "register the account first")
	timeout := flag.Duration("timeout", 10*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	api, err := client.NewAPI(*server, nil)
	if err != nil {
		return err
	}
	var res *client.AuthResult
	if *register {
		res, err = api.Register(ctx, *email, strings.Split(*email, "@")[0], *password)
	} else {
		res, err = api.Login(ctx, *email, *password)
	}
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	conn, err := client.Dial(ctx, api.SocketURL(), res.Token)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Join(ctx, res.User.ID); err != nil {
		return fmt.Errorf("send join: %w", err)
	}

	uploaded := false
	seen := map[string]bool{}
	for !(seen[proto.EventDocumentUploaded] && seen[proto.EventNotificationNew]) {
		outbound, err := conn.Next(ctx)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received outbound: type=%s", outbound.Type)
		if outbound.Event != "" {
			fmt.Printf(" event=%s", outbound.Event)
		}
		fmt.Println()

		if outbound.Error != nil {
			return fmt.Errorf("server error: %s: %s", outbound.Error.Code, outbound.Error.Msg)
		}
		seen[outbound.Event] = true
		fmt.Printf("Data: %s\n", string(outbound.Data))

		// Upload once the join has been acknowledged by a presence broadcast.
		if outbound.Event == proto.EventActiveUsers && !uploaded {
			uploaded = true
			doc, err := api.Upload(ctx, client.UploadRequest{
				Filename: "smoke.txt",
				Body:     strings.NewReader("hello from smoke test"),
			})
			if err != nil {
				return fmt.Errorf("upload: %w", err)
			}
			fmt.Printf("Uploaded: id=%s key=%s\n", doc.ID, doc.StorageKey)
		}
	}
	return nil
}
