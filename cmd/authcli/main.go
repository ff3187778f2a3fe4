// Command authcli is a minimal operational tool around the auth core:
// log in with SRP, refresh a token, or validate a token against the
// configured identity provider. It exists for smoke-testing an IdP
// deployment, not for end users.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/voyant-travel/authcore"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := authcore.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	core, err := authcore.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize auth core: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch os.Args[1] {
	case "login":
		if len(os.Args) != 3 {
			usage()
		}
		runLogin(ctx, core, os.Args[2])
	case "refresh":
		if len(os.Args) != 3 {
			usage()
		}
		tokens, err := core.Refresh(ctx, os.Args[2])
		if err != nil {
			log.Fatalf("refresh failed: %v", err)
		}
		printJSON(tokens)
	case "validate":
		if len(os.Args) != 3 {
			usage()
		}
		claims, err := core.ValidateToken(ctx, os.Args[2])
		if err != nil {
			log.Fatalf("token rejected: %v", err)
		}
		printJSON(claims)
	default:
		usage()
	}
}

func runLogin(ctx context.Context, core *authcore.Core, username string) {
	fmt.Fprint(os.Stderr, "password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		log.Fatalf("failed to read password: %v", err)
	}
	tokens, err := core.Login(ctx, username, strings.TrimRight(line, "\r\n"))
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}
	printJSON(tokens)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage:
  authcli login <username>     SRP login, password read from stdin
  authcli refresh <token>      exchange a refresh token
  authcli validate <token>     validate an access token locally
`)
	os.Exit(2)
}
