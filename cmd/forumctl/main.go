// Command forumctl runs account maintenance against the configured store.
//
//	forumctl list-users
//	forumctl make-admin <email>
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/emilythestrangee/campus-forum/backend/internal/auth"
	"github.com/emilythestrangee/campus-forum/backend/internal/config"
	"github.com/emilythestrangee/campus-forum/backend/internal/database"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s list-users | make-admin <email>\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	envFile := flag.String("env", "", "optional .env file to load")
	timeout := flag.Duration("timeout", 30*time.Second, "overall deadline")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, err := database.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	accounts := auth.NewService(store, auth.NewTokens(cfg.JWTSecret))
	if err := run(ctx, accounts, flag.Args(), os.Stdout); err != nil {
		log.Printf("%s: %v", flag.Arg(0), err)
		store.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, accounts *auth.Service, args []string, out io.Writer) error {
	switch args[0] {
	case "list-users":
		users, err := accounts.ListUsers(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tJOINED")
		for _, u := range users {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role, u.CreatedAt.Format(time.DateOnly))
		}
		fmt.Fprintf(w, "\n%d user(s)\n", len(users))
		return w.Flush()
	case "make-admin":
		if len(args) != 2 {
			return fmt.Errorf("expected exactly one email")
		}
		user, err := accounts.MakeAdmin(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s (%s) is now an admin\n", user.Email, user.ID)
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}
