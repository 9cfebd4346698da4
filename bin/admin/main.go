// mudkit-admin edits users in the database of a stopped mudkit server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/zond/mudkit/server"
	"github.com/zond/mudkit/storage"
	"github.com/zond/mudkit/structs"
)

func main() {
	dir := flag.String("dir", server.DefaultConfig().Dir, "Where the server saves database and settings.")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <command> [args...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  show <user>               Show the flags of a user\n")
		fmt.Fprintf(os.Stderr, "  owner <user> <true|false>  Set whether a user is an owner\n")
		fmt.Fprintf(os.Stderr, "  wizard <user> <true|false> Set whether a user is a wizard\n")
		fmt.Fprintf(os.Stderr, "\nThe server must not be running.\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(*dir, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(dir string, command string, args []string) error {
	var set func(*structs.User, bool)
	switch command {
	case "show":
	case "owner":
		set = func(u *structs.User, b bool) { u.Owner = b }
	case "wizard":
		set = func(u *structs.User, b bool) { u.Wizard = b }
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	var value bool
	if set != nil {
		if len(args) != 2 {
			return fmt.Errorf("usage: %s <user> <true|false>", command)
		}
		var err error
		if value, err = strconv.ParseBool(args[1]); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s, err := storage.New(ctx, dir)
	if err != nil {
		return err
	}
	defer s.Close()

	user, err := s.LoadUser(args[0])
	if err != nil {
		return fmt.Errorf("loading %q: %w", args[0], err)
	}
	if set != nil {
		set(user, value)
		if err := s.StoreUser(user); err != nil {
			return err
		}
	}
	fmt.Printf("%s: owner=%v wizard=%v object=%s last login=%v\n", user.Name, user.Owner, user.Wizard, user.Object, user.LastLogin)
	return nil
}
