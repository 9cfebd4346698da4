package game

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gliderlabs/ssh"
	"github.com/pkg/errors"
	"github.com/zond/mudkit"
	"github.com/zond/mudkit/clothing"
	"github.com/zond/mudkit/decor"
	"github.com/zond/mudkit/features"
	"github.com/zond/mudkit/lang"
	"github.com/zond/mudkit/multimatch"
	"github.com/zond/mudkit/relay"
	"github.com/zond/mudkit/storage"
	"github.com/zond/mudkit/structs"
	"golang.org/x/term"
)

var (
	ErrOperationAborted = fmt.Errorf("operation aborted")
)

type Connection struct {
	game *Game
	sess ssh.Session
	term *term.Terminal
	user *structs.User
	wiz  bool
	ctx  context.Context // Derived from sess.Context(), carries the session ID
}

func (c *Connection) remote() string {
	if c.sess == nil {
		return ""
	}
	return c.sess.RemoteAddr().String()
}

func (c *Connection) SelectExec(options map[string]func() error) error {
	commandNames := make(sort.StringSlice, 0, len(options))
	for name := range options {
		commandNames = append(commandNames, name)
	}
	sort.Sort(commandNames)
	prompt := fmt.Sprintf("%s\n", lang.Enumerator{Pattern: "[%s]", Operator: "or"}.Do(commandNames...))
	for {
		fmt.Fprint(c.term, prompt)
		line, err := c.term.ReadLine()
		if err != nil {
			return mudkit.WithStack(err)
		}
		if cmd, found := options[line]; found {
			if err := cmd(); err != nil {
				return mudkit.WithStack(err)
			}
			break
		}
	}
	return nil
}

func (c *Connection) SelectReturn(prompt string, options []string) (string, error) {
	for {
		fmt.Fprintf(c.term, "%s [%s]\n", prompt, strings.Join(options, "/"))
		line, err := c.term.ReadLine()
		if err != nil {
			return "", mudkit.WithStack(err)
		}
		for _, option := range options {
			if strings.EqualFold(line, option) {
				return option, nil
			}
		}
	}
}

type command struct {
	names map[string]bool
	// f gets the line without the command name.
	f func(*Connection, string) error
}

type attempter interface {
	attempt(conn *Connection, name string, args string) (bool, error)
}

type commands []command

func (c commands) attempt(conn *Connection, name string, args string) (bool, error) {
	for _, cmd := range c {
		if cmd.names[name] {
			if err := cmd.f(conn, args); err != nil {
				return true, mudkit.WithStack(err)
			}
			return true, nil
		}
	}
	return false, nil
}

func m(s ...string) map[string]bool {
	res := map[string]bool{}
	for _, p := range s {
		res[p] = true
	}
	return res
}

type defaultObject int

const (
	defaultNone defaultObject = iota
	defaultSelf
	defaultLoc
)

// splitAt splits s around the first of the separators found in it, trimming
// both sides. Word separators like " to " also match at the start of s.
func splitAt(s string, separators ...string) (lhs string, rhs string, found bool) {
	s = strings.TrimSpace(s)
	for _, sep := range separators {
		if idx := strings.Index(s, sep); idx != -1 {
			return strings.TrimSpace(s[:idx]), strings.TrimSpace(s[idx+len(sep):]), true
		}
	}
	return s, "", false
}

// identifyingCommand wraps a command handler to find the object its
// arguments name among the scope. The handler receives what follows a "="
// as rhs.
func (c *Connection) identifyingCommand(def defaultObject, scope searchScope, usage string, f func(c *Connection, s *surroundings, target *structs.Object, rhs string) error) func(*Connection, string) error {
	return func(c *Connection, args string) error {
		lhs, rhs, _ := splitAt(args, "=")
		s, err := c.game.surroundingsOf(c.user.Object)
		if err != nil {
			return mudkit.WithStack(err)
		}
		if lhs == "" {
			switch def {
			case defaultSelf:
				return f(c, s, s.self, rhs)
			case defaultLoc:
				return f(c, s, s.room, rhs)
			}
			fmt.Fprintln(c.term, usage)
			return nil
		}
		target, err := c.search(s, lhs, s.candidates(scope))
		if err != nil || target == nil {
			return err
		}
		return f(c, s, target, rhs)
	}
}

// playerMessage returns what to tell the player about err, logging errors
// that aren't meant for players.
func (c *Connection) playerMessage(err error) string {
	var (
		violation   clothing.Violation
		featureErr  features.Error
		decorErr    decor.Error
		relayErr    relay.Error
		channelErr  InvalidChannelError
		usernameErr InvalidUsernameError
		matchErr    multimatch.Error
	)
	switch {
	case errors.As(err, &violation):
		return violation.Error()
	case errors.As(err, &featureErr):
		return featureErr.Error()
	case errors.As(err, &decorErr):
		return decorErr.Error()
	case errors.As(err, &relayErr):
		return relayErr.Error()
	case errors.As(err, &channelErr):
		return channelErr.Error()
	case errors.As(err, &usernameErr):
		return usernameErr.Error()
	case errors.As(err, &matchErr):
		return matchErr.Error()
	case errors.Is(err, storage.ErrCycle):
		return "You can't put something inside itself."
	case errors.Is(err, storage.ErrNotEmpty):
		return "It isn't empty."
	case errors.Is(err, storage.ErrMoved):
		return "Something moved while you were at it, try again."
	case errors.Is(err, os.ErrNotExist):
		return "It's gone."
	}
	log.Printf("Command by %q failed: %v", c.user.Name, err)
	log.Println(mudkit.StackTrace(err))
	return "Something went wrong."
}

// handle runs the command on line, telling the player about errors.
func (c *Connection) handle(commandSets []attempter, line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	name, args, _ := strings.Cut(line, " ")
	name = strings.ToLower(name)
	args = strings.TrimSpace(args)
	for _, commands := range commandSets {
		if found, err := commands.attempt(c, name, args); err != nil {
			fmt.Fprintln(c.term, c.playerMessage(err))
			return
		} else if found {
			return
		}
	}
	fmt.Fprintf(c.term, "Unknown command: %q\n", name)
}

func (c *Connection) commandSets() []attempter {
	commandSets := []attempter{c.basicCommands(), c.wearCommands(), c.channelCommands()}
	if c.wiz {
		commandSets = append([]attempter{c.wizCommands()}, commandSets...)
	}
	return commandSets
}

func (c *Connection) Process() error {
	if c.user == nil {
		return errors.New("can't process without user")
	}
	c.wiz = c.user.Wizard || c.user.Owner

	c.game.connectionByObjectID.Set(c.user.Object, c)
	defer c.disconnect()

	if err := c.game.emit(c.game.locationOf(c.user.Object), fmt.Sprintf("%s has connected.", c.user.Name), c.user.Object); err != nil {
		return mudkit.WithStack(err)
	}

	for {
		line, err := c.term.ReadLine()
		if err != nil {
			return mudkit.WithStack(err)
		}
		c.handle(c.commandSets(), line)
	}
}

func (c *Connection) disconnect() {
	c.game.channels.LeaveAll(c.term)
	if current, found := c.game.connectionByObjectID.GetHas(c.user.Object); found && current == c {
		c.game.connectionByObjectID.Del(c.user.Object)
	}
	c.game.storage.AuditLog(c.ctx, "SESSION_END", storage.AuditSessionEnd{
		User: storage.UserRef(c.user),
	})
	if err := c.game.emit(c.game.locationOf(c.user.Object), fmt.Sprintf("%s has disconnected.", c.user.Name), c.user.Object); err != nil {
		log.Printf("Announcing disconnect of %q: %v", c.user.Name, err)
	}
}

// locationOf returns where the object with id is, or "" if it's nowhere or
// gone.
func (g *Game) locationOf(id string) string {
	obj, err := g.storage.GetObject(id)
	if err != nil {
		return ""
	}
	return obj.Location
}

func (c *Connection) look() error {
	s, err := c.game.surroundingsOf(c.user.Object)
	if err != nil {
		return mudkit.WithStack(err)
	}
	c.describeRoom(s)
	return nil
}

func (c *Connection) Connect() error {
	// Generate session ID at connection start so all audit events (including failed logins) can be correlated
	c.ctx = storage.SetSessionID(c.ctx, mudkit.NextUniqueID())
	fmt.Fprint(c.term, "Welcome!\n\n")
	sel := func() error {
		return c.SelectExec(map[string]func() error{
			"login user":  c.loginUser,
			"create user": c.createUser,
		})
	}
	var err error
	for err = sel(); errors.Is(err, ErrOperationAborted); err = sel() {
	}
	if err != nil {
		return mudkit.WithStack(err)
	}
	if err := c.look(); err != nil {
		return mudkit.WithStack(err)
	}
	return c.Process()
}

func (c *Connection) loginUser() error {
	fmt.Fprint(c.term, "** Login user **\n\n")
	for c.user == nil {
		fmt.Fprintln(c.term, "Enter username or [abort]:")
		username, err := c.term.ReadLine()
		if err != nil {
			return err
		}
		if username == "abort" {
			return mudkit.WithStack(ErrOperationAborted)
		}

		// Rate limit login attempts per username (only after failed attempts)
		c.game.loginRateLimiter.waitIfNeeded(username, c.term)

		fmt.Fprint(c.term, "Enter password or [abort]:\n")
		password, err := c.term.ReadPassword("> ")
		if err != nil {
			return err
		}
		if password == "abort" {
			return mudkit.WithStack(ErrOperationAborted)
		}

		user, err := c.game.storage.LoadUser(username)
		if errors.Is(err, os.ErrNotExist) {
			c.game.loginRateLimiter.recordFailure(username)
			c.game.storage.AuditLog(c.ctx, "LOGIN_FAILED", storage.AuditLoginFailed{
				User:   storage.AuditRef{Name: username},
				Remote: c.remote(),
			})
			fmt.Fprintln(c.term, "Invalid credentials!")
			continue
		} else if err != nil {
			return mudkit.WithStack(err)
		}

		if !verifyPassword(password, user.PasswordHash) {
			c.game.loginRateLimiter.recordFailure(user.Name)
			c.game.storage.AuditLog(c.ctx, "LOGIN_FAILED", storage.AuditLoginFailed{
				User:   storage.UserRef(user),
				Remote: c.remote(),
			})
			fmt.Fprintln(c.term, "Invalid credentials!")
		} else {
			c.game.loginRateLimiter.clearFailure(user.Name)
			if err := c.ensureCharacter(user); err != nil {
				return mudkit.WithStack(err)
			}
			user.LastLogin = time.Now().UTC()
			if err := c.game.storage.StoreUser(user); err != nil {
				// Don't fail the login, the user is authenticated.
				log.Printf("Failed to update last login for user %s: %v", user.Name, err)
			}
			c.user = user
		}
	}
	c.game.storage.AuditLog(c.ctx, "USER_LOGIN", storage.AuditUserLogin{
		User:   storage.UserRef(c.user),
		Remote: c.remote(),
	})
	fmt.Fprintf(c.term, "Welcome back, %v!\n\n", c.user.Name)
	return nil
}

// ensureCharacter gives user a new character if the old one is gone.
func (c *Connection) ensureCharacter(user *structs.User) error {
	if _, err := c.game.storage.GetObject(user.Object); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return mudkit.WithStack(err)
	}
	log.Printf("Character %q of %q is gone, creating a new one", user.Object, user.Name)
	if _, err := c.game.createCharacter(user); err != nil {
		return mudkit.WithStack(err)
	}
	return mudkit.WithStack(c.game.storage.StoreUser(user))
}

func (c *Connection) createUser() error {
	fmt.Fprint(c.term, "** Create user **\n\n")
	var user *structs.User
	for user == nil {
		fmt.Fprint(c.term, "Enter new username or [abort]:\n")
		username, err := c.term.ReadLine()
		if err != nil {
			return err
		}
		if username == "abort" {
			return mudkit.WithStack(ErrOperationAborted)
		}
		if err := validateUsername(username); err != nil {
			fmt.Fprintln(c.term, err.Error())
			continue
		}
		if _, err = c.game.storage.LoadUser(username); errors.Is(err, os.ErrNotExist) {
			user = &structs.User{
				Name: username,
			}
		} else if err == nil {
			fmt.Fprintln(c.term, "Username already exists!")
		} else {
			return mudkit.WithStack(err)
		}
	}
	for user.PasswordHash == "" {
		fmt.Fprintln(c.term, "Enter new password:")
		password, err := c.term.ReadPassword("> ")
		if err != nil {
			return err
		}
		if password == "abort" {
			fmt.Fprintln(c.term, "Password cannot be 'abort' (reserved keyword).")
			continue
		}
		fmt.Fprintln(c.term, "Repeat new password:")
		verification, err := c.term.ReadPassword("> ")
		if err != nil {
			return err
		}
		if password == verification {
			selection, err := c.SelectReturn(fmt.Sprintf("Create user %q with provided password?", user.Name), []string{"y", "n", "abort"})
			if err != nil {
				return err
			}
			switch selection {
			case "abort":
				return mudkit.WithStack(ErrOperationAborted)
			case "y":
				hash, err := hashPassword(password)
				if err != nil {
					return mudkit.WithStack(err)
				}
				user.PasswordHash = hash
			}
		} else {
			fmt.Fprintln(c.term, "Passwords don't match!")
		}
	}
	obj, err := c.game.createCharacter(user)
	if err != nil {
		return mudkit.WithStack(err)
	}
	user.LastLogin = time.Now().UTC()
	if err := c.game.storage.CreateUser(user); errors.Is(err, os.ErrExist) {
		// Someone took the name while we asked for the password.
		if err := c.game.storage.RemoveObject(obj.Id); err != nil {
			log.Printf("Removing orphaned character %q: %v", obj.Id, err)
		}
		fmt.Fprintln(c.term, "Username already exists!")
		return mudkit.WithStack(ErrOperationAborted)
	} else if err != nil {
		return mudkit.WithStack(err)
	}
	c.user = user
	c.game.storage.AuditLog(c.ctx, "USER_CREATE", storage.AuditUserCreate{
		User:   storage.UserRef(c.user),
		Remote: c.remote(),
	})
	fmt.Fprintf(c.term, "Welcome %s!\n\n", c.user.Name)
	return nil
}
