// Command campaignsctl is a small terminal client for the campaigns portal.
// It demonstrates the full session lifecycle: logging in, restoring a stored
// session, listing campaigns, and watching session state until interrupted.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/i9smart/go-campaigns-client/api"
	"github.com/i9smart/go-campaigns-client/auth"
	"github.com/i9smart/go-campaigns-client/internal/config"
	"github.com/i9smart/go-campaigns-client/token/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "campaignsctl: %s\n", err)
		os.Exit(1)
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	if len(os.Args) < 2 {
		usage()
		return errors.New("missing command")
	}

	c := config.New()
	logger := newLogger(c)

	st, err := newStore(c)
	if err != nil {
		return err
	}

	client, err := api.New(c.GetBaseURL(), st,
		api.WithLogger(logger),
		api.WithTimeout(time.Duration(c.GetRequestTimeoutSeconds())*time.Second),
	)
	if err != nil {
		return err
	}

	coord, err := auth.NewCoordinator(client, st, auth.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx := context.Background()
	switch os.Args[1] {
	case "login":
		return login(ctx, coord, st)
	case "whoami":
		return whoami(ctx, coord)
	case "campaigns":
		return listCampaigns(ctx, coord, client)
	case "logout":
		coord.Start(ctx)
		defer coord.Stop()
		coord.Logout(ctx)
		fmt.Println("Logged out.")
		return nil
	case "session":
		return watchSession(ctx, c, coord)
	default:
		usage()
		return fmt.Errorf("unknown command %q", os.Args[1])
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: campaignsctl <command>

commands:
  login      sign in and store the session
  whoami     show the signed-in user
  campaigns  list campaigns
  logout     end the session
  session    watch session state until interrupted`)
}

func newLogger(c config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// newStore picks Redis when configured, the token file otherwise.
func newStore(c config.Config) (store.Store, error) {
	if addr := c.GetRedisAddr(); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr, Password: c.GetRedisPassword()})
		return store.NewRedis(rdb, c.GetRedisKeyPrefix())
	}
	return store.NewFile(c.GetTokenFile()), nil
}

func login(ctx context.Context, coord *auth.Coordinator, st store.Store) error {
	reader := bufio.NewReader(os.Stdin)

	defaultUser, _ := st.RememberedUsername(ctx)
	if defaultUser != "" {
		fmt.Printf("Username [%s]: ", defaultUser)
	} else {
		fmt.Print("Username: ")
	}
	username, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username = defaultUser
	}

	fmt.Print("Password: ")
	password, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	password = strings.TrimSpace(password)

	coord.Start(ctx)
	defer coord.Stop()

	creds := api.Credentials{Username: username, Password: password}
	if err := coord.Login(ctx, creds, true); err != nil {
		return err
	}

	snap := coord.Snapshot()
	if snap.User != nil {
		fmt.Printf("Signed in as %s (%s)\n", snap.User.DisplayName(), snap.User.Role)
	}
	return nil
}

func whoami(ctx context.Context, coord *auth.Coordinator) error {
	coord.Start(ctx)
	defer coord.Stop()

	snap := coord.Snapshot()
	if snap.State != auth.StateAuthenticated || snap.User == nil {
		return errors.New("not signed in")
	}
	u := snap.User
	fmt.Printf("%s <%s>\nrole: %s  active: %t  verified: %t\n",
		u.DisplayName(), u.Email, u.Role, u.IsActive, u.IsVerified)
	return nil
}

func listCampaigns(ctx context.Context, coord *auth.Coordinator, client *api.Client) error {
	coord.Start(ctx)
	defer coord.Stop()

	if coord.Snapshot().State != auth.StateAuthenticated {
		return errors.New("not signed in")
	}

	campaigns, err := client.ListCampaigns(ctx, api.CampaignListParams{})
	if err != nil {
		return err
	}
	if len(campaigns) == 0 {
		fmt.Println("No campaigns.")
		return nil
	}
	for _, cp := range campaigns {
		status := cp.Status
		if status == "" {
			status = "-"
		}
		fmt.Printf("%-36s  %-10s  p%-3d  %s\n", cp.ID, status, cp.Priority, cp.Name)
	}
	return nil
}

// watchSession keeps the coordinator running so the renewal scheduler and the
// cross-process watcher can be observed, until SIGINT/SIGTERM.
func watchSession(ctx context.Context, c config.Config, coord *auth.Coordinator) error {
	displayAppname(c.GetAppName())

	coord.OnChange(func(snap auth.Snapshot) {
		who := "-"
		if snap.User != nil {
			who = snap.User.Username
		}
		fmt.Printf("session: %s (%s)\n", snap.State, who)
	})

	coord.Start(ctx)
	defer coord.Stop()
	fmt.Printf("session: %s\n", coord.Snapshot().State)

	waitForStopSignal()
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
