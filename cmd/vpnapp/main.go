// Package main provides the command-line shell around the vpnapp client core.
//
// It is a presentation collaborator: all state lives in the session and
// connection managers, the CLI only issues intents and renders snapshots.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"golang.org/x/term"

	"github.com/resuldeger/vpnapp/internal/api"
	"github.com/resuldeger/vpnapp/internal/apperr"
	"github.com/resuldeger/vpnapp/internal/config"
	"github.com/resuldeger/vpnapp/internal/connection"
	"github.com/resuldeger/vpnapp/internal/domain"
	"github.com/resuldeger/vpnapp/internal/logging"
	"github.com/resuldeger/vpnapp/internal/session"
	"github.com/resuldeger/vpnapp/internal/tokenstore"
	"github.com/resuldeger/vpnapp/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", apperr.MessageOf(err))
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	app, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer app.connections.Close()

	if len(os.Args) < 2 {
		printUsage()
		return nil
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "register":
		return app.register(ctx)
	case "login":
		return app.login(ctx)
	case "logout":
		app.sessions.Logout(ctx)
		fmt.Println("Logged out.")
		return nil
	case "profile":
		return app.profile(ctx)
	case "servers":
		return app.listServers(ctx)
	case "connect":
		var serverID string
		if len(os.Args) > 2 {
			serverID = os.Args[2]
		}
		return app.connect(ctx, serverID)
	case "forgot-password":
		return app.forgotPassword(ctx)
	case "upgrade":
		return app.upgrade(ctx)
	case "version":
		info := version.Get()
		fmt.Printf("vpnapp %s (%s, built %s, %s)\n", info.Version, info.Commit, info.BuildTime, info.GoVersion)
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", os.Args[1])
	}
}

func printUsage() {
	fmt.Println(`Usage: vpnapp <command>

Commands:
  register          create an account and log in
  login             log in to an existing account
  logout            log out and forget the stored token
  profile           show the current account profile
  servers           list the server catalog
  connect [id]      connect to a server (default: current selection)
  forgot-password   request a password reset mail
  upgrade           upgrade the account to premium
  version           print build information`)
}

type app struct {
	cfg         *config.Config
	client      *api.Client
	sessions    *session.Manager
	connections *connection.Manager
}

func newApp(cfg *config.Config) (*app, error) {
	store, err := tokenstore.NewFileStore(cfg.TokenFile)
	if err != nil {
		return nil, err
	}

	client := api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout, nil)
	sessions := session.NewManager(client, store)
	client.SetCredentialSource(sessions)

	clock := clockwork.NewRealClock()
	dialer := connection.NewSimulatedDialer(clock, cfg.ConnectDelay)
	connections := connection.NewManager(client, dialer, clock, cfg.DisconnectDelay)

	return &app{
		cfg:         cfg,
		client:      client,
		sessions:    sessions,
		connections: connections,
	}, nil
}

func (a *app) register(ctx context.Context) error {
	email, password, err := promptCredentials()
	if err != nil {
		return err
	}

	user, err := a.sessions.Register(ctx, email, password)
	if err != nil {
		return err
	}

	fmt.Printf("Registered and logged in as %s (%s tier)\n", user.Email, user.SubscriptionTier)
	return nil
}

func (a *app) login(ctx context.Context) error {
	email, password, err := promptCredentials()
	if err != nil {
		return err
	}

	user, err := a.sessions.Login(ctx, email, password)
	if err != nil {
		return err
	}

	fmt.Printf("Logged in as %s (%s tier)\n", user.Email, user.SubscriptionTier)
	return nil
}

func (a *app) profile(ctx context.Context) error {
	a.sessions.LoadUser(ctx)

	snap := a.sessions.State()
	switch snap.Mode {
	case domain.ModeAuthenticated:
		user := snap.User
		fmt.Printf("ID:     %s\nEmail:  %s\nTier:   %s\n", user.ID, user.Email, user.SubscriptionTier)
		if user.SubscriptionExpiresAt != nil {
			fmt.Printf("Expiry: %s\n", user.SubscriptionExpiresAt.Format(time.RFC3339))
		}
	default:
		fmt.Println("Not logged in.")
	}
	return nil
}

func (a *app) listServers(ctx context.Context) error {
	a.restoreOrGuest(ctx)

	servers, err := a.connections.FetchServers(ctx)
	if err != nil {
		return err
	}

	for _, server := range servers {
		marker := " "
		if server.IsPremium {
			marker = "*"
		}
		fmt.Printf("%s %-36s %-28s %-9s load %3d%%  ping %3dms\n",
			marker, server.ID, server.Name, server.ProxyType, server.LoadPercentage, server.PingMs)
	}
	fmt.Println("\n* premium server")
	return nil
}

func (a *app) connect(ctx context.Context, serverID string) error {
	a.restoreOrGuest(ctx)

	if _, err := a.connections.FetchServers(ctx); err != nil {
		return err
	}

	if serverID != "" {
		snap := a.connections.State()
		var target *domain.Server
		for _, server := range snap.Servers {
			if server.ID == serverID {
				s := server
				target = &s
				break
			}
		}
		if target == nil {
			return domain.ErrServerNotFound
		}

		// Premium gating happens here, before SelectServer: the connection
		// manager never reads the subscription tier.
		if target.IsPremium && !a.isPremium() {
			return apperr.ValidationError("This is a premium server. Run `vpnapp upgrade` to access it.")
		}
		a.connections.SelectServer(*target)
	}

	snap := a.connections.State()
	if snap.SelectedServer == nil {
		return domain.ErrNoServerSelected
	}
	fmt.Printf("Connecting to %s...\n", snap.SelectedServer.Name)

	statusCh := make(chan connection.Snapshot, 16)
	a.connections.Subscribe(func(s connection.Snapshot) { statusCh <- s })

	a.connections.Connect()
	for snap := range statusCh {
		fmt.Printf("  status: %s\n", snap.Status)
		if snap.Status == domain.StatusConnected {
			break
		}
		if snap.Status == domain.StatusDisconnected {
			if snap.LastError != nil {
				return snap.LastError
			}
			return nil
		}
	}

	fmt.Println("Connected. Press Ctrl-C or Enter to disconnect.")
	waitForInterruptOrEnter()

	a.connections.Disconnect()
	for snap := range statusCh {
		fmt.Printf("  status: %s\n", snap.Status)
		if snap.Status == domain.StatusDisconnected {
			break
		}
	}
	return nil
}

func (a *app) forgotPassword(ctx context.Context) error {
	email, err := promptLine("Email: ")
	if err != nil {
		return err
	}
	if err := a.client.ForgotPassword(ctx, email); err != nil {
		return err
	}
	fmt.Println("If the address exists, a reset mail is on its way.")
	return nil
}

func (a *app) upgrade(ctx context.Context) error {
	a.sessions.LoadUser(ctx)
	if a.sessions.State().Mode != domain.ModeAuthenticated {
		return apperr.ValidationError("Log in before upgrading.")
	}

	if err := a.client.UpgradeSubscription(ctx); err != nil {
		return err
	}

	a.sessions.RefreshProfile(ctx)
	fmt.Println("Subscription upgraded.")
	return nil
}

// restoreOrGuest restores a persisted session, falling back to guest mode so
// catalog browsing works without an account.
func (a *app) restoreOrGuest(ctx context.Context) {
	a.sessions.LoadUser(ctx)
	if a.sessions.State().Mode == domain.ModeUnauthenticated {
		a.sessions.ContinueAsGuest()
	}
}

func (a *app) isPremium() bool {
	snap := a.sessions.State()
	return snap.User != nil && snap.User.IsPremium()
}

func promptCredentials() (string, string, error) {
	email, err := promptLine("Email: ")
	if err != nil {
		return "", "", err
	}

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", "", fmt.Errorf("failed to read password: %w", err)
	}

	return email, string(password), nil
}

func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	var line string
	if _, err := fmt.Scanln(&line); err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func waitForInterruptOrEnter() {
	done := make(chan struct{})
	go func() {
		var discard string
		_, _ = fmt.Scanln(&discard)
		close(done)
	}()
	<-done
}
