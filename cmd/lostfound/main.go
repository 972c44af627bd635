// Command lostfound is a terminal client for the find-and-returned
// platform: browse and post found-item listings, authenticate, and
// exchange messages with other users.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mbathio/find-and-returned/internal/api"
	"github.com/mbathio/find-and-returned/internal/cache"
	"github.com/mbathio/find-and-returned/internal/config"
	"github.com/mbathio/find-and-returned/internal/domain"
	"github.com/mbathio/find-and-returned/internal/observability"
	"github.com/mbathio/find-and-returned/internal/service"
	"github.com/mbathio/find-and-returned/internal/session"
	"github.com/mbathio/find-and-returned/internal/storage"
)

// terminalNavigator stands in for the browser's location bar. When the
// client redirects to the login surface it prints the target instead.
type terminalNavigator struct {
	mu   sync.Mutex
	path string
}

func (n *terminalNavigator) SetPath(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.path = path
}

func (n *terminalNavigator) CurrentPath() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.path == "" {
		return "/"
	}
	return n.path
}

func (n *terminalNavigator) Navigate(path string) {
	fmt.Fprintf(os.Stderr, "session expired, please log in again (%s)\n", path)
}

type app struct {
	nav      *terminalNavigator
	manager  *session.Manager
	auth     *service.AuthService
	listings *service.ListingsService
	messages *service.MessagesService
}

func main() {
	cfg := config.Load()

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "warn"
	}
	observability.InitLogger(logLevel, "text")

	kv, err := storage.OpenFileStore(cfg.StoragePath)
	if err != nil {
		slog.Error("failed to open session storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	store := storage.NewSessionStore(kv)

	nav := &terminalNavigator{}
	client := api.New(api.Options{
		BaseURL:       cfg.APIBaseURL,
		Timeout:       cfg.RequestTimeout,
		Store:         store,
		Navigator:     nav,
		LoginPath:     cfg.LoginPath,
		RatePerSecond: cfg.RatePerSecond,
		RateBurst:     cfg.RateBurst,
	})

	queryCache := cache.New()
	authService := service.NewAuthService(client, store)

	a := &app{
		nav:      nav,
		manager:  session.NewManager(authService, store, queryCache),
		auth:     authService,
		listings: service.NewListingsService(client, queryCache),
		messages: service.NewMessagesService(client, queryCache),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	a.manager.Initialize(ctx)

	if err := a.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		usage()
		return nil
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return a.cmdLogin(ctx, rest)
	case "register":
		return a.cmdRegister(ctx, rest)
	case "logout":
		a.manager.Logout(ctx)
		fmt.Println("logged out")
		return nil
	case "whoami":
		return a.cmdWhoami(ctx)
	case "listings":
		return a.cmdListings(ctx, rest)
	case "listing":
		return a.cmdListing(ctx, rest)
	case "post":
		return a.cmdPost(ctx, rest)
	case "upload":
		return a.cmdUpload(ctx, rest)
	case "threads":
		return a.cmdThreads(ctx)
	case "messages":
		return a.cmdMessages(ctx, rest)
	case "send":
		return a.cmdSend(ctx, rest)
	case "contact":
		return a.cmdContact(ctx, rest)
	case "help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func usage() {
	fmt.Println(`usage: lostfound <command> [flags]

commands:
  login     -email -password             authenticate
  register  -name -email -password ...   create an account
  logout                                 end the session
  whoami                                 show the authenticated user
  listings  [-q] [-category] [-page]     search listings
  listing   <id>                         show one listing
  post      -title -category ...         post a found item
  upload    <file>                       upload an image, print its URL
  threads                                list conversations
  messages  <thread-id>                  show a conversation
  send      <thread-id> <text>           send a message
  contact   <listing-id>                 open a conversation about a listing`)
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return fmt.Errorf("both -email and -password are required")
	}

	auth, err := a.auth.Login(ctx, domain.LoginRequest{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	a.manager.Login(auth.User)
	fmt.Printf("logged in as %s <%s>\n", auth.User.Name, auth.User.Email)
	return nil
}

func (a *app) cmdRegister(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	phone := fs.String("phone", "", "phone number (optional)")
	role := fs.String("role", "finder", "finder, owner or both")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *email == "" || *password == "" {
		return fmt.Errorf("-name, -email and -password are required")
	}

	auth, err := a.auth.Register(ctx, domain.RegisterRequest{
		Name:     *name,
		Email:    *email,
		Password: *password,
		Phone:    *phone,
		Role:     domain.Role(*role),
	})
	if err != nil {
		return err
	}
	a.manager.Login(auth.User)
	fmt.Printf("registered as %s <%s>\n", auth.User.Name, auth.User.Email)
	return nil
}

func (a *app) cmdWhoami(ctx context.Context) error {
	user, err := a.auth.GetCurrentUser(ctx)
	if err != nil {
		return err
	}
	a.manager.UpdateUser(user)
	fmt.Printf("%s <%s> role=%s verified=%t\n", user.Name, user.Email, user.Role, user.EmailVerified)
	return nil
}

func (a *app) cmdListings(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("listings", flag.ContinueOnError)
	query := fs.String("q", "", "free-text search")
	category := fs.String("category", "", "category filter")
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a.nav.SetPath("/listings")
	result, err := a.listings.Search(ctx, domain.ListingSearchParams{
		Query:    *query,
		Category: *category,
		Page:     *page,
	})
	if err != nil {
		return err
	}

	fmt.Printf("%d listings (page %d/%d)\n", result.Total, result.Page, result.TotalPages)
	for _, l := range result.Items {
		fmt.Printf("  %s  [%s] %s - %s (%s)\n", l.ID, l.Category, l.Title, l.LocationText, l.Status)
	}
	return nil
}

func (a *app) cmdListing(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: listing <id>")
	}
	id := args[0]

	a.nav.SetPath("/listings/" + id)
	l, err := a.listings.Get(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("%s [%s]\n%s\nfound at %s near %s\nstatus: %s\n",
		l.Title, l.Category, l.Description, l.FoundAt.Format("2006-01-02"), l.LocationText, l.Status)
	if l.ImageURL != "" {
		fmt.Println("image:", l.ImageURL)
	}
	return nil
}

func (a *app) cmdPost(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("post", flag.ContinueOnError)
	title := fs.String("title", "", "what was found")
	category := fs.String("category", "", "item category")
	location := fs.String("location", "", "where it was found")
	description := fs.String("description", "", "details")
	image := fs.String("image", "", "image URL (use upload first)")
	foundAt := fs.String("found-at", time.Now().Format("2006-01-02"), "date found (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *title == "" || *category == "" {
		return fmt.Errorf("-title and -category are required")
	}

	when, err := time.Parse("2006-01-02", *foundAt)
	if err != nil {
		return fmt.Errorf("invalid -found-at date: %w", err)
	}

	listing, err := a.listings.Create(ctx, domain.CreateListingRequest{
		Title:        *title,
		Category:     *category,
		LocationText: *location,
		Description:  *description,
		ImageURL:     *image,
		FoundAt:      when,
	})
	if err != nil {
		return err
	}
	fmt.Println("posted listing", listing.ID)
	return nil
}

func (a *app) cmdUpload(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: upload <file>")
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	result, err := a.listings.UploadImage(ctx, filepath.Base(args[0]), f, func(pct float64) {
		fmt.Fprintf(os.Stderr, "\ruploading... %3.0f%%", pct)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	fmt.Println(result.URL)
	return nil
}

func (a *app) cmdThreads(ctx context.Context) error {
	a.nav.SetPath("/messages")
	result, err := a.messages.GetThreads(ctx, "", 1, 20)
	if err != nil {
		return err
	}

	fmt.Printf("%d threads\n", result.Total)
	for _, t := range result.Items {
		last := ""
		if t.LastMessage != nil {
			last = " - " + t.LastMessage.Body
		}
		fmt.Printf("  %s  %q with %s (%s)%s\n", t.ID, t.Listing.Title, t.FinderUser.Name, t.Status, last)
	}
	return nil
}

func (a *app) cmdMessages(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: messages <thread-id>")
	}
	threadID := args[0]

	a.nav.SetPath("/messages/" + threadID)
	result, err := a.messages.GetMessages(ctx, threadID, 1, 50)
	if err != nil {
		return err
	}
	if err := a.messages.MarkThreadAsRead(ctx, threadID); err != nil {
		slog.Warn("failed to mark thread as read", slog.String("error", err.Error()))
	}

	for _, m := range result.Items {
		fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Format("15:04"), m.SenderUser.Name, m.Body)
	}
	return nil
}

func (a *app) cmdSend(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: send <thread-id> <text>")
	}

	msg, err := a.messages.SendMessage(ctx, domain.CreateMessageRequest{
		ThreadID: args[0],
		Body:     args[1],
	})
	if err != nil {
		return err
	}
	fmt.Println("sent", msg.ID)
	return nil
}

func (a *app) cmdContact(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: contact <listing-id>")
	}

	thread, err := a.messages.CreateThread(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Println("opened thread", thread.ID)
	return nil
}
