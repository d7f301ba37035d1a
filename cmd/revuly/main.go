// Command revuly is a terminal front end for the Revuly client core. It
// stands in for the web UI containers: it wires the store, HTTP client,
// domain services and session together and drives the exposed operations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/revuly/revuly-go/internal/config"
	"github.com/revuly/revuly-go/internal/feed"
	"github.com/revuly/revuly-go/internal/httpclient"
	"github.com/revuly/revuly-go/internal/localstore"
	"github.com/revuly/revuly-go/internal/logging"
	"github.com/revuly/revuly-go/internal/notify"
	"github.com/revuly/revuly-go/internal/services"
	"github.com/revuly/revuly-go/internal/session"
)

const usage = `usage: revuly <command> [flags]

commands:
  login     -email -password
  register  -email -password -business -type
  logout
  whoami
  reviews   [-page N]
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	a := newApp(cfg, log)
	ctx := context.Background()

	var cmdErr error
	switch os.Args[1] {
	case "login":
		cmdErr = a.login(ctx, os.Args[2:])
	case "register":
		cmdErr = a.register(ctx, os.Args[2:])
	case "logout":
		a.session.Logout()
		fmt.Println("logged out")
	case "whoami":
		cmdErr = a.whoami()
	case "reviews":
		cmdErr = a.reviews(ctx, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if cmdErr != nil {
		log.Error(cmdErr)
		os.Exit(1)
	}
}

type app struct {
	cfg       *config.Config
	log       *logrus.Logger
	creds     *localstore.Store
	client    *httpclient.Client
	reviewSvc *services.ReviewService
	session   *session.Store
}

// newApp builds the component graph in dependency order: store, client,
// services, session, then the client hooks that close the loop.
func newApp(cfg *config.Config, log *logrus.Logger) *app {
	creds := localstore.New(cfg.CookieFile(), cfg.StorePrefix, log)
	local := localstore.New(cfg.SessionFile(), cfg.StorePrefix, log)

	clientCfg := httpclient.Config{
		BaseURL:         cfg.APIBaseURL,
		TokenCookie:     cfg.TokenCookie,
		ProtectedPrefix: cfg.ProtectedPrefix,
		Timeout:         cfg.HTTPTimeout,
	}
	if cfg.EnableRetry {
		clientCfg.Transport = httpclient.NewRetryTransport(nil, httpclient.DefaultRetryConfig())
	}
	client := httpclient.New(clientCfg, creds, log)

	users := services.NewUserService(client)
	reviews := services.NewReviewService(client)
	sess := session.New(users, creds, local, session.Options{
		TokenCookie: cfg.TokenCookie,
		SnapshotKey: cfg.SessionKey,
	}, log)

	client.SetHooks(httpclient.Hooks{
		Notifier: notify.NewLog(log),
		// The terminal client always operates inside the authenticated
		// section once a session exists.
		Location: func() string {
			if sess.User() != nil {
				return cfg.ProtectedPrefix + "/dashboard"
			}
			return "/"
		},
		OnSessionExpired: sess.Logout,
		Reload:           func() {},
	})

	return &app{
		cfg:       cfg,
		log:       log,
		creds:     creds,
		client:    client,
		reviewSvc: reviews,
		session:   sess,
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	_ = fs.Parse(args)

	res, err := a.session.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	return a.adoptSession(res)
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	business := fs.String("business", "", "business name")
	businessType := fs.String("type", "", "business type")
	_ = fs.Parse(args)

	res, err := a.session.Register(ctx, *email, *password, *business, *businessType)
	if err != nil {
		return err
	}
	return a.adoptSession(res)
}

// adoptSession persists the credential and identity from a successful auth
// response. The session store leaves this orchestration to its caller.
func (a *app) adoptSession(res *services.AuthResult) error {
	if !res.Success {
		return fmt.Errorf("%s", res.Message)
	}
	if res.Auth == nil {
		return fmt.Errorf("auth response carried no payload")
	}

	a.creds.Set(a.cfg.TokenCookie, res.Auth.Token)
	user := res.Auth.User
	a.session.SetUser(&user)

	fmt.Printf("signed in as %s (%s)\n", user.Email, user.Business.Name)
	return nil
}

func (a *app) whoami() error {
	user := a.session.User()
	if user == nil {
		fmt.Println("not signed in")
		return nil
	}
	fmt.Printf("%s\nbusiness: %s (%s)\nslug: %s\n", user.Email, user.Business.Name, user.Business.Type, user.Business.Slug)
	if exp := a.session.TokenExpiresAt(); !exp.IsZero() {
		fmt.Printf("token expires: %s\n", exp.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func (a *app) reviews(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reviews", flag.ExitOnError)
	page := fs.Int("page", 1, "page to show")
	_ = fs.Parse(args)

	user := a.session.User()
	if user == nil {
		return fmt.Errorf("not signed in")
	}

	ctrl := feed.New(a.reviewSvc, user.Business.Slug, a.cfg.PageSize, a.log)
	if err := ctrl.Load(ctx); err != nil {
		return err
	}
	if *page > 1 {
		if err := ctrl.ChangePage(ctx, *page); err != nil {
			return err
		}
	}

	items := ctrl.Items()
	if ctrl.Total() == 0 {
		fmt.Println("no reviews yet")
		return nil
	}

	for _, r := range items {
		fmt.Printf("%-5s %s — %s\n", stars(r.Rating), r.ReviewerName, r.CreatedAt.Format("Jan 2, 2006"))
		fmt.Printf("      %s\n", r.ReviewText)
	}
	fmt.Printf("\npage %d of %d (%d reviews)\n", ctrl.Page(), ctrl.TotalPages(), ctrl.Total())
	fmt.Println(renderPager(ctrl.PageNumbers(), ctrl.Page()))
	return nil
}

func stars(rating float64) string {
	full := int(rating)
	if full > 5 {
		full = 5
	}
	return strings.Repeat("★", full) + strings.Repeat("☆", 5-full)
}

func renderPager(items []feed.PageItem, current int) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		switch {
		case it.Gap:
			parts = append(parts, "…")
		case it.Page == current:
			parts = append(parts, fmt.Sprintf("[%d]", it.Page))
		default:
			parts = append(parts, fmt.Sprintf("%d", it.Page))
		}
	}
	return strings.Join(parts, " ")
}
