package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-hr-session/internal/config"
	"github.com/jrsteele09/go-hr-session/internal/logging"
	"github.com/jrsteele09/go-hr-session/internal/mockapi"
	"github.com/jrsteele09/go-hr-session/users"
)

var demoUsers = []users.Profile{
	{Username: "admin", FirstName: "Ada", LastName: "Admin", Email: "admin@hr.local", Role: users.RoleAdmin, IsStaff: true},
	{Username: "hr", FirstName: "Harriet", LastName: "Reyes", Email: "hr@hr.local", Role: users.RoleHRManager},
	{Username: "recruiter", FirstName: "Rosa", LastName: "Quinn", Email: "recruiter@hr.local", Role: users.RoleRecruiter},
	{Username: "manager", FirstName: "Milo", LastName: "Grant", Email: "manager@hr.local", Role: users.RoleManager},
	{Username: "employee", FirstName: "Eli", LastName: "Park", Email: "employee@hr.local", Role: users.RoleEmployee},
}

var (
	addr   = flag.String("addr", config.GetEnv("HRAUTH_MOCKAPI_ADDR", ":8000"), "listen address")
	ttl    = flag.Duration("access-ttl", 10*time.Minute, "access token lifetime")
	rotate = flag.Bool("rotate", false, "issue a new refresh token on every refresh")
)

func main() {
	flag.Parse()
	for {
		if err := run(); err != nil {
			log.Printf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	logger := logging.New(config.GetEnv("HRAUTH_ENV", "DEV"), config.GetEnv("HRAUTH_LOG_LEVEL", "info"))
	opts := []mockapi.Option{mockapi.WithAccessTTL(*ttl), mockapi.WithLogger(logger)}
	if *rotate {
		opts = append(opts, mockapi.WithRotation())
	}
	api := mockapi.New(opts...)

	displayAppname("hr mock api")
	if err := seedUsers(api); err != nil {
		return err
	}

	server := &http.Server{Addr: *addr, Handler: api.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(server) }()

	select {
	case err := <-errCh:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(server)
}

func seedUsers(api *mockapi.Server) error {
	log.Printf("🔧 Seeding demo accounts...")
	for _, profile := range demoUsers {
		password, err := generatePassword()
		if err != nil {
			return fmt.Errorf("failed to generate password for %s: %w", profile.Username, err)
		}
		api.AddUser(profile.Username, password, profile)
		log.Printf("👤 %-10s %-12s password: %s", profile.Username, profile.Role, password)
	}
	log.Printf("⚠️  Passwords are regenerated on every start")
	return nil
}

func generatePassword() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s (API under /api)\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
