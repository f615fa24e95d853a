package main

// Small CLI for operators: manages analytics sessions and debug tokens, and
// wipes the shared analytics cache.

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/auth"
	"github.com/justbuildstuff-dev/Fitness-App-sub005/internal/config"

	"github.com/go-redis/redis/v8"
)

const usage = `usage: authtool [flags] <session|revoke|jwt|clear-cache>
  session      open a redis session for -user and print its token
  revoke       revoke the session -token
  jwt          sign a token for -user valid for -ttl
  clear-cache  drop every user's snapshots from the shared redis cache`

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	userID := flag.String("user", "", "user id")
	token := flag.String("token", "", "session token")
	ttl := flag.Duration("ttl", time.Hour, "jwt validity")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := config.Load(ctx, *env, *configPath)
	if err != nil {
		fail(err)
	}

	switch flag.Arg(0) {
	case "session":
		store, closeStore := sessionStore(cfg)
		defer closeStore()
		t, err := store.Create(ctx, *userID, time.Now())
		if err != nil {
			fail(err)
		}
		fmt.Println(t)
	case "revoke":
		store, closeStore := sessionStore(cfg)
		defer closeStore()
		revoked, err := store.Revoke(ctx, *token)
		if err != nil {
			fail(err)
		}
		fmt.Printf("revoked: %t\n", revoked)
	case "jwt":
		if cfg.Secrets.JWTSecret == "" {
			fail(fmt.Errorf("FITNESS_JWT_SECRET not set"))
		}
		signed, err := auth.NewTokenResolver(cfg.Secrets.JWTSecret, cfg.Secrets.JWTIssuer, nil).Sign(*userID, *ttl)
		if err != nil {
			fail(err)
		}
		fmt.Println(signed)
	case "clear-cache":
		if err := internal.ClearSharedCache(ctx, cfg); err != nil {
			fail(err)
		}
		fmt.Println("analytics cache cleared")
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func sessionStore(cfg *config.Config) (*auth.SessionStore, func()) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: cfg.Secrets.RedisPassword,
	})
	return auth.NewSessionStore(cfg.SessionTTL, rdb), func() {
		_ = rdb.Close()
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %s\n", err)
	os.Exit(1)
}
