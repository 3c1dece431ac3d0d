// LinkTally - URL Shortening and Click Analytics Service
// Copyright 2026 R. Marins (rmarins)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rmarins/linktally

// Package main is the linktally-admin provisioning tool. It creates
// admin accounts directly against the database, which is how the first
// account is bootstrapped before the admin API is reachable.
//
//	DATABASE_URL=postgres://... JWT_SECRET=... \
//	  linktally-admin -username alice -email alice@example.com -password 'swordfish-1'
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rmarins/linktally/internal/auth"
	"github.com/rmarins/linktally/internal/config"
	"github.com/rmarins/linktally/internal/database"
	"github.com/rmarins/linktally/internal/logging"
	"github.com/rmarins/linktally/internal/models"
	"github.com/rmarins/linktally/internal/validation"
)

func main() {
	username := flag.String("username", "", "username for the new admin account")
	email := flag.String("email", "", "email for the new admin account")
	password := flag.String("password", "", "password for the new admin account")
	fullName := flag.String("full-name", "", "optional full name for the new admin account")
	flag.Parse()

	if *username == "" || *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: linktally-admin -username <name> -email <address> -password <password> [-full-name <name>]")
		os.Exit(2)
	}
	req := models.CreateUserRequest{Username: *username, Email: *email, Password: *password, FullName: *fullName}
	if verr := validation.ValidateStruct(&req); verr != nil {
		fmt.Fprintf(os.Stderr, "invalid account details: %s\n", verr.Error())
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{Level: "warn", Format: "console"})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	tokens, err := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.SessionTimeout)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize token manager")
	}
	svc := auth.NewService(db, auth.NewPasswordHasher(cfg.Security.BcryptCost), tokens)

	user, err := svc.CreateUser(ctx, req.Username, req.Email, req.Password, req.FullName)
	if err != nil {
		logging.Fatal().Err(err).Str("username", req.Username).Msg("Failed to create admin account")
	}
	fmt.Printf("created admin account %q (id %d)\n", user.Username, user.ID)
}
