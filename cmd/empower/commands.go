package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/empowerhr/empower-client/auth"
	"github.com/empowerhr/empower-client/internal/errors"
)

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.cmdLogin(ctx, args)
	case "logout":
		return a.cmdLogout()
	case "whoami":
		return a.cmdWhoami(ctx)
	case "refresh":
		return a.cmdRefresh(ctx)
	case "bands":
		return a.cmdBands(ctx, args)
	case "titles":
		return a.cmdTitles(ctx, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("login", flag.ExitOnError)
	username := flags.String("username", "", "account username")
	password := flags.String("password", "", "account password (prompted if omitted)")
	remember := flags.Bool("remember", false, "keep the session across restarts")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *password == "" {
		fmt.Print("Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		*password = strings.TrimRight(line, "\r\n")
	}

	if _, err := a.controller.Login(ctx, *username, *password, *remember); err != nil {
		return fmt.Errorf("%s", auth.Message(err))
	}

	user := a.controller.CurrentUser()
	fmt.Printf("Logged in as %s (%s)\n", user.FullName, user.UserName)
	fmt.Printf("Landing route: %s\n", a.controller.RedirectAfterLogin())
	return nil
}

func (a *app) cmdLogout() error {
	a.controller.RestoreSession()
	a.controller.Logout()
	fmt.Println("Logged out")
	return nil
}

func (a *app) cmdWhoami(ctx context.Context) error {
	if !a.controller.RestoreSession() {
		return errors.ErrNotAuthenticated
	}

	user := a.controller.CurrentUser()
	fmt.Printf("User:        %s (%s)\n", user.FullName, user.UserName)
	fmt.Printf("Type:        %s\n", user.Type)
	fmt.Printf("Roles:       %s\n", strings.Join(a.controller.Roles(), ", "))
	fmt.Printf("Permissions: %s\n", strings.Join(a.controller.Permissions(), ", "))
	if expiresAt, ok := a.store.ExpiresAt(); ok {
		fmt.Printf("Expires:     %s\n", expiresAt.Format(time.RFC3339))
	}

	profile, err := a.client.Account().Me(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("fetching profile")
		return nil
	}
	fmt.Printf("Email:       %s\n", profile.Email)
	if profile.JobTitle != "" {
		fmt.Printf("Job title:   %s\n", profile.JobTitle)
	}
	return nil
}

func (a *app) cmdRefresh(ctx context.Context) error {
	if !a.controller.RestoreSession() {
		return errors.ErrNotAuthenticated
	}
	if _, err := a.controller.Refresh(ctx); err != nil {
		return fmt.Errorf("%s", auth.Message(err))
	}
	if expiresAt, ok := a.store.ExpiresAt(); ok {
		fmt.Printf("Session refreshed, expires %s\n", expiresAt.Format(time.RFC3339))
	}
	return nil
}

func (a *app) cmdBands(ctx context.Context, args []string) error {
	page, pageSize, name, err := parseListFlags("bands", args)
	if err != nil {
		return err
	}
	if !a.controller.RestoreSession() {
		return errors.ErrNotAuthenticated
	}

	list, err := a.client.Bands().List(ctx, page, pageSize, name)
	if err != nil {
		return err
	}
	for _, band := range list.Bands {
		fmt.Printf("%s\t%s\n", band.ID, band.Name)
	}
	fmt.Printf("%d of %d bands\n", len(list.Bands), list.TotalCount)
	return nil
}

func (a *app) cmdTitles(ctx context.Context, args []string) error {
	page, pageSize, name, err := parseListFlags("titles", args)
	if err != nil {
		return err
	}
	if !a.controller.RestoreSession() {
		return errors.ErrNotAuthenticated
	}

	list, err := a.client.Titles().List(ctx, page, pageSize, name)
	if err != nil {
		return err
	}
	for _, title := range list.Titles {
		fmt.Printf("%s\t%s\n", title.ID, title.Name)
	}
	fmt.Printf("%d of %d titles\n", len(list.Titles), list.TotalCount)
	return nil
}

func parseListFlags(command string, args []string) (page, pageSize int, name string, err error) {
	flags := flag.NewFlagSet(command, flag.ExitOnError)
	pageFlag := flags.Int("page", 0, "page number")
	sizeFlag := flags.Int("size", 20, "page size")
	nameFlag := flags.String("name", "", "name filter")
	if err := flags.Parse(args); err != nil {
		return 0, 0, "", err
	}
	return *pageFlag, *sizeFlag, *nameFlag, nil
}
