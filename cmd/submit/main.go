package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		baseURL    string
		message    string
		token      string
		authorName string
		userID     string
		ipAddress  string
		list       bool
		limit      int
		timeout    time.Duration
	)

	flagSet := pflag.NewFlagSet("submit", pflag.ContinueOnError)
	flagSet.StringVar(&baseURL, "url", "http://localhost:8080", "gateway base URL")
	flagSet.StringVarP(&message, "message", "m", "", "message to post (max 500 characters)")
	flagSet.StringVar(&token, "token", "", "identity bearer token (omit to post anonymously)")
	flagSet.StringVar(&authorName, "author-name", "", "author display name (only when the gateway trusts body identity)")
	flagSet.StringVar(&userID, "user-id", "", "identity id (only when the gateway trusts body identity)")
	flagSet.StringVar(&ipAddress, "ip", "", "source address to report (only when the gateway trusts it)")
	flagSet.BoolVar(&list, "list", false, "list recent entries instead of posting")
	flagSet.IntVar(&limit, "limit", 20, "entries to list")
	flagSet.DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	c := &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{},
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if list {
		res := c.list(ctx, limit)
		if !res.OK {
			return errors.New(res.Message)
		}
		for _, e := range res.Entries {
			author := "Anonymous"
			if e.AuthorName != nil {
				author = *e.AuthorName
			}
			fmt.Printf("%s  %-20s %s\n", e.CreatedAt.Local().Format(time.DateTime), author, e.Message)
		}
		return nil
	}

	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return errors.New("Please enter a message")
	}
	if len([]rune(trimmed)) > 500 {
		return errors.New("Message is too long (max 500 characters)")
	}

	s := submission{Message: trimmed, IsAnonymous: token == "" && userID == ""}
	if userID != "" {
		s.UserID = &userID
	}
	if authorName != "" {
		s.AuthorName = &authorName
	}
	if s.IsAnonymous && ipAddress != "" {
		s.IPAddress = &ipAddress
	}

	res := c.submit(ctx, s)
	if !res.OK {
		return errors.New(res.Message)
	}
	fmt.Printf("Message posted successfully (id %s)\n", res.Entry.ID)
	return nil
}
