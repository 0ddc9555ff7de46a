// Command smoke logs in to a running API and walks the read endpoints through pkg/client,
// exiting non-zero when a critical check fails.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/client"
)

type check struct {
	name     string
	critical bool
	run      func(ctx context.Context, c *client.Client) (string, error)
}

func main() {
	var (
		baseURL  string
		email    string
		password string
		timeout  time.Duration
	)
	flag.StringVar(&baseURL, "base", "http://localhost:8080/api/v1", "API base URL including prefix")
	flag.StringVar(&email, "email", os.Getenv("SMOKE_EMAIL"), "Login email")
	flag.StringVar(&password, "password", os.Getenv("SMOKE_PASSWORD"), "Login password")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "Per-check timeout")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync() //nolint:errcheck

	c, err := client.New(client.Config{BaseURL: baseURL, Logger: logger})
	if err != nil {
		logger.Fatal("build client", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	if _, err := c.Login(ctx, email, password); err != nil {
		cancel()
		logger.Fatal("login failed", zap.Error(err))
	}
	cancel()

	breaking := 0
	for _, chk := range checks() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		start := time.Now()
		detail, err := chk.run(ctx, c)
		cancel()

		fields := []zap.Field{zap.String("check", chk.name), zap.Duration("took", time.Since(start))}
		if err != nil {
			if chk.critical {
				breaking++
			}
			logger.Error("check failed", append(fields, zap.Bool("critical", chk.critical), zap.Error(err))...)
			continue
		}
		logger.Info("check passed", append(fields, zap.String("detail", detail))...)
	}

	if breaking > 0 {
		logger.Error("smoke run failed", zap.Int("breaking", breaking))
		os.Exit(1)
	}
}

func checks() []check {
	return []check{
		{name: "me", critical: true, run: func(ctx context.Context, c *client.Client) (string, error) {
			me, err := c.Me(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s (%d permissions)", me.Email, len(me.Permissions)), nil
		}},
		{name: "permissions", critical: true, run: func(ctx context.Context, c *client.Client) (string, error) {
			page, err := c.ListPermissions(ctx, models.PermissionFilter{Limit: 100})
			return pageDetail(page.Total, page.TotalPages, err)
		}},
		{name: "roles", critical: true, run: func(ctx context.Context, c *client.Client) (string, error) {
			page, err := c.ListRoles(ctx, models.RoleFilter{})
			return pageDetail(page.Total, page.TotalPages, err)
		}},
		{name: "role stats", run: func(ctx context.Context, c *client.Client) (string, error) {
			stats, err := c.RoleStats(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d roles, %d permissions", stats.TotalRoles, stats.TotalPermissions), nil
		}},
		{name: "users", critical: true, run: func(ctx context.Context, c *client.Client) (string, error) {
			page, err := c.ListUsers(ctx, models.UserFilter{Statuses: []models.UserStatus{models.UserStatusActive}})
			return pageDetail(page.Total, page.TotalPages, err)
		}},
		{name: "properties", run: func(ctx context.Context, c *client.Client) (string, error) {
			page, err := c.ListProperties(ctx, models.PropertyFilter{})
			return pageDetail(page.Total, page.TotalPages, err)
		}},
		{name: "cities", run: func(ctx context.Context, c *client.Client) (string, error) {
			cities, err := c.Cities(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d cities", len(cities)), nil
		}},
	}
}

func pageDetail(total, pages int, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d items over %d pages", total, pages), nil
}
