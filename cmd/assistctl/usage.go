package main

import (
	"context"
	"fmt"
	"io"

	assist "github.com/notelens/assist-client"
)

func runUsage(ctx context.Context, c *assist.Client, out io.Writer) error {
	day, err := c.TodayUsage(ctx)
	if err != nil {
		return err
	}
	month, err := c.MonthUsage(ctx)
	if err != nil {
		return err
	}
	sub, err := c.Subscription(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "tier:  %s (%s)\n", sub.Tier, sub.Status)
	fmt.Fprintf(out, "today: %d requests, %d tokens\n", day.Requests, day.Tokens)
	fmt.Fprintf(out, "month: %d requests, %d tokens\n", month.Requests, month.Tokens)
	return nil
}
