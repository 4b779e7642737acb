package main

import (
	"context"
	"fmt"
	"io"

	assist "github.com/notelens/assist-client"
)

func runChat(ctx context.Context, c *assist.Client, model, prompt string, streaming bool, out io.Writer) error {
	env := assist.RequestEnvelope{
		Model:    model,
		Messages: []assist.Message{{Role: assist.RoleUser, Content: prompt}},
	}
	if streaming {
		env.Stream = true
		env.OnChunk = func(s string) { fmt.Fprint(out, s) }
	}

	res, err := c.Chat(ctx, env)
	if err != nil {
		if dec, ok := assist.AsAdmissionDenied(err); ok {
			return fmt.Errorf("denied: %s (current %d, limit %d)", dec.Reason, dec.Current, dec.Limit)
		}
		return err
	}
	if err := c.Flush(ctx); err != nil {
		return err
	}

	if streaming {
		fmt.Fprintln(out)
	} else {
		fmt.Fprintln(out, res.Content)
	}
	fmt.Fprintf(out, "[%s, %d tokens]\n", res.FullModelID, res.Tokens.Total)
	return nil
}
