// Package tokenmeter embeds the metered provider proxy in a Go program:
// quota checks, provider calls with token accounting, usage reports and the
// calendar resets, over Redis, Valkey, SQLite, PostgreSQL or memory.
//
//	meter, _ := tokenmeter.New(ctx,
//	    tokenmeter.WithSQLite("data/usage.db"),
//	    tokenmeter.WithUpstream("https://api.openai.com", nil),
//	)
//	defer meter.Close()
//
//	_ = meter.ApplySettings(ctx, tokenmeter.Settings{
//	    Limits: &tokenmeter.Limits{Daily: tokenmeter.Int(50_000)},
//	    APIKey: tokenmeter.String(os.Getenv("OPENAI_API_KEY")),
//	})
//
//	res, err := meter.Call(ctx, "user-42", "/v1/chat/completions", map[string]any{
//	    "model":    "gpt-4o-mini",
//	    "messages": []any{map[string]any{"role": "user", "content": "hi"}},
//	})
//	var qe *tokenmeter.QuotaError
//	if errors.As(err, &qe) {
//	    fmt.Println("retry in", qe.RetryAfter)
//	}
//
// The SDK does not schedule resets; call ResetDaily and ResetMonthly from
// your own scheduler, or run the tokenmeter server.
package tokenmeter
