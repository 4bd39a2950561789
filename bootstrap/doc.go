// Package bootstrap runs a binary's components through a common lifecycle:
// start in registration order, run hooks, check readiness, print a summary,
// then either serve until a signal (Run) or run one task (RunTask), and stop
// in reverse order.
//
//	app, err := bootstrap.NewApp(&cfg)
//	if err != nil {
//	    return err
//	}
//	_ = app.RegisterComponent(httpclient.NewComponent(cfg.Fal))
//	return app.RunTask(ctx, func(ctx context.Context) error {
//	    _, err := client.Run(ctx, "fal-ai/flux/dev", input, nil)
//	    return err
//	})
package bootstrap
