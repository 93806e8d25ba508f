// Package storefront wires the storefront web application.
//
// Every request to a business route passes the same ordered pipeline:
//
//	security headers -> body decoding -> upload gate -> session -> CSRF guard
//	-> identity -> upload store -> route handler -> error handler
//
// New assembles the pipeline, the routes and the ambient middleware from a
// config.Config and the backing stores:
//
//	cfg, err := config.Load()
//	log, flush := storefront.NewLogger(cfg.Log, os.Stdout)
//	defer flush()
//
//	app, err := storefront.New(cfg, storefront.Deps{
//		Accounts: identity.NewPostgresStore(pool),
//		Products: catalog.NewPostgresRepository(pool),
//		Sessions: session.NewRedisStore(client),
//		Files:    s3,
//		Logger:   log,
//	})
//	err = app.Run(storefront.Address(cfg.HTTP.Addr))
//
// Backends are plain interfaces, so tests and local development use the
// in-memory stores of each package.
package storefront
