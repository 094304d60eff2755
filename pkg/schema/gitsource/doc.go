// Package gitsource keeps a schema directory in sync with a Git repository.
//
// A Repository clones the configured branch into a local directory and
// pulls it on demand. A Syncer polls the repository and, when a pull
// touches schema files, reloads the schema store. A reload that fails is
// undone by checking out the last commit that loaded cleanly and
// reloading again, so the store never serves schemas from a broken
// commit for longer than one reload.
//
//	repo, err := gitsource.NewRepository(&cfg.Schemas.Git)
//	if err != nil {
//		return err
//	}
//	if err := repo.Clone(ctx); err != nil {
//		return err
//	}
//	cfg.Schemas.Path = repo.SchemaDir()
//	manager := store.New(&cfg.Schemas, logger)
//	syncer := gitsource.NewSyncer(repo, manager.Load, gitsource.SyncerConfig{
//		Interval:   cfg.Schemas.Git.PollInterval,
//		Extensions: cfg.Schemas.Extensions,
//	}, logger)
//	go syncer.Run(ctx)
package gitsource
