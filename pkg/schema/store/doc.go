// Package store loads schema documents from disk and keeps them available
// by name.
//
// A schema's name is its path below the configured root without the
// extension, so schemas/invoice.yaml is "invoice" and
// schemas/crm/contact.json is "crm/contact".
//
//	m := store.New(&cfg.Schemas, logger, store.WithReporter(collector))
//	if err := m.Load(); err != nil {
//		return err
//	}
//	go m.Watch(ctx)
//
//	entry, err := m.Get("invoice")
//
// Reloads replace the whole set atomically. When any file fails to load
// the previous set keeps serving and the failure is logged.
package store
