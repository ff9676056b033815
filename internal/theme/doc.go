// Package theme holds the immutable theme descriptors, the registry they are
// looked up from, and the Store that tracks the active descriptor of a reveal
// session.
//
// Integration example:
//
//	store := theme.NewStore(theme.DefaultRegistry())
//	unsubscribe := store.Subscribe(func(d theme.Descriptor) {
//		log.Info("theme applied", "id", d.ID)
//	})
//	defer unsubscribe()
//	store.Set(theme.IDExpedition33)
//	styles := theme.ResolveStyles(renderer, store.Get(), theme.ResolveOptions{Term: os.Getenv("TERM")})
//	header.SetStyle(styles.Title)
package theme
