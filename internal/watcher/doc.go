// Package watcher rebuilds the site when its inputs change.
//
// The example descriptors, templates and static directories are watched
// with fsnotify. Events are filtered by doublestar patterns on the file's
// base name, collected while the tree keeps changing, and handed to the
// rebuild callback once it has been quiet for the debounce interval. A
// rebuild that is still running when new changes arrive finishes first;
// the changes are delivered with the next rebuild.
//
// Example usage:
//
//	w, err := watcher.New([]string{"examples", "templates", "static"}, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	err = w.Run(ctx, func(ctx context.Context, changed []string) error {
//		return rebuild(ctx)
//	})
package watcher
