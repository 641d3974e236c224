package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"photosearch/api"
	"photosearch/batch"
	"photosearch/cache"
	"photosearch/config"
	"photosearch/cvimage"
	"photosearch/database"
	"photosearch/favorites"
	"photosearch/health"
	"photosearch/imageio"
	"photosearch/imageprocessor"
	"photosearch/logging"
	"photosearch/signalhandler"
	"photosearch/types"
	"photosearch/unsplash"
	"photosearch/utils"
)

func handleProcessCommand(cfg *config.Config) error {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	imagePath := fs.String("image", "", "path of the image to process")
	routineName := fs.String("routine", "identity", "routine to apply")
	output := fs.String("output", "", "where to write the result (default: <image>_<routine>.png next to the input)")
	observations := fs.Bool("observations", false, "print the detected rectangles as JSON")
	if err := fs.Parse(cfg.Args); err != nil {
		return err
	}
	if *imagePath == "" {
		return errors.New("missing image path (use -image=PATH)")
	}

	img, err := imageio.Load(*imagePath)
	if err != nil {
		return err
	}

	outPath := *output
	if outPath == "" {
		outPath = filepath.Join(filepath.Dir(*imagePath), batch.OutputName(*imagePath, *routineName, imageio.FormatPNG))
	}

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	return processAndSave(db, img, *imagePath, *routineName, outPath, *observations)
}

// processAndSave runs a routine on img, writes the result and records it in the history
func processAndSave(db *sql.DB, img *cvimage.Image, source, routineName, outPath string, printObservations bool) error {
	proc, err := imageprocessor.NewRegistry().Processor(routineName)
	if err != nil {
		return err
	}

	record := types.ProcessRecord{
		Source:  source,
		Output:  outPath,
		Routine: proc.Routine.Name(),
		Width:   img.Width(),
		Height:  img.Height(),
	}
	record.Hash, _ = imageprocessor.AverageHash(img)

	out, err := proc.Process(img)
	if err == nil {
		err = imageio.Save(outPath, out)
	}
	record.Success = err == nil
	if err != nil {
		record.Output = ""
		record.Error = err.Error()
	}
	if _, recErr := database.RecordProcessed(db, record); recErr != nil {
		logging.LogWarning("cannot record history for %s: %v", source, recErr)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Wrote %s (%dx%d)\n", outPath, out.Width(), out.Height())

	if printObservations {
		return printRectangles(img)
	}
	return nil
}

func printRectangles(img *cvimage.Image) error {
	m, err := img.Mat3()
	if err != nil {
		return err
	}
	defer m.Close()

	found := imageprocessor.DetectRectangles(m, imageprocessor.DefaultRectangleOptions())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(found)
}

func handleBatchCommand(cfg *config.Config) error {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	folder := fs.String("folder", "", "folder containing the images to process")
	routineName := fs.String("routine", "identity", "routine to apply")
	output := fs.String("output", "", "output directory (default: <folder>/processed)")
	format := fs.String("format", "png", "output format (png, jpeg, gif, tiff, bmp)")
	if err := fs.Parse(cfg.Args); err != nil {
		return err
	}
	if *folder == "" {
		return errors.New("missing folder path (use -folder=PATH)")
	}

	outFormat, err := imageio.ParseFormat(*format)
	if err != nil {
		return err
	}

	proc, err := imageprocessor.NewRegistry().Processor(*routineName)
	if err != nil {
		return err
	}

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signalhandler.NotifyContext(context.Background())
	defer stop()

	stats, err := batch.ProcessFolder(ctx, db, proc, batch.Options{
		FolderPath: *folder,
		OutputDir:  *output,
		MaxWorkers: cfg.Workers,
		Format:     outFormat,
		Progress:   os.Stdout,
	})
	if errors.Is(err, context.Canceled) {
		fmt.Printf("Interrupted after %d images.\n", stats.Succeeded+stats.Failed)
		return nil
	}
	return err
}

func handleSearchCommand(cfg *config.Config) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	query := fs.String("query", "", "what to search for")
	pages := fs.Int("pages", 1, "number of pages to load")
	perPage := fs.Int("per-page", unsplash.DefaultPerPage, "results per page")
	favorite := fs.String("favorite", "", "index of a result to add to the favorites")
	process := fs.String("process", "", "index of a result to download and process")
	routineName := fs.String("routine", "rectangles", "routine used with -process")
	output := fs.String("output", "", "where -process writes its result (default: <photo id>_<routine>.png)")
	if err := fs.Parse(cfg.Args); err != nil {
		return err
	}

	ctx, stop := signalhandler.NotifyContext(context.Background())
	defer stop()

	client, provider, err := newUnsplashClient(ctx, cfg)
	if err != nil {
		return err
	}
	if provider != nil {
		defer provider.Shutdown()
	}

	pager := unsplash.NewPager(client, *perPage)
	if err := pager.Fetch(ctx, *query); err != nil {
		return err
	}
	for i := 1; i < *pages && !pager.Exhausted(); i++ {
		if err := pager.Next(ctx); err != nil {
			return err
		}
	}

	photos := pager.Photos()
	for i, photo := range photos {
		fmt.Printf("%3d  %-12s  %s\n", i, photo.ID, describe(photo))
	}
	if len(photos) == 0 {
		fmt.Println("No results.")
	}

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if *favorite != "" {
		photo, err := pickPhoto(pager, *favorite)
		if err != nil {
			return err
		}
		if err := favorites.NewStore(db).Add(ctx, photo); err != nil {
			return err
		}
		fmt.Printf("Added %s to favorites.\n", photo.ID)
	}

	if *process != "" {
		photo, err := pickPhoto(pager, *process)
		if err != nil {
			return err
		}
		return downloadAndProcess(ctx, client, db, photo, *routineName, *output)
	}

	return nil
}

func pickPhoto(pager *unsplash.Pager, value string) (types.Photo, error) {
	index, err := utils.ParseIndex(value)
	if err != nil {
		return types.Photo{}, err
	}
	photo, ok := pager.PhotoAt(index)
	if !ok {
		return types.Photo{}, fmt.Errorf("no result at index %d", index)
	}
	return photo, nil
}

func downloadAndProcess(ctx context.Context, client *unsplash.Client, db *sql.DB, photo types.Photo, routineName, output string) error {
	url := photo.URLs.Regular
	if url == "" {
		url = photo.URLs.Full
	}
	if url == "" {
		return fmt.Errorf("photo %s has no downloadable url", photo.ID)
	}

	data, err := client.Download(ctx, url)
	if err != nil {
		return err
	}

	img, _, err := imageio.Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}

	if output == "" {
		output = batch.OutputName(photo.ID, routineName, imageio.FormatPNG)
	}
	return processAndSave(db, img, url, routineName, output, routineName == "rectangles")
}

func describe(photo types.Photo) string {
	if photo.Description != "" {
		return photo.Description
	}
	return photo.AltDescription
}

func handleFavoritesCommand(cfg *config.Config) error {
	db, err := openDatabase(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	store := favorites.NewStore(db)

	action := "list"
	if len(cfg.Args) > 0 {
		action = cfg.Args[0]
	}

	switch action {
	case "list":
		photos, err := store.List(ctx)
		if err != nil {
			return err
		}
		for i, photo := range photos {
			fmt.Printf("%3d  %-12s  %s\n", i, photo.ID, describe(photo))
		}
		if len(photos) == 0 {
			fmt.Println("No favorites yet.")
		}
		return nil
	case "add", "remove":
		if len(cfg.Args) < 2 {
			return fmt.Errorf("usage: favorites %s ID", action)
		}
		if action == "add" {
			return store.Add(ctx, types.Photo{ID: cfg.Args[1]})
		}
		return store.Remove(ctx, cfg.Args[1])
	case "show":
		if len(cfg.Args) < 2 {
			return errors.New("usage: favorites show INDEX")
		}
		index, err := utils.ParseIndex(cfg.Args[1])
		if err != nil {
			return err
		}
		photo, ok, err := store.Photo(ctx, index)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no favorite at index %d", index)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(photo)
	default:
		return fmt.Errorf("unknown favorites action %q", action)
	}
}

func handleRoutinesCommand(cfg *config.Config) error {
	registry := imageprocessor.NewRegistry()
	for _, name := range registry.Names() {
		routine, err := registry.Get(name)
		if err != nil {
			return err
		}
		fmt.Printf("%-12s %s\n", name, routine.Layout())
	}
	return nil
}

func handleInfoCommand(cfg *config.Config) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	imagePath := fs.String("image", "", "print the metadata of this image instead of the history")
	limit := fs.Int("limit", 10, "number of recent history entries to show")
	if err := fs.Parse(cfg.Args); err != nil {
		return err
	}

	if *imagePath != "" {
		return printImageInfo(cfg, *imagePath)
	}

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := database.GetProcessedStats(db, "")
	if err != nil {
		return err
	}

	fmt.Printf("Database: %s\n", cfg.Database)
	fmt.Printf("Processed images: %d (%d failed)\n", stats.TotalImages, stats.ErrorCount)

	names := make([]string, 0, len(stats.ByRoutine))
	for name := range stats.ByRoutine {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-12s %d\n", name, stats.ByRoutine[name])
	}

	count, err := favorites.NewStore(db).Count(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Favorites: %d\n", count)

	recent, err := database.RecentProcessed(db, *limit)
	if err != nil {
		return err
	}
	if len(recent) > 0 {
		fmt.Println("\nRecent:")
	}
	for _, rec := range recent {
		status := "ok"
		if !rec.Success {
			status = "failed: " + rec.Error
		}
		fmt.Printf("  %s  %-10s %s (%s)\n", rec.CreatedAt, rec.Routine, rec.Source, status)
	}

	return nil
}

func printImageInfo(cfg *config.Config, path string) error {
	img, err := imageio.Load(path)
	if err != nil {
		return err
	}

	fmt.Printf("File: %s\n", path)
	fmt.Printf("Format: %s\n", imageio.GetFileFormat(path))
	fmt.Printf("Size: %dx%d\n", img.Width(), img.Height())
	fmt.Printf("Color space: %s\n", img.ColorSpace())

	if err := printHashes(cfg, img); err != nil {
		logging.LogWarning("cannot fingerprint %s: %v", path, err)
	}

	metadata, err := imageio.ReadMetadata(path)
	if err != nil {
		logging.LogWarning("cannot read metadata of %s: %v", path, err)
		return nil
	}

	keys := make([]string, 0, len(metadata))
	for key := range metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("  %-28s %v\n", key, metadata[key])
	}
	return nil
}

func handleServeCommand(cfg *config.Config) error {
	log := logging.Logger()

	// Set up context for shutting down
	shutdownCtx, shutdown := context.WithCancel(context.Background())
	defer shutdown()

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	var photos api.PhotoSource
	var provider cache.Provider
	if cfg.UnsplashClientID != "" {
		client, p, err := newUnsplashClient(shutdownCtx, cfg)
		if err != nil {
			return err
		}
		photos = client
		if p != nil {
			provider = p
			defer provider.Shutdown()
		}
	} else {
		log.Warnw("no unsplash client id configured, search is disabled")
	}

	// Initialize and start the health checker
	checkerCtx, checkerCancel := context.WithCancel(context.Background())
	defer checkerCancel()

	checker := &health.Checker{
		Ctx:      checkerCtx,
		Database: db,
		Cache:    provider,
		Log:      log,
	}
	go checker.Run()

	a := &api.API{
		Routines:       imageprocessor.NewRegistry(),
		Photos:         photos,
		Favorites:      favorites.NewStore(db),
		Database:       db,
		HealthChecker:  checker,
		Log:            log,
		HandlerTimeout: api.HandlerTimeout,
	}
	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      a.Router(),
		ReadTimeout:  api.ReadTimeout,
		WriteTimeout: api.WriteTimeout,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil {
			log.Infof("shutting down the http server: %s", err)
			shutdown()
		}
	}()

	log.Infof("http server listening on %s", cfg.Listen)

	// Wait for shutdown or error
	err = signalhandler.WaitForInterrupt(shutdownCtx)
	log.Infof("shutting down: %s", err)

	// Shut down http server
	serverCtx, serverCancel := context.WithTimeout(context.Background(), api.WriteTimeout)
	defer serverCancel()
	if err := server.Shutdown(serverCtx); err != nil {
		log.Warnf("error shutting down: %s", err)
	}

	return nil
}

func printHashes(cfg *config.Config, img *cvimage.Image) error {
	ahash, err := imageprocessor.AverageHash(img)
	if err != nil {
		return err
	}
	phash, err := imageprocessor.PerceptualHash(img)
	if err != nil {
		return err
	}
	fmt.Printf("Average hash: %s\n", ahash)
	fmt.Printf("Perceptual hash: %s\n", phash)

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	seen, err := database.FindByHash(db, ahash)
	if err != nil {
		return err
	}
	for _, rec := range seen {
		fmt.Printf("  seen as %s (%s, %s)\n", rec.Source, rec.Routine, rec.CreatedAt)
	}
	return nil
}
