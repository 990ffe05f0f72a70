package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/demoghost/replay/internal/dispatcher"
	"github.com/demoghost/replay/internal/influx"
	"github.com/demoghost/replay/internal/reconstruct"
)

func main() {
	setup()

	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Println("No arguments provided.")
		printUsage()
		shutdown()
		return
	}

	var err error
	verb := strings.ToLower(args[0])
	rest := args[1:]

	switch verb {
	case "reconstruct":
		err = cmdReconstruct(rest)
	case "export":
		err = cmdExport(rest)
	case "upload":
		err = cmdUpload(rest)
	case "stream":
		err = cmdStream(rest)
	case "transcript":
		err = cmdTranscript(rest)
	case "stats":
		err = cmdStats(rest)
	case "list":
		err = cmdList()
	case "delete":
		err = cmdDelete(rest)
	case "version":
		fmt.Printf("%s %s (built %s)\n", ServiceName, CurrentVersion, BuildDate)
	default:
		fmt.Println("Unknown command: ", verb)
		printUsage()
	}
	if err != nil {
		fatal(verb+" failed", err)
	}

	shutdown()
}

// fatal logs the error, flushes what it can and exits nonzero. Command
// failures never panic.
func fatal(msg string, err error) {
	if Logger != nil {
		Logger.Error(msg, "error", err)
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	shutdown()
	os.Exit(1)
}

func printUsage() {
	fmt.Println("Usage: ghost_replay <command> [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  reconstruct <demo>...    rebuild ghost tracks from demo dumps and save them")
	fmt.Println("  export <demo|track>      write a track as viewer JSON")
	fmt.Println("  upload <demo|track>      export a track and send it to the replay server")
	fmt.Println("  stream <demo|track>      stream a track to the replay server frame by frame")
	fmt.Println("  transcript <demo|track>  print the event transcript of a track")
	fmt.Println("  stats <bucket> <measurement> [tag::k::v] [field::type::k::v]...")
	fmt.Println("                           write an ad-hoc metric point")
	fmt.Println("  list                     list stored tracks")
	fmt.Println("  delete <track>...        delete stored tracks")
	fmt.Println("  version                  print version and build date")
}

func cmdReconstruct(paths []string) (err error) {
	if len(paths) == 0 {
		return fmt.Errorf("no demo files provided")
	}

	for _, path := range paths {
		txStart := time.Now()
		result, err := eventDispatcher.Dispatch(dispatcher.Event{
			Command:   "demo:reconstruct",
			Args:      []string{path},
			Timestamp: time.Now(),
		})
		if err != nil {
			return err
		}
		report, ok := result.(*reconstruct.Report)
		if !ok {
			return fmt.Errorf("unexpected reconstruct result type %T", result)
		}
		fmt.Printf("Reconstructed %s: %d frames, %d sounds, %d texts, %.1fs of gameplay in %s\n",
			filepath.Base(path), report.Frames, report.Sounds, report.Texts,
			report.Duration, time.Since(txStart))
	}

	return nil
}

// resolveTrack turns a command target into dispatch args. A target naming
// a file on disk is reconstructed first and the action then runs against
// the session track; anything else is treated as a stored track name.
func resolveTrack(target string) ([]string, error) {
	if target == "" {
		return nil, fmt.Errorf("no track name or demo file provided")
	}
	if _, err := os.Stat(target); err == nil {
		_, err := eventDispatcher.Dispatch(dispatcher.Event{
			Command:   "demo:reconstruct",
			Args:      []string{target},
			Timestamp: time.Now(),
		})
		if err != nil {
			return nil, err
		}
		return nil, nil
	}
	return []string{target}, nil
}

func cmdExport(args []string) (err error) {
	var target string
	if len(args) > 0 {
		target = args[0]
	}
	dispatchArgs, err := resolveTrack(target)
	if err != nil {
		return err
	}

	result, err := eventDispatcher.Dispatch(dispatcher.Event{
		Command:   "track:export",
		Args:      dispatchArgs,
		Timestamp: time.Now(),
	})
	if err != nil {
		return err
	}

	fmt.Println("Wrote track to ", result)
	return nil
}

func cmdUpload(args []string) (err error) {
	var target string
	if len(args) > 0 {
		target = args[0]
	}
	dispatchArgs, err := resolveTrack(target)
	if err != nil {
		return err
	}

	result, err := eventDispatcher.Dispatch(dispatcher.Event{
		Command:   "track:upload",
		Args:      dispatchArgs,
		Timestamp: time.Now(),
	})
	if err != nil {
		return err
	}

	fmt.Println(result)
	return nil
}

func cmdStream(args []string) (err error) {
	var target string
	if len(args) > 0 {
		target = args[0]
	}

	if err := streamer.Connect(); err != nil {
		return fmt.Errorf("failed to connect to replay server: %w", err)
	}
	defer func() { _ = streamer.Close() }()

	dispatchArgs, err := resolveTrack(target)
	if err != nil {
		return err
	}

	result, err := eventDispatcher.Dispatch(dispatcher.Event{
		Command:   "track:stream",
		Args:      dispatchArgs,
		Timestamp: time.Now(),
	})
	if err != nil {
		return err
	}

	fmt.Println(result)
	return nil
}

func cmdTranscript(args []string) (err error) {
	var target string
	if len(args) > 0 {
		target = args[0]
	}
	dispatchArgs, err := resolveTrack(target)
	if err != nil {
		return err
	}

	result, err := eventDispatcher.Dispatch(dispatcher.Event{
		Command:   "track:transcript",
		Args:      dispatchArgs,
		Timestamp: time.Now(),
	})
	if err != nil {
		return err
	}

	text, _ := result.(string)
	if text == "" {
		fmt.Println("Track has no events.")
		return nil
	}
	fmt.Print(text)
	return nil
}

// cmdStats writes one ad-hoc metric point. The buffered stats command
// suits long-lived callers; a one-shot invocation writes synchronously so
// shutdown cannot outrun the queue.
func cmdStats(fields []string) (err error) {
	if influxManager == nil {
		return fmt.Errorf("influxdb is not enabled")
	}

	bucket, point, err := influx.ProcessMetricData(fields)
	if err != nil {
		return err
	}
	if err := influxManager.WritePoint(context.Background(), bucket, point); err != nil {
		return err
	}

	fmt.Println("Wrote metric to bucket ", bucket)
	return nil
}

func cmdList() (err error) {
	summaries, err := storageBackend.ListTracks()
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No tracks stored.")
		return nil
	}

	for _, s := range summaries {
		fmt.Printf("%4d  %-24s  map=%s mod=%s frames=%d duration=%.1fs saved=%s\n",
			s.ID, s.Name, s.MapName, s.GameMod, s.FrameCount, s.Duration,
			s.SavedAt.Format(time.RFC3339))
	}
	return nil
}

func cmdDelete(names []string) (err error) {
	if len(names) == 0 {
		return fmt.Errorf("no track names provided")
	}

	for _, name := range names {
		if err := storageBackend.DeleteTrack(name); err != nil {
			return fmt.Errorf("failed to delete %s: %w", name, err)
		}
		fmt.Println("Deleted track ", name)
	}
	return nil
}
