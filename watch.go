package main

import "fmt"

// watch.go is the platform-independent half of `-watch`: it owns the
// rebuild-on-change loop; watch_unix.go/watch_darwin.go/watch_other.go
// supply the OS-specific fileWatcher this function drives.

// watchAndRebuild runs rebuild once immediately, then again every time
// inputFile or any file it pulled in via `include` changes on disk,
// until the process is killed. rebuild returns the set of files the
// compile actually touched (via Compiler.IncludedFiles) so the watch
// set can grow as the source tree grows new includes, without ever
// tearing down and recreating the underlying inotify/kqueue handle.
func watchAndRebuild(inputFile string, rebuild func() ([]string, error)) error {
	done := make(chan struct{})
	var fw *fileWatcher

	runRebuild := func() {
		included, err := rebuild()
		if err != nil {
			fmt.Printf("Build failed: %v\n", err)
		} else {
			fmt.Println("Build succeeded, watching for changes...")
		}
		if fw != nil {
			if err := fw.addFiles(included); err != nil {
				fmt.Printf("Could not extend watch set: %v\n", err)
			}
		}
	}

	var err error
	fw, err = newFileWatcher(func(path string) {
		fmt.Printf("Change detected in %s, rebuilding...\n", path)
		runRebuild()
	})
	if err != nil {
		return err
	}
	defer fw.close()

	if err := fw.addFile(inputFile); err != nil {
		return err
	}
	runRebuild()
	go fw.watch()
	<-done
	return nil
}
