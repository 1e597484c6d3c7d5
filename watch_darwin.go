//go:build darwin

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// watch_darwin.go is the macOS half of the `-watch` recompile loop, a
// kqueue wrapper in the shape of xyproto-vibe67's filewatcher_darwin.go.
// Unlike vibe67's single fixed asset file, this compiler's source can
// pull in an open-ended set of other files through `include`
// (builtin_file.go), and that set is only known after a file has been
// parsed once — so addFile is idempotent (re-adding an already-watched
// path is a no-op) and watch.go re-scans Compiler.IncludedFiles after
// every rebuild to pick up newly-discovered includes
// without tearing down and re-creating the kqueue.

type fileWatcher struct {
	kq          int
	watchMap    map[int]string
	watched     map[string]bool
	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	onChange    func(string)
}

func newFileWatcher(onChange func(string)) (*fileWatcher, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, ioErrorf("kqueue failed: %v", err)
	}
	return &fileWatcher{
		kq:          kq,
		watchMap:    make(map[int]string),
		watched:     make(map[string]bool),
		debounceMap: make(map[string]*time.Timer),
		onChange:    onChange,
	}, nil
}

func (fw *fileWatcher) addFile(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	fw.mu.Lock()
	already := fw.watched[absPath]
	fw.mu.Unlock()
	if already {
		return nil
	}
	fd, err := unix.Open(absPath, unix.O_RDONLY, 0)
	if err != nil {
		return ioErrorf("failed to open %s: %v", absPath, err)
	}
	event := unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: unix.EVFILT_VNODE,
		Flags:  unix.EV_ADD | unix.EV_CLEAR,
		Fflags: unix.NOTE_WRITE | unix.NOTE_ATTRIB,
	}
	if _, err = unix.Kevent(fw.kq, []unix.Kevent_t{event}, nil, nil); err != nil {
		unix.Close(fd)
		return ioErrorf("failed to add kevent for %s: %v", absPath, err)
	}
	fw.mu.Lock()
	fw.watchMap[fd] = absPath
	fw.watched[absPath] = true
	fw.mu.Unlock()
	if VerboseMode {
		fmt.Fprintf(os.Stderr, "jpc: now watching %s\n", absPath)
	}
	return nil
}

// addFiles extends the watch set with every path in paths not already
// watched, the form watch.go calls with Compiler.IncludedFiles after
// each rebuild.
func (fw *fileWatcher) addFiles(paths []string) error {
	for _, p := range paths {
		if err := fw.addFile(p); err != nil {
			return err
		}
	}
	return nil
}

func (fw *fileWatcher) watch() {
	events := make([]unix.Kevent_t, 10)
	for {
		n, err := unix.Kevent(fw.kq, nil, events, nil)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if VerboseMode {
				fmt.Fprintf(os.Stderr, "Error reading kevent: %v\n", err)
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}
		for i := 0; i < n; i++ {
			fd := int(events[i].Ident)
			fw.mu.Lock()
			path := fw.watchMap[fd]
			fw.mu.Unlock()
			if path != "" {
				fw.debouncedCallback(path)
			}
		}
	}
}

func (fw *fileWatcher) debouncedCallback(path string) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if timer, exists := fw.debounceMap[path]; exists {
		timer.Stop()
	}
	fw.debounceMap[path] = time.AfterFunc(500*time.Millisecond, func() {
		fw.onChange(path)
		fw.mu.Lock()
		delete(fw.debounceMap, path)
		fw.mu.Unlock()
	})
}

func (fw *fileWatcher) close() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	for fd := range fw.watchMap {
		unix.Close(fd)
	}
	return unix.Close(fw.kq)
}
