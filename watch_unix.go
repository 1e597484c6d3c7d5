//go:build linux

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// watch_unix.go is the Linux half of the `-watch` recompile loop, an
// inotify wrapper in the shape of xyproto-vibe67's filewatcher_unix.go.
// Unlike vibe67's single fixed asset file, this compiler's source can
// pull in an open-ended set of other files through `include`
// (builtin_file.go), and that set is only known after a file has been
// parsed once — so addFile is idempotent (re-adding an already-watched
// path is a no-op) and watch.go re-scans Compiler.IncludedFiles after
// every rebuild to pick up newly-discovered includes
// without tearing down and re-creating the inotify instance.

type fileWatcher struct {
	fd          int
	watchMap    map[int]string
	watched     map[string]bool
	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	onChange    func(string)
}

func newFileWatcher(onChange func(string)) (*fileWatcher, error) {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, ioErrorf("inotify_init failed: %v", err)
	}
	return &fileWatcher{
		fd:          fd,
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
	wd, err := unix.InotifyAddWatch(fw.fd, absPath, unix.IN_MODIFY|unix.IN_CLOSE_WRITE)
	if err != nil {
		return ioErrorf("failed to watch %s: %v", absPath, err)
	}
	fw.mu.Lock()
	fw.watchMap[wd] = absPath
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
	buf := make([]byte, unix.SizeofInotifyEvent*10)
	for {
		n, err := unix.Read(fw.fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				time.Sleep(100 * time.Millisecond)
				continue
			}
			if VerboseMode {
				fmt.Fprintf(os.Stderr, "Error reading inotify events: %v\n", err)
			}
			continue
		}
		offset := 0
		for offset < n {
			event := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
			offset += unix.SizeofInotifyEvent + int(event.Len)
			if event.Mask&(unix.IN_MODIFY|unix.IN_CLOSE_WRITE) != 0 {
				fw.mu.Lock()
				path := fw.watchMap[int(event.Wd)]
				fw.mu.Unlock()
				if path != "" {
					fw.debouncedCallback(path)
				}
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
	return unix.Close(fw.fd)
}
