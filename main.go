package main

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"syscall"

	"unified/logger"
	"unified/types"
)

type Config struct {
	NsID                   int    `json:"ns_id"`
	Ref                    string `json:"ref"`                  // baseline commit-ish, default HEAD
	AutoRefresh            bool   `json:"auto_refresh"`         // recompute on edits
	TextChangeDebounce     int    `json:"text_change_debounce"` // in milliseconds
	DiffMode               string `json:"diff_mode"`            // "internal" or "git"
	DebugImmediateShutdown bool   `json:"debug_immediate_shutdown"`
	LogLevel               string `json:"log_level"` // debug, info, warn, error

	Signs       map[string]string `json:"signs"`        // add/delete/change gutter glyphs
	Highlights  map[string]string `json:"highlights"`   // add/delete/change highlight groups
	LineSymbols map[string]string `json:"line_symbols"` // add/delete/change inline glyphs
}

// Styles folds the three flat config tables into the per-classification
// style set the renderer consumes. Missing entries keep the defaults.
func (c Config) Styles() types.Styles {
	s := types.DefaultStyles()

	apply := func(set *types.StyleSet, key string) {
		if v, ok := c.Signs[key]; ok {
			set.Sign = v
		}
		if v, ok := c.Highlights[key]; ok {
			set.Highlight = v
		}
		if v, ok := c.LineSymbols[key]; ok {
			set.Symbol = v
		}
	}
	apply(&s.Add, "add")
	apply(&s.Delete, "delete")
	apply(&s.Change, "change")
	return s
}

type ServerMode string

const (
	ModeDaemon ServerMode = "daemon"
	ModeClient ServerMode = "client"
)

// Setup logger to log to a file in the same directory as the executable
// Caller must defer the logger's Close
func setupLogger(logLevel string) *logger.Logger {
	logPath := pathBesideExecutable("unified.log")

	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening file: %v", err)
	}

	l := logger.New(f, logger.ParseLogLevel(logLevel))
	log.SetOutput(l)
	return l
}

func pathBesideExecutable(name string) string {
	execPath, err := os.Executable()
	if err != nil {
		log.Fatalf("error getting executable path: %v", err)
	}
	return filepath.Join(filepath.Dir(execPath), name)
}

func getSocketPath() string {
	return pathBesideExecutable("unified.sock")
}

func getPidPath() string {
	return pathBesideExecutable("unified.pid")
}

func isDaemonRunning() (bool, int) {
	data, err := os.ReadFile(getPidPath())
	if err != nil {
		return false, 0
	}

	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return false, 0
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, 0
	}

	// On Unix, Signal(0) checks if process exists
	err = process.Signal(syscall.Signal(0))
	return err == nil, pid
}

func loadConfig() Config {
	var config Config
	if err := json.Unmarshal([]byte(os.Getenv("UNIFIED_CONFIG")), &config); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: %+v", config)
	return config
}

func runDaemon() {
	config := loadConfig()

	logLevel := config.LogLevel
	if logLevel == "" {
		logLevel = "info"
	}

	l := setupLogger(logLevel)
	defer l.Close()

	daemon, err := NewDaemon(config)
	if err != nil {
		log.Fatalf("error creating daemon: %v", err)
	}

	if err := daemon.Start(); err != nil {
		log.Fatalf("error starting daemon: %v", err)
	}
}

func runClient() {
	client := NewClient()

	if err := client.EnsureDaemonRunning(); err != nil {
		log.Fatalf("error ensuring daemon is running: %v", err)
	}

	if err := client.Connect(); err != nil {
		log.Fatalf("error connecting to daemon: %v", err)
	}
}

func main() {
	var mode ServerMode = ModeClient

	if len(os.Args) > 1 && os.Args[1] == "--daemon" {
		mode = ModeDaemon
	}

	switch mode {
	case ModeDaemon:
		runDaemon()
	case ModeClient:
		runClient()
	}
}
