// Package main provides kvshell, an interactive REPL over latchkv: set,
// get, del, stats and exit, with line history. Supplements the library
// surface with the kind of human-operable front end the spec's external
// interfaces section names only abstractly.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/calvinalkan/latchkv"
	"github.com/calvinalkan/latchkv/internal/config"
	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"
)

const historyFileName = ".kvshell_history"

type shell struct {
	liner *liner.State
}

func main() {
	configPath := flag.String("config", "", "HuJSON config file; overrides the built-in defaults")

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, "Usage: kvshell [flags]\n\n")
		fmt.Fprint(os.Stderr, "Interactive REPL over latchkv.\n\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	bucketCount, factor, concurrent := uint32(1024), 0.5, true

	if *configPath != "" {
		opts, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}

		bucketCount, factor, concurrent = opts.BucketCount, opts.PreAllocationFactor, opts.EnableConcurrency
	}

	if err := latchkv.Init(bucketCount, factor, concurrent); err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = latchkv.Cleanup() }()

	s := newShell()
	defer s.close()

	s.run()
}

func newShell() *shell {
	s := &shell{liner: liner.NewLiner()}

	s.liner.SetCtrlCAborts(true)
	s.liner.SetCompleter(completer)

	if f, err := os.Open(historyPath()); err == nil {
		_, _ = s.liner.ReadHistory(f)
		_ = f.Close()
	}

	return s
}

func (s *shell) close() {
	if f, err := os.Create(historyPath()); err == nil {
		_, _ = s.liner.WriteHistory(f)
		_ = f.Close()
	}

	_ = s.liner.Close()
}

func (s *shell) run() {
	fmt.Println("kvshell — commands: set <key> <value>, get <key>, del <key>, stats, exit")

	for {
		line, err := s.liner.Prompt("kvshell> ")
		if err != nil {
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		s.liner.AppendHistory(line)

		if !s.dispatch(line) {
			return
		}
	}
}

func (s *shell) dispatch(line string) bool {
	fields := strings.Fields(line)
	cmd := fields[0]

	switch cmd {
	case "exit", "quit":
		return false
	case "set":
		if len(fields) < 3 {
			fmt.Println("usage: set <key> <value>")

			return true
		}

		value := strings.Join(fields[2:], " ")

		if err := latchkv.Set([]byte(fields[1]), []byte(value)); err != nil {
			fmt.Printf("error: %v\n", err)
		} else {
			fmt.Println("ok")
		}
	case "get":
		if len(fields) != 2 {
			fmt.Println("usage: get <key>")

			return true
		}

		v, err := latchkv.Get([]byte(fields[1]))
		if err != nil {
			fmt.Printf("error: %v\n", err)
		} else {
			fmt.Printf("%q\n", v)
		}
	case "del":
		if len(fields) != 2 {
			fmt.Println("usage: del <key>")

			return true
		}

		if err := latchkv.Delete([]byte(fields[1])); err != nil {
			fmt.Printf("error: %v\n", err)
		} else {
			fmt.Println("ok")
		}
	case "stats":
		st, err := latchkv.Stats()
		if err != nil {
			fmt.Printf("error: %v\n", err)

			return true
		}

		fmt.Printf("keys=%d buckets=%d/%d non-empty=%d max-chain=%d\n",
			st.Distribution.TotalKeys, st.Distribution.InitializedBuckets, st.Distribution.TotalBuckets,
			st.Distribution.NonEmptyBuckets, st.Collision.HighestCollisionCount)
	default:
		fmt.Printf("unknown command: %s\n", cmd)
	}

	return true
}

func completer(line string) []string {
	commands := []string{"set ", "get ", "del ", "stats", "exit"}

	var out []string

	for _, c := range commands {
		if strings.HasPrefix(c, line) {
			out = append(out, c)
		}
	}

	return out
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return historyFileName
	}

	return filepath.Join(home, historyFileName)
}
