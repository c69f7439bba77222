// info.go displays information about a running instance of evaluator
// Press enter to quit

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/atomic"
)

// terminal colours
const (
	reset  = "\x1b[0m"
	bold   = "\x1b[1m"
	italic = "\x1b[3m"
	red    = "\x1b[31;1m"
	green  = "\x1b[32m"
	yellow = "\x1b[33m"
	blue   = "\x1b[34m"
	cyan   = "\x1b[36m"
)

// maximum listing lines shown
const listingLines = 12

func main() {
	file := pflag.String("file", "infodisplay.json", "info display file written by evaluator")
	pflag.Parse()

	type watchValue struct {
		Label   string
		Address int64
		Value   int64
	}
	type Disp struct { // TODO import this from a shared package once the host is split out of main
		On           bool
		Name         string
		Source       string
		Compile      string
		CompilePos   int
		Runtime      string
		ErrorFrames  uint64
		Frames       uint64
		Generation   uint64
		Instructions int
		MemorySize   int
		Watches      []watchValue
		Listing      []string
		SR           int
		Format       int
		Channels     int
		Info         string
	}
	var display Disp

	type message struct {
		Content string
		Added   time.Time
	}
	messages := make([]message, 6)

	var start time.Time
	var timer time.Duration
	var started bool
	var exit atomic.Bool
	stop := make(chan struct{})

	go func() { // anonymous to include above variables in scope
		for {
			Json, err := os.ReadFile(*file)
			json.Unmarshal(Json, &display) //nolint:errcheck // a half written file shows last values
			if err != nil {
				messages[len(messages)-2].Content = fmt.Sprintf("error loading %s: %v", *file, err)
			}

			if display.On {
				if !started {
					start = time.Now()
					started = true
				}
				timer = time.Since(start).Round(time.Second)
			} else {
				started = false
			}

			if display.Info != messages[len(messages)-1].Content {
				messages = append(messages, message{display.Info, time.Now()})
				messages = messages[1:]
			}
			if display.Info == "clear" {
				for i := range messages {
					messages[i].Content = ""
				}
			}

			compile := green + display.Compile + reset
			if display.CompilePos >= 0 {
				compile = fmt.Sprintf("%s%s at %d%s", red, display.Compile, display.CompilePos, reset)
			}
			runtime := green + display.Runtime + reset
			if display.Runtime != "None" {
				runtime = yellow + display.Runtime + reset
			}
			ratio := 0.0
			if display.Frames > 0 {
				ratio = 100 * float64(display.ErrorFrames) / float64(display.Frames)
			}
			soundcard := fmt.Sprintf("%dbit %2gkhz %dch", display.Format, float64(display.SR)/1000, display.Channels)
			if display.Format == 0 {
				soundcard = ""
			}

			var b strings.Builder
			fmt.Fprintf(&b, "\033[H\033[2J")
			fmt.Fprintf(&b, "%sevaluator info%s %spress enter to quit%s   %s\n", cyan, reset, italic, reset, timer)
			fmt.Fprintf(&b, "╭───────────────────────────────────────────────────╮\n")
			fmt.Fprintf(&b, "   %s%s%s #%d  %s\n", bold, display.Name, reset, display.Generation, soundcard)
			fmt.Fprintf(&b, "   %s\n", display.Source)
			fmt.Fprintf(&b, "   %sCompile:%s %s\n", blue, reset, compile)
			fmt.Fprintf(&b, "   %sRuntime:%s %s  %.2f%% of %d frames\n", blue, reset, runtime, ratio, display.Frames)
			fmt.Fprintf(&b, "   %sMemory:%s %d cells, %d instructions\n", blue, reset, display.MemorySize, display.Instructions)
			for _, w := range display.Watches {
				fmt.Fprintf(&b, "   %s%6s%s %d\n", yellow, w.Label, reset, w.Value)
			}
			for i, l := range display.Listing {
				if i == listingLines {
					fmt.Fprintf(&b, "   ... %d more\n", len(display.Listing)-i)
					break
				}
				fmt.Fprintf(&b, "   %3d  %s\n", i, l)
			}
			for _, m := range messages {
				fmt.Fprintf(&b, "%s\n", m.Content)
			}
			fmt.Fprintf(&b, "╰───────────────────────────────────────────────────╯")
			fmt.Print(b.String())

			time.Sleep(50 * time.Millisecond)
			if exit.Load() {
				close(stop)
				break
			}
		}
	}()
	fmt.Scanln()
	exit.Store(true)
	<-stop
	fmt.Printf("info display closed.\n")
}
