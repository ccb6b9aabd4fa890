package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	kitlog "github.com/go-kit/kit/log"

	"github.com/inkdrift/corexy"
)

const defaultDrawing = "~~unset~~"

var (
	configPath  string
	drawingPath string
	serialName  string
	tracePath   string
	verbose     bool
)

func init() {
	flag.StringVar(&configPath, "config", ".", "directory containing plotter.toml")
	flag.StringVar(&drawingPath, "drawing", defaultDrawing, "JSON file containing a Drawing ([][]Point)")
	flag.StringVar(&serialName, "port", "", "serial port name; auto-discovered if empty")
	flag.StringVar(&tracePath, "trace", "", "optional CSV file to record the dispatch trace")
	flag.BoolVar(&verbose, "verbose", false, "log debug-level protocol engine events")
}

// main is a thin flag+viper driven entry point whose only job is wiring
// configuration into the core and running it to completion.
func main() {
	flag.Parse()
	if drawingPath == defaultDrawing {
		log.Fatal("no drawing provided: pass -drawing path/to/drawing.json")
	}

	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)
	if !verbose {
		next := logger
		logger = kitlog.LoggerFunc(func(keyvals ...interface{}) error {
			for i := 0; i+1 < len(keyvals); i += 2 {
				if keyvals[i] == "level" && keyvals[i+1] == "debug" {
					return nil
				}
			}
			return next.Log(keyvals...)
		})
	}

	options, err := corexy.LoadDeviceOptions(configPath)
	if err != nil {
		log.Fatalf("%s/plotter.toml: %s", configPath, err)
	}

	if serialName == "" {
		serialName, err = corexy.DiscoverPort()
		if err != nil {
			log.Fatalf("port discovery: %s", err)
		}
	}

	port, err := corexy.OpenSerialPort(serialName)
	if err != nil {
		log.Fatalf("opening %s: %s", serialName, err)
	}

	var trace *corexy.Trace
	if tracePath != "" {
		trace, err = corexy.NewTrace(tracePath)
		if err != nil {
			log.Fatalf("opening trace file: %s", err)
		}
		defer trace.Close()
	}

	orch, err := corexy.NewOrchestrator(options, port, logger, trace)
	if err != nil {
		log.Fatalf("starting orchestrator: %s", err)
	}

	corexy.StartReader(port, orch.Engine(), logger)

	drawing, err := loadDrawing(drawingPath)
	if err != nil {
		log.Fatalf("loading drawing: %s", err)
	}

	if err := orch.Draw(drawing); err != nil {
		log.Fatalf("draw: %s", err)
	}

	if err := orch.Shutdown(); err != nil {
		log.Fatalf("shutdown: %s", err)
	}
}

// loadDrawing reads a Drawing from a JSON file shaped as [][]corexy.Point.
func loadDrawing(path string) (corexy.Drawing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var raw [][]corexy.Point
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	drawing := make(corexy.Drawing, len(raw))
	for i, path := range raw {
		drawing[i] = corexy.Path(path)
	}
	return drawing, nil
}
