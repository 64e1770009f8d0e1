package main

import "flag"

// Command-line flags that control runtime behavior. Options with config
// file equivalents override the loaded configuration when set.
var (
	// configFlag points at a YAML file merged over the embedded defaults.
	configFlag = flag.String("config", "", "path to a YAML config file (embedded defaults if empty)")

	// headlessFlag runs the solver without a window for benchmarking.
	headlessFlag = flag.Bool("headless", false, "run without a window and report timing statistics")

	// maxTicksFlag bounds a headless run.
	maxTicksFlag = flag.Int("max-ticks", 600, "number of ticks a headless run executes")

	// seedFlag fixes the random sequence behind pointer colors and bursts.
	seedFlag = flag.Int64("seed", 0, "random seed (0 uses the current time)")

	// debugFlag enables the FPS and solver overlay.
	debugFlag = flag.Bool("debug", false, "show FPS and solver statistics overlay")

	// verboseFlag raises the log level to debug.
	verboseFlag = flag.Bool("v", false, "log at debug level")

	// outputDirFlag enables CSV telemetry under the given directory.
	outputDirFlag = flag.String("output-dir", "", "write telemetry and perf CSVs under this directory")

	// monitorAddrFlag serves live stats over a websocket endpoint.
	monitorAddrFlag = flag.String("monitor", "", "serve live solver stats on this address (e.g. :8089)")

	// openCLFlag steps the pipeline on an OpenCL device when one is found,
	// falling back to the CPU workers otherwise.
	openCLFlag = flag.Bool("opencl", true, "prefer an OpenCL device for the solver (requires a -tags opencl build)")

	// preferFP16Flag stores dye as 16-bit floats on devices that support half precision.
	preferFP16Flag = flag.Bool("prefer-fp16", true, "use 16-bit dye storage on the OpenCL device when supported")

	// noAmbientFlag disables the idle drift emitter regardless of config.
	noAmbientFlag = flag.Bool("no-ambient", false, "disable the ambient drift emitter")

	// cpuProfileFlag writes a pprof CPU profile covering the whole run.
	cpuProfileFlag = flag.String("cpuprofile", "", "write a CPU profile to this file")
)
