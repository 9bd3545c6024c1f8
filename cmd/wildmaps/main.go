package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/hkuril/WildMaps-processing/internal/catalog"
	"github.com/hkuril/WildMaps-processing/internal/dict"
	"github.com/hkuril/WildMaps-processing/internal/geoio"
	"github.com/hkuril/WildMaps-processing/internal/layers"
	"github.com/hkuril/WildMaps-processing/internal/log"
	"github.com/hkuril/WildMaps-processing/internal/pipeline"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// envDefault returns the WILDMAPS_<name> environment value, or fallback
// when unset. A .env file loaded at startup can supply these.
func envDefault(name, fallback string) string {
	if v := os.Getenv("WILDMAPS_" + name); v != "" {
		return v
	}
	return fallback
}

func envDefaultInt(name string, fallback int) int {
	if v := os.Getenv("WILDMAPS_" + name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func main() {
	// Missing .env is fine; flags and the environment still apply.
	_ = godotenv.Load()

	var (
		catalogPath string
		dataDir     string
		outDir      string
		dictDir     string
		paPath      string
		landusePath string

		minZoom     int
		maxZoom     int
		tileSize    int
		format      string
		quality     int
		concurrency int

		workers     int
		force       bool
		verbose     bool
		showVersion bool
	)

	flag.StringVar(&catalogPath, "catalog", envDefault("CATALOG", ""), "Path to the dataset catalog CSV")
	flag.StringVar(&dataDir, "data", envDefault("DATA_DIR", ""), "Root directory holding the input rasters")
	flag.StringVar(&outDir, "out", envDefault("OUT_DIR", ""), "Root directory for analysis and tile outputs")
	flag.StringVar(&dictDir, "dicts", envDefault("DICT_DIR", ""), "Directory holding the reference dictionaries (species, region, subregion JSON)")
	flag.StringVar(&paPath, "pa", envDefault("PA_PATH", ""), "Protected-area vector file")
	flag.StringVar(&landusePath, "landuse", envDefault("LANDUSE_PATH", ""), "Land-use classification raster")

	flag.IntVar(&minZoom, "min-zoom", -1, "Minimum tile zoom level (default: auto)")
	flag.IntVar(&maxZoom, "max-zoom", -1, "Maximum tile zoom level (default: auto from resolution)")
	flag.IntVar(&tileSize, "tile-size", 256, "Output tile size in pixels")
	flag.StringVar(&format, "format", "png", "Tile encoding: png, webp")
	flag.IntVar(&quality, "quality", 85, "WebP quality 1-100")
	flag.IntVar(&concurrency, "concurrency", runtime.NumCPU(), "Parallel tile workers per dataset")

	flag.IntVar(&workers, "workers", envDefaultInt("WORKERS", 2), "Datasets processed in parallel")
	flag.BoolVar(&force, "force", false, "Reprocess datasets that are already marked complete")
	flag.BoolVar(&verbose, "verbose", false, "Verbose progress output")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: wildmaps [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Process habitat suitability rasters into per-region analyses and web map tiles.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("wildmaps %s (commit %s, built %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	if err := log.Setup(verbose); err != nil {
		fmt.Fprintf(os.Stderr, "setting up logging: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	fatal := func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
		os.Exit(1)
	}

	if catalogPath == "" || dataDir == "" || outDir == "" || dictDir == "" {
		flag.Usage()
		fatal("\n-catalog, -data, -out and -dicts are required (or their WILDMAPS_* environment equivalents)")
	}
	if paPath == "" || landusePath == "" {
		fatal("-pa and -landuse are required (or WILDMAPS_PA_PATH / WILDMAPS_LANDUSE_PATH)")
	}

	geoio.Register()

	datasets, err := catalog.Parse(catalogPath)
	if err != nil {
		fatal("reading catalog: %v", err)
	}
	active := datasets[:0]
	for _, d := range datasets {
		if !d.Ignore {
			active = append(active, d)
		}
	}
	if len(active) == 0 {
		fatal("catalog %s holds no active datasets", catalogPath)
	}

	dicts, err := dict.Load(dictDir)
	if err != nil {
		fatal("loading dictionaries: %v", err)
	}

	provider, err := layers.NewProvider(paPath, landusePath)
	if err != nil {
		fatal("opening auxiliary layers: %v", err)
	}

	runner := pipeline.New(pipeline.Options{
		DataDir:         dataDir,
		OutDir:          outDir,
		MinZoom:         minZoom,
		MaxZoom:         maxZoom,
		TileSize:        tileSize,
		TileFormat:      format,
		TileQuality:     quality,
		TileConcurrency: concurrency,
		Workers:         workers,
		Force:           force,
	}, dicts, provider)

	reports := runner.Run(active)
	fmt.Print(pipeline.Summarize(reports))

	if pipeline.Failed(reports) {
		os.Exit(1)
	}
}
