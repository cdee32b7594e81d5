package config

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"basestation-mapper/internal/apperr"
	"basestation-mapper/internal/models"

	"github.com/spf13/pflag"
)

const (
	DefaultConfigFile = "ntrip.ini"
	DefaultBufferKm   = 20
	DefaultTimeout    = 30 * time.Second
	DefaultMaxPayload = 16 << 20
)

// Options are the invocation parameters of the updater.
type Options struct {
	Verbosity  int
	Fetch      bool
	Overwrite  bool
	Append     bool
	ConfigFile string
	BufferKm   float64

	Everything bool
	Country    string
	RegionFile string

	Sort       string
	Timeout    time.Duration
	MaxPayload int64
	Publish    bool

	Caster string
	Output string
}

// ParseArgs parses the command line (without the program name).
func ParseArgs(args []string, stderr io.Writer) (Options, error) {
	var o Options

	fs := pflag.NewFlagSet("updater", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: updater [flags] {%s} output.json\n", strings.Join(models.Casters, ","))
		fs.PrintDefaults()
	}

	fs.CountVarP(&o.Verbosity, "verbose", "v", "verbose output, twice for debug messages")
	fs.BoolVarP(&o.Fetch, "fetch", "f", false, "fetch a fresh source table from the caster")
	fs.BoolVarP(&o.Overwrite, "overwrite", "o", false, "overwrite a previously fetched source table")
	fs.BoolVarP(&o.Append, "append", "a", false, "append stations to an existing output list")
	fs.StringVarP(&o.ConfigFile, "ini_file", "i", DefaultConfigFile, "path to the INI file")
	fs.Float64VarP(&o.BufferKm, "buffer", "b", DefaultBufferKm, "from how far outside the region (km) stations are counted in")
	fs.BoolVarP(&o.Everything, "everything", "e", false, "keep every station without filtering")
	fs.StringVarP(&o.Country, "country", "c", "", "three-letter country code of the stations to keep")
	fs.StringVarP(&o.RegionFile, "region", "r", "", "GeoJSON file containing the region border")
	fs.StringVarP(&o.Sort, "sort", "s", string(models.SortByCoordinates), "how to sort the stations (id, coordinates)")
	fs.DurationVar(&o.Timeout, "timeout", DefaultTimeout, "connect timeout and longest silence allowed while fetching")
	fs.Int64Var(&o.MaxPayload, "max-size", DefaultMaxPayload, "maximum source table size in bytes")
	fs.BoolVar(&o.Publish, "publish", false, "publish the result to the configured database")

	if err := fs.Parse(args); err != nil {
		return o, apperr.Wrap(apperr.Precondition, "args", err, "invalid arguments")
	}

	if fs.NArg() != 2 {
		fs.Usage()
		return o, apperr.New(apperr.Precondition, "args", "expected caster and output arguments, got %d", fs.NArg())
	}
	o.Caster = fs.Arg(0)
	o.Output = fs.Arg(1)

	return o, o.Validate()
}

// Validate checks the invariants that the flag parser cannot express.
func (o Options) Validate() error {
	if !slices.Contains(models.Casters, o.Caster) {
		return apperr.New(apperr.Precondition, "args", "unknown caster %q, expected one of %s", o.Caster, strings.Join(models.Casters, ", "))
	}
	if o.Output == "" {
		return apperr.New(apperr.Precondition, "args", "output file is required")
	}
	switch models.SortMode(o.Sort) {
	case models.SortByID, models.SortByCoordinates:
	default:
		return apperr.New(apperr.Precondition, "args", "invalid sort mode %q", o.Sort)
	}
	if o.MaxPayload <= 0 {
		return apperr.New(apperr.Precondition, "args", "max-size must be positive")
	}
	_, err := o.Policy()
	return err
}

// Policy builds the inclusion policy; exactly one of everything, country
// and region must be given.
func (o Options) Policy() (models.InclusionPolicy, error) {
	var set []string
	if o.Everything {
		set = append(set, "everything")
	}
	if o.Country != "" {
		set = append(set, "country")
	}
	if o.RegionFile != "" {
		set = append(set, "region")
	}

	switch len(set) {
	case 0:
		return models.InclusionPolicy{}, apperr.New(apperr.Precondition, "args", "one of everything, country or region is required")
	case 1:
	default:
		return models.InclusionPolicy{}, apperr.New(apperr.Precondition, "args", "%s are mutually exclusive", strings.Join(set, " and "))
	}

	switch {
	case o.Everything:
		return models.Everything(), nil
	case o.Country != "":
		return models.Country(o.Country), nil
	default:
		if o.BufferKm < 0 {
			return models.InclusionPolicy{}, apperr.New(apperr.Precondition, "args", "buffer must not be negative, got %g", o.BufferKm)
		}
		return models.Region(o.RegionFile, o.BufferKm), nil
	}
}
