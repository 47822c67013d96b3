// ritedump - inspect RITE bytecode containers
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/riteload/dump"
	"github.com/chazu/riteload/profile"
	"github.com/chazu/riteload/rite"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("ritedump")

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	profilePath := flag.String("profile", "", "Target profile (target.toml) to validate against")
	format := flag.String("format", "text", "Output format: text or cbor")
	outPath := flag.String("o", "", "Write output to file instead of stdout")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ritedump [options] file.mrb\n\n")
		fmt.Fprintf(os.Stderr, "Loads a RITE bytecode container and prints its irep tree.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  ritedump app.mrb                      # Print the irep tree\n")
		fmt.Fprintf(os.Stderr, "  ritedump -profile target.toml app.mrb # Validate against a target profile\n")
		fmt.Fprintf(os.Stderr, "  ritedump -format cbor -o app.cbor app.mrb\n")
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	verbosity := 0
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	cfg := rite.DefaultConfig()
	if *profilePath != "" {
		p, err := profile.Load(*profilePath)
		if err != nil {
			log.Errorf("%s", err.Error())
			os.Exit(1)
		}
		cfg = p.Config()
		if *verbose {
			log.Infof("using target profile %q", p.Target.Name)
		}
	}
	cfg.Reporter = func(offset int, err error) {
		log.Errorf("decode failed at offset %d: %s", offset, err.Error())
	}

	path := flag.Arg(0)
	blob, err := os.ReadFile(path)
	if err != nil {
		log.Errorf("cannot read %s: %s", path, err.Error())
		os.Exit(1)
	}

	root, err := rite.LoadWithConfig(blob, cfg)
	if err != nil {
		// The reporter already logged the failure.
		os.Exit(1)
	}
	if *verbose {
		log.Infof("loaded %s: %d bytes, %d ireps", path, len(blob), len(root.Flatten()))
	}

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Errorf("cannot create %s: %s", *outPath, err.Error())
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	switch *format {
	case "text":
		err = dump.Listing(out, root)
	case "cbor":
		var data []byte
		if data, err = dump.MarshalTree(root); err == nil {
			_, err = out.Write(data)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown format %q (want text or cbor)\n", *format)
		os.Exit(2)
	}
	if err != nil {
		log.Errorf("%s", err.Error())
		os.Exit(1)
	}
}
