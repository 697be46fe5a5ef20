// Command fleececat reads a JSON document from stdin and writes its
// fleece encoding to stdout, driving pkg/fleece's public Write*/
// Begin*/End* surface through encoding/json rather than reimplementing a
// tokenizer.
package main

import (
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/gofleece/fleece/pkg/bind"
	"github.com/gofleece/fleece/pkg/wireframe"
)

func main() {
	zstdFlag := flag.Bool("zstd", false, "zstd-compress the output buffer")
	frameFlag := flag.Bool("frame", false, "wrap the output in a wireframe envelope")
	flag.Parse()

	input, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatalf("fleececat: read stdin: %v", err)
	}

	var doc any
	if err := json.Unmarshal(input, &doc); err != nil {
		log.Fatalf("fleececat: parse JSON: %v", err)
	}

	buf, err := bind.EncodeValue(doc)
	if err != nil {
		log.Fatalf("fleececat: encode: %v", err)
	}

	out := buf
	switch {
	case *frameFlag:
		// -frame carries its own FlagCompressed bit; -zstd just selects
		// whether that bit is set, not a second compression pass.
		out, err = wireframe.EncodeFrame(buf, *zstdFlag)
		if err != nil {
			log.Fatalf("fleececat: frame: %v", err)
		}
	case *zstdFlag:
		w, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			log.Fatalf("fleececat: zstd writer: %v", err)
		}
		out = w.EncodeAll(buf, nil)
		if err := w.Close(); err != nil {
			log.Fatalf("fleececat: zstd close: %v", err)
		}
	}

	if _, err := os.Stdout.Write(out); err != nil {
		log.Fatalf("fleececat: write stdout: %v", err)
	}
}
