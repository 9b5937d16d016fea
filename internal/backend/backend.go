// Package backend writes compiled artifacts to disk in the formats the CLI
// offers.
package backend

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"nakgo/internal/driver"
)

// Output formats.
const (
	FormatBin     = "bin"
	FormatHex     = "hex"
	FormatMsgpack = "msgpack"
)

// Options configures how an artifact is written.
type Options struct {
	// Format is one of FormatBin, FormatHex and FormatMsgpack. Empty means
	// FormatBin.
	Format string
	// Stdout receives the output when the path is "-". Binary formats
	// refuse to go there.
	Stdout io.Writer
}

// Result lists the files that were written.
type Result struct {
	MainPath string
	AuxPaths []string
}

// WriteArtifact stores art at outputPath. The binary format puts the code
// at outputPath and the program header next to it with an .sph extension.
func WriteArtifact(art *driver.Artifact, outputPath string, opts Options) (Result, error) {
	if art == nil {
		return Result{}, fmt.Errorf("backend: artifact is nil")
	}
	format := opts.Format
	if format == "" {
		format = FormatBin
	}

	if outputPath == "" || outputPath == "-" {
		if format != FormatHex {
			return Result{}, fmt.Errorf("backend: %s output requires -o", format)
		}
		if opts.Stdout == nil {
			return Result{}, fmt.Errorf("backend: no writer for standard output")
		}
		if err := WriteHex(opts.Stdout, art); err != nil {
			return Result{}, fmt.Errorf("backend: write listing: %w", err)
		}
		return Result{MainPath: "-"}, nil
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return Result{}, fmt.Errorf("backend: create output dir: %w", err)
	}

	res := Result{MainPath: outputPath}
	switch format {
	case FormatBin:
		if err := writeFile(outputPath, func(w io.Writer) error { return writeWords(w, art.Code) }); err != nil {
			return Result{}, err
		}
		if len(art.Header) > 0 {
			sphPath := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".sph"
			if err := writeFile(sphPath, func(w io.Writer) error { return writeWords(w, art.Header) }); err != nil {
				return Result{}, err
			}
			res.AuxPaths = append(res.AuxPaths, sphPath)
		}
	case FormatHex:
		if err := writeFile(outputPath, func(w io.Writer) error { return WriteHex(w, art) }); err != nil {
			return Result{}, err
		}
	case FormatMsgpack:
		if err := writeFile(outputPath, func(w io.Writer) error { return msgpack.NewEncoder(w).Encode(art) }); err != nil {
			return Result{}, err
		}
	default:
		return Result{}, fmt.Errorf("backend: unknown format %q", format)
	}
	return res, nil
}

// ReadMsgpack loads an artifact written with FormatMsgpack.
func ReadMsgpack(path string) (*driver.Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("backend: read artifact: %w", err)
	}
	var art driver.Artifact
	if err := msgpack.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("backend: decode artifact: %w", err)
	}
	return &art, nil
}

func writeFile(path string, emit func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("backend: create %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)
	if err := emit(bw); err != nil {
		f.Close()
		return fmt.Errorf("backend: write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("backend: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("backend: close %s: %w", path, err)
	}
	return nil
}

func writeWords(w io.Writer, words []uint32) error {
	return binary.Write(w, binary.LittleEndian, words)
}

// WriteHex prints a listing with one instruction per line, each prefixed
// by its byte offset. Maxwell scheduling words get their own line.
func WriteHex(w io.Writer, art *driver.Artifact) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "// %s: sm_%d %s, %d gprs", art.Name, art.SM, art.Stage, art.NumGPRs)
	if art.TLSSize > 0 {
		fmt.Fprintf(bw, ", %d bytes tls", art.TLSSize)
	}
	bw.WriteString("\n")

	if len(art.Header) > 0 {
		bw.WriteString("// header\n")
		for i := 0; i < len(art.Header); i += 4 {
			fmt.Fprintf(bw, "  %s\n", hexWords(art.Header[i:min(i+4, len(art.Header))]))
		}
	}

	bw.WriteString("// code\n")
	if art.SM >= 70 {
		for i := 0; i < len(art.Code); i += 4 {
			fmt.Fprintf(bw, "  /*%04x*/ %s\n", 4*i, hexWords(art.Code[i:min(i+4, len(art.Code))]))
		}
		return bw.Flush()
	}
	for i := 0; i < len(art.Code); i += 2 {
		prefix := ""
		if i%8 == 0 {
			prefix = "sched "
		}
		fmt.Fprintf(bw, "  /*%04x*/ %s%s\n", 4*i, prefix, hexWords(art.Code[i:min(i+2, len(art.Code))]))
	}
	return bw.Flush()
}

func hexWords(words []uint32) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = fmt.Sprintf("0x%08x", w)
	}
	return strings.Join(parts, " ")
}
