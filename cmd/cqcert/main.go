// Command cqcert is a thin CLI driver over the certificate core: it can
// verify a standalone certificate file, and archive/retrieve certificates
// from a bbolt-backed store keyed by target model hash. It does not run
// analysis, calibration, or verification itself — those are library
// operations an external pipeline drives; this binary only inspects and
// persists their final artifact. Grounded on cmd/rubin-node/main.go's
// flag.FlagSet + testable run(args, stdout, stderr) int shape.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/cqcert/cqcert/certificate"
	"github.com/cqcert/cqcert/store"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 2
	}

	switch args[0] {
	case "verify":
		return runVerify(args[1:], stdout, stderr)
	case "archive-put":
		return runArchivePut(args[1:], stdout, stderr)
	case "archive-get":
		return runArchiveGet(args[1:], stdout, stderr)
	case "-h", "-help", "--help", "help":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "unknown subcommand %q\n", args[0])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: cqcert <verify|archive-put|archive-get> [flags]")
	_, _ = fmt.Fprintln(w, "  verify -cert <path>                    print and check a certificate file")
	_, _ = fmt.Fprintln(w, "  archive-put -dir <path> -cert <path>   store a certificate in the archive")
	_, _ = fmt.Fprintln(w, "  archive-get -dir <path> -hash <hex>    fetch a certificate by target model hash")
}

func runVerify(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cqcert verify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	certPath := fs.String("cert", "", "path to a 360-byte certificate file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *certPath == "" {
		_, _ = fmt.Fprintln(stderr, "verify: -cert is required")
		return 2
	}

	raw, err := os.ReadFile(*certPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "verify: read %s: %v\n", *certPath, err)
		return 2
	}

	cert, err := certificate.Deserialize(raw)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "verify: %v\n", err)
		return 1
	}

	_, _ = fmt.Fprint(stdout, cert.Format())

	if !cert.VerifyIntegrity() {
		_, _ = fmt.Fprintln(stderr, "verify: integrity check failed")
		return 1
	}
	if !cert.BoundsSatisfied() {
		_, _ = fmt.Fprintln(stderr, "verify: claimed error bound is not satisfied by the measured error")
		return 1
	}
	return 0
}

func runArchivePut(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cqcert archive-put", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dir := fs.String("dir", "", "archive directory")
	certPath := fs.String("cert", "", "path to a 360-byte certificate file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *dir == "" || *certPath == "" {
		_, _ = fmt.Fprintln(stderr, "archive-put: -dir and -cert are required")
		return 2
	}

	raw, err := os.ReadFile(*certPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "archive-put: read %s: %v\n", *certPath, err)
		return 2
	}
	cert, err := certificate.Deserialize(raw)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "archive-put: %v\n", err)
		return 1
	}

	a, err := store.Open(*dir)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "archive-put: open archive: %v\n", err)
		return 2
	}
	defer func() { _ = a.Close() }()

	if err := a.Put(cert); err != nil {
		_, _ = fmt.Fprintf(stderr, "archive-put: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "archived certificate for target %x\n", cert.TargetModelHash())
	return 0
}

func runArchiveGet(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cqcert archive-get", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dir := fs.String("dir", "", "archive directory")
	hashHex := fs.String("hash", "", "target model hash, hex-encoded")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *dir == "" || *hashHex == "" {
		_, _ = fmt.Fprintln(stderr, "archive-get: -dir and -hash are required")
		return 2
	}

	hashBytes, err := hex.DecodeString(*hashHex)
	if err != nil || len(hashBytes) != 32 {
		_, _ = fmt.Fprintln(stderr, "archive-get: -hash must be 64 hex characters")
		return 2
	}
	var hash [32]byte
	copy(hash[:], hashBytes)

	a, err := store.Open(*dir)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "archive-get: open archive: %v\n", err)
		return 2
	}
	defer func() { _ = a.Close() }()

	cert, ok, err := a.Get(hash)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "archive-get: %v\n", err)
		return 2
	}
	if !ok {
		_, _ = fmt.Fprintf(stderr, "archive-get: no certificate archived for %s\n", *hashHex)
		return 1
	}
	_, _ = fmt.Fprint(stdout, cert.Format())
	return 0
}
