// Command pdftool exercises the library from the command line: inspecting
// a document, merging files, extracting text and adding or removing
// Standard Security Handler encryption.
//
// Usage:
//
//	pdftool info file.pdf
//	pdftool extract-text -page 0 file.pdf
//	pdftool merge -o out.pdf a.pdf b.pdf
//	pdftool encrypt -o out.pdf -user foo -owner bar file.pdf
//	pdftool decrypt -o out.pdf -password foo file.pdf
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	pdfcpulog "github.com/pdfcpu/pdfcpu/pkg/log"

	"github.com/vellumpdf/pdf/model"
	"github.com/vellumpdf/pdf/reader"
	"github.com/vellumpdf/pdf/writer"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "info":
		runInfo(args)
	case "extract-text":
		runExtractText(args)
	case "merge":
		runMerge(args)
	case "encrypt":
		runEncrypt(args)
	case "decrypt":
		runDecrypt(args)
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: pdftool {info|extract-text|merge|encrypt|decrypt} [flags] file...")
	os.Exit(2)
}

func openDoc(path, password string, debug bool) *reader.Document {
	if debug {
		pdfcpulog.SetDefaultLoggers()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("reading %s: %s", path, err)
	}
	doc, err := reader.Open(data, reader.Options{Warn: func(w model.Warning) {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}})
	if err != nil {
		log.Fatalf("parsing %s: %s", path, err)
	}
	if doc.NeedsPassword() {
		res, err := doc.Decrypt(password)
		if err != nil {
			log.Fatalf("decrypting %s: %s", path, err)
		}
		if res == model.DecryptNoMatch {
			log.Fatalf("%s: password does not match", path)
		}
	}
	return doc
}

func runInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	password := fs.String("password", "", "password for encrypted input")
	debug := fs.Bool("debug", false, "enable parser/reader trace logging")
	fs.Parse(args)
	if fs.NArg() != 1 {
		usage()
	}

	doc := openDoc(fs.Arg(0), *password, *debug)
	n, err := doc.NumPages()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("pages:", n)

	info, err := doc.Info()
	if err != nil {
		log.Fatal(err)
	}
	for _, key := range []model.Name{"Title", "Author", "Subject", "Keywords", "Creator", "Producer", "CreationDate", "ModDate"} {
		if s, ok := info[key].(model.String); ok {
			fmt.Printf("%s: %s\n", key, model.DecodeTextString(s.Raw))
		}
	}
}

func runExtractText(args []string) {
	fs := flag.NewFlagSet("extract-text", flag.ExitOnError)
	page := fs.Int("page", -1, "0-based page index; -1 means every page")
	password := fs.String("password", "", "password for encrypted input")
	debug := fs.Bool("debug", false, "enable parser/reader trace logging")
	fs.Parse(args)
	if fs.NArg() != 1 {
		usage()
	}

	doc := openDoc(fs.Arg(0), *password, *debug)
	all, err := doc.Pages()
	if err != nil {
		log.Fatal(err)
	}
	for i, p := range all {
		if *page >= 0 && i != *page {
			continue
		}
		text, err := p.ExtractText()
		if err != nil {
			log.Fatalf("page %d: %s", i, err)
		}
		fmt.Println(text)
	}
}

func runMerge(args []string) {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	output := fs.String("o", "merged.pdf", "output file")
	debug := fs.Bool("debug", false, "enable parser/reader trace logging")
	fs.Parse(args)
	if fs.NArg() < 2 {
		usage()
	}

	w := writer.New()
	for _, path := range fs.Args() {
		doc := openDoc(path, "", *debug)
		all, err := doc.Pages()
		if err != nil {
			log.Fatalf("%s: %s", path, err)
		}
		for _, p := range all {
			if _, err := w.AddPage(p); err != nil {
				log.Fatalf("%s: %s", path, err)
			}
		}
	}
	writeOut(w, *output)
}

func runEncrypt(args []string) {
	fs := flag.NewFlagSet("encrypt", flag.ExitOnError)
	output := fs.String("o", "encrypted.pdf", "output file")
	user := fs.String("user", "", "user password")
	owner := fs.String("owner", "", "owner password")
	revision := fs.Int("rev", 3, "security handler revision (2 or 3)")
	bits := fs.Int("bits", 128, "key length in bits (revision 3 only)")
	debug := fs.Bool("debug", false, "enable parser/reader trace logging")
	fs.Parse(args)
	if fs.NArg() != 1 {
		usage()
	}

	w := copyPages(openDoc(fs.Arg(0), "", *debug))
	err := w.SetEncryption(*owner, *user, model.UserPermissions(0xFFFFFFFC), *revision, *bits)
	if err != nil {
		log.Fatal(err)
	}
	writeOut(w, *output)
}

func runDecrypt(args []string) {
	fs := flag.NewFlagSet("decrypt", flag.ExitOnError)
	output := fs.String("o", "decrypted.pdf", "output file")
	password := fs.String("password", "", "user or owner password")
	debug := fs.Bool("debug", false, "enable parser/reader trace logging")
	fs.Parse(args)
	if fs.NArg() != 1 {
		usage()
	}

	writeOut(copyPages(openDoc(fs.Arg(0), *password, *debug)), *output)
}

func copyPages(doc *reader.Document) *writer.Writer {
	w := writer.New()
	all, err := doc.Pages()
	if err != nil {
		log.Fatal(err)
	}
	for _, p := range all {
		if _, err := w.AddPage(p); err != nil {
			log.Fatal(err)
		}
	}
	return w
}

func writeOut(w *writer.Writer, path string) {
	f, err := os.Create(path)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	if err := w.Write(f); err != nil {
		log.Fatal(err)
	}
	fmt.Println("written to", path)
}
