/*
AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// h264crypt selectively encrypts or decrypts the slice payloads of an
// H.264 Annex-B stream with AES, leaving framing and non-slice NAL units
// intact.
package main

import (
	"crypto/aes"
	"encoding/hex"
	"flag"
	"log"
	"os"

	"github.com/ausocean/h264ab/crypt"
)

func main() {
	var (
		inPath, outPath string
		mode            string
		keyHex, ivHex   string
		cbc             bool
		all             bool
	)
	flag.StringVar(&inPath, "in", "", "file path of input")
	flag.StringVar(&outPath, "out", "", "file path of output")
	flag.StringVar(&mode, "mode", "encrypt", "encrypt or decrypt")
	flag.StringVar(&keyHex, "key", "", "AES key as hex (16, 24 or 32 bytes)")
	flag.StringVar(&ivHex, "iv", "", "IV as hex (16 bytes)")
	flag.BoolVar(&cbc, "cbc", false, "use CBC with PKCS#7 padding instead of CTR")
	flag.BoolVar(&all, "all", false, "process all VCL slices, not just IDR slices")
	flag.Parse()

	if inPath == "" || outPath == "" {
		log.Fatal("need both -in and -out")
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		log.Fatalf("bad -key: %v", err)
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		log.Fatalf("bad -iv: %v", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		log.Fatal(err)
	}
	var c crypt.Cipher
	if cbc {
		c = &crypt.CBC{Block: block, IV: iv}
	} else {
		c = &crypt.CTR{Block: block, IV: iv}
	}

	sel := crypt.IDRSlices
	if all {
		sel = crypt.VCLSlices
	}
	p := &crypt.Processor{Cipher: c, Select: sel}

	data, err := os.ReadFile(inPath)
	if err != nil {
		log.Fatal(err)
	}

	var out []byte
	switch mode {
	case "encrypt":
		out, err = p.Encrypt(data)
	case "decrypt":
		out, err = p.Decrypt(data)
	default:
		log.Fatalf("unknown -mode %q", mode)
	}
	if err != nil {
		log.Fatal(err)
	}

	if err := os.WriteFile(outPath, out, 0644); err != nil {
		log.Fatal(err)
	}
}
