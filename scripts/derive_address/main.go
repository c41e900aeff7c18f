// derive_address prints the wallet descriptor and first receive address of a
// BIP39 mnemonic for testing.
//
// Usage:
//
//	go run ./scripts/derive_address "your 12 word seed phrase here"
//
// Or with stdin:
//
//	echo "your 12 word seed phrase" | go run ./scripts/derive_address
//
// The network defaults to regtest; set WOLLET_NETWORK=testnet or liquid for
// the public networks.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/complex-gh/wollet"
)

func main() {
	var mnemonic string

	if len(os.Args) > 1 {
		mnemonic = strings.Join(os.Args[1:], " ")
	} else {
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			mnemonic = strings.TrimSpace(scanner.Text())
		}
	}

	if mnemonic == "" {
		fmt.Fprintln(os.Stderr, "Usage: derive_address \"12 word seed phrase\"")
		fmt.Fprintln(os.Stderr, "   or: echo \"seed phrase\" | derive_address")
		os.Exit(1)
	}

	net, err := wollet.ParseNetwork(os.Getenv("WOLLET_NETWORK"), os.Getenv("WOLLET_POLICY_ASSET"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	signer, err := wollet.NewSigner(mnemonic, net)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	desc, err := signer.WpkhSlip77Descriptor()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	first, err := desc.Derive(wollet.External, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(desc.String())
	fmt.Println(first.Address)
}
