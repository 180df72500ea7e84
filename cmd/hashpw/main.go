// Command hashpw reads a password from the terminal without echo and
// prints its bcrypt hash. Useful for seeding an account directly in the
// database or for verifying what the server stores.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/buddy/internal/server/security"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

func main() {

	fmt.Fprint(os.Stderr, "Enter password: ")
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		log.Fatalf("error reading password: %v", err)
	}
	if len(pw) == 0 {
		log.Fatal("password must not be empty")
	}

	hasher := security.NewPasswordHasher()
	hash, err := hasher.Hash(string(pw))
	if err != nil {
		log.Fatalf("error hashing password: %v", err)
	}

	fmt.Println(hash)
}
