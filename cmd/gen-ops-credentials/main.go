package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

// Generates the credential material the ops section of config.yaml
// expects: a bcrypt password hash and a TOTP secret with a current code
// to verify enrollment.
func main() {
	var (
		password = flag.String("password", "", "Operator password to hash")
		issuer   = flag.String("issuer", "akx-gateway", "TOTP issuer name")
		account  = flag.String("account", "ops", "TOTP account name")
	)
	flag.Parse()

	if *password == "" {
		fmt.Println("Usage: gen-ops-credentials -password <password> [-issuer name] [-account name]")
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Printf("Error hashing password: %v\n", err)
		os.Exit(1)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      *issuer,
		AccountName: *account,
	})
	if err != nil {
		fmt.Printf("Error generating TOTP secret: %v\n", err)
		os.Exit(1)
	}

	code, err := totp.GenerateCode(key.Secret(), time.Now())
	if err != nil {
		fmt.Printf("Error generating TOTP code: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("============================================================")
	fmt.Println("Add to config.yaml under ops:")
	fmt.Printf("  password_hash: %q\n", string(hash))
	fmt.Printf("  totp_secret: %q\n", key.Secret())
	fmt.Println("============================================================")
	fmt.Printf("Provisioning URL: %s\n", key.URL())
	fmt.Printf("Current TOTP Code: %s (valid ~30 seconds)\n", code)
}
