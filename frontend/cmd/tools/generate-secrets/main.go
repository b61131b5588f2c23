package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/itchan-dev/echobox/shared/admin"
	"github.com/itchan-dev/echobox/shared/crypto"
)

func main() {
	username := flag.String("username", "admin", "admin username")
	password := flag.String("password", "", "admin password (required)")
	flag.Parse()
	if *password == "" {
		log.Fatal("-password is required")
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		log.Fatalf("Failed to generate jwt key: %v", err)
	}
	hash, err := admin.HashPassword(*password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	fmt.Println("Add this to your config/private.yaml:")
	fmt.Println()
	fmt.Printf("jwt_key: %q\n", key)
	fmt.Printf("admin_username: %q\n", *username)
	fmt.Printf("admin_password_hash: '%s'\n", hash)
	fmt.Println()
	fmt.Println("Changing jwt_key logs out every admin session.")
}
