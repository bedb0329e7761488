package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		fmt.Fprintf(os.Stderr, "Error: JWT_SECRET environment variable is not set\n")
		os.Exit(1)
	}
	subject := flag.String("sub", "dive-ui", "Subject to include in the JWT token")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	claims := jwt.MapClaims{
		"sub": *subject,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(*ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(tokenString)
}
